package matcher

import (
	"errors"
	"fmt"
	"strings"

	sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/envscout/envscout/internal/discovery"
	"github.com/envscout/envscout/internal/scanner"
)

// ErrParseFailed is returned when the underlying parser produces no tree for
// a file. The caller drops that file's contribution and continues the run.
var ErrParseFailed = errors.New("parser returned no syntax tree")

// Matcher discovers environment variable usage in one language's source.
type Matcher interface {
	Discover(path string, source []byte) (*discovery.ParseResult, error)
}

// New constructs the matcher for a classified language. Query compilation
// failures here are programming defects and abort the run.
func New(lang scanner.Language) (Matcher, error) {
	switch lang {
	case scanner.LanguageJavaScript:
		return NewJavaScript()
	case scanner.LanguageTypeScript:
		return NewTypeScript()
	case scanner.LanguagePython:
		return NewPython()
	case scanner.LanguageRuby:
		return NewRuby()
	case scanner.LanguageJava:
		return NewJava()
	case scanner.LanguageGo:
		return NewGo()
	case scanner.LanguageRust:
		return NewRust()
	default:
		return nil, fmt.Errorf("unsupported language: %s", lang)
	}
}

// match holds the named captures of one structural query match.
type match struct {
	nodes map[string]*sitter.Node
	texts map[string]string
}

func (m *match) text(name string) string {
	return m.texts[name]
}

func (m *match) node(name string) *sitter.Node {
	return m.nodes[name]
}

// base owns a compiled structural query and the grammar it targets. One base
// exists per matcher instance; queries are compiled once at construction.
type base struct {
	language *sitter.Language
	query    *sitter.Query
	captures []string
}

func newBase(lang, querySrc string) (*base, error) {
	language, err := Grammar(lang)
	if err != nil {
		return nil, err
	}
	query, queryErr := sitter.NewQuery(language, strings.TrimSpace(querySrc))
	if queryErr != nil {
		return nil, fmt.Errorf("compile %s base query: %v", lang, queryErr)
	}
	return &base{
		language: language,
		query:    query,
		captures: query.CaptureNames(),
	}, nil
}

// run parses source and invokes visit for every query match. Nodes handed to
// visit are only valid for the duration of the call; the tree is torn down
// when run returns.
func (b *base) run(source []byte, visit func(m *match)) error {
	// A fresh parser per file: tree-sitter parsers are not safe for
	// concurrent reuse across goroutines.
	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(b.language)

	tree := parser.Parse(source, nil)
	if tree == nil {
		return ErrParseFailed
	}
	defer tree.Close()

	root := tree.RootNode()
	if root == nil {
		return ErrParseFailed
	}

	cursor := sitter.NewQueryCursor()
	defer cursor.Close()
	matches := cursor.Matches(b.query, root, source)

	for {
		qm := matches.Next()
		if qm == nil {
			break
		}
		m := &match{
			nodes: make(map[string]*sitter.Node),
			texts: make(map[string]string),
		}
		for _, capture := range qm.Captures {
			if int(capture.Index) >= len(b.captures) {
				continue
			}
			name := b.captures[capture.Index]
			node := capture.Node
			m.nodes[name] = &node
			m.texts[name] = string(source[node.StartByte():node.EndByte()])
		}
		visit(m)
	}
	return nil
}

// collector accumulates usages and warnings for one file, deduplicating
// usages by name and line and warnings by kind and line.
type collector struct {
	path    string
	lines   []string
	result  discovery.ParseResult
	seen    map[string]bool
	usageAt map[string]int
}

func newCollector(path string, source []byte) *collector {
	return &collector{
		path:    path,
		lines:   strings.Split(string(source), "\n"),
		seen:    make(map[string]bool),
		usageAt: make(map[string]int),
	}
}

func (c *collector) context(row int) string {
	if row >= 0 && row < len(c.lines) {
		return strings.TrimSpace(c.lines[row])
	}
	return ""
}

func (c *collector) addUsage(name string, node *sitter.Node, typ discovery.ConfigType, conf discovery.Confidence, defaultValue string) {
	row := int(node.StartPosition().Row)
	line := row + 1
	key := fmt.Sprintf("%s:%d", name, line)
	if i, ok := c.usageAt[key]; ok {
		// The same variable read twice on one line collapses to one usage,
		// but a later occurrence can still supply the default the first one
		// lacked, as in `x if os.environ["X"] else "dev"`.
		if defaultValue != "" && c.result.Usages[i].DefaultValue == "" {
			c.result.Usages[i].DefaultValue = defaultValue
		}
		return
	}
	c.usageAt[key] = len(c.result.Usages)
	c.result.Usages = append(c.result.Usages, discovery.EnvVarUsage{
		Name:         name,
		Type:         typ,
		Confidence:   conf,
		File:         c.path,
		Line:         line,
		Context:      c.context(row),
		DefaultValue: defaultValue,
	})
}

func (c *collector) addWarning(kind discovery.WarningKind, node *sitter.Node, message string) {
	line := int(node.StartPosition().Row) + 1
	key := fmt.Sprintf("w:%s:%d", kind, line)
	if c.seen[key] {
		return
	}
	c.seen[key] = true
	c.result.Warnings = append(c.result.Warnings, discovery.Warning{
		File:    c.path,
		Line:    line,
		Kind:    kind,
		Message: message,
	})
}

// stripQuotes removes surrounding quotes from a string literal's source text.
func stripQuotes(s string) string {
	if len(s) >= 2 {
		if (s[0] == '"' && s[len(s)-1] == '"') ||
			(s[0] == '\'' && s[len(s)-1] == '\'') ||
			(s[0] == '`' && s[len(s)-1] == '`') {
			return s[1 : len(s)-1]
		}
	}
	return s
}

func nodeText(n *sitter.Node, source []byte) string {
	if n == nil {
		return ""
	}
	return string(source[n.StartByte():n.EndByte()])
}

// sameSpan reports whether two nodes cover the same byte range, which is how
// ancestor walks recognize the matched access inside a parent expression.
func sameSpan(a, b *sitter.Node) bool {
	return a != nil && b != nil && a.StartByte() == b.StartByte() && a.EndByte() == b.EndByte()
}

// secondArgument returns the second named child of an argument list, the
// conventional default-value slot of getenv-style lookups.
func secondArgument(argList *sitter.Node, source []byte) string {
	if argList == nil || argList.NamedChildCount() < 2 {
		return ""
	}
	return stripQuotes(nodeText(argList.NamedChild(1), source))
}
