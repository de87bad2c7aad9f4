package framework

import (
	"fmt"
	"strings"

	sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/envscout/envscout/internal/discovery"
	"github.com/envscout/envscout/internal/matcher"
)

// Runner executes one framework's compiled queries against source files. All
// queries are compiled when the runner is built, so a single malformed
// pattern rejects the whole framework up front rather than mid-scan.
type Runner struct {
	config   *Config
	language *sitter.Language
	queries  []compiledQuery
}

type compiledQuery struct {
	spec     Query
	query    *sitter.Query
	captures []string
}

// NewRunner compiles every query in the framework's definition.
func NewRunner(cfg *Config) (*Runner, error) {
	language, err := matcher.Grammar(cfg.Language)
	if err != nil {
		return nil, fmt.Errorf("framework %s: %w", cfg.Name, err)
	}

	runner := &Runner{config: cfg, language: language}
	for _, spec := range cfg.Queries {
		query, queryErr := sitter.NewQuery(language, strings.TrimSpace(spec.Pattern))
		if queryErr != nil {
			return nil, fmt.Errorf("framework %s: compile query %s: %v", cfg.Name, spec.Name, queryErr)
		}
		runner.queries = append(runner.queries, compiledQuery{
			spec:     spec,
			query:    query,
			captures: query.CaptureNames(),
		})
	}
	return runner, nil
}

// Name returns the framework's name.
func (r *Runner) Name() string {
	return r.config.Name
}

// Language returns the grammar the runner parses with. TypeScript sources are
// handled by the javascript grammar's error tolerance, so a framework
// declaring "javascript" also applies to .ts files.
func (r *Runner) Language() string {
	return r.config.Language
}

// Run parses source with the framework's grammar and collects one usage per
// extracted key per line. Keys that fail extraction are skipped silently;
// framework queries are opportunistic additions on top of static discovery.
func (r *Runner) Run(path string, source []byte) (*discovery.ParseResult, error) {
	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(r.language)

	tree := parser.Parse(source, nil)
	if tree == nil {
		return nil, matcher.ErrParseFailed
	}
	defer tree.Close()

	root := tree.RootNode()
	if root == nil {
		return nil, matcher.ErrParseFailed
	}

	lines := strings.Split(string(source), "\n")
	result := &discovery.ParseResult{}
	seen := make(map[string]bool)

	for _, cq := range r.queries {
		cursor := sitter.NewQueryCursor()
		matches := cursor.Matches(cq.query, root, source)
		for {
			qm := matches.Next()
			if qm == nil {
				break
			}
			for _, capture := range qm.Captures {
				if int(capture.Index) >= len(cq.captures) {
					continue
				}
				if cq.captures[capture.Index] != cq.spec.KeyCapture {
					continue
				}
				node := capture.Node
				raw := string(source[node.StartByte():node.EndByte()])
				name, defaultValue, ok := normalizeKey(raw)
				if !ok {
					continue
				}

				row := int(node.StartPosition().Row)
				line := row + 1
				key := fmt.Sprintf("%s:%d", name, line)
				if seen[key] {
					continue
				}
				seen[key] = true

				context := ""
				if row >= 0 && row < len(lines) {
					context = strings.TrimSpace(lines[row])
				}
				// Framework-sourced usages always report as strings; the
				// definition's type_inference rules are validated but not
				// applied here. Static discovery of the same variable
				// refines the type during aggregation.
				result.Usages = append(result.Usages, discovery.EnvVarUsage{
					Name:         name,
					Type:         discovery.TypeString,
					Confidence:   cq.spec.Confidence,
					File:         path,
					Line:         line,
					Context:      context,
					DefaultValue: defaultValue,
				})
			}
		}
		cursor.Close()
	}
	return result, nil
}

// normalizeKey turns a captured key node's text into a variable name. It
// strips string quoting and unwraps Spring-style ${KEY:default} placeholders,
// returning the embedded default when one is present. Keys that still contain
// interpolation or are empty after normalization are rejected.
func normalizeKey(raw string) (name, defaultValue string, ok bool) {
	s := trimQuotes(strings.TrimSpace(raw))

	if strings.HasPrefix(s, "${") && strings.HasSuffix(s, "}") {
		s = s[2 : len(s)-1]
		if i := strings.Index(s, ":"); i >= 0 {
			defaultValue = s[i+1:]
			s = s[:i]
		}
	}

	if s == "" || strings.ContainsAny(s, "${}#") {
		return "", "", false
	}
	return s, defaultValue, true
}

func trimQuotes(s string) string {
	if len(s) >= 2 {
		if (s[0] == '"' && s[len(s)-1] == '"') ||
			(s[0] == '\'' && s[len(s)-1] == '\'') ||
			(s[0] == '`' && s[len(s)-1] == '`') {
			return s[1 : len(s)-1]
		}
	}
	return s
}
