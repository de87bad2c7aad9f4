package matcher

import (
	"fmt"
	"strings"

	sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/envscout/envscout/internal/discovery"
)

// javascriptQuery matches process.env access in dot notation, bracket
// notation with a string key, bracket notation with an identifier key
// (dynamic), a concatenation expression (computed), and a template string.
// Receiver validation is done manually after matching; the query engine's
// predicates cannot reject a local variable literally named env.
const javascriptQuery = `
[
  (member_expression
    object: (member_expression
      object: (identifier) @obj
      property: (property_identifier) @prop
    )
    property: (property_identifier) @key
  )
  (subscript_expression
    object: (member_expression
      object: (identifier) @obj
      property: (property_identifier) @prop
    )
    index: (string) @key
  )
  (subscript_expression
    object: (member_expression
      object: (identifier) @obj
      property: (property_identifier) @prop
    )
    index: (template_string) @template
  )
  (subscript_expression
    object: (member_expression
      object: (identifier) @obj
      property: (property_identifier) @prop
    )
    index: (binary_expression) @expr
  )
  (subscript_expression
    object: (member_expression
      object: (identifier) @obj
      property: (property_identifier) @prop
    )
    index: (identifier) @var
  )
]
`

var javascriptConversions = []conversion{
	{"parseInt", discovery.TypeInteger},
	{"parseFloat", discovery.TypeInteger},
	{"Number(", discovery.TypeInteger},
	{"Boolean(", discovery.TypeBoolean},
	{"String(", discovery.TypeString},
}

// JavaScript discovers process.env access in JavaScript and TypeScript
// sources. The same query text is compiled once per grammar.
type JavaScript struct {
	*base
}

func NewJavaScript() (*JavaScript, error) {
	b, err := newBase("javascript", javascriptQuery)
	if err != nil {
		return nil, err
	}
	return &JavaScript{base: b}, nil
}

// NewTypeScript compiles the JavaScript query against the TypeScript
// grammar; the matched node shapes are identical across the two.
func NewTypeScript() (*JavaScript, error) {
	b, err := newBase("typescript", javascriptQuery)
	if err != nil {
		return nil, err
	}
	return &JavaScript{base: b}, nil
}

func (j *JavaScript) Discover(path string, source []byte) (*discovery.ParseResult, error) {
	c := newCollector(path, source)

	err := j.run(source, func(m *match) {
		if m.text("obj") != "process" || m.text("prop") != "env" {
			return
		}

		if keyNode := m.node("key"); keyNode != nil {
			name := stripQuotes(m.text("key"))
			if name == "" {
				c.addWarning(discovery.WarnUnknownPattern, keyNode, "empty environment variable key")
				return
			}
			access := keyNode.Parent()
			row := int(keyNode.StartPosition().Row)
			typ, conf := inferType(name, c.context(row), javascriptConversions)
			c.addUsage(name, keyNode, typ, conf, jsDefaultValue(access, source))
			return
		}

		if tmplNode := m.node("template"); tmplNode != nil {
			text := m.text("template")
			if !strings.Contains(text, "${") {
				// A template string without substitution is a static key.
				name := stripQuotes(text)
				access := tmplNode.Parent()
				row := int(tmplNode.StartPosition().Row)
				typ, conf := inferType(name, c.context(row), javascriptConversions)
				c.addUsage(name, tmplNode, typ, conf, jsDefaultValue(access, source))
				return
			}
			c.addWarning(discovery.WarnComputedKey, tmplNode,
				fmt.Sprintf("computed environment variable key: %s", text))
			return
		}

		if exprNode := m.node("expr"); exprNode != nil {
			c.addWarning(discovery.WarnComputedKey, exprNode,
				fmt.Sprintf("computed environment variable key: %s", m.text("expr")))
			return
		}

		if varNode := m.node("var"); varNode != nil {
			c.addWarning(discovery.WarnDynamicAccess, varNode,
				fmt.Sprintf("dynamic environment variable access via %q", m.text("var")))
		}
	})
	if err != nil {
		return nil, err
	}
	return &c.result, nil
}

// jsDefaultValue walks the ancestor chain of the matched access looking for
// an OR/nullish-coalescing fallback or a ternary whose false branch supplies
// the default.
func jsDefaultValue(access *sitter.Node, source []byte) string {
	if access == nil {
		return ""
	}

	node := access
	parent := node.Parent()
	for parent != nil && parent.Kind() == "parenthesized_expression" {
		node = parent
		parent = node.Parent()
	}
	if parent == nil {
		return ""
	}

	switch parent.Kind() {
	case "binary_expression":
		op := nodeText(parent.ChildByFieldName("operator"), source)
		if (op == "||" || op == "??") && sameSpan(parent.ChildByFieldName("left"), node) {
			return stripQuotes(nodeText(parent.ChildByFieldName("right"), source))
		}
	case "ternary_expression":
		if sameSpan(parent.ChildByFieldName("condition"), node) {
			return stripQuotes(nodeText(parent.ChildByFieldName("alternative"), source))
		}
	}
	return ""
}
