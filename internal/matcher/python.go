package matcher

import (
	"fmt"
	"strings"

	sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/envscout/envscout/internal/discovery"
)

// pythonQuery matches os.environ subscripts, os.getenv calls, and
// os.environ.get calls, plus the dynamic (identifier) and computed
// (concatenation) shapes of each. Receiver validation happens manually.
const pythonQuery = `
[
  (subscript
    value: (attribute
      object: (identifier) @obj
      attribute: (identifier) @attr
    )
    subscript: (string) @key
  )
  (subscript
    value: (attribute
      object: (identifier) @obj
      attribute: (identifier) @attr
    )
    subscript: (binary_operator) @expr
  )
  (subscript
    value: (attribute
      object: (identifier) @obj
      attribute: (identifier) @attr
    )
    subscript: (identifier) @var
  )
  (call
    function: (attribute
      object: (identifier) @callobj
      attribute: (identifier) @fn
    )
    arguments: (argument_list (string) @key)
  )
  (call
    function: (attribute
      object: (identifier) @callobj
      attribute: (identifier) @fn
    )
    arguments: (argument_list (binary_operator) @expr)
  )
  (call
    function: (attribute
      object: (identifier) @callobj
      attribute: (identifier) @fn
    )
    arguments: (argument_list (identifier) @var)
  )
  (call
    function: (attribute
      object: (attribute
        object: (identifier) @getobj
        attribute: (identifier) @getattr
      )
      attribute: (identifier) @getfn
    )
    arguments: (argument_list (string) @key)
  )
]
`

var pythonConversions = []conversion{
	{"int(", discovery.TypeInteger},
	{"float(", discovery.TypeInteger},
	{"bool(", discovery.TypeBoolean},
	{"strtobool", discovery.TypeBoolean},
	{"str(", discovery.TypeString},
}

// Python discovers os.environ and os.getenv access in Python sources.
type Python struct {
	*base
}

func NewPython() (*Python, error) {
	b, err := newBase("python", pythonQuery)
	if err != nil {
		return nil, err
	}
	return &Python{base: b}, nil
}

// validReceiver checks which of the three query shapes matched and confirms
// the receiver is really the os module, not a lookalike local.
func (p *Python) validReceiver(m *match) bool {
	if m.node("obj") != nil {
		return m.text("obj") == "os" && m.text("attr") == "environ"
	}
	if m.node("callobj") != nil {
		return m.text("callobj") == "os" && m.text("fn") == "getenv"
	}
	if m.node("getobj") != nil {
		return m.text("getobj") == "os" && m.text("getattr") == "environ" && m.text("getfn") == "get"
	}
	return false
}

func (p *Python) Discover(path string, source []byte) (*discovery.ParseResult, error) {
	c := newCollector(path, source)

	err := p.run(source, func(m *match) {
		if !p.validReceiver(m) {
			return
		}

		if keyNode := m.node("key"); keyNode != nil {
			text := m.text("key")
			if isPythonFString(text) {
				c.addWarning(discovery.WarnComputedKey, keyNode,
					fmt.Sprintf("computed environment variable key: %s", text))
				return
			}
			name := stripPythonQuotes(text)
			if name == "" {
				c.addWarning(discovery.WarnUnknownPattern, keyNode, "empty environment variable key")
				return
			}
			row := int(keyNode.StartPosition().Row)
			typ, conf := inferType(name, c.context(row), pythonConversions)
			c.addUsage(name, keyNode, typ, conf, pythonDefaultValue(keyNode, source))
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

// isPythonFString reports whether a string literal is an f-string with a
// substitution, which makes the key computed.
func isPythonFString(text string) bool {
	lower := strings.ToLower(text)
	return (strings.HasPrefix(lower, `f"`) || strings.HasPrefix(lower, "f'")) &&
		strings.Contains(text, "{")
}

// stripPythonQuotes removes quotes and any string prefix (r, b, u).
func stripPythonQuotes(s string) string {
	trimmed := strings.TrimLeft(s, "rbuRBU")
	return stripQuotes(trimmed)
}

// pythonDefaultValue recovers a default from the getenv/get second argument,
// an `or` fallback, or a conditional expression's else branch.
func pythonDefaultValue(keyNode *sitter.Node, source []byte) string {
	parent := keyNode.Parent()
	if parent == nil {
		return ""
	}

	// os.getenv("KEY", "default") / os.environ.get("KEY", "default")
	if parent.Kind() == "argument_list" {
		if def := secondArgument(parent, source); def != "" {
			return def
		}
	}

	// The access expression is the subscript or the enclosing call.
	access := parent
	if access.Kind() == "argument_list" {
		access = access.Parent()
		if access == nil {
			return ""
		}
	}

	node := access
	up := node.Parent()
	for up != nil && up.Kind() == "parenthesized_expression" {
		node = up
		up = node.Parent()
	}
	if up == nil {
		return ""
	}

	switch up.Kind() {
	case "boolean_operator":
		op := nodeText(up.ChildByFieldName("operator"), source)
		if op == "or" && sameSpan(up.ChildByFieldName("left"), node) {
			return stripPythonQuotes(nodeText(up.ChildByFieldName("right"), source))
		}
	case "conditional_expression":
		// `value if ACCESS else default`: named children are body,
		// condition, alternative in source order.
		if up.NamedChildCount() == 3 && sameSpan(up.NamedChild(1), node) {
			return stripPythonQuotes(nodeText(up.NamedChild(2), source))
		}
	}
	return ""
}
