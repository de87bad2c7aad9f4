package matcher

import (
	"fmt"
	"strings"

	sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/envscout/envscout/internal/discovery"
)

// rustQuery matches env::var("KEY") and std::env::var("KEY") calls plus
// their dynamic and computed shapes. Receiver validation happens manually.
const rustQuery = `
[
  (call_expression
    function: (scoped_identifier
      path: (identifier) @path
      name: (identifier) @fn
    )
    arguments: (arguments (string_literal) @key)
  )
  (call_expression
    function: (scoped_identifier
      path: (scoped_identifier
        path: (identifier) @path1
        name: (identifier) @path2
      )
      name: (identifier) @fn
    )
    arguments: (arguments (string_literal) @key)
  )
  (call_expression
    function: (scoped_identifier
      path: (identifier) @path
      name: (identifier) @fn
    )
    arguments: (arguments (binary_expression) @expr)
  )
  (call_expression
    function: (scoped_identifier
      path: (scoped_identifier
        path: (identifier) @path1
        name: (identifier) @path2
      )
      name: (identifier) @fn
    )
    arguments: (arguments (binary_expression) @expr)
  )
  (call_expression
    function: (scoped_identifier
      path: (identifier) @path
      name: (identifier) @fn
    )
    arguments: (arguments (identifier) @var)
  )
  (call_expression
    function: (scoped_identifier
      path: (scoped_identifier
        path: (identifier) @path1
        name: (identifier) @path2
      )
      name: (identifier) @fn
    )
    arguments: (arguments (identifier) @var)
  )
]
`

var rustConversions = []conversion{
	{"parse::<i", discovery.TypeInteger},
	{"parse::<u", discovery.TypeInteger},
	{"parse::<f", discovery.TypeInteger},
	{"parse::<bool>", discovery.TypeBoolean},
}

// Rust discovers std::env::var access in Rust sources.
type Rust struct {
	*base
}

func NewRust() (*Rust, error) {
	b, err := newBase("rust", rustQuery)
	if err != nil {
		return nil, err
	}
	return &Rust{base: b}, nil
}

func (r *Rust) validReceiver(m *match) bool {
	fn := m.text("fn")
	if fn != "var" && fn != "var_os" {
		return false
	}
	if m.node("path") != nil {
		return m.text("path") == "env"
	}
	return m.text("path1") == "std" && m.text("path2") == "env"
}

func (r *Rust) Discover(path string, source []byte) (*discovery.ParseResult, error) {
	c := newCollector(path, source)

	err := r.run(source, func(m *match) {
		if !r.validReceiver(m) {
			return
		}

		if keyNode := m.node("key"); keyNode != nil {
			name := stripQuotes(m.text("key"))
			if name == "" {
				c.addWarning(discovery.WarnUnknownPattern, keyNode, "empty environment variable key")
				return
			}
			row := int(keyNode.StartPosition().Row)
			typ, conf := inferType(name, c.context(row), rustConversions)
			c.addUsage(name, keyNode, typ, conf, rustDefaultValue(keyNode, source))
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

// rustDefaultValue recognizes env::var("KEY").unwrap_or("default") style
// fallbacks on the call's method chain.
func rustDefaultValue(keyNode *sitter.Node, source []byte) string {
	args := keyNode.Parent()
	if args == nil {
		return ""
	}
	call := args.Parent()
	if call == nil {
		return ""
	}

	field := call.Parent()
	if field == nil || field.Kind() != "field_expression" {
		return ""
	}
	method := nodeText(field.ChildByFieldName("field"), source)
	if !strings.HasPrefix(method, "unwrap_or") {
		return ""
	}
	chained := field.Parent()
	if chained == nil || chained.Kind() != "call_expression" {
		return ""
	}
	chainedArgs := chained.ChildByFieldName("arguments")
	if chainedArgs == nil || chainedArgs.NamedChildCount() == 0 {
		return ""
	}
	def := nodeText(chainedArgs.NamedChild(0), source)
	// unwrap_or_else takes a closure; only literal fallbacks are reported.
	if strings.HasPrefix(def, "|") {
		return ""
	}
	return stripQuotes(strings.TrimSuffix(strings.TrimPrefix(def, `String::from(`), `)`))
}
