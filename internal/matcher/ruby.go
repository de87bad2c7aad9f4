package matcher

import (
	"fmt"
	"strings"

	sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/envscout/envscout/internal/discovery"
)

// rubyQuery matches ENV['KEY'] element references and ENV.fetch calls, plus
// their dynamic (identifier) and computed (concatenation) shapes. A string
// key with interpolation also matches the string alternative and is
// classified after the fact.
const rubyQuery = `
[
  (element_reference
    object: (constant) @obj
    (string) @key
  )
  (element_reference
    object: (constant) @obj
    (binary) @expr
  )
  (element_reference
    object: (constant) @obj
    (identifier) @var
  )
  (call
    receiver: (constant) @obj
    method: (identifier) @meth
    arguments: (argument_list (string) @key)
  )
  (call
    receiver: (constant) @obj
    method: (identifier) @meth
    arguments: (argument_list (binary) @expr)
  )
  (call
    receiver: (constant) @obj
    method: (identifier) @meth
    arguments: (argument_list (identifier) @var)
  )
]
`

var rubyConversions = []conversion{
	{".to_i", discovery.TypeInteger},
	{".to_f", discovery.TypeInteger},
	{"Integer(", discovery.TypeInteger},
	{"Float(", discovery.TypeInteger},
	{".to_s", discovery.TypeString},
}

// Ruby discovers ENV access in Ruby sources.
type Ruby struct {
	*base
}

func NewRuby() (*Ruby, error) {
	b, err := newBase("ruby", rubyQuery)
	if err != nil {
		return nil, err
	}
	return &Ruby{base: b}, nil
}

func (r *Ruby) validReceiver(m *match) bool {
	if m.text("obj") != "ENV" {
		return false
	}
	if methNode := m.node("meth"); methNode != nil {
		meth := m.text("meth")
		return meth == "fetch" || meth == "key?" || meth == "include?"
	}
	return true
}

func (r *Ruby) Discover(path string, source []byte) (*discovery.ParseResult, error) {
	c := newCollector(path, source)

	err := r.run(source, func(m *match) {
		if !r.validReceiver(m) {
			return
		}

		if keyNode := m.node("key"); keyNode != nil {
			text := m.text("key")
			if strings.Contains(text, "#{") {
				// Interpolated key: unresolvable at parse time. The
				// collector dedupes by line, so several interpolation
				// fragments in one string yield a single warning.
				c.addWarning(discovery.WarnDynamicAccess, keyNode,
					fmt.Sprintf("dynamic environment variable access: %s", text))
				return
			}
			name := stripQuotes(text)
			if name == "" {
				c.addWarning(discovery.WarnUnknownPattern, keyNode, "empty environment variable key")
				return
			}
			row := int(keyNode.StartPosition().Row)
			typ, conf := inferType(name, c.context(row), rubyConversions)
			c.addUsage(name, keyNode, typ, conf, rubyDefaultValue(keyNode, source))
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

// rubyDefaultValue recovers a default from ENV.fetch's second argument or an
// `||` fallback on the element reference.
func rubyDefaultValue(keyNode *sitter.Node, source []byte) string {
	parent := keyNode.Parent()
	if parent == nil {
		return ""
	}

	// ENV.fetch('KEY', 'default')
	if parent.Kind() == "argument_list" {
		if def := secondArgument(parent, source); def != "" {
			return def
		}
		access := parent.Parent()
		if access == nil {
			return ""
		}
		return rubyFallback(access, source)
	}

	// ENV['KEY'] || 'default'
	return rubyFallback(parent, source)
}

func rubyFallback(access *sitter.Node, source []byte) string {
	node := access
	parent := node.Parent()
	for parent != nil && parent.Kind() == "parenthesized_statements" {
		node = parent
		parent = node.Parent()
	}
	if parent == nil {
		return ""
	}

	switch parent.Kind() {
	case "binary":
		op := nodeText(parent.ChildByFieldName("operator"), source)
		if op == "||" && sameSpan(parent.ChildByFieldName("left"), node) {
			return stripQuotes(nodeText(parent.ChildByFieldName("right"), source))
		}
	case "conditional":
		if sameSpan(parent.ChildByFieldName("condition"), node) {
			return stripQuotes(nodeText(parent.ChildByFieldName("alternative"), source))
		}
	}
	return ""
}
