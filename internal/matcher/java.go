package matcher

import (
	"fmt"
	"regexp"

	sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/envscout/envscout/internal/discovery"
)

// javaQuery matches System.getenv("KEY") and the map-style
// System.getenv().get("KEY") / getOrDefault("KEY", ...) chains, plus their
// dynamic and computed shapes. Receiver validation happens manually.
const javaQuery = `
[
  (method_invocation
    object: (identifier) @obj
    name: (identifier) @method
    arguments: (argument_list (string_literal) @key)
  )
  (method_invocation
    object: (method_invocation
      object: (identifier) @obj
      name: (identifier) @inner
    )
    name: (identifier) @outer
    arguments: (argument_list (string_literal) @key)
  )
  (method_invocation
    object: (identifier) @obj
    name: (identifier) @method
    arguments: (argument_list (binary_expression) @expr)
  )
  (method_invocation
    object: (method_invocation
      object: (identifier) @obj
      name: (identifier) @inner
    )
    name: (identifier) @outer
    arguments: (argument_list (binary_expression) @expr)
  )
  (method_invocation
    object: (identifier) @obj
    name: (identifier) @method
    arguments: (argument_list (identifier) @var)
  )
  (method_invocation
    object: (method_invocation
      object: (identifier) @obj
      name: (identifier) @inner
    )
    name: (identifier) @outer
    arguments: (argument_list (identifier) @var)
  )
]
`

var javaConversions = []conversion{
	{"Integer.parseInt", discovery.TypeInteger},
	{"Integer.valueOf", discovery.TypeInteger},
	{"Long.parseLong", discovery.TypeInteger},
	{"Boolean.parseBoolean", discovery.TypeBoolean},
	{"Boolean.valueOf", discovery.TypeBoolean},
}

// Declared static types on the assignment's left-hand side.
var (
	javaIntDecl  = regexp.MustCompile(`\b(?:int|long|short|Integer|Long)\s+\w+\s*=`)
	javaBoolDecl = regexp.MustCompile(`\b(?:boolean|Boolean)\s+\w+\s*=`)
)

// Java discovers System.getenv access in Java sources.
type Java struct {
	*base
}

func NewJava() (*Java, error) {
	b, err := newBase("java", javaQuery)
	if err != nil {
		return nil, err
	}
	return &Java{base: b}, nil
}

func (j *Java) validReceiver(m *match) bool {
	if m.text("obj") != "System" {
		return false
	}
	if m.node("method") != nil {
		return m.text("method") == "getenv"
	}
	if m.node("inner") != nil && m.node("outer") != nil {
		outer := m.text("outer")
		return m.text("inner") == "getenv" && (outer == "get" || outer == "getOrDefault")
	}
	return false
}

func (j *Java) Discover(path string, source []byte) (*discovery.ParseResult, error) {
	c := newCollector(path, source)

	err := j.run(source, func(m *match) {
		if !j.validReceiver(m) {
			return
		}

		if keyNode := m.node("key"); keyNode != nil {
			name := stripQuotes(m.text("key"))
			if name == "" {
				c.addWarning(discovery.WarnUnknownPattern, keyNode, "empty environment variable key")
				return
			}
			row := int(keyNode.StartPosition().Row)
			context := c.context(row)
			typ, conf := javaInferType(name, context)
			def := ""
			if m.text("outer") == "getOrDefault" {
				def = secondArgument(keyNode.Parent(), source)
			}
			if def == "" {
				def = javaTernaryDefault(keyNode, source)
			}
			c.addUsage(name, keyNode, typ, conf, def)
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

// javaInferType adds declared-type detection on top of the shared policy: an
// int or boolean left-hand side is as good as an explicit conversion.
func javaInferType(name, context string) (discovery.ConfigType, discovery.Confidence) {
	typ, conf := inferType(name, context, javaConversions)
	if conf == discovery.ConfidenceHigh {
		return typ, conf
	}
	if javaIntDecl.MatchString(context) {
		return discovery.TypeInteger, discovery.ConfidenceHigh
	}
	if javaBoolDecl.MatchString(context) {
		return discovery.TypeBoolean, discovery.ConfidenceHigh
	}
	return typ, conf
}

// javaTernaryDefault finds `ACCESS != null ? ACCESS : "default"` style
// fallbacks where the matched invocation is the ternary's condition.
func javaTernaryDefault(keyNode *sitter.Node, source []byte) string {
	argList := keyNode.Parent()
	if argList == nil {
		return ""
	}
	access := argList.Parent() // method_invocation
	if access == nil {
		return ""
	}

	node := access
	parent := node.Parent()
	for parent != nil && parent.Kind() == "parenthesized_expression" {
		node = parent
		parent = node.Parent()
	}
	// The condition is usually a null check around the access.
	if parent != nil && parent.Kind() == "binary_expression" {
		node = parent
		parent = node.Parent()
	}
	if parent == nil || parent.Kind() != "ternary_expression" {
		return ""
	}
	if sameSpan(parent.ChildByFieldName("condition"), node) {
		return stripQuotes(nodeText(parent.ChildByFieldName("alternative"), source))
	}
	return ""
}
