package matcher

import (
	"fmt"

	sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/envscout/envscout/internal/discovery"
)

// golangQuery matches os.Getenv / os.LookupEnv calls with a string literal,
// a concatenation expression (computed), or an identifier (dynamic).
// Receiver validation happens manually: a local package alias or a variable
// named os would otherwise slip through.
const golangQuery = `
[
  (call_expression
    function: (selector_expression
      operand: (identifier) @obj
      field: (field_identifier) @fn
    )
    arguments: (argument_list (interpreted_string_literal) @key)
  )
  (call_expression
    function: (selector_expression
      operand: (identifier) @obj
      field: (field_identifier) @fn
    )
    arguments: (argument_list (binary_expression) @expr)
  )
  (call_expression
    function: (selector_expression
      operand: (identifier) @obj
      field: (field_identifier) @fn
    )
    arguments: (argument_list (identifier) @var)
  )
]
`

var golangConversions = []conversion{
	{"strconv.Atoi", discovery.TypeInteger},
	{"strconv.ParseInt", discovery.TypeInteger},
	{"strconv.ParseFloat", discovery.TypeInteger},
	{"strconv.ParseBool", discovery.TypeBoolean},
}

// Go discovers os.Getenv and os.LookupEnv access in Go sources.
type Go struct {
	*base
}

func NewGo() (*Go, error) {
	b, err := newBase("go", golangQuery)
	if err != nil {
		return nil, err
	}
	return &Go{base: b}, nil
}

func (g *Go) validReceiver(m *match) bool {
	fn := m.text("fn")
	return m.text("obj") == "os" && (fn == "Getenv" || fn == "LookupEnv")
}

func (g *Go) Discover(path string, source []byte) (*discovery.ParseResult, error) {
	c := newCollector(path, source)

	err := g.run(source, func(m *match) {
		if !g.validReceiver(m) {
			return
		}

		if keyNode := m.node("key"); keyNode != nil {
			name := stripQuotes(m.text("key"))
			if name == "" {
				c.addWarning(discovery.WarnUnknownPattern, keyNode, "empty environment variable key")
				return
			}
			row := int(keyNode.StartPosition().Row)
			typ, conf := inferType(name, c.context(row), golangConversions)
			c.addUsage(name, keyNode, typ, conf, golangDefaultValue(keyNode, source))
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

// golangDefaultValue recognizes the conditional-assignment idiom
//
//	val := os.Getenv("KEY")
//	if val == "" {
//		val = "default"
//	}
//
// by walking from the call up to its declaration, then inspecting the next
// statement in the enclosing block.
func golangDefaultValue(keyNode *sitter.Node, source []byte) string {
	// key -> argument_list -> call_expression
	argList := keyNode.Parent()
	if argList == nil {
		return ""
	}
	call := argList.Parent()
	if call == nil {
		return ""
	}

	decl := call.Parent()
	for decl != nil {
		kind := decl.Kind()
		if kind == "short_var_declaration" || kind == "assignment_statement" {
			break
		}
		if kind == "block" || kind == "function_declaration" || kind == "source_file" {
			return ""
		}
		decl = decl.Parent()
	}
	if decl == nil {
		return ""
	}

	left := decl.ChildByFieldName("left")
	if left == nil || left.NamedChildCount() == 0 {
		return ""
	}
	varName := nodeText(left.NamedChild(0), source)
	if varName == "" {
		return ""
	}

	next := decl.NextNamedSibling()
	if next == nil || next.Kind() != "if_statement" {
		return ""
	}
	cond := next.ChildByFieldName("condition")
	if cond == nil || nodeText(cond, source) != varName+` == ""` {
		return ""
	}

	body := next.ChildByFieldName("consequence")
	if body == nil {
		return ""
	}
	return golangBlockAssignment(body, varName, source)
}

// golangBlockAssignment scans a block for `varName = "x"` and returns the
// assigned value. The grammar wraps a block's statements in a statement_list
// node, so the scan descends through that wrapper.
func golangBlockAssignment(node *sitter.Node, varName string, source []byte) string {
	for i := uint(0); i < node.NamedChildCount(); i++ {
		stmt := node.NamedChild(i)
		if stmt == nil {
			continue
		}
		if stmt.Kind() == "statement_list" {
			if value := golangBlockAssignment(stmt, varName, source); value != "" {
				return value
			}
			continue
		}
		if stmt.Kind() != "assignment_statement" {
			continue
		}
		lhs := stmt.ChildByFieldName("left")
		rhs := stmt.ChildByFieldName("right")
		if lhs != nil && rhs != nil && nodeText(lhs, source) == varName && rhs.NamedChildCount() > 0 {
			return stripQuotes(nodeText(rhs.NamedChild(0), source))
		}
	}
	return ""
}
