package parser

import (
	"context"
	"fmt"
	"os"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/javascript"

	"github.com/xkilldash9x/scalpel-extaint/internal/ast"
)

// TreeSitterSource parses JavaScript directly in-process with
// go-tree-sitter, then lowers the resulting parse tree into ast.Node. It
// is the default Source: it skips the JSON round trip of the external
// converter contract while producing the same node shape.
type TreeSitterSource struct{}

// NewTreeSitterSource constructs the default in-process parser source.
func NewTreeSitterSource() *TreeSitterSource { return &TreeSitterSource{} }

func (s *TreeSitterSource) Parse(ctx context.Context, sourcePath string, sourceType SourceType) (*ast.Node, error) {
	src, err := os.ReadFile(sourcePath)
	if err != nil {
		return nil, fmt.Errorf("parser: reading %s: %w", sourcePath, err)
	}

	p := sitter.NewParser()
	p.SetLanguage(javascript.GetLanguage())
	tree, err := p.ParseCtx(ctx, nil, src)
	if err != nil {
		return nil, fmt.Errorf("parser: tree-sitter failed on %s: %w", sourcePath, err)
	}
	root := tree.RootNode()
	if root == nil {
		return nil, fmt.Errorf("parser: tree-sitter produced no root node for %s", sourcePath)
	}

	lw := &tsLowerer{file: sourcePath, src: src}
	out := lw.lower(root)
	if out == nil {
		return nil, fmt.Errorf("parser: %s lowered to an empty AST", sourcePath)
	}
	ast.SetParents(out)
	ast.AssignIDs(out, 1)
	lw.attachComments(out)
	out.SourceLines = ast.SplitSourceLines(src)
	return out, nil
}

// tsLowerer maps tree-sitter's javascript grammar node kinds (snake_case)
// onto the ESTree-shaped Type strings the rest of the analyzer expects, so
// that downstream code never needs to know which parser.Source produced
// the tree it's looking at.
type tsLowerer struct {
	file     string
	src      []byte
	comments []*sitter.Node
}

// tsTypeMap covers the ECMAScript node kinds spec.md §3 names explicitly.
// Grammar node kinds with no entry here are lowered verbatim (their
// tree-sitter type string becomes the ast.Node Type), which keeps ingest
// total for constructs outside that list rather than silently dropping
// them.
var tsTypeMap = map[string]string{
	"program":                "Program",
	"function_declaration":   "FunctionDeclaration",
	"function":               "FunctionExpression",
	"function_expression":    "FunctionExpression",
	"generator_function":     "FunctionExpression",
	"arrow_function":         "ArrowFunctionExpression",
	"statement_block":        "BlockStatement",
	"variable_declaration":   "VariableDeclaration",
	"lexical_declaration":    "VariableDeclaration",
	"variable_declarator":    "VariableDeclarator",
	"identifier":             "Identifier",
	"property_identifier":    "Identifier",
	"shorthand_property_identifier": "Identifier",
	"shorthand_property_identifier_pattern": "Identifier",
	"this":                   "ThisExpression",
	"number":                 "Literal",
	"string":                 "Literal",
	"true":                   "Literal",
	"false":                  "Literal",
	"null":                   "Literal",
	"undefined":              "Identifier",
	"regex":                  "Literal",
	"template_string":        "Literal",
	"member_expression":      "MemberExpression",
	"subscript_expression":   "MemberExpression",
	"call_expression":        "CallExpression",
	"new_expression":         "NewExpression",
	"assignment_expression":  "AssignmentExpression",
	"augmented_assignment_expression": "AssignmentExpression",
	"binary_expression":      "BinaryExpression",
	"unary_expression":       "UnaryExpression",
	"update_expression":      "UpdateExpression",
	"ternary_expression":     "ConditionalExpression",
	"sequence_expression":    "SequenceExpression",
	"parenthesized_expression": "ParenthesizedExpression",
	"for_statement":          "ForStatement",
	"for_in_statement":       "ForInStatement",
	"if_statement":           "IfStatement",
	"else_clause":            "ElseClause",
	"return_statement":       "ReturnStatement",
	"expression_statement":   "ExpressionStatement",
	"object":                 "ObjectExpression",
	"pair":                   "Property",
	"shorthand_property":     "Property",
	"array":                  "ArrayExpression",
	"array_pattern":          "ArrayPattern",
	"object_pattern":         "ObjectPattern",
	"rest_pattern":           "RestElement",
	"spread_element":         "SpreadElement",
	"assignment_pattern":     "AssignmentPattern",
	"arguments":              "Arguments",
	"formal_parameters":      "Params",
	"catch_clause":           "CatchClause",
	"try_statement":          "TryStatement",
	"finally_clause":         "FinallyClause",
	"throw_statement":        "ThrowStatement",
	"while_statement":        "WhileStatement",
	"do_statement":           "DoWhileStatement",
	"break_statement":        "BreakStatement",
	"continue_statement":     "ContinueStatement",
	"labeled_statement":      "LabeledStatement",
	"empty_statement":        "EmptyStatement",
	"class_declaration":      "ClassDeclaration",
	"class":                  "ClassExpression",
	"class_body":             "ClassBody",
	"method_definition":      "MethodDefinition",
	"field_definition":       "PropertyDefinition",
	"public_field_definition": "PropertyDefinition",
	"import_statement":       "ImportDeclaration",
	"export_statement":       "ExportDeclaration",
}

// tsFieldMap translates tree-sitter-javascript's grammar field names to
// the ESTree field names the rest of the analyzer (scope, pdg) expects,
// so both parser.Source implementations expose identical field shapes.
var tsFieldMap = map[string]string{
	"condition":   "test",
	"consequence": "consequent",
	"alternative": "alternate",
	"initializer": "init",
	"increment":   "update",
	"name":        "id",
	"function":    "callee",
	"parameter":   "param",
}

func (l *tsLowerer) lower(n *sitter.Node) *ast.Node {
	if n == nil {
		return nil
	}
	if n.Type() == "comment" {
		l.comments = append(l.comments, n)
		return nil
	}

	typ, ok := tsTypeMap[n.Type()]
	if !ok {
		typ = n.Type()
	}

	r := [2]int{int(n.StartByte()), int(n.EndByte())}
	loc := ast.Loc{
		Start: ast.Position{Line: int(n.StartPoint().Row) + 1, Column: int(n.StartPoint().Column)},
		End:   ast.Position{Line: int(n.EndPoint().Row) + 1, Column: int(n.EndPoint().Column)},
	}
	out := ast.New(typ, l.file, r, loc)

	switch typ {
	case "Identifier":
		out.Name = n.Content(l.src)
		out.Raw = out.Name
	case "Literal":
		out.Raw = n.Content(l.src)
		out.Value = out.Raw
	case "BinaryExpression", "LogicalExpression", "AssignmentExpression", "UnaryExpression", "UpdateExpression":
		if op := n.ChildByFieldName("operator"); op != nil {
			out.Operator = op.Content(l.src)
		}
		if typ == "UpdateExpression" {
			out.Prefix = n.ChildCount() > 0 && n.Child(0).Content(l.src) != "" && n.Child(0).Type() != "identifier"
		}
	case "VariableDeclaration":
		if n.ChildCount() > 0 {
			out.Kind = n.Child(0).Content(l.src)
		}
	}

	// Binary/logical operators share tree-sitter's "binary_expression" node
	// kind; reclassify to LogicalExpression for &&, ||, ?? so the detector's
	// control-dependence walk can tell short-circuit joins from arithmetic.
	if typ == "BinaryExpression" {
		switch out.Operator {
		case "&&", "||", "??":
			out.Type = "LogicalExpression"
		}
	}

	listCounts := map[string]int{}
	attach := func(lowered *ast.Node, field string) {
		if lowered == nil {
			return
		}
		if isListField(field) {
			idx := listCounts[field]
			listCounts[field]++
			lowered.FieldName = field
			lowered.Index = idx
			lowered.Parent = out
			out.Kids = append(out.Kids, lowered)
		} else {
			ast.Attach(out, field, lowered)
		}
	}

	childCount := int(n.ChildCount())
	for i := 0; i < childCount; i++ {
		child := n.Child(i)
		if child == nil || !child.IsNamed() {
			continue
		}
		// formal_parameters/arguments are grammar containers with no
		// ESTree equivalent node of their own: their named children attach
		// directly onto the enclosing function/call as list fields.
		if child.Type() == "formal_parameters" || child.Type() == "arguments" {
			field := "params"
			if child.Type() == "arguments" {
				field = "arguments"
			}
			grandCount := int(child.ChildCount())
			for j := 0; j < grandCount; j++ {
				gc := child.Child(j)
				if gc == nil || !gc.IsNamed() {
					continue
				}
				attach(l.lower(gc), field)
			}
			continue
		}

		lowered := l.lower(child)
		if lowered == nil {
			continue
		}
		field := n.FieldNameForChild(i)
		if field == "" {
			field = defaultFieldName(n.Type(), i)
		} else if mapped, ok := tsFieldMap[field]; ok {
			field = mapped
		}
		attach(lowered, field)
	}

	return out
}

// isListField reports whether a grammar/field pair holds a homogeneous
// sequence (statements, declarators, properties, elements, arguments,
// params) rather than a single child.
func isListField(field string) bool {
	switch field {
	case "body", "declarations", "properties", "elements", "arguments", "params", "cases":
		return true
	}
	return false
}

// defaultFieldName supplies a field name for anonymous/unnamed-field
// children (tree-sitter's FieldNameForChild returns "" for nodes that
// aren't bound to a grammar field, e.g. bare statement-list members).
func defaultFieldName(grammarType string, idx int) string {
	switch grammarType {
	case "program", "statement_block", "class_body":
		return "body"
	case "arguments":
		return "arguments"
	case "formal_parameters":
		return "params"
	case "array", "array_pattern":
		return "elements"
	case "object", "object_pattern":
		return "properties"
	case "variable_declaration", "lexical_declaration":
		return "declarations"
	case "sequence_expression":
		return "expressions"
	default:
		return "body"
	}
}

// attachComments assigns every collected comment as a leading comment of
// the first statement (in pre-order) that starts after it, or, when no
// statement follows, as a trailing comment of the statement ending
// closest before it; a statement that encloses the comment is never
// chosen. The comment is kept out of the expression tree proper.
func (l *tsLowerer) attachComments(root *ast.Node) {
	if len(l.comments) == 0 {
		return
	}
	var statements []*ast.Node
	ast.Walk(root, func(n *ast.Node) {
		if isStatementType(n.Type) {
			statements = append(statements, n)
		}
	})
	for _, c := range l.comments {
		text := c.Content(l.src)
		start := int(c.StartByte())
		comment := ast.Comment{
			Text:  text,
			Range: [2]int{start, int(c.EndByte())},
			Loc: ast.Loc{
				Start: ast.Position{Line: int(c.StartPoint().Row) + 1, Column: int(c.StartPoint().Column)},
				End:   ast.Position{Line: int(c.EndPoint().Row) + 1, Column: int(c.EndPoint().Column)},
			},
		}
		var nearest *ast.Node
		var trailing bool
		for _, s := range statements {
			if s.Range[1] <= start {
				if nearest == nil || s.Range[1] > nearest.Range[1] {
					nearest = s
					trailing = true
				}
			} else if s.Range[0] >= comment.Range[1] {
				if nearest == nil || (trailing) || s.Range[0] < nearest.Range[0] {
					nearest = s
					trailing = false
				}
				break
			}
		}
		if nearest == nil {
			continue
		}
		if trailing {
			nearest.TrailingComments = append(nearest.TrailingComments, comment)
		} else {
			nearest.LeadingComments = append(nearest.LeadingComments, comment)
		}
	}
}

func isStatementType(typ string) bool {
	switch typ {
	case "ExpressionStatement", "VariableDeclaration", "IfStatement", "ForStatement",
		"ForInStatement", "WhileStatement", "DoWhileStatement", "ReturnStatement",
		"BlockStatement", "FunctionDeclaration", "ClassDeclaration", "ThrowStatement",
		"TryStatement", "BreakStatement", "ContinueStatement", "LabeledStatement",
		"EmptyStatement":
		return true
	}
	return false
}
