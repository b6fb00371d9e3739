package dataflow_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xkilldash9x/scalpel-extaint/internal/ast"
	"github.com/xkilldash9x/scalpel-extaint/internal/dataflow"
	"github.com/xkilldash9x/scalpel-extaint/internal/pdg"
	"github.com/xkilldash9x/scalpel-extaint/internal/scope"
)

func ident(name string) *ast.Node {
	n := ast.New("Identifier", "test.js", [2]int{0, 0}, ast.Loc{})
	n.Name = name
	n.Raw = name
	return n
}

func literal(raw string) *ast.Node {
	n := ast.New("Literal", "test.js", [2]int{0, 0}, ast.Loc{})
	n.Raw = raw
	return n
}

func block(stmts ...*ast.Node) *ast.Node {
	n := ast.New("BlockStatement", "test.js", [2]int{0, 0}, ast.Loc{})
	ast.AttachList(n, "body", stmts)
	return n
}

func exprStmt(expr *ast.Node) *ast.Node {
	n := ast.New("ExpressionStatement", "test.js", [2]int{0, 0}, ast.Loc{})
	ast.Attach(n, "expression", expr)
	return n
}

func assign(left, right *ast.Node) *ast.Node {
	n := ast.New("AssignmentExpression", "test.js", [2]int{0, 0}, ast.Loc{})
	n.Operator = "="
	ast.Attach(n, "left", left)
	ast.Attach(n, "right", right)
	return n
}

func varDecl(kind string, id, init *ast.Node) *ast.Node {
	list := ast.New("VariableDeclaration", "test.js", [2]int{0, 0}, ast.Loc{})
	list.Kind = kind
	decl := ast.New("VariableDeclarator", "test.js", [2]int{0, 0}, ast.Loc{})
	ast.Attach(decl, "id", id)
	ast.Attach(decl, "init", init)
	ast.AttachList(list, "declarations", []*ast.Node{decl})
	return list
}

func returnStmt(arg *ast.Node) *ast.Node {
	n := ast.New("ReturnStatement", "test.js", [2]int{0, 0}, ast.Loc{})
	ast.Attach(n, "argument", arg)
	return n
}

func funcDecl(name string, params []*ast.Node, body *ast.Node) *ast.Node {
	n := ast.New("FunctionDeclaration", "test.js", [2]int{0, 0}, ast.Loc{})
	ast.Attach(n, "id", ident(name))
	ast.AttachList(n, "params", params)
	ast.Attach(n, "body", body)
	return n
}

func arrowFunc(params []*ast.Node, body *ast.Node) *ast.Node {
	n := ast.New("ArrowFunctionExpression", "test.js", [2]int{0, 0}, ast.Loc{})
	ast.AttachList(n, "params", params)
	ast.Attach(n, "body", body)
	return n
}

func callExpr(callee *ast.Node, args ...*ast.Node) *ast.Node {
	n := ast.New("CallExpression", "test.js", [2]int{0, 0}, ast.Loc{})
	ast.Attach(n, "callee", callee)
	ast.AttachList(n, "arguments", args)
	return n
}

func program(stmts ...*ast.Node) *ast.Node {
	n := ast.New("Program", "test.js", [2]int{0, 0}, ast.Loc{})
	ast.AttachList(n, "body", stmts)
	ast.SetParents(n)
	ast.AssignIDs(n, 1)
	return n
}

func build(t *testing.T, root *ast.Node) (*pdg.Graph, *scope.File) {
	t.Helper()
	sf, err := scope.NewResolver().Resolve("test.js", root)
	require.NoError(t, err)
	g, err := pdg.Build("test.js", root, sf, 0)
	require.NoError(t, err)
	return g, sf
}

// function f() { var y = 1; return y; }
//
// ParentsOf the return's `y` must find the declarator's `y` as its sole
// reaching definition.
func TestParentsOf_FindsDeclaratorAcrossStatements(t *testing.T) {
	yDecl := ident("y")
	decl := varDecl("var", yDecl, literal("1"))
	use := ident("y")
	ret := returnStmt(use)
	fn := funcDecl("f", nil, block(decl, ret))
	root := program(fn)

	g, sf := build(t, root)
	eng := dataflow.New(g, sf, 0)

	defs, truncated := eng.ParentsOf(use)
	require.False(t, truncated)
	require.Len(t, defs, 1)
	assert.Same(t, yDecl, defs[0])
}

// function f(x) { if (x) { y = 1; } else { y = 2; } return y; }
//
// ParentsOf the return's `y` must find both branch assignments, since
// either one can be the last write on the path taken.
func TestParentsOf_FindsBothBranchesOfADiamond(t *testing.T) {
	yWrite1 := ident("y")
	yWrite2 := ident("y")
	cond := ast.New("IfStatement", "test.js", [2]int{0, 0}, ast.Loc{})
	ast.Attach(cond, "test", ident("x"))
	ast.Attach(cond, "consequent", block(exprStmt(assign(yWrite1, literal("1")))))
	ast.Attach(cond, "alternate", block(exprStmt(assign(yWrite2, literal("2")))))
	use := ident("y")
	ret := returnStmt(use)
	fn := funcDecl("f", []*ast.Node{ident("x")}, block(cond, ret))
	root := program(fn)

	g, sf := build(t, root)
	eng := dataflow.New(g, sf, 0)

	defs, truncated := eng.ParentsOf(use)
	require.False(t, truncated)
	assert.ElementsMatch(t, []*ast.Node{yWrite1, yWrite2}, defs)
}

// function f(x) { return x; }
//
// A parameter binding has no assignment occurrence to find; ParentsOf
// must fall back to reporting the parameter's own declaring node.
func TestParentsOf_FallsBackToParameterDeclaration(t *testing.T) {
	param := ident("x")
	use := ident("x")
	ret := returnStmt(use)
	fn := funcDecl("f", []*ast.Node{param}, block(ret))
	root := program(fn)

	g, sf := build(t, root)
	eng := dataflow.New(g, sf, 0)

	defs, truncated := eng.ParentsOf(use)
	require.False(t, truncated)
	require.Len(t, defs, 1)
	assert.Same(t, param, defs[0])
}

// function f() { var y = 1; y; return; }
//
// ChildrenOf the declarator's `y` must find the standalone-expression
// read of `y`, since it is the nearest reachable use on that path.
func TestChildrenOf_FindsNearestForwardUse(t *testing.T) {
	yDecl := ident("y")
	decl := varDecl("var", yDecl, literal("1"))
	use := ident("y")
	fn := funcDecl("f", nil, block(decl, exprStmt(use), returnStmt(nil)))
	root := program(fn)

	g, sf := build(t, root)
	eng := dataflow.New(g, sf, 0)

	uses, truncated := eng.ChildrenOf(yDecl)
	require.False(t, truncated)
	require.Len(t, uses, 1)
	assert.Same(t, use, uses[0])
}

// function outer(t) { install((e) => { use(t); }); }
//
// The use of `t` inside the inline arrow callback closes over outer's
// own parameter. ParentsOf must walk out of the callback's flow region
// and find that parameter, matching a listener callback closing over an
// outer-scope variable.
func TestParentsOf_ClosesOverOuterParameterFromNestedCallback(t *testing.T) {
	param := ident("t")
	use := ident("t")
	callback := arrowFunc([]*ast.Node{ident("e")}, block(exprStmt(callExpr(ident("use"), use))))
	install := exprStmt(callExpr(ident("install"), callback))
	fn := funcDecl("outer", []*ast.Node{param}, block(install))
	root := program(fn)

	g, sf := build(t, root)
	eng := dataflow.New(g, sf, 0)

	defs, truncated := eng.ParentsOf(use)
	require.False(t, truncated)
	require.Len(t, defs, 1)
	assert.Same(t, param, defs[0])
}

// Two independent queries for the same occurrence must be memoized: the
// second call returns the cached slice without recomputing (signaled by
// the second bool return being false either way), so both calls must
// return equal slices.
func TestParentsOf_MemoizesRepeatedQueries(t *testing.T) {
	yDecl := ident("y")
	decl := varDecl("var", yDecl, literal("1"))
	use := ident("y")
	ret := returnStmt(use)
	fn := funcDecl("f", nil, block(decl, ret))
	root := program(fn)

	g, sf := build(t, root)
	eng := dataflow.New(g, sf, 0)

	first, _ := eng.ParentsOf(use)
	second, _ := eng.ParentsOf(use)
	assert.Equal(t, first, second)
}

// A definition buried behind more predecessor hops than MaxDepth allows
// must surface as a truncated result rather than silently returning an
// incomplete answer.
func TestParentsOf_ReportsTruncationAtMaxDepth(t *testing.T) {
	yDecl := ident("y")
	decl := varDecl("var", yDecl, literal("1"))
	filler1 := exprStmt(ident("noop1"))
	filler2 := exprStmt(ident("noop2"))
	use := ident("y")
	ret := returnStmt(use)
	fn := funcDecl("f", nil, block(decl, filler1, filler2, ret))
	root := program(fn)

	g, sf := build(t, root)
	eng := dataflow.New(g, sf, 1)

	_, truncated := eng.ParentsOf(use)
	assert.True(t, truncated)
}
