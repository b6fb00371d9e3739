package pdg_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xkilldash9x/scalpel-extaint/internal/ast"
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

func ifStmt(test, cons, alt *ast.Node) *ast.Node {
	n := ast.New("IfStatement", "test.js", [2]int{0, 0}, ast.Loc{})
	ast.Attach(n, "test", test)
	ast.Attach(n, "consequent", cons)
	if alt != nil {
		ast.Attach(n, "alternate", alt)
	}
	return n
}

func returnStmt(arg *ast.Node) *ast.Node {
	n := ast.New("ReturnStatement", "test.js", [2]int{0, 0}, ast.Loc{})
	ast.Attach(n, "argument", arg)
	return n
}

func callExpr(callee *ast.Node, args ...*ast.Node) *ast.Node {
	n := ast.New("CallExpression", "test.js", [2]int{0, 0}, ast.Loc{})
	ast.Attach(n, "callee", callee)
	ast.AttachList(n, "arguments", args)
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

func member(object *ast.Node, property string) *ast.Node {
	n := ast.New("MemberExpression", "test.js", [2]int{0, 0}, ast.Loc{})
	ast.Attach(n, "object", object)
	prop := ident(property)
	ast.Attach(n, "property", prop)
	return n
}

func program(stmts ...*ast.Node) *ast.Node {
	n := ast.New("Program", "test.js", [2]int{0, 0}, ast.Loc{})
	ast.AttachList(n, "body", stmts)
	ast.SetParents(n)
	ast.AssignIDs(n, 1)
	return n
}

func resolve(t *testing.T, root *ast.Node) *scope.File {
	t.Helper()
	sf, err := scope.NewResolver().Resolve("test.js", root)
	require.NoError(t, err)
	return sf
}

// function f(x) { if (x) { y = 1; } else { y = 2; } return y; }
//
// Both branches of the if must merge back into the return statement, and
// each assignment must be control-dependent on the IfStatement.
func TestBuild_IfBranchesMergeAtJoinPoint(t *testing.T) {
	xParam := ident("x")
	yAssign1 := exprStmt(assign(ident("y"), literal("1")))
	yAssign2 := exprStmt(assign(ident("y"), literal("2")))
	cond := ifStmt(ident("x"), block(yAssign1), block(yAssign2))
	ret := returnStmt(ident("y"))
	fn := funcDecl("f", []*ast.Node{xParam}, block(cond, ret))
	root := program(fn)

	sf := resolve(t, root)
	g, err := pdg.Build("test.js", root, sf, 0)
	require.NoError(t, err)

	condStmt, ok := g.Stmts[cond.ID]
	require.True(t, ok)
	assert.ElementsMatch(t, []int{yAssign1.ID, yAssign2.ID}, condStmt.Succs)

	retStmt, ok := g.Stmts[ret.ID]
	require.True(t, ok)
	assert.ElementsMatch(t, []int{yAssign1.ID, yAssign2.ID}, retStmt.Preds)

	branch1, ok := g.Stmts[yAssign1.ID]
	require.True(t, ok)
	assert.Contains(t, branch1.ControlDeps, cond.ID)

	branch2, ok := g.Stmts[yAssign2.ID]
	require.True(t, ok)
	assert.Contains(t, branch2.ControlDeps, cond.ID)

	assert.False(t, g.Truncated)
}

// A loop's body must feed back into the loop header as one of its own
// predecessors, so the header is reachable both from above and from the
// bottom of its own body.
func TestBuild_LoopBodyFeedsBackToHeader(t *testing.T) {
	body := exprStmt(assign(ident("i"), ident("i")))
	loop := ast.New("WhileStatement", "test.js", [2]int{0, 0}, ast.Loc{})
	ast.Attach(loop, "test", ident("i"))
	ast.Attach(loop, "body", block(body))
	fn := funcDecl("loop", nil, block(loop))
	root := program(fn)

	sf := resolve(t, root)
	g, err := pdg.Build("test.js", root, sf, 0)
	require.NoError(t, err)

	header, ok := g.Stmts[loop.ID]
	require.True(t, ok)
	assert.Contains(t, header.Preds, body.ID)

	bodyStmt, ok := g.Stmts[body.ID]
	require.True(t, ok)
	assert.Contains(t, bodyStmt.ControlDeps, loop.ID)
}

// A GraphLimit smaller than the file's statement count must mark the
// graph Truncated without failing the build outright — the "truncate,
// don't abort" recovery spec.md's error taxonomy requires for oversized
// files.
func TestBuild_ExceedingGraphLimitTruncates(t *testing.T) {
	fn := funcDecl("many", nil, block(
		exprStmt(ident("a")),
		exprStmt(ident("b")),
		exprStmt(ident("c")),
	))
	root := program(fn)
	sf := resolve(t, root)

	g, err := pdg.Build("test.js", root, sf, 2)
	require.NoError(t, err)
	assert.True(t, g.Truncated)
}

// CallEdges must resolve a direct call to a sibling named function
// declaration, letting a cross-procedural query later hop from the call
// site into the callee's own body.
func TestBuild_CallEdgesResolveNamedCallee(t *testing.T) {
	target := funcDecl("target", nil, block(returnStmt(literal("1"))))
	call := callExpr(ident("target"))
	caller := funcDecl("caller", nil, block(exprStmt(call)))
	root := program(target, caller)

	sf := resolve(t, root)
	g, err := pdg.Build("test.js", root, sf, 0)
	require.NoError(t, err)

	targets := g.CallEdges[call.ID]
	require.Len(t, targets, 1)
	assert.Same(t, target, targets[0])
}

// chrome.runtime.onMessage.addListener((m) => { sendResponse(m); });
//
// The arrow function passed as a call argument is never itself a
// statement, but its body must still become its own flow region: the
// listener callback is the actual detection surface, and before the
// nested-function fix every statement inside it was invisible to the
// graph.
func TestBuild_ArrowCallbackArgumentGetsOwnFlowRegion(t *testing.T) {
	param := ident("m")
	send := exprStmt(callExpr(ident("sendResponse"), ident("m")))
	callback := arrowFunc([]*ast.Node{param}, block(send))
	addListener := member(member(member(ident("chrome"), "runtime"), "onMessage"), "addListener")
	root := program(exprStmt(callExpr(addListener, callback)))

	sf := resolve(t, root)
	g, err := pdg.Build("test.js", root, sf, 0)
	require.NoError(t, err)

	_, ok := g.Stmts[send.ID]
	require.True(t, ok, "statement inside the arrow callback body must have its own Stmt entry")
	assert.False(t, g.Truncated)
}

// A callback nested two levels deep - an IIFE whose body itself installs
// a listener with an inline arrow callback - must still have both
// function bodies built: buildNestedFunctions must not stop after the
// first nested function it finds.
func TestBuild_DoublyNestedCallbacksBothGetFlowRegions(t *testing.T) {
	innerParam := ident("e")
	innerStmt := exprStmt(callExpr(ident("use"), ident("e")))
	inner := arrowFunc([]*ast.Node{innerParam}, block(innerStmt))
	installCall := exprStmt(callExpr(ident("addEventListener"), inner))
	outer := ast.New("FunctionExpression", "test.js", [2]int{0, 0}, ast.Loc{})
	ast.Attach(outer, "body", block(installCall))
	iife := exprStmt(callExpr(outer))
	root := program(iife)

	sf := resolve(t, root)
	g, err := pdg.Build("test.js", root, sf, 0)
	require.NoError(t, err)

	_, ok := g.Stmts[installCall.ID]
	require.True(t, ok, "IIFE body statement must be built")
	_, ok = g.Stmts[innerStmt.ID]
	require.True(t, ok, "arrow callback nested inside the IIFE body must also be built")
}

// A bare (unbraced) if-branch that itself contains a call with an inline
// callback argument must not have that callback built twice - once from
// the enclosing statement's scan and once from the branch's own
// linkBranch-triggered addStmt.
func TestBuild_CallbackInsideBareIfBranchBuildsOnce(t *testing.T) {
	cbStmt := exprStmt(callExpr(ident("use"), ident("x")))
	cb := arrowFunc(nil, block(cbStmt))
	bareBranch := exprStmt(callExpr(ident("install"), cb))
	cond := ifStmt(ident("x"), bareBranch, nil)
	fn := funcDecl("f", []*ast.Node{ident("x")}, block(cond))
	root := program(fn)

	sf := resolve(t, root)
	g, err := pdg.Build("test.js", root, sf, 0)
	require.NoError(t, err)

	count := 0
	for _, s := range g.Order {
		if s.ID == cbStmt.ID {
			count++
		}
	}
	assert.Equal(t, 1, count, "callback body statement must be built exactly once")
}

// StmtOf must resolve both a statement's own id and any Identifier
// occurrence nested inside it to the same containing Stmt.
func TestStmtOf_ResolvesOccurrenceToContainingStatement(t *testing.T) {
	use := ident("y")
	ret := returnStmt(use)
	fn := funcDecl("f", nil, block(ret))
	root := program(fn)

	sf := resolve(t, root)
	g, err := pdg.Build("test.js", root, sf, 0)
	require.NoError(t, err)

	byStmt, ok := g.StmtOf(ret.ID)
	require.True(t, ok)
	byOcc, ok := g.StmtOf(use.ID)
	require.True(t, ok)
	assert.Same(t, byStmt, byOcc)
}
