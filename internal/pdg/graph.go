// Package pdg builds the Program Dependence Graph a file's control flow
// forms once, ahead of any query: control-flow edges between statements,
// control-dependence edges from a statement back to the conditions that
// guard it, and cross-procedural call/callback edges. Data-dependence
// itself is not stored here — it is computed lazily by internal/dataflow
// by walking the control-flow edges this package builds, per spec.md's
// "AST and scopes are built once per file; data-dependence answers are
// memoized per query, not precomputed" lifecycle.
package pdg

import (
	"fmt"

	"github.com/xkilldash9x/scalpel-extaint/internal/ast"
	"github.com/xkilldash9x/scalpel-extaint/internal/scope"
)

// Stmt is one control-flow node: a statement (or a function's own node,
// standing for its entry point) plus its predecessors/successors and the
// chain of conditions it is control-dependent on.
type Stmt struct {
	ID          int
	Node        *ast.Node
	Func        *ast.Node // enclosing function, or the Program root at top level
	Preds       []int
	Succs       []int
	ControlDeps []int
}

// Graph is one file's Program Dependence Graph, minus data-dependence
// edges (computed lazily, see package doc).
type Graph struct {
	File  string
	Root  *ast.Node
	Scope *scope.File

	Stmts   map[int]*Stmt
	Order   []*Stmt
	OccStmt map[int]int // Identifier node id -> containing Stmt id

	// CallEdges maps a CallExpression/NewExpression node id to every
	// function node the builder could resolve as a target: a directly
	// named callee (`f()` where f is a function binding) or an inline
	// / identifier-passed callback argument, covering both the ordinary
	// call-edge and the callback-edge case spec.md §4.2 asks for.
	CallEdges map[int][]*ast.Node

	// GraphLimit is the configured node budget (analyzer.max_pdg_nodes);
	// Truncated is set once the number of Stmts built exceeds it. Only
	// the Stmt count is checked, and construction does not stop there:
	// every statement is still built and the graph stays usable, with
	// Truncated marking that the budget was exceeded.
	GraphLimit int
	Truncated  bool
}

// GraphLimitError reports that a file's PDG hit its node budget.
type GraphLimitError struct {
	File  string
	Limit int
}

func (e *GraphLimitError) Error() string {
	return fmt.Sprintf("pdg: %s exceeded max_pdg_nodes (%d)", e.File, e.Limit)
}

// Build constructs the PDG for a resolved file. limit <= 0 means
// unlimited.
func Build(file string, root *ast.Node, sf *scope.File, limit int) (*Graph, error) {
	g := &Graph{
		File:       file,
		Root:       root,
		Scope:      sf,
		Stmts:      map[int]*Stmt{},
		OccStmt:    map[int]int{},
		CallEdges:  map[int][]*ast.Node{},
		GraphLimit: limit,
	}
	b := &builder{g: g}
	b.buildFunction(root, nil)
	return g, nil
}

type builder struct {
	g *Graph
}

func (b *builder) addStmt(n *ast.Node, fn *ast.Node, preds []int, controlDeps []int) *Stmt {
	s := &Stmt{ID: n.ID, Node: n, Func: fn, ControlDeps: append([]int(nil), controlDeps...)}
	b.g.Stmts[n.ID] = s
	b.g.Order = append(b.g.Order, s)
	for _, p := range preds {
		if pred, ok := b.g.Stmts[p]; ok {
			pred.Succs = append(pred.Succs, n.ID)
			s.Preds = append(s.Preds, p)
		}
	}
	if b.g.GraphLimit > 0 && len(b.g.Order) > b.g.GraphLimit {
		b.g.Truncated = true
	}
	b.registerOccurrences(n, s)
	b.registerCallEdges(n)
	b.buildNestedFunctions(n)
	return s
}

// registerOccurrences maps every Identifier under n (excluding those that
// belong to a nested boundary node - a function's own body, or a nested
// control structure that is linked, and so scanned, on its own - which
// get their own Stmt when that boundary is built) to s, so dataflow can
// find "which statement contains this occurrence" in O(1).
func (b *builder) registerOccurrences(n *ast.Node, s *Stmt) {
	var walk func(*ast.Node)
	walk = func(cur *ast.Node) {
		if cur == nil {
			return
		}
		if cur != n && isBoundaryNode(cur) {
			return
		}
		if cur.IsIdentifier() {
			b.g.OccStmt[cur.ID] = s.ID
		}
		for _, k := range cur.Kids {
			walk(k)
		}
	}
	walk(n)
}

// registerCallEdges records, for every CallExpression/NewExpression
// under n's own statement text (not descending into a nested boundary),
// every function node it can resolve as a target.
func (b *builder) registerCallEdges(n *ast.Node) {
	var walk func(*ast.Node)
	walk = func(cur *ast.Node) {
		if cur == nil {
			return
		}
		if cur != n && isBoundaryNode(cur) {
			return
		}
		if cur.Type == "CallExpression" || cur.Type == "NewExpression" {
			var targets []*ast.Node
			callee := cur.Field("callee")
			if callee != nil && callee.IsIdentifier() {
				if bnd, ok := b.g.Scope.Resolved(callee.ID); ok {
					if fnNode := functionNodeOf(bnd); fnNode != nil {
						targets = append(targets, fnNode)
					}
				}
			}
			for _, arg := range cur.FieldList("arguments") {
				switch arg.Type {
				case "FunctionExpression", "ArrowFunctionExpression":
					targets = append(targets, arg)
				case "Identifier":
					if bnd, ok := b.g.Scope.Resolved(arg.ID); ok {
						if fnNode := functionNodeOf(bnd); fnNode != nil {
							targets = append(targets, fnNode)
						}
					}
				}
			}
			if len(targets) > 0 {
				b.g.CallEdges[cur.ID] = append(b.g.CallEdges[cur.ID], targets...)
			}
		}
		for _, k := range cur.Kids {
			walk(k)
		}
	}
	walk(n)
}

// buildNestedFunctions finds every FunctionExpression/ArrowFunctionExpression
// reachable from n without crossing a boundary - the same rule
// registerOccurrences/registerCallEdges use - and builds each as its own
// flow region. A callback passed inline to addListener/addEventListener,
// an IIFE's callee, or a function literal buried in an object literal all
// reach here the same way: they are never their own Stmt (only statements
// are), but they own a body that needs one.
//
// Because the walk stops at the first nested boundary it meets, and every
// statement in the file is visited by addStmt exactly once, each function
// literal is discovered - and so built - exactly once, however deeply it
// is nested inside expressions.
func (b *builder) buildNestedFunctions(n *ast.Node) {
	var walk func(*ast.Node)
	walk = func(cur *ast.Node) {
		if cur == nil {
			return
		}
		if cur != n {
			switch cur.Type {
			case "FunctionExpression", "ArrowFunctionExpression":
				b.buildFunction(cur, cur)
				return
			}
			if isBoundaryNode(cur) {
				return
			}
		}
		for _, k := range cur.Kids {
			walk(k)
		}
	}
	walk(n)
}

func functionNodeOf(b *scope.Binding) *ast.Node {
	if b == nil || b.Node == nil || b.Node.Parent == nil {
		return nil
	}
	switch b.Node.Parent.Type {
	case "FunctionDeclaration", "FunctionExpression", "ArrowFunctionExpression":
		if b.Node.Parent.Field("id") == b.Node {
			return b.Node.Parent
		}
	}
	return nil
}

// isBoundaryNode reports whether n is a node whose subtree is scanned by
// its own call into addStmt rather than by the statement currently being
// registered: a function's body (built as its own flow region, whichever
// of the three function node types introduces it), a block, or a bare
// (unbraced) statement occupying a control statement's branch field -
// `if (x) foo();` links `foo();` on its own exactly as `if (x) { foo(); }`
// links the block's contents on its own, even though the bare form's Type
// isn't one of the compound statement kinds.
func isBoundaryNode(n *ast.Node) bool {
	switch n.Type {
	case "FunctionDeclaration", "FunctionExpression", "ArrowFunctionExpression",
		"BlockStatement", "IfStatement", "ForStatement", "ForInStatement",
		"ForOfStatement", "WhileStatement", "DoWhileStatement", "TryStatement", "CatchClause":
		return true
	}
	if n.Parent == nil {
		return false
	}
	switch n.FieldName {
	case "consequent", "alternate", "body", "block", "handler", "finalizer":
		switch n.Parent.Type {
		case "IfStatement", "ForStatement", "ForInStatement", "ForOfStatement",
			"WhileStatement", "DoWhileStatement", "TryStatement":
			return true
		}
	}
	return false
}

// StmtOf returns the Stmt containing occurrence id, if any. occID may
// name either an Identifier occurrence or a statement node itself (the
// latter used when a backward/forward walk steps to a predecessor or
// successor statement directly).
func (g *Graph) StmtOf(occID int) (*Stmt, bool) {
	if s, ok := g.Stmts[occID]; ok {
		return s, true
	}
	sid, ok := g.OccStmt[occID]
	if !ok {
		return nil, false
	}
	s, ok := g.Stmts[sid]
	return s, ok
}
