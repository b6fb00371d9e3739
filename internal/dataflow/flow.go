// Package dataflow answers "parents of" / "children of" queries over a
// pdg.Graph: given one Identifier occurrence, walk the control-flow
// edges pdg already built to find the nearest reaching definitions
// (backward) or nearest reachable uses (forward) of the same binding.
// Every answer is memoized per (occurrence id, direction) so repeated
// detector queries against the same file never re-walk the graph.
package dataflow

import (
	"fmt"

	"github.com/xkilldash9x/scalpel-extaint/internal/ast"
	"github.com/xkilldash9x/scalpel-extaint/internal/pdg"
	"github.com/xkilldash9x/scalpel-extaint/internal/scope"
)

// Flow is one hop in a source-to-sink chain, in the exact shape spec.md
// §6 requires for the per-extension JSON report.
type Flow struct {
	No         int    `json:"no"`
	Location   string `json:"location"`
	Filename   string `json:"filename"`
	Identifier string `json:"identifier"`
	LineOfCode string `json:"line_of_code"`
	Truncated  bool   `json:"truncated,omitempty"`
}

// Rendezvous is the call site where a from_flow and a to_flow's final
// occurrences meet: the enclosing CallExpression's node type, range,
// file, and line text, per spec.md §4.4.
type Rendezvous struct {
	NodeType   string `json:"node_type"`
	Location   string `json:"location"`
	Filename   string `json:"filename"`
	LineOfCode string `json:"line_of_code"`
}

// RendezvousFor builds a Rendezvous record for the CallExpression (or
// AssignmentExpression, for the 4.2 DOM-write case) both flows terminate
// inside.
func RendezvousFor(filename string, call *ast.Node) Rendezvous {
	return Rendezvous{
		NodeType:   call.Type,
		Location:   formatLocation(call),
		Filename:   filename,
		LineOfCode: lineOfCode(call),
	}
}

// Engine answers reaching-definition/reachable-use queries over one
// file's PDG.
type Engine struct {
	Graph    *pdg.Graph
	Scope    *scope.File
	MaxDepth int

	parentsCache  map[int][]*ast.Node
	childrenCache map[int][]*ast.Node
}

// New constructs an Engine bound to one file's already-built PDG.
// maxDepth <= 0 means unlimited (bounded only by the graph's own size).
func New(g *pdg.Graph, sf *scope.File, maxDepth int) *Engine {
	return &Engine{
		Graph:         g,
		Scope:         sf,
		MaxDepth:      maxDepth,
		parentsCache:  map[int][]*ast.Node{},
		childrenCache: map[int][]*ast.Node{},
	}
}

// ParentsOf returns every reaching-definition occurrence for occ: the
// nearest write (assignment, declarator initializer, parameter, catch
// binding, or a named function's own declaration) of occ's binding
// found by walking CFG predecessors backward. For a parameter binding
// it reports the parameter's own declaring node; it does not follow
// call edges into the arguments a caller passes.
func (e *Engine) ParentsOf(occ *ast.Node) ([]*ast.Node, bool) {
	if cached, ok := e.parentsCache[occ.ID]; ok {
		return cached, false
	}
	b, ok := e.Scope.Resolved(occ.ID)
	if !ok {
		return nil, false
	}

	visited := map[int]bool{}
	var out []*ast.Node
	truncated := e.walkBackward(occ, b, visited, 0, &out)
	e.parentsCache[occ.ID] = out
	return out, truncated
}

func (e *Engine) walkBackward(occ *ast.Node, b *scope.Binding, visited map[int]bool, depth int, out *[]*ast.Node) bool {
	if e.MaxDepth > 0 && depth > e.MaxDepth {
		return true
	}
	s, ok := e.Graph.StmtOf(occ.ID)
	if !ok {
		return false
	}
	if isDefiningStmt(s.Node, b, e.Scope) {
		if def := definitionIdentifier(s.Node, b, e.Scope); def != nil {
			*out = append(*out, def)
			return false
		}
	}
	// A function-scoped binding (parameter/self-name/hoisted function) is
	// visible from its very first statement without any assignment
	// occurrence to find; report the binding's own declaring node.
	if b.Kind == scope.BindingParameter || b.Kind == scope.BindingFunction || b.Kind == scope.BindingCatch {
		if b.Node != nil {
			*out = append(*out, b.Node)
			return false
		}
	}

	truncated := false
	if len(s.Preds) == 0 {
		return truncated
	}
	for _, pid := range s.Preds {
		if visited[pid] {
			continue
		}
		visited[pid] = true
		predStmt := e.Graph.Stmts[pid]
		if predStmt == nil {
			continue
		}
		if isDefiningStmt(predStmt.Node, b, e.Scope) {
			if def := definitionIdentifier(predStmt.Node, b, e.Scope); def != nil {
				*out = append(*out, def)
				continue
			}
		}
		if t := e.walkBackward(predStmt.Node, b, visited, depth+1, out); t {
			truncated = true
		}
	}
	return truncated
}

// ChildrenOf returns every occurrence reachable forward from a
// definition, by walking CFG successors and collecting the nearest use
// of the same binding on each path (it does not continue past the first
// use on a given path, matching "nearest reaching definition" symmetry).
func (e *Engine) ChildrenOf(def *ast.Node) ([]*ast.Node, bool) {
	if cached, ok := e.childrenCache[def.ID]; ok {
		return cached, false
	}
	b, ok := e.Scope.Resolved(def.ID)
	if !ok {
		// A declaring identifier is not an Occurrences entry; find the
		// binding it declares instead.
		if b = declaredBinding(e.Scope.Root, def); b == nil {
			return nil, false
		}
	}
	s, ok := e.Graph.StmtOf(def.ID)
	if !ok {
		return nil, false
	}
	visited := map[int]bool{s.ID: true}
	var out []*ast.Node
	truncated := false
	for _, sid := range s.Succs {
		if t := e.walkForward(sid, b, visited, 0, &out); t {
			truncated = true
		}
	}
	e.childrenCache[def.ID] = out
	return out, truncated
}

// declaredBinding returns the binding in s or its descendant scopes
// whose declaring node is def, or nil.
func declaredBinding(s *scope.Scope, def *ast.Node) *scope.Binding {
	if s == nil {
		return nil
	}
	for _, b := range s.Names {
		if b.Node == def {
			return b
		}
	}
	for _, c := range s.Children {
		if b := declaredBinding(c, def); b != nil {
			return b
		}
	}
	return nil
}

func (e *Engine) walkForward(stmtID int, b *scope.Binding, visited map[int]bool, depth int, out *[]*ast.Node) bool {
	if e.MaxDepth > 0 && depth > e.MaxDepth {
		return true
	}
	if visited[stmtID] {
		return false
	}
	visited[stmtID] = true
	s := e.Graph.Stmts[stmtID]
	if s == nil {
		return false
	}
	if uses := useIdentifiers(s.Node, b, e.Scope); len(uses) > 0 {
		*out = append(*out, uses...)
		return false
	}
	truncated := false
	for _, succ := range s.Succs {
		if t := e.walkForward(succ, b, visited, depth+1, out); t {
			truncated = true
		}
	}
	return truncated
}

// FlowFor builds a §6-shaped Flow record for an occurrence, numbering
// it n within its chain.
func FlowFor(n int, filename string, occ *ast.Node, truncated bool) Flow {
	return Flow{
		No:         n,
		Location:   formatLocation(occ),
		Filename:   filename,
		Identifier: occ.Text(),
		LineOfCode: lineOfCode(occ),
		Truncated:  truncated,
	}
}

func formatLocation(n *ast.Node) string {
	return fmt.Sprintf("%d:%d - %d:%d", n.Loc.Start.Line, n.Loc.Start.Column, n.Loc.End.Line, n.Loc.End.Column)
}

// lineOfCode returns the source line n sits on, as text, matching the
// original_source tool's line_of_code field. Synthetic trees built
// without a source-lines cache (unit tests) fall back to the node's own
// snippet rather than returning an empty string.
func lineOfCode(n *ast.Node) string {
	if text := n.LineText(n.Loc.Start.Line); text != "" {
		return text
	}
	return n.Text()
}
