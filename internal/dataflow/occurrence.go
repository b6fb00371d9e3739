package dataflow

import (
	"github.com/xkilldash9x/scalpel-extaint/internal/ast"
	"github.com/xkilldash9x/scalpel-extaint/internal/scope"
)

// isDefiningStmt reports whether stmt writes binding b: a declarator
// with an initializer, a plain (non-compound-target) assignment, or an
// update expression, all resolved to b through occ resolution rather
// than by name (so shadowing in a nested scope is never mistaken for a
// write to the outer binding).
func isDefiningStmt(stmt *ast.Node, b *scope.Binding, sf *scope.File) bool {
	return definitionIdentifier(stmt, b, sf) != nil
}

// definitionIdentifier returns the identifier occurrence inside stmt
// that writes b, if any. Occurrences are matched by their resolved
// binding, not by name, so shadowing in a nested scope is never
// mistaken for a write to the outer binding.
func definitionIdentifier(stmt *ast.Node, b *scope.Binding, sf *scope.File) *ast.Node {
	var found *ast.Node
	var walk func(n *ast.Node)
	walk = func(n *ast.Node) {
		if n == nil || found != nil {
			return
		}
		switch n.Type {
		case "VariableDeclarator":
			if id := n.Field("id"); id != nil && id.IsIdentifier() && sameBinding(id, b, sf) && n.Field("init") != nil {
				found = id
				return
			}
		case "AssignmentExpression":
			if left := n.Field("left"); left != nil && left.IsIdentifier() && sameBinding(left, b, sf) {
				found = left
				return
			}
		case "UpdateExpression":
			if arg := n.Field("argument"); arg != nil && arg.IsIdentifier() && sameBinding(arg, b, sf) {
				found = arg
				return
			}
		}
		for _, k := range n.Kids {
			walk(k)
		}
	}
	walk(stmt)
	return found
}

// useIdentifiers returns every read occurrence of b inside stmt: any
// Identifier resolving to b that is not itself the write target of an
// assignment/update/declarator in the same statement.
func useIdentifiers(stmt *ast.Node, b *scope.Binding, sf *scope.File) []*ast.Node {
	def := definitionIdentifier(stmt, b, sf)
	var out []*ast.Node
	var walk func(n *ast.Node)
	walk = func(n *ast.Node) {
		if n == nil {
			return
		}
		if n.IsIdentifier() && n != def && sameBinding(n, b, sf) {
			out = append(out, n)
		}
		for _, k := range n.Kids {
			walk(k)
		}
	}
	walk(stmt)
	return out
}

func sameBinding(id *ast.Node, b *scope.Binding, sf *scope.File) bool {
	// A declaring identifier is not an Occurrences entry; it is b.Node.
	if id == b.Node {
		return true
	}
	resolved, ok := sf.Resolved(id.ID)
	return ok && resolved == b
}
