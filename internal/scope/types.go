// Package scope computes lexical scopes over an internal/ast tree and
// binds every value-position Identifier occurrence to its declaration,
// honoring function hoisting, block scoping, function-expression
// self-binding, parameter scopes, and catch scopes.
package scope

import "github.com/xkilldash9x/scalpel-extaint/internal/ast"

// Kind distinguishes the flavor of lexical region a Scope represents.
type Kind string

const (
	KindGlobal Kind = "global"
	// KindFunctionSelf holds only a named function expression's own
	// self-binding; it exists solely so that binding can be shadowed by
	// the function's own parameters and locals (KindFunction, its child).
	KindFunctionSelf Kind = "function-self"
	KindFunction     Kind = "function"
	KindBlock        Kind = "block"
	KindCatch        Kind = "catch"
)

// BindingKind records how a name entered a scope.
type BindingKind string

const (
	BindingVar            BindingKind = "var"
	BindingLet            BindingKind = "let"
	BindingConst          BindingKind = "const"
	BindingFunction       BindingKind = "function"
	BindingParameter      BindingKind = "parameter"
	BindingCatch          BindingKind = "catch"
	BindingClass          BindingKind = "class"
	BindingImplicitGlobal BindingKind = "implicit-global"
)

// Binding is a declaration entry in a lexical scope that a name can
// resolve to.
type Binding struct {
	Name      string
	Kind      BindingKind
	Node      *ast.Node // the declaring node (Identifier leaf of the pattern, or the function's own id)
	Scope     *Scope    // the scope this binding lives in
	HoistedTo *Scope    // for var/function, the scope the declaration was hoisted to (== Scope, kept for clarity)
}

// Scope is a lexical region: a kind, a parent, and a name->Binding table.
type Scope struct {
	Kind     Kind
	Parent   *Scope
	Node     *ast.Node
	Names    map[string]*Binding
	Children []*Scope
}

func newScope(kind Kind, parent *Scope, node *ast.Node) *Scope {
	s := &Scope{Kind: kind, Parent: parent, Node: node, Names: map[string]*Binding{}}
	if parent != nil {
		parent.Children = append(parent.Children, s)
	}
	return s
}

// Declare adds a binding to this scope. A redeclaration (e.g. `var x`
// appearing twice) overwrites with the later declaring node, matching
// how hoisting collapses duplicate var declarations into one binding.
func (s *Scope) Declare(name string, kind BindingKind, node *ast.Node) *Binding {
	b := &Binding{Name: name, Kind: kind, Node: node, Scope: s, HoistedTo: s}
	s.Names[name] = b
	return b
}

// Lookup walks from this scope up through its ancestors for the nearest
// binding of name.
func (s *Scope) Lookup(name string) (*Binding, bool) {
	for cur := s; cur != nil; cur = cur.Parent {
		if b, ok := cur.Names[name]; ok {
			return b, true
		}
	}
	return nil, false
}

// IsFunctionOrGlobal reports whether this scope is a valid hoisting
// target for var/function declarations.
func (s *Scope) IsFunctionOrGlobal() bool {
	return s.Kind == KindFunction || s.Kind == KindGlobal
}

// File is the result of resolving one file: its scope tree plus a map
// from every value-position Identifier occurrence's node id to the
// Binding it resolved to (unresolved occurrences bind to an implicit
// global Binding created lazily at the program root).
type File struct {
	Root        *Scope
	Occurrences map[int]*Binding
	// Unresolvable holds the root node of every function subtree the
	// resolver could not safely resolve (e.g. one containing a `with`
	// statement); occurrences inside it are left absent from Occurrences.
	Unresolvable []*ast.Node
}

// Resolved returns the Binding for an occurrence node id, if any.
func (f *File) Resolved(nodeID int) (*Binding, bool) {
	b, ok := f.Occurrences[nodeID]
	return b, ok
}
