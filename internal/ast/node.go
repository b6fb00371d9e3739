// Package ast defines the typed syntax tree that every downstream package
// (scope, pdg, dataflow, detector) operates on. It is deliberately
// parser-agnostic: internal/parser populates a Node tree either straight
// from a tree-sitter parse or by lowering an external converter's ESTree
// JSON document, and everything past that boundary never touches either
// source format again.
package ast

import "strings"

// Position is a 1-based line, 0-based column, matching the ESTree
// convention the external parser contract (§6) uses.
type Position struct {
	Line   int `json:"line"`
	Column int `json:"column"`
}

// Loc is the inclusive-start/exclusive-end span of a node.
type Loc struct {
	Start Position `json:"start"`
	End   Position `json:"end"`
}

// Comment is a comment attached as leading to the first statement that
// starts after it, or, when none follows, as trailing to the statement
// ending closest before it. Comments never appear inside the expression
// tree itself.
type Comment struct {
	Text  string
	Range [2]int
	Loc   Loc
}

// Node is a tagged-variant ECMAScript AST node. Rather than one Go struct
// per ESTree node kind, every node shares this shape and callers dispatch
// on Type; kind-specific data lives in the handful of typed fields below
// plus the generic Kids list, addressed by field name through Field/FieldList.
type Node struct {
	ID     int
	Type   string
	Range  [2]int
	Loc    Loc
	File   string
	Parent *Node

	// FieldName is the name this node occupies in its parent (e.g. "test",
	// "consequent", "callee", "arguments"). Index is the position within
	// a list-valued field ("arguments", "body", "params", ...), or -1 for
	// a singular field.
	FieldName string
	Index     int

	// Kids holds every child node in source order, regardless of which
	// named field it occupies. Traversals that need "all children" (CFG
	// construction, generic walks) use this; traversals that need a
	// specific field use Field/FieldList.
	Kids []*Node

	// Kind-specific scalars. Not every field applies to every Type; unused
	// fields are simply zero-valued.
	Name     string // Identifier / PrivateName
	Value    any    // Literal value (string, float64, bool, nil)
	Raw      string // Literal's source text, or a generic source snippet
	Operator string // Binary/Logical/Assignment/Update operator
	Kind     string // VariableDeclaration kind (var/let/const); Property/MethodDefinition kind
	Computed bool   // MemberExpression / Property computed key
	Static   bool   // class member modifier
	Prefix   bool   // UpdateExpression prefix (++x vs x++)
	Optional bool   // optional chaining (?.)

	LeadingComments  []Comment
	TrailingComments []Comment

	// SourceLines holds the whole file's source split into lines,
	// 1-indexed via LineText. Only the root node carries it; every other
	// node reaches it by walking Parent, so the cache lives in exactly
	// one place per tree.
	SourceLines []string
}

// Field returns the singular child occupying the named field, or nil.
func (n *Node) Field(name string) *Node {
	if n == nil {
		return nil
	}
	for _, k := range n.Kids {
		if k.FieldName == name && k.Index < 0 {
			return k
		}
	}
	return nil
}

// FieldList returns every child occupying the named list field, ordered
// by Index (which is also their source order).
func (n *Node) FieldList(name string) []*Node {
	if n == nil {
		return nil
	}
	var out []*Node
	for _, k := range n.Kids {
		if k.FieldName == name && k.Index >= 0 {
			out = append(out, k)
		}
	}
	return out
}

// Text returns the best available source snippet for a node: its Raw
// text if the lowering step stashed one (Identifiers, Literals), else its
// Name, else its Type string. It never re-reads the
// original source buffer, so it stays valid after ingest even if the
// analyzer never keeps that buffer around.
func (n *Node) Text() string {
	if n == nil {
		return ""
	}
	if n.Raw != "" {
		return n.Raw
	}
	if n.Name != "" {
		return n.Name
	}
	return n.Type
}

// LineText returns the source text of the given 1-based line number, by
// walking up to the tree root and indexing into its SourceLines cache. It
// returns "" if the tree was built without source text (as synthetic
// trees in tests are) or the line falls outside the cached range.
func (n *Node) LineText(line int) string {
	if n == nil || line < 1 {
		return ""
	}
	root := n
	for root.Parent != nil {
		root = root.Parent
	}
	if line > len(root.SourceLines) {
		return ""
	}
	return root.SourceLines[line-1]
}

// SplitSourceLines splits raw source bytes into lines for LineText,
// stripping a trailing \r from each line so CRLF sources don't leak
// carriage returns into line_of_code output.
func SplitSourceLines(src []byte) []string {
	lines := strings.Split(string(src), "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSuffix(l, "\r")
	}
	return lines
}

// IsIdentifier reports whether this node's Type is "Identifier". It does
// not look at the node's position, so a non-computed property name
// lowered as an Identifier also counts; a PrivateName does not.
func (n *Node) IsIdentifier() bool {
	return n != nil && n.Type == "Identifier"
}

// Ancestors returns the chain of parents from the immediate parent up to
// the root, inclusive of neither n nor the root's nil parent.
func (n *Node) Ancestors() []*Node {
	var out []*Node
	for p := n.Parent; p != nil; p = p.Parent {
		out = append(out, p)
	}
	return out
}

// Walk visits n and every descendant in source (pre-order) order.
func Walk(n *Node, visit func(*Node)) {
	if n == nil {
		return
	}
	visit(n)
	for _, k := range n.Kids {
		Walk(k, visit)
	}
}

// AssignIDs stamps a stable, deterministic integer id on every node in
// the tree in a single pre-order pass, per the AST Ingest module's
// "stable per-file integer id, assigned in a single pre-order pass"
// contract. It must run once, after the tree (including Kids ordering)
// is fully built.
func AssignIDs(root *Node, next int) int {
	Walk(root, func(n *Node) {
		n.ID = next
		next++
	})
	return next
}

// SetParents fixes up Parent back-references for the whole tree. Lowering
// code that builds Kids directly may skip this if it already threads
// Parent through construction; parser.Source implementations call it
// defensively after assembly.
func SetParents(root *Node) {
	var walk func(n, parent *Node)
	walk = func(n, parent *Node) {
		n.Parent = parent
		for _, k := range n.Kids {
			walk(k, n)
		}
	}
	walk(root, nil)
}
