package ast

// New creates a bare node of the given type, ready to have Kids attached
// with Attach/AttachList. Constructors in internal/parser use this rather
// than struct literals so every node ends up with a non-nil Kids slice.
func New(typ string, file string, r [2]int, loc Loc) *Node {
	return &Node{Type: typ, File: file, Range: r, Loc: loc, Index: -1}
}

// Attach appends child as a singular field of parent.
func Attach(parent *Node, field string, child *Node) {
	if child == nil {
		return
	}
	child.FieldName = field
	child.Index = -1
	child.Parent = parent
	parent.Kids = append(parent.Kids, child)
}

// AttachList appends each element of children as the i-th member of a
// list field of parent, preserving source order via Index.
func AttachList(parent *Node, field string, children []*Node) {
	for i, c := range children {
		if c == nil {
			continue
		}
		c.FieldName = field
		c.Index = i
		c.Parent = parent
		parent.Kids = append(parent.Kids, c)
	}
}
