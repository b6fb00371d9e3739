package scope

import "github.com/xkilldash9x/scalpel-extaint/internal/ast"

// resolvePass is pass 2: given the scope tree pass 1 built (nodeScopes),
// it walks the same AST again and binds every value-position Identifier
// occurrence. Declaration-position identifiers (a VariableDeclarator's
// id pattern, a function's own name, a parameter, a catch parameter, a
// non-computed Property/MemberExpression key) are never treated as
// occurrences, matching spec.md's Identifier Occurrence contract.
type resolvePass struct {
	nodeScopes map[int]*Scope
	occ        map[int]*Binding
	badFuncs   map[int]bool
}

// resolve walks n under scope. skip is true once the walk has entered a
// function subtree pass 1 marked unresolvable (e.g. it contains `with`);
// occurrences under skip are left absent from occ entirely, per the
// ResolveFailure recovery granularity.
func (p *resolvePass) resolve(n *ast.Node, scope *Scope, skip bool) {
	if n == nil {
		return
	}
	if p.badFuncs[n.ID] {
		skip = true
	}
	if s, ok := p.nodeScopes[n.ID]; ok {
		scope = s
	}

	switch n.Type {
	case "Identifier":
		if !skip {
			p.resolveIdentifier(n, scope)
		}
		return

	case "VariableDeclarator":
		p.resolvePattern(n.Field("id"), scope, skip)
		p.resolve(n.Field("init"), scope, skip)
		return

	case "FunctionDeclaration", "FunctionExpression":
		for _, prm := range n.FieldList("params") {
			p.resolvePattern(prm, scope, skip)
		}
		p.resolve(n.Field("body"), scope, skip)
		return

	case "ArrowFunctionExpression":
		for _, prm := range n.FieldList("params") {
			p.resolvePattern(prm, scope, skip)
		}
		p.resolve(n.Field("body"), scope, skip)
		return

	case "CatchClause":
		p.resolve(n.Field("body"), scope, skip)
		return

	case "Property":
		if n.Computed {
			p.resolve(n.Field("key"), scope, skip)
		}
		p.resolve(n.Field("value"), scope, skip)
		return

	case "MemberExpression":
		p.resolve(n.Field("object"), scope, skip)
		if n.Computed {
			p.resolve(n.Field("property"), scope, skip)
		}
		return

	case "ClassDeclaration", "ClassExpression":
		id := n.Field("id")
		for _, k := range n.Kids {
			if k == id {
				continue
			}
			p.resolve(k, scope, skip)
		}
		return
	}

	for _, k := range n.Kids {
		p.resolve(k, scope, skip)
	}
}

// resolvePattern walks a binding pattern in declaration position: its
// leaf identifiers are declarations, already bound by pass 1, so they
// are never recorded as occurrences here. Default-value expressions on
// the right of an AssignmentPattern, and computed keys in an
// ObjectPattern, are ordinary expressions and do get resolved.
func (p *resolvePass) resolvePattern(pat *ast.Node, scope *Scope, skip bool) {
	if pat == nil {
		return
	}
	switch pat.Type {
	case "Identifier":
		return

	case "AssignmentPattern":
		p.resolvePattern(pat.Field("left"), scope, skip)
		p.resolve(pat.Field("right"), scope, skip)

	case "RestElement", "SpreadElement":
		p.resolvePattern(pat.Field("argument"), scope, skip)

	case "ArrayPattern":
		for _, el := range pat.FieldList("elements") {
			p.resolvePattern(el, scope, skip)
		}

	case "ObjectPattern":
		for _, prop := range pat.FieldList("properties") {
			switch prop.Type {
			case "RestElement", "SpreadElement":
				p.resolvePattern(prop.Field("argument"), scope, skip)
			case "Property":
				if prop.Computed {
					p.resolve(prop.Field("key"), scope, skip)
				}
				if v := prop.Field("value"); v != nil {
					p.resolvePattern(v, scope, skip)
				}
			}
		}
	}
}

func (p *resolvePass) resolveIdentifier(id *ast.Node, scope *Scope) {
	if b, ok := scope.Lookup(id.Name); ok {
		p.occ[id.ID] = b
		return
	}
	p.occ[id.ID] = p.implicitGlobal(id.Name, scope)
}

// implicitGlobal returns the (lazily created, memoized) global binding
// for a name with no visible declaration, per spec.md §3: an
// unresolved occurrence resolves to an implicit global rather than
// being left dangling.
func (p *resolvePass) implicitGlobal(name string, scope *Scope) *Binding {
	global := scope
	for global.Parent != nil {
		global = global.Parent
	}
	if b, ok := global.Names[name]; ok {
		return b
	}
	return global.Declare(name, BindingImplicitGlobal, nil)
}
