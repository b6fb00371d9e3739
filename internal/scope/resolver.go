package scope

import "github.com/xkilldash9x/scalpel-extaint/internal/ast"

// Resolver computes a File's scope tree and occurrence bindings.
type Resolver struct{}

// NewResolver constructs a scope Resolver. It carries no state of its own:
// every call to Resolve is independent, matching the "AST and scopes are
// built once per file" lifecycle contract.
func NewResolver() *Resolver { return &Resolver{} }

// Resolve builds the scope tree for root and binds every value-position
// Identifier occurrence. A malformed subtree (currently: any use of
// `with`) is recorded in File.Unresolvable and skipped rather than
// aborting the whole file.
func (r *Resolver) Resolve(file string, root *ast.Node) (*File, error) {
	c := &collector{file: file, nodeScopes: map[int]*Scope{}, badFuncs: map[int]bool{}}
	global := newScope(KindGlobal, nil, root)
	c.nodeScopes[root.ID] = global
	c.collectBlock(root, global, global)

	f := &File{Root: global, Occurrences: map[int]*Binding{}}
	for id := range c.badFuncs {
		f.Unresolvable = append(f.Unresolvable, c.badFuncNodes[id])
	}

	res := &resolvePass{
		nodeScopes: c.nodeScopes,
		occ:        f.Occurrences,
		badFuncs:   c.badFuncs,
	}
	res.resolve(root, global, false)

	return f, nil
}

// collector is pass 1: it builds the scope tree and every declaration.
type collector struct {
	file         string
	nodeScopes   map[int]*Scope
	badFuncs     map[int]bool
	badFuncNodes map[int]*ast.Node
}

func (c *collector) markBad(fn *ast.Node) {
	if fn == nil {
		return
	}
	if c.badFuncNodes == nil {
		c.badFuncNodes = map[int]*ast.Node{}
	}
	c.badFuncs[fn.ID] = true
	c.badFuncNodes[fn.ID] = fn
}

// collectBlock walks n's children, declaring var/function into hoistTo
// and let/const/class into scope, recursing into nested scopes as it
// finds them. enclosingFunc tracks the nearest function (or the program
// root) so a `with` statement can mark exactly that unit unresolvable.
func (c *collector) collectBlock(n *ast.Node, scope, hoistTo *Scope) {
	c.walkForDeclarations(n, scope, hoistTo, n)
}

func (c *collector) walkForDeclarations(n *ast.Node, scope, hoistTo *Scope, enclosingFunc *ast.Node) {
	if n == nil {
		return
	}

	switch n.Type {
	case "with_statement":
		c.markBad(enclosingFunc)
		return

	case "VariableDeclaration":
		kind := bindingKindForVarKind(n.Kind)
		target := scope
		if kind == BindingVar {
			target = hoistTo
		}
		for _, decl := range n.FieldList("declarations") {
			pat := decl.Field("id")
			leafIdentifiers(pat, func(id *ast.Node) {
				target.Declare(id.Name, kind, id)
			})
			// Recurse into the initializer for nested declarations/scopes
			// (e.g. a function expression assigned as the initializer).
			c.walkForDeclarations(decl.Field("init"), scope, hoistTo, enclosingFunc)
		}
		return

	case "FunctionDeclaration":
		if id := n.Field("id"); id != nil {
			hoistTo.Declare(id.Name, BindingFunction, id)
		}
		c.enterFunction(n, scope)
		return

	case "FunctionExpression", "ArrowFunctionExpression":
		c.enterFunction(n, scope)
		return

	case "ClassDeclaration":
		if id := n.Field("id"); id != nil {
			scope.Declare(id.Name, BindingClass, id)
		}
		for _, k := range n.Kids {
			c.walkForDeclarations(k, scope, hoistTo, enclosingFunc)
		}
		return

	case "ClassExpression":
		for _, k := range n.Kids {
			c.walkForDeclarations(k, scope, hoistTo, enclosingFunc)
		}
		return

	case "BlockStatement":
		block := newScope(KindBlock, scope, n)
		c.nodeScopes[n.ID] = block
		for _, k := range n.FieldList("body") {
			c.walkForDeclarations(k, block, hoistTo, enclosingFunc)
		}
		return

	case "CatchClause":
		catchScope := newScope(KindCatch, scope, n)
		c.nodeScopes[n.ID] = catchScope
		if param := n.Field("parameter"); param != nil {
			leafIdentifiers(param, func(id *ast.Node) {
				catchScope.Declare(id.Name, BindingCatch, id)
			})
		} else if param := n.Field("param"); param != nil {
			leafIdentifiers(param, func(id *ast.Node) {
				catchScope.Declare(id.Name, BindingCatch, id)
			})
		}
		if body := n.Field("body"); body != nil {
			c.walkForDeclarations(body, catchScope, hoistTo, enclosingFunc)
		}
		return

	case "ForStatement", "ForInStatement", "ForOfStatement":
		iter := newScope(KindBlock, scope, n)
		c.nodeScopes[n.ID] = iter
		left := n.Field("left")
		if left == nil {
			left = n.Field("init")
		}
		if left != nil && left.Type == "VariableDeclaration" {
			kind := bindingKindForVarKind(left.Kind)
			target := iter
			if kind == BindingVar {
				target = hoistTo
			}
			for _, decl := range left.FieldList("declarations") {
				pat := decl.Field("id")
				leafIdentifiers(pat, func(id *ast.Node) {
					target.Declare(id.Name, kind, id)
				})
			}
		}
		for _, k := range n.Kids {
			if k == left {
				continue
			}
			c.walkForDeclarations(k, iter, hoistTo, enclosingFunc)
		}
		return
	}

	for _, k := range n.Kids {
		c.walkForDeclarations(k, scope, hoistTo, enclosingFunc)
	}
}

// enterFunction builds the (optional self-name) + function scope pair for
// a FunctionDeclaration/FunctionExpression/ArrowFunctionExpression and
// recurses into its params and body.
func (c *collector) enterFunction(n *ast.Node, outer *Scope) {
	funcParent := outer
	if n.Type == "FunctionExpression" {
		if id := n.Field("id"); id != nil && id.Name != "" {
			self := newScope(KindFunctionSelf, outer, n)
			self.Declare(id.Name, BindingFunction, id)
			funcParent = self
		}
	}

	fn := newScope(KindFunction, funcParent, n)
	c.nodeScopes[n.ID] = fn

	for _, p := range n.FieldList("params") {
		leafIdentifiers(p, func(id *ast.Node) {
			fn.Declare(id.Name, BindingParameter, id)
		})
		// A parameter default value can itself contain a function
		// expression that needs its own scope.
		if p.Type == "AssignmentPattern" {
			c.walkForDeclarations(p.Field("right"), fn, fn, n)
		}
	}

	body := n.Field("body")
	if body != nil {
		if body.Type == "BlockStatement" {
			c.walkForDeclarations(body, fn, fn, n)
		} else {
			// Arrow function with an expression body: no new block scope,
			// but nested function expressions still need to be entered.
			c.walkForDeclarations(body, fn, fn, n)
		}
	}
}

func bindingKindForVarKind(kind string) BindingKind {
	switch kind {
	case "let":
		return BindingLet
	case "const":
		return BindingConst
	default:
		return BindingVar
	}
}
