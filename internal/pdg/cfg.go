package pdg

import "github.com/xkilldash9x/scalpel-extaint/internal/ast"

// buildFunction builds the CFG for one function body (or, when fn is
// the Program root and fnNode is nil, the top-level program), then
// recurses into every nested function
// it finds as its own independent flow region: a nested function's body
// is only entered through a call, never by falling through from the
// statement that declares it, so it always starts with an empty
// predecessor set of its own.
func (b *builder) buildFunction(fn *ast.Node, fnNode *ast.Node) {
	var body []*ast.Node
	if fn.Type == "Program" {
		body = fn.FieldList("body")
	} else if blk := fn.Field("body"); blk != nil {
		if blk.Type == "BlockStatement" {
			body = blk.FieldList("body")
		} else {
			// Arrow function with an expression body: treat the expression
			// itself as the sole "statement".
			body = []*ast.Node{blk}
		}
	}
	entry := fn
	if fn.Type != "Program" {
		entry = fnNode
	}
	b.linkSequence(body, nil, nil, entry)
}

// linkSequence walks a statement list under a shared control-dependence
// chain, wiring each statement to its predecessors and recursing into
// nested control structures. It returns the set of statement ids control
// can fall out of the list through.
func (b *builder) linkSequence(stmts []*ast.Node, preds []int, controlDeps []int, fn *ast.Node) []int {
	for _, stmt := range stmts {
		if stmt == nil {
			continue
		}
		preds = b.linkStmt(stmt, preds, controlDeps, fn)
	}
	return preds
}

func (b *builder) linkStmt(stmt *ast.Node, preds []int, controlDeps []int, fn *ast.Node) []int {
	switch stmt.Type {
	case "FunctionDeclaration":
		s := b.addStmt(stmt, fn, preds, controlDeps)
		b.buildFunction(stmt, stmt)
		return []int{s.ID}

	case "IfStatement":
		s := b.addStmt(stmt, fn, preds, controlDeps)
		branchDeps := append(append([]int(nil), controlDeps...), stmt.ID)
		var exits []int
		if cons := stmt.Field("consequent"); cons != nil {
			exits = append(exits, b.linkBranch(cons, []int{s.ID}, branchDeps, fn)...)
		}
		if alt := stmt.Field("alternate"); alt != nil {
			exits = append(exits, b.linkBranch(alt, []int{s.ID}, branchDeps, fn)...)
		} else {
			exits = append(exits, s.ID)
		}
		return exits

	case "ForStatement", "ForInStatement", "ForOfStatement", "WhileStatement", "DoWhileStatement":
		s := b.addStmt(stmt, fn, preds, controlDeps)
		branchDeps := append(append([]int(nil), controlDeps...), stmt.ID)
		body := stmt.Field("body")
		bodyExit := b.linkBranch(body, []int{s.ID}, branchDeps, fn)
		if bs, ok := b.g.Stmts[s.ID]; ok {
			for _, e := range bodyExit {
				bs.Preds = append(bs.Preds, e)
				if es, ok := b.g.Stmts[e]; ok {
					es.Succs = append(es.Succs, s.ID)
				}
			}
		}
		return []int{s.ID}

	case "TryStatement":
		s := b.addStmt(stmt, fn, preds, controlDeps)
		var exits []int
		if blk := stmt.Field("block"); blk != nil {
			exits = append(exits, b.linkBranch(blk, []int{s.ID}, controlDeps, fn)...)
		}
		if handler := stmt.Field("handler"); handler != nil {
			exits = append(exits, b.linkStmt(handler, []int{s.ID}, controlDeps, fn)...)
		}
		if fin := stmt.Field("finalizer"); fin != nil {
			exits = b.linkBranch(fin, exits, controlDeps, fn)
		}
		return exits

	case "CatchClause":
		s := b.addStmt(stmt, fn, preds, controlDeps)
		if body := stmt.Field("body"); body != nil {
			return b.linkBranch(body, []int{s.ID}, controlDeps, fn)
		}
		return []int{s.ID}

	case "BlockStatement":
		return b.linkSequence(stmt.FieldList("body"), preds, controlDeps, fn)

	case "ReturnStatement", "ThrowStatement", "BreakStatement", "ContinueStatement":
		b.addStmt(stmt, fn, preds, controlDeps)
		// The path terminates here: a documented simplification, since a
		// precise CFG would route break/continue to the enclosing loop's
		// exit/test rather than dead-ending the path.
		return nil

	default:
		s := b.addStmt(stmt, fn, preds, controlDeps)
		return []int{s.ID}
	}
}

// linkBranch links a single statement or block as one arm of a branch
// (if/else, loop body, try/catch/finally), returning its exit set.
func (b *builder) linkBranch(n *ast.Node, preds []int, controlDeps []int, fn *ast.Node) []int {
	if n == nil {
		return preds
	}
	if n.Type == "BlockStatement" {
		return b.linkSequence(n.FieldList("body"), preds, controlDeps, fn)
	}
	return b.linkStmt(n, preds, controlDeps, fn)
}
