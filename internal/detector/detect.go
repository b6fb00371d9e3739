package detector

import (
	"sort"

	"github.com/xkilldash9x/scalpel-extaint/internal/ast"
	"github.com/xkilldash9x/scalpel-extaint/internal/dataflow"
	"github.com/xkilldash9x/scalpel-extaint/internal/scope"
)

// Detector finds vulnerable flows in one file's already-built scope,
// PDG, and data-flow engine against a set of source/sink tables.
type Detector struct {
	Tables    *Tables
	Include31 bool
	Filename  string
}

// New constructs a Detector bound to tables.
func New(tables *Tables, filename string, include31 bool) *Detector {
	return &Detector{Tables: tables, Filename: filename, Include31: include31}
}

// listener is one chrome.*.onMessage-shaped listener registration: the
// addListener CallExpression itself plus its inline callback and the
// callback's three conventional parameters (payload, sender, respond).
type listener struct {
	call     *ast.Node
	callback *ast.Node
	payload  *ast.Node
	sender   *ast.Node
	respond  *ast.Node
}

// Detect walks root for onMessage-shaped listener registrations and
// reports every 4.1/4.2/4.3 flow and (when enabled) 3.1 violation it
// finds inside them.
func (d *Detector) Detect(root *ast.Node, sf *scope.File, eng *dataflow.Engine) []Violation {
	var out []Violation
	for _, l := range findListeners(root) {
		out = append(out, d.detectListener(l, sf, eng)...)
	}
	sortViolations(out)
	for i := range out {
		out[i].DataFlowNumber = i + 1
	}
	return out
}

func findListeners(root *ast.Node) []listener {
	var out []listener
	ast.Walk(root, func(n *ast.Node) {
		if n.Type != "CallExpression" {
			return
		}
		path := pathString(memberPath(n.Field("callee")))
		if !isAddListenerPath(path) {
			return
		}
		cb := inlineCallbackArg(n)
		if cb == nil {
			return
		}
		params := cb.FieldList("params")
		l := listener{call: n, callback: cb}
		if len(params) > 0 {
			l.payload = params[0]
		}
		if len(params) > 1 {
			l.sender = params[1]
		}
		if len(params) > 2 {
			l.respond = params[2]
		}
		out = append(out, l)
	})
	return out
}

func isAddListenerPath(path string) bool {
	switch path {
	case "chrome.runtime.onMessage.addListener",
		"chrome.runtime.onMessageExternal.addListener",
		"browser.runtime.onMessage.addListener",
		"port.onMessage.addListener",
		"chrome.runtime.onConnect.addListener":
		return true
	}
	return false
}

func inlineCallbackArg(call *ast.Node) *ast.Node {
	for _, arg := range call.FieldList("arguments") {
		if arg.Type == "FunctionExpression" || arg.Type == "ArrowFunctionExpression" {
			return arg
		}
	}
	return nil
}

func (d *Detector) detectListener(l listener, sf *scope.File, eng *dataflow.Engine) []Violation {
	var sourceCalls, sinkCalls []*ast.Node
	ast.Walk(l.callback, func(n *ast.Node) {
		switch n.Type {
		case "CallExpression":
			path := pathString(memberPath(n.Field("callee")))
			if _, ok := d.Tables.Sources[path]; ok {
				sourceCalls = append(sourceCalls, n)
			}
			if _, ok := resolveSink(d.Tables, path); ok {
				sinkCalls = append(sinkCalls, n)
			} else if callee := n.Field("callee"); callee != nil && callee.IsIdentifier() && l.respond != nil {
				if b, ok := sf.Resolved(callee.ID); ok && b.Node == l.respond {
					sinkCalls = append(sinkCalls, n)
				}
			}
		case "AssignmentExpression":
			// A direct DOM-write assignment (`document.body.innerHTML =
			// m.html`) is a sink in its own right, distinct from the
			// CallExpression-shaped sinks above.
			left := n.Field("left")
			if left == nil || left.Type != "MemberExpression" {
				return
			}
			path := pathString(memberPath(left))
			if sd, ok := resolveSink(d.Tables, path); ok && sd.Kind == SinkDOM {
				sinkCalls = append(sinkCalls, n)
			}
		}
	})

	var out []Violation
	for _, sink := range sinkCalls {
		tainted := sinkTaintedIdentifiers(sink, d.Tables)
		guarded := d.senderGuarded(sink, l.sender, sf)
		domSink := isDOMSink(sink, d.Tables)

		matchedSource := false
		for _, source := range sourceCalls {
			matched, fromOrigin, fromUse := flowsFromSourceToSink(eng, sf, source, tainted)
			if !matched {
				continue
			}
			matchedSource = true
			if guarded {
				continue
			}
			cat := Cat41Exfiltration
			if def, ok := d.Tables.Sources[pathString(memberPath(source.Field("callee")))]; ok && def.Kind == SourceStorageRead {
				cat = Cat43
			}
			toOrigin, toUse := sinkToFlowEndpoints(sf, sink, l.respond)
			out = append(out, d.buildViolation(cat, eng, fromOrigin, fromUse, toOrigin, toUse, sink))
		}

		if !matchedSource && !guarded {
			matched, fromOrigin, fromUse := payloadReachesSink(eng, sf, l.payload, tainted)
			switch {
			case matched && domSink:
				// The attacker-controlled payload itself reaches a
				// DOM-writing sink with no privileged API in between:
				// spec.md's 4.2/UXSS infiltration case, reported
				// unconditionally regardless of the 3.1 opt-in.
				toOrigin, toUse := sinkToFlowEndpoints(sf, sink, l.respond)
				out = append(out, d.buildViolation(Cat42, eng, fromOrigin, fromUse, toOrigin, toUse, sink))
			case matched && d.Include31:
				toOrigin, toUse := sinkToFlowEndpoints(sf, sink, l.respond)
				out = append(out, d.buildViolation(Cat31, eng, fromOrigin, fromUse, toOrigin, toUse, sink))
			}
		}
	}

	out = append(out, d.detectStorageToDOM(l.callback, sf, eng)...)
	return out
}

// detectStorageToDOM approximates spec.md's 4.2 case: within the same
// listener, a chrome.storage.*.get read whose callback data later
// reaches a DOM sink assignment.
func (d *Detector) detectStorageToDOM(callback *ast.Node, sf *scope.File, eng *dataflow.Engine) []Violation {
	var out []Violation
	ast.Walk(callback, func(n *ast.Node) {
		if n.Type != "CallExpression" {
			return
		}
		path := pathString(memberPath(n.Field("callee")))
		def, ok := d.Tables.Sources[path]
		if !ok || def.Kind != SourceStorageRead {
			return
		}
		cb := inlineCallbackArg(n)
		if cb == nil {
			return
		}
		ast.Walk(cb, func(sinkNode *ast.Node) {
			var sinkExpr *ast.Node
			switch sinkNode.Type {
			case "AssignmentExpression":
				if left := sinkNode.Field("left"); left != nil && left.Type == "MemberExpression" {
					p := pathString(memberPath(left))
					if sd, ok := resolveSink(d.Tables, p); ok && sd.Kind == SinkDOM {
						sinkExpr = sinkNode.Field("right")
					}
				}
			case "CallExpression":
				p := pathString(memberPath(sinkNode.Field("callee")))
				if sd, ok := resolveSink(d.Tables, p); ok && sd.Kind == SinkDOM {
					args := sinkNode.FieldList("arguments")
					if len(args) > 0 {
						sinkExpr = args[0]
					}
				}
			}
			if sinkExpr == nil {
				return
			}
			var tainted []*ast.Node
			ast.Walk(sinkExpr, func(id *ast.Node) {
				if id.IsIdentifier() {
					tainted = append(tainted, id)
				}
			})
			for _, id := range tainted {
				if b, ok := sf.Resolved(id.ID); ok && b.Kind == scope.BindingParameter && b.Node.Parent == cb {
					sinkOcc := sinkOccurrenceNode(sinkNode)
					out = append(out, d.buildViolation(Cat42, eng, b.Node, id, sinkOcc, sinkOcc, sinkNode))
					return
				}
			}
		})
	})
	return out
}

// isDOMSink reports whether sink is a DOM-writing sink under either shape
// detectListener collects: a direct assignment (`el.innerHTML = ...`) or a
// call (`document.write(...)`, `el.insertAdjacentHTML(...)`). Payload
// reaching either shape directly, with no privileged API in between, is
// spec.md's UXSS carve-out of the infiltration case.
func isDOMSink(sink *ast.Node, tables *Tables) bool {
	switch sink.Type {
	case "AssignmentExpression":
		return true
	case "CallExpression":
		path := pathString(memberPath(sink.Field("callee")))
		sd, ok := resolveSink(tables, path)
		return ok && sd.Kind == SinkDOM
	}
	return false
}

// sinkTaintedIdentifiers dispatches to the tainted-identifier extraction
// matching a sink node's shape: a CallExpression's tainted argument
// positions, or a DOM-write AssignmentExpression's right-hand side.
func sinkTaintedIdentifiers(sink *ast.Node, tables *Tables) []*ast.Node {
	if sink.Type == "AssignmentExpression" {
		return assignmentTaintedIdentifiers(sink)
	}
	return taintedArgIdentifiers(sink, tables)
}

// assignmentTaintedIdentifiers returns every identifier in a DOM-write
// assignment's right-hand side - the value actually written into the
// sink, the only tainted position an assignment has.
func assignmentTaintedIdentifiers(assign *ast.Node) []*ast.Node {
	var out []*ast.Node
	if right := assign.Field("right"); right != nil {
		ast.Walk(right, func(n *ast.Node) {
			if n.IsIdentifier() {
				out = append(out, n)
			}
		})
	}
	return out
}

func taintedArgIdentifiers(call *ast.Node, tables *Tables) []*ast.Node {
	path := pathString(memberPath(call.Field("callee")))
	args := call.FieldList("arguments")
	def, ok := resolveSink(tables, path)
	indices := []int{0}
	if ok && len(def.TaintedArgs) > 0 {
		indices = def.TaintedArgs
	}
	var out []*ast.Node
	for _, i := range indices {
		if i < 0 || i >= len(args) {
			continue
		}
		ast.Walk(args[i], func(n *ast.Node) {
			if n.IsIdentifier() {
				out = append(out, n)
			}
		})
	}
	if len(out) == 0 {
		for _, a := range args {
			ast.Walk(a, func(n *ast.Node) {
				if n.IsIdentifier() {
					out = append(out, n)
				}
			})
		}
	}
	return out
}

// flowsFromSourceToSink reports whether any tainted identifier at the
// sink resolves to a parameter of source's own inline callback — the
// shape every chrome.* privileged API uses to hand data back to caller
// code (`chrome.cookies.getAll(cb)` where `cb`'s parameter is exactly
// the value later passed to sendResponse). When it matches, it also
// returns the flow's origin (the callback parameter's declaration) and
// its terminal occurrence (the tainted identifier at the sink), for
// traceFlow to walk between.
func flowsFromSourceToSink(eng *dataflow.Engine, sf *scope.File, source *ast.Node, tainted []*ast.Node) (bool, *ast.Node, *ast.Node) {
	cb := inlineCallbackArg(source)
	if cb == nil {
		return false, nil, nil
	}
	for _, id := range tainted {
		b, ok := sf.Resolved(id.ID)
		if !ok || b.Node == nil {
			continue
		}
		if b.Kind == scope.BindingParameter && b.Node.Parent == cb {
			return true, b.Node, id
		}
		if defs, _ := eng.ParentsOf(id); len(defs) > 0 {
			for _, def := range defs {
				if def.Parent == cb {
					return true, def, id
				}
			}
		}
	}
	return false, nil, nil
}

// payloadReachesSink reports whether any tainted identifier at the sink
// resolves to the same binding as a leaf of the listener's message
// payload parameter — including a destructured leaf, e.g. `{url}` in
// `function({url}, sender, sendResponse)`. It returns the origin (the
// payload leaf's own declaration) and the terminal tainted occurrence
// alongside the match.
func payloadReachesSink(eng *dataflow.Engine, sf *scope.File, payload *ast.Node, tainted []*ast.Node) (bool, *ast.Node, *ast.Node) {
	if payload == nil {
		return false, nil, nil
	}
	// A leaf is a declaring node, which the resolver does not record as
	// an occurrence, so leaves are matched against Binding.Node.
	leaves := map[*ast.Node]bool{}
	for _, leaf := range payloadLeafIdentifiers(payload) {
		leaves[leaf] = true
	}
	if len(leaves) == 0 {
		return false, nil, nil
	}
	for _, id := range tainted {
		if b, ok := sf.Resolved(id.ID); ok && leaves[b.Node] {
			return true, b.Node, id
		}
		if defs, _ := eng.ParentsOf(id); len(defs) > 0 {
			for _, def := range defs {
				if leaves[def] {
					return true, def, id
				}
			}
		}
	}
	return false, nil, nil
}

// payloadLeafIdentifiers walks a listener's message-payload parameter
// pattern and returns every leaf binding: itself directly for a plain
// `function(request, ...)`, or every destructured leaf for
// `function({a, b: {c}}, ...)`. Mirrors internal/scope's own pattern
// walk, since payload is resolved by the same scope.File and its leaves
// carry the same bindings.
func payloadLeafIdentifiers(pattern *ast.Node) []*ast.Node {
	var out []*ast.Node
	var walk func(*ast.Node)
	walk = func(p *ast.Node) {
		if p == nil {
			return
		}
		switch p.Type {
		case "Identifier":
			out = append(out, p)
		case "AssignmentPattern":
			walk(p.Field("left"))
		case "RestElement", "SpreadElement":
			walk(p.Field("argument"))
		case "ArrayPattern":
			for _, el := range p.FieldList("elements") {
				walk(el)
			}
		case "ObjectPattern":
			for _, prop := range p.FieldList("properties") {
				switch prop.Type {
				case "RestElement", "SpreadElement":
					walk(prop.Field("argument"))
				case "Property":
					if v := prop.Field("value"); v != nil {
						walk(v)
					} else if k := prop.Field("key"); k != nil && k.Type == "Identifier" {
						walk(k)
					}
				}
			}
		}
	}
	walk(pattern)
	return out
}

// senderGuarded reports whether sink is nested inside an IfStatement
// (within the same listener callback) whose test inspects sender.url,
// sender.origin, sender.tab.url, sender.id, or sender.frameId.
func (d *Detector) senderGuarded(sink *ast.Node, sender *ast.Node, sf *scope.File) bool {
	if sender == nil {
		return false
	}
	for _, anc := range sink.Ancestors() {
		if anc.Type == "IfStatement" {
			if test := anc.Field("test"); test != nil && mentionsSenderGuard(test, sender, sf, d.Tables) {
				return true
			}
		}
		if anc == sender.Parent {
			return false
		}
	}
	return false
}

func mentionsSenderGuard(test *ast.Node, sender *ast.Node, sf *scope.File, tables *Tables) bool {
	found := false
	ast.Walk(test, func(n *ast.Node) {
		if found || n.Type != "MemberExpression" {
			return
		}
		root := rootIdentifier(n)
		if root == nil {
			return
		}
		if b, ok := sf.Resolved(root.ID); !ok || b.Node != sender {
			return
		}
		path := memberPath(n)
		guardKey := "sender." + pathString(path[1:])
		if tables.SenderGuards[guardKey] {
			found = true
		}
	})
	return found
}

// sinkToFlowEndpoints locates a to_flow's origin and terminal occurrence
// for a sink call: when the callee resolves to the listener's own
// respond parameter, the flow traces from that parameter's declaration
// to the identifier actually invoked as the sink's callee — exactly the
// aliasing a `var reply = sendResponse; ...; reply(data)` indirection
// needs traced. Every other sink path (chrome.tabs.sendMessage,
// innerHTML, ...) is a fixed API reference with nothing to alias, so
// origin and use collapse to the same occurrence.
func sinkToFlowEndpoints(sf *scope.File, sink, respond *ast.Node) (*ast.Node, *ast.Node) {
	use := sinkOccurrenceNode(sink)
	if respond != nil {
		if callee := sink.Field("callee"); callee != nil && callee.IsIdentifier() {
			if b, ok := sf.Resolved(callee.ID); ok && b.Kind == scope.BindingParameter && b.Node == respond {
				return respond, callee
			}
		}
	}
	return use, use
}

// sinkOccurrenceNode picks the identifier-level occurrence a flow record
// should point at for a sink node, rather than the whole call or
// assignment expression: the callee of a call, the assignment target of
// a DOM write, or the node itself when neither shape applies.
func sinkOccurrenceNode(n *ast.Node) *ast.Node {
	switch n.Type {
	case "CallExpression", "NewExpression":
		if callee := n.Field("callee"); callee != nil {
			return propertyOccurrence(callee)
		}
	case "AssignmentExpression":
		if left := n.Field("left"); left != nil {
			return propertyOccurrence(left)
		}
	}
	return n
}

func propertyOccurrence(n *ast.Node) *ast.Node {
	switch n.Type {
	case "Identifier":
		return n
	case "MemberExpression":
		if prop := n.Field("property"); prop != nil {
			return prop
		}
	}
	return n
}

// buildViolation materializes a full flow record for both sides of a
// finding by walking the data-flow engine transitively from each side's
// origin to its terminal occurrence, per spec.md's flow definition: a
// finite numbered path of occurrences, not a single node reference.
func (d *Detector) buildViolation(cat Category, eng *dataflow.Engine, fromOrigin, fromUse, toOrigin, toUse, rendezvous *ast.Node) Violation {
	fromHops, fromTruncated := traceFlow(eng, fromOrigin, fromUse)
	toHops, toTruncated := traceFlow(eng, toOrigin, toUse)
	return Violation{
		Category:   cat,
		FromFlow:   flowFromHops(d.Filename, fromHops, fromTruncated),
		ToFlow:     flowFromHops(d.Filename, toHops, toTruncated),
		Rendezvous: dataflow.RendezvousFor(d.Filename, rendezvous),
	}
}

// traceFlow walks backward from use via the data-flow engine's
// ParentsOf, following simple reassignment chains one alias hop at a
// time, until it reaches origin or the engine has nothing further to
// offer. The result, reversed into origin-to-use order and numbered by
// flowFromHops, is exactly the "v0 -> v1 -> ... -> vn" path a flow is:
// it terminates at a dead end, a depth bound (surfaced as truncated), or
// a node already visited on this walk (cycle break).
func traceFlow(eng *dataflow.Engine, origin, use *ast.Node) ([]*ast.Node, bool) {
	if origin == nil || use == nil {
		return nil, false
	}
	if origin.ID == use.ID {
		return []*ast.Node{use}, false
	}

	const maxHops = 32
	hops := []*ast.Node{use}
	visited := map[int]bool{use.ID: true}
	current := use
	truncated := false
	reachedOrigin := false

	for len(hops) < maxHops {
		defs, engineTruncated := eng.ParentsOf(current)
		truncated = truncated || engineTruncated
		if len(defs) == 0 {
			break
		}
		next := defs[0]
		if visited[next.ID] {
			break
		}
		visited[next.ID] = true
		hops = append(hops, next)
		if next.ID == origin.ID {
			reachedOrigin = true
			break
		}
		follow := reassignmentSource(next)
		if follow == nil {
			break
		}
		current = follow
	}
	if !reachedOrigin {
		truncated = true
	}
	reverseNodes(hops)
	return hops, truncated
}

// reassignmentSource follows a reaching-definition occurrence back to
// the identifier it was assigned from, when its defining statement is a
// simple `x = y` or `var x = y` — letting traceFlow continue past one
// alias hop instead of stopping at the first reaching definition.
func reassignmentSource(def *ast.Node) *ast.Node {
	if def == nil || def.Parent == nil {
		return nil
	}
	switch def.Parent.Type {
	case "AssignmentExpression":
		if right := def.Parent.Field("right"); right != nil && right.IsIdentifier() {
			return right
		}
	case "VariableDeclarator":
		if init := def.Parent.Field("init"); init != nil && init.IsIdentifier() {
			return init
		}
	}
	return nil
}

func reverseNodes(ns []*ast.Node) {
	for i, j := 0, len(ns)-1; i < j; i, j = i+1, j-1 {
		ns[i], ns[j] = ns[j], ns[i]
	}
}

func flowFromHops(filename string, hops []*ast.Node, truncated bool) []dataflow.Flow {
	out := make([]dataflow.Flow, len(hops))
	for i, h := range hops {
		out[i] = dataflow.FlowFor(i+1, filename, h, truncated && i == len(hops)-1)
	}
	return out
}

func sortViolations(v []Violation) {
	sort.SliceStable(v, func(i, j int) bool {
		si, sj := v[i].ToFlow, v[j].ToFlow
		if len(si) == 0 || len(sj) == 0 {
			return len(si) > len(sj)
		}
		if si[0].Location != sj[0].Location {
			return si[0].Location < sj[0].Location
		}
		if len(v[i].FromFlow) == 0 || len(v[j].FromFlow) == 0 {
			return len(v[i].FromFlow) > len(v[j].FromFlow)
		}
		return v[i].FromFlow[0].Location < v[j].FromFlow[0].Location
	})
}
