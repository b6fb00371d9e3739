package detector

import (
	"strings"

	"github.com/xkilldash9x/scalpel-extaint/internal/ast"
)

// memberPath renders a (possibly chained) MemberExpression/Identifier/
// CallExpression callee as its dotted textual path, e.g.
// "chrome.storage.local.get". A computed segment (`obj[x]`) renders as
// "*", so a table lookup on it simply misses rather than panicking.
func memberPath(n *ast.Node) []string {
	if n == nil {
		return nil
	}
	switch n.Type {
	case "Identifier":
		return []string{n.Name}
	case "ThisExpression":
		return []string{"this"}
	case "MemberExpression":
		base := memberPath(n.Field("object"))
		if n.Computed {
			return append(base, "*")
		}
		if prop := n.Field("property"); prop != nil {
			return append(base, prop.Text())
		}
		return base
	case "CallExpression", "NewExpression":
		return memberPath(n.Field("callee"))
	}
	return nil
}

func pathString(parts []string) string { return strings.Join(parts, ".") }

// resolveSink looks path up in the sink table, falling back to its
// trailing segment for a DOM-kind entry: a chrome.* or window.* sink is a
// fixed global path ("chrome.tabs.sendMessage"), but a DOM property sink
// (innerHTML, insertAdjacentHTML, ...) is registered by property name
// alone since it can be invoked through any receiver - an element
// variable, `document.body`, an iframe's contentDocument - not just one
// fixed object chain.
func resolveSink(tables *Tables, path string) (SinkDefinition, bool) {
	if sd, ok := tables.Sinks[path]; ok {
		return sd, true
	}
	if i := strings.LastIndex(path, "."); i >= 0 {
		if sd, ok := tables.Sinks[path[i+1:]]; ok && sd.Kind == SinkDOM {
			return sd, true
		}
	}
	return SinkDefinition{}, false
}

// rootIdentifier returns the leftmost Identifier in a member-access
// chain: for `sender.tab.url`, that's `sender`.
func rootIdentifier(n *ast.Node) *ast.Node {
	for n != nil {
		switch n.Type {
		case "Identifier":
			return n
		case "MemberExpression":
			n = n.Field("object")
		default:
			return nil
		}
	}
	return nil
}
