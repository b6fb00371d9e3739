package scope

import "github.com/xkilldash9x/scalpel-extaint/internal/ast"

// leafIdentifiers walks a binding pattern (Identifier, ObjectPattern,
// ArrayPattern, AssignmentPattern, RestElement) and calls declare for
// every leaf Identifier. Default-value expressions on the right side of
// an AssignmentPattern are never visited here: they are ordinary uses,
// resolved in the normal occurrence pass, not declarations.
func leafIdentifiers(pattern *ast.Node, declare func(*ast.Node)) {
	if pattern == nil {
		return
	}
	switch pattern.Type {
	case "Identifier":
		declare(pattern)
	case "AssignmentPattern":
		leafIdentifiers(pattern.Field("left"), declare)
	case "RestElement", "SpreadElement":
		leafIdentifiers(pattern.Field("argument"), declare)
	case "ArrayPattern":
		for _, el := range pattern.FieldList("elements") {
			leafIdentifiers(el, declare)
		}
	case "ObjectPattern":
		for _, prop := range pattern.FieldList("properties") {
			switch prop.Type {
			case "RestElement", "SpreadElement":
				leafIdentifiers(prop.Field("argument"), declare)
			case "Property":
				// The key of a non-computed destructuring property is not
				// itself an occurrence; only its value pattern is.
				if v := prop.Field("value"); v != nil {
					leafIdentifiers(v, declare)
				} else if k := prop.Field("key"); k != nil && k.Type == "Identifier" {
					// Shorthand `{a}` — key and value are the same binding.
					declare(k)
				}
			}
		}
	}
}
