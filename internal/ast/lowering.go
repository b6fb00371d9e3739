package ast

import (
	"encoding/json"
	"fmt"
	"sort"
)

// FromESTreeJSON decodes the external AST-parser's JSON document (§6:
// nodes carrying type/range/loc plus kind-specific fields) into a Node
// tree. It is the lowering step used by parser.SubprocessSource; the
// in-process tree-sitter path lowers directly from the parse tree instead
// (see parser.TreeSitterSource) and never touches this function.
func FromESTreeJSON(file string, doc []byte) (*Node, error) {
	var raw any
	if err := json.Unmarshal(doc, &raw); err != nil {
		return nil, fmt.Errorf("ast: decoding parser output for %s: %w", file, err)
	}
	m, ok := raw.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("ast: parser output for %s is not a JSON object", file)
	}
	root, err := lowerNode(file, m)
	if err != nil {
		return nil, err
	}
	SetParents(root)
	return root, nil
}

func isNodeShaped(v any) (map[string]any, bool) {
	m, ok := v.(map[string]any)
	if !ok {
		return nil, false
	}
	_, ok = m["type"].(string)
	return m, ok
}

func lowerNode(file string, m map[string]any) (*Node, error) {
	typ, _ := m["type"].(string)
	if typ == "" {
		return nil, fmt.Errorf("ast: node in %s missing \"type\"", file)
	}

	n := New(typ, file, decodeRange(m["range"]), decodeLoc(m["loc"]))

	for key, val := range m {
		switch key {
		case "type", "range", "loc", "start", "end":
			continue
		case "name":
			if s, ok := val.(string); ok {
				n.Name = s
			}
		case "raw":
			if s, ok := val.(string); ok {
				n.Raw = s
			}
		case "operator":
			if s, ok := val.(string); ok {
				n.Operator = s
			}
		case "kind":
			if s, ok := val.(string); ok {
				n.Kind = s
			}
		case "computed":
			if b, ok := val.(bool); ok {
				n.Computed = b
			}
		case "static":
			if b, ok := val.(bool); ok {
				n.Static = b
			}
		case "prefix":
			if b, ok := val.(bool); ok {
				n.Prefix = b
			}
		case "optional":
			if b, ok := val.(bool); ok {
				n.Optional = b
			}
		case "value":
			if child, ok := isNodeShaped(val); ok {
				c, err := lowerNode(file, child)
				if err != nil {
					return nil, err
				}
				Attach(n, key, c)
			} else {
				n.Value = val
			}
		default:
			if err := lowerField(file, n, key, val); err != nil {
				return nil, err
			}
		}
	}

	sortKidsBySourceOrder(n)
	return n, nil
}

func lowerField(file string, parent *Node, key string, val any) error {
	switch v := val.(type) {
	case map[string]any:
		if child, ok := isNodeShaped(v); ok {
			c, err := lowerNode(file, child)
			if err != nil {
				return err
			}
			Attach(parent, key, c)
		}
	case []any:
		var children []*Node
		allNodes := true
		for _, elem := range v {
			child, ok := isNodeShaped(elem)
			if !ok {
				if elem != nil {
					allNodes = false
				}
				children = append(children, nil)
				continue
			}
			c, err := lowerNode(file, child)
			if err != nil {
				return err
			}
			children = append(children, c)
		}
		if allNodes {
			AttachList(parent, key, children)
		}
	}
	return nil
}

// sortKidsBySourceOrder re-orders a node's Kids by source range so that
// generic "all children" traversal (CFG construction, generic walks) sees
// them in source order regardless of the JSON field iteration order Go's
// map randomizes. FieldName/Index-based lookups (Field/FieldList) are
// unaffected since those key off the stored FieldName/Index, not slice
// position among unrelated fields.
func sortKidsBySourceOrder(n *Node) {
	sort.SliceStable(n.Kids, func(i, j int) bool {
		a, b := n.Kids[i], n.Kids[j]
		if a.Range[0] != b.Range[0] {
			return a.Range[0] < b.Range[0]
		}
		if a.Range[1] != b.Range[1] {
			return a.Range[1] < b.Range[1]
		}
		return a.FieldName < b.FieldName
	})
}

func decodeRange(v any) [2]int {
	arr, ok := v.([]any)
	if !ok || len(arr) != 2 {
		return [2]int{}
	}
	start, _ := arr[0].(float64)
	end, _ := arr[1].(float64)
	return [2]int{int(start), int(end)}
}

func decodePosition(v any) Position {
	m, ok := v.(map[string]any)
	if !ok {
		return Position{}
	}
	line, _ := m["line"].(float64)
	col, _ := m["column"].(float64)
	return Position{Line: int(line), Column: int(col)}
}

func decodeLoc(v any) Loc {
	m, ok := v.(map[string]any)
	if !ok {
		return Loc{}
	}
	return Loc{Start: decodePosition(m["start"]), End: decodePosition(m["end"])}
}
