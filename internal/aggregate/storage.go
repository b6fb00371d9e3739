package aggregate

import "github.com/xkilldash9x/scalpel-extaint/internal/ast"

// StorageAccessCounts tallies chrome.storage.* reads and writes by area
// (local/sync/session), the extension_storage_accesses side-channel
// spec.md §6 asks for alongside the exfiltration/infiltration findings.
type StorageAccessCounts struct {
	Reads  map[string]int `json:"reads"`
	Writes map[string]int `json:"writes"`
}

// ComputeStorageAccesses walks root counting chrome.storage.<area> call
// sites: get/getBytesInUse as reads, set/remove/clear as writes.
func ComputeStorageAccesses(root *ast.Node) StorageAccessCounts {
	c := StorageAccessCounts{Reads: map[string]int{}, Writes: map[string]int{}}
	ast.Walk(root, func(n *ast.Node) {
		if n.Type != "CallExpression" {
			return
		}
		path := memberPath(n.Field("callee"))
		if len(path) != 4 || path[0] != "chrome" || path[1] != "storage" {
			return
		}
		area, method := path[2], path[3]
		switch method {
		case "get", "getBytesInUse":
			c.Reads[area]++
		case "set", "remove", "clear":
			c.Writes[area]++
		}
	})
	return c
}

func memberPath(n *ast.Node) []string {
	if n == nil {
		return nil
	}
	switch n.Type {
	case "Identifier":
		return []string{n.Name}
	case "MemberExpression":
		if n.Computed {
			return append(memberPath(n.Field("object")), "*")
		}
		if prop := n.Field("property"); prop != nil {
			return append(memberPath(n.Field("object")), prop.Text())
		}
	}
	return nil
}
