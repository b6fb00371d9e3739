// Package aggregate turns a batch of analyzer.ExtensionResult values
// into the per-extension JSON report spec.md §6 defines: code_stats,
// exfiltration/infiltration_dangers, 31_violations_without_sensitive_api_access,
// and extension_storage_accesses.
package aggregate

import (
	"github.com/xkilldash9x/scalpel-extaint/internal/ast"
)

// CodeStats summarizes identifier naming across one file's AST: the
// original DoubleX tool reports these as a lightweight proxy for
// obfuscation (short, single-character identifier names correlate with
// minified/obfuscated extension code, which the detector's static
// tables are more likely to miss).
type CodeStats struct {
	IdentifierCount        int     `json:"identifier_count"`
	AverageIdentifierLength float64 `json:"average_identifier_length"`
	SingleCharIdentifierPct float64 `json:"single_char_identifier_pct"`
}

// ComputeCodeStats walks root once, tallying every Identifier's name
// length.
func ComputeCodeStats(root *ast.Node) CodeStats {
	var count, totalLen, singleChar int
	ast.Walk(root, func(n *ast.Node) {
		if !n.IsIdentifier() || n.Name == "" {
			return
		}
		count++
		totalLen += len(n.Name)
		if len(n.Name) == 1 {
			singleChar++
		}
	})
	if count == 0 {
		return CodeStats{}
	}
	return CodeStats{
		IdentifierCount:         count,
		AverageIdentifierLength: float64(totalLen) / float64(count),
		SingleCharIdentifierPct: float64(singleChar) / float64(count) * 100,
	}
}
