package scope

import (
	"fmt"

	"github.com/xkilldash9x/scalpel-extaint/internal/ast"
)

// ResolveError reports a scope-resolution inconsistency (§7:
// ResolveFailure). Recovery is at function granularity: the offending
// function's subtree is skipped and analysis continues with the rest of
// the file.
type ResolveError struct {
	File string
	Node *ast.Node
	Msg  string
}

func (e *ResolveError) Error() string {
	line := 0
	if e.Node != nil {
		line = e.Node.Loc.Start.Line
	}
	return fmt.Sprintf("scope: %s:%d: %s", e.File, line, e.Msg)
}
