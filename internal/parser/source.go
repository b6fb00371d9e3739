// Package parser is the pluggable AST-ingest boundary: it turns extension
// source files into internal/ast trees without the rest of the analyzer
// ever needing to know whether that happened in-process or via an
// external converter.
package parser

import (
	"context"

	"github.com/xkilldash9x/scalpel-extaint/internal/ast"
)

// SourceType mirrors the three modes the external parser contract (§6)
// accepts.
type SourceType string

const (
	SourceScript   SourceType = "script"
	SourceModule   SourceType = "module"
	SourceCommonJS SourceType = "commonjs"
)

// Source is the ingest boundary. Two implementations ship: TreeSitterSource
// (default, in-process) and SubprocessSource (the literal external-process
// contract from §6). Both populate the identical ast.Node shape.
type Source interface {
	// Parse reads sourcePath and returns its AST, with node ids already
	// assigned in a single pre-order pass.
	Parse(ctx context.Context, sourcePath string, sourceType SourceType) (*ast.Node, error)
}
