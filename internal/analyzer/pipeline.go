package analyzer

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/xkilldash9x/scalpel-extaint/internal/ast"
	"github.com/xkilldash9x/scalpel-extaint/internal/config"
	"github.com/xkilldash9x/scalpel-extaint/internal/dataflow"
	"github.com/xkilldash9x/scalpel-extaint/internal/detector"
	"github.com/xkilldash9x/scalpel-extaint/internal/observability"
	"github.com/xkilldash9x/scalpel-extaint/internal/parser"
	"github.com/xkilldash9x/scalpel-extaint/internal/pdg"
	"github.com/xkilldash9x/scalpel-extaint/internal/scope"
)

// FileResult is one file's fully-analyzed output: its violations plus
// whatever recoverable errors the pipeline hit along the way.
type FileResult struct {
	File           string
	Root           *ast.Node
	Violations     []detector.Violation
	Truncated      bool
	ParseError     *Error
	ResolveErrors  []*Error
	Crash          *Error
}

// Pipeline runs one file through parser -> scope -> pdg -> dataflow ->
// detector.
type Pipeline struct {
	Source     parser.Source
	Tables     *detector.Tables
	Analyzer   config.AnalyzerConfig
	Detector   config.DetectorConfig
}

// NewPipeline builds a Pipeline from a resolved parser.Source and the
// analyzer/detector configuration sections.
func NewPipeline(src parser.Source, tables *detector.Tables, ac config.AnalyzerConfig, dc config.DetectorConfig) *Pipeline {
	return &Pipeline{Source: src, Tables: tables, Analyzer: ac, Detector: dc}
}

// RunFile analyzes one source file. A ParseFailure or GraphLimit never
// aborts the extension: RunFile always returns a FileResult, recording
// the failure on it instead of an error, per spec.md §7's file-level
// and flow-level recovery granularities.
func (p *Pipeline) RunFile(ctx context.Context, file string, sourceType parser.SourceType) *FileResult {
	arena := NewArena(file)
	_ = arena

	root, err := p.Source.Parse(ctx, file, sourceType)
	if err != nil {
		return &FileResult{File: file, ParseError: newError(ClassParseFailure, file, "", err)}
	}

	res := &FileResult{File: file, Root: root}

	sf, err := scope.NewResolver().Resolve(file, root)
	if err != nil {
		res.ResolveErrors = append(res.ResolveErrors, newError(ClassResolveFailure, file, "", err))
	}
	for _, bad := range sf.Unresolvable {
		res.ResolveErrors = append(res.ResolveErrors, newError(ClassResolveFailure, file, "",
			fmt.Errorf("function at %d:%d could not be resolved (contains `with`)", bad.Loc.Start.Line, bad.Loc.Start.Column)))
	}

	graph, err := pdg.Build(file, root, sf, p.Analyzer.MaxPDGNodes)
	if err != nil {
		return res
	}
	if graph.Truncated {
		res.Truncated = true
		observability.GetLogger().Warn("pdg truncated at node budget",
			zap.String("file", file), zap.Int("limit", p.Analyzer.MaxPDGNodes))
	}

	eng := dataflow.New(graph, sf, p.Analyzer.MaxFlowDepth)
	det := detector.New(p.Tables, file, p.Analyzer.Include31Violations)
	res.Violations = det.Detect(root, sf, eng)

	return res
}
