package worker_test

import (
	"context"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/xkilldash9x/scalpel-extaint/internal/analyzer"
	"github.com/xkilldash9x/scalpel-extaint/internal/ast"
	"github.com/xkilldash9x/scalpel-extaint/internal/config"
	"github.com/xkilldash9x/scalpel-extaint/internal/detector"
	"github.com/xkilldash9x/scalpel-extaint/internal/extension"
	"github.com/xkilldash9x/scalpel-extaint/internal/parser"
	"github.com/xkilldash9x/scalpel-extaint/internal/worker"
)

func testAnalyzerConfig() config.AnalyzerConfig {
	return config.AnalyzerConfig{MaxPDGNodes: 1000, MaxFlowDepth: 32, Parser: "treesitter"}
}

func testDetectorConfig() config.DetectorConfig {
	return config.DetectorConfig{TableVersion: "default-1"}
}

// emptyProgramSource is a parser.Source stub that returns a bare
// Program node, standing in for a real tree-sitter/subprocess parse so
// pool tests exercise the concurrency plumbing without depending on the
// tree-sitter grammar being loadable in a unit test.
type emptyProgramSource struct{}

func (emptyProgramSource) Parse(ctx context.Context, sourcePath string, sourceType parser.SourceType) (*ast.Node, error) {
	root := ast.New("Program", sourcePath, [2]int{0, 0}, ast.Loc{})
	ast.SetParents(root)
	ast.AssignIDs(root, 1)
	return root, nil
}

func TestPool_RunAnalyzesEveryExtensionInOrder(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	tables := detector.NewDefaultTables()
	p := analyzer.NewPipeline(emptyProgramSource{}, tables, testAnalyzerConfig(), testDetectorConfig())
	pool := worker.New(p, 2, 2, 5*time.Second)

	exts := []*extension.Extension{
		{ID: "ext-a", Background: []string{"a/background.js"}},
		{ID: "ext-b", ContentJS: []string{"b/content.js"}},
	}

	results := pool.Run(context.Background(), exts)
	require.Len(t, results, 2)
	assert.Equal(t, "ext-a", results[0].ID)
	assert.Equal(t, "ext-b", results[1].ID)
	assert.Len(t, results[0].Background, 1)
	assert.Len(t, results[1].ContentScripts, 1)
	assert.Nil(t, results[0].Crash)
	assert.Nil(t, results[1].Crash)
}

func TestPool_DefaultExtensionConcurrencyIsHalfNumCPU(t *testing.T) {
	tables := detector.NewDefaultTables()
	p := analyzer.NewPipeline(emptyProgramSource{}, tables, testAnalyzerConfig(), testDetectorConfig())
	pool := worker.New(p, 0, 1, time.Second)
	assert.GreaterOrEqual(t, pool.ExtensionConcurrency, 1)
	assert.Equal(t, (runtime.NumCPU()+1)/2, pool.ExtensionConcurrency)
}
