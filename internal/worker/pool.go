// Package worker runs the extension-level fan-out spec.md §5 describes:
// one errgroup-bounded pool per analysis run, each slot calling into
// internal/analyzer's own intra-extension pool. Two independent limits
// compose without either one starving the other, since the intra pool's
// SetLimit only bounds goroutines within a single extension's slot.
package worker

import (
	"context"
	"runtime"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xkilldash9x/scalpel-extaint/internal/analyzer"
	"github.com/xkilldash9x/scalpel-extaint/internal/extension"
	"github.com/xkilldash9x/scalpel-extaint/internal/observability"
)

// Pool runs a batch of extensions concurrently, each bounded by its own
// timeout and its own intra-extension worker limit.
type Pool struct {
	Pipeline              *analyzer.Pipeline
	ExtensionConcurrency  int
	IntraExtensionConcurrency int
	ExtensionTimeout      time.Duration
}

// New builds a Pool. extensionConcurrency <= 0 defaults to half the
// available CPUs (rounded up, minimum 1), matching engine.extension_concurrency's
// documented "0 means half of NumCPU" default.
func New(p *analyzer.Pipeline, extensionConcurrency, intraConcurrency int, timeout time.Duration) *Pool {
	if extensionConcurrency <= 0 {
		extensionConcurrency = (runtime.NumCPU() + 1) / 2
		if extensionConcurrency < 1 {
			extensionConcurrency = 1
		}
	}
	return &Pool{
		Pipeline:                  p,
		ExtensionConcurrency:      extensionConcurrency,
		IntraExtensionConcurrency: intraConcurrency,
		ExtensionTimeout:          timeout,
	}
}

// Run analyzes every extension in exts, returning one ExtensionResult
// per input in the same order.
func (p *Pool) Run(ctx context.Context, exts []*extension.Extension) []*analyzer.ExtensionResult {
	results := make([]*analyzer.ExtensionResult, len(exts))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.ExtensionConcurrency)

	for i, ext := range exts {
		i, ext := i, ext
		g.Go(func() error {
			taskCtx := gctx
			var cancel context.CancelFunc
			if p.ExtensionTimeout > 0 {
				taskCtx, cancel = context.WithTimeout(gctx, p.ExtensionTimeout)
				defer cancel()
			}
			results[i] = analyzer.AnalyzeExtension(taskCtx, ext, p.Pipeline, p.IntraExtensionConcurrency)
			if taskCtx.Err() != nil {
				observability.GetLogger().Warn("extension analysis timed out",
					zap.String("extension", ext.ID), zap.Duration("timeout", p.ExtensionTimeout))
			}
			return nil
		})
	}
	_ = g.Wait()
	return results
}
