package analyzer

import (
	"context"
	"fmt"
	"path/filepath"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xkilldash9x/scalpel-extaint/internal/extension"
	"github.com/xkilldash9x/scalpel-extaint/internal/observability"
	"github.com/xkilldash9x/scalpel-extaint/internal/parser"
)

// ExtensionResult is one extension's complete analysis: per-file
// results for the background context and every content-script bundle,
// plus a crash record if an internal invariant was violated.
type ExtensionResult struct {
	ID              string
	ManifestVersion int
	Background      []*FileResult
	ContentScripts  []*FileResult
	Crash           *Error
}

// AnalyzeExtension runs every background and content-script file of ext
// through p, bounded by intraConcurrency goroutines (SPEC_FULL.md's
// intra-extension worker pool). A panic in the pipeline — an
// InternalInvariantViolation — is recovered rather than propagated: one
// inside a file's analysis by safeRunFile, recorded on that file's
// FileResult.Crash; any other here, recorded on ExtensionResult.Crash.
// So one malformed file never takes down a batch analysis run.
func AnalyzeExtension(ctx context.Context, ext *extension.Extension, p *Pipeline, intraConcurrency int) (res *ExtensionResult) {
	res = &ExtensionResult{ID: ext.ID, ManifestVersion: ext.Manifest.ManifestVersion}

	defer func() {
		if r := recover(); r != nil {
			res.Crash = newError(ClassInternalInvariantViolation, "", ext.ID, fmt.Errorf("%v", r))
			observability.GetLogger().Error("extension analysis crashed",
				zap.String("extension", ext.ID), zap.Any("panic", r))
		}
	}()

	g, gctx := errgroup.WithContext(ctx)
	if intraConcurrency <= 0 {
		intraConcurrency = 2
	}
	g.SetLimit(intraConcurrency)

	bg := make([]*FileResult, len(ext.Background))
	for i, f := range ext.Background {
		i, f := i, f
		g.Go(func() error {
			bg[i] = safeRunFile(gctx, p, f, sourceTypeFor(ext, f))
			return nil
		})
	}
	cs := make([]*FileResult, len(ext.ContentJS))
	for i, f := range ext.ContentJS {
		i, f := i, f
		g.Go(func() error {
			cs[i] = safeRunFile(gctx, p, f, sourceTypeFor(ext, f))
			return nil
		})
	}
	_ = g.Wait()

	res.Background = bg
	res.ContentScripts = cs
	return res
}

// safeRunFile recovers a panic in a single file's pipeline (an
// InternalInvariantViolation) so it never crosses the goroutine
// boundary: Go panics recovered in a caller's defer never catch a
// panic raised in a different goroutine, so each worker goroutine must
// recover its own.
func safeRunFile(ctx context.Context, p *Pipeline, file string, st parser.SourceType) (res *FileResult) {
	defer func() {
		if r := recover(); r != nil {
			res = &FileResult{File: file, Crash: newError(ClassInternalInvariantViolation, file, "", fmt.Errorf("%v", r))}
			observability.GetLogger().Error("file analysis crashed", zap.String("file", file), zap.Any("panic", r))
		}
	}()
	return p.RunFile(ctx, file, st)
}

func sourceTypeFor(ext *extension.Extension, file string) parser.SourceType {
	switch ext.SourceType(file) {
	case "module":
		return parser.SourceModule
	default:
		return parser.SourceScript
	}
}

// FileLabel returns a short, extension-relative label for a file path,
// used in log lines and report keys.
func FileLabel(ext *extension.Extension, file string) string {
	rel, err := filepath.Rel(ext.Dir, file)
	if err != nil {
		return file
	}
	return rel
}
