// Package analyzer wires internal/parser, internal/scope, internal/pdg,
// internal/dataflow, and internal/detector into the per-file and
// per-extension pipeline, and defines the error taxonomy each stage
// reports at, per spec.md §7.
package analyzer

import "fmt"

// ErrorClass distinguishes the six recovery granularities spec.md §7
// names: a class determines how much work is discarded when a stage
// fails, not just what went wrong.
type ErrorClass string

const (
	// ClassParseFailure: one file could not be parsed. Recovery is
	// file-level — the rest of the extension's files still get analyzed.
	ClassParseFailure ErrorClass = "PARSE_FAILURE"
	// ClassResolveFailure: one function subtree could not be resolved
	// (e.g. it uses `with`). Recovery is function-subtree-level.
	ClassResolveFailure ErrorClass = "RESOLVE_FAILURE"
	// ClassGraphLimit: a file's PDG hit analyzer.max_pdg_nodes. Recovery
	// is flow-level — the graph is marked Truncated and still analyzed,
	// not discarded.
	ClassGraphLimit ErrorClass = "GRAPH_LIMIT"
	// ClassTimeout: an extension exceeded engine.extension_timeout.
	// Recovery is extension-level.
	ClassTimeout ErrorClass = "TIMEOUT"
	// ClassIOFailure: a filesystem/manifest read failed. Surfaced to the
	// caller; not recoverable within the pipeline.
	ClassIOFailure ErrorClass = "IO_FAILURE"
	// ClassInternalInvariantViolation: a PDG/scope invariant the pipeline
	// assumes was violated. A panic inside one file's analysis is
	// recovered per file and recorded on that FileResult, and the
	// extension's other files still run; a panic outside the per-file
	// goroutines is recovered at the extension boundary and recorded on
	// the ExtensionResult. Neither is propagated.
	ClassInternalInvariantViolation ErrorClass = "INTERNAL_INVARIANT_VIOLATION"
)

// Error is the analyzer's structured error type: every stage wraps its
// failures in one of these so the orchestrator can decide how much to
// discard without string-matching error text.
type Error struct {
	Class    ErrorClass
	File     string
	Extension string
	Err      error
}

func (e *Error) Error() string {
	if e.File != "" {
		return fmt.Sprintf("analyzer[%s]: %s: %v", e.Class, e.File, e.Err)
	}
	return fmt.Sprintf("analyzer[%s]: %s: %v", e.Class, e.Extension, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

func newError(class ErrorClass, file, extension string, err error) *Error {
	return &Error{Class: class, File: file, Extension: extension, Err: err}
}
