package analyzer

// Arena marks the per-file boundary of one analysis task, per
// SPEC_FULL.md's "arena+edge-record PDG storage" redesign note. It holds
// only the file path: the parsed AST, scope tree, PDG and data-flow cache
// are not stored on it, and Go's GC reclaims them (including the PDG's
// cyclic control-flow graph) once a file's analysis is done.
type Arena struct {
	File string
}

// NewArena starts a fresh Arena for one file.
func NewArena(file string) *Arena { return &Arena{File: file} }
