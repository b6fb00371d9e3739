package parser

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/xkilldash9x/scalpel-extaint/internal/ast"
)

// SubprocessSource implements the literal external-collaborator contract
// of §6: it invokes an external converter as
// `command source_path output_json_path source_type`, waits for it to
// exit 0, and decodes its JSON document. Selected with
// `analyzer.parser: subprocess` and `analyzer.parser_command`.
type SubprocessSource struct {
	// Command is the converter binary/script to invoke.
	Command string
	// Timeout bounds the subprocess's own smaller timeout (§5): on
	// expiry the affected file is marked uncompilable, not the whole
	// extension.
	Timeout time.Duration
}

// NewSubprocessSource constructs a Source backed by an external converter.
func NewSubprocessSource(command string, timeout time.Duration) *SubprocessSource {
	return &SubprocessSource{Command: command, Timeout: timeout}
}

func (s *SubprocessSource) Parse(ctx context.Context, sourcePath string, sourceType SourceType) (*ast.Node, error) {
	if s.Command == "" {
		return nil, fmt.Errorf("parser: subprocess source has no command configured")
	}

	outFile, err := os.CreateTemp("", "scalpel-extaint-ast-*.json")
	if err != nil {
		return nil, fmt.Errorf("parser: creating temp output for %s: %w", sourcePath, err)
	}
	outPath := outFile.Name()
	outFile.Close()
	defer os.Remove(outPath)

	timeout := s.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, s.Command, sourcePath, outPath, string(sourceType))
	stderr, err := cmd.CombinedOutput()
	if err != nil {
		return nil, fmt.Errorf("parser: converter failed on %s: %w (stderr: %s)", sourcePath, err, stderr)
	}

	doc, err := os.ReadFile(outPath)
	if err != nil {
		return nil, fmt.Errorf("parser: reading converter output for %s: %w", sourcePath, err)
	}

	root, err := ast.FromESTreeJSON(filepath.Clean(sourcePath), doc)
	if err != nil {
		return nil, fmt.Errorf("parser: lowering converter output for %s: %w", sourcePath, err)
	}
	ast.AssignIDs(root, 1)
	if src, err := os.ReadFile(sourcePath); err == nil {
		root.SourceLines = ast.SplitSourceLines(src)
	}
	return root, nil
}
