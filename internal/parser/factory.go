package parser

import (
	"fmt"
	"time"
)

// New selects a Source implementation by name, per the `analyzer.parser`
// configuration option (§6: "the parser is pluggable; a well-defined AST
// schema is the contract").
func New(name, command string, timeoutSeconds int) (Source, error) {
	switch name {
	case "", "treesitter":
		return NewTreeSitterSource(), nil
	case "subprocess":
		return NewSubprocessSource(command, time.Duration(timeoutSeconds)*time.Second), nil
	default:
		return nil, fmt.Errorf("parser: unknown parser %q", name)
	}
}
