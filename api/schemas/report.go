// Package schemas is the stable wire contract for scalpel-extaint's
// output: the per-extension report shape external tooling (CI checks,
// SARIF converters, dashboards) can depend on without importing the
// analyzer engine itself. Every type here is a direct alias of the
// producing package's own type, so the engine and its public contract
// can never drift out of sync with each other.
package schemas

import (
	"github.com/xkilldash9x/scalpel-extaint/internal/aggregate"
	"github.com/xkilldash9x/scalpel-extaint/internal/dataflow"
	"github.com/xkilldash9x/scalpel-extaint/internal/detector"
)

// Report is one extension's complete analysis output.
type Report = aggregate.Report

// Benchmark is one background-page or content-script analysis result
// within a Report.
type Benchmark = aggregate.Benchmark

// CodeStats summarizes identifier naming across one analyzed file.
type CodeStats = aggregate.CodeStats

// StorageAccessCounts tallies chrome.storage.* reads and writes by area.
type StorageAccessCounts = aggregate.StorageAccessCounts

// Violation is one detected message-channel taint flow.
type Violation = detector.Violation

// Category identifies which of spec §4.4's violation classes a Violation
// belongs to.
type Category = detector.Category

// Flow is a single hop of tainted data, shaped for direct serialization.
type Flow = dataflow.Flow

const (
	Cat41Exfiltration = detector.Cat41Exfiltration
	Cat41Infiltration = detector.Cat41Infiltration
	Cat42             = detector.Cat42
	Cat43             = detector.Cat43
	Cat31             = detector.Cat31
)
