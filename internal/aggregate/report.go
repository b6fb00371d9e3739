package aggregate

import (
	"github.com/xkilldash9x/scalpel-extaint/internal/analyzer"
	"github.com/xkilldash9x/scalpel-extaint/internal/detector"
	"github.com/xkilldash9x/scalpel-extaint/internal/extension"
)

// Benchmark is one analyzed context's (background page or content
// script) findings, matching the "bp"/"cs" keys of spec.md §6's
// benchmarks object.
type Benchmark struct {
	File                             string               `json:"file"`
	CodeStats                        CodeStats            `json:"code_stats"`
	ExfiltrationDangers              []detector.Violation `json:"exfiltration_dangers"`
	InfiltrationDangers              []detector.Violation `json:"infiltration_dangers"`
	ViolationsWithoutSensitiveAccess []detector.Violation `json:"31_violations_without_sensitive_api_access"`
	ExtensionStorageAccesses         StorageAccessCounts  `json:"extension_storage_accesses"`
	Truncated                        bool                 `json:"truncated,omitempty"`
	ParseFailed                      bool                 `json:"parse_failed,omitempty"`
}

// Report is one extension's complete output document.
type Report struct {
	Extension                 string      `json:"extension"`
	ManifestVersion           int         `json:"manifest_version"`
	ContentScriptInjectedInto []string    `json:"content_script_injected_into"`
	Benchmarks                struct {
		BP []Benchmark `json:"bp"`
		CS []Benchmark `json:"cs"`
	} `json:"benchmarks"`
	Crashed bool `json:"crashed,omitempty"`
}

// BuildReport assembles one extension's Report from its ExtensionResult
// and the Extension it was loaded from (for manifest-derived fields like
// content_script_injected_into, which the analyzer pipeline itself never
// needs to know about).
func BuildReport(res *analyzer.ExtensionResult, ext *extension.Extension) Report {
	var r Report
	r.Extension = res.ID
	r.ManifestVersion = res.ManifestVersion
	r.Crashed = res.Crash != nil
	r.ContentScriptInjectedInto = matchPatterns(ext)

	for _, fr := range res.Background {
		r.Benchmarks.BP = append(r.Benchmarks.BP, buildBenchmark(fr))
	}
	for _, fr := range res.ContentScripts {
		r.Benchmarks.CS = append(r.Benchmarks.CS, buildBenchmark(fr))
	}
	return r
}

func matchPatterns(ext *extension.Extension) []string {
	if ext == nil {
		return nil
	}
	seen := map[string]bool{}
	var out []string
	for _, cs := range ext.Manifest.ContentScripts {
		for _, m := range cs.Matches {
			if seen[m] {
				continue
			}
			seen[m] = true
			out = append(out, m)
		}
	}
	return out
}

func buildBenchmark(fr *analyzer.FileResult) Benchmark {
	b := Benchmark{File: fr.File}
	if fr.ParseError != nil {
		b.ParseFailed = true
		return b
	}
	if fr.Root != nil {
		b.CodeStats = ComputeCodeStats(fr.Root)
		b.ExtensionStorageAccesses = ComputeStorageAccesses(fr.Root)
	}
	b.Truncated = fr.Truncated
	for _, v := range fr.Violations {
		switch v.Category {
		case detector.Cat41Exfiltration:
			b.ExfiltrationDangers = append(b.ExfiltrationDangers, v)
		case detector.Cat41Infiltration, detector.Cat42:
			b.InfiltrationDangers = append(b.InfiltrationDangers, v)
		case detector.Cat43:
			b.ExfiltrationDangers = append(b.ExfiltrationDangers, v)
		case detector.Cat31:
			b.ViolationsWithoutSensitiveAccess = append(b.ViolationsWithoutSensitiveAccess, v)
		}
	}
	return b
}
