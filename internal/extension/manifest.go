// Package extension models a browser extension's manifest.json well
// enough to discover which files to analyze: the background service
// worker/scripts and every content script bundle, plus the handful of
// manifest fields the aggregator reports alongside its findings.
package extension

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// ContentScript is one entry of manifest.json's content_scripts array.
type ContentScript struct {
	Matches []string `json:"matches"`
	JS      []string `json:"js"`
}

// Manifest is the subset of manifest.json this analyzer reads.
type Manifest struct {
	ManifestVersion int    `json:"manifest_version"`
	Name            string `json:"name"`
	Version         string `json:"version"`
	Background      struct {
		ServiceWorker string   `json:"service_worker"`
		Scripts       []string `json:"scripts"`
	} `json:"background"`
	ContentScripts []ContentScript `json:"content_scripts"`
}

// Extension is one loaded manifest plus the directory it came from, and
// its resolved absolute file lists.
type Extension struct {
	ID          string
	Dir         string
	Manifest    Manifest
	Background  []string
	ContentJS   []string
}

// Load reads manifest.json from dir and resolves its background /
// content-script file lists to absolute paths.
func Load(dir string) (*Extension, error) {
	data, err := os.ReadFile(filepath.Join(dir, "manifest.json"))
	if err != nil {
		return nil, fmt.Errorf("extension: reading manifest in %s: %w", dir, err)
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("extension: parsing manifest in %s: %w", dir, err)
	}

	e := &Extension{ID: filepath.Base(dir), Dir: dir, Manifest: m}

	if m.Background.ServiceWorker != "" {
		e.Background = append(e.Background, filepath.Join(dir, m.Background.ServiceWorker))
	}
	for _, s := range m.Background.Scripts {
		e.Background = append(e.Background, filepath.Join(dir, s))
	}
	for _, cs := range m.ContentScripts {
		for _, s := range cs.JS {
			e.ContentJS = append(e.ContentJS, filepath.Join(dir, s))
		}
	}
	return e, nil
}

// SourceType auto-detects the ECMAScript source type for a background
// entry point: an MV3 service_worker (and any MV2 background script
// declared with "type": "module" is out of scope for this heuristic,
// per SPEC_FULL.md's supplemented source_type auto-detection) is a
// module; a classic MV2 background script and every content script are
// plain scripts.
func (e *Extension) SourceType(path string) string {
	if e.Manifest.ManifestVersion == 3 && e.Manifest.Background.ServiceWorker != "" &&
		filepath.Join(e.Dir, e.Manifest.Background.ServiceWorker) == path {
		return "module"
	}
	return "script"
}
