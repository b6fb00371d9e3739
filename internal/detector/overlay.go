package detector

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// overlayDoc mirrors Tables' shape for YAML decoding; detector.source_table_path
// and detector.sink_table_path each point at one of these, letting an
// operator extend or replace the built-in profile without a rebuild.
type overlayDoc struct {
	Version string `yaml:"version"`
	Sources []struct {
		Path string `yaml:"path"`
		Kind string `yaml:"kind"`
	} `yaml:"sources"`
	Sinks []struct {
		Path        string `yaml:"path"`
		Kind        string `yaml:"kind"`
		TaintedArgs []int  `yaml:"tainted_args"`
	} `yaml:"sinks"`
	SenderGuards []string `yaml:"sender_guards"`
}

// LoadOverlay merges a YAML table document at path into t, overriding
// any entry with the same key and adding the rest. An empty path is a
// no-op, matching detector.source_table_path/sink_table_path defaulting
// to "" (built-in tables only).
func LoadOverlay(t *Tables, path string) error {
	if path == "" {
		return nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("detector: reading table overlay %s: %w", path, err)
	}
	var doc overlayDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("detector: parsing table overlay %s: %w", path, err)
	}
	if doc.Version != "" {
		t.Version = doc.Version
	}
	for _, s := range doc.Sources {
		t.Sources[s.Path] = SourceDefinition{Path: s.Path, Kind: SourceKind(s.Kind)}
	}
	for _, s := range doc.Sinks {
		t.Sinks[s.Path] = SinkDefinition{Path: s.Path, Kind: SinkKind(s.Kind), TaintedArgs: s.TaintedArgs}
	}
	for _, g := range doc.SenderGuards {
		t.SenderGuards[g] = true
	}
	return nil
}
