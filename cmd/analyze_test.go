package cmd

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xkilldash9x/scalpel-extaint/internal/aggregate"
)

func writeExtensionFixture(t *testing.T, dir string) {
	t.Helper()
	manifest := `{
		"manifest_version": 3,
		"name": "fixture",
		"version": "1.0",
		"background": {"service_worker": "background.js"},
		"content_scripts": [{"matches": ["*://*.example.com/*"], "js": ["content.js"]}]
	}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "manifest.json"), []byte(manifest), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "background.js"), []byte("chrome.runtime.onMessage.addListener(function(){});"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "content.js"), []byte("console.log('hi');"), 0o644))
}

func TestLoadExtensions_ResolvesBackgroundAndContentScripts(t *testing.T) {
	dir := t.TempDir()
	writeExtensionFixture(t, dir)

	exts, err := loadExtensions([]string{dir})
	require.NoError(t, err)
	require.Len(t, exts, 1)
	assert.Len(t, exts[0].Background, 1)
	assert.Len(t, exts[0].ContentJS, 1)
	assert.Equal(t, 3, exts[0].Manifest.ManifestVersion)
}

func TestLoadExtensions_PropagatesMissingManifestError(t *testing.T) {
	dir := t.TempDir()
	_, err := loadExtensions([]string{dir})
	assert.Error(t, err)
}

func TestContentHash_StableUntilFileChanges(t *testing.T) {
	dir := t.TempDir()
	writeExtensionFixture(t, dir)
	exts, err := loadExtensions([]string{dir})
	require.NoError(t, err)
	ext := exts[0]

	h1, err := contentHash(ext)
	require.NoError(t, err)
	h2, err := contentHash(ext)
	require.NoError(t, err)
	assert.Equal(t, h1, h2)

	require.NoError(t, os.WriteFile(ext.Background[0], []byte("chrome.storage.local.set({});"), 0o644))
	h3, err := contentHash(ext)
	require.NoError(t, err)
	assert.NotEqual(t, h1, h3)
}

func TestWriteReports_WritesIndentedJSONToFile(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "report.json")
	reports := []aggregate.Report{{Extension: "abc", ManifestVersion: 3}}

	require.NoError(t, writeReports(reports, out))

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	var got []aggregate.Report
	require.NoError(t, json.Unmarshal(data, &got))
	require.Len(t, got, 1)
	assert.Equal(t, "abc", got[0].Extension)
}

func TestNewAnalyzeCmd_RequiresAtLeastOneTarget(t *testing.T) {
	cmd := newAnalyzeCmd()
	cmd.SetArgs([]string{})
	assert.Error(t, cmd.Args(cmd, []string{}))
}
