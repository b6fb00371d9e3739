// Package detector classifies data flows discovered by internal/dataflow
// into the vulnerability taxonomy spec.md §4.4 defines: privileged-API
// exfiltration/infiltration (4.1), storage-write-to-DOM-read (4.2),
// storage-read-to-response (4.3), and unguarded-listener-without-a-
// privileged-source violations (3.1). Source/sink/sender-guard tables
// are static data, grounded on the taint definitions
// internal/analysis/static/javascript/definitions.go in the teacher
// used for its own DOM taint sources/sinks, reshaped here around the
// extension messaging surface instead of page-script taint.
package detector

// SourceKind classifies why a value counts as attacker- or
// privilege-relevant at all.
type SourceKind string

const (
	SourcePrivilegedAPI SourceKind = "privileged_api"
	SourceMessagePayload SourceKind = "message_payload"
	SourceSender         SourceKind = "sender"
	SourceStorageRead    SourceKind = "storage_read"
)

// SinkKind classifies where a flow terminates.
type SinkKind string

const (
	SinkSendResponse SinkKind = "send_response"
	SinkPostMessage  SinkKind = "post_message"
	SinkStorageWrite SinkKind = "storage_write"
	SinkDOM          SinkKind = "dom"
)

// SourceDefinition names one entry in the sensitive-source table.
type SourceDefinition struct {
	Path string
	Kind SourceKind
}

// SinkDefinition names one entry in the sink table.
type SinkDefinition struct {
	Path        string
	Kind        SinkKind
	TaintedArgs []int
}

// Tables is the overridable source/sink/guard configuration a Detector
// runs against; NewDefaultTables seeds it from the built-in profile and
// LoadOverlay (overlay.go) can extend or replace entries from YAML.
type Tables struct {
	Sources      map[string]SourceDefinition
	Sinks        map[string]SinkDefinition
	SenderGuards map[string]bool
	Version      string
}

// NewDefaultTables returns the built-in source/sink/sender-guard tables
// spec.md §4.4 and SPEC_FULL.md's Vulnerability Detector section name explicitly.
func NewDefaultTables() *Tables {
	t := &Tables{
		Sources:      map[string]SourceDefinition{},
		Sinks:        map[string]SinkDefinition{},
		SenderGuards: map[string]bool{},
		Version:      "default-1",
	}

	privileged := []string{
		"chrome.cookies.getAll",
		"chrome.cookies.get",
		"chrome.history.search",
		"chrome.bookmarks.getTree",
		"chrome.tabs.query",
		"chrome.tabs.executeScript",
		"chrome.scripting.executeScript",
		"chrome.identity.getAuthToken",
		"chrome.management.getAll",
		"chrome.management.setEnabled",
		"chrome.debugger.attach",
		"chrome.debugger.sendCommand",
		"chrome.declarativeNetRequest.updateDynamicRules",
		"chrome.privacy.network.networkPredictionEnabled.set",
		"chrome.webRequest.onBeforeRequest.addListener",
		"chrome.downloads.download",
		"chrome.proxy.settings.set",
	}
	for _, p := range privileged {
		t.Sources[p] = SourceDefinition{Path: p, Kind: SourcePrivilegedAPI}
	}

	storageReads := []string{
		"chrome.storage.local.get",
		"chrome.storage.sync.get",
		"chrome.storage.session.get",
	}
	for _, p := range storageReads {
		t.Sources[p] = SourceDefinition{Path: p, Kind: SourceStorageRead}
	}

	t.Sinks["sendResponse"] = SinkDefinition{Path: "sendResponse", Kind: SinkSendResponse, TaintedArgs: []int{0}}
	t.Sinks["port.postMessage"] = SinkDefinition{Path: "port.postMessage", Kind: SinkPostMessage, TaintedArgs: []int{0}}
	t.Sinks["window.postMessage"] = SinkDefinition{Path: "window.postMessage", Kind: SinkPostMessage, TaintedArgs: []int{0}}
	t.Sinks["chrome.tabs.sendMessage"] = SinkDefinition{Path: "chrome.tabs.sendMessage", Kind: SinkPostMessage, TaintedArgs: []int{1}}

	storageWrites := []string{
		"chrome.storage.local.set",
		"chrome.storage.sync.set",
		"chrome.storage.session.set",
	}
	for _, p := range storageWrites {
		t.Sinks[p] = SinkDefinition{Path: p, Kind: SinkStorageWrite, TaintedArgs: []int{0}}
	}

	domSinks := []string{"innerHTML", "outerHTML", "document.write", "document.writeln", "insertAdjacentHTML"}
	for _, p := range domSinks {
		t.Sinks[p] = SinkDefinition{Path: p, Kind: SinkDOM, TaintedArgs: []int{0}}
	}

	for _, g := range []string{"sender.url", "sender.origin", "sender.tab.url", "sender.id", "sender.frameId"} {
		t.SenderGuards[g] = true
	}

	return t
}
