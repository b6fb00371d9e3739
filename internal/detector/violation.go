package detector

import "github.com/xkilldash9x/scalpel-extaint/internal/dataflow"

// Category is one of spec.md §4.4's four violation classes.
type Category string

const (
	Cat41Exfiltration Category = "4.1_exfiltration"
	Cat41Infiltration Category = "4.1_infiltration"
	Cat42             Category = "4.2_storage_write_dom_read"
	Cat43             Category = "4.3_storage_read_response"
	Cat31             Category = "3.1_unguarded_listener"
)

// Violation is one detected flow, shaped to serialize directly into the
// per-extension exfiltration_dangers/infiltration_dangers/
// 31_violations_without_sensitive_api_access arrays spec.md §6 defines.
type Violation struct {
	Category       Category            `json:"category"`
	FromFlow       []dataflow.Flow     `json:"from_flow"`
	ToFlow         []dataflow.Flow     `json:"to_flow"`
	Rendezvous     dataflow.Rendezvous `json:"rendezvous"`
	DataFlowNumber int                 `json:"data_flow_number"`
}
