package schemas_test

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/xkilldash9x/scalpel-extaint/api/schemas"
)

// TestStructJSONTags verifies the wire-contract structs carry the exact
// json tags external consumers depend on, so an internal rename can
// never silently change the report's shape.
func TestStructJSONTags(t *testing.T) {
	t.Parallel()
	testCases := []struct {
		name         string
		structRef    interface{}
		expectedTags map[string]string
	}{
		{
			name:      "Benchmark",
			structRef: schemas.Benchmark{},
			expectedTags: map[string]string{
				"File":                             "file",
				"CodeStats":                        "code_stats",
				"ExfiltrationDangers":              "exfiltration_dangers",
				"InfiltrationDangers":              "infiltration_dangers",
				"ViolationsWithoutSensitiveAccess": "31_violations_without_sensitive_api_access",
				"ExtensionStorageAccesses":         "extension_storage_accesses",
				"Truncated":                        "truncated,omitempty",
				"ParseFailed":                      "parse_failed,omitempty",
			},
		},
		{
			name:      "Violation",
			structRef: schemas.Violation{},
			expectedTags: map[string]string{
				"Category":       "category",
				"FromFlow":       "from_flow",
				"ToFlow":         "to_flow",
				"Rendezvous":     "rendezvous",
				"DataFlowNumber": "data_flow_number",
			},
		},
		{
			name:      "Flow",
			structRef: schemas.Flow{},
			expectedTags: map[string]string{
				"No":         "no",
				"Location":   "location",
				"Filename":   "filename",
				"Identifier": "identifier",
				"LineOfCode": "line_of_code",
				"Truncated":  "truncated,omitempty",
			},
		},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			typ := reflect.TypeOf(tc.structRef)
			for i := 0; i < typ.NumField(); i++ {
				field := typ.Field(i)
				want, ok := tc.expectedTags[field.Name]
				if !ok {
					continue
				}
				assert.Equal(t, want, field.Tag.Get("json"), "field %s.%s", tc.name, field.Name)
			}
		})
	}
}
