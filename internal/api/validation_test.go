package api

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateDashboards(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		problems int
	}{
		{"valid", `[{"id":"1","name":"Sales"},{"id":"2","name":"Finance","tiles":[]}]`, 0},
		{"empty array", `[]`, 0},
		{"not an array", `{"id":"1"}`, 1},
		{"numeric id", `[{"id":1,"name":"Sales"}]`, 1},
		{"missing name", `[{"id":"1"}]`, 1},
		{"scalar item", `["dashboard"]`, 1},
		{"null item", `[null]`, 1},
		{"both fields wrong", `[{"id":true}]`, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ValidateDashboards(json.RawMessage(tt.raw))
			assert.Len(t, got, tt.problems, "problems: %v", got)
		})
	}
}
