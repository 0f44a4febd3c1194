package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReportFor(t *testing.T) {
	tests := []struct {
		entityType string
		want       ReportName
	}{
		{"P", ReportLegalEntity},
		{"F", ReportNaturalActivity},
		{" F\n", ReportNaturalActivity},
		{"", ReportLegalEntity},
		{"LP", ReportLegalEntity},
		{"p", ReportLegalEntity},
	}
	for _, tt := range tests {
		t.Run(tt.entityType, func(t *testing.T) {
			assert.Equal(t, tt.want, ReportFor(tt.entityType))
		})
	}
}

func TestNewEntityReport_SerializesEmptyPKD(t *testing.T) {
	b, err := json.Marshal(NewEntityReport(nil))
	require.NoError(t, err)
	assert.JSONEq(t, `{"podstawowe":{},"pkd":[]}`, string(b))
}
