package audit_test

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adobe/asset-compute-pipeline-sub000/internal/audit"
)

func sampleResult() *audit.Result {
	return &audit.Result{
		Findings: []audit.Finding{
			{
				RuleID:      "CAT-002",
				Severity:    audit.SeverityHigh,
				Transformer: "sizer",
				Source:      "catalog.yaml",
				Message:     "declares no output 'type' attribute; it can never be selected for a rendition",
				Remediation: "Declare the produced type(s) in the manifest outputs.",
			},
			{
				RuleID:      "CAT-011",
				Severity:    audit.SeverityInfo,
				Transformer: "wav-to-mp3",
				Source:      "catalog.yaml",
				Message:     "connects to no other transformer; it can only serve single-step plans",
			},
		},
		Summary: map[string]int{"high": 1, "info": 1},
	}
}

func TestNewFormatter(t *testing.T) {
	for _, name := range []string{"", "table", "json", "sarif", "JSON", " Table "} {
		f, err := audit.NewFormatter(name)
		require.NoError(t, err, "format %q", name)
		assert.NotNil(t, f)
	}

	_, err := audit.NewFormatter("xml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unsupported output format "xml"`)
}

func TestTableFormatter(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, (&audit.TableFormatter{}).Format(&buf, sampleResult()))

	out := buf.String()
	assert.Contains(t, out, "SEVERITY")
	assert.Contains(t, out, "TRANSFORMER")
	assert.Contains(t, out, "HIGH")
	assert.Contains(t, out, "sizer")
	assert.Contains(t, out, "Findings: 2 total (1 high, 1 info)")
}

func TestJSONFormatter(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, (&audit.JSONFormatter{}).Format(&buf, sampleResult()))

	var decoded struct {
		Findings []struct {
			RuleID      string `json:"ruleId"`
			Severity    string `json:"severity"`
			Transformer string `json:"transformer"`
			Source      string `json:"source"`
		} `json:"findings"`
		Summary map[string]int `json:"summary"`
		Total   int            `json:"total"`
	}

	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, 2, decoded.Total)
	require.Len(t, decoded.Findings, 2)
	assert.Equal(t, "high", decoded.Findings[0].Severity)
	assert.Equal(t, "catalog.yaml", decoded.Findings[0].Source)
	assert.Equal(t, 1, decoded.Summary["info"])
}

func TestSARIFFormatter(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, (&audit.SARIFFormatter{}).Format(&buf, sampleResult()))

	var decoded struct {
		Schema  string `json:"$schema"`
		Version string `json:"version"`
		Runs    []struct {
			Tool struct {
				Driver struct {
					Name  string `json:"name"`
					Rules []struct {
						ID string `json:"id"`
					} `json:"rules"`
				} `json:"driver"`
			} `json:"tool"`
			Results []struct {
				RuleID    string `json:"ruleId"`
				Level     string `json:"level"`
				Locations []struct {
					LogicalLocations []struct {
						Name               string `json:"name"`
						FullyQualifiedName string `json:"fullyQualifiedName"`
						Kind               string `json:"kind"`
					} `json:"logicalLocations"`
				} `json:"locations"`
			} `json:"results"`
		} `json:"runs"`
	}

	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, "2.1.0", decoded.Version)
	assert.True(t, strings.Contains(decoded.Schema, "sarif"))

	require.Len(t, decoded.Runs, 1)
	run := decoded.Runs[0]
	assert.Equal(t, "asset-pipeline-audit", run.Tool.Driver.Name)
	require.Len(t, run.Tool.Driver.Rules, 2)

	require.Len(t, run.Results, 2)
	assert.Equal(t, "error", run.Results[0].Level)
	assert.Equal(t, "note", run.Results[1].Level)

	loc := run.Results[0].Locations[0].LogicalLocations[0]
	assert.Equal(t, "sizer", loc.Name)
	assert.Equal(t, "catalog.yaml:sizer", loc.FullyQualifiedName)
	assert.Equal(t, "transformer", loc.Kind)
}
