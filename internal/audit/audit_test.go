package audit_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adobe/asset-compute-pipeline-sub000/internal/audit"
	"github.com/adobe/asset-compute-pipeline-sub000/internal/catalog"
)

func TestSeverity_String(t *testing.T) {
	tests := []struct {
		sev  audit.Severity
		want string
	}{
		{audit.SeverityInfo, "info"},
		{audit.SeverityLow, "low"},
		{audit.SeverityMedium, "medium"},
		{audit.SeverityHigh, "high"},
		{audit.SeverityCritical, "critical"},
		{audit.Severity(99), "unknown(99)"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.sev.String())
		})
	}
}

func TestParseSeverity(t *testing.T) {
	tests := []struct {
		input   string
		want    audit.Severity
		wantErr bool
	}{
		{"critical", audit.SeverityCritical, false},
		{"CRITICAL", audit.SeverityCritical, false},
		{"  High  ", audit.SeverityHigh, false},
		{"medium", audit.SeverityMedium, false},
		{"low", audit.SeverityLow, false},
		{"info", audit.SeverityInfo, false},
		{"", audit.SeverityInfo, true},
		{"unknown", audit.SeverityInfo, true},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := audit.ParseSeverity(tt.input)
			assert.Equal(t, tt.want, got)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestResult_Passed(t *testing.T) {
	t.Run("no findings passes any threshold", func(t *testing.T) {
		r := &audit.Result{Summary: map[string]int{}}
		assert.True(t, r.Passed(audit.SeverityCritical))
		assert.True(t, r.Passed(audit.SeverityInfo))
	})

	t.Run("findings below threshold passes", func(t *testing.T) {
		r := &audit.Result{
			Findings: []audit.Finding{
				{Severity: audit.SeverityLow, RuleID: "TEST-001"},
				{Severity: audit.SeverityInfo, RuleID: "TEST-002"},
			},
			Summary: map[string]int{"low": 1, "info": 1},
		}
		assert.True(t, r.Passed(audit.SeverityMedium))
		assert.True(t, r.Passed(audit.SeverityHigh))
	})

	t.Run("findings at threshold fails", func(t *testing.T) {
		r := &audit.Result{
			Findings: []audit.Finding{
				{Severity: audit.SeverityHigh, RuleID: "TEST-001"},
			},
			Summary: map[string]int{"high": 1},
		}
		assert.False(t, r.Passed(audit.SeverityHigh))
	})
}

type fakeCheck struct {
	id       string
	findings []audit.Finding
}

func (f *fakeCheck) ID() string { return f.id }

func (f *fakeCheck) Run(_ context.Context, _ []*catalog.Spec) []audit.Finding {
	return f.findings
}

func TestAuditor_Run(t *testing.T) {
	t.Run("no checks produces empty result", func(t *testing.T) {
		a := audit.New()
		r := a.Run(context.Background(), nil)
		assert.Empty(t, r.Findings)
		assert.Empty(t, r.Summary)
	})

	t.Run("combines findings from multiple checks", func(t *testing.T) {
		c1 := &fakeCheck{id: "A", findings: []audit.Finding{
			{RuleID: "A", Severity: audit.SeverityHigh, Message: "a"},
		}}
		c2 := &fakeCheck{id: "B", findings: []audit.Finding{
			{RuleID: "B", Severity: audit.SeverityLow, Message: "b"},
		}}
		a := audit.New(c1, c2)
		r := a.Run(context.Background(), nil)
		require.Len(t, r.Findings, 2)
		assert.Equal(t, "A", r.Findings[0].RuleID)
		assert.Equal(t, "B", r.Findings[1].RuleID)
	})

	t.Run("sorts by severity desc then ruleID asc", func(t *testing.T) {
		c := &fakeCheck{id: "X", findings: []audit.Finding{
			{RuleID: "C", Severity: audit.SeverityMedium},
			{RuleID: "A", Severity: audit.SeverityCritical},
			{RuleID: "B", Severity: audit.SeverityCritical},
			{RuleID: "D", Severity: audit.SeverityInfo},
		}}
		a := audit.New(c)
		r := a.Run(context.Background(), nil)
		require.Len(t, r.Findings, 4)
		assert.Equal(t, "A", r.Findings[0].RuleID)
		assert.Equal(t, "B", r.Findings[1].RuleID)
		assert.Equal(t, "C", r.Findings[2].RuleID)
		assert.Equal(t, "D", r.Findings[3].RuleID)
	})

	t.Run("summary counts correctly", func(t *testing.T) {
		c := &fakeCheck{id: "X", findings: []audit.Finding{
			{RuleID: "A", Severity: audit.SeverityHigh},
			{RuleID: "B", Severity: audit.SeverityHigh},
			{RuleID: "C", Severity: audit.SeverityLow},
		}}
		a := audit.New(c)
		r := a.Run(context.Background(), nil)
		assert.Equal(t, 2, r.Summary["high"])
		assert.Equal(t, 1, r.Summary["low"])
	})
}

func TestDefaultChecks(t *testing.T) {
	t.Run("strict returns all 11 checks", func(t *testing.T) {
		checks := audit.DefaultChecks(true)
		assert.Len(t, checks, 11)
		ids := make(map[string]bool)
		for _, c := range checks {
			ids[c.ID()] = true
		}
		for _, id := range []string{
			"CAT-001", "CAT-002", "CAT-003", "CAT-004", "CAT-005", "CAT-006",
			"CAT-007", "CAT-008", "CAT-009", "CAT-010", "CAT-011",
		} {
			assert.True(t, ids[id], "missing check %s", id)
		}
	})

	t.Run("standard excludes strict-only checks", func(t *testing.T) {
		checks := audit.DefaultChecks(false)
		ids := make(map[string]bool)
		for _, c := range checks {
			ids[c.ID()] = true
		}
		assert.True(t, ids["CAT-001"], "should include DuplicateName")
		assert.True(t, ids["CAT-009"], "should include Command")
		assert.False(t, ids["CAT-010"], "should exclude CommandPath (strict)")
		assert.False(t, ids["CAT-011"], "should exclude Isolation (strict)")
		assert.Len(t, checks, 9)
	})
}

// --- Test helpers shared across test files ---

func parseSpecs(t *testing.T, doc string) []*catalog.Spec {
	t.Helper()

	specs, err := catalog.Parse([]byte(doc), "test.yaml")
	require.NoError(t, err)

	return specs
}

func findingsFor(result []audit.Finding, ruleID string) []audit.Finding {
	var out []audit.Finding

	for _, f := range result {
		if f.RuleID == ruleID {
			out = append(out, f)
		}
	}

	return out
}
