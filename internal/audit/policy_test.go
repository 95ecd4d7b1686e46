package audit_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adobe/asset-compute-pipeline-sub000/internal/audit"
)

func writePolicyFile(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "policy.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

func TestLoadPolicyFile(t *testing.T) {
	t.Run("valid policy loads", func(t *testing.T) {
		path := writePolicyFile(t, `rules:
  - id: CUSTOM-001
    severity: medium
    condition: no description
    message: Every transformer needs a description.
  - id: CUSTOM-002
    severity: low
    match:
      name: "callback-*"
    condition: consumes metadata
    message: Metadata-consuming callbacks need review.
`)
		pf, err := audit.LoadPolicyFile(path)
		require.NoError(t, err)
		require.Len(t, pf.Rules, 2)
		assert.Equal(t, "CUSTOM-001", pf.Rules[0].ID)
		assert.Equal(t, "callback-*", pf.Rules[1].Match.Name)
	})

	t.Run("missing id rejected", func(t *testing.T) {
		path := writePolicyFile(t, "rules:\n  - severity: low\n    message: msg\n")
		_, err := audit.LoadPolicyFile(path)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "missing required 'id'")
	})

	t.Run("missing message rejected", func(t *testing.T) {
		path := writePolicyFile(t, "rules:\n  - id: X-1\n    severity: low\n")
		_, err := audit.LoadPolicyFile(path)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "missing required 'message'")
	})

	t.Run("unknown severity rejected", func(t *testing.T) {
		path := writePolicyFile(t, "rules:\n  - id: X-1\n    severity: fatal\n    message: msg\n")
		_, err := audit.LoadPolicyFile(path)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unknown severity")
	})

	t.Run("unknown condition rejected", func(t *testing.T) {
		path := writePolicyFile(t, "rules:\n  - id: X-1\n    condition: no liveness probe\n    message: msg\n")
		_, err := audit.LoadPolicyFile(path)
		require.Error(t, err)
		assert.Contains(t, err.Error(), `unknown condition "no liveness probe"`)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := audit.LoadPolicyFile(filepath.Join(t.TempDir(), "nope.yaml"))
		require.Error(t, err)
	})
}

func TestPolicyChecks(t *testing.T) {
	specs := parseSpecs(t, `name: documented
description: Does things.
manifest:
  outputs:
    type: image/png
command: ["tool"]
timeout: 10s
---
name: bare
manifest:
  outputs:
    type: image/png
  consumesMetadata: true
command: ["tool"]
`)

	t.Run("condition matches only offending specs", func(t *testing.T) {
		pf := &audit.PolicyFile{Rules: []audit.PolicyRule{{
			ID:          "CUSTOM-001",
			SeverityStr: "medium",
			Condition:   "no description",
			Message:     "Every transformer needs a description.",
		}}}

		checks := pf.ToChecks()
		require.Len(t, checks, 1)

		findings := checks[0].Run(context.Background(), specs)
		require.Len(t, findings, 1)
		assert.Equal(t, "bare", findings[0].Transformer)
		assert.Equal(t, audit.SeverityMedium, findings[0].Severity)
	})

	t.Run("name glob restricts matches", func(t *testing.T) {
		pf := &audit.PolicyFile{Rules: []audit.PolicyRule{{
			ID:          "CUSTOM-002",
			SeverityStr: "low",
			Match:       audit.PolicyMatch{Name: "documented"},
			Condition:   "no timeout",
			Message:     "Commands need timeouts.",
		}}}

		findings := pf.ToChecks()[0].Run(context.Background(), specs)
		assert.Empty(t, findings, "documented has a timeout")
	})

	t.Run("no timeout fires for command transformers only", func(t *testing.T) {
		pf := &audit.PolicyFile{Rules: []audit.PolicyRule{{
			ID:        "CUSTOM-003",
			Condition: "no timeout",
			Message:   "Commands need timeouts.",
		}}}

		findings := pf.ToChecks()[0].Run(context.Background(), specs)
		require.Len(t, findings, 1)
		assert.Equal(t, "bare", findings[0].Transformer)
	})

	t.Run("consumes metadata condition", func(t *testing.T) {
		pf := &audit.PolicyFile{Rules: []audit.PolicyRule{{
			ID:        "CUSTOM-004",
			Condition: "consumes metadata",
			Message:   "Metadata consumers need review.",
		}}}

		findings := pf.ToChecks()[0].Run(context.Background(), specs)
		require.Len(t, findings, 1)
		assert.Equal(t, "bare", findings[0].Transformer)
	})
}
