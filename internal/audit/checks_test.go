package audit_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adobe/asset-compute-pipeline-sub000/internal/audit"
)

func TestDuplicateNameCheck(t *testing.T) {
	specs := parseSpecs(t, `name: convert
manifest:
  outputs:
    type: image/png
command: ["convert"]
---
name: convert
manifest:
  outputs:
    type: image/gif
command: ["convert"]
`)

	findings := (&audit.DuplicateNameCheck{}).Run(context.Background(), specs)
	require.Len(t, findings, 1)
	assert.Equal(t, "CAT-001", findings[0].RuleID)
	assert.Equal(t, "convert", findings[0].Transformer)
	assert.Contains(t, findings[0].Message, "already declared in test.yaml")
}

func TestOutputTypeCheck(t *testing.T) {
	t.Run("missing output type flagged", func(t *testing.T) {
		specs := parseSpecs(t, `name: sizer
manifest:
  inputs:
    type: image/png
  outputs:
    width: {min: 1, max: 100}
command: ["sizer"]
`)
		findings := (&audit.OutputTypeCheck{}).Run(context.Background(), specs)
		require.Len(t, findings, 1)
		assert.Equal(t, audit.SeverityHigh, findings[0].Severity)
		assert.Contains(t, findings[0].Message, "no output 'type'")
	})

	t.Run("declared output type passes", func(t *testing.T) {
		specs := parseSpecs(t, `name: ok
manifest:
  outputs:
    type: image/png
command: ["ok"]
`)
		assert.Empty(t, (&audit.OutputTypeCheck{}).Run(context.Background(), specs))
	})
}

func TestInputTypeCheck(t *testing.T) {
	specs := parseSpecs(t, `name: greedy
manifest:
  outputs:
    type: image/png
command: ["greedy"]
`)

	findings := (&audit.InputTypeCheck{}).Run(context.Background(), specs)
	require.Len(t, findings, 1)
	assert.Equal(t, audit.SeverityLow, findings[0].Severity)
	assert.Contains(t, findings[0].Message, "accepts every source")
}

func TestEmptyListCheck(t *testing.T) {
	specs := parseSpecs(t, `name: inert
manifest:
  inputs:
    type: []
  outputs:
    type: image/png
command: ["inert"]
`)

	findings := (&audit.EmptyListCheck{}).Run(context.Background(), specs)
	require.Len(t, findings, 1)
	assert.Contains(t, findings[0].Message, `attribute "type" in inputs is an empty list`)
}

func TestRangeOrderCheck(t *testing.T) {
	specs := parseSpecs(t, `name: flipped
manifest:
  inputs:
    type: image/png
    width: {min: 100, max: 1}
  outputs:
    type: image/png
command: ["flipped"]
`)

	findings := (&audit.RangeOrderCheck{}).Run(context.Background(), specs)
	require.Len(t, findings, 1)
	assert.Contains(t, findings[0].Message, "range min 100 greater than max 1")
}

func TestSourceTypeCheck(t *testing.T) {
	specs := parseSpecs(t, `name: remote
manifest:
  inputs:
    type: image/png
    sourceType: REMOTE
  outputs:
    type: image/png
command: ["remote"]
`)

	findings := (&audit.SourceTypeCheck{}).Run(context.Background(), specs)
	require.Len(t, findings, 1)
	assert.Contains(t, findings[0].Message, "REMOTE")
	assert.Contains(t, findings[0].Message, "not one of URL, LOCAL")
}

func TestTypeTokenCheck(t *testing.T) {
	specs := parseSpecs(t, `name: mangled
manifest:
  inputs:
    type: "not a type!"
  outputs:
    type: 42
command: ["mangled"]
`)

	findings := (&audit.TypeTokenCheck{}).Run(context.Background(), specs)
	require.Len(t, findings, 2)

	messages := []string{findings[0].Message, findings[1].Message}
	assert.Contains(t, messages[0]+messages[1], "not a type!")
	assert.Contains(t, messages[0]+messages[1], "42")
}

func TestEngineVersionCheck(t *testing.T) {
	specs := parseSpecs(t, `name: pinned
manifest:
  outputs:
    type: image/png
  engineVersion: "not semver!!"
command: ["pinned"]
`)

	findings := (&audit.EngineVersionCheck{}).Run(context.Background(), specs)
	require.Len(t, findings, 1)
	assert.Contains(t, findings[0].Message, `"not semver!!" is not parseable`)
}

func TestCommandCheck(t *testing.T) {
	specs := parseSpecs(t, `name: inert
manifest:
  outputs:
    type: image/png
`)

	findings := (&audit.CommandCheck{}).Run(context.Background(), specs)
	require.Len(t, findings, 1)
	assert.Contains(t, findings[0].Message, "declares no command")
}

func TestCommandPathCheck(t *testing.T) {
	specs := parseSpecs(t, `name: present
manifest:
  outputs:
    type: image/png
command: ["sh", "-c", "true"]
---
name: ghost
manifest:
  outputs:
    type: image/png
command: ["definitely-not-a-real-binary-7f3a"]
`)

	findings := (&audit.CommandPathCheck{}).Run(context.Background(), specs)
	require.Len(t, findings, 1)
	assert.Equal(t, "ghost", findings[0].Transformer)
	assert.Contains(t, findings[0].Message, "not found on PATH")
}

func TestIsolationCheck(t *testing.T) {
	t.Run("flags transformer without graph edges", func(t *testing.T) {
		specs := parseSpecs(t, `name: tiff-to-png
manifest:
  inputs:
    type: image/tiff
  outputs:
    type: image/png
command: ["convert"]
---
name: png-to-gif
manifest:
  inputs:
    type: image/png
  outputs:
    type: image/gif
command: ["convert"]
---
name: wav-to-mp3
manifest:
  inputs:
    type: audio/wav
  outputs:
    type: audio/mp3
command: ["ffmpeg"]
`)
		findings := (&audit.IsolationCheck{}).Run(context.Background(), specs)
		require.Len(t, findings, 1)
		assert.Equal(t, "wav-to-mp3", findings[0].Transformer)
		assert.Equal(t, audit.SeverityInfo, findings[0].Severity)
	})

	t.Run("single transformer is not flagged", func(t *testing.T) {
		specs := parseSpecs(t, `name: solo
manifest:
  inputs:
    type: image/tiff
  outputs:
    type: image/png
command: ["convert"]
`)
		assert.Empty(t, (&audit.IsolationCheck{}).Run(context.Background(), specs))
	})
}

func TestBuiltInChecksOnCleanCatalog(t *testing.T) {
	specs := parseSpecs(t, `name: tiff-to-png
description: Converts TIFF scans to PNG.
manifest:
  inputs:
    type: image/tiff
  outputs:
    type: image/png
  engineVersion: "^1.0.0"
command: ["sh", "-c", "true"]
timeout: 30s
---
name: png-to-gif
description: Animates PNG frames.
manifest:
  inputs:
    type: image/png
  outputs:
    type: image/gif
command: ["sh", "-c", "true"]
timeout: 30s
`)

	result := audit.New(audit.DefaultChecks(true)...).Run(context.Background(), specs)
	assert.Empty(t, result.Findings)
	assert.True(t, result.Passed(audit.SeverityInfo))
}

func TestBuiltInChecksOnBrokenCatalog(t *testing.T) {
	specs := parseSpecs(t, `name: broken
manifest:
  inputs:
    type: []
    width: {min: 500, max: 10}
  outputs:
    width: {min: 1, max: 100}
`)

	result := audit.New(audit.DefaultChecks(false)...).Run(context.Background(), specs)

	assert.NotEmpty(t, findingsFor(result.Findings, "CAT-002"), "missing output type")
	assert.NotEmpty(t, findingsFor(result.Findings, "CAT-004"), "empty list")
	assert.NotEmpty(t, findingsFor(result.Findings, "CAT-005"), "inverted range")
	assert.NotEmpty(t, findingsFor(result.Findings, "CAT-009"), "missing command")
	assert.False(t, result.Passed(audit.SeverityHigh))

	// Highest severities sort first.
	assert.Equal(t, audit.SeverityHigh, result.Findings[0].Severity)
}
