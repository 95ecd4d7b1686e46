package manifest_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	sigsyaml "sigs.k8s.io/yaml"

	"github.com/adobe/asset-compute-pipeline-sub000/pkg/manifest"
)

const manifestYAML = `
inputs:
  type: ["image/png", "image/jpeg"]
  width: {min: 1, max: 2000}
  sourceType: LOCAL
outputs:
  type: machine-json
consumesMetadata: true
engineVersion: ">=1.0.0"
`

func TestManifestUnmarshalYAML(t *testing.T) {
	var m manifest.Manifest
	require.NoError(t, sigsyaml.Unmarshal([]byte(manifestYAML), &m))

	assert.Equal(t, []interface{}{"image/png", "image/jpeg"}, m.Inputs["type"].Values())
	assert.Equal(t, "LOCAL", m.Inputs["sourceType"].Value())
	assert.Equal(t, "machine-json", m.Outputs["type"].Value())
	assert.True(t, m.ConsumesMetadata)
	assert.Equal(t, ">=1.0.0", m.EngineVersion)

	min, max := m.Inputs["width"].Bounds()
	assert.Equal(t, 1.0, min)
	assert.Equal(t, 2000.0, max)
}

func TestManifestJSONRoundTrip(t *testing.T) {
	var m manifest.Manifest
	require.NoError(t, sigsyaml.Unmarshal([]byte(manifestYAML), &m))

	data, err := json.Marshal(m)
	require.NoError(t, err)

	var again manifest.Manifest
	require.NoError(t, json.Unmarshal(data, &again))

	assert.True(t, m.Inputs["type"].Equal(again.Inputs["type"]))
	assert.True(t, m.Inputs["width"].Equal(again.Inputs["width"]))
	assert.Equal(t, m.ConsumesMetadata, again.ConsumesMetadata)
}

func TestManifestValidate(t *testing.T) {
	valid := manifest.Manifest{
		Inputs:  manifest.Attributes{"type": manifest.NewValue("image/png")},
		Outputs: manifest.Attributes{"type": manifest.NewValue("image/jpeg")},
	}
	assert.NoError(t, valid.Validate())

	inverted := manifest.Manifest{
		Inputs: manifest.Attributes{"width": manifest.NewRange(100, 1)},
	}
	assert.Error(t, inverted.Validate())

	badSourceType := manifest.Manifest{
		Inputs: manifest.Attributes{"sourceType": manifest.NewValue("FTP")},
	}
	assert.Error(t, badSourceType.Validate())

	badConstraint := manifest.Manifest{EngineVersion: "not-a-constraint"}
	assert.Error(t, badConstraint.Validate())
}

func TestManifestCompatible(t *testing.T) {
	m := manifest.Manifest{EngineVersion: ">=1.2.0 <2.0.0"}

	ok, err := m.Compatible("1.5.3")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = m.Compatible("v1.2.0")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = m.Compatible("2.0.0")
	require.NoError(t, err)
	assert.False(t, ok)

	unconstrained := manifest.Manifest{}
	ok, err = unconstrained.Compatible("0.0.1")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestIsWellFormedType(t *testing.T) {
	assert.True(t, manifest.IsWellFormedType("image/png"))
	assert.True(t, manifest.IsWellFormedType("application/vnd.adobe.photoshop"))
	assert.True(t, manifest.IsWellFormedType("machine-json"))
	assert.True(t, manifest.IsWellFormedType("model/gltf+json"))

	assert.False(t, manifest.IsWellFormedType(""))
	assert.False(t, manifest.IsWellFormedType("not valid"))
	assert.False(t, manifest.IsWellFormedType("/png"))
	assert.False(t, manifest.IsWellFormedType("image/"))
	assert.False(t, manifest.IsWellFormedType("image/png/extra"))
}

func TestAttributesString(t *testing.T) {
	attrs := manifest.Attributes{
		"width": manifest.NewRange(1, 2000),
		"type":  manifest.NewList("image/png"),
	}

	// Stable ordering regardless of map iteration.
	assert.Equal(t, "{type=[image/png] width=[1..2000]}", attrs.String())
}
