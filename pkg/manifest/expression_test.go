package manifest_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adobe/asset-compute-pipeline-sub000/pkg/manifest"
)

func TestParseExpression(t *testing.T) {
	tests := []struct {
		name string
		raw  interface{}
		want manifest.Expression
	}{
		{"nil is absent", nil, manifest.Expression{}},
		{"string value", "image/png", manifest.NewValue("image/png")},
		{"bool value", true, manifest.NewValue(true)},
		{"int normalized", 200, manifest.NewValue(200.0)},
		{"list", []interface{}{"image/png", "image/jpeg"}, manifest.NewList("image/png", "image/jpeg")},
		{"empty list", []interface{}{}, manifest.NewList()},
		{"range", map[string]interface{}{"min": 1, "max": 2000}, manifest.NewRange(1, 2000)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := manifest.ParseExpression(tt.raw)
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got), "want %s, got %s", tt.want, got)
		})
	}
}

func TestParseExpression_RangeDefaults(t *testing.T) {
	got, err := manifest.ParseExpression(map[string]interface{}{"max": 319})
	require.NoError(t, err)

	min, max := got.Bounds()
	assert.Equal(t, 0.0, min)
	assert.Equal(t, 319.0, max)
}

func TestParseExpression_Errors(t *testing.T) {
	_, err := manifest.ParseExpression(map[string]interface{}{"mid": 5})
	assert.Error(t, err)

	_, err = manifest.ParseExpression(map[string]interface{}{"min": "low"})
	assert.Error(t, err)

	_, err = manifest.ParseExpression(struct{}{})
	assert.Error(t, err)
}

func TestExpressionAdmits(t *testing.T) {
	assert.True(t, manifest.Expression{}.Admits("anything"))

	value := manifest.NewValue("image/png")
	assert.True(t, value.Admits("image/png"))
	assert.False(t, value.Admits("image/jpeg"))

	list := manifest.NewList("image/png", "image/jpeg")
	assert.True(t, list.Admits("image/jpeg"))
	assert.False(t, list.Admits("image/gif"))

	// Empty list supports nothing.
	assert.False(t, manifest.NewList().Admits("image/png"))

	rng := manifest.NewRange(1, 2000)
	assert.True(t, rng.Admits(2000))
	assert.True(t, rng.Admits(1.0))
	assert.False(t, rng.Admits(2001))
	assert.False(t, rng.Admits("wide"))
}

func TestExpressionAdmits_NumericCoercion(t *testing.T) {
	// YAML decodes 200 as int, JSON as float64; both must compare equal.
	value := manifest.NewValue(200)
	assert.True(t, value.Admits(200.0))
	assert.True(t, value.Admits(int64(200)))
}

func TestExpressionString(t *testing.T) {
	assert.Equal(t, "*", manifest.Expression{}.String())
	assert.Equal(t, "image/png", manifest.NewValue("image/png").String())
	assert.Equal(t, "[image/png, image/jpeg]", manifest.NewList("image/png", "image/jpeg").String())
	assert.Equal(t, "[1..2000]", manifest.NewRange(1, 2000).String())
}

func TestExpressionWireRoundTrip(t *testing.T) {
	exprs := []interface{}{
		"image/png",
		[]interface{}{"a", "b"},
		map[string]interface{}{"min": 1, "max": 100},
	}

	for _, raw := range exprs {
		parsed, err := manifest.ParseExpression(raw)
		require.NoError(t, err)

		again, err := manifest.ParseExpression(parsed.Wire())
		require.NoError(t, err)

		assert.True(t, parsed.Equal(again), "round trip changed %v", raw)
	}
}
