package output_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adobe/asset-compute-pipeline-sub000/internal/output"
)

func TestSerialize(t *testing.T) {
	t.Run("sorts map keys", func(t *testing.T) {
		got, err := output.Serialize(map[string]interface{}{
			"width": 200,
			"name":  "resize",
			"type":  "image/png",
		}, output.DefaultSerializeOptions())
		require.NoError(t, err)

		assert.Equal(t, "name: resize\ntype: image/png\nwidth: 200\n", string(got))
	})

	t.Run("honors json struct tags", func(t *testing.T) {
		value := struct {
			RequestID string `json:"requestId"`
			Omitted   string `json:"omitted,omitempty"`
		}{RequestID: "req-1"}

		got, err := output.Serialize(value, output.DefaultSerializeOptions())
		require.NoError(t, err)

		assert.Equal(t, "requestId: req-1\n", string(got))
	})

	t.Run("strips nulls and empty maps", func(t *testing.T) {
		got, err := output.Serialize(map[string]interface{}{
			"name":  "resize",
			"gone":  nil,
			"empty": map[string]interface{}{},
		}, output.DefaultSerializeOptions())
		require.NoError(t, err)

		assert.Equal(t, "name: resize\n", string(got))
	})

	t.Run("nested sequences", func(t *testing.T) {
		got, err := output.Serialize([]interface{}{
			map[string]interface{}{
				"name":    "transformerPNG",
				"current": true,
				"steps": []interface{}{
					map[string]interface{}{"name": "transformerGIF"},
				},
			},
		}, output.DefaultSerializeOptions())
		require.NoError(t, err)

		assert.Contains(t, string(got), "- current: true\n")
		assert.Contains(t, string(got), "name: transformerPNG\n")
		assert.Contains(t, string(got), "steps:\n")
		assert.Contains(t, string(got), "- name: transformerGIF\n")
	})

	t.Run("custom indent", func(t *testing.T) {
		got, err := output.Serialize(map[string]interface{}{
			"outer": map[string]interface{}{"inner": 1},
		}, output.SerializeOptions{Indent: 4})
		require.NoError(t, err)

		assert.Equal(t, "outer:\n    inner: 1\n", string(got))
	})
}

func TestSerializeJSON(t *testing.T) {
	got, err := output.SerializeJSON(map[string]interface{}{
		"width": 200,
		"name":  "resize",
	}, "")
	require.NoError(t, err)

	assert.Equal(t, "{\n  \"name\": \"resize\",\n  \"width\": 200\n}\n", string(got))
}

func TestSerializeJSONCustomIndent(t *testing.T) {
	got, err := output.SerializeJSON(map[string]interface{}{"a": 1}, "\t")
	require.NoError(t, err)

	assert.Equal(t, "{\n\t\"a\": 1\n}\n", string(got))
}
