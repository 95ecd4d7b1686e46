package config_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adobe/asset-compute-pipeline-sub000/internal/config"
)

func TestParsePresetConfig(t *testing.T) {
	data := []byte(`log-level: info
presets:
  thumbnails:
    - type: image/png
      width: 200
      height: 200
    - type: image/jpeg
      width: 1024
  archive:
    - type: image/tiff
userDataAllowList:
  - jobId
  - requestId
`)

	cfg, err := config.ParsePresetConfig(data)
	require.NoError(t, err)

	require.Len(t, cfg.Presets, 2)
	assert.Equal(t, []string{"jobId", "requestId"}, cfg.UserDataAllowList)
	assert.False(t, cfg.IsEmpty())

	thumbs, ok := cfg.Instructions("thumbnails")
	require.True(t, ok)
	require.Len(t, thumbs, 2)
	assert.Equal(t, "image/png", thumbs[0]["type"])
	assert.Equal(t, float64(200), thumbs[0]["width"])
	assert.Equal(t, "image/jpeg", thumbs[1]["type"])
}

func TestInstructionsReturnsCopies(t *testing.T) {
	cfg, err := config.ParsePresetConfig([]byte(`presets:
  web:
    - type: image/png
      width: 1024
`))
	require.NoError(t, err)

	first, ok := cfg.Instructions("web")
	require.True(t, ok)
	first[0]["width"] = float64(1)

	second, ok := cfg.Instructions("web")
	require.True(t, ok)
	assert.Equal(t, float64(1024), second[0]["width"])
}

func TestInstructionsUnknownPreset(t *testing.T) {
	cfg, err := config.ParsePresetConfig([]byte("presets: {}\n"))
	require.NoError(t, err)

	_, ok := cfg.Instructions("missing")
	assert.False(t, ok)
	assert.True(t, cfg.IsEmpty())
}

func TestParsePresetConfigValidation(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		wantErr string
	}{
		{
			name:    "malformed yaml",
			data:    "presets: [not a map",
			wantErr: "parsing preset config",
		},
		{
			name: "invalid preset name",
			data: `presets:
  2fast:
    - type: image/png
`,
			wantErr: "presets[2fast]: name is invalid",
		},
		{
			name:    "empty rendition list",
			data:    "presets:\n  web: []\n",
			wantErr: "presets[web]: must declare at least one rendition",
		},
		{
			name: "rendition without type",
			data: `presets:
  web:
    - width: 200
`,
			wantErr: "presets[web][0]: rendition must declare a type",
		},
		{
			name:    "empty allow list entry",
			data:    `userDataAllowList: ["jobId", ""]`,
			wantErr: "userDataAllowList[1]: name must not be empty",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := config.ParsePresetConfig([]byte(tt.data))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
