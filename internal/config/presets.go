package config

import (
	"fmt"
	"regexp"

	sigsyaml "sigs.k8s.io/yaml"

	"github.com/adobe/asset-compute-pipeline-sub000/internal/maputil"
	"github.com/adobe/asset-compute-pipeline-sub000/pkg/manifest"
)

// PresetConfig holds declarative rendition presets loaded from the config
// file (.asset-pipeline.yaml). A preset is a named set of rendition
// instructions that commands can use instead of an instructions file, and
// that watch mode applies to every source arriving in the inbox.
type PresetConfig struct {
	// Presets maps preset names to rendition instruction lists.
	Presets map[string][]map[string]interface{} `json:"presets,omitempty"`

	// UserDataAllowList overrides the attribute names passed through to
	// rendition events unmodified.
	UserDataAllowList []string `json:"userDataAllowList,omitempty"`
}

// ParsePresetConfig parses the presets and userDataAllowList sections from
// raw config file bytes.
func ParsePresetConfig(data []byte) (*PresetConfig, error) {
	var raw struct {
		Presets           map[string][]map[string]interface{} `json:"presets,omitempty"`
		UserDataAllowList []string                            `json:"userDataAllowList,omitempty"`
	}

	if err := sigsyaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing preset config: %w", err)
	}

	cfg := &PresetConfig{
		Presets:           raw.Presets,
		UserDataAllowList: raw.UserDataAllowList,
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// presetNamePattern validates preset names. Must start with a letter and
// contain only letters, digits, and hyphens.
var presetNamePattern = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9-]*$`)

// Validate checks the preset config for correctness.
func (c *PresetConfig) Validate() error {
	for name, renditions := range c.Presets {
		if !presetNamePattern.MatchString(name) {
			return fmt.Errorf("presets[%s]: name is invalid (must match %s)", name, presetNamePattern.String())
		}

		if len(renditions) == 0 {
			return fmt.Errorf("presets[%s]: must declare at least one rendition", name)
		}

		for i, rendition := range renditions {
			typ, ok := rendition[manifest.AttrType].(string)
			if !ok || typ == "" {
				return fmt.Errorf("presets[%s][%d]: rendition must declare a type", name, i)
			}
		}
	}

	for i, name := range c.UserDataAllowList {
		if name == "" {
			return fmt.Errorf("userDataAllowList[%d]: name must not be empty", i)
		}
	}

	return nil
}

// Instructions returns deep copies of the rendition instructions for the
// named preset, so callers can stamp per-run values without mutating the
// shared preset.
func (c *PresetConfig) Instructions(name string) ([]map[string]interface{}, bool) {
	renditions, ok := c.Presets[name]
	if !ok {
		return nil, false
	}

	out := make([]map[string]interface{}, len(renditions))
	for i, rendition := range renditions {
		out[i] = maputil.DeepCopyMap(rendition)
	}

	return out, true
}

// IsEmpty returns true if the config has no presets or overrides.
func (c *PresetConfig) IsEmpty() bool {
	return len(c.Presets) == 0 && len(c.UserDataAllowList) == 0
}
