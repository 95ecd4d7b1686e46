package cli

import (
	"fmt"
	"os"
	"strings"

	sigsyaml "sigs.k8s.io/yaml"

	"github.com/adobe/asset-compute-pipeline-sub000/internal/config"
	"github.com/adobe/asset-compute-pipeline-sub000/pkg/manifest"
	"github.com/adobe/asset-compute-pipeline-sub000/pkg/pipeline"
)

// RenderRequest is a parsed instructions document: the source asset and the
// renditions to produce from it.
type RenderRequest struct {
	Source     map[string]interface{}
	Renditions []map[string]interface{}
}

// loadRenderRequest reads and parses an instructions file.
func loadRenderRequest(path string) (*RenderRequest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading instructions file: %w", err)
	}

	req, err := parseRenderRequest(data)
	if err != nil {
		return nil, fmt.Errorf("parsing instructions file %s: %w", path, err)
	}

	return req, nil
}

// parseRenderRequest decodes an instructions document. The source may be a
// bare URL or path string or an attribute map; every rendition must declare
// a type.
func parseRenderRequest(data []byte) (*RenderRequest, error) {
	var raw struct {
		Source     interface{}              `json:"source"`
		Renditions []map[string]interface{} `json:"renditions"`
	}

	if err := sigsyaml.Unmarshal(data, &raw); err != nil {
		return nil, err
	}

	req := &RenderRequest{Renditions: raw.Renditions}

	if raw.Source != nil {
		src, err := sourceAttributes(raw.Source)
		if err != nil {
			return nil, err
		}

		req.Source = src
	}

	for i, r := range req.Renditions {
		if t, _ := r[manifest.AttrType].(string); t == "" {
			return nil, fmt.Errorf("renditions[%d]: missing type", i)
		}
	}

	return req, nil
}

// sourceAttributes normalizes a source declaration into an attribute bag.
func sourceAttributes(v interface{}) (map[string]interface{}, error) {
	switch s := v.(type) {
	case string:
		return sourceFromReference(s), nil
	case map[string]interface{}:
		return s, nil
	default:
		return nil, fmt.Errorf("source must be a string or a map, got %T", v)
	}
}

// sourceFromReference wraps a bare reference: anything carrying a scheme is
// a url, everything else a local path.
func sourceFromReference(ref string) map[string]interface{} {
	if strings.Contains(ref, "://") || strings.HasPrefix(ref, "data:") {
		return map[string]interface{}{pipeline.KeyURL: ref}
	}

	return map[string]interface{}{pipeline.KeyPath: ref}
}

// resolveRequest combines the positional source with the instructions file.
// The positional source wins when both declare one.
func resolveRequest(source, instructionsFile string) (*RenderRequest, error) {
	req := &RenderRequest{}

	if instructionsFile != "" {
		loaded, err := loadRenderRequest(instructionsFile)
		if err != nil {
			return nil, err
		}

		req = loaded
	}

	if source != "" {
		req.Source = sourceFromReference(source)
	}

	if req.Source == nil {
		return nil, fmt.Errorf("no source given (pass a source argument or declare one in the instructions file)")
	}

	return req, nil
}

// resolveRenditions picks the rendition instructions for a run: an explicit
// preset wins over the instructions file.
func resolveRenditions(req *RenderRequest, presets *config.PresetConfig, preset string) ([]map[string]interface{}, error) {
	if preset != "" {
		renditions, ok := presets.Instructions(preset)
		if !ok {
			return nil, fmt.Errorf("unknown preset %q", preset)
		}

		return renditions, nil
	}

	if req == nil || len(req.Renditions) == 0 {
		return nil, fmt.Errorf("no renditions requested (use --instructions or --preset)")
	}

	return req.Renditions, nil
}

// loadPresets reads rendition presets from the resolved config file. A
// missing file yields empty presets; a present but invalid one is an error.
func loadPresets(cfg *config.Config) (*config.PresetConfig, error) {
	path := cfg.ConfigFile
	if path == "" {
		path = ".asset-pipeline.yaml"
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &config.PresetConfig{}, nil
		}

		return nil, err
	}

	return config.ParsePresetConfig(data)
}
