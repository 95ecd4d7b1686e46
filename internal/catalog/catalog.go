// Package catalog loads transformer declarations from YAML files and wraps
// them in command-backed transformers. A catalog file holds one or more
// documents, each naming a transformer, its capability manifest, and the
// command template that produces its renditions.
package catalog

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	sigsyaml "sigs.k8s.io/yaml"

	"github.com/adobe/asset-compute-pipeline-sub000/internal/yamlutil"
	"github.com/adobe/asset-compute-pipeline-sub000/pkg/manifest"
)

// Spec is one transformer declaration from a catalog document.
type Spec struct {
	// Name registers the transformer. Names carrying the callback- prefix
	// are eligible for automatic pre-chain insertion.
	Name string `json:"name"`

	// Description is shown by catalog listings and generated docs.
	Description string `json:"description,omitempty"`

	// Manifest declares the accepted input and produced output surfaces.
	Manifest *manifest.Manifest `json:"manifest"`

	// Command is the argv template run to produce a rendition. Arguments
	// may reference ${input}, ${output}, ${inDir}, ${outDir}, ${type},
	// ${width} and ${height}.
	Command []string `json:"command,omitempty"`

	// Env adds environment variables for the command, expanded like
	// Command arguments.
	Env map[string]string `json:"env,omitempty"`

	// Timeout bounds one invocation of the command. Zero means no limit.
	Timeout metav1.Duration `json:"timeout,omitempty"`

	// Source is the file the spec was loaded from, for diagnostics.
	Source string `json:"-"`
}

// Parse decodes every transformer document in a catalog file's contents.
// The source name is used in error messages and recorded on each spec.
func Parse(data []byte, source string) ([]*Spec, error) {
	docs := yamlutil.SplitDocuments(data)

	specs := make([]*Spec, 0, len(docs))

	for i, doc := range docs {
		var s Spec
		if err := sigsyaml.Unmarshal(doc, &s); err != nil {
			return nil, fmt.Errorf("catalog %s: document %d: %w", source, i+1, err)
		}

		if s.Name == "" {
			return nil, fmt.Errorf("catalog %s: document %d: transformer missing required 'name' field", source, i+1)
		}

		if s.Manifest == nil {
			return nil, fmt.Errorf("catalog %s: transformer %q missing required 'manifest' field", source, s.Name)
		}

		s.Source = source
		specs = append(specs, &s)
	}

	return specs, nil
}

// Load reads transformer specs from one catalog file.
func Load(path string) ([]*Spec, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path is user-provided CLI arg, not attacker-controlled
	if err != nil {
		return nil, fmt.Errorf("reading catalog %s: %w", path, err)
	}

	return Parse(data, path)
}

// LoadDir reads every .yaml/.yml catalog under dir, walking recursively in
// lexical order.
func LoadDir(dir string) ([]*Spec, error) {
	var specs []*Spec

	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if d.IsDir() {
			return nil
		}

		switch strings.ToLower(filepath.Ext(path)) {
		case ".yaml", ".yml":
		default:
			return nil
		}

		loaded, err := Load(path)
		if err != nil {
			return err
		}

		specs = append(specs, loaded...)

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking catalog directory %s: %w", dir, err)
	}

	return specs, nil
}

// LoadPaths loads catalogs from a mix of files and directories.
func LoadPaths(paths ...string) ([]*Spec, error) {
	var specs []*Spec

	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, fmt.Errorf("catalog path %s: %w", p, err)
		}

		var loaded []*Spec

		if info.IsDir() {
			loaded, err = LoadDir(p)
		} else {
			loaded, err = Load(p)
		}

		if err != nil {
			return nil, err
		}

		specs = append(specs, loaded...)
	}

	return specs, nil
}
