// Package docs generates human-readable reference documentation from a
// transformer catalog: every transformer's capability surfaces, the chain
// edges between them, and an optional example instructions document. It
// supports Markdown, HTML, and AsciiDoc output formats.
package docs

import (
	"fmt"
	"sort"
	"strings"

	"github.com/adobe/asset-compute-pipeline-sub000/internal/catalog"
	"github.com/adobe/asset-compute-pipeline-sub000/internal/planner"
	"github.com/adobe/asset-compute-pipeline-sub000/pkg/manifest"
	"github.com/adobe/asset-compute-pipeline-sub000/pkg/pipeline"
)

// AttributeInfo describes one attribute constraint on a capability surface.
type AttributeInfo struct {
	// Name is the attribute name (e.g., "type", "width").
	Name string
	// Expression is the rendered constraint (e.g., "[image/png, image/jpeg]").
	Expression string
}

// TransformerInfo describes a single transformer.
type TransformerInfo struct {
	// Name is the registered transformer name.
	Name string
	// Description is free text from the catalog.
	Description string
	// EngineVersion is the semver constraint, if any.
	EngineVersion string
	// ConsumesMetadata marks transformers that interpret source metadata.
	ConsumesMetadata bool
	// Inputs and Outputs are the capability surfaces in attribute-name order.
	Inputs  []AttributeInfo
	Outputs []AttributeInfo
	// Command is the rendered command template, if any.
	Command string
	// Timeout is the rendered per-invocation limit, if any.
	Timeout string
	// PrimaryType is the highest-priority output type, if one exists.
	PrimaryType string
	// HasDimensions reports whether the output surface declares width or
	// height.
	HasDimensions bool
}

// EdgeInfo describes one possible chain hop between two transformers.
type EdgeInfo struct {
	// From and To are transformer names.
	From string
	To   string
	// Via is the type expression both ends agree on.
	Via string
}

// DocModel is the structured data model for documentation generation.
type DocModel struct {
	// Title overrides the document title.
	Title string
	// Transformers keep their catalog declaration order.
	Transformers []TransformerInfo
	// Edges are the chain hops the planner graph admits.
	Edges []EdgeInfo
	// IncludeExamples controls whether an example instructions section is
	// appended.
	IncludeExamples bool
}

// FromSpecs builds a DocModel from catalog specs. Transformers keep their
// declaration order; chain edges come from the planner graph.
func FromSpecs(specs []*catalog.Spec) *DocModel {
	model := &DocModel{}
	registry := pipeline.NewRegistry()

	for _, s := range specs {
		model.Transformers = append(model.Transformers, transformerInfo(s))
		registry.Register(pipeline.NewCallback(s.Name, s.Manifest, nil))
	}

	graph := planner.NewGraph(registry)

	for _, from := range registry.Names() {
		for _, to := range graph.Adjacent(from) {
			edge := EdgeInfo{From: from, To: to}
			if x, ok := graph.Intersection(from, to); ok {
				edge.Via = x[manifest.AttrType].String()
			}

			model.Edges = append(model.Edges, edge)
		}
	}

	return model
}

func transformerInfo(s *catalog.Spec) TransformerInfo {
	info := TransformerInfo{
		Name:             s.Name,
		Description:      s.Description,
		EngineVersion:    s.Manifest.EngineVersion,
		ConsumesMetadata: s.Manifest.ConsumesMetadata,
		Inputs:           attributeInfos(s.Manifest.Inputs),
		Outputs:          attributeInfos(s.Manifest.Outputs),
	}

	if len(s.Command) > 0 {
		info.Command = strings.Join(s.Command, " ")
	}

	if s.Timeout.Duration > 0 {
		info.Timeout = s.Timeout.Duration.String()
	}

	if typ, ok := s.Manifest.Outputs[manifest.AttrType].First().(string); ok {
		info.PrimaryType = typ
	}

	_, hasWidth := s.Manifest.Outputs[manifest.AttrWidth]
	_, hasHeight := s.Manifest.Outputs[manifest.AttrHeight]
	info.HasDimensions = hasWidth || hasHeight

	return info
}

// attributeInfos renders a capability surface in stable attribute order.
func attributeInfos(attrs manifest.Attributes) []AttributeInfo {
	names := make([]string, 0, len(attrs))
	for name := range attrs {
		names = append(names, name)
	}

	sort.Strings(names)

	infos := make([]AttributeInfo, 0, len(names))
	for _, name := range names {
		infos = append(infos, AttributeInfo{Name: name, Expression: attrs[name].String()})
	}

	return infos
}

// maxExampleRenditions caps how many renditions the generated example lists.
const maxExampleRenditions = 3

// GenerateExampleYAML creates an example instructions document covering the
// catalog's primary output types.
func GenerateExampleYAML(model *DocModel) string {
	var b strings.Builder

	b.WriteString("source: https://example.com/asset.tiff\nrenditions:\n")

	seen := make(map[string]bool)

	for _, t := range model.Transformers {
		if t.PrimaryType == "" || seen[t.PrimaryType] {
			continue
		}

		seen[t.PrimaryType] = true

		fmt.Fprintf(&b, "  - type: %s\n", t.PrimaryType)

		if t.HasDimensions {
			b.WriteString("    width: 1024\n    height: 1024\n")
		}

		if len(seen) == maxExampleRenditions {
			break
		}
	}

	return b.String()
}
