package planner

import (
	"strings"

	"github.com/adobe/asset-compute-pipeline-sub000/internal/maputil"
	"github.com/adobe/asset-compute-pipeline-sub000/pkg/manifest"
	"github.com/adobe/asset-compute-pipeline-sub000/pkg/pipeline"
)

// realize turns a discovered chain into concrete steps. The first input is
// a deep copy of the source; each intermediate output is the best value of
// the cached edge intersection relative to that step's input; the final
// output is the caller's requested instructions verbatim. Each following
// input is the previous output without its userData.
func (f *Finder) realize(chain []string, source, output map[string]interface{}) []Step {
	graph := f.Graph()
	userData, _ := maputil.GetMap(output, manifest.KeyUserData)

	steps := make([]Step, len(chain))
	input := maputil.DeepCopyMap(source)

	for i, name := range chain {
		var stepOutput map[string]interface{}

		if i < len(chain)-1 {
			intersection, _ := graph.Intersection(name, chain[i+1])
			stepOutput = manifest.Best(intersection, input)

			// Dimensions flow through untouched when the edge does not
			// constrain them.
			for _, dim := range []string{manifest.AttrWidth, manifest.AttrHeight} {
				if _, constrained := stepOutput[dim]; constrained {
					continue
				}

				if v, ok := input[dim]; ok {
					stepOutput[dim] = v
				}
			}

			if userData != nil {
				stepOutput[manifest.KeyUserData] = maputil.DeepCopyMap(userData)
			}
		} else {
			stepOutput = maputil.DeepCopyMap(output)
		}

		if t, ok := f.registry.Get(name); ok {
			stampSourceType(input, t.Manifest())
		}

		steps[i] = Step{Name: name, Input: input, Output: stepOutput}

		input = maputil.CopyExcluding(stepOutput, manifest.KeyUserData)
	}

	return steps
}

// stampSourceType copies a transformer's declared sourceType onto the
// input bag so the engine knows how to materialize it.
func stampSourceType(input map[string]interface{}, m *manifest.Manifest) {
	expr, ok := m.Inputs[manifest.AttrSourceType]
	if !ok {
		return
	}

	if v, isString := expr.First().(string); isString && v != "" {
		input[manifest.AttrSourceType] = v
	}
}

// prependOrientationStep inserts an orientation-normalizing callback ahead
// of a single-step plan when the sole transformer consumes source metadata
// itself and the probed source carries a non-trivial EXIF orientation.
func (f *Finder) prependOrientationStep(steps []Step, source map[string]interface{}) []Step {
	if len(steps) != 1 {
		return steps
	}

	t, ok := f.registry.Get(steps[0].Name)
	if !ok || !t.Manifest().ConsumesMetadata {
		return steps
	}

	orientation, ok := maputil.GetNumber(source, manifest.AttrOrientation)
	if !ok || orientation <= 1 {
		return steps
	}

	callback, ok := f.findOrientationCallback(source)
	if !ok {
		return steps
	}

	srcType, _ := maputil.GetString(source, manifest.AttrType)

	normalize := Step{
		Name:   callback,
		Input:  maputil.DeepCopyMap(source),
		Output: map[string]interface{}{manifest.AttrType: srcType},
	}

	return append([]Step{normalize}, steps...)
}

// findOrientationCallback picks the first registered callback-prefixed
// transformer whose inputs accept the source.
func (f *Finder) findOrientationCallback(source map[string]interface{}) (string, bool) {
	for _, name := range f.registry.Names() {
		if !strings.HasPrefix(name, pipeline.CallbackPrefix) {
			continue
		}

		t, ok := f.registry.Get(name)
		if !ok {
			continue
		}

		if manifest.Matches(t.Manifest().Inputs, source) {
			return name, true
		}
	}

	return "", false
}
