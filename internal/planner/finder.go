// Package planner discovers transformer chains: it builds the capability
// graph over a registry and searches it breadth-first for the shortest
// sequence whose chained surfaces connect a concrete source to the
// requested output instructions, then realizes per-step attribute values
// consistent across the chain.
package planner

import (
	"fmt"
	"sync"

	"github.com/adobe/asset-compute-pipeline-sub000/internal/maputil"
	"github.com/adobe/asset-compute-pipeline-sub000/pkg/manifest"
	"github.com/adobe/asset-compute-pipeline-sub000/pkg/pipeline"
)

// expansionBound caps how many queued chains one search may dequeue.
const expansionBound = 300

// Step is one discovered plan entry: the transformer to run and the
// concrete input and output bags resolved for it.
type Step struct {
	Name   string
	Input  map[string]interface{}
	Output map[string]interface{}
}

// Finder searches the transformer graph. The graph is built lazily on
// first use and reused for the finder's lifetime, so a finder must not
// outlive registry changes.
type Finder struct {
	registry *pipeline.Registry

	once  sync.Once
	graph *Graph
}

// New creates a finder over the given registry.
func New(registry *pipeline.Registry) *Finder {
	return &Finder{registry: registry}
}

// Graph returns the lazily-built capability graph.
func (f *Finder) Graph() *Graph {
	f.once.Do(func() {
		f.graph = NewGraph(f.registry)
	})

	return f.graph
}

// Find returns the shortest transformer chain from source to output, with
// per-step attributes resolved. Failures carry classified reasons: a
// malformed source type is SourceCorrupt, everything else that prevents a
// plan is RenditionFormatUnsupported.
func (f *Finder) Find(source, output map[string]interface{}) ([]Step, error) {
	srcType, _ := maputil.GetString(source, manifest.AttrType)
	if !manifest.IsWellFormedType(srcType) {
		return nil, pipeline.NewSourceCorrupt(fmt.Sprintf("source type %q is not a valid type token", srcType))
	}

	outType, _ := maputil.GetString(output, manifest.AttrType)
	if !manifest.IsWellFormedType(outType) {
		return nil, pipeline.NewRenditionFormatUnsupported(fmt.Sprintf("requested type %q is not a valid type token", outType))
	}

	chain, err := f.search(source, output)
	if err != nil {
		return nil, err
	}

	steps := f.realize(chain, source, output)

	return f.prependOrientationStep(steps, source), nil
}

// search runs the bounded breadth-first walk and returns the first (and
// therefore shortest) chain whose tail produces the requested output.
func (f *Finder) search(source, output map[string]interface{}) ([]string, error) {
	graph := f.Graph()

	var queue [][]string

	for _, name := range f.registry.Names() {
		t, ok := f.registry.Get(name)
		if !ok {
			continue
		}

		if manifest.Matches(t.Manifest().Inputs, source) {
			queue = append(queue, []string{name})
		}
	}

	if len(queue) == 0 {
		srcType, _ := maputil.GetString(source, manifest.AttrType)

		return nil, pipeline.NewRenditionFormatUnsupported(fmt.Sprintf("no transformer accepts source type %q", srcType))
	}

	visited := map[string]bool{}
	visits := 0

	for len(queue) > 0 {
		visits++
		if visits > expansionBound {
			return nil, pipeline.NewRenditionFormatUnsupported(fmt.Sprintf("plan search exceeded %d expansions", expansionBound))
		}

		chain := queue[0]
		queue = queue[1:]

		tail := chain[len(chain)-1]

		t, ok := f.registry.Get(tail)
		if !ok {
			continue
		}

		if manifest.Matches(t.Manifest().Outputs, output) {
			return chain, nil
		}

		if visited[tail] {
			continue
		}

		visited[tail] = true

		for _, next := range graph.Adjacent(tail) {
			extended := make([]string, len(chain), len(chain)+1)
			copy(extended, chain)

			queue = append(queue, append(extended, next))
		}
	}

	outType, _ := maputil.GetString(output, manifest.AttrType)

	return nil, pipeline.NewRenditionFormatUnsupported(fmt.Sprintf("no transformer chain produces %q", outType))
}
