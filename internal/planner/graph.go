package planner

import (
	"github.com/adobe/asset-compute-pipeline-sub000/pkg/manifest"
	"github.com/adobe/asset-compute-pipeline-sub000/pkg/pipeline"
)

// Graph is the directed multigraph over registered transformers: an edge
// A→B exists when A's output surface intersected with B's input surface
// still carries the type attribute. Each edge caches that intersection for
// reuse during plan realization.
type Graph struct {
	edges     map[string]map[string]manifest.Attributes
	adjacency map[string][]string
}

// NewGraph builds the graph for every ordered pair of distinct registered
// transformers. Adjacency lists follow the registry's sorted name order so
// that searches are deterministic.
func NewGraph(registry *pipeline.Registry) *Graph {
	g := &Graph{
		edges:     map[string]map[string]manifest.Attributes{},
		adjacency: map[string][]string{},
	}

	names := registry.Names()

	for _, from := range names {
		src, ok := registry.Get(from)
		if !ok {
			continue
		}

		for _, to := range names {
			if from == to {
				continue
			}

			dst, ok := registry.Get(to)
			if !ok {
				continue
			}

			x := manifest.IntersectAttributes(src.Manifest().Outputs, dst.Manifest().Inputs)
			if _, hasType := x[manifest.AttrType]; !hasType {
				continue
			}

			if g.edges[from] == nil {
				g.edges[from] = map[string]manifest.Attributes{}
			}

			g.edges[from][to] = x
			g.adjacency[from] = append(g.adjacency[from], to)
		}
	}

	return g
}

// Adjacent returns the names reachable from the given transformer, in
// deterministic order.
func (g *Graph) Adjacent(name string) []string {
	return g.adjacency[name]
}

// Intersection returns the cached surface intersection of the edge a→b.
func (g *Graph) Intersection(a, b string) (manifest.Attributes, bool) {
	x, ok := g.edges[a][b]

	return x, ok
}

// HasEdges reports whether the transformer has any incoming or outgoing
// edges.
func (g *Graph) HasEdges(name string) bool {
	if len(g.adjacency[name]) > 0 {
		return true
	}

	for _, targets := range g.edges {
		if _, ok := targets[name]; ok {
			return true
		}
	}

	return false
}
