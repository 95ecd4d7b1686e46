package pipeline

import (
	"sort"
	"sync"
)

// Registry maps transformer names to transformers. Registration is
// last-writer-wins: a transformer re-registered under an existing name
// replaces the prior entry.
type Registry struct {
	mu           sync.RWMutex
	transformers map[string]Transformer
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{transformers: map[string]Transformer{}}
}

// Register adds or replaces a transformer.
func (r *Registry) Register(t Transformer) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.transformers[t.Name()] = t
}

// Get looks up a transformer by name.
func (r *Registry) Get(name string) (Transformer, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.transformers[name]

	return t, ok
}

// Names returns all registered names in sorted order so that graph walks
// are deterministic.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.transformers))
	for name := range r.transformers {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}

// Len returns the number of registered transformers.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.transformers)
}
