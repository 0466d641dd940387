package relation

import (
	"slices"
	"sync"
)

// Registry maps entity type names to the loaders used to resolve relation
// targets. A type must be registered before it can own a relation index or
// be the target of a Put.
type Registry struct {
	mu      sync.RWMutex
	loaders map[string]Loader
}

// NewRegistry creates a new empty Registry.
func NewRegistry() *Registry {
	return &Registry{loaders: make(map[string]Loader)}
}

// Register makes entityType relatable, replacing any previous loader.
func (r *Registry) Register(entityType string, loader Loader) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.loaders[entityType] = loader
}

// Loader returns the loader for entityType.
func (r *Registry) Loader(entityType string) (Loader, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	l, ok := r.loaders[entityType]
	return l, ok
}

// Has returns true if entityType is registered.
func (r *Registry) Has(entityType string) bool {
	_, ok := r.Loader(entityType)
	return ok
}

// Types returns the registered type names, sorted.
func (r *Registry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	types := make([]string, 0, len(r.loaders))
	for t := range r.loaders {
		types = append(types, t)
	}
	slices.Sort(types)
	return types
}
