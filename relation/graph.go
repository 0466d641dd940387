package relation

import (
	"fmt"

	"github.com/jacentio/lattice/internal/lock"
	"github.com/jacentio/lattice/kv"
)

// Graph binds relation indexes to one ordered store. All indexes created from
// the same Graph share its lock manager, so each (attr, from, to) triple has
// at most one writer at a time within the process.
type Graph struct {
	store    kv.Store
	registry *Registry
	locks    *lock.Manager
	config   Config
}

// New creates a Graph over store. Entity types must be registered on registry
// before they can own or be the target of a relation.
func New(store kv.Store, registry *Registry, config Config) *Graph {
	config.validate()
	if registry == nil {
		registry = NewRegistry()
	}
	return &Graph{
		store:    store,
		registry: registry,
		locks:    lock.New(config.LockStripes),
		config:   config,
	}
}

// Registry returns the entity registry.
func (g *Graph) Registry() *Registry {
	return g.registry
}

// Config returns the effective configuration.
func (g *Graph) Config() Config {
	return g.config
}

// Relation returns the index of attribute attr on entities of type model.
func (g *Graph) Relation(model, attr string) (*Index, error) {
	if err := validateSegments(model, attr); err != nil {
		return nil, err
	}
	if !g.registry.Has(model) {
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, model)
	}
	return &Index{
		graph: g,
		model: model,
		attr:  attr,
		keys:  NewScheme(g.config.Root, model),
	}, nil
}

// Pair returns the coordinator that keeps attribute fromAttr on from entities
// and attribute toAttr on to entities mirrored.
func (g *Graph) Pair(fromAttr, toAttr string) *Bidirectional {
	return &Bidirectional{graph: g, fromAttr: fromAttr, toAttr: toAttr}
}
