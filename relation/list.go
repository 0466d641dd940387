package relation

import (
	"context"
	"fmt"
	"iter"

	"github.com/jacentio/lattice/kv"
)

// List enumerates the edges of from, resolving each target through the
// registry. The sequence is lazy and restartable: each range re-issues the
// scan, and breaking out of the loop or cancelling ctx stops it. The first
// store, decode or load error is yielded and ends the sequence.
//
// List takes no locks; edges added or removed while it runs may or may not
// be observed.
func (x *Index) List(ctx context.Context, from Entity, opts ListOptions) iter.Seq2[Related, error] {
	return func(yield func(Related, error) bool) {
		if err := x.checkFrom(from); err != nil {
			yield(Related{}, err)
			return
		}

		r := kv.Range{
			Prefix:  x.keys.ForwardPrefix(x.attr, from.EntityID()),
			Start:   opts.Start,
			End:     opts.End,
			Limit:   opts.Limit,
			Reverse: opts.reverse(),
		}
		for entry, err := range x.graph.store.Scan(ctx, r) {
			if err != nil {
				yield(Related{}, err)
				return
			}
			var edge Edge
			if err := x.graph.config.Codec.Unmarshal(entry.Value, &edge); err != nil {
				yield(Related{}, fmt.Errorf("lattice: decode edge %s: %w", entry.Key, err))
				return
			}
			entity, err := x.resolve(ctx, edge)
			if err != nil {
				yield(Related{}, err)
				return
			}
			if !yield(Related{Entity: entity, Edge: edge}, nil) {
				return
			}
		}
	}
}

// Each calls fn for every edge List yields, stopping at the first error from
// either the enumeration or fn.
func (x *Index) Each(ctx context.Context, from Entity, opts ListOptions, fn func(Related) error) error {
	for rel, err := range x.List(ctx, from, opts) {
		if err != nil {
			return err
		}
		if err := fn(rel); err != nil {
			return err
		}
	}
	return nil
}

// All collects List into a slice.
func (x *Index) All(ctx context.Context, from Entity, opts ListOptions) ([]Related, error) {
	var out []Related
	err := x.Each(ctx, from, opts, func(r Related) error {
		out = append(out, r)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (x *Index) resolve(ctx context.Context, edge Edge) (Entity, error) {
	loader, ok := x.graph.registry.Loader(edge.ToType)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, edge.ToType)
	}
	return loader.Load(ctx, edge.To)
}
