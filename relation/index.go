package relation

import (
	"context"
	"errors"
	"fmt"

	"github.com/jacentio/lattice/kv"
)

// Index is one directed edge set: attribute attr on entities of type model,
// pointing at entities of any registered type.
//
// Each pair is backed by three keys (forward, lookup, count; see Scheme)
// which are always written together in one atomic batch. Put and Del on the
// same (attr, from, to) triple are serialized by a lock keyed on the lookup
// key. The count update inside that section takes a second, inner lock on the
// count key, so pairs of different from nodes never wait on each other and
// pairs sharing a from node only wait for each other's batch write. Reads run
// unlocked.
type Index struct {
	graph *Graph
	model string
	attr  string
	keys  Scheme
}

// Model returns the owning entity type.
func (x *Index) Model() string { return x.model }

// Attr returns the relation attribute.
func (x *Index) Attr() string { return x.attr }

func (x *Index) checkFrom(from Entity) error {
	if from.EntityType() != x.model {
		return fmt.Errorf("%w: %s.%s got %q", ErrWrongType, x.model, x.attr, from.EntityType())
	}
	return validateSegments(from.EntityID())
}

func (x *Index) checkPair(from, to Entity) error {
	if err := x.checkFrom(from); err != nil {
		return err
	}
	return validateSegments(to.EntityID())
}

// Count returns the number of live edges of from. A missing count key is 0.
func (x *Index) Count(ctx context.Context, from Entity) (int64, error) {
	if err := x.checkFrom(from); err != nil {
		return 0, err
	}
	return x.readCount(ctx, x.keys.Count(x.attr, from.EntityID()))
}

// Has returns true if from has a live edge to to.
func (x *Index) Has(ctx context.Context, from, to Entity) (bool, error) {
	if err := x.checkPair(from, to); err != nil {
		return false, err
	}
	_, ok, err := x.readEdge(ctx, x.keys.Lookup(x.attr, from.EntityID(), to.EntityID()))
	return ok, err
}

// Put creates an edge from → to and returns it. If the pair already has an
// edge, Put fails with an *ExistsError (errors.Is ErrAlreadyExists) carrying
// the existing edge, and nothing is written.
func (x *Index) Put(ctx context.Context, from, to Entity) (Edge, error) {
	if err := x.checkPair(from, to); err != nil {
		return Edge{}, err
	}
	if err := validateSegments(to.EntityType()); err != nil {
		return Edge{}, err
	}
	if !x.graph.registry.Has(to.EntityType()) {
		return Edge{}, fmt.Errorf("%w: %q", ErrUnknownType, to.EntityType())
	}

	fromID, toID := from.EntityID(), to.EntityID()
	lookupKey := x.keys.Lookup(x.attr, fromID, toID)
	countKey := x.keys.Count(x.attr, fromID)
	codec := x.graph.config.Codec

	var edge Edge
	err := x.graph.locks.WithLock(ctx, lookupKey, func() error {
		existing, ok, err := x.readEdge(ctx, lookupKey)
		if err != nil {
			return err
		}
		if ok {
			return &ExistsError{Edge: existing}
		}

		// Pairs sharing a from node share its count key; serialize the
		// read-modify-write of the count without blocking unrelated nodes.
		return x.graph.locks.WithLock(ctx, countKey, func() error {
			count, err := x.readCount(ctx, countKey)
			if err != nil {
				return err
			}

			id, err := x.graph.config.NewID()
			if err != nil {
				return fmt.Errorf("lattice: generate edge id: %w", err)
			}
			edge = Edge{
				ID:     id,
				From:   fromID,
				To:     toID,
				ToType: to.EntityType(),
				Count:  count + 1,
			}

			edgeData, err := codec.Marshal(edge)
			if err != nil {
				return fmt.Errorf("lattice: encode edge: %w", err)
			}
			countData, err := codec.Marshal(countRecord{Count: edge.Count})
			if err != nil {
				return fmt.Errorf("lattice: encode count: %w", err)
			}

			return x.graph.store.Write(ctx, []kv.Op{
				kv.Put(x.keys.Forward(x.attr, fromID, id), edgeData),
				kv.Put(lookupKey, edgeData),
				kv.Put(countKey, countData),
			})
		})
	})
	if err != nil {
		return Edge{}, err
	}

	x.graph.config.Logger.Debug("relation put",
		"model", x.model,
		"attr", x.attr,
		"from", fromID,
		"to", toID,
		"id", edge.ID,
		"count", edge.Count,
	)
	return edge, nil
}

// Del removes the edge from → to and returns the updated count. Deleting a
// pair with no edge is a no-op that returns the current count.
func (x *Index) Del(ctx context.Context, from, to Entity) (DelResult, error) {
	if err := x.checkPair(from, to); err != nil {
		return DelResult{}, err
	}

	fromID, toID := from.EntityID(), to.EntityID()
	lookupKey := x.keys.Lookup(x.attr, fromID, toID)
	countKey := x.keys.Count(x.attr, fromID)
	codec := x.graph.config.Codec

	var result DelResult
	err := x.graph.locks.WithLock(ctx, lookupKey, func() error {
		edge, ok, err := x.readEdge(ctx, lookupKey)
		if err != nil {
			return err
		}

		if !ok {
			count, err := x.readCount(ctx, countKey)
			result = DelResult{Count: count}
			return err
		}

		return x.graph.locks.WithLock(ctx, countKey, func() error {
			count, err := x.readCount(ctx, countKey)
			if err != nil {
				return err
			}
			// The lookup key exists, so count >= 1 unless the record was damaged.
			if count > 0 {
				count--
			}
			countData, err := codec.Marshal(countRecord{Count: count})
			if err != nil {
				return fmt.Errorf("lattice: encode count: %w", err)
			}

			if err := x.graph.store.Write(ctx, []kv.Op{
				kv.Del(x.keys.Forward(x.attr, fromID, edge.ID)),
				kv.Del(lookupKey),
				kv.Put(countKey, countData),
			}); err != nil {
				return err
			}
			result = DelResult{Count: count, Removed: true}
			return nil
		})
	})
	if err != nil {
		return DelResult{}, err
	}

	if result.Removed {
		x.graph.config.Logger.Debug("relation del",
			"model", x.model,
			"attr", x.attr,
			"from", fromID,
			"to", toID,
			"count", result.Count,
		)
	}
	return result, nil
}

// Toggle deletes the edge from → to if it exists and creates it otherwise.
//
// The existence check and the mutation are separate critical sections, so
// two concurrent toggles may both see "absent" (one Put then fails with
// ErrAlreadyExists) or both see "present" (the second Del is a no-op).
func (x *Index) Toggle(ctx context.Context, from, to Entity) (ToggleResult, error) {
	has, err := x.Has(ctx, from, to)
	if err != nil {
		return ToggleResult{}, err
	}
	if has {
		res, err := x.Del(ctx, from, to)
		if err != nil {
			return ToggleResult{}, err
		}
		return ToggleResult{Count: res.Count}, nil
	}
	edge, err := x.Put(ctx, from, to)
	if err != nil {
		return ToggleResult{}, err
	}
	return ToggleResult{Added: true, Edge: &edge, Count: edge.Count}, nil
}

// readEdge reads the edge stored at key. A missing key is (Edge{}, false, nil).
func (x *Index) readEdge(ctx context.Context, key string) (Edge, bool, error) {
	data, err := x.graph.store.Get(ctx, key)
	if errors.Is(err, kv.ErrNotFound) {
		return Edge{}, false, nil
	}
	if err != nil {
		return Edge{}, false, err
	}
	var edge Edge
	if err := x.graph.config.Codec.Unmarshal(data, &edge); err != nil {
		return Edge{}, false, fmt.Errorf("lattice: decode edge %s: %w", key, err)
	}
	return edge, true, nil
}

// readCount reads the count record at key. A missing key is 0.
func (x *Index) readCount(ctx context.Context, key string) (int64, error) {
	data, err := x.graph.store.Get(ctx, key)
	if errors.Is(err, kv.ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	var rec countRecord
	if err := x.graph.config.Codec.Unmarshal(data, &rec); err != nil {
		return 0, fmt.Errorf("lattice: decode count %s: %w", key, err)
	}
	return rec.Count, nil
}
