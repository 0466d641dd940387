package relation

import (
	"context"
	"errors"
)

// State is the observable state of a mirrored pair.
type State int

const (
	// StateAbsentBoth: neither side has an edge.
	StateAbsentBoth State = iota
	// StatePresentBoth: both sides have an edge.
	StatePresentBoth
	// StateFromOnly: only the from side has an edge (a put whose rollback failed).
	StateFromOnly
	// StateToOnly: only the to side has an edge (a del whose rollback failed).
	StateToOnly
)

func (s State) String() string {
	switch s {
	case StateAbsentBoth:
		return "absent_both"
	case StatePresentBoth:
		return "present_both"
	case StateFromOnly:
		return "from_only"
	case StateToOnly:
		return "to_only"
	default:
		return "unknown"
	}
}

// Bidirectional keeps two directed indexes mirrored: attribute fromAttr on
// the from entity's type and attribute toAttr on the to entity's type. The
// indexes are resolved per call from the entities' types.
//
// The store cannot write both sides atomically, so Put and Del run as a
// two-step saga: the from side first, then the to side, and if the second
// step fails the first is undone. Put and Del on the same pair are
// serialized for the whole saga; State and Has take no locks. The returned error tells the outcomes apart:
//
//   - nil: both sides were updated
//   - any other error: the pair was restored and the error is the failed step's
//   - *CompensationError (ErrCompensationFailed): the undo failed too and the
//     pair is left in CompensationError.State
type Bidirectional struct {
	graph    *Graph
	fromAttr string
	toAttr   string
}

// PairEdges holds both edges created by Bidirectional.Put.
type PairEdges struct {
	From Edge
	To   Edge
}

// PairToggle is the outcome of Bidirectional.Toggle.
type PairToggle struct {
	// Added is true when Toggle linked the pair, false when it unlinked it.
	Added bool

	// Edges holds the created edges when Added.
	Edges *PairEdges
}

func (b *Bidirectional) sides(from, to Entity) (*Index, *Index, error) {
	fromSide, err := b.graph.Relation(from.EntityType(), b.fromAttr)
	if err != nil {
		return nil, nil, err
	}
	toSide, err := b.graph.Relation(to.EntityType(), b.toAttr)
	if err != nil {
		return nil, nil, err
	}
	return fromSide, toSide, nil
}

// Put links from and to on both sides.
func (b *Bidirectional) Put(ctx context.Context, from, to Entity) (PairEdges, error) {
	fromSide, toSide, err := b.sides(from, to)
	if err != nil {
		return PairEdges{}, err
	}

	var edges PairEdges
	err = b.graph.locks.WithLock(ctx, b.lockKey(from, to), func() error {
		fromEdge, err := fromSide.Put(ctx, from, to)
		if err != nil {
			return err
		}

		toEdge, err := toSide.Put(ctx, to, from)
		if err != nil {
			return b.compensate(ctx, "put", StateFromOnly, from, to, err, func(ctx context.Context) error {
				_, err := fromSide.Del(ctx, from, to)
				return err
			})
		}

		edges = PairEdges{From: fromEdge, To: toEdge}
		return nil
	})
	if err != nil {
		return PairEdges{}, err
	}
	return edges, nil
}

// Del unlinks from and to on both sides. Unlinking an unlinked pair is a no-op.
func (b *Bidirectional) Del(ctx context.Context, from, to Entity) error {
	fromSide, toSide, err := b.sides(from, to)
	if err != nil {
		return err
	}

	return b.graph.locks.WithLock(ctx, b.lockKey(from, to), func() error {
		res, err := fromSide.Del(ctx, from, to)
		if err != nil {
			return err
		}

		if _, err := toSide.Del(ctx, to, from); err != nil {
			if !res.Removed {
				// The from side had nothing to remove, so there is nothing to restore.
				return err
			}
			return b.compensate(ctx, "del", StateToOnly, from, to, err, func(ctx context.Context) error {
				_, err := fromSide.Put(ctx, from, to)
				return err
			})
		}
		return nil
	})
}

// lockKey names the lock held across both steps of Put and Del, so sagas on
// one pair never interleave. The pair seen from either end maps to the same
// key. It is always taken before the index locks.
func (b *Bidirectional) lockKey(from, to Entity) string {
	x := b.fromAttr + sep + RefOf(from).String()
	y := b.toAttr + sep + RefOf(to).String()
	if y < x {
		x, y = y, x
	}
	return "pair:" + x + sep + y
}

// State reports which sides of the pair currently have an edge.
func (b *Bidirectional) State(ctx context.Context, from, to Entity) (State, error) {
	fromSide, toSide, err := b.sides(from, to)
	if err != nil {
		return StateAbsentBoth, err
	}
	fromHas, err := fromSide.Has(ctx, from, to)
	if err != nil {
		return StateAbsentBoth, err
	}
	toHas, err := toSide.Has(ctx, to, from)
	if err != nil {
		return StateAbsentBoth, err
	}
	switch {
	case fromHas && toHas:
		return StatePresentBoth, nil
	case fromHas:
		return StateFromOnly, nil
	case toHas:
		return StateToOnly, nil
	default:
		return StateAbsentBoth, nil
	}
}

// Has returns true if the pair is linked on both sides and false if it is
// linked on neither. If the sides disagree it fails with an
// *InconsistentError (errors.Is ErrInconsistent).
func (b *Bidirectional) Has(ctx context.Context, from, to Entity) (bool, error) {
	state, err := b.State(ctx, from, to)
	if err != nil {
		return false, err
	}
	switch state {
	case StatePresentBoth:
		return true, nil
	case StateAbsentBoth:
		return false, nil
	default:
		return false, &InconsistentError{
			From:    RefOf(from).String(),
			To:      RefOf(to).String(),
			FromHas: state == StateFromOnly,
			ToHas:   state == StateToOnly,
		}
	}
}

// Toggle unlinks a linked pair and links an unlinked one. Like Index.Toggle
// it is not atomic.
func (b *Bidirectional) Toggle(ctx context.Context, from, to Entity) (PairToggle, error) {
	has, err := b.Has(ctx, from, to)
	if err != nil {
		return PairToggle{}, err
	}
	if has {
		return PairToggle{}, b.Del(ctx, from, to)
	}
	edges, err := b.Put(ctx, from, to)
	if err != nil {
		return PairToggle{}, err
	}
	return PairToggle{Added: true, Edges: &edges}, nil
}

// compensate runs undo after a failed second step. The undo is detached from
// ctx cancellation: a caller giving up must not also abandon the rollback.
func (b *Bidirectional) compensate(ctx context.Context, op string, stuck State, from, to Entity, cause error, undo func(context.Context) error) error {
	logger := b.graph.config.Logger
	logger.Warn("compensating bidirectional "+op,
		"from", RefOf(from).String(),
		"to", RefOf(to).String(),
		"fromAttr", b.fromAttr,
		"toAttr", b.toAttr,
		"error", cause,
	)

	undoErr := undo(context.WithoutCancel(ctx))
	if undoErr == nil {
		return cause
	}
	// A concurrent writer may already have restored the from side.
	if op == "del" && errors.Is(undoErr, ErrAlreadyExists) {
		return cause
	}

	logger.Error("compensation failed",
		"op", op,
		"state", stuck.String(),
		"from", RefOf(from).String(),
		"to", RefOf(to).String(),
		"error", cause,
		"compensationError", undoErr,
	)
	return &CompensationError{Op: op, State: stuck, Cause: cause, Compensation: undoErr}
}
