package relation

import (
	"errors"
	"fmt"
)

var (
	// ErrAlreadyExists is returned by Put when the pair already has a live edge.
	// The concrete error is an *ExistsError carrying the existing edge.
	ErrAlreadyExists = errors.New("lattice: relation already exists")

	// ErrInconsistent is returned by Bidirectional.Has when the two sides
	// disagree. The concrete error is an *InconsistentError.
	ErrInconsistent = errors.New("lattice: inconsistent bi-directionality")

	// ErrCompensationFailed is returned when a saga step failed and undoing the
	// step before it failed too. The concrete error is a *CompensationError.
	ErrCompensationFailed = errors.New("lattice: compensation failed")

	// ErrWrongType is returned when the from entity's type is not the model
	// the relation index is bound to.
	ErrWrongType = errors.New("lattice: entity type does not match relation model")

	// ErrUnknownType is returned when an entity type has no registered loader.
	ErrUnknownType = errors.New("lattice: entity type not registered")

	// ErrInvalidSegment is returned when a model, attribute or entity id is
	// empty or contains the key separator.
	ErrInvalidSegment = errors.New("lattice: invalid key segment")
)

// ExistsError reports a Put on a pair that already has a live edge.
type ExistsError struct {
	Edge Edge
}

func (e *ExistsError) Error() string {
	return fmt.Sprintf("%s: %s -> %s (id %s)", ErrAlreadyExists.Error(), e.Edge.From, e.Edge.To, e.Edge.ID)
}

func (e *ExistsError) Is(target error) bool {
	return target == ErrAlreadyExists
}

// InconsistentError reports a pair whose two directed edges disagree.
type InconsistentError struct {
	From    string // type#id of the from entity
	To      string // type#id of the to entity
	FromHas bool
	ToHas   bool
}

func (e *InconsistentError) Error() string {
	return fmt.Sprintf("%s: %s has=%t, %s has=%t", ErrInconsistent.Error(), e.From, e.FromHas, e.To, e.ToHas)
}

func (e *InconsistentError) Is(target error) bool {
	return target == ErrInconsistent
}

// CompensationError reports a failed rollback. Both the error that triggered
// the rollback and the rollback's own error are kept; errors.Is and errors.As
// see through to either.
type CompensationError struct {
	// Op is the coordinator operation ("put" or "del").
	Op string

	// State is the state the pair was left in.
	State State

	// Cause is the error of the step that triggered compensation.
	Cause error

	// Compensation is the error of the failed undo.
	Compensation error
}

func (e *CompensationError) Error() string {
	return fmt.Sprintf("%s: %s left pair %s: cause: %v; compensation: %v",
		ErrCompensationFailed.Error(), e.Op, e.State, e.Cause, e.Compensation)
}

func (e *CompensationError) Is(target error) bool {
	return target == ErrCompensationFailed
}

func (e *CompensationError) Unwrap() []error {
	return []error{e.Cause, e.Compensation}
}
