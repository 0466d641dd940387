package relation

// Edge is one directed relation instance. Edges are created by Put and
// removed by Del; they are never modified in place.
type Edge struct {
	// ID is unique per (attr, from) and sorts in creation order.
	ID string `json:"id" msgpack:"id"`

	// From is the primary key of the from entity.
	From string `json:"from" msgpack:"from"`

	// To is the primary key of the to entity.
	To string `json:"to" msgpack:"to"`

	// ToType is the type name used to resolve To during enumeration.
	ToType string `json:"toType" msgpack:"toType"`

	// Count is the from node's edge count right after this edge was added.
	// Informational only.
	Count int64 `json:"count" msgpack:"count"`
}

// countRecord is the stored value of a count key.
type countRecord struct {
	Count int64 `json:"count" msgpack:"count"`
}

// Related is an enumerated edge together with its resolved target.
type Related struct {
	Entity Entity
	Edge   Edge
}

// RelationID returns the id of the edge the entity was reached through.
func (r Related) RelationID() string { return r.Edge.ID }

// DelResult is the outcome of Index.Del.
type DelResult struct {
	// Count is the from node's edge count after the call.
	Count int64

	// Removed reports whether an edge was deleted (false for an idempotent no-op).
	Removed bool
}

// ToggleResult is the outcome of Index.Toggle.
type ToggleResult struct {
	// Added is true when Toggle created an edge, false when it removed one.
	Added bool

	// Edge is the created edge when Added.
	Edge *Edge

	// Count is the from node's edge count after the call.
	Count int64
}

// ListOptions bounds an enumeration. The zero value lists every edge,
// newest first.
type ListOptions struct {
	// Start is the lowest edge id included. Empty = unbounded.
	Start string

	// End is the highest edge id included. Empty = unbounded.
	End string

	// Limit is the maximum number of edges (0 = no limit).
	Limit int

	// Reverse lists newest first. Nil defaults to true.
	Reverse *bool
}

func (o ListOptions) reverse() bool {
	if o.Reverse == nil {
		return true
	}
	return *o.Reverse
}

// Bool returns a pointer to b, for ListOptions.Reverse.
func Bool(b bool) *bool { return &b }
