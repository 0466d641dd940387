// Package relation indexes directed relations between typed entities on top
// of an ordered key-value store, and keeps pairs of such indexes mirrored.
//
// # Key Features
//
//   - Existence check, count and ordered enumeration per (attribute, from) node
//   - Put/Del write all three keys of an edge in one atomic batch
//   - At most one writer per (attribute, from, to) triple within a process
//   - Idempotent Del
//   - Bidirectional relations with saga-style compensation on partial failure
//
// # Entities
//
// Anything implementing [Entity] can be related:
//
//	type Entity interface {
//	    EntityType() string
//	    EntityID() string
//	}
//
// Types become relatable by registering a [Loader] on a [Registry]; the
// loader resolves edge targets during enumeration:
//
//	reg := relation.NewRegistry()
//	reg.Register("user", userLoader)
//	reg.Register("tag", relation.RefLoader("tag"))
//
// # Usage
//
//	g := relation.New(kv.NewMemory(), reg, relation.DefaultConfig())
//	follows, _ := g.Relation("user", "follows")
//	edge, err := follows.Put(ctx, u1, t1)
//
//	tagged := g.Pair("follows", "followers")
//	edges, err := tagged.Put(ctx, u1, t1) // user.follows and tag.followers
//
// # Errors
//
// The package defines domain-specific errors:
//
//   - [ErrAlreadyExists] - Put on a pair that already has an edge
//   - [ErrInconsistent] - the two sides of a bidirectional pair disagree
//   - [ErrCompensationFailed] - a saga rollback failed; both errors are kept
//   - [ErrWrongType] - from entity does not match the index model
//   - [ErrUnknownType] - entity type has no registered loader
//   - [ErrInvalidSegment] - empty id or id containing '/'
//
// A missing key in the store is never an error: Has reports false, Count
// reports 0 and Del is a no-op. All other store and loader errors are
// returned unchanged.
package relation
