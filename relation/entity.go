package relation

import (
	"context"
	"fmt"
	"strings"
)

// Entity is anything that can take part in a relation.
type Entity interface {
	// EntityType returns the type name (e.g., "user").
	EntityType() string

	// EntityID returns the primary key within the type.
	EntityID() string
}

// Ref is a bare entity reference.
type Ref struct {
	Type string
	ID   string
}

func (r Ref) EntityType() string { return r.Type }
func (r Ref) EntityID() string   { return r.ID }

// String returns the type-qualified reference (e.g., "user#u1").
func (r Ref) String() string { return r.Type + "#" + r.ID }

// RefOf returns the reference of any entity.
func RefOf(e Entity) Ref {
	return Ref{Type: e.EntityType(), ID: e.EntityID()}
}

// ParseRef parses a "type#id" reference.
func ParseRef(s string) (Ref, error) {
	typ, id, ok := strings.Cut(s, "#")
	if !ok || typ == "" || id == "" {
		return Ref{}, fmt.Errorf("lattice: invalid reference %q (want type#id)", s)
	}
	return Ref{Type: typ, ID: id}, nil
}

// Loader resolves an entity of one type by id.
type Loader interface {
	Load(ctx context.Context, id string) (Entity, error)
}

// LoaderFunc adapts a function to the Loader interface.
type LoaderFunc func(ctx context.Context, id string) (Entity, error)

func (f LoaderFunc) Load(ctx context.Context, id string) (Entity, error) {
	return f(ctx, id)
}

// RefLoader returns a Loader that resolves ids to bare Refs of the given type.
// Useful when callers only need identities, not full entities.
func RefLoader(typ string) Loader {
	return LoaderFunc(func(_ context.Context, id string) (Entity, error) {
		return Ref{Type: typ, ID: id}, nil
	})
}
