package relation_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/jacentio/lattice/kv"
	"github.com/jacentio/lattice/relation"
)

// --- Test Entity Types ---

// User is a relatable entity with a payload.
type User struct {
	ID   string
	Name string
}

func (u User) EntityType() string { return "user" }
func (u User) EntityID() string   { return u.ID }

// Tag is a second relatable type.
type Tag struct {
	ID    string
	Label string
}

func (t Tag) EntityType() string { return "tag" }
func (t Tag) EntityID() string   { return t.ID }

var (
	u1 = User{ID: "u1", Name: "Ada"}
	u2 = User{ID: "u2", Name: "Grace"}
	t1 = Tag{ID: "t1", Label: "go"}
	t2 = Tag{ID: "t2", Label: "kv"}
	t3 = Tag{ID: "t3", Label: "saga"}
)

// newRegistry registers user and tag with loaders that rebuild entities from ids.
func newRegistry() *relation.Registry {
	reg := relation.NewRegistry()
	reg.Register("user", relation.LoaderFunc(func(_ context.Context, id string) (relation.Entity, error) {
		return User{ID: id, Name: "loaded-" + id}, nil
	}))
	reg.Register("tag", relation.LoaderFunc(func(_ context.Context, id string) (relation.Entity, error) {
		return Tag{ID: id, Label: "loaded-" + id}, nil
	}))
	return reg
}

// seqIDs returns a NewID func producing id-0001, id-0002, ...
func seqIDs() func() (string, error) {
	var n atomic.Int64
	return func() (string, error) {
		return fmt.Sprintf("id-%04d", n.Add(1)), nil
	}
}

func newGraph(t *testing.T, store kv.Store) *relation.Graph {
	t.Helper()
	cfg := relation.DefaultConfig()
	cfg.NewID = seqIDs()
	return relation.New(store, newRegistry(), cfg)
}

func mustRelation(t *testing.T, g *relation.Graph, model, attr string) *relation.Index {
	t.Helper()
	x, err := g.Relation(model, attr)
	if err != nil {
		t.Fatalf("Relation(%q, %q): %v", model, attr, err)
	}
	return x
}

func mustCount(t *testing.T, x *relation.Index, from relation.Entity) int64 {
	t.Helper()
	n, err := x.Count(context.Background(), from)
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	return n
}

func mustHas(t *testing.T, x *relation.Index, from, to relation.Entity) bool {
	t.Helper()
	ok, err := x.Has(context.Background(), from, to)
	if err != nil {
		t.Fatalf("Has: %v", err)
	}
	return ok
}

// --- Fault injection ---

// faultStore wraps a Store and lets tests fail or stall individual calls.
type faultStore struct {
	kv.Store

	mu      sync.Mutex
	onWrite func(ops []kv.Op) error
	onGet   func(key string) error
	writes  int
}

func (f *faultStore) Get(ctx context.Context, key string) ([]byte, error) {
	f.mu.Lock()
	hook := f.onGet
	f.mu.Unlock()
	if hook != nil {
		if err := hook(key); err != nil {
			return nil, err
		}
	}
	return f.Store.Get(ctx, key)
}

func (f *faultStore) Write(ctx context.Context, ops []kv.Op) error {
	f.mu.Lock()
	hook := f.onWrite
	f.writes++
	f.mu.Unlock()
	if hook != nil {
		if err := hook(ops); err != nil {
			return err
		}
	}
	return f.Store.Write(ctx, ops)
}

func (f *faultStore) setWrite(hook func(ops []kv.Op) error) {
	f.mu.Lock()
	f.onWrite = hook
	f.mu.Unlock()
}

// touches reports whether any op key contains fragment.
func touches(ops []kv.Op, fragment string) bool {
	for _, op := range ops {
		if strings.Contains(op.Key, fragment) {
			return true
		}
	}
	return false
}

var errInjected = errors.New("injected failure")
