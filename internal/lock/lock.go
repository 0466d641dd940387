// Package lock provides a keyed mutex: callers holding different keys run
// independently, callers holding the same key are serialized.
package lock

import (
	"context"
	"sync"

	"github.com/jacentio/lattice/internal/shard"
)

// Manager hands out per-key locks. Entries are created on first use and
// evicted once no caller holds or waits on them, so the map stays bounded by
// the number of keys currently in contention.
//
// The zero value is not usable; create one with New.
type Manager struct {
	stripes []*stripe
}

type stripe struct {
	mu      sync.Mutex
	entries map[string]*entry
}

type entry struct {
	sem  chan struct{} // capacity 1; a send acquires, a receive releases
	refs int           // holders + waiters, guarded by stripe.mu
}

// New creates a Manager whose key map is split into the given number of
// independently locked stripes (clamped to [1, 256]).
func New(stripes int) *Manager {
	n := shard.Count(stripes)
	m := &Manager{stripes: make([]*stripe, n)}
	for i := range m.stripes {
		m.stripes[i] = &stripe{entries: make(map[string]*entry)}
	}
	return m
}

// WithLock runs fn while holding the lock for key. The lock is released on
// every exit path, including a panic in fn. If ctx ends while waiting, fn is
// not run and ctx.Err() is returned.
func (m *Manager) WithLock(ctx context.Context, key string, fn func() error) error {
	release, err := m.acquire(ctx, key)
	if err != nil {
		return err
	}
	defer release()
	return fn()
}

func (m *Manager) acquire(ctx context.Context, key string) (func(), error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s := m.stripes[shard.Of(key, len(m.stripes))]
	s.mu.Lock()
	e, ok := s.entries[key]
	if !ok {
		e = &entry{sem: make(chan struct{}, 1)}
		s.entries[key] = e
	}
	e.refs++
	s.mu.Unlock()

	select {
	case e.sem <- struct{}{}:
	case <-ctx.Done():
		s.unref(key, e)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-e.sem
			s.unref(key, e)
		})
	}, nil
}

func (s *stripe) unref(key string, e *entry) {
	s.mu.Lock()
	e.refs--
	if e.refs == 0 {
		delete(s.entries, key)
	}
	s.mu.Unlock()
}

// Len returns the number of keys currently held or waited on.
func (m *Manager) Len() int {
	n := 0
	for _, s := range m.stripes {
		s.mu.Lock()
		n += len(s.entries)
		s.mu.Unlock()
	}
	return n
}
