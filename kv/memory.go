package kv

import (
	"context"
	"iter"
	"slices"
	"sort"
	"sync"
)

// Memory is an in-memory Store backed by a sorted key slice.
// It is safe for concurrent use and intended for tests and local tooling.
type Memory struct {
	mu   sync.RWMutex
	keys []string // sorted
	data map[string][]byte
}

// NewMemory creates an empty in-memory Store.
func NewMemory() *Memory {
	return &Memory{data: make(map[string][]byte)}
}

func (m *Memory) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	v, ok := m.data[key]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	return slices.Clone(v), nil
}

func (m *Memory) Write(ctx context.Context, ops []Op) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := validateOps(ops); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, op := range ops {
		switch op.Kind {
		case OpPut:
			if _, ok := m.data[op.Key]; !ok {
				i := sort.SearchStrings(m.keys, op.Key)
				m.keys = slices.Insert(m.keys, i, op.Key)
			}
			m.data[op.Key] = slices.Clone(op.Value)
		case OpDel:
			if _, ok := m.data[op.Key]; !ok {
				continue
			}
			i := sort.SearchStrings(m.keys, op.Key)
			m.keys = slices.Delete(m.keys, i, i+1)
			delete(m.data, op.Key)
		}
	}
	return nil
}

func (m *Memory) Scan(ctx context.Context, r Range) iter.Seq2[Entry, error] {
	return func(yield func(Entry, error) bool) {
		// Snapshot matching entries under the read lock.
		m.mu.RLock()
		lo := sort.SearchStrings(m.keys, r.Prefix+r.Start)
		var matches []Entry
		for _, k := range m.keys[lo:] {
			// Keys are sorted from Prefix+Start, so the first miss ends the range.
			if !r.contains(k) {
				break
			}
			matches = append(matches, Entry{Key: k, Value: slices.Clone(m.data[k])})
		}
		m.mu.RUnlock()

		if r.Reverse {
			slices.Reverse(matches)
		}
		if r.Limit > 0 && len(matches) > r.Limit {
			matches = matches[:r.Limit]
		}

		for _, e := range matches {
			if err := ctx.Err(); err != nil {
				yield(Entry{}, err)
				return
			}
			if !yield(e, nil) {
				return
			}
		}
	}
}

// Len returns the number of stored keys.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.keys)
}

func (m *Memory) Close() error {
	return nil
}
