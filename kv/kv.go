// Package kv provides the ordered key-value store that relation indexes are
// persisted in.
//
// Keys are UTF-8 strings compared byte-wise; Write rejects any other key, so
// the byte 0xFF never occurs in a stored key. A [Store] offers point reads, an
// atomic multi-key write, and lazy prefix range scans in either direction.
// Three implementations are provided:
//
//   - [Memory] keeps everything in a sorted in-process slice (tests, tooling)
//   - [Badger] persists to BadgerDB
//   - [Dynamo] persists to a single DynamoDB table
package kv

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"unicode/utf8"
)

var (
	// ErrNotFound is returned by Get when the key does not exist.
	ErrNotFound = errors.New("kv: not found")

	// ErrUnsupportedRange is returned when a backend cannot serve the
	// requested range (e.g. a Dynamo prefix that does not end on a separator).
	ErrUnsupportedRange = errors.New("kv: unsupported range")

	// ErrEmptyKey is returned when an operation is given an empty key.
	ErrEmptyKey = errors.New("kv: empty key")

	// ErrKeyEncoding is returned when an operation is given a key that is not
	// valid UTF-8.
	ErrKeyEncoding = errors.New("kv: key is not valid UTF-8")
)

// Separator is the key segment separator assumed by backends that split keys
// (see [Dynamo]).
const Separator = '/'

// OpKind is the kind of a batched write operation.
type OpKind int

const (
	// OpPut stores Value under Key.
	OpPut OpKind = iota
	// OpDel removes Key. Removing an absent key is not an error.
	OpDel
)

func (k OpKind) String() string {
	switch k {
	case OpPut:
		return "put"
	case OpDel:
		return "del"
	default:
		return "unknown"
	}
}

// Op is a single operation in an atomic batch.
type Op struct {
	Kind  OpKind
	Key   string
	Value []byte
}

// Put returns an operation storing value under key.
func Put(key string, value []byte) Op {
	return Op{Kind: OpPut, Key: key, Value: value}
}

// Del returns an operation removing key.
func Del(key string) Op {
	return Op{Kind: OpDel, Key: key}
}

// Entry is a key-value pair produced by Scan.
type Entry struct {
	Key   string
	Value []byte
}

// Range selects the keys visited by Scan.
type Range struct {
	// Prefix restricts the scan to keys starting with Prefix.
	Prefix string

	// Start is the lowest key suffix (after Prefix) included. Empty = unbounded.
	Start string

	// End is the highest key suffix (after Prefix) included. Empty = unbounded.
	End string

	// Limit is the maximum number of entries produced (<= 0 = no limit).
	Limit int

	// Reverse visits keys in descending order.
	Reverse bool
}

// contains reports whether key falls inside r.
func (r Range) contains(key string) bool {
	if len(key) < len(r.Prefix) || key[:len(r.Prefix)] != r.Prefix {
		return false
	}
	suffix := key[len(r.Prefix):]
	if r.Start != "" && suffix < r.Start {
		return false
	}
	if r.End != "" && suffix > r.End {
		return false
	}
	return true
}

// Store is an ordered key-value store.
type Store interface {
	// Get returns the value for key, or ErrNotFound.
	Get(ctx context.Context, key string) ([]byte, error)

	// Write applies all ops atomically: either every op is visible or none is.
	Write(ctx context.Context, ops []Op) error

	// Scan iterates the entries inside r in key order (descending when
	// r.Reverse). The sequence is lazy; every call re-issues the scan.
	// Iteration stops at the first error, which is yielded once.
	Scan(ctx context.Context, r Range) iter.Seq2[Entry, error]

	// Close releases resources held by the store.
	Close() error
}

// validateOps rejects empty and non-UTF-8 keys before anything is written.
func validateOps(ops []Op) error {
	for _, op := range ops {
		if op.Key == "" {
			return ErrEmptyKey
		}
		if !utf8.ValidString(op.Key) {
			return fmt.Errorf("%w: %q", ErrKeyEncoding, op.Key)
		}
	}
	return nil
}
