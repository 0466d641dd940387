package kv

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"

	badger "github.com/dgraph-io/badger/v4"
)

// Badger is a Store backed by BadgerDB v4.
type Badger struct {
	db *badger.DB
}

// BadgerOptions configures the BadgerDB store.
type BadgerOptions struct {
	// Dir is the directory for BadgerDB data files.
	// Required unless InMemory is set.
	Dir string

	// InMemory runs BadgerDB without disk persistence.
	InMemory bool

	// Logger receives badger warnings and errors. Nil uses slog.Default().
	Logger *slog.Logger
}

// NewBadger opens a BadgerDB-backed Store.
func NewBadger(opts BadgerOptions) (*Badger, error) {
	if !opts.InMemory && opts.Dir == "" {
		return nil, errors.New("kv: BadgerOptions.Dir is required for on-disk mode")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	dbOpts := badger.DefaultOptions(opts.Dir).WithLogger(slogLogger{logger})
	if opts.InMemory {
		dbOpts = dbOpts.WithDir("").WithValueDir("").WithInMemory(true)
	}
	db, err := badger.Open(dbOpts)
	if err != nil {
		return nil, fmt.Errorf("kv: open badger: %w", err)
	}
	return &Badger{db: db}, nil
}

func (b *Badger) Get(_ context.Context, key string) ([]byte, error) {
	var val []byte
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		val, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrNotFound
	}
	return val, err
}

// Write applies ops in a single read-write transaction, which badger commits
// atomically.
func (b *Badger) Write(_ context.Context, ops []Op) error {
	if err := validateOps(ops); err != nil {
		return err
	}
	return b.db.Update(func(txn *badger.Txn) error {
		for _, op := range ops {
			var err error
			switch op.Kind {
			case OpPut:
				err = txn.Set([]byte(op.Key), op.Value)
			case OpDel:
				err = txn.Delete([]byte(op.Key))
			default:
				err = fmt.Errorf("kv: unknown op kind %d", op.Kind)
			}
			if err != nil {
				return err
			}
		}
		return nil
	})
}

func (b *Badger) Scan(ctx context.Context, r Range) iter.Seq2[Entry, error] {
	return func(yield func(Entry, error) bool) {
		stopped := false
		err := b.db.View(func(txn *badger.Txn) error {
			iterOpts := badger.DefaultIteratorOptions
			iterOpts.Prefix = []byte(r.Prefix)
			iterOpts.Reverse = r.Reverse
			if r.Limit > 0 && r.Limit < iterOpts.PrefetchSize {
				iterOpts.PrefetchSize = r.Limit
			}
			it := txn.NewIterator(iterOpts)
			defer it.Close()

			n := 0
			for it.Seek(seekKey(r)); it.ValidForPrefix(iterOpts.Prefix); it.Next() {
				if err := ctx.Err(); err != nil {
					return err
				}
				item := it.Item()
				key := string(item.KeyCopy(nil))
				if !r.contains(key) {
					// Past the far bound in the iteration direction.
					return nil
				}
				val, err := item.ValueCopy(nil)
				if err != nil {
					return err
				}
				if !yield(Entry{Key: key, Value: val}, nil) {
					stopped = true
					return nil
				}
				n++
				if r.Limit > 0 && n >= r.Limit {
					return nil
				}
			}
			return nil
		})
		if err != nil && !stopped {
			yield(Entry{}, err)
		}
	}
}

// seekKey returns the first key to position an iterator on for r.
func seekKey(r Range) []byte {
	if !r.Reverse {
		return []byte(r.Prefix + r.Start)
	}
	if r.End != "" {
		return []byte(r.Prefix + r.End)
	}
	// Stored keys are valid UTF-8 and never contain 0xFF, so this sorts after
	// every key under Prefix.
	return append([]byte(r.Prefix), 0xFF)
}

func (b *Badger) Close() error {
	return b.db.Close()
}

// slogLogger adapts slog to badger's logger interface, dropping debug and
// info chatter.
type slogLogger struct {
	l *slog.Logger
}

func (s slogLogger) Errorf(f string, v ...interface{}) {
	s.l.Error(fmt.Sprintf(f, v...), "component", "badger")
}

func (s slogLogger) Warningf(f string, v ...interface{}) {
	s.l.Warn(fmt.Sprintf(f, v...), "component", "badger")
}

func (slogLogger) Infof(string, ...interface{})  {}
func (slogLogger) Debugf(string, ...interface{}) {}
