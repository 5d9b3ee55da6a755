package memory

import (
	"bytes"
	"context"
	"sort"

	"github.com/yndnr/securestore-go/internal/core/domain"
	"github.com/yndnr/securestore-go/internal/core/service"
	"github.com/yndnr/securestore-go/pkg/cmap"
)

type record struct {
	data []byte
	opts service.PutOptions
}

// Store is an in-memory service.Backend.
type Store struct {
	entries *cmap.Map[record]
}

var (
	_ service.Backend      = (*Store)(nil)
	_ service.KeyLister    = (*Store)(nil)
	_ service.SizeReporter = (*Store)(nil)
)

// Option configures the Store.
type Option func(*storeOptions)

type storeOptions struct {
	shards int
}

// WithShards sets the number of map shards (power of 2).
func WithShards(n int) Option {
	return func(o *storeOptions) {
		o.shards = n
	}
}

// New creates an empty store.
func New(opts ...Option) *Store {
	o := storeOptions{shards: cmap.DefaultShardCount}
	for _, opt := range opts {
		opt(&o)
	}
	return &Store{entries: cmap.NewWithShards[record](o.shards)}
}

// Get returns a copy of the stored bytes.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	rec, ok := s.entries.Get(key)
	if !ok {
		return nil, domain.ErrEntryNotFound
	}
	return bytes.Clone(rec.data), nil
}

// Put stores a copy of data.
func (s *Store) Put(ctx context.Context, key string, data []byte, opts service.PutOptions) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.entries.Set(key, record{data: bytes.Clone(data), opts: opts})
	return nil
}

// Delete removes key.
func (s *Store) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.entries.Delete(key)
	return nil
}

// ListKeys returns the keys with prefix in lexical order.
func (s *Store) ListKeys(ctx context.Context, prefix string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	keys := s.entries.Keys(prefix)
	sort.Strings(keys)
	return keys, nil
}

// UsedBytes returns the total size of stored values.
func (s *Store) UsedBytes(ctx context.Context) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	var n int64
	s.entries.Range(func(_ string, rec record) bool {
		n += int64(len(rec.data))
		return true
	})
	return n, nil
}

// Options returns the PutOptions key was last stored with.
func (s *Store) Options(key string) (service.PutOptions, bool) {
	rec, ok := s.entries.Get(key)
	return rec.opts, ok
}

// Len returns the number of stored entries.
func (s *Store) Len() int {
	return s.entries.Count()
}

// Close releases all entries.
func (s *Store) Close() error {
	s.entries.Clear()
	return nil
}
