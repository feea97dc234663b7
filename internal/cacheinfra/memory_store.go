package cacheinfra

import (
	"context"

	"github.com/puzpuzpuz/xsync/v3"
)

// MemoryStore is a process-local medium. Entries live as long as the store.
type MemoryStore struct {
	entries *xsync.MapOf[string, []byte]
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: xsync.NewMapOf[string, []byte]()}
}

// Exists implements Store.
func (s *MemoryStore) Exists(_ context.Context, key string) (bool, error) {
	_, ok := s.entries.Load(key)
	return ok, nil
}

// Read implements Store.
func (s *MemoryStore) Read(_ context.Context, key string) ([]byte, error) {
	v, ok := s.entries.Load(key)
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), v...), nil
}

// Write implements Store.
func (s *MemoryStore) Write(_ context.Context, key string, data []byte) error {
	if err := ValidateKey(key); err != nil {
		return err
	}
	s.entries.Store(key, append([]byte(nil), data...))
	return nil
}

// Len returns the number of stored entries.
func (s *MemoryStore) Len() int {
	return s.entries.Size()
}

// Close implements Store.
func (s *MemoryStore) Close() error {
	return nil
}
