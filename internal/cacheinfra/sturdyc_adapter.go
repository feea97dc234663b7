package cacheinfra

import (
	"context"
	"errors"
	"time"

	"github.com/viccon/sturdyc"
)

// MemoConfig holds the configuration for the sturdyc hot layer.
// The layer only mirrors entries of its backing store; evicting or expiring a
// mirrored entry never removes it from the backing store.
type MemoConfig struct {
	// Capacity defines the maximum number of mirrored entries.
	// Must be greater than 0.
	Capacity int

	// NumShards determines the number of cache shards for concurrent access.
	// Must be greater than 0. Default: 16
	NumShards int

	// TTL is how long a mirrored entry is served before the backing store is
	// consulted again. Must be greater than 0.
	TTL time.Duration

	// EvictionPercentage specifies what percentage of mirrored entries to evict
	// when the layer reaches its capacity. Must be between 1-100.
	EvictionPercentage int

	// EvictionInterval sets how often expired mirrors are swept.
	// Zero value uses the sturdyc default.
	EvictionInterval time.Duration
}

// DefaultMemoConfig returns a MemoConfig suitable for a single process.
func DefaultMemoConfig() MemoConfig {
	return MemoConfig{
		Capacity:           1024,
		NumShards:          16,
		TTL:                10 * time.Minute,
		EvictionPercentage: 10,
	}
}

// ToSturdycOptions converts the optional parts of MemoConfig to sturdyc options.
// Capacity, NumShards, TTL and EvictionPercentage go to sturdyc.New directly.
func (c MemoConfig) ToSturdycOptions() []sturdyc.Option {
	var options []sturdyc.Option
	if c.EvictionInterval > 0 {
		options = append(options, sturdyc.WithEvictionInterval(c.EvictionInterval))
	}
	return options
}

// Validate checks if the configuration values are valid.
func (c MemoConfig) Validate() error {
	if c.Capacity <= 0 {
		return &ConfigError{Field: "Capacity", Message: "must be greater than 0"}
	}

	if c.NumShards <= 0 {
		return &ConfigError{Field: "NumShards", Message: "must be greater than 0"}
	}

	if c.TTL <= 0 {
		return &ConfigError{Field: "TTL", Message: "must be greater than 0"}
	}

	if c.EvictionPercentage < 1 || c.EvictionPercentage > 100 {
		return &ConfigError{Field: "EvictionPercentage", Message: "must be between 1 and 100"}
	}

	if c.EvictionInterval < 0 {
		return &ConfigError{Field: "EvictionInterval", Message: "must be non-negative"}
	}

	return nil
}

// ConfigError represents a configuration validation error.
type ConfigError struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	return "config error in field " + e.Field + ": " + e.Message
}

// MemoStore fronts a backing Store with a sturdyc client holding raw entry bytes.
type MemoStore struct {
	backing Store
	client  *sturdyc.Client[[]byte]
}

// NewMemoStore validates cfg and wraps backing with an in-process mirror.
func NewMemoStore(backing Store, cfg MemoConfig) (*MemoStore, error) {
	if backing == nil {
		return nil, &ConfigError{Field: "backing", Message: "cannot be nil"}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	client := sturdyc.New[[]byte](
		cfg.Capacity,
		cfg.NumShards,
		cfg.TTL,
		cfg.EvictionPercentage,
		cfg.ToSturdycOptions()...,
	)

	return &MemoStore{backing: backing, client: client}, nil
}

// Exists implements Store.
func (s *MemoStore) Exists(ctx context.Context, key string) (bool, error) {
	if _, ok := s.client.Get(key); ok {
		return true, nil
	}
	return s.backing.Exists(ctx, key)
}

// Read implements Store. A backing miss is never mirrored, so an entry written
// later by another process is picked up on the next read.
func (s *MemoStore) Read(ctx context.Context, key string) ([]byte, error) {
	if v, ok := s.client.Get(key); ok {
		return append([]byte(nil), v...), nil
	}

	data, err := s.backing.Read(ctx, key)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	s.client.Set(key, append([]byte(nil), data...))
	return data, nil
}

// Write implements Store. The backing store is written first; the mirror is
// only updated once the write succeeded.
func (s *MemoStore) Write(ctx context.Context, key string, data []byte) error {
	if err := s.backing.Write(ctx, key, data); err != nil {
		s.client.Delete(key)
		return err
	}
	s.client.Set(key, append([]byte(nil), data...))
	return nil
}

// Forget drops the mirrored copy of key, leaving the backing entry untouched.
func (s *MemoStore) Forget(key string) {
	s.client.Delete(key)
}

// Mirrored returns the number of entries currently held in memory.
func (s *MemoStore) Mirrored() int {
	return s.client.Size()
}

// Close closes the backing store.
func (s *MemoStore) Close() error {
	return s.backing.Close()
}
