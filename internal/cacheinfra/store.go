package cacheinfra

import (
	"context"
	"errors"
	"regexp"
)

// ErrNotFound is returned by Read when no entry exists for a key.
var ErrNotFound = errors.New("cacheinfra: entry not found")

// ErrInvalidKey is returned when a key cannot be mapped onto the storage medium.
var ErrInvalidKey = errors.New("cacheinfra: invalid key")

// Store is the storage medium behind a cache location.
//
// Contract:
//   - Read returns ErrNotFound (possibly wrapped) when the key is absent. Any other
//     error is a storage failure.
//   - Write overwrites an existing entry for the same key.
//   - Implementations must be safe for concurrent use.
type Store interface {
	Exists(ctx context.Context, key string) (bool, error)
	Read(ctx context.Context, key string) ([]byte, error)
	Write(ctx context.Context, key string, data []byte) error
	Close() error
}

var keyPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,128}$`)

// ValidateKey reports whether key is safe to use as a file name or record id.
func ValidateKey(key string) error {
	if !keyPattern.MatchString(key) {
		return ErrInvalidKey
	}
	return nil
}
