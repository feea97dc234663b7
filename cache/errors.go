package cache

import (
	"errors"
	"fmt"

	"github.com/goliatone/go-dcache/internal/cacheinfra"
)

// Sentinel errors for cache operations.
var (
	// ErrStorage matches every *StorageError. Callers use it to tell a broken
	// store apart from the wrapped function's own errors.
	ErrStorage = errors.New("cache: storage failure")

	// ErrCorruptEntry reports stored bytes that failed framing or decoding.
	// It is always returned inside a *StorageError.
	ErrCorruptEntry = errors.New("cache: corrupt entry")

	// ErrEntryNotFound is the storage medium's "absent" signal. Service.Load
	// turns it into a miss; it never reaches decorator callers.
	ErrEntryNotFound = cacheinfra.ErrNotFound

	// ErrUnencodable is returned by Save when the codec cannot encode a value.
	ErrUnencodable = errors.New("cache: value is not natively encodable")

	// ErrInvalidResultType is returned when a decoded value does not match the
	// expected result type.
	ErrInvalidResultType = errors.New("cache: invalid result type")

	// ErrNilService is returned by decorators built without a service.
	ErrNilService = errors.New("cache: service is nil")
)

// StorageError is a read or write failure of the storage medium, or a stored
// entry that could not be decoded.
type StorageError struct {
	Op  string
	Key Key
	Err error
}

// Error implements the error interface.
func (e *StorageError) Error() string {
	return fmt.Sprintf("cache: %s %s: %v", e.Op, e.Key, e.Err)
}

// Unwrap exposes the underlying cause.
func (e *StorageError) Unwrap() error {
	return e.Err
}

// Is makes every StorageError match ErrStorage.
func (e *StorageError) Is(target error) bool {
	return target == ErrStorage
}

func storageError(op string, key Key, err error) error {
	return &StorageError{Op: op, Key: key, Err: err}
}
