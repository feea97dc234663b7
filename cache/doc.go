// Package cache provides key derivation and the persistent cache store used by
// the memoize decorators.
//
// # Overview
//
// This package exports two main interfaces and their default implementations:
//
//   - KeyDeriver: builds deterministic keys from a function identity and its call arguments
//   - CacheService: loads and saves encoded results under those keys (implemented by Service)
//
// A Service owns its storage medium, codec and counters. It is built explicitly:
//
//	svc, err := cache.NewService(cache.Config{Dir: "/var/cache/app"})
//	if err != nil {
//		return err
//	}
//	defer svc.Close()
//
// Most code does not call Service directly; see the memoize package.
//
// # Key Derivation
//
// Arguments are encoded with msgpack (map keys sorted) and hashed together
// with the function identity. The digest is SHA-256 by default:
//
//   - Positional and keyword forms of the same value are different keys
//   - Keyword order does not matter
//   - With required keys, only those keyword values form the key, and a call
//     that does not pass all of them by keyword bypasses the cache
//
// A value msgpack cannot encode is keyed by its Surrogate string instead. The
// call stays cacheable; the substitution is logged and counted as degraded.
//
// # Storage
//
// Entries are framed with a magic prefix and an xxhash64 checksum. The
// medium is chosen by Config.Backend:
//
//   - file: one file per key under Config.Dir (default)
//   - bolt: a single bbolt database file
//   - sqlite: a SQLite table accessed through bun
//   - memory: process-local, gone on exit
//
// Config.Memory enables a sturdyc layer in front of any of them. It only
// mirrors entries; it never removes persisted ones.
//
// # Error Handling
//
// An absent entry is a miss, never an error. Every other storage failure is a
// *StorageError matching ErrStorage, so callers can tell it apart from errors
// of the wrapped function. Entries that fail framing or decoding also match
// ErrCorruptEntry and are not served.
package cache
