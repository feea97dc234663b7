package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/cespare/xxhash/v2"
)

// Digest names accepted by Config.Digest.
const (
	DigestSHA256 = "sha256"
	DigestXXHash = "xxhash"
)

// Hasher turns key material into a fixed-length, filename-safe digest.
type Hasher interface {
	Sum(data []byte) string
}

// HasherFunc adapts a function to Hasher.
type HasherFunc func(data []byte) string

// Sum implements Hasher.
func (f HasherFunc) Sum(data []byte) string {
	return f(data)
}

// SHA256Hasher produces 64 lowercase hex characters.
var SHA256Hasher Hasher = HasherFunc(func(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
})

// XXHasher produces 16 lowercase hex characters. It is faster than SHA-256 but
// only 64 bits wide.
var XXHasher Hasher = HasherFunc(func(data []byte) string {
	return fmt.Sprintf("%016x", xxhash.Sum64(data))
})

// HasherFor returns the Hasher registered under name.
func HasherFor(name string) (Hasher, error) {
	switch name {
	case DigestSHA256, "":
		return SHA256Hasher, nil
	case DigestXXHash:
		return XXHasher, nil
	default:
		return nil, fmt.Errorf("cache: unknown digest %q", name)
	}
}
