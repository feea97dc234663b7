package cacheinfra

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"
)

// DefaultBucket is the bbolt bucket used when none is configured.
const DefaultBucket = "entries"

// BoltStore keeps entries in a single bbolt file.
type BoltStore struct {
	db     *bolt.DB
	bucket []byte
}

// OpenBoltStore opens or creates the database at path.
func OpenBoltStore(path string, bucket string) (*BoltStore, error) {
	if path == "" {
		return nil, &ConfigError{Field: "Path", Message: "cannot be empty"}
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("cacheinfra: create bolt dir: %w", err)
	}

	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, err
	}

	if bucket == "" {
		bucket = DefaultBucket
	}
	name := []byte(bucket)
	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(name)
		return err
	}); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &BoltStore{db: db, bucket: name}, nil
}

// Exists implements Store.
func (s *BoltStore) Exists(_ context.Context, key string) (bool, error) {
	var found bool
	err := s.db.View(func(tx *bolt.Tx) error {
		found = tx.Bucket(s.bucket).Get([]byte(key)) != nil
		return nil
	})
	return found, err
}

// Read implements Store.
func (s *BoltStore) Read(_ context.Context, key string) ([]byte, error) {
	var out []byte
	var found bool
	if err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(s.bucket).Get([]byte(key))
		if v != nil {
			found = true
			// v is only valid for the life of the transaction
			out = append([]byte(nil), v...)
		}
		return nil
	}); err != nil {
		return nil, err
	}
	if !found {
		return nil, ErrNotFound
	}
	return out, nil
}

// Write implements Store.
func (s *BoltStore) Write(_ context.Context, key string, data []byte) error {
	if err := ValidateKey(key); err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(s.bucket).Put([]byte(key), data)
	})
}

// Close closes the underlying database.
func (s *BoltStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}
