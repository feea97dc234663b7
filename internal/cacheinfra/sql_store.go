package cacheinfra

import (
	"context"
	"database/sql"
	"time"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
)

// entryNamespace seeds the row ids derived from entry keys.
var entryNamespace = uuid.MustParse("5b0c6f1e-3d7a-4c52-9e1f-8a4d2b6c7e90")

// entryRecord is the row layout of SQLStore. ID is derived from EntryKey, so
// the repository's id based upsert addresses the same row for the same key.
type entryRecord struct {
	bun.BaseModel `bun:"table:dcache_entries,alias:e"`

	ID        uuid.UUID `bun:"id,pk,notnull"`
	EntryKey  string    `bun:"entry_key,notnull,unique"`
	Payload   []byte    `bun:"payload,notnull"`
	WrittenAt time.Time `bun:"written_at,notnull"`
}

func entryID(key string) uuid.UUID {
	return uuid.NewSHA1(entryNamespace, []byte(key))
}

func entryHandlers() repository.ModelHandlers[*entryRecord] {
	return repository.ModelHandlers[*entryRecord]{
		NewRecord: func() *entryRecord {
			return &entryRecord{}
		},
		GetID: func(rec *entryRecord) uuid.UUID {
			return rec.ID
		},
		SetID: func(rec *entryRecord, id uuid.UUID) {
			rec.ID = id
		},
		GetIdentifier: func() string {
			return "entry_key"
		},
	}
}

// SQLStore keeps entries as rows of a SQLite table, accessed through a
// go-repository-bun repository.
type SQLStore struct {
	db      *bun.DB
	entries repository.Repository[*entryRecord]
}

// OpenSQLStore opens the SQLite database described by dsn and creates the
// entries table when missing.
func OpenSQLStore(ctx context.Context, dsn string) (*SQLStore, error) {
	if dsn == "" {
		return nil, &ConfigError{Field: "DSN", Message: "cannot be empty"}
	}

	sqldb, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, err
	}
	// sqlite serializes writers anyway; a single connection also keeps
	// shared in-memory databases alive for the life of the store
	sqldb.SetMaxOpenConns(1)

	db := bun.NewDB(sqldb, sqlitedialect.New())
	if _, err := db.NewCreateTable().
		Model((*entryRecord)(nil)).
		IfNotExists().
		Exec(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &SQLStore{
		db:      db,
		entries: repository.NewRepository[*entryRecord](db, entryHandlers()),
	}, nil
}

// Exists implements Store.
func (s *SQLStore) Exists(ctx context.Context, key string) (bool, error) {
	n, err := s.entries.Count(ctx, repository.SelectByID(entryID(key).String()))
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Read implements Store.
func (s *SQLStore) Read(ctx context.Context, key string) ([]byte, error) {
	rec, err := s.entries.GetByID(ctx, entryID(key).String())
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return rec.Payload, nil
}

// Write implements Store. The lookup and the insert or update run in one
// transaction, so concurrent writers of a key cannot both insert it.
func (s *SQLStore) Write(ctx context.Context, key string, data []byte) error {
	if err := ValidateKey(key); err != nil {
		return err
	}
	rec := &entryRecord{
		ID:        entryID(key),
		EntryKey:  key,
		Payload:   data,
		WrittenAt: time.Now().UTC(),
	}
	return s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		_, err := s.entries.UpsertTx(ctx, tx, rec)
		return err
	})
}

// Close closes the database handle.
func (s *SQLStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}
