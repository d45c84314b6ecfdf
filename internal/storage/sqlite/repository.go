package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"tracker/internal/storage"

	_ "modernc.org/sqlite"
)

// Namespaces separating durable data from the session marker in one database.
const (
	NamespaceDurable = "local"
	NamespaceSession = "session"
)

// DB owns the SQLite connection shared by the namespaced stores.
type DB struct {
	db      *sql.DB
	queries *Queries
}

func Open(dbPath string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &DB{db: db, queries: New(db)}, nil
}

func (d *DB) Close() error {
	if d.db != nil {
		return d.db.Close()
	}
	return nil
}

// Store returns a key-value view over one namespace.
func (d *DB) Store(namespace string) *Store {
	return &Store{queries: d.queries, namespace: namespace}
}

var _ storage.Store = (*Store)(nil)

type Store struct {
	queries   *Queries
	namespace string
}

func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	value, err := s.queries.GetEntry(ctx, s.namespace, key)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get %s/%s: %w", s.namespace, key, err)
	}
	return value, nil
}

func (s *Store) Set(ctx context.Context, key string, value []byte) error {
	if err := s.queries.UpsertEntry(ctx, s.namespace, key, value); err != nil {
		return fmt.Errorf("set %s/%s: %w", s.namespace, key, err)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, key string) error {
	if err := s.queries.DeleteEntry(ctx, s.namespace, key); err != nil {
		return fmt.Errorf("delete %s/%s: %w", s.namespace, key, err)
	}
	return nil
}
