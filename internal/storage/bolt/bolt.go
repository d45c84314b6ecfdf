// Package bolt stores entries in a single-file BoltDB database through skv.
package bolt

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rapidloop/skv"

	"tracker/internal/storage"
)

var _ storage.Store = (*Store)(nil)

type Store struct {
	kv *skv.KVStore
}

// Open creates or opens the database file at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create bolt directory: %w", err)
	}
	kv, err := skv.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open bolt store %s: %w", path, err)
	}
	return &Store{kv: kv}, nil
}

func (s *Store) Get(_ context.Context, key string) ([]byte, error) {
	var value []byte
	err := s.kv.Get(key, &value)
	if errors.Is(err, skv.ErrNotFound) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", key, err)
	}
	return value, nil
}

func (s *Store) Set(_ context.Context, key string, value []byte) error {
	if err := s.kv.Put(key, value); err != nil {
		return fmt.Errorf("put %s: %w", key, err)
	}
	return nil
}

func (s *Store) Delete(_ context.Context, key string) error {
	err := s.kv.Delete(key)
	if err != nil && !errors.Is(err, skv.ErrNotFound) {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}

func (s *Store) Close() error {
	return s.kv.Close()
}
