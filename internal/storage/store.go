// Package storage holds the key-value port the tracker persists through and
// the typed repositories built on top of it.
package storage

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Store.Get when the key has no value.
var ErrNotFound = errors.New("key not found")

// Store is a flat string-keyed byte store. Implementations must treat Set as a
// full overwrite and Delete of a missing key as a no-op.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}
