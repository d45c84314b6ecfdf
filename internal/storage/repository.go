package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"tracker/internal/core"
)

// ErrCorruptData is returned when a stored transaction list cannot be decoded.
var ErrCorruptData = errors.New("stored transactions are corrupt")

const (
	transactionsKeyPrefix = "transactions_"
	quarantineKeyPrefix   = "corrupt:"
)

// TransactionsKey returns the durable key of a user's transaction list.
func TransactionsKey(user string) string {
	return transactionsKeyPrefix + user
}

// QuarantineKey returns the key a corrupt list of user is copied to. User
// keys always start with transactionsKeyPrefix, so no user name maps here.
func QuarantineKey(user string) string {
	return quarantineKeyPrefix + TransactionsKey(user)
}

// TransactionRepository persists whole per-user transaction lists as JSON.
type TransactionRepository struct {
	store Store
}

func NewTransactionRepository(store Store) *TransactionRepository {
	return &TransactionRepository{store: store}
}

// Load returns the user's list in insertion order, or an empty list when the
// user has no entry.
func (r *TransactionRepository) Load(ctx context.Context, user string) ([]core.Transaction, error) {
	raw, err := r.store.Get(ctx, TransactionsKey(user))
	if errors.Is(err, ErrNotFound) {
		return []core.Transaction{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load transactions for %s: %w", user, err)
	}

	var list []core.Transaction
	if err := json.Unmarshal(raw, &list); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptData, err)
	}
	if list == nil {
		list = []core.Transaction{}
	}
	return list, nil
}

// Save rewrites the user's entry with the full list.
func (r *TransactionRepository) Save(ctx context.Context, user string, list []core.Transaction) error {
	if list == nil {
		list = []core.Transaction{}
	}
	raw, err := json.Marshal(list)
	if err != nil {
		return fmt.Errorf("encode transactions: %w", err)
	}
	if err := r.store.Set(ctx, TransactionsKey(user), raw); err != nil {
		return fmt.Errorf("save transactions for %s: %w", user, err)
	}
	return nil
}

// Delete removes the user's entry outright.
func (r *TransactionRepository) Delete(ctx context.Context, user string) error {
	if err := r.store.Delete(ctx, TransactionsKey(user)); err != nil {
		return fmt.Errorf("delete transactions for %s: %w", user, err)
	}
	return nil
}

// Quarantine copies an undecodable entry aside so a fresh list can be saved
// without losing the original bytes. It returns the key the copy lives under.
func (r *TransactionRepository) Quarantine(ctx context.Context, user string) (string, error) {
	key := TransactionsKey(user)
	raw, err := r.store.Get(ctx, key)
	if err != nil {
		return "", fmt.Errorf("read corrupt entry: %w", err)
	}
	backup := QuarantineKey(user)
	if err := r.store.Set(ctx, backup, raw); err != nil {
		return "", fmt.Errorf("copy corrupt entry: %w", err)
	}
	return backup, nil
}
