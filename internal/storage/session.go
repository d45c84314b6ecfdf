package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// SessionKey is the key of the active user marker.
const SessionKey = "currentUser"

// SessionStore keeps the session marker in an ephemeral store.
type SessionStore struct {
	store Store
}

func NewSessionStore(store Store) *SessionStore {
	return &SessionStore{store: store}
}

// Current returns the active user name and whether a marker exists.
func (s *SessionStore) Current(ctx context.Context) (string, bool, error) {
	raw, err := s.store.Get(ctx, SessionKey)
	if errors.Is(err, ErrNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("read session marker: %w", err)
	}
	user := strings.TrimSpace(string(raw))
	if user == "" {
		return "", false, nil
	}
	return user, true, nil
}

func (s *SessionStore) Set(ctx context.Context, user string) error {
	if err := s.store.Set(ctx, SessionKey, []byte(user)); err != nil {
		return fmt.Errorf("write session marker: %w", err)
	}
	return nil
}

func (s *SessionStore) Clear(ctx context.Context) error {
	if err := s.store.Delete(ctx, SessionKey); err != nil {
		return fmt.Errorf("remove session marker: %w", err)
	}
	return nil
}
