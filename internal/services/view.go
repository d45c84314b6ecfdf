package services

import (
	"context"
	"errors"
)

// ViewState is which of the two screens is showing.
type ViewState int

const (
	LoggedOut ViewState = iota
	TrackerView
)

func (s ViewState) String() string {
	switch s {
	case TrackerView:
		return "tracker"
	default:
		return "logged-out"
	}
}

// View describes what the presentation layer should show. Notice carries a
// one-off warning, such as recovered corrupt data.
type View struct {
	State  ViewState
	User   string
	Notice string
}

var (
	ErrEmptyName   = errors.New("name must not be empty")
	ErrNotLoggedIn = errors.New("no user is logged in")
)

// Confirmation is a destructive action waiting for the user's answer.
// Declining is simply never calling Confirm.
type Confirmation struct {
	Prompt  string
	confirm func(ctx context.Context) error
}

// Confirm carries out the action.
func (c *Confirmation) Confirm(ctx context.Context) error {
	if c == nil || c.confirm == nil {
		return nil
	}
	return c.confirm(ctx)
}
