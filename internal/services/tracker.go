package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"tracker/internal/amqp"
	"tracker/internal/core"
	"tracker/internal/export"
	"tracker/internal/log"
	"tracker/internal/storage"
)

const (
	logoutPrompt   = "Are you sure you want to logout?"
	deletePrompt   = "Are you sure you want to delete this transaction?"
	clearAllPrompt = "Are you sure you want to delete all transactions? This action cannot be undone!"
)

// Publisher receives an event after each mutation has been persisted.
type Publisher interface {
	Publish(ctx context.Context, event amqp.TransactionEvent) error
}

// Tracker holds one session: the active user and their in-memory list,
// written through to the durable repository on every change.
type Tracker struct {
	mu sync.Mutex

	repo      *storage.TransactionRepository
	sessions  *storage.SessionStore
	publisher Publisher
	now       func() time.Time
	logger    *log.Logger

	state        ViewState
	user         string
	transactions []core.Transaction
}

type Option func(*Tracker)

// WithPublisher enables event publishing. A nil publisher disables it.
func WithPublisher(p Publisher) Option {
	return func(t *Tracker) { t.publisher = p }
}

func WithClock(now func() time.Time) Option {
	return func(t *Tracker) { t.now = now }
}

func WithLogger(logger *log.Logger) Option {
	return func(t *Tracker) { t.logger = logger }
}

func NewTracker(repo *storage.TransactionRepository, sessions *storage.SessionStore, opts ...Option) *Tracker {
	t := &Tracker{
		repo:         repo,
		sessions:     sessions,
		now:          time.Now,
		logger:       log.Discard(),
		transactions: []core.Transaction{},
	}
	for _, opt := range opts {
		opt(t)
	}
	t.logger = t.logger.WithComponent(log.ComponentTracker)
	return t
}

// Startup restores the session from the marker if there is one.
func (t *Tracker) Startup(ctx context.Context) (View, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	user, ok, err := t.sessions.Current(ctx)
	if err != nil {
		return t.viewLocked(""), err
	}
	if !ok {
		t.resetLocked()
		return t.viewLocked(""), nil
	}

	notice, err := t.activateLocked(ctx, user)
	if err != nil {
		return t.viewLocked(""), err
	}
	t.logger.InfoContext(ctx, "Session restored",
		log.FieldOperation, log.OpStartup,
		log.FieldUser, user,
		log.FieldCount, len(t.transactions))
	return t.viewLocked(notice), nil
}

// Login makes name the active user and loads their list.
func (t *Tracker) Login(ctx context.Context, name string) (View, error) {
	user := strings.TrimSpace(name)
	if user == "" {
		return t.View(), ErrEmptyName
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.sessions.Set(ctx, user); err != nil {
		return t.viewLocked(""), err
	}
	notice, err := t.activateLocked(ctx, user)
	if err != nil {
		return t.viewLocked(""), err
	}
	t.logger.InfoContext(ctx, "User logged in",
		log.FieldOperation, log.OpLogin,
		log.FieldUser, user,
		log.FieldCount, len(t.transactions))
	return t.viewLocked(notice), nil
}

// PrepareLogout asks before ending the session.
func (t *Tracker) PrepareLogout() (*Confirmation, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.user == "" {
		return nil, ErrNotLoggedIn
	}
	user := t.user
	return &Confirmation{
		Prompt: logoutPrompt,
		confirm: func(ctx context.Context) error {
			t.mu.Lock()
			defer t.mu.Unlock()

			if t.user != user {
				return nil
			}
			if err := t.sessions.Clear(ctx); err != nil {
				return err
			}
			t.resetLocked()
			t.logger.InfoContext(ctx, "User logged out",
				log.FieldOperation, log.OpLogout,
				log.FieldUser, user)
			return nil
		},
	}, nil
}

// AddTransaction validates the raw form values, appends the record and
// persists the list.
func (t *Tracker) AddTransaction(ctx context.Context, rawAmount, rawType, rawDate string) (core.Transaction, error) {
	amount, typ, date, err := parseEntry(rawAmount, rawType, rawDate)
	if err != nil {
		t.logger.DebugContext(ctx, "Rejected transaction input",
			log.NewFields().
				WithOperation(log.OpCreate).
				WithErrorType(log.ErrorTypeValidation).
				WithError(err).
				ToSlice()...)
		return core.Transaction{}, err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.user == "" {
		return core.Transaction{}, ErrNotLoggedIn
	}

	tx, err := core.NewTransaction(t.nextIDLocked(), amount, typ, date)
	if err != nil {
		return core.Transaction{}, err
	}

	next := make([]core.Transaction, len(t.transactions), len(t.transactions)+1)
	copy(next, t.transactions)
	next = append(next, tx)
	if err := t.repo.Save(ctx, t.user, next); err != nil {
		t.logger.ErrorContext(ctx, "Failed to save transaction",
			log.NewFields().
				WithOperation(log.OpCreate).
				WithUser(t.user).
				WithErrorType(log.ErrorTypeDatabase).
				WithError(err).
				ToSlice()...)
		return core.Transaction{}, err
	}
	t.transactions = next

	t.logger.InfoContext(ctx, "Transaction added",
		log.NewFields().
			WithOperation(log.OpCreate).
			WithUser(t.user).
			WithTransaction(tx.ID, tx.Amount.String(), string(tx.Type), tx.Date.String()).
			ToSlice()...)
	t.publish(ctx, amqp.TransactionEvent{
		Kind:          amqp.TransactionCreated,
		User:          t.user,
		TransactionID: tx.ID,
		Amount:        tx.Amount.String(),
		Type:          string(tx.Type),
		Date:          tx.Date.String(),
	})
	return tx, nil
}

// PrepareDelete asks before removing the record with id. Confirming an
// unknown id rewrites the unchanged list.
func (t *Tracker) PrepareDelete(id int64) (*Confirmation, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.user == "" {
		return nil, ErrNotLoggedIn
	}
	user := t.user
	return &Confirmation{
		Prompt: deletePrompt,
		confirm: func(ctx context.Context) error {
			t.mu.Lock()
			defer t.mu.Unlock()

			if t.user != user {
				return ErrNotLoggedIn
			}

			next := make([]core.Transaction, 0, len(t.transactions))
			var removed *core.Transaction
			for i := range t.transactions {
				if removed == nil && t.transactions[i].ID == id {
					tx := t.transactions[i]
					removed = &tx
					continue
				}
				next = append(next, t.transactions[i])
			}

			if err := t.repo.Save(ctx, user, next); err != nil {
				t.logger.ErrorContext(ctx, "Failed to save after delete",
					log.FieldOperation, log.OpDelete,
					log.FieldUser, user,
					log.FieldTransactionID, id,
					log.FieldError, err)
				return err
			}
			t.transactions = next

			if removed == nil {
				t.logger.DebugContext(ctx, "Delete matched no transaction",
					log.FieldUser, user,
					log.FieldTransactionID, id)
				return nil
			}
			t.logger.InfoContext(ctx, "Transaction deleted",
				log.FieldOperation, log.OpDelete,
				log.FieldUser, user,
				log.FieldTransactionID, id)
			t.publish(ctx, amqp.TransactionEvent{
				Kind:          amqp.TransactionDeleted,
				User:          user,
				TransactionID: removed.ID,
				Amount:        removed.Amount.String(),
				Type:          string(removed.Type),
				Date:          removed.Date.String(),
			})
			return nil
		},
	}, nil
}

// PrepareClearAll asks before wiping the user's list and durable entry.
func (t *Tracker) PrepareClearAll() (*Confirmation, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.user == "" {
		return nil, ErrNotLoggedIn
	}
	user := t.user
	return &Confirmation{
		Prompt: clearAllPrompt,
		confirm: func(ctx context.Context) error {
			t.mu.Lock()
			defer t.mu.Unlock()

			if t.user != user {
				return ErrNotLoggedIn
			}
			if err := t.repo.Delete(ctx, user); err != nil {
				return err
			}
			count := len(t.transactions)
			t.transactions = []core.Transaction{}

			t.logger.InfoContext(ctx, "Transactions cleared",
				log.FieldOperation, log.OpClear,
				log.FieldUser, user,
				log.FieldCount, count)
			t.publish(ctx, amqp.TransactionEvent{Kind: amqp.TransactionsCleared, User: user})
			return nil
		},
	}, nil
}

// Summary recomputes the totals from the current list.
func (t *Tracker) Summary() core.Summary {
	t.mu.Lock()
	defer t.mu.Unlock()
	return core.ComputeSummary(t.transactions)
}

// Transactions returns a copy of the list in insertion order.
func (t *Tracker) Transactions() []core.Transaction {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]core.Transaction, len(t.transactions))
	copy(out, t.transactions)
	return out
}

// Export snapshots the active user's list for the exporter.
func (t *Tracker) Export() (export.Document, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.user == "" {
		return export.Document{}, ErrNotLoggedIn
	}
	return export.Build(t.transactions, t.user)
}

func (t *Tracker) User() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.user
}

func (t *Tracker) View() View {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.viewLocked("")
}

// activateLocked switches to user and replaces the in-memory list with theirs.
// Undecodable data is copied aside and the session starts empty.
func (t *Tracker) activateLocked(ctx context.Context, user string) (string, error) {
	list, err := t.repo.Load(ctx, user)
	notice := ""
	switch {
	case errors.Is(err, storage.ErrCorruptData):
		backup, qerr := t.repo.Quarantine(ctx, user)
		if qerr != nil {
			return "", fmt.Errorf("recover corrupt transactions: %w", qerr)
		}
		t.logger.WarnContext(ctx, "Stored transactions could not be read, starting empty",
			log.FieldOperation, log.OpLoad,
			log.FieldUser, user,
			log.FieldKey, backup,
			log.FieldErrorType, log.ErrorTypeCorruptData,
			log.FieldError, err)
		notice = fmt.Sprintf("Saved transactions for %s could not be read. A copy was kept under %q.", user, backup)
		list = []core.Transaction{}
	case err != nil:
		return "", err
	}

	t.user = user
	t.transactions = list
	t.state = TrackerView
	return notice, nil
}

func (t *Tracker) resetLocked() {
	t.user = ""
	t.transactions = []core.Transaction{}
	t.state = LoggedOut
}

func (t *Tracker) viewLocked(notice string) View {
	return View{State: t.state, User: t.user, Notice: notice}
}

// nextIDLocked uses the creation time in milliseconds, bumped past the
// largest id in the list so ids stay unique.
func (t *Tracker) nextIDLocked() int64 {
	id := t.now().UnixMilli()
	for _, tx := range t.transactions {
		if tx.ID >= id {
			id = tx.ID + 1
		}
	}
	return id
}

// parseEntry checks the form fields in the order they appear.
func parseEntry(rawAmount, rawType, rawDate string) (core.Amount, core.TransactionType, core.Date, error) {
	amount, err := core.ParseAmount(rawAmount)
	if err != nil {
		return core.Amount{}, "", core.Date{}, err
	}
	typ, err := core.ParseType(rawType)
	if err != nil {
		return core.Amount{}, "", core.Date{}, err
	}
	date, err := core.ParseDate(rawDate)
	if err != nil {
		return core.Amount{}, "", core.Date{}, err
	}
	return amount, typ, date, nil
}

func (t *Tracker) publish(ctx context.Context, event amqp.TransactionEvent) {
	if t.publisher == nil {
		return
	}
	event.Timestamp = t.now()
	if err := t.publisher.Publish(ctx, event); err != nil {
		t.logger.ErrorContext(ctx, "Failed to publish transaction event",
			log.FieldOperation, log.OpPublish,
			log.FieldUser, event.User,
			"kind", event.Kind,
			log.FieldErrorType, log.ErrorTypeNetwork,
			log.FieldError, err)
	}
}
