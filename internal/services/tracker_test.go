package services

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tracker/internal/amqp"
	"tracker/internal/core"
	"tracker/internal/export"
	"tracker/internal/log"
	"tracker/internal/storage"
	"tracker/internal/storage/memory"
)

type fakePublisher struct {
	mu     sync.Mutex
	events []amqp.TransactionEvent
	err    error
}

func (p *fakePublisher) Publish(_ context.Context, event amqp.TransactionEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return p.err
}

func (p *fakePublisher) kinds() []amqp.EventKind {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]amqp.EventKind, len(p.events))
	for i, e := range p.events {
		out[i] = e.Kind
	}
	return out
}

type fixture struct {
	durable *memory.Store
	session *memory.Store
	clock   time.Time
}

func newFixture() *fixture {
	return &fixture{
		durable: memory.New(),
		session: memory.New(),
		clock:   time.Date(2024, 1, 6, 12, 0, 0, 0, time.UTC),
	}
}

func (f *fixture) tracker(opts ...Option) *Tracker {
	opts = append([]Option{WithClock(func() time.Time { return f.clock })}, opts...)
	return NewTracker(
		storage.NewTransactionRepository(f.durable),
		storage.NewSessionStore(f.session),
		opts...)
}

func mustConfirm(t *testing.T, c *Confirmation, err error) {
	t.Helper()
	require.NoError(t, err)
	require.NotNil(t, c)
	require.NoError(t, c.Confirm(context.Background()))
}

func TestStartupWithoutMarker(t *testing.T) {
	tr := newFixture().tracker()
	view, err := tr.Startup(context.Background())
	require.NoError(t, err)
	assert.Equal(t, LoggedOut, view.State)
	assert.Empty(t, view.User)
}

func TestAliceScenario(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	tr := f.tracker()

	view, err := tr.Login(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, View{State: TrackerView, User: "alice"}, view)

	first, err := tr.AddTransaction(ctx, "100", "income", "2024-01-05")
	require.NoError(t, err)
	f.clock = f.clock.Add(time.Second)
	second, err := tr.AddTransaction(ctx, "40", "expense", "2024-01-06")
	require.NoError(t, err)
	assert.Greater(t, second.ID, first.ID)

	s := tr.Summary()
	assert.True(t, s.TotalIncome.Equal(decimal.NewFromInt(100)))
	assert.True(t, s.TotalExpense.Equal(decimal.NewFromInt(40)))
	assert.True(t, s.Balance.Equal(decimal.NewFromInt(60)))
	assert.True(t, s.Positive())

	doc, err := tr.Export()
	require.NoError(t, err)
	assert.Equal(t, "Date,Type,Amount\n5-1-2024,income,100\n6-1-2024,expense,40", string(doc.CSV()))
	assert.Equal(t, "alice_expense_tracker.csv", doc.Filename("csv"))

	raw, err := f.durable.Get(ctx, "transactions_alice")
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"formattedDate":"5-1-2024"`)

	marker, err := f.session.Get(ctx, storage.SessionKey)
	require.NoError(t, err)
	assert.Equal(t, "alice", string(marker))
}

func TestUsersAreIsolated(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	tr := f.tracker()

	_, err := tr.Login(ctx, "alice")
	require.NoError(t, err)
	_, err = tr.AddTransaction(ctx, "100", "income", "2024-01-05")
	require.NoError(t, err)

	c, err := tr.PrepareLogout()
	require.NoError(t, err)
	assert.Equal(t, "Are you sure you want to logout?", c.Prompt)
	mustConfirm(t, c, nil)
	assert.Equal(t, LoggedOut, tr.View().State)
	assert.Empty(t, tr.Transactions())

	_, err = tr.Login(ctx, "bob")
	require.NoError(t, err)
	assert.Empty(t, tr.Transactions())
	assert.True(t, tr.Summary().Balance.IsZero())

	_, err = tr.Login(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, tr.Transactions(), 1)
}

func TestLogoutClearsMarker(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	tr := f.tracker()

	_, err := tr.Login(ctx, "alice")
	require.NoError(t, err)
	c, err := tr.PrepareLogout()
	mustConfirm(t, c, err)

	_, err = f.session.Get(ctx, storage.SessionKey)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	view, err := f.tracker().Startup(ctx)
	require.NoError(t, err)
	assert.Equal(t, LoggedOut, view.State)
}

func TestStartupRestoresSession(t *testing.T) {
	ctx := context.Background()
	f := newFixture()

	first := f.tracker()
	_, err := first.Login(ctx, "  alice  ")
	require.NoError(t, err)
	_, err = first.AddTransaction(ctx, "12.5", "Expense", "2024-02-29")
	require.NoError(t, err)

	second := f.tracker()
	view, err := second.Startup(ctx)
	require.NoError(t, err)
	assert.Equal(t, View{State: TrackerView, User: "alice"}, view)

	list := second.Transactions()
	require.Len(t, list, 1)
	assert.Equal(t, core.Expense, list[0].Type)
	assert.Equal(t, "29-2-2024", list[0].FormattedDate)
}

func TestLoginRejectsEmptyName(t *testing.T) {
	tr := newFixture().tracker()
	for _, name := range []string{"", "   ", "\t"} {
		_, err := tr.Login(context.Background(), name)
		assert.ErrorIs(t, err, ErrEmptyName)
	}
	assert.Equal(t, LoggedOut, tr.View().State)
}

func TestAddTransactionValidation(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	tr := f.tracker()
	_, err := tr.Login(ctx, "alice")
	require.NoError(t, err)

	tests := []struct {
		name              string
		amount, typ, date string
		wantErr           error
	}{
		{"zero amount", "0", "income", "2024-01-05", core.ErrInvalidAmount},
		{"negative amount", "-5", "income", "2024-01-05", core.ErrInvalidAmount},
		{"empty amount", "", "income", "2024-01-05", core.ErrInvalidAmount},
		{"not a number", "abc", "income", "2024-01-05", core.ErrInvalidAmount},
		{"placeholder type", "10", "Transaction Type", "2024-01-05", core.ErrMissingType},
		{"blank type", "10", "", "2024-01-05", core.ErrMissingType},
		{"unknown type", "10", "transfer", "2024-01-05", core.ErrInvalidType},
		{"blank date", "10", "income", "", core.ErrMissingDate},
		{"bad date", "10", "income", "05/01/2024", core.ErrInvalidDate},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tr.AddTransaction(ctx, tt.amount, tt.typ, tt.date)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}

	assert.Empty(t, tr.Transactions())
	_, err = f.durable.Get(ctx, "transactions_alice")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestAddTransactionRequiresUser(t *testing.T) {
	_, err := newFixture().tracker().AddTransaction(context.Background(), "10", "income", "2024-01-05")
	assert.ErrorIs(t, err, ErrNotLoggedIn)
}

func TestIDsStayUniqueWithinSameMillisecond(t *testing.T) {
	ctx := context.Background()
	tr := newFixture().tracker()
	_, err := tr.Login(ctx, "alice")
	require.NoError(t, err)

	seen := map[int64]bool{}
	for i := 0; i < 5; i++ {
		tx, err := tr.AddTransaction(ctx, "1", "expense", "2024-01-05")
		require.NoError(t, err)
		assert.False(t, seen[tx.ID], "duplicate id %d", tx.ID)
		seen[tx.ID] = true
	}
}

func TestDeleteTransaction(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	tr := f.tracker()
	_, err := tr.Login(ctx, "alice")
	require.NoError(t, err)

	first, err := tr.AddTransaction(ctx, "100", "income", "2024-01-05")
	require.NoError(t, err)
	second, err := tr.AddTransaction(ctx, "40", "expense", "2024-01-06")
	require.NoError(t, err)

	c, err := tr.PrepareDelete(first.ID)
	require.NoError(t, err)
	assert.Equal(t, "Are you sure you want to delete this transaction?", c.Prompt)
	mustConfirm(t, c, nil)

	list := tr.Transactions()
	require.Len(t, list, 1)
	assert.Equal(t, second.ID, list[0].ID)
	assert.True(t, tr.Summary().Balance.Equal(decimal.NewFromInt(-40)))
	assert.False(t, tr.Summary().Positive())

	reloaded, err := storage.NewTransactionRepository(f.durable).Load(ctx, "alice")
	require.NoError(t, err)
	assert.Len(t, reloaded, 1)
}

func TestDeleteUnknownIDKeepsList(t *testing.T) {
	ctx := context.Background()
	tr := newFixture().tracker()
	_, err := tr.Login(ctx, "alice")
	require.NoError(t, err)
	_, err = tr.AddTransaction(ctx, "100", "income", "2024-01-05")
	require.NoError(t, err)

	c, err := tr.PrepareDelete(42)
	mustConfirm(t, c, err)
	assert.Len(t, tr.Transactions(), 1)
}

func TestDeclinedConfirmationsChangeNothing(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	tr := f.tracker()
	_, err := tr.Login(ctx, "alice")
	require.NoError(t, err)
	tx, err := tr.AddTransaction(ctx, "100", "income", "2024-01-05")
	require.NoError(t, err)

	_, err = tr.PrepareDelete(tx.ID)
	require.NoError(t, err)
	_, err = tr.PrepareClearAll()
	require.NoError(t, err)
	_, err = tr.PrepareLogout()
	require.NoError(t, err)

	assert.Equal(t, View{State: TrackerView, User: "alice"}, tr.View())
	assert.Len(t, tr.Transactions(), 1)
	_, err = f.durable.Get(ctx, "transactions_alice")
	assert.NoError(t, err)
}

func TestClearAllDeletesEntry(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	tr := f.tracker()
	_, err := tr.Login(ctx, "alice")
	require.NoError(t, err)
	_, err = tr.AddTransaction(ctx, "100", "income", "2024-01-05")
	require.NoError(t, err)

	c, err := tr.PrepareClearAll()
	require.NoError(t, err)
	assert.Equal(t, "Are you sure you want to delete all transactions? This action cannot be undone!", c.Prompt)
	mustConfirm(t, c, nil)

	assert.Empty(t, tr.Transactions())
	_, err = f.durable.Get(ctx, "transactions_alice")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	_, err = tr.Export()
	assert.ErrorIs(t, err, export.ErrNothingToExport)
}

func TestPrepareRequiresUser(t *testing.T) {
	tr := newFixture().tracker()

	_, err := tr.PrepareLogout()
	assert.ErrorIs(t, err, ErrNotLoggedIn)
	_, err = tr.PrepareDelete(1)
	assert.ErrorIs(t, err, ErrNotLoggedIn)
	_, err = tr.PrepareClearAll()
	assert.ErrorIs(t, err, ErrNotLoggedIn)
	_, err = tr.Export()
	assert.ErrorIs(t, err, ErrNotLoggedIn)
}

func TestStaleConfirmationAfterUserSwitch(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	tr := f.tracker()
	_, err := tr.Login(ctx, "alice")
	require.NoError(t, err)
	_, err = tr.AddTransaction(ctx, "100", "income", "2024-01-05")
	require.NoError(t, err)

	c, err := tr.PrepareClearAll()
	require.NoError(t, err)

	_, err = tr.Login(ctx, "bob")
	require.NoError(t, err)
	assert.ErrorIs(t, c.Confirm(ctx), ErrNotLoggedIn)

	_, err = f.durable.Get(ctx, "transactions_alice")
	assert.NoError(t, err)
}

func TestCorruptDataIsQuarantined(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	require.NoError(t, f.durable.Set(ctx, "transactions_alice", []byte("{not json")))

	tr := f.tracker()
	view, err := tr.Login(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, TrackerView, view.State)
	assert.Contains(t, view.Notice, "corrupt:transactions_alice")
	assert.Empty(t, tr.Transactions())

	backup, err := f.durable.Get(ctx, "corrupt:transactions_alice")
	require.NoError(t, err)
	assert.Equal(t, "{not json", string(backup))

	_, err = tr.AddTransaction(ctx, "5", "income", "2024-01-05")
	require.NoError(t, err)
	reloaded, err := storage.NewTransactionRepository(f.durable).Load(ctx, "alice")
	require.NoError(t, err)
	assert.Len(t, reloaded, 1)
}

func TestEventsArePublished(t *testing.T) {
	ctx := context.Background()
	pub := &fakePublisher{}
	tr := newFixture().tracker(WithPublisher(pub))

	_, err := tr.Login(ctx, "alice")
	require.NoError(t, err)
	tx, err := tr.AddTransaction(ctx, "100", "income", "2024-01-05")
	require.NoError(t, err)
	c, err := tr.PrepareDelete(tx.ID)
	mustConfirm(t, c, err)
	c, err = tr.PrepareDelete(tx.ID)
	mustConfirm(t, c, err)
	c, err = tr.PrepareClearAll()
	mustConfirm(t, c, err)

	assert.Equal(t, []amqp.EventKind{
		amqp.TransactionCreated,
		amqp.TransactionDeleted,
		amqp.TransactionsCleared,
	}, pub.kinds())
	assert.Equal(t, "alice", pub.events[0].User)
	assert.Equal(t, tx.ID, pub.events[0].TransactionID)
	assert.Equal(t, "100", pub.events[0].Amount)
	assert.False(t, pub.events[0].Timestamp.IsZero())
}

func TestPublishFailureDoesNotFailOperation(t *testing.T) {
	ctx := context.Background()
	pub := &fakePublisher{err: errors.New("broker down")}
	tr := newFixture().tracker(WithPublisher(pub))

	_, err := tr.Login(ctx, "alice")
	require.NoError(t, err)
	_, err = tr.AddTransaction(ctx, "100", "income", "2024-01-05")
	require.NoError(t, err)
	assert.Len(t, tr.Transactions(), 1)
}

type failingStore struct {
	storage.Store
	err error
}

func (s failingStore) Set(context.Context, string, []byte) error { return s.err }

func TestSaveFailureLeavesListUnchanged(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("disk full")
	var logs bytes.Buffer
	tr := NewTracker(
		storage.NewTransactionRepository(failingStore{Store: memory.New(), err: boom}),
		storage.NewSessionStore(memory.New()),
		WithLogger(log.New(log.Config{Format: "json", Output: &logs})))

	_, err := tr.Login(ctx, "alice")
	require.NoError(t, err)
	_, err = tr.AddTransaction(ctx, "100", "income", "2024-01-05")
	assert.ErrorIs(t, err, boom)
	assert.Empty(t, tr.Transactions())

	assert.Contains(t, logs.String(), `"msg":"Failed to save transaction"`)
	assert.Contains(t, logs.String(), `"error_type":"database"`)
	assert.Contains(t, logs.String(), `"error":"disk full"`)
}

func TestTransactionsReturnsCopy(t *testing.T) {
	ctx := context.Background()
	tr := newFixture().tracker()
	_, err := tr.Login(ctx, "alice")
	require.NoError(t, err)
	_, err = tr.AddTransaction(ctx, "100", "income", "2024-01-05")
	require.NoError(t, err)

	list := tr.Transactions()
	list[0].ID = 7
	assert.NotEqual(t, int64(7), tr.Transactions()[0].ID)
}

func TestQuarantineKeepsSimilarlyNamedUser(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	tr := f.tracker()

	_, err := tr.Login(ctx, "alice.corrupt")
	require.NoError(t, err)
	_, err = tr.AddTransaction(ctx, "100", "income", "2024-01-05")
	require.NoError(t, err)

	require.NoError(t, f.durable.Set(ctx, "transactions_alice", []byte("{not json")))
	view, err := tr.Login(ctx, "alice")
	require.NoError(t, err)
	assert.NotEmpty(t, view.Notice)

	view, err = tr.Login(ctx, "alice.corrupt")
	require.NoError(t, err)
	assert.Empty(t, view.Notice)
	require.Len(t, tr.Transactions(), 1)
	assert.Equal(t, "100", tr.Transactions()[0].Amount.String())
}
