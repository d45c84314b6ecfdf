package core

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	Income  TransactionType = "income"
	Expense TransactionType = "expense"

	// TypePlaceholder is the unselected value of the type picker.
	TypePlaceholder = "Transaction Type"

	dateLayout = "2006-01-02"
)

type (
	TransactionType string

	Date struct {
		time.Time
	}

	Transaction struct {
		ID            int64           `json:"id"`
		Amount        Amount          `json:"amount"`
		Type          TransactionType `json:"type"`
		Date          Date            `json:"date"`
		FormattedDate string          `json:"formattedDate"`
	}
)

var (
	ErrInvalidAmount = errors.New("invalid amount")
	ErrMissingType   = errors.New("missing transaction type")
	ErrInvalidType   = errors.New("invalid transaction type")
	ErrMissingDate   = errors.New("missing date")
	ErrInvalidDate   = errors.New("invalid date")
	ErrInvalidID     = errors.New("invalid transaction id")
)

// ParseType accepts "income" or "expense" in any case. The picker placeholder
// and blank input count as no selection.
func ParseType(raw string) (TransactionType, error) {
	s := strings.TrimSpace(raw)
	if s == "" || s == TypePlaceholder {
		return "", ErrMissingType
	}
	t := TransactionType(strings.ToLower(s))
	if err := t.Validate(); err != nil {
		return "", err
	}
	return t, nil
}

func (t TransactionType) Validate() error {
	switch t {
	case Income, Expense:
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrInvalidType, string(t))
	}
}

// Title returns the type with its first letter upper-cased ("Income").
func (t TransactionType) Title() string {
	s := string(t)
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// Today returns the calendar date of now in its own location.
func Today(now time.Time) Date {
	return NewDate(now.Year(), int(now.Month()), now.Day())
}

// ParseDate parses a YYYY-MM-DD date as picked in the entry form.
func ParseDate(raw string) (Date, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return Date{}, ErrMissingDate
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return Date{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return Date{Time: t}, nil
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrMissingDate
	}
	return nil
}

// String returns the ISO form used in storage.
func (d Date) String() string {
	return d.Format(dateLayout)
}

// Formatted returns day-month-year with a 1-based month and no zero padding.
func (d Date) Formatted() string {
	return fmt.Sprintf("%d-%d-%d", d.Day(), int(d.Month()), d.Year())
}

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidDate, err)
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// NewTransaction builds a record and derives its display date.
func NewTransaction(id int64, amount Amount, t TransactionType, date Date) (Transaction, error) {
	tx := Transaction{
		ID:            id,
		Amount:        amount,
		Type:          t,
		Date:          date,
		FormattedDate: date.Formatted(),
	}
	if err := tx.Validate(); err != nil {
		return Transaction{}, err
	}
	return tx, nil
}

func (tx Transaction) Validate() error {
	if tx.ID <= 0 {
		return ErrInvalidID
	}
	if err := tx.Amount.Validate(); err != nil {
		return err
	}
	if err := tx.Type.Validate(); err != nil {
		return err
	}
	return tx.Date.Validate()
}
