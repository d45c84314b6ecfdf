package amqp

import (
	"encoding/json"
	"time"
)

// EventKind names what happened to a user's transactions
type EventKind string

const (
	TransactionCreated  EventKind = "transaction.created"
	TransactionDeleted  EventKind = "transaction.deleted"
	TransactionsCleared EventKind = "transactions.cleared"
)

// TransactionEvent is published after a mutation has been written through.
// Transaction fields are empty for TransactionsCleared.
type TransactionEvent struct {
	Kind          EventKind `json:"kind"`
	User          string    `json:"user"`
	TransactionID int64     `json:"transaction_id,omitempty"`
	Amount        string    `json:"amount,omitempty"`
	Type          string    `json:"type,omitempty"`
	Date          string    `json:"date,omitempty"`
	Timestamp     time.Time `json:"timestamp"`
}

// ToJSON converts the event to JSON bytes
func (e *TransactionEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// TransactionEventFromJSON decodes an event from JSON bytes
func TransactionEventFromJSON(data []byte) (*TransactionEvent, error) {
	var e TransactionEvent
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, err
	}
	return &e, nil
}
