package wallet

import "time"

type EntryKind string

const (
	EntryCharge EntryKind = "charge"
	EntryUse    EntryKind = "use"
	EntryRefund EntryKind = "refund"
)

// Entry records one successful wallet mutation. OrderID is empty for
// mutations not tied to an order.
type Entry struct {
	ID        string
	UserID    string
	OrderID   string
	Kind      EntryKind
	Amount    int64
	CreatedAt time.Time
}

func NewEntry(id, userID, orderID string, kind EntryKind, amount int64) *Entry {
	return &Entry{
		ID:        id,
		UserID:    userID,
		OrderID:   orderID,
		Kind:      kind,
		Amount:    amount,
		CreatedAt: time.Now().UTC(),
	}
}
