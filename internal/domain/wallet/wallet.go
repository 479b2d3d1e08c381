package wallet

import (
	"errors"
	"time"
)

var (
	ErrNotFound            = errors.New("wallet: not found")
	ErrInvalidAmount       = errors.New("wallet: amount must be greater than zero")
	ErrInsufficientBalance = errors.New("wallet: insufficient balance")
)

// Wallet is mutated only through Charge/Use/Refund. Version is the fencing
// token for the repository's compare-and-set write.
type Wallet struct {
	UserID    string
	Balance   int64
	Version   int64
	UpdatedAt time.Time
}

func New(userID string) *Wallet {
	return &Wallet{
		UserID:    userID,
		UpdatedAt: time.Now().UTC(),
	}
}

// Charge adds funds to the wallet.
func (w *Wallet) Charge(amount int64) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}
	w.Balance += amount
	w.touch()
	return nil
}

// Use spends funds. The balance never goes negative.
func (w *Wallet) Use(amount int64) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}
	if amount > w.Balance {
		return ErrInsufficientBalance
	}
	w.Balance -= amount
	w.touch()
	return nil
}

// Refund returns previously spent funds.
func (w *Wallet) Refund(amount int64) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}
	w.Balance += amount
	w.touch()
	return nil
}

func (w *Wallet) touch() {
	w.UpdatedAt = time.Now().UTC()
}

func (w *Wallet) Clone() *Wallet {
	if w == nil {
		return nil
	}
	clone := *w
	return &clone
}
