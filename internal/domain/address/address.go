package address

import (
	"context"
	"errors"
)

var ErrNoDefault = errors.New("address: no default shipping address")

type Address struct {
	ID        string
	UserID    string
	Recipient string
	Line1     string
	Line2     string
	City      string
	Zip       string
	IsDefault bool
}

type Repository interface {
	GetDefault(ctx context.Context, userID string) (*Address, error)
}
