package order

import (
	"context"
	"time"
)

type Repository interface {
	Insert(ctx context.Context, order *Order) error
	Get(ctx context.Context, id string) (*Order, error)
	Update(ctx context.Context, order *Order) error
	Delete(ctx context.Context, id string) error
	// FindStuckPending returns pending orders untouched for longer than
	// olderThan, for the reconciliation worker.
	FindStuckPending(ctx context.Context, olderThan time.Duration) ([]*Order, error)
}
