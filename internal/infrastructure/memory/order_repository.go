package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	domain "github.com/shoply/checkout/internal/domain/order"
)

type OrderRepository struct {
	mu     sync.RWMutex
	orders map[string]*domain.Order
}

func NewOrderRepository() *OrderRepository {
	return &OrderRepository{
		orders: make(map[string]*domain.Order),
	}
}

func (r *OrderRepository) Insert(ctx context.Context, order *domain.Order) error {
	_ = ctx
	if order == nil || order.ID == "" {
		return fmt.Errorf("order repository: id is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.orders[order.ID]; exists {
		return domain.ErrConflict
	}
	r.orders[order.ID] = order.Clone()
	return nil
}

func (r *OrderRepository) Get(ctx context.Context, id string) (*domain.Order, error) {
	_ = ctx

	r.mu.RLock()
	defer r.mu.RUnlock()

	order, ok := r.orders[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return order.Clone(), nil
}

func (r *OrderRepository) Update(ctx context.Context, order *domain.Order) error {
	_ = ctx
	if order == nil || order.ID == "" {
		return fmt.Errorf("order repository: id is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.orders[order.ID]; !exists {
		return domain.ErrNotFound
	}
	r.orders[order.ID] = order.Clone()
	return nil
}

func (r *OrderRepository) Delete(ctx context.Context, id string) error {
	_ = ctx

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.orders[id]; !exists {
		return domain.ErrNotFound
	}
	delete(r.orders, id)
	return nil
}

func (r *OrderRepository) FindStuckPending(ctx context.Context, olderThan time.Duration) ([]*domain.Order, error) {
	_ = ctx
	cutoff := time.Now().UTC().Add(-olderThan)

	r.mu.RLock()
	defer r.mu.RUnlock()

	var stuck []*domain.Order
	for _, o := range r.orders {
		if o.Status == domain.StatusPending && o.UpdatedAt.Before(cutoff) {
			stuck = append(stuck, o.Clone())
		}
	}
	return stuck, nil
}
