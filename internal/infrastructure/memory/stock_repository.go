package memory

import (
	"context"
	"sync"

	domain "github.com/shoply/checkout/internal/domain/stock"
	"github.com/shoply/checkout/internal/pkg/optimistic"
)

type StockRepository struct {
	mu    sync.RWMutex
	items map[string]*domain.Item
}

func NewStockRepository() *StockRepository {
	return &StockRepository{
		items: make(map[string]*domain.Item),
	}
}

func (r *StockRepository) Get(ctx context.Context, productID string) (*domain.Item, error) {
	_ = ctx

	r.mu.RLock()
	defer r.mu.RUnlock()

	item, ok := r.items[productID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return item.Clone(), nil
}

func (r *StockRepository) Save(ctx context.Context, item *domain.Item) error {
	_ = ctx
	if item == nil {
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.items[item.ProductID] = item.Clone()
	return nil
}

// Update applies the same version compare-and-set contract as the wallet
// repository.
func (r *StockRepository) Update(ctx context.Context, item *domain.Item) error {
	_ = ctx
	if item == nil {
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.items[item.ProductID]
	if !ok {
		return domain.ErrNotFound
	}
	if stored.Version != item.Version {
		return optimistic.ErrConflict
	}

	item.Version++
	r.items[item.ProductID] = item.Clone()
	return nil
}
