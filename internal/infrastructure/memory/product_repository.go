package memory

import (
	"context"
	"sync"

	domain "github.com/shoply/checkout/internal/domain/product"
)

type ProductRepository struct {
	mu       sync.RWMutex
	products map[string]*domain.Product
}

func NewProductRepository() *ProductRepository {
	return &ProductRepository{
		products: make(map[string]*domain.Product),
	}
}

func (r *ProductRepository) Seed(p *domain.Product) {
	if p == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	clone := *p
	r.products[p.ID] = &clone
}

func (r *ProductRepository) Get(ctx context.Context, id string) (*domain.Product, error) {
	_ = ctx

	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.products[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	clone := *p
	return &clone, nil
}

func (r *ProductRepository) FindByIDs(ctx context.Context, ids []string) ([]*domain.Product, error) {
	_ = ctx

	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*domain.Product, 0, len(ids))
	for _, id := range ids {
		p, ok := r.products[id]
		if !ok {
			return nil, domain.ErrNotFound
		}
		clone := *p
		out = append(out, &clone)
	}
	return out, nil
}
