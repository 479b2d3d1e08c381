package memory

import (
	"context"
	"sync"
)

type CartRepository struct {
	mu    sync.Mutex
	carts map[string][]string
}

func NewCartRepository() *CartRepository {
	return &CartRepository{
		carts: make(map[string][]string),
	}
}

func (r *CartRepository) Add(userID, productID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.carts[userID] = append(r.carts[userID], productID)
}

func (r *CartRepository) Items(userID string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.carts[userID]...)
}

func (r *CartRepository) Clear(ctx context.Context, userID string) error {
	_ = ctx

	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.carts, userID)
	return nil
}
