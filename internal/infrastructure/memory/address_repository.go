package memory

import (
	"context"
	"sync"

	domain "github.com/shoply/checkout/internal/domain/address"
)

type AddressRepository struct {
	mu        sync.RWMutex
	addresses map[string][]*domain.Address
}

func NewAddressRepository() *AddressRepository {
	return &AddressRepository{
		addresses: make(map[string][]*domain.Address),
	}
}

func (r *AddressRepository) Seed(a *domain.Address) {
	if a == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	clone := *a
	r.addresses[a.UserID] = append(r.addresses[a.UserID], &clone)
}

func (r *AddressRepository) GetDefault(ctx context.Context, userID string) (*domain.Address, error) {
	_ = ctx

	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, a := range r.addresses[userID] {
		if a.IsDefault {
			clone := *a
			return &clone, nil
		}
	}
	return nil, domain.ErrNoDefault
}
