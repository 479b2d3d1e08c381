package memory

import (
	"context"
	"sync"

	domain "github.com/shoply/checkout/internal/domain/wallet"
	"github.com/shoply/checkout/internal/pkg/optimistic"
)

type WalletRepository struct {
	mu      sync.RWMutex
	wallets map[string]*domain.Wallet
	entries map[string][]*domain.Entry
}

func NewWalletRepository() *WalletRepository {
	return &WalletRepository{
		wallets: make(map[string]*domain.Wallet),
		entries: make(map[string][]*domain.Entry),
	}
}

func (r *WalletRepository) Get(ctx context.Context, userID string) (*domain.Wallet, error) {
	_ = ctx

	r.mu.RLock()
	defer r.mu.RUnlock()

	w, ok := r.wallets[userID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return w.Clone(), nil
}

func (r *WalletRepository) Save(ctx context.Context, wallet *domain.Wallet) error {
	_ = ctx
	if wallet == nil {
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.wallets[wallet.UserID] = wallet.Clone()
	return nil
}

// Update writes the mutated wallet only if the stored version still matches
// the version the caller read, then bumps the version. A mismatch fails with
// optimistic.ErrConflict and the caller must retry from a fresh read.
func (r *WalletRepository) Update(ctx context.Context, wallet *domain.Wallet) error {
	_ = ctx
	if wallet == nil {
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.wallets[wallet.UserID]
	if !ok {
		return domain.ErrNotFound
	}
	if stored.Version != wallet.Version {
		return optimistic.ErrConflict
	}

	wallet.Version++
	r.wallets[wallet.UserID] = wallet.Clone()
	return nil
}

func (r *WalletRepository) AppendEntry(ctx context.Context, entry *domain.Entry) error {
	_ = ctx
	if entry == nil {
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	e := *entry
	r.entries[entry.UserID] = append(r.entries[entry.UserID], &e)
	return nil
}

func (r *WalletRepository) Entries(ctx context.Context, userID string) ([]*domain.Entry, error) {
	_ = ctx

	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*domain.Entry, 0, len(r.entries[userID]))
	for _, e := range r.entries[userID] {
		clone := *e
		out = append(out, &clone)
	}
	return out, nil
}
