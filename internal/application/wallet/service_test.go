package wallet

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domain "github.com/shoply/checkout/internal/domain/wallet"
	"github.com/shoply/checkout/internal/infrastructure/id"
	"github.com/shoply/checkout/internal/infrastructure/memory"
)

func newTestService(t *testing.T) (*Service, *memory.WalletRepository) {
	t.Helper()
	repo := memory.NewWalletRepository()
	return NewService(repo, id.NewUUIDGenerator()), repo
}

func seedWallet(t *testing.T, repo *memory.WalletRepository, userID string, balance int64) {
	t.Helper()
	w := domain.New(userID)
	if balance > 0 {
		require.NoError(t, w.Charge(balance))
	}
	require.NoError(t, repo.Save(context.Background(), w))
}

func TestChargeAndUse(t *testing.T) {
	ctx := context.Background()
	svc, repo := newTestService(t)
	seedWallet(t, repo, "u1", 0)

	w, err := svc.Charge(ctx, "u1", 10000)
	require.NoError(t, err)
	assert.Equal(t, int64(10000), w.Balance)

	w, err = svc.Use(ctx, "u1", 3000)
	require.NoError(t, err)
	assert.Equal(t, int64(7000), w.Balance)

	entries, err := svc.Entries(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, domain.EntryCharge, entries[0].Kind)
	assert.Equal(t, domain.EntryUse, entries[1].Kind)
}

func TestUseInsufficientBalance(t *testing.T) {
	ctx := context.Background()
	svc, repo := newTestService(t)
	seedWallet(t, repo, "u1", 1000)

	_, err := svc.Use(ctx, "u1", 3000)
	assert.ErrorIs(t, err, domain.ErrInsufficientBalance)

	// Rejected mutations leave no ledger trace.
	entries, err := svc.Entries(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestUseUnknownWallet(t *testing.T) {
	svc, _ := newTestService(t)
	_, err := svc.Use(context.Background(), "ghost", 1)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

// Three concurrent spends against one wallet. Each writer can lose at most
// two compare-and-set races to the other two, so the bounded retry always
// converges and the final balance reflects all three spends.
func TestConcurrentUseRetriesToConvergence(t *testing.T) {
	ctx := context.Background()
	svc, repo := newTestService(t)
	seedWallet(t, repo, "u1", 10000)

	const spenders = 3
	var wg sync.WaitGroup
	errs := make([]error, spenders)
	for i := 0; i < spenders; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.Use(ctx, "u1", 3000)
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		require.NoError(t, err, "spender %d", i)
	}

	w, err := svc.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(1000), w.Balance)

	entries, err := svc.Entries(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, entries, spenders)
}

func TestRefund(t *testing.T) {
	ctx := context.Background()
	svc, repo := newTestService(t)
	seedWallet(t, repo, "u1", 1000)

	w, err := svc.Refund(ctx, "u1", 250)
	require.NoError(t, err)
	assert.Equal(t, int64(1250), w.Balance)
}
