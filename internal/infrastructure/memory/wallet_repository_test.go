package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shoply/checkout/internal/domain/wallet"
	"github.com/shoply/checkout/internal/pkg/optimistic"
)

func TestWalletRepositoryUpdateChecksVersion(t *testing.T) {
	ctx := context.Background()
	repo := NewWalletRepository()

	w := wallet.New("u1")
	require.NoError(t, w.Charge(10000))
	require.NoError(t, repo.Save(ctx, w))

	// Two readers load the same version.
	a, err := repo.Get(ctx, "u1")
	require.NoError(t, err)
	b, err := repo.Get(ctx, "u1")
	require.NoError(t, err)

	require.NoError(t, a.Use(3000))
	require.NoError(t, repo.Update(ctx, a))

	// The second writer's version is stale now.
	require.NoError(t, b.Use(3000))
	err = repo.Update(ctx, b)
	assert.ErrorIs(t, err, optimistic.ErrConflict)

	// A fresh read carries the bumped version and succeeds.
	fresh, err := repo.Get(ctx, "u1")
	require.NoError(t, err)
	require.NoError(t, fresh.Use(3000))
	require.NoError(t, repo.Update(ctx, fresh))

	final, err := repo.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(4000), final.Balance)
	assert.Equal(t, int64(2), final.Version)
}

func TestWalletRepositoryUpdateUnknownUser(t *testing.T) {
	ctx := context.Background()
	repo := NewWalletRepository()

	err := repo.Update(ctx, wallet.New("ghost"))
	assert.ErrorIs(t, err, wallet.ErrNotFound)
}

func TestWalletRepositoryGetReturnsCopy(t *testing.T) {
	ctx := context.Background()
	repo := NewWalletRepository()

	w := wallet.New("u1")
	require.NoError(t, w.Charge(500))
	require.NoError(t, repo.Save(ctx, w))

	got, err := repo.Get(ctx, "u1")
	require.NoError(t, err)
	got.Balance = 0

	stored, err := repo.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(500), stored.Balance)
}

func TestWalletRepositoryEntries(t *testing.T) {
	ctx := context.Background()
	repo := NewWalletRepository()

	require.NoError(t, repo.AppendEntry(ctx, wallet.NewEntry("e1", "u1", "", wallet.EntryCharge, 10000)))
	require.NoError(t, repo.AppendEntry(ctx, wallet.NewEntry("e2", "u1", "o1", wallet.EntryUse, 3000)))
	require.NoError(t, repo.AppendEntry(ctx, wallet.NewEntry("e3", "u2", "", wallet.EntryCharge, 1)))

	entries, err := repo.Entries(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, wallet.EntryCharge, entries[0].Kind)
	assert.Equal(t, "o1", entries[1].OrderID)
}
