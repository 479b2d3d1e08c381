package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shoply/checkout/internal/domain/stock"
	"github.com/shoply/checkout/internal/pkg/optimistic"
)

func TestStockRepositoryUpdateChecksVersion(t *testing.T) {
	ctx := context.Background()
	repo := NewStockRepository()

	item, err := stock.NewItem("p1", 10)
	require.NoError(t, err)
	require.NoError(t, repo.Save(ctx, item))

	a, err := repo.Get(ctx, "p1")
	require.NoError(t, err)
	b, err := repo.Get(ctx, "p1")
	require.NoError(t, err)

	require.NoError(t, a.Decrease(2))
	require.NoError(t, repo.Update(ctx, a))

	require.NoError(t, b.Decrease(2))
	err = repo.Update(ctx, b)
	assert.ErrorIs(t, err, optimistic.ErrConflict)

	got, err := repo.Get(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, 8, got.Quantity)
	assert.Equal(t, int64(1), got.Version)
}

func TestStockRepositoryUpdateUnknownProduct(t *testing.T) {
	ctx := context.Background()
	repo := NewStockRepository()

	item, err := stock.NewItem("ghost", 1)
	require.NoError(t, err)
	assert.ErrorIs(t, repo.Update(ctx, item), stock.ErrNotFound)
}

func TestStockRepositoryGetReturnsCopy(t *testing.T) {
	ctx := context.Background()
	repo := NewStockRepository()

	item, err := stock.NewItem("p1", 3)
	require.NoError(t, err)
	require.NoError(t, repo.Save(ctx, item))

	got, err := repo.Get(ctx, "p1")
	require.NoError(t, err)
	got.Quantity = 0

	stored, err := repo.Get(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, 3, stored.Quantity)
}
