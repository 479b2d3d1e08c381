package stock

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStockMutations(t *testing.T) {
	item, err := NewItem("p-1", 10)
	require.NoError(t, err)

	require.NoError(t, item.Decrease(4))
	assert.Equal(t, 6, item.Quantity)

	require.NoError(t, item.Increase(2))
	assert.Equal(t, 8, item.Quantity)
}

func TestStockInvariants(t *testing.T) {
	_, err := NewItem("p-1", -1)
	assert.ErrorIs(t, err, ErrInvalidQuantity)

	item, err := NewItem("p-1", 3)
	require.NoError(t, err)

	assert.ErrorIs(t, item.Decrease(4), ErrInsufficientStock)
	assert.ErrorIs(t, item.Decrease(0), ErrInvalidQuantity)
	assert.ErrorIs(t, item.Increase(-2), ErrInvalidQuantity)
	assert.Equal(t, 3, item.Quantity)
}
