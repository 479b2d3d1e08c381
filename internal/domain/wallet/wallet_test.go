package wallet

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWalletMutations(t *testing.T) {
	w := New("u-1")

	require.NoError(t, w.Charge(10000))
	assert.Equal(t, int64(10000), w.Balance)

	require.NoError(t, w.Use(3000))
	assert.Equal(t, int64(7000), w.Balance)

	require.NoError(t, w.Refund(3000))
	assert.Equal(t, int64(10000), w.Balance)
}

func TestWalletInvariants(t *testing.T) {
	w := New("u-1")
	require.NoError(t, w.Charge(100))

	assert.ErrorIs(t, w.Use(101), ErrInsufficientBalance)
	assert.ErrorIs(t, w.Use(0), ErrInvalidAmount)
	assert.ErrorIs(t, w.Use(-5), ErrInvalidAmount)
	assert.ErrorIs(t, w.Charge(0), ErrInvalidAmount)
	assert.ErrorIs(t, w.Refund(-1), ErrInvalidAmount)

	// A rejected mutation leaves the balance untouched.
	assert.Equal(t, int64(100), w.Balance)
}
