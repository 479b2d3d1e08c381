package checkout

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domaddress "github.com/shoply/checkout/internal/domain/address"
	domcoupon "github.com/shoply/checkout/internal/domain/coupon"
	domorder "github.com/shoply/checkout/internal/domain/order"
	domproduct "github.com/shoply/checkout/internal/domain/product"
	domstock "github.com/shoply/checkout/internal/domain/stock"
	domwallet "github.com/shoply/checkout/internal/domain/wallet"
	"github.com/shoply/checkout/internal/infrastructure/id"
	"github.com/shoply/checkout/internal/infrastructure/memory"
	"github.com/shoply/checkout/internal/lock"
)

type fixture struct {
	orders    *memory.OrderRepository
	wallets   *memory.WalletRepository
	stocks    *memory.StockRepository
	coupons   *memory.CouponRepository
	products  *memory.ProductRepository
	carts     *memory.CartRepository
	addresses *memory.AddressRepository

	svc *Service
}

// newFixture seeds user u1 with a 20000 wallet, a default address, an issued
// 100-off coupon c1, and two active products: p1 at 3300 (stock 10) and p2
// at 3400 (stock 5).
func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	ctx := context.Background()

	f := &fixture{
		orders:    memory.NewOrderRepository(),
		wallets:   memory.NewWalletRepository(),
		stocks:    memory.NewStockRepository(),
		coupons:   memory.NewCouponRepository(),
		products:  memory.NewProductRepository(),
		carts:     memory.NewCartRepository(),
		addresses: memory.NewAddressRepository(),
	}

	w := domwallet.New("u1")
	require.NoError(t, w.Charge(20000))
	require.NoError(t, f.wallets.Save(ctx, w))

	f.addresses.Seed(&domaddress.Address{
		ID:        "a1",
		UserID:    "u1",
		Recipient: "Jamie",
		Line1:     "1 Main St",
		City:      "Springfield",
		Zip:       "00001",
		IsDefault: true,
	})

	f.coupons.Seed(&domcoupon.Coupon{
		ID:             "c1",
		UserID:         "u1",
		DiscountAmount: 100,
		Status:         domcoupon.StatusIssued,
	})

	f.products.Seed(&domproduct.Product{ID: "p1", Name: "Mug", Price: 3300, Status: domproduct.StatusActive})
	f.products.Seed(&domproduct.Product{ID: "p2", Name: "Kettle", Price: 3400, Status: domproduct.StatusActive})
	f.seedStock(t, "p1", 10)
	f.seedStock(t, "p2", 5)

	f.carts.Add("u1", "p1")
	f.carts.Add("u1", "p2")

	f.svc = NewService(Repositories{
		Orders:    f.orders,
		Wallets:   f.wallets,
		Stocks:    f.stocks,
		Coupons:   f.coupons,
		Products:  f.products,
		Carts:     f.carts,
		Addresses: f.addresses,
	}, memory.NewTxManager(), id.NewUUIDGenerator(), opts...)

	return f
}

func (f *fixture) seedStock(t *testing.T, productID string, qty int) {
	t.Helper()
	item, err := domstock.NewItem(productID, qty)
	require.NoError(t, err)
	require.NoError(t, f.stocks.Save(context.Background(), item))
}

func (f *fixture) stockQty(t *testing.T, productID string) int {
	t.Helper()
	item, err := f.stocks.Get(context.Background(), productID)
	require.NoError(t, err)
	return item.Quantity
}

func (f *fixture) balance(t *testing.T) int64 {
	t.Helper()
	w, err := f.wallets.Get(context.Background(), "u1")
	require.NoError(t, err)
	return w.Balance
}

func twoLineInput(couponID string) PlaceOrderInput {
	return PlaceOrderInput{
		UserID: "u1",
		Items: []ItemInput{
			{ProductID: "p1", Quantity: 2},
			{ProductID: "p2", Quantity: 1},
		},
		CouponID: couponID,
	}
}

func TestPlaceOrderWithCoupon(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	res, err := f.svc.PlaceOrder(ctx, twoLineInput("c1"))
	require.NoError(t, err)

	assert.Equal(t, domorder.StatusPaid, res.Status)
	assert.Equal(t, int64(10000), res.BasePrice)
	assert.Equal(t, int64(100), res.DiscountAmount)
	assert.Equal(t, int64(9900), res.PaymentAmount)
	assert.True(t, res.CartCleared)

	// Coupon split proportionally over line bases 6600 and 3400.
	entity, err := f.orders.Get(ctx, res.OrderID)
	require.NoError(t, err)
	require.Len(t, entity.Items, 2)
	assert.Equal(t, int64(66), entity.Items[0].DiscountAmount)
	assert.Equal(t, int64(34), entity.Items[1].DiscountAmount)

	assert.Equal(t, 8, f.stockQty(t, "p1"))
	assert.Equal(t, 4, f.stockQty(t, "p2"))
	assert.Equal(t, int64(10100), f.balance(t))

	entries, err := f.wallets.Entries(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, domwallet.EntryUse, entries[0].Kind)
	assert.Equal(t, res.OrderID, entries[0].OrderID)

	cpn, err := f.coupons.Get(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, domcoupon.StatusUsed, cpn.Status)

	assert.Empty(t, f.carts.Items("u1"))
}

func TestPlaceOrderWithoutCoupon(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	res, err := f.svc.PlaceOrder(ctx, twoLineInput(""))
	require.NoError(t, err)

	assert.Equal(t, int64(0), res.DiscountAmount)
	assert.Equal(t, res.BasePrice, res.PaymentAmount)
	assert.Equal(t, int64(20000-10000), f.balance(t))
}

func TestPlaceOrderWithStockLock(t *testing.T) {
	ctx := context.Background()
	locker := lock.New(memory.NewLockStore())
	f := newFixture(t, WithStockLock(locker))

	res, err := f.svc.PlaceOrder(ctx, twoLineInput("c1"))
	require.NoError(t, err)
	assert.Equal(t, domorder.StatusPaid, res.Status)
	assert.Equal(t, 8, f.stockQty(t, "p1"))
}

func TestPlaceOrderInsufficientBalanceRollsBack(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	// Drain the wallet below the payable amount so settlement fails after
	// both stock deductions committed.
	w, err := f.wallets.Get(ctx, "u1")
	require.NoError(t, err)
	require.NoError(t, w.Use(19950))
	require.NoError(t, f.wallets.Update(ctx, w))

	res, err := f.svc.PlaceOrder(ctx, twoLineInput("c1"))
	require.Nil(t, res)
	assert.ErrorIs(t, err, domwallet.ErrInsufficientBalance)

	// Every committed step was undone: stock back, order gone, coupon and
	// balance untouched, no ledger entry.
	assert.Equal(t, 10, f.stockQty(t, "p1"))
	assert.Equal(t, 5, f.stockQty(t, "p2"))
	assert.Equal(t, int64(50), f.balance(t))

	cpn, err := f.coupons.Get(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, domcoupon.StatusIssued, cpn.Status)

	entries, err := f.wallets.Entries(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, entries)

	// The cart survives a failed checkout.
	assert.Len(t, f.carts.Items("u1"), 2)
}

func TestPlaceOrderInsufficientStockRollsBackEarlierLines(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	// p2 runs dry; p1 deducts first (canonical order) and must be restored.
	item, err := f.stocks.Get(ctx, "p2")
	require.NoError(t, err)
	require.NoError(t, item.Decrease(5))
	require.NoError(t, f.stocks.Update(ctx, item))

	res, err := f.svc.PlaceOrder(ctx, twoLineInput(""))
	require.Nil(t, res)
	assert.ErrorIs(t, err, domstock.ErrInsufficientStock)

	assert.Equal(t, 10, f.stockQty(t, "p1"))
	assert.Equal(t, int64(20000), f.balance(t))
}

func TestPlaceOrderValidation(t *testing.T) {
	ctx := context.Background()

	t.Run("no items", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.svc.PlaceOrder(ctx, PlaceOrderInput{UserID: "u1"})
		assert.ErrorIs(t, err, ErrValidation)
	})

	t.Run("foreign coupon", func(t *testing.T) {
		f := newFixture(t)
		f.coupons.Seed(&domcoupon.Coupon{ID: "c2", UserID: "someone-else", DiscountAmount: 50, Status: domcoupon.StatusIssued})
		_, err := f.svc.PlaceOrder(ctx, twoLineInput("c2"))
		assert.ErrorIs(t, err, ErrValidation)
	})

	t.Run("used coupon", func(t *testing.T) {
		f := newFixture(t)
		f.coupons.Seed(&domcoupon.Coupon{ID: "c3", UserID: "u1", DiscountAmount: 50, Status: domcoupon.StatusUsed})
		_, err := f.svc.PlaceOrder(ctx, twoLineInput("c3"))
		assert.ErrorIs(t, err, ErrValidation)
	})

	t.Run("inactive product", func(t *testing.T) {
		f := newFixture(t)
		f.products.Seed(&domproduct.Product{ID: "p1", Name: "Mug", Price: 3300, Status: domproduct.StatusInactive})
		_, err := f.svc.PlaceOrder(ctx, twoLineInput(""))
		assert.ErrorIs(t, err, ErrValidation)
	})

	t.Run("no default address", func(t *testing.T) {
		f := newFixture(t)
		input := twoLineInput("")
		input.UserID = "u2"
		w := domwallet.New("u2")
		require.NoError(t, w.Charge(20000))
		require.NoError(t, f.wallets.Save(ctx, w))
		_, err := f.svc.PlaceOrder(ctx, input)
		assert.ErrorIs(t, err, ErrValidation)
	})

	// Validation failures leave no side effects behind.
	f := newFixture(t)
	_, err := f.svc.PlaceOrder(ctx, PlaceOrderInput{UserID: "u1"})
	require.Error(t, err)
	assert.Equal(t, 10, f.stockQty(t, "p1"))
	assert.Equal(t, int64(20000), f.balance(t))
}

type failingCarts struct{}

func (failingCarts) Clear(ctx context.Context, userID string) error {
	return errors.New("cart store down")
}

func TestPlaceOrderSucceedsWhenCartClearFails(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.svc.repos.Carts = failingCarts{}

	res, err := f.svc.PlaceOrder(ctx, twoLineInput(""))
	require.NoError(t, err)
	assert.Equal(t, domorder.StatusPaid, res.Status)
	assert.False(t, res.CartCleared)
}

func TestCancelPaidOrder(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	res, err := f.svc.PlaceOrder(ctx, twoLineInput("c1"))
	require.NoError(t, err)

	require.NoError(t, f.svc.CancelOrder(ctx, "u1", res.OrderID))

	entity, err := f.orders.Get(ctx, res.OrderID)
	require.NoError(t, err)
	assert.Equal(t, domorder.StatusCancelled, entity.Status)

	// Debit refunded, stock restored, coupon back in circulation.
	assert.Equal(t, int64(20000), f.balance(t))
	assert.Equal(t, 10, f.stockQty(t, "p1"))
	assert.Equal(t, 5, f.stockQty(t, "p2"))

	cpn, err := f.coupons.Get(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, domcoupon.StatusIssued, cpn.Status)

	entries, err := f.wallets.Entries(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, domwallet.EntryRefund, entries[1].Kind)
	assert.Equal(t, res.OrderID, entries[1].OrderID)
}

func TestCancelPendingOrderSkipsRefund(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	entity, err := domorder.New("o1", "u1", 1000, 0, []domorder.Item{
		{ProductID: "p1", Quantity: 1, UnitPrice: 1000, PaymentAmount: 1000},
	})
	require.NoError(t, err)
	require.NoError(t, f.orders.Insert(ctx, entity))

	require.NoError(t, f.svc.CancelOrder(ctx, "u1", "o1"))

	got, err := f.orders.Get(ctx, "o1")
	require.NoError(t, err)
	assert.Equal(t, domorder.StatusCancelled, got.Status)

	// A pending order never debited or deducted anything.
	assert.Equal(t, int64(20000), f.balance(t))
	assert.Equal(t, 10, f.stockQty(t, "p1"))
}

func TestCancelOrderOwnership(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	res, err := f.svc.PlaceOrder(ctx, twoLineInput(""))
	require.NoError(t, err)

	err = f.svc.CancelOrder(ctx, "intruder", res.OrderID)
	assert.ErrorIs(t, err, domorder.ErrNotOwner)

	err = f.svc.CancelOrder(ctx, "u1", "no-such-order")
	assert.ErrorIs(t, err, domorder.ErrNotFound)
}

func TestCancelOrderRejectsTerminalStatus(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	res, err := f.svc.PlaceOrder(ctx, twoLineInput(""))
	require.NoError(t, err)
	require.NoError(t, f.svc.CancelOrder(ctx, "u1", res.OrderID))

	err = f.svc.CancelOrder(ctx, "u1", res.OrderID)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestGetOrder(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	res, err := f.svc.PlaceOrder(ctx, twoLineInput(""))
	require.NoError(t, err)

	entity, err := f.svc.GetOrder(ctx, "u1", res.OrderID)
	require.NoError(t, err)
	assert.Equal(t, res.OrderID, entity.ID)

	_, err = f.svc.GetOrder(ctx, "intruder", res.OrderID)
	assert.ErrorIs(t, err, domorder.ErrNotOwner)
}
