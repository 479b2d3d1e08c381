// Package checkout orchestrates the place-order/pay saga: order creation,
// stock deduction, payment settlement and cart cleanup, with compensating
// actions for every committed step when a later one fails.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	domaddress "github.com/shoply/checkout/internal/domain/address"
	domcart "github.com/shoply/checkout/internal/domain/cart"
	domcoupon "github.com/shoply/checkout/internal/domain/coupon"
	domorder "github.com/shoply/checkout/internal/domain/order"
	"github.com/shoply/checkout/internal/domain/pricing"
	domproduct "github.com/shoply/checkout/internal/domain/product"
	domstock "github.com/shoply/checkout/internal/domain/stock"
	domwallet "github.com/shoply/checkout/internal/domain/wallet"
	"github.com/shoply/checkout/internal/infrastructure/prometrics"
	"github.com/shoply/checkout/internal/lock"
	"github.com/shoply/checkout/internal/pkg/logging"
	"github.com/shoply/checkout/internal/pkg/optimistic"
)

type Repositories struct {
	Orders    domorder.Repository
	Wallets   domwallet.Repository
	Stocks    domstock.Repository
	Coupons   domcoupon.Repository
	Products  domproduct.Repository
	Carts     domcart.Repository
	Addresses domaddress.Repository
}

type Option func(*Service)

// WithStockLock routes stock deduction through a per-product distributed
// lock instead of relying on optimistic retries alone, for keys hot enough
// to starve retries.
func WithStockLock(locker *lock.Locker) Option {
	return func(s *Service) { s.stockLock = locker }
}

// WithRetryPolicy overrides the bounded retry applied to version-conflicted
// wallet and stock writes.
func WithRetryPolicy(attempts int, delay time.Duration) Option {
	return func(s *Service) {
		s.retryAttempts = attempts
		s.retryDelay = delay
	}
}

func WithMetrics(m *prometrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

type Service struct {
	repos Repositories
	tx    TxManager
	idGen IDGenerator

	stockLock     *lock.Locker
	retryAttempts int
	retryDelay    time.Duration

	metrics *prometrics.Metrics
	tracer  trace.Tracer
}

func NewService(repos Repositories, tx TxManager, idGen IDGenerator, opts ...Option) *Service {
	s := &Service{
		repos:         repos,
		tx:            tx,
		idGen:         idGen,
		retryAttempts: optimistic.DefaultAttempts,
		retryDelay:    optimistic.DefaultDelay,
		metrics:       prometrics.NewNop(),
		tracer:        otel.Tracer("checkout"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type ItemInput struct {
	ProductID          string
	Quantity           int
	PromotionDiscount  int64
	ItemCouponDiscount int64
}

type PlaceOrderInput struct {
	UserID   string
	Items    []ItemInput
	CouponID string
}

type PlaceOrderResult struct {
	OrderID        string
	Status         domorder.Status
	BasePrice      int64
	DiscountAmount int64
	PaymentAmount  int64
	CartCleared    bool
}

// PlaceOrder runs the create-and-pay saga. Each numbered step commits on its
// own; when a later step fails, the committed steps are undone in reverse
// and the original error is returned to the caller.
func (s *Service) PlaceOrder(ctx context.Context, input PlaceOrderInput) (_ *PlaceOrderResult, err error) {
	logger := logging.FromContext(ctx).With(zap.String("component", "checkout"))

	ctx, span := s.tracer.Start(ctx, "Checkout.PlaceOrder", trace.WithAttributes(
		attribute.String("user_id", input.UserID),
		attribute.Int("item_count", len(input.Items)),
	))
	defer func() {
		outcome := "success"
		if err != nil {
			outcome = "error"
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		} else {
			span.SetStatus(codes.Ok, "")
		}
		s.metrics.CheckoutTotal.WithLabelValues("place_order", outcome).Inc()
		span.End()
	}()

	// Step 1: validate and price. No side effects yet.
	plan, err := s.validate(ctx, input)
	if err != nil {
		return nil, err
	}

	state := &sagaState{}

	// Step 2: create the pending order and its items in one transaction.
	// Its undo runs only if a later step fails.
	orderID := s.idGen.NewID()
	entity, err := domorder.New(orderID, input.UserID, plan.calc.BaseTotal, plan.calc.DiscountTotal, orderItems(plan.calc.Lines))
	if err != nil {
		return nil, err
	}
	entity.UsedCouponID = input.CouponID

	if err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		return s.repos.Orders.Insert(ctx, entity)
	}); err != nil {
		return nil, fmt.Errorf("checkout: create order: %w", err)
	}
	state.committed("create_order", func(ctx context.Context) error {
		return s.repos.Orders.Delete(ctx, orderID)
	})
	logger.Info("order_created", zap.String("order_id", orderID))

	// Step 3: deduct stock, in canonical productID order so concurrent sagas
	// over overlapping product sets never wait on each other in a cycle.
	for _, ln := range sortedByProduct(plan.calc.Lines) {
		productID, qty := ln.ProductID, ln.Quantity
		if err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
			return s.decreaseStock(ctx, productID, qty)
		}); err != nil {
			err = fmt.Errorf("checkout: deduct stock %s: %w", productID, err)
			return nil, s.abort(ctx, state, err)
		}
		state.committed("deduct_stock", func(ctx context.Context) error {
			return s.increaseStock(ctx, productID, qty)
		})
	}

	// Step 4: settle payment atomically: wallet debit, ledger entry, coupon
	// consumption and the pending->paid transition.
	if err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		return s.settle(ctx, entity, plan)
	}); err != nil {
		err = fmt.Errorf("checkout: settle payment: %w", err)
		return nil, s.abort(ctx, state, err)
	}

	// Step 5: best-effort cart cleanup; never rolls the saga back.
	cartCleared := true
	if err := s.repos.Carts.Clear(ctx, input.UserID); err != nil {
		cartCleared = false
		logger.Warn("cart_clear_failed",
			zap.String("order_id", orderID),
			zap.Error(err),
		)
	}

	span.SetAttributes(attribute.String("order.id", orderID))
	logger.Info("order_placed",
		zap.String("order_id", orderID),
		zap.Int64("payment_amount", entity.PaymentAmount),
	)

	return &PlaceOrderResult{
		OrderID:        orderID,
		Status:         entity.Status,
		BasePrice:      entity.BasePrice,
		DiscountAmount: entity.DiscountAmount,
		PaymentAmount:  entity.PaymentAmount,
		CartCleared:    cartCleared,
	}, nil
}

// orderPlan is the outcome of the validation step.
type orderPlan struct {
	calc   *pricing.Result
	coupon *domcoupon.Coupon
}

func (s *Service) validate(ctx context.Context, input PlaceOrderInput) (*orderPlan, error) {
	if input.UserID == "" {
		return nil, newValidation("user id is required")
	}
	if len(input.Items) == 0 {
		return nil, newValidation("at least one item is required")
	}

	var cpn *domcoupon.Coupon
	var orderCouponDiscount int64
	if input.CouponID != "" {
		c, err := s.repos.Coupons.Get(ctx, input.CouponID)
		if err != nil {
			return nil, err
		}
		if c.UserID != input.UserID {
			return nil, newValidation("coupon %s does not belong to user", c.ID)
		}
		if c.Status != domcoupon.StatusIssued {
			return nil, newValidation("coupon %s is not usable", c.ID)
		}
		cpn = c
		orderCouponDiscount = c.DiscountAmount
	}

	ids := make([]string, len(input.Items))
	for i, it := range input.Items {
		ids[i] = it.ProductID
	}
	products, err := s.repos.Products.FindByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	priceByID := make(map[string]int64, len(products))
	for _, p := range products {
		if !p.Purchasable() {
			return nil, newValidation("product %s is not purchasable", p.ID)
		}
		priceByID[p.ID] = p.Price
	}

	if _, err := s.repos.Addresses.GetDefault(ctx, input.UserID); err != nil {
		if errors.Is(err, domaddress.ErrNoDefault) {
			return nil, newValidation("no default shipping address")
		}
		return nil, err
	}

	lines := make([]pricing.LineInput, len(input.Items))
	for i, it := range input.Items {
		lines[i] = pricing.LineInput{
			ProductID:          it.ProductID,
			Quantity:           it.Quantity,
			UnitPrice:          priceByID[it.ProductID],
			PromotionDiscount:  it.PromotionDiscount,
			ItemCouponDiscount: it.ItemCouponDiscount,
		}
	}
	calc, err := pricing.Allocate(lines, orderCouponDiscount)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrValidation, err)
	}

	return &orderPlan{calc: calc, coupon: cpn}, nil
}

// settle is transaction C: debit the wallet, record the ledger entry, consume
// the coupon and mark the order paid, all or nothing.
func (s *Service) settle(ctx context.Context, entity *domorder.Order, plan *orderPlan) error {
	if entity.PaymentAmount > 0 {
		if err := s.debitWallet(ctx, entity.UserID, entity.ID, entity.PaymentAmount); err != nil {
			return err
		}
	}

	if plan.coupon != nil {
		if err := plan.coupon.Use(); err != nil {
			return err
		}
		if err := s.repos.Coupons.Update(ctx, plan.coupon); err != nil {
			return err
		}
	}

	if err := entity.MarkPaid(); err != nil {
		return err
	}
	return s.repos.Orders.Update(ctx, entity)
}

// abort runs the committed compensations in reverse and re-raises the
// original error. A compensation failure is attached to it, never silently
// absorbed.
func (s *Service) abort(ctx context.Context, state *sagaState, origErr error) error {
	if compErr := state.compensate(ctx, s.metrics); compErr != nil {
		return errors.Join(origErr, compErr)
	}
	return origErr
}

func (s *Service) decreaseStock(ctx context.Context, productID string, qty int) error {
	do := func(ctx context.Context) error {
		return optimistic.Retry(ctx, s.retryAttempts, s.retryDelay, func(ctx context.Context) error {
			item, err := s.repos.Stocks.Get(ctx, productID)
			if err != nil {
				return err
			}
			if err := item.Decrease(qty); err != nil {
				return err
			}
			return s.repos.Stocks.Update(ctx, item)
		})
	}
	if s.stockLock != nil {
		return s.stockLock.WithLock(ctx, stockLockKey(productID), do)
	}
	return do(ctx)
}

func (s *Service) increaseStock(ctx context.Context, productID string, qty int) error {
	return optimistic.Retry(ctx, s.retryAttempts, s.retryDelay, func(ctx context.Context) error {
		item, err := s.repos.Stocks.Get(ctx, productID)
		if err != nil {
			return err
		}
		if err := item.Increase(qty); err != nil {
			return err
		}
		return s.repos.Stocks.Update(ctx, item)
	})
}

func (s *Service) debitWallet(ctx context.Context, userID, orderID string, amount int64) error {
	if err := optimistic.Retry(ctx, s.retryAttempts, s.retryDelay, func(ctx context.Context) error {
		w, err := s.repos.Wallets.Get(ctx, userID)
		if err != nil {
			return err
		}
		if err := w.Use(amount); err != nil {
			return err
		}
		return s.repos.Wallets.Update(ctx, w)
	}); err != nil {
		return err
	}
	entry := domwallet.NewEntry(s.idGen.NewID(), userID, orderID, domwallet.EntryUse, amount)
	return s.repos.Wallets.AppendEntry(ctx, entry)
}

func (s *Service) refundWallet(ctx context.Context, userID, orderID string, amount int64) error {
	if err := optimistic.Retry(ctx, s.retryAttempts, s.retryDelay, func(ctx context.Context) error {
		w, err := s.repos.Wallets.Get(ctx, userID)
		if err != nil {
			return err
		}
		if err := w.Refund(amount); err != nil {
			return err
		}
		return s.repos.Wallets.Update(ctx, w)
	}); err != nil {
		return err
	}
	entry := domwallet.NewEntry(s.idGen.NewID(), userID, orderID, domwallet.EntryRefund, amount)
	return s.repos.Wallets.AppendEntry(ctx, entry)
}

func orderItems(lines []pricing.LineBreakdown) []domorder.Item {
	items := make([]domorder.Item, len(lines))
	for i, ln := range lines {
		items[i] = domorder.Item{
			ProductID:      ln.ProductID,
			Quantity:       ln.Quantity,
			UnitPrice:      ln.UnitPrice,
			DiscountAmount: ln.DiscountAmount,
			PaymentAmount:  ln.PaymentAmount,
		}
	}
	return items
}

func sortedByProduct(lines []pricing.LineBreakdown) []pricing.LineBreakdown {
	out := make([]pricing.LineBreakdown, len(lines))
	copy(out, lines)
	sort.Slice(out, func(i, j int) bool { return out[i].ProductID < out[j].ProductID })
	return out
}

func stockLockKey(productID string) string {
	return "lock:stock:" + productID
}
