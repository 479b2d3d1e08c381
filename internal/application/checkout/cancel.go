package checkout

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	domorder "github.com/shoply/checkout/internal/domain/order"
	"github.com/shoply/checkout/internal/pkg/logging"
)

// CancelOrder cancels a pending or paid order all-or-nothing: the status
// moves to cancelled, a paid order's wallet debit is refunded and its stock
// restored, and a consumed coupon is reissued. Partial-item cancellation is
// not supported.
func (s *Service) CancelOrder(ctx context.Context, userID, orderID string) (err error) {
	logger := logging.FromContext(ctx).With(zap.String("component", "checkout"))

	ctx, span := s.tracer.Start(ctx, "Checkout.CancelOrder", trace.WithAttributes(
		attribute.String("order.id", orderID),
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
		s.metrics.CheckoutTotal.WithLabelValues("cancel_order", outcome).Inc()
		span.End()
	}()

	entity, err := s.repos.Orders.Get(ctx, orderID)
	if err != nil {
		return err
	}
	if entity.UserID != userID {
		return domorder.ErrNotOwner
	}
	if entity.Status != domorder.StatusPending && entity.Status != domorder.StatusPaid {
		return newValidation("order %s cannot be cancelled from status %s", orderID, entity.Status)
	}

	wasPaid := entity.Status == domorder.StatusPaid

	if err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := entity.Cancel(); err != nil {
			return err
		}
		if err := s.repos.Orders.Update(ctx, entity); err != nil {
			return err
		}

		// Refund, stock restore and coupon reissue apply only once the
		// settle step had committed; a pending order never got that far.
		if !wasPaid {
			return nil
		}

		if entity.PaymentAmount > 0 {
			if err := s.refundWallet(ctx, entity.UserID, entity.ID, entity.PaymentAmount); err != nil {
				return fmt.Errorf("refund wallet: %w", err)
			}
		}
		for _, item := range entity.Items {
			if err := s.increaseStock(ctx, item.ProductID, item.Quantity); err != nil {
				return fmt.Errorf("restore stock %s: %w", item.ProductID, err)
			}
		}
		if entity.UsedCouponID != "" {
			c, err := s.repos.Coupons.Get(ctx, entity.UsedCouponID)
			if err != nil {
				return fmt.Errorf("restore coupon: %w", err)
			}
			if err := c.Restore(); err != nil {
				return fmt.Errorf("restore coupon: %w", err)
			}
			if err := s.repos.Coupons.Update(ctx, c); err != nil {
				return fmt.Errorf("restore coupon: %w", err)
			}
		}
		return nil
	}); err != nil {
		return fmt.Errorf("checkout: cancel order: %w", err)
	}

	logger.Info("order_cancelled",
		zap.String("order_id", orderID),
		zap.Bool("was_paid", wasPaid),
	)
	return nil
}

// GetOrder fetches an order on behalf of its owner.
func (s *Service) GetOrder(ctx context.Context, userID, orderID string) (*domorder.Order, error) {
	entity, err := s.repos.Orders.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if entity.UserID != userID {
		return nil, domorder.ErrNotOwner
	}
	return entity, nil
}
