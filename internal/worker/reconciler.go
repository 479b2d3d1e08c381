// Package worker runs background maintenance for the checkout core.
package worker

import (
	"context"
	"time"

	"go.uber.org/zap"

	domorder "github.com/shoply/checkout/internal/domain/order"
	"github.com/shoply/checkout/internal/pkg/logging"
)

// Reconciler sweeps orders stuck in pending. A pending order older than the
// threshold means a saga died between creating the order and settling it;
// the order is failed and logged with its items so any stock it deducted can
// be reconciled manually.
type Reconciler struct {
	orders    domorder.Repository
	interval  time.Duration
	olderThan time.Duration
}

func NewReconciler(orders domorder.Repository, interval, olderThan time.Duration) *Reconciler {
	return &Reconciler{
		orders:    orders,
		interval:  interval,
		olderThan: olderThan,
	}
}

// Run loops until ctx is cancelled.
func (r *Reconciler) Run(ctx context.Context) {
	logger := logging.FromContext(ctx).With(zap.String("component", "reconciler"))
	logger.Info("reconciler_started",
		zap.Duration("interval", r.interval),
		zap.Duration("older_than", r.olderThan),
	)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("reconciler_stopped")
			return
		case <-ticker.C:
			if err := r.sweep(ctx); err != nil {
				logger.Error("reconcile_sweep_failed", zap.Error(err))
			}
		}
	}
}

func (r *Reconciler) sweep(ctx context.Context) error {
	logger := logging.FromContext(ctx).With(zap.String("component", "reconciler"))

	stuck, err := r.orders.FindStuckPending(ctx, r.olderThan)
	if err != nil {
		return err
	}

	for _, o := range stuck {
		if err := o.Fail(); err != nil {
			logger.Error("stuck_order_transition_failed",
				zap.String("order_id", o.ID),
				zap.Error(err),
			)
			continue
		}
		if err := r.orders.Update(ctx, o); err != nil {
			logger.Error("stuck_order_update_failed",
				zap.String("order_id", o.ID),
				zap.Error(err),
			)
			continue
		}

		products := make([]string, 0, len(o.Items))
		for _, it := range o.Items {
			products = append(products, it.ProductID)
		}
		logger.Warn("stuck_order_failed",
			zap.String("order_id", o.ID),
			zap.Strings("products", products),
			zap.Time("created_at", o.CreatedAt),
		)
	}
	return nil
}
