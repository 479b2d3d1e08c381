package checkout

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/shoply/checkout/internal/infrastructure/prometrics"
	"github.com/shoply/checkout/internal/pkg/logging"
)

// compensation undoes one committed saga step.
type compensation struct {
	step string
	run  func(ctx context.Context) error
}

// sagaState tracks which steps of one saga execution have committed. It
// lives only for the duration of that execution.
type sagaState struct {
	comps []compensation
}

// committed registers the undo for a step that just committed.
func (s *sagaState) committed(step string, run func(ctx context.Context) error) {
	s.comps = append(s.comps, compensation{step: step, run: run})
}

// compensate runs the registered compensations in reverse commit order.
// Compensations are at-least-once best-effort: a failure is logged at the
// highest severity and reported, never swallowed, since it leaves state
// requiring manual reconciliation. All compensations are attempted even when
// an earlier one fails.
func (s *sagaState) compensate(ctx context.Context, metrics *prometrics.Metrics) error {
	logger := logging.FromContext(ctx)

	var failures []error
	for i := len(s.comps) - 1; i >= 0; i-- {
		c := s.comps[i]
		outcome := "success"
		if err := c.run(ctx); err != nil {
			outcome = "error"
			failures = append(failures, fmt.Errorf("step %s: %w", c.step, err))
			logger.Error("compensation_failed",
				zap.String("step", c.step),
				zap.Error(err),
			)
		}
		metrics.CompensationsTotal.WithLabelValues(c.step, outcome).Inc()
	}

	if len(failures) > 0 {
		return fmt.Errorf("%w: %w", ErrCompensation, errors.Join(failures...))
	}
	return nil
}
