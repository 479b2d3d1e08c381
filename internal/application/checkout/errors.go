package checkout

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation marks bad input or a business-rule violation; never
	// retried.
	ErrValidation = errors.New("checkout: validation failed")
	// ErrCompensation marks a failed compensating action. The system is left
	// inconsistent and needs manual reconciliation; this error is never
	// swallowed.
	ErrCompensation = errors.New("checkout: compensation failed")
)

func newValidation(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}
