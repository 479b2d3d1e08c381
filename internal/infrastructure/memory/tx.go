package memory

import "context"

// TxManager satisfies the checkout transaction port for the in-memory
// repositories. Each repository call is atomic on its own; there is no
// cross-call rollback, matching the single-row atomicity the saga assumes of
// its collaborators.
type TxManager struct{}

func NewTxManager() *TxManager {
	return &TxManager{}
}

func (TxManager) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}
