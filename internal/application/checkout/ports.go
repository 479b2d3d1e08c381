package checkout

import "context"

// TxManager demarcates one transactional saga step: fn's repository calls
// commit or roll back together when the scope exits.
type TxManager interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type IDGenerator interface {
	NewID() string
}
