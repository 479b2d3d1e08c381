package wallet

import "context"

// Repository persists wallets with optimistic concurrency: Update writes the
// new state only if the stored version still equals wallet.Version, bumping
// the version on success and failing with optimistic.ErrConflict otherwise.
type Repository interface {
	Get(ctx context.Context, userID string) (*Wallet, error)
	Save(ctx context.Context, wallet *Wallet) error
	Update(ctx context.Context, wallet *Wallet) error
	AppendEntry(ctx context.Context, entry *Entry) error
	Entries(ctx context.Context, userID string) ([]*Entry, error)
}
