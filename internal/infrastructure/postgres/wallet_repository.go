package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	domain "github.com/shoply/checkout/internal/domain/wallet"
	"github.com/shoply/checkout/internal/pkg/optimistic"
)

type WalletRepository struct {
	db *DB
}

func NewWalletRepository(db *DB) *WalletRepository {
	return &WalletRepository{db: db}
}

func (r *WalletRepository) Get(ctx context.Context, userID string) (*domain.Wallet, error) {
	var w domain.Wallet
	err := r.db.q(ctx).QueryRow(ctx,
		`SELECT user_id, balance, version, updated_at FROM wallets WHERE user_id = $1`,
		userID,
	).Scan(&w.UserID, &w.Balance, &w.Version, &w.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &w, nil
}

func (r *WalletRepository) Save(ctx context.Context, wallet *domain.Wallet) error {
	_, err := r.db.q(ctx).Exec(ctx,
		`INSERT INTO wallets (user_id, balance, version, updated_at)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (user_id) DO UPDATE
		 SET balance = EXCLUDED.balance, version = EXCLUDED.version, updated_at = EXCLUDED.updated_at`,
		wallet.UserID, wallet.Balance, wallet.Version, wallet.UpdatedAt,
	)
	return err
}

// Update writes conditioned on the version read by the caller; zero rows
// affected means another writer got there first.
func (r *WalletRepository) Update(ctx context.Context, wallet *domain.Wallet) error {
	tag, err := r.db.q(ctx).Exec(ctx,
		`UPDATE wallets
		 SET balance = $1, version = version + 1, updated_at = $2
		 WHERE user_id = $3 AND version = $4`,
		wallet.Balance, wallet.UpdatedAt, wallet.UserID, wallet.Version,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		if _, gerr := r.Get(ctx, wallet.UserID); errors.Is(gerr, domain.ErrNotFound) {
			return domain.ErrNotFound
		}
		return optimistic.ErrConflict
	}
	wallet.Version++
	return nil
}

func (r *WalletRepository) AppendEntry(ctx context.Context, entry *domain.Entry) error {
	_, err := r.db.q(ctx).Exec(ctx,
		`INSERT INTO wallet_entries (id, user_id, order_id, kind, amount, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		entry.ID, entry.UserID, entry.OrderID, string(entry.Kind), entry.Amount, entry.CreatedAt,
	)
	return err
}

func (r *WalletRepository) Entries(ctx context.Context, userID string) ([]*domain.Entry, error) {
	rows, err := r.db.q(ctx).Query(ctx,
		`SELECT id, user_id, order_id, kind, amount, created_at
		 FROM wallet_entries WHERE user_id = $1 ORDER BY created_at`,
		userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []*domain.Entry
	for rows.Next() {
		var e domain.Entry
		var kind string
		if err := rows.Scan(&e.ID, &e.UserID, &e.OrderID, &kind, &e.Amount, &e.CreatedAt); err != nil {
			return nil, err
		}
		e.Kind = domain.EntryKind(kind)
		entries = append(entries, &e)
	}
	return entries, rows.Err()
}
