package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	domain "github.com/shoply/checkout/internal/domain/stock"
	"github.com/shoply/checkout/internal/pkg/optimistic"
)

type StockRepository struct {
	db *DB
}

func NewStockRepository(db *DB) *StockRepository {
	return &StockRepository{db: db}
}

func (r *StockRepository) Get(ctx context.Context, productID string) (*domain.Item, error) {
	var item domain.Item
	err := r.db.q(ctx).QueryRow(ctx,
		`SELECT product_id, quantity, version, updated_at FROM stocks WHERE product_id = $1`,
		productID,
	).Scan(&item.ProductID, &item.Quantity, &item.Version, &item.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *StockRepository) Save(ctx context.Context, item *domain.Item) error {
	_, err := r.db.q(ctx).Exec(ctx,
		`INSERT INTO stocks (product_id, quantity, version, updated_at)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (product_id) DO UPDATE
		 SET quantity = EXCLUDED.quantity, version = EXCLUDED.version, updated_at = EXCLUDED.updated_at`,
		item.ProductID, item.Quantity, item.Version, item.UpdatedAt,
	)
	return err
}

func (r *StockRepository) Update(ctx context.Context, item *domain.Item) error {
	tag, err := r.db.q(ctx).Exec(ctx,
		`UPDATE stocks
		 SET quantity = $1, version = version + 1, updated_at = $2
		 WHERE product_id = $3 AND version = $4`,
		item.Quantity, item.UpdatedAt, item.ProductID, item.Version,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		if _, gerr := r.Get(ctx, item.ProductID); errors.Is(gerr, domain.ErrNotFound) {
			return domain.ErrNotFound
		}
		return optimistic.ErrConflict
	}
	item.Version++
	return nil
}
