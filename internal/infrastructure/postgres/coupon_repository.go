package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	domain "github.com/shoply/checkout/internal/domain/coupon"
)

type CouponRepository struct {
	db *DB
}

func NewCouponRepository(db *DB) *CouponRepository {
	return &CouponRepository{db: db}
}

func (r *CouponRepository) Get(ctx context.Context, id string) (*domain.Coupon, error) {
	var c domain.Coupon
	var status string
	err := r.db.q(ctx).QueryRow(ctx,
		`SELECT id, user_id, discount_amount, status, used_at FROM coupons WHERE id = $1`,
		id,
	).Scan(&c.ID, &c.UserID, &c.DiscountAmount, &status, &c.UsedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	c.Status = domain.Status(status)
	return &c, nil
}

func (r *CouponRepository) Update(ctx context.Context, coupon *domain.Coupon) error {
	tag, err := r.db.q(ctx).Exec(ctx,
		`UPDATE coupons SET status = $1, used_at = $2 WHERE id = $3`,
		string(coupon.Status), coupon.UsedAt, coupon.ID,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}
