package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	domain "github.com/shoply/checkout/internal/domain/order"
)

type OrderRepository struct {
	db *DB
}

func NewOrderRepository(db *DB) *OrderRepository {
	return &OrderRepository{db: db}
}

func (r *OrderRepository) Insert(ctx context.Context, order *domain.Order) error {
	q := r.db.q(ctx)

	_, err := q.Exec(ctx,
		`INSERT INTO orders (id, user_id, status, base_price, discount_amount, payment_amount, used_coupon_id, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		order.ID, order.UserID, string(order.Status),
		order.BasePrice, order.DiscountAmount, order.PaymentAmount,
		order.UsedCouponID, order.CreatedAt, order.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return domain.ErrConflict
		}
		return err
	}

	for _, item := range order.Items {
		if _, err := q.Exec(ctx,
			`INSERT INTO order_items (order_id, product_id, quantity, unit_price, discount_amount, payment_amount)
			 VALUES ($1, $2, $3, $4, $5, $6)`,
			item.OrderID, item.ProductID, item.Quantity,
			item.UnitPrice, item.DiscountAmount, item.PaymentAmount,
		); err != nil {
			return err
		}
	}
	return nil
}

func (r *OrderRepository) Get(ctx context.Context, id string) (*domain.Order, error) {
	var o domain.Order
	var status string
	err := r.db.q(ctx).QueryRow(ctx,
		`SELECT id, user_id, status, base_price, discount_amount, payment_amount, used_coupon_id, created_at, updated_at
		 FROM orders WHERE id = $1`,
		id,
	).Scan(&o.ID, &o.UserID, &status, &o.BasePrice, &o.DiscountAmount, &o.PaymentAmount, &o.UsedCouponID, &o.CreatedAt, &o.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	o.Status = domain.Status(status)

	items, err := r.itemsFor(ctx, o.ID)
	if err != nil {
		return nil, err
	}
	o.Items = items
	return &o, nil
}

func (r *OrderRepository) Update(ctx context.Context, order *domain.Order) error {
	tag, err := r.db.q(ctx).Exec(ctx,
		`UPDATE orders
		 SET status = $1, base_price = $2, discount_amount = $3, payment_amount = $4, updated_at = $5
		 WHERE id = $6`,
		string(order.Status), order.BasePrice, order.DiscountAmount, order.PaymentAmount, order.UpdatedAt, order.ID,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *OrderRepository) Delete(ctx context.Context, id string) error {
	q := r.db.q(ctx)
	if _, err := q.Exec(ctx, `DELETE FROM order_items WHERE order_id = $1`, id); err != nil {
		return err
	}
	tag, err := q.Exec(ctx, `DELETE FROM orders WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *OrderRepository) FindStuckPending(ctx context.Context, olderThan time.Duration) ([]*domain.Order, error) {
	rows, err := r.db.q(ctx).Query(ctx,
		`SELECT id, user_id, status, base_price, discount_amount, payment_amount, used_coupon_id, created_at, updated_at
		 FROM orders WHERE status = $1 AND updated_at < $2`,
		string(domain.StatusPending), time.Now().UTC().Add(-olderThan),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orders []*domain.Order
	for rows.Next() {
		var o domain.Order
		var status string
		if err := rows.Scan(&o.ID, &o.UserID, &status, &o.BasePrice, &o.DiscountAmount, &o.PaymentAmount, &o.UsedCouponID, &o.CreatedAt, &o.UpdatedAt); err != nil {
			return nil, err
		}
		o.Status = domain.Status(status)
		orders = append(orders, &o)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, o := range orders {
		items, err := r.itemsFor(ctx, o.ID)
		if err != nil {
			return nil, err
		}
		o.Items = items
	}
	return orders, nil
}

func (r *OrderRepository) itemsFor(ctx context.Context, orderID string) ([]domain.Item, error) {
	rows, err := r.db.q(ctx).Query(ctx,
		`SELECT order_id, product_id, quantity, unit_price, discount_amount, payment_amount
		 FROM order_items WHERE order_id = $1`,
		orderID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []domain.Item
	for rows.Next() {
		var it domain.Item
		if err := rows.Scan(&it.OrderID, &it.ProductID, &it.Quantity, &it.UnitPrice, &it.DiscountAmount, &it.PaymentAmount); err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}
