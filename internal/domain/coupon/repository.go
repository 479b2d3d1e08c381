package coupon

import "context"

type Repository interface {
	Get(ctx context.Context, id string) (*Coupon, error)
	Update(ctx context.Context, coupon *Coupon) error
}
