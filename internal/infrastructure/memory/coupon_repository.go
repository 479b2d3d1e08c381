package memory

import (
	"context"
	"sync"

	domain "github.com/shoply/checkout/internal/domain/coupon"
)

type CouponRepository struct {
	mu      sync.RWMutex
	coupons map[string]*domain.Coupon
}

func NewCouponRepository() *CouponRepository {
	return &CouponRepository{
		coupons: make(map[string]*domain.Coupon),
	}
}

func (r *CouponRepository) Seed(coupon *domain.Coupon) {
	if coupon == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.coupons[coupon.ID] = coupon.Clone()
}

func (r *CouponRepository) Get(ctx context.Context, id string) (*domain.Coupon, error) {
	_ = ctx

	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.coupons[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return c.Clone(), nil
}

func (r *CouponRepository) Update(ctx context.Context, coupon *domain.Coupon) error {
	_ = ctx
	if coupon == nil {
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.coupons[coupon.ID]; !ok {
		return domain.ErrNotFound
	}
	r.coupons[coupon.ID] = coupon.Clone()
	return nil
}
