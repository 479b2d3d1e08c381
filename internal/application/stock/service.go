package stock

import (
	"context"
	"errors"
	"time"

	domain "github.com/shoply/checkout/internal/domain/stock"
	"github.com/shoply/checkout/internal/lock"
	"github.com/shoply/checkout/internal/pkg/optimistic"
)

type Option func(*Service)

// WithLocker serializes mutations per product through a distributed lock,
// for products contended enough to starve optimistic retries.
func WithLocker(locker *lock.Locker) Option {
	return func(s *Service) { s.locker = locker }
}

type Service struct {
	repo          domain.Repository
	locker        *lock.Locker
	retryAttempts int
	retryDelay    time.Duration
}

func NewService(repo domain.Repository, opts ...Option) *Service {
	s := &Service{
		repo:          repo,
		retryAttempts: optimistic.DefaultAttempts,
		retryDelay:    optimistic.DefaultDelay,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) Get(ctx context.Context, productID string) (*domain.Item, error) {
	return s.repo.Get(ctx, productID)
}

// Increase adds stock, initializing the row for a product seen for the
// first time.
func (s *Service) Increase(ctx context.Context, productID string, quantity int) (*domain.Item, error) {
	return s.mutate(ctx, productID, func(item *domain.Item) error {
		return item.Increase(quantity)
	}, quantity)
}

func (s *Service) Decrease(ctx context.Context, productID string, quantity int) (*domain.Item, error) {
	return s.mutate(ctx, productID, func(item *domain.Item) error {
		return item.Decrease(quantity)
	}, 0)
}

func (s *Service) mutate(ctx context.Context, productID string, apply func(*domain.Item) error, initial int) (*domain.Item, error) {
	var result *domain.Item
	do := func(ctx context.Context) error {
		return optimistic.Retry(ctx, s.retryAttempts, s.retryDelay, func(ctx context.Context) error {
			item, err := s.repo.Get(ctx, productID)
			if errors.Is(err, domain.ErrNotFound) && initial > 0 {
				fresh, nerr := domain.NewItem(productID, initial)
				if nerr != nil {
					return nerr
				}
				if serr := s.repo.Save(ctx, fresh); serr != nil {
					return serr
				}
				result = fresh
				return nil
			}
			if err != nil {
				return err
			}
			if err := apply(item); err != nil {
				return err
			}
			if err := s.repo.Update(ctx, item); err != nil {
				return err
			}
			result = item
			return nil
		})
	}

	var err error
	if s.locker != nil {
		err = s.locker.WithLock(ctx, "lock:stock:"+productID, do)
	} else {
		err = do(ctx)
	}
	if err != nil {
		return nil, err
	}
	return result, nil
}
