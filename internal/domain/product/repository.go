package product

import "context"

type Repository interface {
	Get(ctx context.Context, id string) (*Product, error)
	FindByIDs(ctx context.Context, ids []string) ([]*Product, error)
}
