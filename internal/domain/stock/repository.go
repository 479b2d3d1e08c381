package stock

import "context"

// Repository persists stock rows; Update follows the same version
// compare-and-set contract as the wallet repository.
type Repository interface {
	Get(ctx context.Context, productID string) (*Item, error)
	Save(ctx context.Context, item *Item) error
	Update(ctx context.Context, item *Item) error
}
