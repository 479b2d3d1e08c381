package stock

import (
	"errors"
	"time"
)

var (
	ErrNotFound          = errors.New("stock: product not found")
	ErrInvalidQuantity   = errors.New("stock: quantity must be greater than zero")
	ErrInsufficientStock = errors.New("stock: insufficient stock")
)

// Item tracks on-hand quantity for one product under the same optimistic
// version discipline as Wallet.
type Item struct {
	ProductID string
	Quantity  int
	Version   int64
	UpdatedAt time.Time
}

func NewItem(productID string, quantity int) (*Item, error) {
	if quantity < 0 {
		return nil, ErrInvalidQuantity
	}
	return &Item{
		ProductID: productID,
		Quantity:  quantity,
		UpdatedAt: time.Now().UTC(),
	}, nil
}

func (i *Item) Increase(quantity int) error {
	if quantity <= 0 {
		return ErrInvalidQuantity
	}
	i.Quantity += quantity
	i.touch()
	return nil
}

func (i *Item) Decrease(quantity int) error {
	if quantity <= 0 {
		return ErrInvalidQuantity
	}
	if quantity > i.Quantity {
		return ErrInsufficientStock
	}
	i.Quantity -= quantity
	i.touch()
	return nil
}

func (i *Item) touch() {
	i.UpdatedAt = time.Now().UTC()
}

func (i *Item) Clone() *Item {
	if i == nil {
		return nil
	}
	clone := *i
	return &clone
}
