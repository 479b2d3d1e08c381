package product

import "errors"

var (
	ErrNotFound       = errors.New("product: not found")
	ErrNotPurchasable = errors.New("product: not purchasable")
)

type Status string

const (
	StatusActive   Status = "active"
	StatusInactive Status = "inactive"
	StatusDeleted  Status = "deleted"
)

type Product struct {
	ID     string
	Name   string
	Price  int64
	Status Status
}

func (p *Product) Purchasable() bool {
	return p.Status == StatusActive
}
