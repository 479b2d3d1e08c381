package order

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrNotFound          = errors.New("order: not found")
	ErrConflict          = errors.New("order: already exists")
	ErrInvalidQuantity   = errors.New("order: quantity must be greater than zero")
	ErrInvalidAmount     = errors.New("order: amount must be zero or greater")
	ErrNoItems           = errors.New("order: at least one item is required")
	ErrInvalidTransition = errors.New("order: invalid status transition")
	ErrNotOwner          = errors.New("order: not owned by user")
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusPaid      Status = "paid"
	StatusShipped   Status = "shipped"
	StatusDelivered Status = "delivered"
	StatusCancelled Status = "cancelled"
	StatusFailed    Status = "failed"
)

// transitions is the full lifecycle table. Delivered, cancelled and failed
// are terminal.
var transitions = map[Status][]Status{
	StatusPending: {StatusPaid, StatusCancelled, StatusFailed},
	StatusPaid:    {StatusShipped, StatusCancelled},
	StatusShipped: {StatusDelivered},
}

type Item struct {
	OrderID        string
	ProductID      string
	Quantity       int
	UnitPrice      int64
	DiscountAmount int64
	PaymentAmount  int64
}

type Order struct {
	ID             string
	UserID         string
	Status         Status
	BasePrice      int64
	DiscountAmount int64
	PaymentAmount  int64
	UsedCouponID   string
	Items          []Item
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func New(id, userID string, basePrice, discountAmount int64, items []Item) (*Order, error) {
	if basePrice < 0 || discountAmount < 0 {
		return nil, ErrInvalidAmount
	}
	if discountAmount > basePrice {
		return nil, fmt.Errorf("%w: discount exceeds base price", ErrInvalidAmount)
	}
	if len(items) == 0 {
		return nil, ErrNoItems
	}
	for _, it := range items {
		if it.Quantity <= 0 {
			return nil, ErrInvalidQuantity
		}
	}

	now := time.Now().UTC()
	o := &Order{
		ID:             id,
		UserID:         userID,
		Status:         StatusPending,
		BasePrice:      basePrice,
		DiscountAmount: discountAmount,
		PaymentAmount:  basePrice - discountAmount,
		Items:          make([]Item, len(items)),
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	copy(o.Items, items)
	for i := range o.Items {
		o.Items[i].OrderID = id
	}
	return o, nil
}

// CanTransition reports whether the lifecycle table allows moving to next.
func (o *Order) CanTransition(next Status) bool {
	for _, s := range transitions[o.Status] {
		if s == next {
			return true
		}
	}
	return false
}

func (o *Order) transition(next Status) error {
	if !o.CanTransition(next) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, o.Status, next)
	}
	o.Status = next
	o.touch()
	return nil
}

func (o *Order) MarkPaid() error      { return o.transition(StatusPaid) }
func (o *Order) MarkShipped() error   { return o.transition(StatusShipped) }
func (o *Order) MarkDelivered() error { return o.transition(StatusDelivered) }
func (o *Order) Cancel() error        { return o.transition(StatusCancelled) }
func (o *Order) Fail() error          { return o.transition(StatusFailed) }

func (o *Order) IsTerminal() bool {
	return len(transitions[o.Status]) == 0
}

func (o *Order) touch() {
	o.UpdatedAt = time.Now().UTC()
}

func (o *Order) Clone() *Order {
	if o == nil {
		return nil
	}
	clone := *o
	clone.Items = make([]Item, len(o.Items))
	copy(clone.Items, o.Items)
	return &clone
}
