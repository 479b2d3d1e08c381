package coupon

import (
	"errors"
	"time"
)

var (
	ErrNotFound      = errors.New("coupon: not found")
	ErrNotUsable     = errors.New("coupon: not in issued state")
	ErrNotRestorable = errors.New("coupon: not in used state")
)

type Status string

const (
	StatusIssued Status = "issued"
	StatusUsed   Status = "used"
)

type Coupon struct {
	ID             string
	UserID         string
	DiscountAmount int64
	Status         Status
	UsedAt         *time.Time
}

// Use consumes an issued coupon.
func (c *Coupon) Use() error {
	if c.Status != StatusIssued {
		return ErrNotUsable
	}
	now := time.Now().UTC()
	c.Status = StatusUsed
	c.UsedAt = &now
	return nil
}

// Restore puts a used coupon back into circulation, e.g. after an order
// cancellation.
func (c *Coupon) Restore() error {
	if c.Status != StatusUsed {
		return ErrNotRestorable
	}
	c.Status = StatusIssued
	c.UsedAt = nil
	return nil
}

func (c *Coupon) Clone() *Coupon {
	if c == nil {
		return nil
	}
	clone := *c
	if c.UsedAt != nil {
		t := *c.UsedAt
		clone.UsedAt = &t
	}
	return &clone
}
