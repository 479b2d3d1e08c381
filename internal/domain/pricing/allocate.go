// Package pricing computes per-line price breakdowns for an order, including
// the proportional distribution of an order-level coupon discount.
package pricing

import (
	"errors"
	"fmt"
)

var (
	ErrNoLines              = errors.New("pricing: at least one line is required")
	ErrInvalidQuantity      = errors.New("pricing: quantity must be greater than zero")
	ErrInvalidAmount        = errors.New("pricing: amounts must be zero or greater")
	ErrDiscountExceedsBase  = errors.New("pricing: line discounts exceed base amount")
	ErrCouponExceedsPayable = errors.New("pricing: order coupon discount exceeds payable amount")
)

type LineInput struct {
	ProductID          string
	Quantity           int
	UnitPrice          int64
	PromotionDiscount  int64
	ItemCouponDiscount int64
}

type LineBreakdown struct {
	ProductID          string
	Quantity           int
	UnitPrice          int64
	BaseAmount         int64
	PromotionDiscount  int64
	ItemCouponDiscount int64
	OrderCouponShare   int64
	DiscountAmount     int64
	PaymentAmount      int64
}

type Result struct {
	Lines         []LineBreakdown
	BaseTotal     int64
	DiscountTotal int64
	PaymentTotal  int64
}

// Allocate produces the per-line breakdown for the given lines and an
// order-level coupon discount. The coupon discount is split across lines in
// proportion to what each line still owes after its own discounts, using
// floored shares; the rounding remainder is assigned to the last line in
// input order so the shares always sum to exactly orderCouponDiscount.
// The computation is pure and deterministic.
func Allocate(lines []LineInput, orderCouponDiscount int64) (*Result, error) {
	if len(lines) == 0 {
		return nil, ErrNoLines
	}
	if orderCouponDiscount < 0 {
		return nil, ErrInvalidAmount
	}

	out := make([]LineBreakdown, len(lines))
	bases := make([]int64, len(lines))
	var baseTotal, distTotal int64

	for i, ln := range lines {
		if ln.Quantity <= 0 {
			return nil, fmt.Errorf("%w: product %s", ErrInvalidQuantity, ln.ProductID)
		}
		if ln.UnitPrice < 0 || ln.PromotionDiscount < 0 || ln.ItemCouponDiscount < 0 {
			return nil, fmt.Errorf("%w: product %s", ErrInvalidAmount, ln.ProductID)
		}

		baseAmount := ln.UnitPrice * int64(ln.Quantity)
		if ln.PromotionDiscount+ln.ItemCouponDiscount > baseAmount {
			return nil, fmt.Errorf("%w: product %s", ErrDiscountExceedsBase, ln.ProductID)
		}

		bases[i] = baseAmount - ln.PromotionDiscount - ln.ItemCouponDiscount
		baseTotal += baseAmount
		distTotal += bases[i]

		out[i] = LineBreakdown{
			ProductID:          ln.ProductID,
			Quantity:           ln.Quantity,
			UnitPrice:          ln.UnitPrice,
			BaseAmount:         baseAmount,
			PromotionDiscount:  ln.PromotionDiscount,
			ItemCouponDiscount: ln.ItemCouponDiscount,
		}
	}

	if orderCouponDiscount > 0 {
		if orderCouponDiscount > distTotal {
			return nil, ErrCouponExceedsPayable
		}
		var allocated int64
		for i := range out {
			share := bases[i] * orderCouponDiscount / distTotal
			out[i].OrderCouponShare = share
			allocated += share
		}
		// Flooring leaves a remainder; the last line absorbs it.
		out[len(out)-1].OrderCouponShare += orderCouponDiscount - allocated
	}

	res := &Result{Lines: out, BaseTotal: baseTotal}
	for i := range out {
		out[i].DiscountAmount = out[i].PromotionDiscount + out[i].ItemCouponDiscount + out[i].OrderCouponShare
		out[i].PaymentAmount = out[i].BaseAmount - out[i].DiscountAmount
		res.DiscountTotal += out[i].DiscountAmount
		res.PaymentTotal += out[i].PaymentAmount
	}
	return res, nil
}
