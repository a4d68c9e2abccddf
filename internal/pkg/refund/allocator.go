// Package refund computes refundable amounts with proportional discount
// allocation and drives the refund request/notify lifecycle against the
// gateway, under the conservation invariant that confirmed refunds never
// exceed what was paid.
package refund

import (
	"github.com/khairulanwar/PasarBox/app/models"
)

// LineAllocation is one line's share of the order discount.
type LineAllocation struct {
	OrderItemID uint
	Discount    int64
}

// AllocateDiscount distributes a promo discount across order lines in
// proportion to each line's share of the pre-discount subtotal. Per-line
// shares use floor division; the rounding remainder lands on the last
// line, so the allocations always sum to min(discount, total subtotal).
func AllocateDiscount(items []models.OrderItem, discount int64) []LineAllocation {
	if discount < 0 {
		discount = 0
	}
	var totalSubtotal int64
	for _, it := range items {
		if it.Subtotal > 0 {
			totalSubtotal += it.Subtotal
		}
	}
	effective := discount
	if effective > totalSubtotal {
		effective = totalSubtotal
	}

	allocations := make([]LineAllocation, len(items))
	if effective == 0 || totalSubtotal == 0 {
		for i, it := range items {
			allocations[i] = LineAllocation{OrderItemID: it.ID}
		}
		return allocations
	}

	var allocated int64
	for i, it := range items {
		subtotal := it.Subtotal
		if subtotal < 0 {
			subtotal = 0
		}
		share := effective * subtotal / totalSubtotal
		if i == len(items)-1 {
			share = effective - allocated
			if share < 0 {
				share = 0
			}
		}
		allocated += share
		allocations[i] = LineAllocation{OrderItemID: it.ID, Discount: share}
	}
	return allocations
}

// DefaultRefundAmount computes the default refund for qty units of a line:
// the net-of-discount amount paid for the line, scaled by qty/line.Quantity
// with round-half-up. Shipping-scoped promos contribute no line discount.
func DefaultRefundAmount(order *models.Order, promo *models.OrderPromo, item *models.OrderItem, qty int) int64 {
	if item == nil || item.Quantity <= 0 || qty <= 0 {
		return 0
	}

	var discount int64
	if promo != nil && !promo.AppliesToShipping {
		discount = promo.DiscountAmount
	}

	var allocatedDiscount int64
	for _, alloc := range AllocateDiscount(order.Items, discount) {
		if alloc.OrderItemID == item.ID {
			allocatedDiscount = alloc.Discount
			break
		}
	}

	netPaid := item.Subtotal - allocatedDiscount
	if netPaid < 0 {
		netPaid = 0
	}
	return (netPaid*int64(qty) + int64(item.Quantity)/2) / int64(item.Quantity)
}
