package models

import "time"

// Promo discount types.
const (
	DiscountTypePercent = "PERCENT"
	DiscountTypeFixed   = "FIXED"
)

// OrderPromo is the snapshot of the promo code redeemed for an order.
// AppliesToShipping promos discount the shipping fee instead of the items
// subtotal and therefore contribute no per-line discount for refunds.
type OrderPromo struct {
	ID                uint      `gorm:"primaryKey" json:"id"`
	OrderID           uint      `gorm:"not null;uniqueIndex" json:"order_id"`
	Code              string    `gorm:"type:varchar(60);not null" json:"code"`
	DiscountType      string    `gorm:"type:varchar(20);not null;default:'PERCENT'" json:"discount_type"`
	PercentOff        int       `gorm:"default:0" json:"percent_off"`
	DiscountAmount    int64     `gorm:"not null;default:0" json:"discount_amount"`
	AppliesToShipping bool      `gorm:"not null;default:false" json:"applies_to_shipping"`
	CreatedAt         time.Time `gorm:"autoCreateTime" json:"created_at"`
}
