package models

import "time"

// Admin notification types raised by the payment core.
const (
	NotificationTypeOrderCreated   = "ORDER_CREATED"
	NotificationTypePaymentPaid    = "PAYMENT_PAID"
	NotificationTypeStockShortfall = "STOCK_SHORTFALL"
)

// AdminNotification is an in-app notification for operators, e.g. a paid
// order that could not be fulfilled because stock ran out at confirmation.
type AdminNotification struct {
	ID        uint       `gorm:"primaryKey" json:"id"`
	Type      string     `gorm:"type:varchar(40);not null;index" json:"type"`
	Title     string     `gorm:"type:varchar(200);not null" json:"title"`
	Body      string     `gorm:"type:text" json:"body"`
	Link      string     `gorm:"type:varchar(255)" json:"link"`
	ReadAt    *time.Time `gorm:"type:timestamp;default:null" json:"read_at,omitempty"`
	CreatedAt time.Time  `gorm:"autoCreateTime;index" json:"created_at"`
}
