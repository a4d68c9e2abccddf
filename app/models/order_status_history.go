package models

import "time"

// Status history row types.
const (
	StatusTypePayment    = "PAYMENT"
	StatusTypeFulfilment = "FULFILMENT"
)

// OrderStatusHistory is an immutable audit row appended on every status
// change. All transitions go through the order service so this log is
// complete.
type OrderStatusHistory struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	OrderID    uint      `gorm:"not null;index" json:"order_id"`
	StatusType string    `gorm:"type:varchar(20);not null" json:"status_type"`
	OldStatus  string    `gorm:"type:varchar(30);not null" json:"old_status"`
	NewStatus  string    `gorm:"type:varchar(30);not null" json:"new_status"`
	Note       string    `gorm:"type:text" json:"note"`
	CreatedAt  time.Time `gorm:"autoCreateTime;index" json:"created_at"`
}
