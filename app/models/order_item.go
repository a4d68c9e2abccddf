package models

import "time"

// OrderItem is an immutable snapshot of a product line at order time.
// Catalog price changes must never retroactively alter historical orders.
type OrderItem struct {
	ID            uint   `gorm:"primaryKey" json:"id"`
	OrderID       uint   `gorm:"not null;index" json:"order_id"`
	ProductID     uint   `gorm:"not null;index" json:"product_id"`
	ProductName   string `gorm:"type:varchar(200);not null;column:product_name_snapshot" json:"product_name"`
	PriceSnapshot int64  `gorm:"not null" json:"price_snapshot"`
	Quantity      int    `gorm:"not null" json:"quantity"`
	Subtotal      int64  `gorm:"not null" json:"subtotal"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}
