package models

import "time"

// Payment providers recorded on events and refunds.
const (
	PaymentProviderFiuu   = "FIUU"
	PaymentProviderManual = "MANUAL"
)

// PaymentEvent stores every inbound gateway callback with deduplication
// metadata. The composite unique index over provider, transaction id and
// payload hash is the idempotency gate that makes at-least-once delivery
// safe to process.
type PaymentEvent struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	OrderID       uint      `gorm:"not null;index" json:"order_id"`
	Provider      string    `gorm:"type:varchar(20);not null;index:ux_payment_events_dedup,unique,priority:1" json:"provider"`
	ProviderTxnID string    `gorm:"type:varchar(191);not null;default:'';index:ux_payment_events_dedup,unique,priority:2" json:"provider_txn_id"`
	PayloadHash   string    `gorm:"type:varchar(64);not null;index:ux_payment_events_dedup,unique,priority:3" json:"payload_hash"`
	PayloadJSON   string    `gorm:"type:longtext" json:"payload_json"`
	Verified      bool      `gorm:"not null;default:false;index" json:"verified"`
	CreatedAt     time.Time `gorm:"autoCreateTime;index" json:"created_at"`
}
