package models

import (
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
)

// Payment methods supported at checkout.
const (
	PaymentMethodOnline          = "ONLINE"
	PaymentMethodOfflineTransfer = "OFFLINE_TRANSFER"
)

// Payment status lifecycle. PAID is terminal except for refund progress.
const (
	PaymentStatusPending              = "PENDING"
	PaymentStatusAwaitingVerification = "AWAITING_VERIFICATION"
	PaymentStatusPaid                 = "PAID"
	PaymentStatusFailed               = "FAILED"
	PaymentStatusPartiallyRefunded    = "PARTIALLY_REFUNDED"
	PaymentStatusRefunded             = "REFUNDED"
)

// Fulfilment status lifecycle.
const (
	FulfilmentStatusNew        = "NEW"
	FulfilmentStatusProcessing = "PROCESSING"
	FulfilmentStatusShipped    = "SHIPPED"
	FulfilmentStatusCompleted  = "COMPLETED"
	FulfilmentStatusCancelled  = "CANCELLED"
)

// Refund status derived from confirmed refund totals.
const (
	RefundStatusNone    = "NONE"
	RefundStatusPartial = "PARTIAL_REFUND"
	RefundStatusFull    = "FULL_REFUND"
)

// Order is created once at checkout and mutated only through the order
// state machine. Monetary fields are integer minor units (cents).
// Invariant: TotalAmount = ItemsSubtotal + ShippingFee - DiscountAmount, >= 0.
type Order struct {
	ID             uint   `gorm:"primaryKey" json:"id"`
	OrderCode      string `gorm:"type:varchar(40);uniqueIndex;not null" json:"order_code"`
	UserID         *uint  `gorm:"index" json:"user_id,omitempty"`
	CustomerName   string `gorm:"type:varchar(150);not null" json:"customer_name" validate:"required,max=150"`
	Phone          string `gorm:"type:varchar(40)" json:"phone" validate:"max=40"`
	Email          string `gorm:"type:varchar(200)" json:"email" validate:"omitempty,email,max=200"`
	Address        string `gorm:"type:text" json:"address"`
	DeliveryState  string `gorm:"type:varchar(80)" json:"delivery_state"`
	DeliveryCity   string `gorm:"type:varchar(120)" json:"delivery_city"`
	DeliveryPost   string `gorm:"type:varchar(10);column:delivery_postcode" json:"delivery_postcode"`
	PaymentMethod  string `gorm:"type:varchar(30);not null;index" json:"payment_method" validate:"oneof=ONLINE OFFLINE_TRANSFER"`
	PaymentStatus  string `gorm:"type:varchar(30);not null;default:'PENDING';index" json:"payment_status"`
	FulfilStatus   string `gorm:"type:varchar(30);not null;default:'NEW';column:fulfilment_status;index" json:"fulfilment_status"`
	RefundStatus   string `gorm:"type:varchar(30);not null;default:'NONE'" json:"refund_status"`
	PaymentChannel string `gorm:"type:varchar(60);default:''" json:"payment_channel"`
	ItemsSubtotal  int64  `gorm:"not null" json:"items_subtotal" validate:"gte=0"`
	DiscountAmount int64  `gorm:"not null;default:0" json:"discount_amount" validate:"gte=0"`
	ShippingFee    int64  `gorm:"not null;default:0" json:"shipping_fee" validate:"gte=0"`
	TotalAmount    int64  `gorm:"not null" json:"total_amount" validate:"gte=0"`

	Items         []OrderItem          `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE" json:"items,omitempty"`
	Promo         *OrderPromo          `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE" json:"promo,omitempty"`
	StatusHistory []OrderStatusHistory `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE" json:"-"`

	CreatedAt time.Time `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (o *Order) Validate() error {
	v := validator.New()
	return v.Struct(o)
}

// Ref is the order reference sent to the payment gateway and shown to
// customers. Falls back to the numeric id when the code is missing.
func (o *Order) Ref() string {
	if o.OrderCode != "" {
		return o.OrderCode
	}
	return strconv.FormatUint(uint64(o.ID), 10)
}
