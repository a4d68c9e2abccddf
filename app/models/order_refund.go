package models

import "time"

// Gateway-reported refund status codes. "00" is the vendor success code;
// MARKED models a manual admin override outside the gateway.
const (
	RefundProviderStatusPending   = "PENDING"
	RefundProviderStatusConfirmed = "00"
	RefundProviderStatusFailed    = "FAILED"
	RefundProviderStatusMarked    = "MARKED"
)

// RefundProvenance classifies a refund row for exhaustive handling instead
// of free-text provider/status comparisons scattered around callers.
type RefundProvenance int

const (
	RefundProvenanceGatewayPending RefundProvenance = iota
	RefundProvenanceGatewayConfirmed
	RefundProvenanceGatewayFailed
	RefundProvenanceManualOverride
)

func classifyRefund(provider, providerStatus string, signatureOk *bool) RefundProvenance {
	if provider != PaymentProviderFiuu {
		return RefundProvenanceManualOverride
	}
	if providerStatus == RefundProviderStatusConfirmed && signatureOk != nil && *signatureOk {
		return RefundProvenanceGatewayConfirmed
	}
	if providerStatus == RefundProviderStatusFailed {
		return RefundProvenanceGatewayFailed
	}
	return RefundProvenanceGatewayPending
}

// Confirmed reports whether the provenance counts against the order's
// conservation invariant. Manual overrides are trusted; gateway refunds
// count only once the async notify validated signature and success status.
func (p RefundProvenance) Confirmed() bool {
	return p == RefundProvenanceGatewayConfirmed || p == RefundProvenanceManualOverride
}

// OrderItemRefund is an append-only refund ledger row scoped to one order
// line. Created when a refund is requested; only the async notify callback
// (or a manual admin override) mutates the provider status fields.
type OrderItemRefund struct {
	ID               uint   `gorm:"primaryKey" json:"id"`
	OrderID          uint   `gorm:"not null;index" json:"order_id"`
	OrderItemID      uint   `gorm:"not null;index" json:"order_item_id"`
	ProductID        uint   `gorm:"not null" json:"product_id"`
	QuantityRefunded int    `gorm:"not null" json:"quantity_refunded"`
	AmountRefunded   int64  `gorm:"not null" json:"amount_refunded"`
	Reason           string `gorm:"type:text" json:"reason"`

	Provider            string `gorm:"type:varchar(20);index:idx_order_item_refunds_ref,priority:1" json:"provider"`
	ProviderRefID       string `gorm:"type:varchar(100);index:idx_order_item_refunds_ref,priority:2" json:"provider_ref_id"`
	ProviderTxnID       string `gorm:"type:varchar(100)" json:"provider_txn_id"`
	ProviderRefundID    string `gorm:"type:varchar(100);index" json:"provider_refund_id"`
	ProviderStatus      string `gorm:"type:varchar(20)" json:"provider_status"`
	ProviderReason      string `gorm:"type:text" json:"provider_reason"`
	ProviderSignatureOk *bool  `json:"provider_signature_ok"`
	ProviderResponse    string `gorm:"type:longtext;column:provider_response_json" json:"-"`

	CreatedAt time.Time `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (r *OrderItemRefund) Provenance() RefundProvenance {
	return classifyRefund(r.Provider, r.ProviderStatus, r.ProviderSignatureOk)
}

// OrderRefund is a non-itemized refund against the whole order, e.g. a
// partial shipping credit. Same provider lifecycle as OrderItemRefund.
type OrderRefund struct {
	ID             uint   `gorm:"primaryKey" json:"id"`
	OrderID        uint   `gorm:"not null;index" json:"order_id"`
	AmountRefunded int64  `gorm:"not null" json:"amount_refunded"`
	Reason         string `gorm:"type:text" json:"reason"`

	Provider            string `gorm:"type:varchar(20);index:idx_order_refunds_ref,priority:1" json:"provider"`
	ProviderRefID       string `gorm:"type:varchar(100);index:idx_order_refunds_ref,priority:2" json:"provider_ref_id"`
	ProviderTxnID       string `gorm:"type:varchar(100)" json:"provider_txn_id"`
	ProviderRefundID    string `gorm:"type:varchar(100);index" json:"provider_refund_id"`
	ProviderStatus      string `gorm:"type:varchar(20)" json:"provider_status"`
	ProviderReason      string `gorm:"type:text" json:"provider_reason"`
	ProviderSignatureOk *bool  `json:"provider_signature_ok"`
	ProviderResponse    string `gorm:"type:longtext;column:provider_response_json" json:"-"`

	CreatedAt time.Time `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (r *OrderRefund) Provenance() RefundProvenance {
	return classifyRefund(r.Provider, r.ProviderStatus, r.ProviderSignatureOk)
}
