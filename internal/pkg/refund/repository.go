package refund

import (
	"errors"

	"github.com/khairulanwar/PasarBox/app/models"
	"gorm.io/gorm"
)

// Summary aggregates refund rows for ceiling checks and status refresh.
type Summary struct {
	Quantity int
	Amount   int64
}

// GatewayUpdate carries the fields a refund notify callback may set.
// Empty strings / nil pointers mean "leave the stored value alone".
type GatewayUpdate struct {
	Provider         string
	ProviderRefID    string
	ProviderRefundID string
	ProviderTxnID    string
	ProviderStatus   string
	ProviderReason   string
	SignatureOk      *bool
	ResponseJSON     string
}

// Refund rows confirmed vs in-flight:
//   - confirmed: non-gateway rows (manual overrides) plus gateway rows whose
//     notify reported success with a valid signature. Only these count
//     against the conservation invariant.
//   - in-flight: confirmed plus still-pending gateway requests. Ceiling
//     checks use this wider set so concurrent pending requests cannot
//     oversubscribe a line.
type Repository interface {
	Transaction(fn func(Repository) error) error

	CreateItemRefund(r *models.OrderItemRefund) error
	CreateOrderRefund(r *models.OrderRefund) error

	ItemRefundSummaryInFlight(orderItemID uint) (Summary, error)
	OrderItemRefundsSummaryInFlight(orderID uint) (Summary, error)
	OrderRefundsSummaryInFlight(orderID uint) (Summary, error)
	OrderItemRefundsSummaryConfirmed(orderID uint) (Summary, error)
	OrderRefundsSummaryConfirmed(orderID uint) (Summary, error)

	UpdateItemRefundByRefID(refID string, update GatewayUpdate) (*models.OrderItemRefund, error)
	UpdateOrderRefundByRefID(refID string, update GatewayUpdate) (*models.OrderRefund, error)
	UpdateItemRefundByRefundID(refundID string, update GatewayUpdate) (*models.OrderItemRefund, error)
	UpdateOrderRefundByRefundID(refundID string, update GatewayUpdate) (*models.OrderRefund, error)
}

type gormRepository struct {
	db *gorm.DB
}

// NewRepository creates a refund repository backed by GORM.
func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) Transaction(fn func(Repository) error) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		return fn(&gormRepository{db: tx})
	})
}

func (r *gormRepository) CreateItemRefund(row *models.OrderItemRefund) error {
	return r.db.Create(row).Error
}

func (r *gormRepository) CreateOrderRefund(row *models.OrderRefund) error {
	return r.db.Create(row).Error
}

const confirmedCond = "(COALESCE(provider,'') <> ? OR (COALESCE(provider_status,'') = ? AND provider_signature_ok = ?))"

const inFlightCond = "(COALESCE(provider,'') <> ? OR COALESCE(provider_status,'') IN ('', ?, ?))"

type sums struct {
	Qty    int
	Amount int64
}

func (r *gormRepository) sumItemRefunds(where string, args ...any) (Summary, error) {
	var s sums
	err := r.db.Model(&models.OrderItemRefund{}).
		Select("COALESCE(SUM(quantity_refunded),0) AS qty, COALESCE(SUM(amount_refunded),0) AS amount").
		Where(where, args...).
		Scan(&s).Error
	return Summary{Quantity: s.Qty, Amount: s.Amount}, err
}

func (r *gormRepository) sumOrderRefunds(where string, args ...any) (Summary, error) {
	var s sums
	err := r.db.Model(&models.OrderRefund{}).
		Select("0 AS qty, COALESCE(SUM(amount_refunded),0) AS amount").
		Where(where, args...).
		Scan(&s).Error
	return Summary{Amount: s.Amount}, err
}

func (r *gormRepository) ItemRefundSummaryInFlight(orderItemID uint) (Summary, error) {
	return r.sumItemRefunds("order_item_id = ? AND "+inFlightCond,
		orderItemID, models.PaymentProviderFiuu, models.RefundProviderStatusPending, models.RefundProviderStatusConfirmed)
}

func (r *gormRepository) OrderItemRefundsSummaryInFlight(orderID uint) (Summary, error) {
	return r.sumItemRefunds("order_id = ? AND "+inFlightCond,
		orderID, models.PaymentProviderFiuu, models.RefundProviderStatusPending, models.RefundProviderStatusConfirmed)
}

func (r *gormRepository) OrderRefundsSummaryInFlight(orderID uint) (Summary, error) {
	return r.sumOrderRefunds("order_id = ? AND "+inFlightCond,
		orderID, models.PaymentProviderFiuu, models.RefundProviderStatusPending, models.RefundProviderStatusConfirmed)
}

func (r *gormRepository) OrderItemRefundsSummaryConfirmed(orderID uint) (Summary, error) {
	return r.sumItemRefunds("order_id = ? AND "+confirmedCond,
		orderID, models.PaymentProviderFiuu, models.RefundProviderStatusConfirmed, true)
}

func (r *gormRepository) OrderRefundsSummaryConfirmed(orderID uint) (Summary, error) {
	return r.sumOrderRefunds("order_id = ? AND "+confirmedCond,
		orderID, models.PaymentProviderFiuu, models.RefundProviderStatusConfirmed, true)
}

// notify updates only fill fields the row does not already have (COALESCE
// semantics), so replayed notifications are harmless.
func gatewayUpdateColumns(update GatewayUpdate) map[string]any {
	cols := map[string]any{}
	if update.ProviderRefID != "" {
		cols["provider_ref_id"] = gorm.Expr("COALESCE(NULLIF(provider_ref_id,''), ?)", update.ProviderRefID)
	}
	if update.ProviderRefundID != "" {
		cols["provider_refund_id"] = gorm.Expr("COALESCE(NULLIF(provider_refund_id,''), ?)", update.ProviderRefundID)
	}
	if update.ProviderTxnID != "" {
		cols["provider_txn_id"] = gorm.Expr("COALESCE(NULLIF(provider_txn_id,''), ?)", update.ProviderTxnID)
	}
	if update.ProviderStatus != "" {
		cols["provider_status"] = update.ProviderStatus
	}
	if update.ProviderReason != "" {
		cols["provider_reason"] = update.ProviderReason
	}
	if update.SignatureOk != nil {
		cols["provider_signature_ok"] = *update.SignatureOk
	}
	if update.ResponseJSON != "" {
		cols["provider_response_json"] = update.ResponseJSON
	}
	return cols
}

func (r *gormRepository) UpdateItemRefundByRefID(refID string, update GatewayUpdate) (*models.OrderItemRefund, error) {
	tx := r.db.Model(&models.OrderItemRefund{}).
		Where("provider = ? AND provider_ref_id = ?", update.Provider, refID).
		Updates(gatewayUpdateColumns(update))
	if tx.Error != nil || tx.RowsAffected == 0 {
		return nil, tx.Error
	}
	var row models.OrderItemRefund
	err := r.db.Where("provider = ? AND provider_ref_id = ?", update.Provider, refID).
		Order("id DESC").First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &row, err
}

func (r *gormRepository) UpdateOrderRefundByRefID(refID string, update GatewayUpdate) (*models.OrderRefund, error) {
	tx := r.db.Model(&models.OrderRefund{}).
		Where("provider = ? AND provider_ref_id = ?", update.Provider, refID).
		Updates(gatewayUpdateColumns(update))
	if tx.Error != nil || tx.RowsAffected == 0 {
		return nil, tx.Error
	}
	var row models.OrderRefund
	err := r.db.Where("provider = ? AND provider_ref_id = ?", update.Provider, refID).
		Order("id DESC").First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &row, err
}

func (r *gormRepository) UpdateItemRefundByRefundID(refundID string, update GatewayUpdate) (*models.OrderItemRefund, error) {
	tx := r.db.Model(&models.OrderItemRefund{}).
		Where("provider = ? AND provider_refund_id = ?", update.Provider, refundID).
		Updates(gatewayUpdateColumns(update))
	if tx.Error != nil || tx.RowsAffected == 0 {
		return nil, tx.Error
	}
	var row models.OrderItemRefund
	err := r.db.Where("provider = ? AND provider_refund_id = ?", update.Provider, refundID).
		Order("id DESC").First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &row, err
}

func (r *gormRepository) UpdateOrderRefundByRefundID(refundID string, update GatewayUpdate) (*models.OrderRefund, error) {
	tx := r.db.Model(&models.OrderRefund{}).
		Where("provider = ? AND provider_refund_id = ?", update.Provider, refundID).
		Updates(gatewayUpdateColumns(update))
	if tx.Error != nil || tx.RowsAffected == 0 {
		return nil, tx.Error
	}
	var row models.OrderRefund
	err := r.db.Where("provider = ? AND provider_refund_id = ?", update.Provider, refundID).
		Order("id DESC").First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &row, err
}
