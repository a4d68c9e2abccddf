package payment

import (
	"errors"

	"github.com/khairulanwar/PasarBox/app/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository provides DB operations used by the payment event ledger.
type Repository interface {
	CreateEventIfNotExists(event *models.PaymentEvent) (bool, *models.PaymentEvent, error)
	LatestVerifiedTxnID(orderID uint, provider string) (string, error)
}

type gormRepository struct {
	db *gorm.DB
}

// NewRepository creates a payment event repository backed by GORM.
func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) CreateEventIfNotExists(event *models.PaymentEvent) (bool, *models.PaymentEvent, error) {
	tx := r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "provider"},
			{Name: "provider_txn_id"},
			{Name: "payload_hash"},
		},
		DoNothing: true,
	}).Create(event)
	if tx.Error != nil {
		return false, nil, tx.Error
	}

	created := tx.RowsAffected > 0
	var stored models.PaymentEvent
	if err := r.db.
		Where("provider = ? AND provider_txn_id = ? AND payload_hash = ?", event.Provider, event.ProviderTxnID, event.PayloadHash).
		First(&stored).Error; err != nil {
		return false, nil, err
	}
	return created, &stored, nil
}

func (r *gormRepository) LatestVerifiedTxnID(orderID uint, provider string) (string, error) {
	var event models.PaymentEvent
	err := r.db.
		Where("order_id = ? AND provider = ? AND verified = ? AND provider_txn_id <> ''", orderID, provider, true).
		Order("id DESC").
		First(&event).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return event.ProviderTxnID, nil
}
