package orders

import (
	"github.com/khairulanwar/PasarBox/app/models"
	"gorm.io/gorm"
)

// Repository provides DB operations used by the order service. Transaction
// returns a Repository bound to the transaction so multi-step mutations
// (stock decrement + status change, order creation with line items) commit
// atomically.
type Repository interface {
	Transaction(fn func(Repository) error) error

	GetWithItems(orderID uint) (*models.Order, error)
	GetByCode(code string) (*models.Order, error)
	GetPromo(orderID uint) (*models.OrderPromo, error)
	Create(order *models.Order) error
	CreatePromo(promo *models.OrderPromo) error

	SetPaymentStatus(orderID uint, status string) error
	SetFulfilmentStatus(orderID uint, status string) error
	SetRefundStatus(orderID uint, status string) error
	SetPaymentChannel(orderID uint, channel string) error
	AppendStatusHistory(row *models.OrderStatusHistory) error

	DeductStock(productID uint, qty int) (bool, error)
	RestoreStock(productID uint, qty int) error
	GetProduct(productID uint) (*models.Product, error)

	CreateNotification(n *models.AdminNotification) error
}

type gormRepository struct {
	db *gorm.DB
}

// NewRepository creates an order repository backed by GORM.
func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) Transaction(fn func(Repository) error) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		return fn(&gormRepository{db: tx})
	})
}

func (r *gormRepository) GetWithItems(orderID uint) (*models.Order, error) {
	var order models.Order
	err := r.db.Preload("Items").Preload("Promo").First(&order, orderID).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *gormRepository) GetByCode(code string) (*models.Order, error) {
	var order models.Order
	err := r.db.Preload("Items").Preload("Promo").Where("order_code = ?", code).First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *gormRepository) GetPromo(orderID uint) (*models.OrderPromo, error) {
	var promo models.OrderPromo
	err := r.db.Where("order_id = ?", orderID).First(&promo).Error
	if err != nil {
		return nil, err
	}
	return &promo, nil
}

func (r *gormRepository) Create(order *models.Order) error {
	return r.db.Create(order).Error
}

func (r *gormRepository) CreatePromo(promo *models.OrderPromo) error {
	return r.db.Create(promo).Error
}

func (r *gormRepository) SetPaymentStatus(orderID uint, status string) error {
	return r.db.Model(&models.Order{}).Where("id = ?", orderID).
		Update("payment_status", status).Error
}

func (r *gormRepository) SetFulfilmentStatus(orderID uint, status string) error {
	return r.db.Model(&models.Order{}).Where("id = ?", orderID).
		Update("fulfilment_status", status).Error
}

func (r *gormRepository) SetRefundStatus(orderID uint, status string) error {
	return r.db.Model(&models.Order{}).Where("id = ?", orderID).
		Update("refund_status", status).Error
}

func (r *gormRepository) SetPaymentChannel(orderID uint, channel string) error {
	return r.db.Model(&models.Order{}).Where("id = ?", orderID).
		Update("payment_channel", channel).Error
}

func (r *gormRepository) AppendStatusHistory(row *models.OrderStatusHistory) error {
	return r.db.Create(row).Error
}

// DeductStock performs the conditional decrement that carries the whole
// concurrency story: stock can only go down when enough remains, enforced
// by the database, not by application locks.
func (r *gormRepository) DeductStock(productID uint, qty int) (bool, error) {
	tx := r.db.Model(&models.Product{}).
		Where("id = ? AND stock >= ? AND archived = ?", productID, qty, false).
		Update("stock", gorm.Expr("stock - ?", qty))
	if tx.Error != nil {
		return false, tx.Error
	}
	return tx.RowsAffected == 1, nil
}

// RestoreStock reverses a decrement when a later line of the same order
// fails its conditional update.
func (r *gormRepository) RestoreStock(productID uint, qty int) error {
	return r.db.Model(&models.Product{}).Where("id = ?", productID).
		Update("stock", gorm.Expr("stock + ?", qty)).Error
}

func (r *gormRepository) GetProduct(productID uint) (*models.Product, error) {
	var p models.Product
	if err := r.db.First(&p, productID).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *gormRepository) CreateNotification(n *models.AdminNotification) error {
	return r.db.Create(n).Error
}
