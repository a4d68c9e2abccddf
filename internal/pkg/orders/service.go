// Package orders owns the order payment/fulfilment state machine and the
// stock ledger tied to payment confirmation.
package orders

import (
	"errors"
	"fmt"
	"strings"

	fiberlog "github.com/gofiber/fiber/v2/log"
	"github.com/khairulanwar/PasarBox/app/models"
	"gorm.io/gorm"
)

// ErrOrderNotFound is returned when an order id or code resolves nothing.
var ErrOrderNotFound = errors.New("orders: order not found")

// StockInsufficientError reports a conditional decrement that failed at
// payment confirmation time. The payment itself is never rejected for it.
type StockInsufficientError struct {
	ProductName string
}

func (e *StockInsufficientError) Error() string {
	return fmt.Sprintf("orders: insufficient stock for %s", e.ProductName)
}

// Service drives all order status mutations. Every change appends an
// immutable history row, so nothing else may write the status columns.
type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// NewServiceFromDB creates an order service from a GORM DB handle.
func NewServiceFromDB(db *gorm.DB) *Service {
	return NewService(NewRepository(db))
}

// Repo exposes the underlying repository for collaborating services that
// share its transactions.
func (s *Service) Repo() Repository {
	return s.repo
}

// ResolveRef loads an order by numeric id or order code.
func (s *Service) ResolveRef(ref string) (*models.Order, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil, ErrOrderNotFound
	}
	var (
		order *models.Order
		err   error
	)
	if isDigits(ref) {
		var id uint64
		fmt.Sscanf(ref, "%d", &id)
		order, err = s.repo.GetWithItems(uint(id))
	} else {
		order, err = s.repo.GetByCode(ref)
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrOrderNotFound
	}
	return order, err
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}

// UpdatePaymentStatus transitions payment_status with history. No-op when
// the status is unchanged.
func (s *Service) UpdatePaymentStatus(orderID uint, newStatus, note string) error {
	return updateStatus(s.repo, orderID, models.StatusTypePayment, newStatus, note)
}

// UpdateFulfilmentStatus transitions fulfilment_status with history.
func (s *Service) UpdateFulfilmentStatus(orderID uint, newStatus, note string) error {
	return updateStatus(s.repo, orderID, models.StatusTypeFulfilment, newStatus, note)
}

// UpdatePaymentChannel persists the gateway-reported sub-channel.
func (s *Service) UpdatePaymentChannel(orderID uint, channel string) error {
	return s.repo.SetPaymentChannel(orderID, channel)
}

func updateStatus(repo Repository, orderID uint, statusType, newStatus, note string) error {
	return repo.Transaction(func(tx Repository) error {
		order, err := tx.GetWithItems(orderID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrOrderNotFound
		}
		if err != nil {
			return err
		}

		current := order.PaymentStatus
		set := tx.SetPaymentStatus
		if statusType == models.StatusTypeFulfilment {
			current = order.FulfilStatus
			set = tx.SetFulfilmentStatus
		}
		if current == newStatus {
			return nil
		}
		if err := set(orderID, newStatus); err != nil {
			return err
		}
		return tx.AppendStatusHistory(&models.OrderStatusHistory{
			OrderID:    orderID,
			StatusType: statusType,
			OldStatus:  current,
			NewStatus:  newStatus,
			Note:       note,
		})
	})
}

// PaidResult reports what happened during payment confirmation.
type PaidResult struct {
	Order         *models.Order
	AlreadyPaid   bool
	StockDeducted bool
	StockError    string
}

// MarkPaidAndDeductStock marks an order PAID and decrements stock for each
// line inside one transaction. Idempotent: an already-PAID order returns
// immediately without touching stock.
//
// When any line fails the conditional decrement the payment is NOT rolled
// back: the gateway has already moved money, so the order stays PAID with
// an annotation, fulfilment is cancelled, and the shortfall is recorded
// for manual resolution. Inventory truth is advisory; payment truth wins.
func (s *Service) MarkPaidAndDeductStock(orderID uint, note string) (*PaidResult, error) {
	var result PaidResult
	err := s.repo.Transaction(func(tx Repository) error {
		order, err := tx.GetWithItems(orderID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrOrderNotFound
		}
		if err != nil {
			return err
		}

		if order.PaymentStatus == models.PaymentStatusPaid {
			result = PaidResult{Order: order, AlreadyPaid: true}
			return nil
		}

		if note == "" {
			note = "Payment confirmed"
		}

		stockErr := deductStockForOrder(tx, order)
		if stockErr == nil {
			if err := setStatusInTx(tx, order, models.StatusTypePayment, models.PaymentStatusPaid, note); err != nil {
				return err
			}
			if err := setStatusInTx(tx, order, models.StatusTypeFulfilment, models.FulfilmentStatusProcessing, "Paid; ready to fulfil"); err != nil {
				return err
			}
			result = PaidResult{Order: order, StockDeducted: true}
			return nil
		}

		var insufficient *StockInsufficientError
		if !errors.As(stockErr, &insufficient) {
			return stockErr
		}

		if err := setStatusInTx(tx, order, models.StatusTypePayment, models.PaymentStatusPaid, note+" (stock insufficient)"); err != nil {
			return err
		}
		if err := setStatusInTx(tx, order, models.StatusTypeFulfilment, models.FulfilmentStatusCancelled,
			"Payment succeeded but stock insufficient. Manual refund/adjustment required."); err != nil {
			return err
		}
		if err := tx.CreateNotification(&models.AdminNotification{
			Type:  models.NotificationTypeStockShortfall,
			Title: fmt.Sprintf("Stock shortfall on paid order %s", order.Ref()),
			Body:  insufficient.Error(),
			Link:  fmt.Sprintf("/admin/orders/%d", order.ID),
		}); err != nil {
			return err
		}
		result = PaidResult{Order: order, StockError: insufficient.Error()}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if result.StockError != "" {
		fiberlog.Warnf("order %d paid with stock shortfall: %s", orderID, result.StockError)
	}
	return &result, nil
}

// deductStockForOrder runs the conditional decrement per line. The SQL
// condition (stock >= qty) is the only concurrency control; a zero-row
// update means another confirmation got there first or stock ran out.
// A shortfall reverses the decrements already made, so a cancelled order
// never consumes inventory.
func deductStockForOrder(tx Repository, order *models.Order) error {
	for i, item := range order.Items {
		ok, err := tx.DeductStock(item.ProductID, item.Quantity)
		if err != nil {
			return err
		}
		if !ok {
			for _, done := range order.Items[:i] {
				if rerr := tx.RestoreStock(done.ProductID, done.Quantity); rerr != nil {
					return rerr
				}
			}
			name := item.ProductName
			if p, err := tx.GetProduct(item.ProductID); err == nil && p != nil {
				name = p.Name
			}
			return &StockInsufficientError{ProductName: name}
		}
	}
	return nil
}

func setStatusInTx(tx Repository, order *models.Order, statusType, newStatus, note string) error {
	current := order.PaymentStatus
	set := tx.SetPaymentStatus
	if statusType == models.StatusTypeFulfilment {
		current = order.FulfilStatus
		set = tx.SetFulfilmentStatus
	}
	if current == newStatus {
		return nil
	}
	if err := set(order.ID, newStatus); err != nil {
		return err
	}
	if statusType == models.StatusTypeFulfilment {
		order.FulfilStatus = newStatus
	} else {
		order.PaymentStatus = newStatus
	}
	return tx.AppendStatusHistory(&models.OrderStatusHistory{
		OrderID:    order.ID,
		StatusType: statusType,
		OldStatus:  current,
		NewStatus:  newStatus,
		Note:       note,
	})
}
