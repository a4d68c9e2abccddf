package orders

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/khairulanwar/PasarBox/app/models"
)

// PlaceOrderInput is the checkout snapshot handed to the order service by
// the web layer: cart lines already priced, shipping quoted, promo
// resolved. The service only enforces the money invariant and persists
// everything atomically.
type PlaceOrderInput struct {
	UserID        *uint
	CustomerName  string
	Phone         string
	Email         string
	Address       string
	DeliveryState string
	DeliveryCity  string
	DeliveryPost  string
	PaymentMethod string
	Lines         []PlaceOrderLine
	ShippingFee   int64
	Promo         *models.OrderPromo
}

// PlaceOrderLine is one priced cart line.
type PlaceOrderLine struct {
	ProductID   uint
	ProductName string
	UnitPrice   int64
	Quantity    int
}

// ErrEmptyOrder is returned when no valid lines remain after filtering.
var ErrEmptyOrder = errors.New("orders: cart is empty")

// PlaceOrder creates an order with its line items and promo redemption in
// one transaction. Totals always satisfy
// total = subtotal + shipping - discount >= 0.
func (s *Service) PlaceOrder(in PlaceOrderInput) (*models.Order, error) {
	var subtotal int64
	items := make([]models.OrderItem, 0, len(in.Lines))
	for _, line := range in.Lines {
		if line.Quantity <= 0 || line.UnitPrice < 0 {
			continue
		}
		lineSubtotal := line.UnitPrice * int64(line.Quantity)
		items = append(items, models.OrderItem{
			ProductID:     line.ProductID,
			ProductName:   line.ProductName,
			PriceSnapshot: line.UnitPrice,
			Quantity:      line.Quantity,
			Subtotal:      lineSubtotal,
		})
		subtotal += lineSubtotal
	}
	if len(items) == 0 {
		return nil, ErrEmptyOrder
	}

	var discount int64
	if in.Promo != nil {
		discount = in.Promo.DiscountAmount
	}
	total := subtotal + in.ShippingFee - discount
	if total < 0 {
		total = 0
	}

	paymentStatus := models.PaymentStatusPending
	if in.PaymentMethod == models.PaymentMethodOfflineTransfer {
		paymentStatus = models.PaymentStatusAwaitingVerification
	}

	order := &models.Order{
		OrderCode:      newOrderCode(),
		UserID:         in.UserID,
		CustomerName:   strings.TrimSpace(in.CustomerName),
		Phone:          strings.TrimSpace(in.Phone),
		Email:          strings.TrimSpace(in.Email),
		Address:        strings.TrimSpace(in.Address),
		DeliveryState:  in.DeliveryState,
		DeliveryCity:   in.DeliveryCity,
		DeliveryPost:   in.DeliveryPost,
		PaymentMethod:  in.PaymentMethod,
		PaymentStatus:  paymentStatus,
		FulfilStatus:   models.FulfilmentStatusNew,
		RefundStatus:   models.RefundStatusNone,
		ItemsSubtotal:  subtotal,
		DiscountAmount: discount,
		ShippingFee:    in.ShippingFee,
		TotalAmount:    total,
		Items:          items,
	}
	if err := order.Validate(); err != nil {
		return nil, err
	}

	err := s.repo.Transaction(func(tx Repository) error {
		if err := tx.Create(order); err != nil {
			return err
		}
		if in.Promo != nil {
			promo := *in.Promo
			promo.OrderID = order.ID
			if err := tx.CreatePromo(&promo); err != nil {
				return err
			}
		}
		return tx.CreateNotification(&models.AdminNotification{
			Type:  models.NotificationTypeOrderCreated,
			Title: fmt.Sprintf("New order %s", order.Ref()),
			Body: fmt.Sprintf("%s • %s • Payment: %s • Fulfilment: %s • RM %d.%02d",
				order.CustomerName, order.PaymentMethod, order.PaymentStatus, order.FulfilStatus,
				order.TotalAmount/100, order.TotalAmount%100),
			Link: fmt.Sprintf("/admin/orders/%d", order.ID),
		})
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

func newOrderCode() string {
	return fmt.Sprintf("PB-%s-%s", time.Now().UTC().Format("20060102"), strings.ToUpper(uuid.NewString()[:8]))
}
