package refund

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	fiberlog "github.com/gofiber/fiber/v2/log"
	"github.com/google/uuid"
	"github.com/khairulanwar/PasarBox/app/models"
	"github.com/khairulanwar/PasarBox/internal/pkg/fiuu"
	"github.com/khairulanwar/PasarBox/internal/pkg/orders"
	"github.com/khairulanwar/PasarBox/internal/pkg/payment"
	"gorm.io/gorm"
)

// Validation failures are typed so the admin UI can show an explicit
// rejection; amounts and quantities are never silently clamped.
var (
	ErrOrderNotFound        = errors.New("refund: order not found")
	ErrItemNotFound         = errors.New("refund: order item not found")
	ErrWrongPaymentMethod   = errors.New("refund: refunds are only supported for ONLINE payment orders")
	ErrFPXNotRefundable     = errors.New("refund: FPX payments cannot be refunded through the gateway; record a manual refund instead")
	ErrOrderNotPaid         = errors.New("refund: order must be PAID before refunding")
	ErrInvalidQuantity      = errors.New("refund: refund quantity must be positive")
	ErrQuantityExceeds      = errors.New("refund: refund quantity exceeds remaining refundable quantity")
	ErrAmountExceeds        = errors.New("refund: refund amount exceeds remaining refundable amount")
	ErrAmountRequired       = errors.New("refund: refund amount is required")
	ErrMissingTxnID         = errors.New("refund: no verified gateway transaction id for this order")
)

// Gateway abstracts the refund API client for tests.
type Gateway interface {
	RefundPartial(ctx context.Context, req fiuu.RefundRequest) (*fiuu.RefundResult, error)
}

// Service orchestrates refund validation, the gateway call and the
// append-only refund ledger.
type Service struct {
	repo    Repository
	orders  orders.Repository
	ledger  *payment.Ledger
	gateway Gateway
	cfg     fiuu.Config
	baseURL string
}

func NewService(repo Repository, ordersRepo orders.Repository, ledger *payment.Ledger, gateway Gateway, cfg fiuu.Config, baseURL string) *Service {
	return &Service{
		repo:    repo,
		orders:  ordersRepo,
		ledger:  ledger,
		gateway: gateway,
		cfg:     cfg,
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

// NewServiceFromDB wires a refund service with GORM-backed repositories
// and the real gateway client.
func NewServiceFromDB(db *gorm.DB, cfg fiuu.Config, baseURL string) *Service {
	return NewService(
		NewRepository(db),
		orders.NewRepository(db),
		payment.NewLedger(payment.NewRepository(db)),
		fiuu.NewClient(cfg),
		cfg,
		baseURL,
	)
}

// ItemRefundInput requests a refund for qty units of one order line.
// Amount nil means "use the computed default".
type ItemRefundInput struct {
	OrderID     uint
	OrderItemID uint
	Quantity    int
	Amount      *int64
	Reason      string
}

// ExtraRefundInput requests a non-itemized refund (e.g. shipping credit).
type ExtraRefundInput struct {
	OrderID uint
	Amount  int64
	Reason  string
}

// Outcome reports the persisted row and refreshed order refund state.
type Outcome struct {
	ItemRefund  *models.OrderItemRefund
	OrderRefund *models.OrderRefund
	Status      *StatusSummary
	Gateway     *fiuu.RefundResult
}

// StatusSummary is the recomputed refund state of an order.
type StatusSummary struct {
	RefundStatus   string
	RefundedAmount int64
}

func isFPXOnline(order *models.Order) bool {
	if order.PaymentMethod != models.PaymentMethodOnline {
		return false
	}
	ch := strings.TrimSpace(order.PaymentChannel)
	return len(ch) >= 3 && strings.EqualFold(ch[:3], "FPX")
}

func refundableState(status string) bool {
	switch status {
	case models.PaymentStatusPaid, models.PaymentStatusPartiallyRefunded, models.PaymentStatusRefunded:
		return true
	}
	return false
}

type preparedRefund struct {
	order  *models.Order
	item   *models.OrderItem
	qty    int
	amount int64
	reason string
	txnID  string
	refID  string
}

func (s *Service) validateOrderForRefund(orderID uint) (*models.Order, error) {
	order, err := s.orders.GetWithItems(orderID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}
	if order.PaymentMethod != models.PaymentMethodOnline {
		return nil, ErrWrongPaymentMethod
	}
	if isFPXOnline(order) {
		fiberlog.Warnf("refund blocked for FPX order %d (channel %s)", order.ID, order.PaymentChannel)
		return nil, ErrFPXNotRefundable
	}
	if !refundableState(order.PaymentStatus) {
		return nil, ErrOrderNotPaid
	}
	if !s.cfg.IsRefundConfigured() {
		return nil, fiuu.ErrNotConfigured
	}
	return order, nil
}

func (s *Service) latestTxnID(orderID uint) (string, error) {
	txnID, err := s.ledger.LatestVerifiedTxnID(orderID, models.PaymentProviderFiuu)
	if err != nil {
		return "", err
	}
	if txnID == "" {
		return "", ErrMissingTxnID
	}
	return txnID, nil
}

func newRefID(prefix string, order *models.Order, itemID uint) string {
	suffix := strings.ToUpper(uuid.NewString()[:8])
	var ref string
	if itemID > 0 {
		ref = fmt.Sprintf("%s-%s-%d-%s", prefix, order.Ref(), itemID, suffix)
	} else {
		ref = fmt.Sprintf("%s-%s-%s", prefix, order.Ref(), suffix)
	}
	if len(ref) > 100 {
		ref = ref[:100]
	}
	return ref
}

// RefundOrderItem validates, calls the gateway and records the refund as
// PENDING. Completion arrives later through the refund notify callback.
// A gateway failure persists a FAILED row for audit and propagates.
func (s *Service) RefundOrderItem(ctx context.Context, in ItemRefundInput) (*Outcome, error) {
	order, err := s.validateOrderForRefund(in.OrderID)
	if err != nil {
		return nil, err
	}

	var item *models.OrderItem
	for i := range order.Items {
		if order.Items[i].ID == in.OrderItemID {
			item = &order.Items[i]
			break
		}
	}
	if item == nil {
		return nil, ErrItemNotFound
	}
	if in.Quantity <= 0 {
		return nil, ErrInvalidQuantity
	}

	itemSummary, err := s.repo.ItemRefundSummaryInFlight(item.ID)
	if err != nil {
		return nil, err
	}
	remainingQty := item.Quantity - itemSummary.Quantity
	if remainingQty < 0 {
		remainingQty = 0
	}
	if in.Quantity > remainingQty {
		return nil, ErrQuantityExceeds
	}

	promo, err := s.promoForOrder(order.ID)
	if err != nil {
		return nil, err
	}

	amount := DefaultRefundAmount(order, promo, item, in.Quantity)
	if in.Amount != nil && *in.Amount >= 0 {
		amount = *in.Amount
	}

	maxForLine := DefaultRefundAmount(order, promo, item, item.Quantity)
	remainingAmount := maxForLine - itemSummary.Amount
	if remainingAmount < 0 {
		remainingAmount = 0
	}
	if amount > remainingAmount {
		return nil, ErrAmountExceeds
	}

	txnID, err := s.latestTxnID(order.ID)
	if err != nil {
		return nil, err
	}

	prepared := preparedRefund{
		order:  order,
		item:   item,
		qty:    in.Quantity,
		amount: amount,
		reason: strings.TrimSpace(in.Reason),
		txnID:  txnID,
		refID:  newRefID("refund", order, item.ID),
	}

	// Gateway call happens outside any DB transaction.
	gw, gwErr := s.gateway.RefundPartial(ctx, fiuu.RefundRequest{
		TxnID:       prepared.txnID,
		RefID:       prepared.refID,
		AmountCents: prepared.amount,
		NotifyURL:   s.notifyURL(),
		MDRFlag:     mdrFlagZero(),
	})
	if gwErr != nil {
		s.recordFailedItemRefund(prepared, gwErr)
		return nil, gwErr
	}
	fiberlog.Infof("refund requested: order=%d item=%d amount=%d qty=%d refID=%s",
		order.ID, item.ID, prepared.amount, prepared.qty, prepared.refID)

	var outcome Outcome
	err = s.repo.Transaction(func(tx Repository) error {
		row := &models.OrderItemRefund{
			OrderID:          order.ID,
			OrderItemID:      item.ID,
			ProductID:        item.ProductID,
			QuantityRefunded: prepared.qty,
			AmountRefunded:   prepared.amount,
			Reason:           prepared.reason,
			Provider:         models.PaymentProviderFiuu,
			ProviderRefID:    prepared.refID,
			ProviderTxnID:    prepared.txnID,
			ProviderRefundID: gatewayRefundID(gw),
			// Only the notify callback confirms gateway refunds.
			ProviderStatus:   models.RefundProviderStatusPending,
			ProviderReason:   requestedReason(gw),
			ProviderResponse: gatewayResponseJSON(gw),
		}
		if err := tx.CreateItemRefund(row); err != nil {
			return err
		}
		outcome.ItemRefund = row
		return nil
	})
	if err != nil {
		return nil, err
	}

	status, err := s.RefreshOrderRefundStatus(order.ID)
	if err != nil {
		return nil, err
	}
	outcome.Status = status
	outcome.Gateway = gw
	return &outcome, nil
}

// RefundOrderExtra refunds a non-itemized amount against the whole order,
// validated against total minus all in-flight refunds.
func (s *Service) RefundOrderExtra(ctx context.Context, in ExtraRefundInput) (*Outcome, error) {
	order, err := s.validateOrderForRefund(in.OrderID)
	if err != nil {
		return nil, err
	}
	if in.Amount <= 0 {
		return nil, ErrAmountRequired
	}

	itemsInFlight, err := s.repo.OrderItemRefundsSummaryInFlight(order.ID)
	if err != nil {
		return nil, err
	}
	extraInFlight, err := s.repo.OrderRefundsSummaryInFlight(order.ID)
	if err != nil {
		return nil, err
	}
	remaining := order.TotalAmount - itemsInFlight.Amount - extraInFlight.Amount
	if remaining < 0 {
		remaining = 0
	}
	if in.Amount > remaining {
		return nil, ErrAmountExceeds
	}

	txnID, err := s.latestTxnID(order.ID)
	if err != nil {
		return nil, err
	}

	prepared := preparedRefund{
		order:  order,
		amount: in.Amount,
		reason: strings.TrimSpace(in.Reason),
		txnID:  txnID,
		refID:  newRefID("refund-extra", order, 0),
	}

	gw, gwErr := s.gateway.RefundPartial(ctx, fiuu.RefundRequest{
		TxnID:       prepared.txnID,
		RefID:       prepared.refID,
		AmountCents: prepared.amount,
		NotifyURL:   s.notifyURL(),
		MDRFlag:     mdrFlagZero(),
	})
	if gwErr != nil {
		s.recordFailedOrderRefund(prepared, gwErr)
		return nil, gwErr
	}

	var outcome Outcome
	err = s.repo.Transaction(func(tx Repository) error {
		row := &models.OrderRefund{
			OrderID:          order.ID,
			AmountRefunded:   prepared.amount,
			Reason:           prepared.reason,
			Provider:         models.PaymentProviderFiuu,
			ProviderRefID:    prepared.refID,
			ProviderTxnID:    prepared.txnID,
			ProviderRefundID: gatewayRefundID(gw),
			ProviderStatus:   models.RefundProviderStatusPending,
			ProviderReason:   requestedReason(gw),
			ProviderResponse: gatewayResponseJSON(gw),
		}
		if err := tx.CreateOrderRefund(row); err != nil {
			return err
		}
		outcome.OrderRefund = row
		return nil
	})
	if err != nil {
		return nil, err
	}

	status, err := s.RefreshOrderRefundStatus(order.ID)
	if err != nil {
		return nil, err
	}
	outcome.Status = status
	outcome.Gateway = gw
	return &outcome, nil
}

// RefreshOrderRefundStatus recomputes refund_status from confirmed refund
// sums and aligns payment_status with refund progress. Idempotent and safe
// to call redundantly; it runs after every confirmed notification.
func (s *Service) RefreshOrderRefundStatus(orderID uint) (*StatusSummary, error) {
	order, err := s.orders.GetWithItems(orderID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}

	itemsConfirmed, err := s.repo.OrderItemRefundsSummaryConfirmed(orderID)
	if err != nil {
		return nil, err
	}
	extraConfirmed, err := s.repo.OrderRefundsSummaryConfirmed(orderID)
	if err != nil {
		return nil, err
	}
	refunded := itemsConfirmed.Amount + extraConfirmed.Amount

	status := models.RefundStatusNone
	if refunded > 0 {
		status = models.RefundStatusPartial
	}
	if refunded > 0 && refunded >= order.TotalAmount {
		status = models.RefundStatusFull
	}

	if err := s.orders.SetRefundStatus(orderID, status); err != nil {
		return nil, err
	}

	if order.TotalAmount > 0 {
		svc := orders.NewService(s.orders)
		switch status {
		case models.RefundStatusFull:
			if order.PaymentStatus != models.PaymentStatusRefunded {
				if err := svc.UpdatePaymentStatus(orderID, models.PaymentStatusRefunded, "Order fully refunded"); err != nil {
					return nil, err
				}
			}
		case models.RefundStatusPartial:
			if order.PaymentStatus != models.PaymentStatusPartiallyRefunded {
				if err := svc.UpdatePaymentStatus(orderID, models.PaymentStatusPartiallyRefunded, "Order partially refunded"); err != nil {
					return nil, err
				}
			}
		}
	}

	return &StatusSummary{RefundStatus: status, RefundedAmount: refunded}, nil
}

// ApplyGatewayNotify applies an async refund notification: locate the row
// by RefID (item table first, then whole-order), fall back to RefundID,
// update the provider fields and refresh the order's refund status.
// Replays are harmless; field updates are fill-if-empty.
func (s *Service) ApplyGatewayNotify(update GatewayUpdate) error {
	update.Provider = models.PaymentProviderFiuu

	var orderID uint
	if update.ProviderRefID != "" {
		if row, err := s.repo.UpdateItemRefundByRefID(update.ProviderRefID, update); err != nil {
			return err
		} else if row != nil {
			orderID = row.OrderID
		}
		if orderID == 0 {
			if row, err := s.repo.UpdateOrderRefundByRefID(update.ProviderRefID, update); err != nil {
				return err
			} else if row != nil {
				orderID = row.OrderID
			}
		}
	}
	if orderID == 0 && update.ProviderRefundID != "" {
		if row, err := s.repo.UpdateItemRefundByRefundID(update.ProviderRefundID, update); err != nil {
			return err
		} else if row != nil {
			orderID = row.OrderID
		}
		if orderID == 0 {
			if row, err := s.repo.UpdateOrderRefundByRefundID(update.ProviderRefundID, update); err != nil {
				return err
			} else if row != nil {
				orderID = row.OrderID
			}
		}
	}

	if orderID == 0 {
		fiberlog.Warnf("refund notify matched no refund row (refID=%s refundID=%s)", update.ProviderRefID, update.ProviderRefundID)
		return nil
	}

	_, err := s.RefreshOrderRefundStatus(orderID)
	return err
}

func (s *Service) promoForOrder(orderID uint) (*models.OrderPromo, error) {
	promo, err := s.orders.GetPromo(orderID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return promo, nil
}

func (s *Service) notifyURL() string {
	if s.baseURL == "" {
		return ""
	}
	return s.baseURL + "/payment/refund/notify"
}

func (s *Service) recordFailedItemRefund(prepared preparedRefund, gwErr error) {
	fiberlog.Errorf("refund request failed: order=%d item=%d amount=%d: %v",
		prepared.order.ID, prepared.item.ID, prepared.amount, gwErr)
	row := &models.OrderItemRefund{
		OrderID:          prepared.order.ID,
		OrderItemID:      prepared.item.ID,
		ProductID:        prepared.item.ProductID,
		QuantityRefunded: prepared.qty,
		AmountRefunded:   prepared.amount,
		Reason:           prepared.reason,
		Provider:         models.PaymentProviderFiuu,
		ProviderRefID:    prepared.refID,
		ProviderTxnID:    prepared.txnID,
		ProviderStatus:   models.RefundProviderStatusFailed,
		ProviderReason:   gwErr.Error(),
		ProviderResponse: failureJSON(gwErr),
	}
	if err := s.repo.CreateItemRefund(row); err != nil {
		fiberlog.Errorf("failed to record failed refund attempt for order %d: %v", prepared.order.ID, err)
	}
}

func (s *Service) recordFailedOrderRefund(prepared preparedRefund, gwErr error) {
	fiberlog.Errorf("extra refund request failed: order=%d amount=%d: %v",
		prepared.order.ID, prepared.amount, gwErr)
	row := &models.OrderRefund{
		OrderID:          prepared.order.ID,
		AmountRefunded:   prepared.amount,
		Reason:           prepared.reason,
		Provider:         models.PaymentProviderFiuu,
		ProviderRefID:    prepared.refID,
		ProviderTxnID:    prepared.txnID,
		ProviderStatus:   models.RefundProviderStatusFailed,
		ProviderReason:   gwErr.Error(),
		ProviderResponse: failureJSON(gwErr),
	}
	if err := s.repo.CreateOrderRefund(row); err != nil {
		fiberlog.Errorf("failed to record failed refund attempt for order %d: %v", prepared.order.ID, err)
	}
}

func mdrFlagZero() *int {
	zero := 0
	return &zero
}

func gatewayRefundID(gw *fiuu.RefundResult) string {
	if gw == nil {
		return ""
	}
	for _, k := range []string{"RefundID", "refundID", "refundId"} {
		if v, ok := gw.Response[k]; ok && v != nil {
			return strings.TrimSpace(fmt.Sprintf("%v", v))
		}
	}
	return ""
}

func requestedReason(gw *fiuu.RefundResult) string {
	if gw != nil {
		for _, k := range []string{"reason", "Reason"} {
			if v, ok := gw.Response[k]; ok && v != nil {
				if s := strings.TrimSpace(fmt.Sprintf("%v", v)); s != "" {
					return s
				}
			}
		}
		for _, k := range []string{"Status", "status"} {
			if v, ok := gw.Response[k]; ok && v != nil {
				return fmt.Sprintf("Requested (API status=%v)", v)
			}
		}
	}
	return "Requested"
}

func gatewayResponseJSON(gw *fiuu.RefundResult) string {
	if gw == nil {
		return ""
	}
	payload := make(map[string]any, len(gw.Response)+1)
	for k, v := range gw.Response {
		payload[k] = v
	}
	if gw.SignatureOK != nil {
		payload["_initial_request_signature_ok"] = *gw.SignatureOK
	}
	b, _ := json.Marshal(payload)
	return string(b)
}

func failureJSON(gwErr error) string {
	payload := map[string]any{"message": gwErr.Error()}
	var ge *fiuu.GatewayError
	if errors.As(gwErr, &ge) {
		payload["error_code"] = ge.Code
		payload["error_desc"] = ge.Desc
		payload["http_status"] = ge.HTTPStatus
	}
	b, _ := json.Marshal(payload)
	return string(b)
}
