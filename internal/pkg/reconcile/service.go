// Package reconcile turns verified gateway callbacks into order state. It
// is the only place where signature verification, the payment event ledger
// and the order state machine meet.
package reconcile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	fiberlog "github.com/gofiber/fiber/v2/log"
	"github.com/khairulanwar/PasarBox/app/models"
	"github.com/khairulanwar/PasarBox/internal/pkg/fiuu"
	"github.com/khairulanwar/PasarBox/internal/pkg/orders"
	"github.com/khairulanwar/PasarBox/internal/pkg/payment"
	"github.com/khairulanwar/PasarBox/internal/pkg/refund"
	"gorm.io/gorm"
)

// Rejection reasons for payment callbacks. Signature failures get a 4xx so
// the gateway retries are visible in its dashboard; everything after a
// valid signature is our problem and still gets recorded.
var (
	ErrInvalidSignature   = errors.New("reconcile: invalid callback signature")
	ErrOrderNotFound      = errors.New("reconcile: callback references unknown order")
	ErrWrongPaymentMethod = errors.New("reconcile: order was not placed as an online payment")
	ErrCurrencyMismatch   = errors.New("reconcile: callback currency does not match order currency")
	ErrAmountMismatch     = errors.New("reconcile: callback amount does not match order total")
)

// Service wires the gateway codec to the ledger, the order state machine
// and the refund lifecycle.
type Service struct {
	cfg     fiuu.Config
	ledger  *payment.Ledger
	orders  *orders.Service
	refunds *refund.Service
}

func NewService(cfg fiuu.Config, ledger *payment.Ledger, orderSvc *orders.Service, refundSvc *refund.Service) *Service {
	return &Service{cfg: cfg, ledger: ledger, orders: orderSvc, refunds: refundSvc}
}

// NewServiceFromDB wires a reconcile service with GORM-backed collaborators.
func NewServiceFromDB(db *gorm.DB, cfg fiuu.Config, baseURL string) *Service {
	return NewService(
		cfg,
		payment.NewLedger(payment.NewRepository(db)),
		orders.NewServiceFromDB(db),
		refund.NewServiceFromDB(db, cfg, baseURL),
	)
}

// PaymentOutcome reports what a payment callback did.
type PaymentOutcome struct {
	Order      *models.Order
	StatusCode string
	Duplicate  bool
	Paid       *orders.PaidResult
}

// ProcessPaymentPayload handles a payment confirmation; source tags the
// entry point ("return" or "callback") for the logs, the semantics are
// identical for both.
//
// Order of checks matters: the signature gate comes first so unsigned
// payloads never touch the database, and the ledger insert comes after
// validation but before any state change so replays are cut off in one
// place.
func (s *Service) ProcessPaymentPayload(ctx context.Context, payload fiuu.Payload, source string) (*PaymentOutcome, error) {
	sig := fiuu.VerifySkey(payload, s.cfg.SecretKey, s.cfg)
	if !sig.OK {
		fiberlog.Warnf("payment %s rejected (%s): order=%s tranID=%s attempts=%d expected=%s received=%s",
			source, sig.Reason, payload.OrderRef(), payload.TranID(), sig.Used.Attempts, sig.Expected, sig.Received)
		if sig.Reason == "mismatch" {
			fiberlog.Warnf("payment %s candidate sets: merchants=%v amounts=%v currencies=%v",
				source, sig.Used.MerchantCandidates, sig.Used.AmountCandidates, sig.Used.CurrencyCandidates)
		}
		return nil, ErrInvalidSignature
	}
	fiberlog.Infof("payment %s signature verified for order %s (tranID=%s attempts=%d amount=%q currency=%q)",
		source, payload.OrderRef(), payload.TranID(), sig.Used.Attempts, sig.Used.Amount, sig.Used.Currency)

	order, err := s.orders.ResolveRef(payload.OrderRef())
	if errors.Is(err, orders.ErrOrderNotFound) {
		fiberlog.Warnf("payment callback for unknown order %q (tranID=%s)", payload.OrderRef(), payload.TranID())
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}

	if ch := payload.Channel(); ch != "" && ch != order.PaymentChannel {
		if err := s.orders.UpdatePaymentChannel(order.ID, ch); err != nil {
			return nil, err
		}
		order.PaymentChannel = ch
	}

	if order.PaymentMethod != models.PaymentMethodOnline {
		fiberlog.Warnf("payment callback for non-online order %s (method=%s)", order.Ref(), order.PaymentMethod)
		return nil, ErrWrongPaymentMethod
	}

	if err := s.checkCurrencyAndAmount(order, payload); err != nil {
		return nil, err
	}

	result, err := s.ledger.TryInsert(order.ID, models.PaymentProviderFiuu, payload.TranID(), payload, true)
	if err != nil {
		return nil, err
	}
	outcome := &PaymentOutcome{Order: order, StatusCode: payload.StatusCode()}
	if !result.Inserted {
		fiberlog.Infof("duplicate payment %s for order %s (tranID=%s hash=%s)",
			source, order.Ref(), payload.TranID(), result.PayloadHash)
		outcome.Duplicate = true
		return outcome, nil
	}

	switch fiuu.StatusToPaymentStatus(outcome.StatusCode) {
	case models.PaymentStatusPaid:
		paid, err := s.orders.MarkPaidAndDeductStock(order.ID,
			fmt.Sprintf("Fiuu payment confirmed (tranID=%s, channel=%s)", payload.TranID(), order.PaymentChannel))
		if err != nil {
			return nil, err
		}
		outcome.Paid = paid
		if !paid.AlreadyPaid {
			if err := s.notifyPaid(paid.Order, payload); err != nil {
				return nil, err
			}
		}
	case models.PaymentStatusPending:
		if err := s.orders.UpdatePaymentStatus(order.ID, models.PaymentStatusPending,
			fmt.Sprintf("Fiuu reported pending (status=%s, tranID=%s)", outcome.StatusCode, payload.TranID())); err != nil {
			return nil, err
		}
	default:
		if order.PaymentStatus == models.PaymentStatusPaid {
			// A late failure callback never demotes a confirmed payment.
			fiberlog.Warnf("ignoring failure %s for already-paid order %s (status=%s tranID=%s)",
				source, order.Ref(), outcome.StatusCode, payload.TranID())
			break
		}
		if err := s.orders.UpdatePaymentStatus(order.ID, models.PaymentStatusFailed,
			fmt.Sprintf("Fiuu reported failure (status=%s, tranID=%s)", outcome.StatusCode, payload.TranID())); err != nil {
			return nil, err
		}
		if err := s.orders.UpdateFulfilmentStatus(order.ID, models.FulfilmentStatusCancelled,
			"Payment failed"); err != nil {
			return nil, err
		}
	}
	return outcome, nil
}

// checkCurrencyAndAmount rejects payloads whose money fields disagree with
// the stored order before anything is written.
func (s *Service) checkCurrencyAndAmount(order *models.Order, payload fiuu.Payload) error {
	if cur := payload.Currency(); cur != "" && !equalFoldTrim(cur, s.cfg.Currency) {
		fiberlog.Warnf("payment callback currency mismatch for order %s: got %q want %q", order.Ref(), cur, s.cfg.Currency)
		return ErrCurrencyMismatch
	}
	cents, err := fiuu.ToCents(payload.Amount())
	if err != nil {
		fiberlog.Warnf("payment callback with unparseable amount %q for order %s", payload.Amount(), order.Ref())
		return ErrAmountMismatch
	}
	if cents != order.TotalAmount {
		fiberlog.Warnf("payment callback amount mismatch for order %s: got %d want %d cents",
			order.Ref(), cents, order.TotalAmount)
		return ErrAmountMismatch
	}
	return nil
}

func (s *Service) notifyPaid(order *models.Order, payload fiuu.Payload) error {
	return s.orders.Repo().CreateNotification(&models.AdminNotification{
		Type:  models.NotificationTypePaymentPaid,
		Title: fmt.Sprintf("Payment received for order %s", order.Ref()),
		Body: fmt.Sprintf("RM %d.%02d via %s (tranID=%s)",
			order.TotalAmount/100, order.TotalAmount%100, order.PaymentChannel, payload.TranID()),
		Link: fmt.Sprintf("/admin/orders/%d", order.ID),
	})
}

// RefundNotifyOutcome reports what a refund notification did.
type RefundNotifyOutcome struct {
	SignatureOK bool
	Reason      string
	Applied     bool
}

// ProcessRefundNotify handles the asynchronous refund status callback. It
// always succeeds from the gateway's point of view; a bad signature marks
// the matching refund row instead of dropping the notification, since the
// row's confirmed state requires signature_ok anyway.
func (s *Service) ProcessRefundNotify(payload fiuu.Payload) (*RefundNotifyOutcome, error) {
	sig := fiuu.VerifyRefundSignature(payload, s.cfg.SecretKey)
	if !sig.OK {
		fiberlog.Warnf("refund notify signature check failed (%s): refID=%s refundID=%s",
			sig.Reason, payload.RefID(), payload.RefundID())
	}

	var status string
	switch payload.RefundStatus() {
	case "":
		// No status field: the stored status stays as it is.
	case "00", "success", "SUCCESS":
		status = models.RefundProviderStatusConfirmed
	case "22", "pending", "PENDING":
		status = models.RefundProviderStatusPending
	default:
		status = models.RefundProviderStatusFailed
	}

	responseJSON, _ := json.Marshal(payload)
	sigOK := sig.OK
	update := refund.GatewayUpdate{
		ProviderRefID:    payload.RefID(),
		ProviderRefundID: payload.RefundID(),
		ProviderTxnID:    payload.RefundTxnID(),
		ProviderStatus:   status,
		ProviderReason:   payload.NotifyReason(),
		SignatureOk:      &sigOK,
		ResponseJSON:     string(responseJSON),
	}
	if err := s.refunds.ApplyGatewayNotify(update); err != nil {
		return nil, err
	}
	return &RefundNotifyOutcome{SignatureOK: sig.OK, Reason: sig.Reason, Applied: true}, nil
}

func equalFoldTrim(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}
