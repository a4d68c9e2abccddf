package controllers

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	fiberlog "github.com/gofiber/fiber/v2/log"
	"github.com/khairulanwar/PasarBox/app/models"
	"github.com/khairulanwar/PasarBox/internal/pkg/database"
	"github.com/khairulanwar/PasarBox/internal/pkg/env"
	"github.com/khairulanwar/PasarBox/internal/pkg/fiuu"
	"github.com/khairulanwar/PasarBox/internal/pkg/orders"
	"github.com/khairulanwar/PasarBox/internal/pkg/reconcile"
	"github.com/sujit-baniya/flash"
)

// The gateway acknowledges server callbacks only when the response body is
// exactly this token.
const callbackAckToken = "CBTOKEN:MPSTATOK"

func newReconcileService() *reconcile.Service {
	return reconcile.NewServiceFromDB(database.GetDB(), fiuu.ConfigFromEnv(), appBaseURL())
}

func appBaseURL() string {
	return env.GetEnv("APP_BASE_URL", "http://localhost:8080")
}

// gatewayPayload merges query string and form body into one payload map.
// The gateway sends the same fields via GET on the return URL and via POST
// on the server callback; relays occasionally split them across both.
func gatewayPayload(c *fiber.Ctx) fiuu.Payload {
	payload := fiuu.Payload{}
	c.Context().QueryArgs().VisitAll(func(k, v []byte) {
		payload[string(k)] = string(v)
	})
	c.Context().PostArgs().VisitAll(func(k, v []byte) {
		payload[string(k)] = string(v)
	})
	return payload
}

// HandlePaymentReturn receives the buyer's browser coming back from the
// gateway. It runs the same reconciliation as the server callback (the
// callback may be delayed or lost) and then redirects to the order page.
func HandlePaymentReturn(c *fiber.Ctx) error {
	payload := gatewayPayload(c)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	outcome, err := newReconcileService().ProcessPaymentPayload(ctx, payload, "return")
	if err != nil {
		ipv4, _ := GetClientIP(c)
		fiberlog.Warnf("payment return rejected from %s: %v", ipv4, err)
		return flash.WithError(c, fiber.Map{"type": "error", "message": "We could not verify your payment. Please contact support if you were charged."}).
			Redirect("/")
	}

	target := "/orders/" + outcome.Order.OrderCode
	switch fiuu.StatusToPaymentStatus(outcome.StatusCode) {
	case models.PaymentStatusPaid:
		return flash.WithSuccess(c, fiber.Map{"type": "success", "message": "Payment received. Thank you!"}).Redirect(target)
	case models.PaymentStatusPending:
		return flash.WithInfo(c, fiber.Map{"type": "info", "message": "Payment is pending confirmation from your bank."}).Redirect(target)
	default:
		return flash.WithError(c, fiber.Map{"type": "error", "message": "Payment was not successful."}).Redirect(target)
	}
}

// HandlePaymentCallback is the server-to-server confirmation endpoint. The
// gateway retries until it sees the ack token, so duplicates are answered
// with the token too.
func HandlePaymentCallback(c *fiber.Ctx) error {
	payload := gatewayPayload(c)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	_, err := newReconcileService().ProcessPaymentPayload(ctx, payload, "callback")
	switch {
	case err == nil:
		return c.Status(fiber.StatusOK).SendString(callbackAckToken)
	case errors.Is(err, reconcile.ErrInvalidSignature):
		return c.Status(fiber.StatusUnauthorized).SendString("ERROR: invalid signature")
	case errors.Is(err, reconcile.ErrOrderNotFound):
		return c.Status(fiber.StatusNotFound).SendString("ERROR: unknown order")
	case errors.Is(err, reconcile.ErrCurrencyMismatch),
		errors.Is(err, reconcile.ErrAmountMismatch),
		errors.Is(err, reconcile.ErrWrongPaymentMethod):
		return c.Status(fiber.StatusBadRequest).SendString("ERROR: " + err.Error())
	default:
		ipv4, _ := GetClientIP(c)
		fiberlog.Errorf("payment callback processing failed (from %s): %v", ipv4, err)
		return c.Status(fiber.StatusInternalServerError).SendString("ERROR: internal")
	}
}

// HandlePaymentCancel is hit when the buyer abandons the hosted page. The
// order fails unless a callback already confirmed it.
func HandlePaymentCancel(c *fiber.Ctx) error {
	ref := c.Query("orderid", c.FormValue("orderid"))
	svc := orders.NewServiceFromDB(database.GetDB())
	order, err := svc.ResolveRef(ref)
	if err != nil {
		return flash.WithError(c, fiber.Map{"type": "error", "message": "Order not found."}).Redirect("/")
	}

	if order.PaymentStatus != models.PaymentStatusPaid {
		if err := svc.UpdatePaymentStatus(order.ID, models.PaymentStatusFailed, "Buyer cancelled at gateway"); err != nil {
			fiberlog.Errorf("cancel: failed to update order %d: %v", order.ID, err)
		}
		if err := svc.UpdateFulfilmentStatus(order.ID, models.FulfilmentStatusCancelled, "Buyer cancelled at gateway"); err != nil {
			fiberlog.Errorf("cancel: failed to update order %d fulfilment: %v", order.ID, err)
		}
	}
	return flash.WithInfo(c, fiber.Map{"type": "info", "message": "Payment cancelled."}).
		Redirect("/orders/" + order.OrderCode)
}

// HandleRefundNotify receives asynchronous refund status updates. The
// gateway does not retry on errors here, so this endpoint always answers
// 200 and relies on the row-level signature flag for trust decisions.
func HandleRefundNotify(c *fiber.Ctx) error {
	payload := gatewayPayload(c)
	outcome, err := newReconcileService().ProcessRefundNotify(payload)
	if err != nil {
		fiberlog.Errorf("refund notify processing failed: %v", err)
		return c.Status(fiber.StatusOK).SendString("OK")
	}
	if !outcome.SignatureOK {
		fiberlog.Warnf("refund notify stored with failed signature check (%s)", outcome.Reason)
	}
	return c.Status(fiber.StatusOK).SendString("OK")
}
