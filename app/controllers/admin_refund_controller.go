package controllers

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	fiberlog "github.com/gofiber/fiber/v2/log"
	"github.com/khairulanwar/PasarBox/internal/pkg/database"
	"github.com/khairulanwar/PasarBox/internal/pkg/env"
	"github.com/khairulanwar/PasarBox/internal/pkg/fiuu"
	"github.com/khairulanwar/PasarBox/internal/pkg/refund"
)

var refundValidator = validator.New()

// ItemRefundRequest is the body of POST /admin/orders/:id/refund-item.
// Amount nil means "use the computed pro-rated default".
type ItemRefundRequest struct {
	OrderItemID uint   `json:"order_item_id" form:"order_item_id" validate:"required"`
	Quantity    int    `json:"quantity" form:"quantity" validate:"required,gt=0"`
	Amount      *int64 `json:"amount" form:"amount" validate:"omitempty,gte=0"`
	Reason      string `json:"reason" form:"reason" validate:"max=500"`
}

// ExtraRefundRequest is the body of POST /admin/orders/:id/refund.
type ExtraRefundRequest struct {
	Amount int64  `json:"amount" form:"amount" validate:"required,gt=0"`
	Reason string `json:"reason" form:"reason" validate:"max=500"`
}

func newRefundService() *refund.Service {
	return refund.NewServiceFromDB(database.GetDB(), fiuu.ConfigFromEnv(), env.GetEnv("APP_BASE_URL", "http://localhost:8080"))
}

func orderIDParam(c *fiber.Ctx) (uint, bool) {
	id, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}

// HandleAdminRefundItem refunds qty units of one order line through the
// gateway.
func HandleAdminRefundItem(c *fiber.Ctx) error {
	orderID, ok := orderIDParam(c)
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_order_id"})
	}
	var req ItemRefundRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_body"})
	}
	if err := refundValidator.Struct(req); err != nil {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"error": "validation_failed", "detail": err.Error()})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 45*time.Second)
	defer cancel()

	outcome, err := newRefundService().RefundOrderItem(ctx, refund.ItemRefundInput{
		OrderID:     orderID,
		OrderItemID: req.OrderItemID,
		Quantity:    req.Quantity,
		Amount:      req.Amount,
		Reason:      req.Reason,
	})
	if err != nil {
		return refundErrorResponse(c, err)
	}
	return c.JSON(fiber.Map{
		"refund":        outcome.ItemRefund,
		"refund_status": outcome.Status.RefundStatus,
		"refunded":      outcome.Status.RefundedAmount,
	})
}

// HandleAdminRefundExtra refunds a non-itemized amount (e.g. shipping)
// against the whole order.
func HandleAdminRefundExtra(c *fiber.Ctx) error {
	orderID, ok := orderIDParam(c)
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_order_id"})
	}
	var req ExtraRefundRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_body"})
	}
	if err := refundValidator.Struct(req); err != nil {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"error": "validation_failed", "detail": err.Error()})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 45*time.Second)
	defer cancel()

	outcome, err := newRefundService().RefundOrderExtra(ctx, refund.ExtraRefundInput{
		OrderID: orderID,
		Amount:  req.Amount,
		Reason:  req.Reason,
	})
	if err != nil {
		return refundErrorResponse(c, err)
	}
	return c.JSON(fiber.Map{
		"refund":        outcome.OrderRefund,
		"refund_status": outcome.Status.RefundStatus,
		"refunded":      outcome.Status.RefundedAmount,
	})
}

// HandleAdminRefundRefresh recomputes an order's refund status from the
// confirmed rows, for when a notify was missed and fixed up by hand.
func HandleAdminRefundRefresh(c *fiber.Ctx) error {
	orderID, ok := orderIDParam(c)
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_order_id"})
	}
	status, err := newRefundService().RefreshOrderRefundStatus(orderID)
	if err != nil {
		return refundErrorResponse(c, err)
	}
	return c.JSON(fiber.Map{"refund_status": status.RefundStatus, "refunded": status.RefundedAmount})
}

func refundErrorResponse(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, refund.ErrOrderNotFound), errors.Is(err, refund.ErrItemNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, refund.ErrWrongPaymentMethod),
		errors.Is(err, refund.ErrFPXNotRefundable),
		errors.Is(err, refund.ErrOrderNotPaid),
		errors.Is(err, refund.ErrInvalidQuantity),
		errors.Is(err, refund.ErrQuantityExceeds),
		errors.Is(err, refund.ErrAmountExceeds),
		errors.Is(err, refund.ErrAmountRequired),
		errors.Is(err, refund.ErrMissingTxnID):
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, fiuu.ErrNotConfigured):
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "gateway_not_configured"})
	}

	var gatewayErr *fiuu.GatewayError
	if errors.As(err, &gatewayErr) {
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
			"error":      "gateway_rejected",
			"error_code": gatewayErr.Code,
			"error_desc": gatewayErr.Desc,
		})
	}

	fiberlog.Errorf("admin refund failed: %v", err)
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "refund_failed"})
}
