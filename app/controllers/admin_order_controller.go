package controllers

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	fiberlog "github.com/gofiber/fiber/v2/log"
	"github.com/khairulanwar/PasarBox/app/models"
	"github.com/khairulanwar/PasarBox/internal/pkg/database"
	"github.com/khairulanwar/PasarBox/internal/pkg/orders"
	"github.com/khairulanwar/PasarBox/internal/pkg/payment"
)

var adminOrderValidator = validator.New()

// FulfilmentUpdateRequest is the body of POST /admin/orders/:id/fulfilment.
type FulfilmentUpdateRequest struct {
	Status string `json:"status" form:"status" validate:"required,oneof=NEW PROCESSING SHIPPED COMPLETED CANCELLED"`
	Note   string `json:"note" form:"note" validate:"max=500"`
}

// HandleAdminOrderList lists orders newest first with basic filters.
func HandleAdminOrderList(c *fiber.Ctx) error {
	db := database.GetDB()
	query := db.Model(&models.Order{}).Order("id DESC")

	if v := c.Query("payment_status"); v != "" {
		query = query.Where("payment_status = ?", v)
	}
	if v := c.Query("fulfilment_status"); v != "" {
		query = query.Where("fulfilment_status = ?", v)
	}

	limit, _ := strconv.Atoi(c.Query("limit", "50"))
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	offset, _ := strconv.Atoi(c.Query("offset", "0"))
	if offset < 0 {
		offset = 0
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "order_list_failed"})
	}

	var rows []models.Order
	if err := query.Limit(limit).Offset(offset).Find(&rows).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "order_list_failed"})
	}
	return c.JSON(fiber.Map{"orders": rows, "total": total})
}

// HandleAdminOrderShow returns one order with items, promo, status history
// and its payment events.
func HandleAdminOrderShow(c *fiber.Ctx) error {
	orderID, ok := orderIDParam(c)
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_order_id"})
	}

	db := database.GetDB()
	var order models.Order
	err := db.Preload("Items").Preload("Promo").Preload("StatusHistory").First(&order, orderID).Error
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "order_not_found"})
	}

	var events []models.PaymentEvent
	db.Where("order_id = ?", orderID).Order("id").Find(&events)

	var itemRefunds []models.OrderItemRefund
	db.Where("order_id = ?", orderID).Order("id").Find(&itemRefunds)
	var orderRefunds []models.OrderRefund
	db.Where("order_id = ?", orderID).Order("id").Find(&orderRefunds)

	return c.JSON(fiber.Map{
		"order":          order,
		"payment_events": events,
		"item_refunds":   itemRefunds,
		"order_refunds":  orderRefunds,
	})
}

// HandleAdminOrderFulfilment transitions the fulfilment status.
func HandleAdminOrderFulfilment(c *fiber.Ctx) error {
	orderID, ok := orderIDParam(c)
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_order_id"})
	}
	var req FulfilmentUpdateRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_body"})
	}
	if err := adminOrderValidator.Struct(req); err != nil {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"error": "validation_failed", "detail": err.Error()})
	}

	svc := orders.NewServiceFromDB(database.GetDB())
	if err := svc.UpdateFulfilmentStatus(orderID, req.Status, req.Note); err != nil {
		if errors.Is(err, orders.ErrOrderNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "order_not_found"})
		}
		fiberlog.Errorf("admin fulfilment update failed for order %d: %v", orderID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "update_failed"})
	}
	return c.JSON(fiber.Map{"ok": true})
}

// HandleAdminOrderVerifyPayment confirms an offline bank transfer after the
// admin checked the slip. The manual confirmation goes through the same
// ledger and stock path as a gateway callback.
func HandleAdminOrderVerifyPayment(c *fiber.Ctx) error {
	note := c.FormValue("note")
	if note == "" {
		note = "Offline transfer verified by admin"
	}

	db := database.GetDB()
	svc := orders.NewServiceFromDB(db)
	order, err := svc.ResolveRef(c.Params("id"))
	if errors.Is(err, orders.ErrOrderNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "order_not_found"})
	}
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "order_lookup_failed"})
	}
	if order.PaymentMethod != models.PaymentMethodOfflineTransfer {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"error": "not_offline_order"})
	}

	ledger := payment.NewLedger(payment.NewRepository(db))
	manualTxnID := fmt.Sprintf("manual-%d-%d", order.ID, time.Now().UTC().Unix())
	if _, err := ledger.TryInsert(order.ID, models.PaymentProviderManual, manualTxnID, map[string]string{
		"orderid": order.Ref(),
		"note":    note,
		"amount":  strconv.FormatInt(order.TotalAmount, 10),
	}, true); err != nil {
		fiberlog.Errorf("manual payment event insert failed for order %d: %v", order.ID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "ledger_failed"})
	}

	result, err := svc.MarkPaidAndDeductStock(order.ID, note)
	if err != nil {
		fiberlog.Errorf("manual payment confirmation failed for order %d: %v", order.ID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "confirm_failed"})
	}
	return c.JSON(fiber.Map{
		"ok":             true,
		"already_paid":   result.AlreadyPaid,
		"stock_deducted": result.StockDeducted,
		"stock_error":    result.StockError,
	})
}

// HandleAdminNotifications lists recent admin notifications.
func HandleAdminNotifications(c *fiber.Ctx) error {
	var rows []models.AdminNotification
	err := database.GetDB().Order("id DESC").Limit(100).Find(&rows).Error
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "notification_list_failed"})
	}
	return c.JSON(fiber.Map{"notifications": rows})
}
