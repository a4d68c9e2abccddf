package controllers

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	fiberlog "github.com/gofiber/fiber/v2/log"
	"github.com/khairulanwar/PasarBox/app/models"
	"github.com/khairulanwar/PasarBox/internal/pkg/cache"
	"github.com/khairulanwar/PasarBox/internal/pkg/database"
	"github.com/khairulanwar/PasarBox/internal/pkg/fiuu"
	"github.com/khairulanwar/PasarBox/internal/pkg/orders"
	"gorm.io/gorm"
)

var checkoutValidator = validator.New()

// CheckoutLine is one cart line in a checkout request. Prices come from the
// catalog, never from the client.
type CheckoutLine struct {
	ProductID uint `json:"product_id" validate:"required"`
	Quantity  int  `json:"quantity" validate:"required,gt=0,lte=99"`
}

// CheckoutRequest is the JSON body of POST /checkout.
type CheckoutRequest struct {
	CustomerName  string         `json:"customer_name" validate:"required,max=120"`
	Phone         string         `json:"phone" validate:"required,max=32"`
	Email         string         `json:"email" validate:"omitempty,email,max=255"`
	Address       string         `json:"address" validate:"required,max=500"`
	DeliveryState string         `json:"delivery_state" validate:"max=80"`
	DeliveryCity  string         `json:"delivery_city" validate:"max=80"`
	DeliveryPost  string         `json:"delivery_post" validate:"max=16"`
	PaymentMethod string         `json:"payment_method" validate:"required,oneof=ONLINE OFFLINE_TRANSFER"`
	Channel       string         `json:"channel" validate:"max=40"`
	ShippingFee   int64          `json:"shipping_fee" validate:"gte=0"`
	Lines         []CheckoutLine `json:"lines" validate:"required,min=1,dive"`
}

const hostedRequestCacheTTL = 30 * time.Minute

func hostedRequestCacheKey(orderCode string) string {
	return "hosted_payment:" + orderCode
}

// HandleCheckout places the order and, for online payments, returns the
// hosted-payment redirect the frontend should follow.
func HandleCheckout(c *fiber.Ctx) error {
	var req CheckoutRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_body"})
	}
	if err := checkoutValidator.Struct(req); err != nil {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"error": "validation_failed", "detail": err.Error()})
	}

	svc := orders.NewServiceFromDB(database.GetDB())
	repo := svc.Repo()

	input := orders.PlaceOrderInput{
		CustomerName:  req.CustomerName,
		Phone:         req.Phone,
		Email:         req.Email,
		Address:       req.Address,
		DeliveryState: req.DeliveryState,
		DeliveryCity:  req.DeliveryCity,
		DeliveryPost:  req.DeliveryPost,
		PaymentMethod: req.PaymentMethod,
		ShippingFee:   req.ShippingFee,
	}
	for _, line := range req.Lines {
		product, err := repo.GetProduct(line.ProductID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"error": "unknown_product"})
		}
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "catalog_lookup_failed"})
		}
		if product.Archived || !product.Visibility {
			return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"error": "product_unavailable", "product_id": product.ID})
		}
		input.Lines = append(input.Lines, orders.PlaceOrderLine{
			ProductID:   product.ID,
			ProductName: product.Name,
			UnitPrice:   product.Price,
			Quantity:    line.Quantity,
		})
	}

	order, err := svc.PlaceOrder(input)
	if errors.Is(err, orders.ErrEmptyOrder) {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"error": "empty_order"})
	}
	if err != nil {
		fiberlog.Errorf("checkout: order placement failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "order_create_failed"})
	}

	resp := fiber.Map{
		"order_code":     order.OrderCode,
		"total_amount":   order.TotalAmount,
		"payment_status": order.PaymentStatus,
	}

	if order.PaymentMethod == models.PaymentMethodOnline {
		hosted, err := buildAndCacheHostedRequest(order, fiuu.Customer{
			Name:   order.CustomerName,
			Email:  order.Email,
			Mobile: order.Phone,
		}, req.Channel)
		if errors.Is(err, fiuu.ErrNotConfigured) {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "gateway_not_configured"})
		}
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "payment_init_failed"})
		}
		resp["payment"] = hosted
	}

	return c.Status(fiber.StatusCreated).JSON(resp)
}

func buildAndCacheHostedRequest(order *models.Order, customer fiuu.Customer, channel string) (*fiuu.HostedRequest, error) {
	hosted, err := fiuu.BuildHostedPaymentRequest(fiuu.ConfigFromEnv(), order, customer, channel, appBaseURL())
	if err != nil {
		return nil, err
	}
	if encoded, err := json.Marshal(hosted); err == nil {
		if err := cache.Set(hostedRequestCacheKey(order.OrderCode), string(encoded), hostedRequestCacheTTL); err != nil {
			fiberlog.Warnf("checkout: could not cache hosted request for %s: %v", order.OrderCode, err)
		}
	}
	return hosted, nil
}

// HandleOrderShow returns order status by code or id, for the confirmation
// page and polling after the gateway redirect.
func HandleOrderShow(c *fiber.Ctx) error {
	svc := orders.NewServiceFromDB(database.GetDB())
	order, err := svc.ResolveRef(c.Params("ref"))
	if errors.Is(err, orders.ErrOrderNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "order_not_found"})
	}
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "order_lookup_failed"})
	}
	return c.JSON(order)
}

// HandleOrderPay re-issues the hosted payment redirect for an unpaid online
// order, serving the cached request when one is still fresh.
func HandleOrderPay(c *fiber.Ctx) error {
	svc := orders.NewServiceFromDB(database.GetDB())
	order, err := svc.ResolveRef(c.Params("ref"))
	if errors.Is(err, orders.ErrOrderNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "order_not_found"})
	}
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "order_lookup_failed"})
	}
	if order.PaymentMethod != models.PaymentMethodOnline {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"error": "not_online_payment"})
	}
	if order.PaymentStatus == models.PaymentStatusPaid {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "already_paid"})
	}

	if cached, err := cache.Get(hostedRequestCacheKey(order.OrderCode)); err == nil && cached != "" {
		var hosted fiuu.HostedRequest
		if json.Unmarshal([]byte(cached), &hosted) == nil {
			return c.JSON(fiber.Map{"order_code": order.OrderCode, "payment": hosted})
		}
	}

	hosted, err := buildAndCacheHostedRequest(order, fiuu.Customer{
		Name:   order.CustomerName,
		Email:  order.Email,
		Mobile: order.Phone,
	}, c.Query("channel"))
	if errors.Is(err, fiuu.ErrNotConfigured) {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "gateway_not_configured"})
	}
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "payment_init_failed"})
	}
	return c.JSON(fiber.Map{"order_code": order.OrderCode, "payment": hosted})
}
