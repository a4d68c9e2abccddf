package router

import (
	"github.com/gofiber/fiber/v2"
	"github.com/khairulanwar/PasarBox/app/controllers"
)

func (h HttpRouter) registerPublicRoutes(app *fiber.App) {
	// Catalog
	app.Get("/products", controllers.HandleProductList)
	app.Get("/products/:id", controllers.HandleProductShow)

	// Order status for the confirmation page
	app.Get("/orders/:ref", controllers.HandleOrderShow)
	app.Get("/orders/:ref/pay", controllers.HandleOrderPay)

	// Gateway endpoints (no CSRF, signature-verified in the core).
	// The return URL must accept both GET and POST; gateways differ.
	app.Get("/payment/return", controllers.HandlePaymentReturn)
	app.Post("/payment/return", controllers.HandlePaymentReturn)
	app.Post("/payment/callback", controllers.HandlePaymentCallback)
	app.Get("/payment/cancel", controllers.HandlePaymentCancel)
	app.Post("/payment/cancel", controllers.HandlePaymentCancel)
	app.Post("/payment/refund/notify", controllers.HandleRefundNotify)
}
