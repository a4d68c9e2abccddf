package router

import (
	"github.com/gofiber/fiber/v2"
	"github.com/khairulanwar/PasarBox/app/controllers"
	"github.com/khairulanwar/PasarBox/internal/pkg/middleware"
)

func (h HttpRouter) registerAdminRoutes(app *fiber.App) {
	adminGroup := app.Group("/admin", middleware.RequireAdmin)

	// Orders
	adminGroup.Get("/orders", controllers.HandleAdminOrderList)
	adminGroup.Get("/orders/:id", controllers.HandleAdminOrderShow)
	adminGroup.Post("/orders/:id/fulfilment", controllers.HandleAdminOrderFulfilment)
	adminGroup.Post("/orders/:id/verify-payment", controllers.HandleAdminOrderVerifyPayment)

	// Refunds
	adminGroup.Post("/orders/:id/refund-item", controllers.HandleAdminRefundItem)
	adminGroup.Post("/orders/:id/refund", controllers.HandleAdminRefundExtra)
	adminGroup.Post("/orders/:id/refund-refresh", controllers.HandleAdminRefundRefresh)

	// Catalog management
	adminGroup.Post("/products", controllers.HandleAdminProductCreate)
	adminGroup.Post("/products/:id", controllers.HandleAdminProductUpdate)

	// Notifications
	adminGroup.Get("/notifications", controllers.HandleAdminNotifications)
}
