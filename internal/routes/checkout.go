package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/lakay-market/storefront/internal/checkout"
)

// RegisterCheckoutRoutes wires order placement and order management.
func RegisterCheckoutRoutes(r fiber.Router, h *checkout.Handler, idem fiber.Handler) {
	r.Post("/checkout", idem, h.PlaceOrder)
	r.Get("/orders", h.List)
	r.Get("/orders/:orderId", h.Get)
	r.Post("/orders/:orderId/pay", idem, h.Pay)
	r.Post("/orders/:orderId/cancel", h.Cancel)
}
