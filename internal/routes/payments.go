package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/lakay-market/storefront/internal/checkout"
	"github.com/lakay-market/storefront/internal/payments"
)

// RegisterPaymentRoutes wires payment method discovery and gateway returns.
// Returns are unauthenticated: the gateway verification is what settles an order.
func RegisterPaymentRoutes(r fiber.Router, h *payments.Handler, returns *checkout.Handler) {
	r.Get("/payments/methods", h.Methods)
	r.Get("/payments/:gateway/return", returns.PaymentReturn)
}
