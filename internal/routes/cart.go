package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/lakay-market/storefront/internal/cart"
	"github.com/lakay-market/storefront/internal/checkout"
)

// RegisterCartRoutes wires the shopping cart and its quote.
func RegisterCartRoutes(r fiber.Router, h *cart.Handler, quotes *checkout.Handler) {
	r.Get("/cart", h.Get)
	r.Delete("/cart", h.Clear)
	r.Post("/cart/items", h.AddItem)
	r.Patch("/cart/items/:offerId", h.UpdateItem)
	r.Delete("/cart/items/:offerId", h.RemoveItem)
	r.Post("/cart/quote", quotes.Quote)
}
