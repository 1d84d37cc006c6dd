package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/lakay-market/storefront/internal/catalog"
)

// RegisterCatalogRoutes wires offer browsing and seller listing.
func RegisterCatalogRoutes(r fiber.Router, h *catalog.Handler, jwtmw fiber.Handler) {
	r.Get("/offers", h.List)
	r.Get("/offers/:offerId", h.Get)
	r.Post("/offers", jwtmw, h.Create)
}
