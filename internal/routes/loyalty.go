package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/lakay-market/storefront/internal/loyalty"
	"github.com/lakay-market/storefront/internal/membership"
)

// RegisterLoyaltyRoutes wires loyalty status and Union Plus membership.
func RegisterLoyaltyRoutes(r fiber.Router, h *loyalty.Handler, members *membership.Handler, idem fiber.Handler) {
	r.Get("/loyalty", h.Status)
	r.Post("/members/union-plus", idem, members.Subscribe)
}
