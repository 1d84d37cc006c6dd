package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/lakay-market/storefront/internal/funding"
	"github.com/lakay-market/storefront/internal/wallet"
)

// RegisterWalletRoutes wires wallet balance and card top-up endpoints.
func RegisterWalletRoutes(r fiber.Router, h *wallet.Handler, fund *funding.Handler, idem fiber.Handler) {
	r.Get("/wallet", h.Mine)
	r.Post("/wallet/fund/card", idem, fund.CardIn)
}
