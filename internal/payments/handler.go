package payments

import (
	"net/http"

	"github.com/gofiber/fiber/v2"
)

// Handler exposes payment metadata endpoints.
type Handler struct {
	dispatcher *Dispatcher
}

// NewHandler constructs a payment handler.
func NewHandler(dispatcher *Dispatcher) *Handler {
	return &Handler{dispatcher: dispatcher}
}

// Methods lists the payment methods currently accepted at checkout.
func (h *Handler) Methods(c *fiber.Ctx) error {
	return c.Status(http.StatusOK).JSON(fiber.Map{"methods": h.dispatcher.Methods()})
}
