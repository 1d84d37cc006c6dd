package loyalty

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/lakay-market/storefront/internal/auth"
)

// Handler exposes the loyalty status endpoint.
type Handler struct {
	service *Service
}

// NewHandler constructs a loyalty HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Status returns the authenticated customer's points and tier.
func (h *Handler) Status(c *fiber.Ctx) error {
	st, err := h.service.Status(c.UserContext(), auth.UserID(c))
	if err != nil {
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
	return c.Status(http.StatusOK).JSON(st)
}
