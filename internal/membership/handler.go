package membership

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/lakay-market/storefront/internal/auth"
	"github.com/lakay-market/storefront/internal/identity"
	"github.com/lakay-market/storefront/internal/wallet"
)

// Handler exposes the Union Plus purchase endpoint.
type Handler struct {
	service *Service
}

// NewHandler constructs a membership handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Subscribe buys or extends Union Plus for the caller.
func (h *Handler) Subscribe(c *fiber.Ctx) error {
	sub, err := h.service.Subscribe(c.UserContext(), auth.UserID(c))
	if err != nil {
		switch {
		case errors.Is(err, ErrInsufficientFunds):
			return fiber.NewError(http.StatusPaymentRequired, err.Error())
		case errors.Is(err, identity.ErrUserNotFound), errors.Is(err, wallet.ErrWalletNotFound):
			return fiber.NewError(http.StatusNotFound, err.Error())
		default:
			return fiber.NewError(http.StatusInternalServerError, err.Error())
		}
	}
	status := http.StatusCreated
	if sub.Duplicate {
		status = http.StatusOK
	}
	return c.Status(status).JSON(sub)
}
