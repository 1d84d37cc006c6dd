package wallet

import (
	"errors"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
)

// localUserID mirrors auth.LocalUserID; auth depends on this package.
const localUserID = "user_id"

// Handler exposes wallet endpoints for the authenticated customer.
type Handler struct {
	service *Service
}

// NewHandler constructs a wallet handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type walletResponse struct {
	ID       string `json:"id"`
	Currency string `json:"currency"`
	Status   string `json:"status"`
	Balance  string `json:"balance"`
	AsOf     string `json:"as_of"`
}

// Mine returns the caller's wallet and its balance.
func (h *Handler) Mine(c *fiber.Ctx) error {
	uid, _ := c.Locals(localUserID).(string)
	if uid == "" {
		return fiber.NewError(http.StatusUnauthorized, "unauthorized")
	}
	w, err := h.service.GetByOwner(c.UserContext(), uid)
	if err != nil {
		if errors.Is(err, ErrWalletNotFound) {
			return fiber.NewError(http.StatusNotFound, err.Error())
		}
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
	bal, err := h.service.Balance(c.UserContext(), w.ID)
	if err != nil {
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
	return c.Status(http.StatusOK).JSON(walletResponse{
		ID:       w.ID,
		Currency: w.Currency,
		Status:   w.Status,
		Balance:  bal.Amount.StringFixed(2),
		AsOf:     bal.AsOf.Format(time.RFC3339),
	})
}
