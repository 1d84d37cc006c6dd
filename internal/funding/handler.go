package funding

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"

	"github.com/lakay-market/storefront/internal/auth"
	"github.com/lakay-market/storefront/internal/gateway"
	"github.com/lakay-market/storefront/internal/ledger"
	"github.com/lakay-market/storefront/internal/validation"
	"github.com/lakay-market/storefront/internal/wallet"
)

// Handler exposes HTTP endpoints for card funding flows.
type Handler struct {
	service *Service
}

// NewHandler constructs a funding handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// CardIn processes wallet top-ups funded by cards.
func (h *Handler) CardIn(c *fiber.Ctx) error {
	var req CardInRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	if err := validation.Struct(req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}

	result, err := h.service.CardIn(c.UserContext(), CardInInput{
		OwnerID:    auth.UserID(c),
		Amount:     decimal.RequireFromString(req.Amount),
		ClientTxID: req.ClientTxID,
		CardNumber: req.CardNumber,
		Expiry:     req.Expiry,
		CVV:        req.CVV,
	})
	if err != nil {
		switch {
		case errors.Is(err, ledger.ErrDuplicateTransaction):
			return c.Status(http.StatusOK).JSON(toResponse(result))
		case errors.Is(err, gateway.ErrDeclined):
			return fiber.NewError(http.StatusPaymentRequired, err.Error())
		case errors.Is(err, gateway.ErrUnavailable):
			return fiber.NewError(http.StatusServiceUnavailable, err.Error())
		case errors.Is(err, wallet.ErrWalletNotFound):
			return fiber.NewError(http.StatusNotFound, err.Error())
		case errors.Is(err, ErrInvalidCard), errors.Is(err, validation.ErrInvalid):
			return fiber.NewError(http.StatusBadRequest, err.Error())
		default:
			return fiber.NewError(http.StatusInternalServerError, err.Error())
		}
	}

	return c.Status(http.StatusCreated).JSON(toResponse(result))
}

func toResponse(result FundingResult) FundingResponse {
	return FundingResponse{
		TransactionID:     result.TransactionID,
		Status:            result.Status,
		WalletBalance:     result.WalletBalance.StringFixed(2),
		AcquirerReference: result.AcquirerReference,
	}
}
