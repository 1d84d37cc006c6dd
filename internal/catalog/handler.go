package catalog

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/lakay-market/storefront/internal/auth"
)

// Handler exposes catalog endpoints.
type Handler struct {
	service *Service
}

// NewHandler constructs a catalog HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// List returns a page of active offers, optionally filtered by ?kind=.
func (h *Handler) List(c *fiber.Ctx) error {
	offers, err := h.service.List(c.UserContext(), Filter{
		Kind:   Kind(c.Query("kind")),
		Limit:  c.QueryInt("limit", defaultPageSize),
		Offset: c.QueryInt("offset", 0),
	})
	if err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	if offers == nil {
		offers = []Offer{}
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"offers": offers})
}

// Get returns one offer.
func (h *Handler) Get(c *fiber.Ctx) error {
	offer, err := h.service.Get(c.UserContext(), c.Params("offerId"))
	if err != nil {
		if errors.Is(err, ErrOfferNotFound) {
			return fiber.NewError(http.StatusNotFound, err.Error())
		}
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
	return c.Status(http.StatusOK).JSON(offer)
}

// Create publishes an offer for the authenticated seller.
func (h *Handler) Create(c *fiber.Ctx) error {
	var req CreateInput
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	req.SellerID = auth.UserID(c)
	offer, err := h.service.Create(c.UserContext(), req)
	if err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	return c.Status(http.StatusCreated).JSON(offer)
}
