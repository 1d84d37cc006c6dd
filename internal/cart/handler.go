package cart

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/lakay-market/storefront/internal/auth"
	"github.com/lakay-market/storefront/internal/catalog"
	"github.com/lakay-market/storefront/internal/validation"
)

// Handler exposes cart endpoints for the authenticated customer.
type Handler struct {
	service *Service
}

// NewHandler constructs a cart HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Get returns the current cart.
func (h *Handler) Get(c *fiber.Ctx) error {
	cart, err := h.service.Get(c.UserContext(), auth.UserID(c))
	if err != nil {
		return mapError(err)
	}
	return c.Status(http.StatusOK).JSON(view(cart))
}

// AddItem adds an offer to the cart.
func (h *Handler) AddItem(c *fiber.Ctx) error {
	var req AddItemInput
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	cart, err := h.service.AddItem(c.UserContext(), auth.UserID(c), req)
	if err != nil {
		return mapError(err)
	}
	return c.Status(http.StatusOK).JSON(view(cart))
}

// UpdateItem changes a line's quantity or duration.
func (h *Handler) UpdateItem(c *fiber.Ctx) error {
	var req UpdateItemInput
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	cart, err := h.service.UpdateItem(c.UserContext(), auth.UserID(c), c.Params("offerId"), req)
	if err != nil {
		return mapError(err)
	}
	return c.Status(http.StatusOK).JSON(view(cart))
}

// RemoveItem deletes a line.
func (h *Handler) RemoveItem(c *fiber.Ctx) error {
	cart, err := h.service.RemoveItem(c.UserContext(), auth.UserID(c), c.Params("offerId"))
	if err != nil {
		return mapError(err)
	}
	return c.Status(http.StatusOK).JSON(view(cart))
}

// Clear empties the cart.
func (h *Handler) Clear(c *fiber.Ctx) error {
	if err := h.service.Clear(c.UserContext(), auth.UserID(c)); err != nil {
		return mapError(err)
	}
	return c.SendStatus(http.StatusNoContent)
}

type lineView struct {
	Item
	LineTotal string `json:"line_total"`
}

type cartView struct {
	Items    []lineView `json:"items"`
	Subtotal string     `json:"subtotal"`
}

func view(c Cart) cartView {
	v := cartView{Items: make([]lineView, 0, len(c.Items))}
	sum := c.Subtotal()
	for _, it := range c.Items {
		v.Items = append(v.Items, lineView{Item: it, LineTotal: it.LineTotal().StringFixed(2)})
	}
	v.Subtotal = sum.StringFixed(2)
	return v
}

func mapError(err error) error {
	switch {
	case errors.Is(err, validation.ErrInvalid), errors.Is(err, ErrDurationRequired):
		return fiber.NewError(http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrItemNotFound), errors.Is(err, catalog.ErrOfferNotFound):
		return fiber.NewError(http.StatusNotFound, err.Error())
	case errors.Is(err, ErrOutOfStock), errors.Is(err, catalog.ErrOfferInactive), errors.Is(err, ErrEmptyCart):
		return fiber.NewError(http.StatusConflict, err.Error())
	default:
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
}
