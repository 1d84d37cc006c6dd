package checkout

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/lakay-market/storefront/internal/auth"
	"github.com/lakay-market/storefront/internal/cart"
	"github.com/lakay-market/storefront/internal/catalog"
	"github.com/lakay-market/storefront/internal/gateway"
	"github.com/lakay-market/storefront/internal/loyalty"
	"github.com/lakay-market/storefront/internal/order"
	"github.com/lakay-market/storefront/internal/payments"
	"github.com/lakay-market/storefront/internal/pricing"
	"github.com/lakay-market/storefront/internal/validation"
)

// Handler exposes quote, checkout and order endpoints.
type Handler struct {
	service *Service
}

// NewHandler constructs a checkout HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Quote prices the cart.
func (h *Handler) Quote(c *fiber.Ctx) error {
	var req QuoteRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(http.StatusBadRequest, err.Error())
		}
	}
	quote, err := h.service.Quote(c.UserContext(), auth.UserID(c), req)
	if err != nil {
		return mapError(err)
	}
	return c.Status(http.StatusOK).JSON(quote)
}

// PlaceOrder checks out the cart.
func (h *Handler) PlaceOrder(c *fiber.Ctx) error {
	var req Request
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	o, err := h.service.PlaceOrder(c.UserContext(), auth.UserID(c), req)
	if err != nil {
		return respondPaymentError(c, o, err)
	}
	return c.Status(http.StatusCreated).JSON(o)
}

// List returns the customer's orders.
func (h *Handler) List(c *fiber.Ctx) error {
	orders, err := h.service.List(c.UserContext(), auth.UserID(c))
	if err != nil {
		return mapError(err)
	}
	if orders == nil {
		orders = []order.Order{}
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"orders": orders})
}

// Get returns one order.
func (h *Handler) Get(c *fiber.Ctx) error {
	o, err := h.service.Get(c.UserContext(), auth.UserID(c), c.Params("orderId"))
	if err != nil {
		return mapError(err)
	}
	return c.Status(http.StatusOK).JSON(o)
}

// Pay retries payment of an order.
func (h *Handler) Pay(c *fiber.Ctx) error {
	var req PayRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	o, err := h.service.RetryPayment(c.UserContext(), auth.UserID(c), c.Params("orderId"), req)
	if err != nil {
		return respondPaymentError(c, o, err)
	}
	return c.Status(http.StatusOK).JSON(o)
}

// Cancel cancels an unpaid order.
func (h *Handler) Cancel(c *fiber.Ctx) error {
	o, err := h.service.Cancel(c.UserContext(), auth.UserID(c), c.Params("orderId"))
	if err != nil {
		return mapError(err)
	}
	return c.Status(http.StatusOK).JSON(o)
}

// PaymentReturn handles the customer coming back from a mobile-money page.
func (h *Handler) PaymentReturn(c *fiber.Ctx) error {
	method, err := payments.ParseMethod(c.Params("gateway"))
	if err != nil || (method != payments.MethodMonCash && method != payments.MethodNatCash) {
		return fiber.NewError(http.StatusNotFound, "unknown payment gateway")
	}
	v := gateway.Verification{
		OrderID:       firstNonEmpty(c.Query("order_id"), c.Query("orderId")),
		TransactionID: firstNonEmpty(c.Query("transactionId"), c.Query("transaction_id")),
	}
	o, err := h.service.CompleteRedirect(c.UserContext(), method, v)
	if err != nil {
		return respondPaymentError(c, o, err)
	}
	return c.Status(http.StatusOK).JSON(o)
}

// respondPaymentError returns the order with a 402 when the payment itself
// failed, so the client can offer a retry.
func respondPaymentError(c *fiber.Ctx, o order.Order, err error) error {
	if errors.Is(err, ErrPaymentFailed) && o.ID != "" {
		return c.Status(http.StatusPaymentRequired).JSON(fiber.Map{"error": err.Error(), "order": o})
	}
	return mapError(err)
}

func mapError(err error) error {
	switch {
	case errors.Is(err, validation.ErrInvalid),
		errors.Is(err, ErrAddressRequired),
		errors.Is(err, ErrCashOnDeliveryNotAllowed),
		errors.Is(err, ErrInvalidReturn),
		errors.Is(err, pricing.ErrUnknownShippingMethod),
		errors.Is(err, pricing.ErrNegativePoints),
		errors.Is(err, payments.ErrUnsupportedMethod),
		errors.Is(err, payments.ErrCardRequired):
		return fiber.NewError(http.StatusBadRequest, err.Error())
	case errors.Is(err, order.ErrOrderNotFound), errors.Is(err, catalog.ErrOfferNotFound):
		return fiber.NewError(http.StatusNotFound, err.Error())
	case errors.Is(err, cart.ErrEmptyCart),
		errors.Is(err, cart.ErrOutOfStock),
		errors.Is(err, catalog.ErrOfferInactive),
		errors.Is(err, ErrNotPayable),
		errors.Is(err, ErrNotCancellable),
		errors.Is(err, ErrMethodMismatch),
		errors.Is(err, order.ErrStaleOrder),
		errors.Is(err, loyalty.ErrInsufficientPoints):
		return fiber.NewError(http.StatusConflict, err.Error())
	case errors.Is(err, payments.ErrMethodDisabled):
		return fiber.NewError(http.StatusServiceUnavailable, err.Error())
	case errors.Is(err, ErrPaymentFailed):
		return fiber.NewError(http.StatusPaymentRequired, err.Error())
	default:
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
