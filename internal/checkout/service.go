// Package checkout turns a cart into a paid order: it reprices the cart,
// reserves loyalty points, dispatches the payment and settles the outcome.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/lakay-market/storefront/internal/cart"
	"github.com/lakay-market/storefront/internal/gateway"
	"github.com/lakay-market/storefront/internal/identity"
	"github.com/lakay-market/storefront/internal/loyalty"
	"github.com/lakay-market/storefront/internal/metrics"
	"github.com/lakay-market/storefront/internal/notification"
	"github.com/lakay-market/storefront/internal/order"
	"github.com/lakay-market/storefront/internal/payments"
	"github.com/lakay-market/storefront/internal/pricing"
	"github.com/lakay-market/storefront/internal/validation"
)

const (
	paymentStatusPending = "pending"
	paymentStatusFailed  = "failed"
	listLimit            = 50
)

var (
	// ErrPaymentFailed wraps every gateway or wallet failure during checkout.
	// The order is kept in payment_failed and may be paid again.
	ErrPaymentFailed = errors.New("payment failed")
	// ErrAddressRequired is returned when physical goods have nowhere to go.
	ErrAddressRequired = errors.New("shipping address is required for physical items")
	// ErrCashOnDeliveryNotAllowed is returned when the cart holds non-physical items.
	ErrCashOnDeliveryNotAllowed = errors.New("cash on delivery is only available for physical goods")
	// ErrNotPayable is returned when an order cannot take another payment.
	ErrNotPayable = errors.New("order cannot be paid in its current state")
	// ErrNotCancellable is returned for orders already settled or cancelled.
	ErrNotCancellable = errors.New("order can no longer be cancelled")
	// ErrMethodMismatch is returned when a gateway return does not match the order's method.
	ErrMethodMismatch = errors.New("payment method does not match order")
	// ErrInvalidReturn is returned for a gateway return without identifiers.
	ErrInvalidReturn = errors.New("gateway return carries no order or transaction id")
)

// Users resolves customers.
type Users interface {
	Get(ctx context.Context, id string) (identity.User, error)
}

// Stock records sold units against tracked offers.
type Stock interface {
	TakeStock(ctx context.Context, offerID string, qty int) error
}

// Dependencies groups the collaborators of the checkout service.
type Dependencies struct {
	Carts         *cart.Service
	Pricing       *pricing.Calculator
	Users         Users
	Loyalty       *loyalty.Service
	Payments      *payments.Dispatcher
	Orders        order.Repository
	Stock         Stock
	Notifier      notification.Notifier
	Metrics       *metrics.Metrics
	Logger        *slog.Logger
	PublicBaseURL string
}

// Service orchestrates checkout.
type Service struct {
	Dependencies
	now func() time.Time
}

// NewService builds a checkout service.
func NewService(deps Dependencies) *Service {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	return &Service{Dependencies: deps, now: time.Now}
}

// QuoteRequest prices the current cart without placing an order.
type QuoteRequest struct {
	ShippingMethod string `json:"shipping_method" validate:"omitempty,oneof=standard express pickup"`
	RedeemPoints   int64  `json:"redeem_points" validate:"min=0"`
}

// Request places an order from the current cart.
type Request struct {
	PaymentMethod   string         `json:"payment_method" validate:"required,oneof=card wallet moncash natcash cash_on_delivery"`
	ShippingMethod  string         `json:"shipping_method" validate:"omitempty,oneof=standard express pickup"`
	ShippingAddress *order.Address `json:"shipping_address"`
	Card            *payments.Card `json:"card" validate:"required_if=PaymentMethod card"`
	RedeemPoints    int64          `json:"redeem_points" validate:"min=0"`
	AllowFallback   bool           `json:"allow_fallback"`
}

// PayRequest retries payment of an existing order.
type PayRequest struct {
	PaymentMethod string         `json:"payment_method" validate:"required,oneof=card wallet moncash natcash cash_on_delivery"`
	Card          *payments.Card `json:"card" validate:"required_if=PaymentMethod card"`
	AllowFallback bool           `json:"allow_fallback"`
}

// Quote prices the customer's cart with their membership and points.
func (s *Service) Quote(ctx context.Context, userID string, req QuoteRequest) (pricing.Quote, error) {
	if err := validation.Struct(req); err != nil {
		return pricing.Quote{}, err
	}
	c, user, status, err := s.load(ctx, userID)
	if err != nil {
		return pricing.Quote{}, err
	}
	return s.Pricing.Quote(c, pricing.Options{
		ShippingMethod:  pricing.ShippingMethod(req.ShippingMethod),
		UnionPlus:       user.HasUnionPlus(s.now()),
		RedeemPoints:    req.RedeemPoints,
		AvailablePoints: status.Points,
	})
}

// PlaceOrder creates an order from the cart and pays it. On payment failure
// the order is returned along with an error wrapping ErrPaymentFailed.
func (s *Service) PlaceOrder(ctx context.Context, userID string, req Request) (order.Order, error) {
	if err := validation.Struct(req); err != nil {
		return order.Order{}, err
	}
	method, err := payments.ParseMethod(req.PaymentMethod)
	if err != nil {
		return order.Order{}, err
	}
	c, user, status, err := s.load(ctx, userID)
	if err != nil {
		return order.Order{}, err
	}

	shipping := pricing.ShippingMethod(req.ShippingMethod)
	if shipping == "" {
		shipping = pricing.ShippingStandard
	}
	if c.HasPhysical() && shipping != pricing.ShippingPickup {
		if req.ShippingAddress == nil {
			return order.Order{}, ErrAddressRequired
		}
		if err := validation.Struct(req.ShippingAddress); err != nil {
			return order.Order{}, err
		}
	}
	if method == payments.MethodCashOnDelivery && !c.AllPhysical() {
		return order.Order{}, ErrCashOnDeliveryNotAllowed
	}

	quote, err := s.Pricing.Quote(c, pricing.Options{
		ShippingMethod:  shipping,
		UnionPlus:       user.HasUnionPlus(s.now()),
		RedeemPoints:    req.RedeemPoints,
		AvailablePoints: status.Points,
	})
	if err != nil {
		return order.Order{}, err
	}

	now := s.now().UTC()
	o := order.Order{
		ID:             uuid.NewString(),
		UserID:         userID,
		Items:          c.Items,
		Quote:          quote,
		PaymentMethod:  method,
		PaymentStatus:  paymentStatusPending,
		Status:         order.StatusPendingPayment,
		ShippingMethod: shipping,
		PointsRedeemed: quote.PointsRedeemed,
		Attempts:       1,
		PointsAttempt:  1,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if shipping != pricing.ShippingPickup && c.HasPhysical() {
		o.ShippingAddress = req.ShippingAddress
	}

	if err := s.Loyalty.Redeem(ctx, userID, pointsReference(o), o.PointsRedeemed); err != nil {
		return order.Order{}, err
	}
	if err := s.Orders.Create(ctx, o); err != nil {
		s.restorePoints(ctx, o)
		return order.Order{}, fmt.Errorf("create order: %w", err)
	}
	s.Logger.InfoContext(ctx, "order placed",
		slog.String("order_id", o.ID),
		slog.String("user_id", userID),
		slog.String("method", string(method)),
		slog.String("total", quote.Total.StringFixed(2)),
	)

	return s.pay(ctx, o, user, method, req.Card, req.AllowFallback)
}

// RetryPayment pays an order again, possibly with another method.
func (s *Service) RetryPayment(ctx context.Context, userID, orderID string, req PayRequest) (order.Order, error) {
	if err := validation.Struct(req); err != nil {
		return order.Order{}, err
	}
	method, err := payments.ParseMethod(req.PaymentMethod)
	if err != nil {
		return order.Order{}, err
	}
	o, err := s.owned(ctx, userID, orderID)
	if err != nil {
		return order.Order{}, err
	}
	if !o.Payable() {
		return o, ErrNotPayable
	}
	ordered := cart.Cart{UserID: userID, Items: o.Items}
	if method == payments.MethodCashOnDelivery && !ordered.AllPhysical() {
		return o, ErrCashOnDeliveryNotAllowed
	}
	user, err := s.Users.Get(ctx, userID)
	if err != nil {
		return order.Order{}, err
	}

	// A failed attempt gave its points back and needs a fresh reservation
	// under the new attempt. A redirect still awaiting payment keeps the one
	// it holds. Only the retry that moves the order out of prev may redeem.
	prev := o
	fresh := prev.Status == order.StatusPaymentFailed
	o.Attempts++
	if fresh {
		o.PointsAttempt = o.Attempts
	}
	o.Status = order.StatusPendingPayment
	o.PaymentStatus = paymentStatusPending
	o.PaymentMethod = method
	o.RedirectURL = ""
	o.FailureReason = ""
	o.FellBack = false
	o.UpdatedAt = s.now().UTC()
	if err := s.Orders.Update(ctx, o, prev.Status, prev.Attempts); err != nil {
		return order.Order{}, err
	}
	if fresh {
		if err := s.Loyalty.Redeem(ctx, userID, pointsReference(o), o.PointsRedeemed); err != nil {
			if rerr := s.Orders.Update(ctx, prev, order.StatusPendingPayment, o.Attempts); rerr != nil {
				s.Logger.ErrorContext(ctx, "revert payment retry failed", slog.String("order_id", o.ID), slog.Any("error", rerr))
			}
			return prev, err
		}
	}
	return s.pay(ctx, o, user, method, req.Card, req.AllowFallback)
}

// CompleteRedirect settles an order after the customer returns from a
// mobile-money page. Completing an already settled order returns it unchanged.
func (s *Service) CompleteRedirect(ctx context.Context, method payments.Method, v gateway.Verification) (order.Order, error) {
	var conf *gateway.Confirmation
	if v.OrderID == "" {
		if v.TransactionID == "" {
			return order.Order{}, ErrInvalidReturn
		}
		c, err := s.Payments.Confirm(ctx, method, v, decimal.Zero)
		if err != nil {
			return order.Order{}, err
		}
		v.OrderID = c.OrderID
		conf = &c
	}

	o, err := s.Orders.Get(ctx, v.OrderID)
	if err != nil {
		return order.Order{}, err
	}
	if o.Settled() {
		return o, nil
	}
	if o.Status != order.StatusAwaitingPayment {
		return o, ErrNotPayable
	}
	if o.PaymentMethod != method {
		return o, ErrMethodMismatch
	}

	if conf == nil {
		c, err := s.Payments.Confirm(ctx, method, v, o.Quote.Total)
		if err != nil {
			return s.redirectFailed(ctx, o, err)
		}
		conf = &c
	} else if conf.Amount.LessThan(o.Quote.Total) {
		return s.redirectFailed(ctx, o, payments.ErrAmountMismatch)
	}

	user, err := s.Users.Get(ctx, o.UserID)
	if err != nil {
		return order.Order{}, err
	}
	o.Status = order.StatusPaid
	o.PaymentStatus = string(payments.StatusPaid)
	o.PaymentReference = conf.TransactionID
	o.UpdatedAt = s.now().UTC()
	s.settle(ctx, &o, user, notification.KindOrderPaid)
	if err := s.Orders.Update(ctx, o, order.StatusAwaitingPayment, o.Attempts); err != nil {
		if errors.Is(err, order.ErrStaleOrder) {
			return s.Orders.Get(ctx, o.ID)
		}
		return order.Order{}, err
	}
	s.Metrics.Checkout(string(method), string(order.StatusPaid))
	return o, nil
}

// redirectFailed keeps the order awaiting payment while the gateway has not
// seen the money yet, and fails it on a terminal answer.
func (s *Service) redirectFailed(ctx context.Context, o order.Order, cause error) (order.Order, error) {
	if errors.Is(cause, gateway.ErrNotPaid) || errors.Is(cause, gateway.ErrUnavailable) {
		return o, fmt.Errorf("%w: %w", ErrPaymentFailed, cause)
	}
	return s.fail(ctx, o, order.StatusAwaitingPayment, cause)
}

// Cancel cancels an unpaid order and gives reserved points back.
func (s *Service) Cancel(ctx context.Context, userID, orderID string) (order.Order, error) {
	o, err := s.owned(ctx, userID, orderID)
	if err != nil {
		return order.Order{}, err
	}
	if !o.Cancellable() {
		return o, ErrNotCancellable
	}
	prev := o.Status
	o.Status = order.StatusCancelled
	o.UpdatedAt = s.now().UTC()
	if err := s.Orders.Update(ctx, o, prev, o.Attempts); err != nil {
		return order.Order{}, err
	}
	if prev != order.StatusPaymentFailed {
		s.restorePoints(ctx, o)
	}
	s.Logger.InfoContext(ctx, "order cancelled", slog.String("order_id", o.ID), slog.String("user_id", userID))
	return o, nil
}

// Get returns one of the customer's orders.
func (s *Service) Get(ctx context.Context, userID, orderID string) (order.Order, error) {
	return s.owned(ctx, userID, orderID)
}

// List returns the customer's recent orders.
func (s *Service) List(ctx context.Context, userID string) ([]order.Order, error) {
	return s.Orders.ListByUser(ctx, userID, listLimit)
}

func (s *Service) pay(ctx context.Context, o order.Order, user identity.User, method payments.Method, card *payments.Card, allowFallback bool) (order.Order, error) {
	res, err := s.Payments.Dispatch(ctx, payments.Request{
		OrderID:       o.ID,
		UserID:        o.UserID,
		Method:        method,
		Amount:        o.Quote.Total,
		Currency:      o.Quote.Currency,
		Card:          card,
		ReturnURL:     func(m payments.Method) string { return s.returnURL(m, o.ID) },
		AllowFallback: allowFallback,
	})
	if err != nil {
		return s.fail(ctx, o, order.StatusPendingPayment, err)
	}

	o.PaymentMethod = res.Method
	o.PaymentStatus = string(res.Status)
	o.PaymentReference = res.Reference
	o.FellBack = res.FellBack
	o.UpdatedAt = s.now().UTC()
	switch res.Status {
	case payments.StatusPaid:
		o.Status = order.StatusPaid
		s.settle(ctx, &o, user, notification.KindOrderPaid)
	case payments.StatusDueOnDelivery:
		o.Status = order.StatusConfirmed
		s.settle(ctx, &o, user, notification.KindOrderConfirmed)
	case payments.StatusAwaitingRedirect:
		o.Status = order.StatusAwaitingPayment
		o.RedirectURL = res.RedirectURL
		notification.SendLogged(ctx, s.Notifier, s.Logger, notification.Message{
			Kind:        notification.KindPaymentPending,
			Destination: user.Phone,
			Body:        fmt.Sprintf("Finish paying order %s (%s %s) on %s", shortID(o.ID), o.Quote.Total.StringFixed(2), o.Quote.Currency, res.Method),
		})
	}

	if err := s.Orders.Update(ctx, o, order.StatusPendingPayment, o.Attempts); err != nil {
		return order.Order{}, fmt.Errorf("update order: %w", err)
	}
	s.Metrics.Checkout(string(method), string(o.Status))
	return o, nil
}

func (s *Service) fail(ctx context.Context, o order.Order, expected order.Status, cause error) (order.Order, error) {
	s.Logger.WarnContext(ctx, "order payment failed",
		slog.String("order_id", o.ID),
		slog.String("method", string(o.PaymentMethod)),
		slog.Any("error", cause),
	)
	o.Status = order.StatusPaymentFailed
	o.PaymentStatus = paymentStatusFailed
	o.RedirectURL = ""
	o.FailureReason = cause.Error()
	o.UpdatedAt = s.now().UTC()
	if err := s.Orders.Update(ctx, o, expected, o.Attempts); err != nil {
		return order.Order{}, fmt.Errorf("update order: %w", err)
	}
	s.restorePoints(ctx, o)
	s.Metrics.Checkout(string(o.PaymentMethod), string(order.StatusPaymentFailed))
	return o, fmt.Errorf("%w: %w", ErrPaymentFailed, cause)
}

// settle accrues loyalty points, takes the sold units out of stock, removes
// the ordered lines from the cart and notifies the customer. Failures are
// logged: the payment already happened.
func (s *Service) settle(ctx context.Context, o *order.Order, user identity.User, kind string) {
	acc, err := s.Loyalty.Accrue(ctx, o.UserID, o.ID, o.Quote.Eligible)
	if err != nil {
		s.Logger.ErrorContext(ctx, "loyalty accrual failed", slog.String("order_id", o.ID), slog.Any("error", err))
	} else if !acc.Duplicate {
		o.PointsEarned = acc.Points
	}

	offerIDs := make([]string, 0, len(o.Items))
	for _, it := range o.Items {
		offerIDs = append(offerIDs, it.OfferID)
		if s.Stock == nil {
			continue
		}
		if err := s.Stock.TakeStock(ctx, it.OfferID, it.Quantity); err != nil {
			s.Logger.WarnContext(ctx, "stock update failed",
				slog.String("order_id", o.ID),
				slog.String("offer_id", it.OfferID),
				slog.Int("quantity", it.Quantity),
				slog.Any("error", err),
			)
		}
	}
	if err := s.Carts.Discard(ctx, o.UserID, offerIDs); err != nil {
		s.Logger.WarnContext(ctx, "clear cart failed", slog.String("order_id", o.ID), slog.Any("error", err))
	}

	body := fmt.Sprintf("Order %s paid: %s %s. You earned %d points.", shortID(o.ID), o.Quote.Total.StringFixed(2), o.Quote.Currency, o.PointsEarned)
	if kind == notification.KindOrderConfirmed {
		body = fmt.Sprintf("Order %s confirmed. Pay %s %s on delivery.", shortID(o.ID), o.Quote.Total.StringFixed(2), o.Quote.Currency)
	}
	notification.SendLogged(ctx, s.Notifier, s.Logger, notification.Message{Kind: kind, Destination: user.Phone, Body: body})
}

func (s *Service) load(ctx context.Context, userID string) (cart.Cart, identity.User, loyalty.Status, error) {
	user, err := s.Users.Get(ctx, userID)
	if err != nil {
		return cart.Cart{}, identity.User{}, loyalty.Status{}, err
	}
	c, err := s.Carts.Reprice(ctx, userID)
	if err != nil {
		return cart.Cart{}, identity.User{}, loyalty.Status{}, err
	}
	status, err := s.Loyalty.Status(ctx, userID)
	if err != nil {
		return cart.Cart{}, identity.User{}, loyalty.Status{}, err
	}
	return c, user, status, nil
}

func (s *Service) owned(ctx context.Context, userID, orderID string) (order.Order, error) {
	o, err := s.Orders.Get(ctx, orderID)
	if err != nil {
		return order.Order{}, err
	}
	if o.UserID != userID {
		return order.Order{}, order.ErrOrderNotFound
	}
	return o, nil
}

func (s *Service) restorePoints(ctx context.Context, o order.Order) {
	if err := s.Loyalty.Restore(ctx, o.UserID, pointsReference(o), o.PointsRedeemed); err != nil {
		s.Logger.ErrorContext(ctx, "restore points failed", slog.String("order_id", o.ID), slog.Any("error", err))
	}
}

func (s *Service) returnURL(method payments.Method, orderID string) string {
	return fmt.Sprintf("%s/api/v1/payments/%s/return?order_id=%s", s.PublicBaseURL, method, url.QueryEscape(orderID))
}

// pointsReference keys the order's points reservation to the payment
// attempt that made it.
func pointsReference(o order.Order) string {
	return fmt.Sprintf("%s:%d", o.ID, o.PointsAttempt)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
