package order

import (
	"errors"
	"time"

	"github.com/lakay-market/storefront/internal/cart"
	"github.com/lakay-market/storefront/internal/payments"
	"github.com/lakay-market/storefront/internal/pricing"
)

var (
	// ErrOrderNotFound is returned when no order matches the lookup.
	ErrOrderNotFound = errors.New("order not found")
	// ErrStaleOrder is returned when the order changed state concurrently.
	ErrStaleOrder = errors.New("order was modified concurrently")
)

// Status is the lifecycle state of an order.
type Status string

const (
	StatusPendingPayment  Status = "pending_payment"
	StatusAwaitingPayment Status = "awaiting_payment"
	StatusPaid            Status = "paid"
	StatusConfirmed       Status = "confirmed"
	StatusPaymentFailed   Status = "payment_failed"
	StatusCancelled       Status = "cancelled"
)

// Address is a Haitian delivery address.
type Address struct {
	Name       string `json:"name" validate:"required,max=120"`
	Phone      string `json:"phone" validate:"required,phone"`
	Line1      string `json:"line1" validate:"required,max=200"`
	City       string `json:"city" validate:"required,max=80"`
	Department string `json:"department" validate:"omitempty,max=40"`
	Notes      string `json:"notes,omitempty" validate:"max=300"`
}

// Order is a placed checkout.
type Order struct {
	ID               string                 `json:"id"`
	UserID           string                 `json:"user_id"`
	Items            []cart.Item            `json:"items"`
	Quote            pricing.Quote          `json:"quote"`
	PaymentMethod    payments.Method        `json:"payment_method"`
	PaymentStatus    string                 `json:"payment_status"`
	Status           Status                 `json:"status"`
	PaymentReference string                 `json:"payment_reference,omitempty"`
	RedirectURL      string                 `json:"redirect_url,omitempty"`
	ShippingMethod   pricing.ShippingMethod `json:"shipping_method"`
	ShippingAddress  *Address               `json:"shipping_address,omitempty"`
	PointsRedeemed   int64                  `json:"points_redeemed"`
	PointsEarned     int64                  `json:"points_earned"`
	Attempts         int                    `json:"attempts"`
	PointsAttempt    int                    `json:"-"`
	FellBack         bool                   `json:"fell_back"`
	FailureReason    string                 `json:"failure_reason,omitempty"`
	CreatedAt        time.Time              `json:"created_at"`
	UpdatedAt        time.Time              `json:"updated_at"`
}

// Payable reports whether a payment may be (re)attempted. An order in
// pending_payment has a dispatch in flight and is neither payable nor
// cancellable until it settles.
func (o Order) Payable() bool {
	return o.Status == StatusPaymentFailed || o.Status == StatusAwaitingPayment
}

// Cancellable reports whether the customer may still cancel.
func (o Order) Cancellable() bool {
	return o.Status == StatusAwaitingPayment || o.Status == StatusPaymentFailed
}

// Settled reports whether the order needs no further payment.
func (o Order) Settled() bool {
	return o.Status == StatusPaid || o.Status == StatusConfirmed
}
