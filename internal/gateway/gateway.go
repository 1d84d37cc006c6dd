// Package gateway holds the clients for the external payment collaborators:
// the card processor and the MonCash and NatCash mobile-money redirect APIs.
package gateway

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
)

var (
	// ErrUnavailable marks a transient failure: network errors, timeouts,
	// throttling and 5xx answers. Callers may retry or fall back.
	ErrUnavailable = errors.New("payment gateway unavailable")
	// ErrDeclined marks a terminal refusal of the payment.
	ErrDeclined = errors.New("payment declined")
	// ErrInvalidResponse marks an answer the client could not interpret.
	ErrInvalidResponse = errors.New("invalid gateway response")
	// ErrNotPaid is returned by VerifyPayment while the customer has not paid.
	ErrNotPaid = errors.New("payment not completed")
)

// Gateway names.
const (
	MonCashName = "moncash"
	NatCashName = "natcash"
)

// PaymentRequest starts a hosted mobile-money payment.
type PaymentRequest struct {
	OrderID   string
	Amount    decimal.Decimal
	Currency  string
	ReturnURL string
}

// Redirect is where the customer must go to approve the payment.
type Redirect struct {
	Gateway   string `json:"gateway"`
	Reference string `json:"reference"`
	URL       string `json:"url"`
}

// Verification identifies a payment to check after the customer returns.
type Verification struct {
	OrderID       string
	TransactionID string
}

// Confirmation is a verified, completed mobile-money payment.
type Confirmation struct {
	Gateway       string
	OrderID       string
	TransactionID string
	Amount        decimal.Decimal
	Payer         string
}

// RedirectGateway is a hosted payment page provider.
type RedirectGateway interface {
	Name() string
	CreatePayment(ctx context.Context, req PaymentRequest) (Redirect, error)
	VerifyPayment(ctx context.Context, v Verification) (Confirmation, error)
}
