package gateway

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CardCharge is an authorization request sent to the card processor.
type CardCharge struct {
	Number    string
	Expiry    string
	CVV       string
	Amount    decimal.Decimal
	Currency  string
	Reference string
}

// Authorization is the processor's approval.
type Authorization struct {
	Reference string
	Status    string
}

// CardProcessor represents a connector to an external card processor.
type CardProcessor interface {
	Authorize(ctx context.Context, charge CardCharge) (Authorization, error)
}

// declinedSuffix marks test cards the static processor refuses.
const declinedSuffix = "0002"

// StaticCardProcessor simulates an acquirer: it approves every card except
// numbers ending in 0002.
type StaticCardProcessor struct{}

// Authorize approves the charge with a synthetic reference.
func (StaticCardProcessor) Authorize(_ context.Context, charge CardCharge) (Authorization, error) {
	if strings.HasSuffix(strings.ReplaceAll(charge.Number, " ", ""), declinedSuffix) {
		return Authorization{}, ErrDeclined
	}
	return Authorization{Reference: uuid.NewString(), Status: "approved"}, nil
}
