package ledger

import (
	"context"
	"errors"
)

var (
	// ErrInsufficientFunds occurs when the source account lacks available balance
	// to cover a requested transfer.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrDuplicateTransaction indicates the provided client transaction identifier
	// already exists for the kind and therefore the operation should be treated as idempotent.
	ErrDuplicateTransaction = errors.New("duplicate transaction")

	// ErrAccountNotFound is returned when a posting references an unknown account code.
	ErrAccountNotFound = errors.New("account not found")

	// ErrInvalidAmount rejects zero or negative postings.
	ErrInvalidAmount = errors.New("amount must be positive")
)

const (
	// StatusPendingSettlement marks funds accepted from an external processor but not yet settled.
	StatusPendingSettlement = "pending_settlement"
	// StatusCompleted represents a settled transaction.
	StatusCompleted = "completed"

	// CardSuspenseAccountCode parks card top-ups until the acquirer settles them.
	CardSuspenseAccountCode = "suspense:card"
	// MerchantSettlementAccountCode receives wallet-paid orders.
	MerchantSettlementAccountCode = "merchant:settlement"
	// MembershipRevenueAccountCode receives Union Plus membership fees.
	MembershipRevenueAccountCode = "merchant:memberships"
	// LoyaltyIssuerAccountCode is the source of every loyalty point; it runs negative.
	LoyaltyIssuerAccountCode = "loyalty:issuer"
)

// SystemAccounts lists the accounts every ledger backend must hold before serving traffic.
var SystemAccounts = []string{
	CardSuspenseAccountCode,
	MerchantSettlementAccountCode,
	MembershipRevenueAccountCode,
	LoyaltyIssuerAccountCode,
}

// TransactionResult captures the outcome of a ledger transfer.
type TransactionResult struct {
	TransactionID string
	FromBalance   int64
	ToBalance     int64
}

// Posting credits Account and debits Source without checking the source
// balance. It models value entering the system: card top-ups, point issuance.
type Posting struct {
	Account    string
	Source     string
	Kind       string
	ClientTxID string
	Amount     int64
	Status     string
}

// PostingResult captures the outcome of a Posting.
type PostingResult struct {
	TransactionID string
	Balance       int64
	Status        string
}

// Ledger defines the contract implemented by ledger backends. Amounts are in
// minor units (centimes for money, whole points for loyalty).
type Ledger interface {
	EnsureAccount(ctx context.Context, code string) error
	Balance(ctx context.Context, code string) (int64, error)
	Transfer(ctx context.Context, fromCode, toCode, kind, clientTxID string, amount int64) (TransactionResult, error)
	Post(ctx context.Context, posting Posting) (PostingResult, error)
	// Posted looks up a transaction already recorded under kind and
	// clientTxID. The returned result carries no balance.
	Posted(ctx context.Context, kind, clientTxID string) (PostingResult, bool, error)
}

// EnsureSystemAccounts creates the accounts listed in SystemAccounts.
func EnsureSystemAccounts(ctx context.Context, l Ledger) error {
	for _, code := range SystemAccounts {
		if err := l.EnsureAccount(ctx, code); err != nil {
			return err
		}
	}
	return nil
}

func txKey(kind, clientTxID string) string {
	return kind + ":" + clientTxID
}
