package wallet

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// ErrWalletNotFound is returned when no wallet matches the lookup.
var ErrWalletNotFound = errors.New("wallet not found")

// Wallet represents a customer's store-credit account backed by the ledger.
type Wallet struct {
	ID          string
	OwnerID     string
	AccountCode string
	Currency    string
	Status      string
	CreatedAt   time.Time
}

// Balance encapsulates available funds for a wallet.
type Balance struct {
	WalletID string
	Minor    int64
	Amount   decimal.Decimal
	AsOf     time.Time
}
