// Package money converts between decimal amounts and the ledger's integer
// minor units.
package money

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// MinorDigits is the number of decimal places stored by the ledger (centimes).
const MinorDigits = 2

// ToMinor converts an amount to centimes. Amounts with sub-centime precision are rejected.
func ToMinor(amount decimal.Decimal) (int64, error) {
	shifted := amount.Shift(MinorDigits)
	if !shifted.Equal(shifted.Truncate(0)) {
		return 0, fmt.Errorf("amount %s has more than %d decimals", amount, MinorDigits)
	}
	return shifted.IntPart(), nil
}

// FromMinor converts centimes back to a decimal amount.
func FromMinor(minor int64) decimal.Decimal {
	return decimal.New(minor, -MinorDigits)
}

// Round rounds half away from zero to the ledger precision.
func Round(amount decimal.Decimal) decimal.Decimal {
	return amount.Round(MinorDigits)
}
