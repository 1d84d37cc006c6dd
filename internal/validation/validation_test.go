package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	Phone  string `json:"phone" validate:"required,phone"`
	Amount string `json:"amount" validate:"required,money"`
	Method string `json:"method" validate:"oneof=card wallet"`
	Qty    int    `json:"quantity" validate:"min=1"`
}

func TestStructAcceptsValid(t *testing.T) {
	err := Struct(sample{Phone: "+50937000000", Amount: "125.50", Method: "card", Qty: 1})
	assert.NoError(t, err)
}

func TestStructNamesJSONFields(t *testing.T) {
	err := Struct(sample{Phone: "abc", Amount: "1.234", Method: "cash", Qty: 0})
	require.Error(t, err)

	assert.ErrorIs(t, err, ErrInvalid)
	msg := err.Error()
	assert.Contains(t, msg, "phone must be a phone number")
	assert.Contains(t, msg, "amount must be a positive amount")
	assert.Contains(t, msg, "method must be one of [card wallet]")
	assert.Contains(t, msg, "quantity must be at least 1")
}

func TestStructRejectsNonPositiveMoney(t *testing.T) {
	err := Struct(sample{Phone: "50937000000", Amount: "0", Method: "wallet", Qty: 2})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "amount")
}
