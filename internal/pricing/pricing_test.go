package pricing

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lakay-market/storefront/internal/cart"
	"github.com/lakay-market/storefront/internal/catalog"
	"github.com/lakay-market/storefront/internal/config"
)

func rules() config.Pricing {
	return config.Pricing{
		Currency:              "HTG",
		TaxRate:               decimal.RequireFromString("0.10"),
		ShippingBaseFee:       decimal.NewFromInt(150),
		ShippingPerItemFee:    decimal.NewFromInt(25),
		FreeShippingThreshold: decimal.NewFromInt(5000),
		ExpressMultiplier:     decimal.NewFromInt(2),
	}
}

func physical(price string, qty int) cart.Item {
	return cart.Item{Kind: catalog.KindPhysical, PriceUnit: catalog.PerItem, UnitPrice: decimal.RequireFromString(price), Quantity: qty}
}

func digital(price string) cart.Item {
	return cart.Item{Kind: catalog.KindDigital, PriceUnit: catalog.PerItem, UnitPrice: decimal.RequireFromString(price), Quantity: 1}
}

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func assertMoney(t *testing.T, want string, got decimal.Decimal, field string) {
	t.Helper()
	assert.Truef(t, d(want).Equal(got), "%s: want %s got %s", field, want, got)
}

func TestQuoteStandardShipping(t *testing.T) {
	calc := NewCalculator(rules())
	q, err := calc.Quote(cart.Cart{Items: []cart.Item{physical("1000", 3), digital("200")}}, Options{})
	require.NoError(t, err)

	assertMoney(t, "3200", q.Subtotal, "subtotal")
	assertMoney(t, "200", q.Shipping, "shipping")
	assertMoney(t, "320", q.Tax, "tax")
	assertMoney(t, "3720", q.Total, "total")
	assert.Equal(t, ShippingStandard, q.ShippingMethod)
	assert.False(t, q.FreeShipping)
}

func TestQuoteFreeShippingAtThreshold(t *testing.T) {
	calc := NewCalculator(rules())
	q, err := calc.Quote(cart.Cart{Items: []cart.Item{physical("2500", 2)}}, Options{ShippingMethod: ShippingStandard})
	require.NoError(t, err)
	assert.True(t, q.FreeShipping)
	assertMoney(t, "0", q.Shipping, "shipping")
	assertMoney(t, "5500", q.Total, "total")
}

func TestQuoteDigitalOnlyHasNoShipping(t *testing.T) {
	calc := NewCalculator(rules())
	q, err := calc.Quote(cart.Cart{Items: []cart.Item{digital("99.99")}}, Options{ShippingMethod: ShippingExpress})
	require.NoError(t, err)
	assertMoney(t, "0", q.Shipping, "shipping")
	assertMoney(t, "10", q.Tax, "tax")
	assertMoney(t, "109.99", q.Total, "total")
}

func TestQuoteExpressAndUnionPlus(t *testing.T) {
	calc := NewCalculator(rules())
	c := cart.Cart{Items: []cart.Item{physical("6000", 2)}}

	q, err := calc.Quote(c, Options{ShippingMethod: ShippingExpress})
	require.NoError(t, err)
	assertMoney(t, "350", q.Shipping, "express ignores free threshold")

	q, err = calc.Quote(c, Options{ShippingMethod: ShippingExpress, UnionPlus: true})
	require.NoError(t, err)
	assertMoney(t, "175", q.Shipping, "union plus express")

	small := cart.Cart{Items: []cart.Item{physical("100", 1)}}
	q, err = calc.Quote(small, Options{UnionPlus: true})
	require.NoError(t, err)
	assert.True(t, q.FreeShipping)
	assertMoney(t, "0", q.Shipping, "union plus standard")
}

func TestQuotePickup(t *testing.T) {
	calc := NewCalculator(rules())
	q, err := calc.Quote(cart.Cart{Items: []cart.Item{physical("100", 4)}}, Options{ShippingMethod: ShippingPickup})
	require.NoError(t, err)
	assertMoney(t, "0", q.Shipping, "pickup")
}

func TestQuoteRedeemsPointsWithinCaps(t *testing.T) {
	calc := NewCalculator(rules())
	c := cart.Cart{Items: []cart.Item{digital("1000")}}

	q, err := calc.Quote(c, Options{RedeemPoints: 300, AvailablePoints: 1000})
	require.NoError(t, err)
	assert.Equal(t, int64(300), q.PointsRedeemed)
	assertMoney(t, "300", q.Discount, "discount")
	assertMoney(t, "70", q.Tax, "tax after discount")
	assertMoney(t, "770", q.Total, "total")
	assertMoney(t, "700", q.Eligible, "eligible")

	q, err = calc.Quote(c, Options{RedeemPoints: 900, AvailablePoints: 1000})
	require.NoError(t, err)
	assert.Equal(t, int64(500), q.PointsRedeemed, "capped at half the subtotal")

	q, err = calc.Quote(c, Options{RedeemPoints: 400, AvailablePoints: 120})
	require.NoError(t, err)
	assert.Equal(t, int64(120), q.PointsRedeemed, "capped at balance")
}

func TestQuoteDurationLines(t *testing.T) {
	calc := NewCalculator(rules())
	stay := cart.Item{Kind: catalog.KindTravel, PriceUnit: catalog.PerNight, UnitPrice: d("2500"), Quantity: 1, Duration: 3}
	q, err := calc.Quote(cart.Cart{Items: []cart.Item{stay}}, Options{})
	require.NoError(t, err)
	assertMoney(t, "7500", q.Subtotal, "subtotal")
	assertMoney(t, "8250", q.Total, "total")
}

func TestQuoteErrors(t *testing.T) {
	calc := NewCalculator(rules())
	_, err := calc.Quote(cart.Cart{}, Options{})
	assert.ErrorIs(t, err, cart.ErrEmptyCart)

	c := cart.Cart{Items: []cart.Item{digital("10")}}
	_, err = calc.Quote(c, Options{ShippingMethod: "drone"})
	assert.ErrorIs(t, err, ErrUnknownShippingMethod)

	_, err = calc.Quote(c, Options{RedeemPoints: -1})
	assert.ErrorIs(t, err, ErrNegativePoints)
}
