// Package pricing turns a cart into a priced quote: merchandise subtotal,
// loyalty discount, shipping, tax and the grand total.
package pricing

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/lakay-market/storefront/internal/cart"
	"github.com/lakay-market/storefront/internal/config"
)

// ShippingMethod selects how physical goods reach the customer.
type ShippingMethod string

const (
	ShippingStandard ShippingMethod = "standard"
	ShippingExpress  ShippingMethod = "express"
	ShippingPickup   ShippingMethod = "pickup"
)

var (
	// ErrUnknownShippingMethod is returned for a method outside standard/express/pickup.
	ErrUnknownShippingMethod = errors.New("unknown shipping method")
	// ErrNegativePoints is returned when a negative redemption is requested.
	ErrNegativePoints = errors.New("points to redeem must not be negative")
)

var (
	// PointValue is the discount one loyalty point buys.
	PointValue = decimal.NewFromInt(1)
	// MaxRedeemShare caps the loyalty discount as a share of the subtotal.
	MaxRedeemShare = decimal.RequireFromString("0.5")

	half = decimal.RequireFromString("0.5")
)

// Options carries the customer-specific inputs to a quote.
type Options struct {
	ShippingMethod  ShippingMethod
	UnionPlus       bool
	RedeemPoints    int64
	AvailablePoints int64
}

// Quote is a fully priced cart.
type Quote struct {
	Currency       string          `json:"currency"`
	Subtotal       decimal.Decimal `json:"subtotal"`
	Discount       decimal.Decimal `json:"discount"`
	PointsRedeemed int64           `json:"points_redeemed"`
	ShippingMethod ShippingMethod  `json:"shipping_method"`
	Shipping       decimal.Decimal `json:"shipping"`
	FreeShipping   bool            `json:"free_shipping"`
	Tax            decimal.Decimal `json:"tax"`
	Total          decimal.Decimal `json:"total"`
	// Eligible is the merchandise amount loyalty points accrue on.
	Eligible decimal.Decimal `json:"eligible"`
}

// Calculator prices carts with a fixed rule set.
type Calculator struct {
	rules config.Pricing
}

// NewCalculator builds a calculator from the configured pricing rules.
func NewCalculator(rules config.Pricing) *Calculator {
	return &Calculator{rules: rules}
}

// Currency returns the currency quotes are expressed in.
func (c *Calculator) Currency() string {
	return c.rules.Currency
}

// Quote prices the cart.
func (c *Calculator) Quote(ct cart.Cart, opts Options) (Quote, error) {
	if ct.IsEmpty() {
		return Quote{}, cart.ErrEmptyCart
	}
	if opts.ShippingMethod == "" {
		opts.ShippingMethod = ShippingStandard
	}
	switch opts.ShippingMethod {
	case ShippingStandard, ShippingExpress, ShippingPickup:
	default:
		return Quote{}, fmt.Errorf("%w: %q", ErrUnknownShippingMethod, opts.ShippingMethod)
	}
	if opts.RedeemPoints < 0 {
		return Quote{}, ErrNegativePoints
	}

	subtotal := decimal.Zero
	physicalSubtotal := decimal.Zero
	var physicalUnits int64
	for _, it := range ct.Items {
		line := it.LineTotal()
		subtotal = subtotal.Add(line)
		if it.RequiresShipping() {
			physicalSubtotal = physicalSubtotal.Add(line)
			physicalUnits += int64(it.Quantity)
		}
	}
	subtotal = subtotal.Round(2)

	points := redeemable(subtotal, opts.RedeemPoints, opts.AvailablePoints)
	discount := PointValue.Mul(decimal.NewFromInt(points))
	taxable := subtotal.Sub(discount)

	shipping, free := c.shipping(opts.ShippingMethod, physicalSubtotal, physicalUnits, opts.UnionPlus)
	tax := taxable.Mul(c.rules.TaxRate).Round(2)

	return Quote{
		Currency:       c.rules.Currency,
		Subtotal:       subtotal,
		Discount:       discount,
		PointsRedeemed: points,
		ShippingMethod: opts.ShippingMethod,
		Shipping:       shipping,
		FreeShipping:   free,
		Tax:            tax,
		Total:          taxable.Add(shipping).Add(tax).Round(2),
		Eligible:       taxable,
	}, nil
}

// redeemable caps a redemption at the available balance and at
// MaxRedeemShare of the subtotal, in whole points.
func redeemable(subtotal decimal.Decimal, requested, available int64) int64 {
	if requested <= 0 || available <= 0 {
		return 0
	}
	capAmount := subtotal.Mul(MaxRedeemShare).Div(PointValue).Floor().IntPart()
	points := requested
	if points > available {
		points = available
	}
	if points > capAmount {
		points = capAmount
	}
	return points
}

func (c *Calculator) shipping(method ShippingMethod, physicalSubtotal decimal.Decimal, units int64, unionPlus bool) (decimal.Decimal, bool) {
	if units == 0 || method == ShippingPickup {
		return decimal.Zero, false
	}
	standard := c.rules.ShippingBaseFee.Add(c.rules.ShippingPerItemFee.Mul(decimal.NewFromInt(units - 1)))
	if method == ShippingExpress {
		express := standard.Mul(c.rules.ExpressMultiplier)
		if unionPlus {
			express = express.Mul(half)
		}
		return express.Round(2), false
	}
	if unionPlus || physicalSubtotal.GreaterThanOrEqual(c.rules.FreeShippingThreshold) {
		return decimal.Zero, true
	}
	return standard.Round(2), false
}
