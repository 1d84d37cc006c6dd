package cart

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/lakay-market/storefront/internal/catalog"
)

const maxQuantity = 99

var (
	// ErrEmptyCart is returned when an operation needs at least one line.
	ErrEmptyCart = errors.New("cart is empty")
	// ErrItemNotFound is returned when the offer is not in the cart.
	ErrItemNotFound = errors.New("item not in cart")
	// ErrOutOfStock is returned when the requested quantity exceeds tracked stock.
	ErrOutOfStock = errors.New("not enough stock")
	// ErrDurationRequired is returned for day/night/month priced offers without a duration.
	ErrDurationRequired = errors.New("duration is required for this offer")
)

// Item is one cart line.
type Item struct {
	OfferID   string            `json:"offer_id"`
	SellerID  string            `json:"seller_id"`
	Title     string            `json:"title"`
	Kind      catalog.Kind      `json:"kind"`
	PriceUnit catalog.PriceUnit `json:"price_unit"`
	UnitPrice decimal.Decimal   `json:"unit_price"`
	Quantity  int               `json:"quantity"`
	// Duration counts days, nights or months for duration-priced offers; 0 otherwise.
	Duration int `json:"duration,omitempty"`
}

// BillableUnits is quantity times duration when the offer is priced per period.
func (i Item) BillableUnits() int64 {
	if i.PriceUnit.RequiresDuration() && i.Duration > 0 {
		return int64(i.Quantity) * int64(i.Duration)
	}
	return int64(i.Quantity)
}

// LineTotal is the undiscounted price of the line.
func (i Item) LineTotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(i.BillableUnits()))
}

// RequiresShipping is true for physical goods.
func (i Item) RequiresShipping() bool {
	return i.Kind == catalog.KindPhysical
}

// Cart is a customer's session cart.
type Cart struct {
	UserID    string    `json:"user_id"`
	Items     []Item    `json:"items"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Subtotal sums every line total.
func (c Cart) Subtotal() decimal.Decimal {
	sum := decimal.Zero
	for _, it := range c.Items {
		sum = sum.Add(it.LineTotal())
	}
	return sum
}

// IsEmpty reports whether the cart has no lines.
func (c Cart) IsEmpty() bool {
	return len(c.Items) == 0
}

// HasPhysical reports whether any line must be shipped.
func (c Cart) HasPhysical() bool {
	for _, it := range c.Items {
		if it.RequiresShipping() {
			return true
		}
	}
	return false
}

// AllPhysical reports whether every line must be shipped.
func (c Cart) AllPhysical() bool {
	if c.IsEmpty() {
		return false
	}
	for _, it := range c.Items {
		if !it.RequiresShipping() {
			return false
		}
	}
	return true
}

func (c Cart) indexOf(offerID string) int {
	for i, it := range c.Items {
		if it.OfferID == offerID {
			return i
		}
	}
	return -1
}
