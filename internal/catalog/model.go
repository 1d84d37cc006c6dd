package catalog

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

var (
	// ErrOfferNotFound is returned when no offer matches the lookup.
	ErrOfferNotFound = errors.New("offer not found")
	// ErrOfferInactive is returned when an unpublished offer is requested for sale.
	ErrOfferInactive = errors.New("offer is not available")
	// ErrStockExhausted is returned when a sale would take stock below zero.
	ErrStockExhausted = errors.New("not enough stock left")
)

// Kind is the marketplace vertical an offer belongs to.
type Kind string

const (
	KindPhysical   Kind = "physical"
	KindDigital    Kind = "digital"
	KindService    Kind = "service"
	KindRental     Kind = "rental"
	KindRealEstate Kind = "real_estate"
	KindTravel     Kind = "travel"
	KindEducation  Kind = "education"
)

// Valid reports whether k is a known vertical.
func (k Kind) Valid() bool {
	switch k {
	case KindPhysical, KindDigital, KindService, KindRental, KindRealEstate, KindTravel, KindEducation:
		return true
	}
	return false
}

// PriceUnit is what one unit of Price buys.
type PriceUnit string

const (
	PerItem    PriceUnit = "item"
	PerDay     PriceUnit = "day"
	PerNight   PriceUnit = "night"
	PerSession PriceUnit = "session"
	PerMonth   PriceUnit = "month"
)

// Valid reports whether u is a known price unit.
func (u PriceUnit) Valid() bool {
	switch u {
	case PerItem, PerDay, PerNight, PerSession, PerMonth:
		return true
	}
	return false
}

// RequiresDuration reports whether a cart line needs a day/night/month count.
func (u PriceUnit) RequiresDuration() bool {
	return u == PerDay || u == PerNight || u == PerMonth
}

// Offer is a sellable unit: a product, a digital good, a service, a rental or a booking.
type Offer struct {
	ID        string          `json:"id"`
	SellerID  string          `json:"seller_id"`
	Title     string          `json:"title"`
	Kind      Kind            `json:"kind"`
	PriceUnit PriceUnit       `json:"price_unit"`
	Price     decimal.Decimal `json:"price"`
	Currency  string          `json:"currency"`
	// Stock is nil when the seller does not track inventory.
	Stock     *int      `json:"stock,omitempty"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

// RequiresShipping is true only for physical goods.
func (o Offer) RequiresShipping() bool {
	return o.Kind == KindPhysical
}

// InStock reports whether qty units can be sold.
func (o Offer) InStock(qty int) bool {
	return o.Stock == nil || *o.Stock >= qty
}

// Filter narrows List results.
type Filter struct {
	Kind   Kind
	Limit  int
	Offset int
}
