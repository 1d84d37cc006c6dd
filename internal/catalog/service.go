package catalog

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/lakay-market/storefront/internal/validation"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// Service manages the offer catalog.
type Service struct {
	repo     Repository
	currency string
}

// NewService builds a catalog service pricing offers in currency.
func NewService(repo Repository, currency string) *Service {
	return &Service{repo: repo, currency: currency}
}

// CreateInput describes a new offer published by a seller.
type CreateInput struct {
	SellerID  string `json:"-"`
	Title     string `json:"title" validate:"required,max=200"`
	Kind      string `json:"kind" validate:"required,oneof=physical digital service rental real_estate travel education"`
	PriceUnit string `json:"price_unit" validate:"omitempty,oneof=item day night session month"`
	Price     string `json:"price" validate:"required,money"`
	Stock     *int   `json:"stock" validate:"omitempty,min=0"`
}

// Create validates and stores an offer.
func (s *Service) Create(ctx context.Context, in CreateInput) (Offer, error) {
	in.Title = strings.TrimSpace(in.Title)
	if err := validation.Struct(in); err != nil {
		return Offer{}, err
	}
	if _, err := uuid.Parse(in.SellerID); err != nil {
		return Offer{}, fmt.Errorf("invalid seller: %w", err)
	}
	unit := PriceUnit(in.PriceUnit)
	if unit == "" {
		unit = defaultUnit(Kind(in.Kind))
	}
	if Kind(in.Kind) == KindPhysical && unit != PerItem {
		return Offer{}, fmt.Errorf("physical offers are priced per item")
	}

	offer := Offer{
		ID:        uuid.NewString(),
		SellerID:  in.SellerID,
		Title:     in.Title,
		Kind:      Kind(in.Kind),
		PriceUnit: unit,
		Price:     decimal.RequireFromString(in.Price),
		Currency:  s.currency,
		Stock:     in.Stock,
		Active:    true,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.repo.Create(ctx, offer); err != nil {
		return Offer{}, err
	}
	return offer, nil
}

func defaultUnit(k Kind) PriceUnit {
	switch k {
	case KindRental:
		return PerDay
	case KindTravel:
		return PerNight
	case KindService, KindEducation:
		return PerSession
	case KindRealEstate:
		return PerMonth
	default:
		return PerItem
	}
}

// Get returns an offer by id.
func (s *Service) Get(ctx context.Context, id string) (Offer, error) {
	return s.repo.Get(ctx, id)
}

// Sellable returns an offer that can be added to a cart.
func (s *Service) Sellable(ctx context.Context, id string) (Offer, error) {
	o, err := s.repo.Get(ctx, id)
	if err != nil {
		return Offer{}, err
	}
	if !o.Active {
		return Offer{}, ErrOfferInactive
	}
	return o, nil
}

// TakeStock records the sale of qty units of an offer.
func (s *Service) TakeStock(ctx context.Context, id string, qty int) error {
	if qty <= 0 {
		return nil
	}
	return s.repo.TakeStock(ctx, id, qty)
}

// List returns active offers with pagination clamped to sane bounds.
func (s *Service) List(ctx context.Context, f Filter) ([]Offer, error) {
	if f.Kind != "" && !f.Kind.Valid() {
		return nil, fmt.Errorf("unknown kind %q", f.Kind)
	}
	if f.Limit <= 0 {
		f.Limit = defaultPageSize
	}
	if f.Limit > maxPageSize {
		f.Limit = maxPageSize
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	return s.repo.List(ctx, f)
}
