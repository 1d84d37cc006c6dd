package cart

import (
	"context"
	"fmt"
	"time"

	"github.com/lakay-market/storefront/internal/catalog"
	"github.com/lakay-market/storefront/internal/validation"
)

// OfferSource resolves offers that may be sold.
type OfferSource interface {
	Sellable(ctx context.Context, id string) (catalog.Offer, error)
}

// Service manipulates session carts.
type Service struct {
	repo   Repository
	offers OfferSource
	now    func() time.Time
}

// NewService builds a cart service.
func NewService(repo Repository, offers OfferSource) *Service {
	return &Service{repo: repo, offers: offers, now: time.Now}
}

// AddItemInput adds an offer to the cart.
type AddItemInput struct {
	OfferID  string `json:"offer_id" validate:"required,uuid"`
	Quantity int    `json:"quantity" validate:"min=1,max=99"`
	Duration int    `json:"duration" validate:"min=0,max=365"`
}

// UpdateItemInput changes an existing line. Quantity 0 removes the line.
type UpdateItemInput struct {
	Quantity int `json:"quantity" validate:"min=0,max=99"`
	Duration int `json:"duration" validate:"min=0,max=365"`
}

// Get returns the user's cart.
func (s *Service) Get(ctx context.Context, userID string) (Cart, error) {
	return s.repo.Get(ctx, userID)
}

// AddItem puts an offer in the cart. Adding an offer already present
// increases its quantity and replaces its duration when one is given.
func (s *Service) AddItem(ctx context.Context, userID string, in AddItemInput) (Cart, error) {
	if in.Quantity == 0 {
		in.Quantity = 1
	}
	if err := validation.Struct(in); err != nil {
		return Cart{}, err
	}
	offer, err := s.offers.Sellable(ctx, in.OfferID)
	if err != nil {
		return Cart{}, err
	}
	c, err := s.repo.Get(ctx, userID)
	if err != nil {
		return Cart{}, err
	}

	line := Item{
		OfferID:   offer.ID,
		SellerID:  offer.SellerID,
		Title:     offer.Title,
		Kind:      offer.Kind,
		PriceUnit: offer.PriceUnit,
		UnitPrice: offer.Price,
		Quantity:  in.Quantity,
		Duration:  in.Duration,
	}
	if idx := c.indexOf(offer.ID); idx >= 0 {
		line.Quantity += c.Items[idx].Quantity
		if line.Duration == 0 {
			line.Duration = c.Items[idx].Duration
		}
		if err := checkLine(offer, line); err != nil {
			return Cart{}, err
		}
		c.Items[idx] = line
	} else {
		if err := checkLine(offer, line); err != nil {
			return Cart{}, err
		}
		c.Items = append(c.Items, line)
	}
	return s.save(ctx, c)
}

// UpdateItem sets the quantity (and optionally duration) of a line.
func (s *Service) UpdateItem(ctx context.Context, userID, offerID string, in UpdateItemInput) (Cart, error) {
	if err := validation.Struct(in); err != nil {
		return Cart{}, err
	}
	c, err := s.repo.Get(ctx, userID)
	if err != nil {
		return Cart{}, err
	}
	idx := c.indexOf(offerID)
	if idx < 0 {
		return Cart{}, ErrItemNotFound
	}
	if in.Quantity == 0 {
		c.Items = append(c.Items[:idx], c.Items[idx+1:]...)
		return s.save(ctx, c)
	}

	offer, err := s.offers.Sellable(ctx, offerID)
	if err != nil {
		return Cart{}, err
	}
	line := c.Items[idx]
	line.Quantity = in.Quantity
	if in.Duration > 0 {
		line.Duration = in.Duration
	}
	line.UnitPrice = offer.Price
	if err := checkLine(offer, line); err != nil {
		return Cart{}, err
	}
	c.Items[idx] = line
	return s.save(ctx, c)
}

// RemoveItem drops a line from the cart.
func (s *Service) RemoveItem(ctx context.Context, userID, offerID string) (Cart, error) {
	c, err := s.repo.Get(ctx, userID)
	if err != nil {
		return Cart{}, err
	}
	idx := c.indexOf(offerID)
	if idx < 0 {
		return Cart{}, ErrItemNotFound
	}
	c.Items = append(c.Items[:idx], c.Items[idx+1:]...)
	return s.save(ctx, c)
}

// Discard removes the given offers from the cart, ignoring offers no longer
// in it. Checkout uses it so lines added after an order was placed survive.
func (s *Service) Discard(ctx context.Context, userID string, offerIDs []string) error {
	c, err := s.repo.Get(ctx, userID)
	if err != nil {
		return err
	}
	drop := make(map[string]struct{}, len(offerIDs))
	for _, id := range offerIDs {
		drop[id] = struct{}{}
	}
	kept := c.Items[:0]
	for _, it := range c.Items {
		if _, ok := drop[it.OfferID]; !ok {
			kept = append(kept, it)
		}
	}
	if len(kept) == 0 {
		return s.repo.Delete(ctx, userID)
	}
	c.Items = kept
	_, err = s.save(ctx, c)
	return err
}

// Clear empties the cart.
func (s *Service) Clear(ctx context.Context, userID string) error {
	return s.repo.Delete(ctx, userID)
}

// Reprice reloads every line against the live catalog so checkout never
// charges a stale price. It fails if any offer was withdrawn or sold out.
func (s *Service) Reprice(ctx context.Context, userID string) (Cart, error) {
	c, err := s.repo.Get(ctx, userID)
	if err != nil {
		return Cart{}, err
	}
	if c.IsEmpty() {
		return Cart{}, ErrEmptyCart
	}
	for i, line := range c.Items {
		offer, err := s.offers.Sellable(ctx, line.OfferID)
		if err != nil {
			return Cart{}, fmt.Errorf("%s: %w", line.Title, err)
		}
		line.UnitPrice = offer.Price
		line.Title = offer.Title
		if err := checkLine(offer, line); err != nil {
			return Cart{}, fmt.Errorf("%s: %w", line.Title, err)
		}
		c.Items[i] = line
	}
	return c, nil
}

func (s *Service) save(ctx context.Context, c Cart) (Cart, error) {
	c.UpdatedAt = s.now().UTC()
	if err := s.repo.Save(ctx, c); err != nil {
		return Cart{}, err
	}
	return c, nil
}

func checkLine(offer catalog.Offer, line Item) error {
	if line.Quantity > maxQuantity {
		return fmt.Errorf("%w: quantity must be at most %d", validation.ErrInvalid, maxQuantity)
	}
	if offer.PriceUnit.RequiresDuration() && line.Duration <= 0 {
		return ErrDurationRequired
	}
	if !offer.InStock(line.Quantity) {
		return ErrOutOfStock
	}
	return nil
}
