package catalog

import (
	"context"
	"errors"
	"sort"
	"sync"
)

type memoryRepository struct {
	mu     sync.RWMutex
	offers map[string]Offer
}

// NewMemoryRepository builds an in-memory offer store.
func NewMemoryRepository() Repository {
	return &memoryRepository{offers: make(map[string]Offer)}
}

func (r *memoryRepository) Create(_ context.Context, o Offer) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.offers[o.ID]; exists {
		return errors.New("offer exists")
	}
	r.offers[o.ID] = o
	return nil
}

func (r *memoryRepository) Get(_ context.Context, id string) (Offer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	o, ok := r.offers[id]
	if !ok {
		return Offer{}, ErrOfferNotFound
	}
	return o, nil
}

func (r *memoryRepository) TakeStock(_ context.Context, id string, qty int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.offers[id]
	if !ok {
		return ErrOfferNotFound
	}
	if o.Stock == nil {
		return nil
	}
	if *o.Stock < qty {
		return ErrStockExhausted
	}
	left := *o.Stock - qty
	o.Stock = &left
	r.offers[id] = o
	return nil
}

func (r *memoryRepository) List(_ context.Context, f Filter) ([]Offer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []Offer
	for _, o := range r.offers {
		if !o.Active || (f.Kind != "" && o.Kind != f.Kind) {
			continue
		}
		out = append(out, o)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if f.Offset >= len(out) {
		return nil, nil
	}
	out = out[f.Offset:]
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}
