package order

import (
	"context"
	"sort"
	"sync"
)

type memoryRepository struct {
	mu     sync.RWMutex
	orders map[string]Order
}

// NewMemoryRepository builds an in-process order store for tests and local runs.
func NewMemoryRepository() Repository {
	return &memoryRepository{orders: make(map[string]Order)}
}

func (r *memoryRepository) Create(_ context.Context, o Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.orders[o.ID] = clone(o)
	return nil
}

func (r *memoryRepository) Get(_ context.Context, id string) (Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	o, ok := r.orders[id]
	if !ok {
		return Order{}, ErrOrderNotFound
	}
	return clone(o), nil
}

func (r *memoryRepository) Update(_ context.Context, o Order, expected Status, attempt int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	current, ok := r.orders[o.ID]
	if !ok {
		return ErrOrderNotFound
	}
	if current.Status != expected || current.Attempts != attempt {
		return ErrStaleOrder
	}
	r.orders[o.ID] = clone(o)
	return nil
}

func (r *memoryRepository) ListByUser(_ context.Context, userID string, limit int) ([]Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []Order
	for _, o := range r.orders {
		if o.UserID == userID {
			out = append(out, clone(o))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func clone(o Order) Order {
	o.Items = append(o.Items[:0:0], o.Items...)
	if o.ShippingAddress != nil {
		addr := *o.ShippingAddress
		o.ShippingAddress = &addr
	}
	return o
}
