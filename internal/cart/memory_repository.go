package cart

import (
	"context"
	"sync"
)

type memoryRepository struct {
	mu    sync.RWMutex
	carts map[string]Cart
}

// NewMemoryRepository builds an in-process cart store for tests and local runs.
func NewMemoryRepository() Repository {
	return &memoryRepository{carts: make(map[string]Cart)}
}

func (r *memoryRepository) Get(_ context.Context, userID string) (Cart, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.carts[userID]
	if !ok {
		return Cart{UserID: userID}, nil
	}
	c.Items = append([]Item(nil), c.Items...)
	return c, nil
}

func (r *memoryRepository) Save(_ context.Context, c Cart) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c.Items = append([]Item(nil), c.Items...)
	r.carts[c.UserID] = c
	return nil
}

func (r *memoryRepository) Delete(_ context.Context, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.carts, userID)
	return nil
}
