package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const cartKeyPrefix = "cart:v1:"

// Repository stores session carts.
type Repository interface {
	// Get returns the user's cart, or an empty cart when none is stored.
	Get(ctx context.Context, userID string) (Cart, error)
	Save(ctx context.Context, cart Cart) error
	Delete(ctx context.Context, userID string) error
}

// RedisRepository keeps carts as JSON documents that expire after ttl of inactivity.
type RedisRepository struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisRepository builds a Redis-backed cart store.
func NewRedisRepository(client *redis.Client, ttl time.Duration) *RedisRepository {
	return &RedisRepository{client: client, ttl: ttl}
}

// Get loads a cart.
func (r *RedisRepository) Get(ctx context.Context, userID string) (Cart, error) {
	raw, err := r.client.Get(ctx, cartKeyPrefix+userID).Bytes()
	if errors.Is(err, redis.Nil) {
		return Cart{UserID: userID}, nil
	}
	if err != nil {
		return Cart{}, fmt.Errorf("load cart: %w", err)
	}
	var c Cart
	if err := json.Unmarshal(raw, &c); err != nil {
		return Cart{}, fmt.Errorf("decode cart: %w", err)
	}
	return c, nil
}

// Save stores a cart and refreshes its expiry.
func (r *RedisRepository) Save(ctx context.Context, c Cart) error {
	payload, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("encode cart: %w", err)
	}
	if err := r.client.Set(ctx, cartKeyPrefix+c.UserID, payload, r.ttl).Err(); err != nil {
		return fmt.Errorf("save cart: %w", err)
	}
	return nil
}

// Delete removes a cart.
func (r *RedisRepository) Delete(ctx context.Context, userID string) error {
	return r.client.Del(ctx, cartKeyPrefix+userID).Err()
}
