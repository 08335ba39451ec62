package redisclient

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"booking-service/internal/models"

	"github.com/go-redis/redis/v8"
)

type Client struct {
	rdb *redis.Client
}

// NewClient creates a new Redis client
func NewClient(addr, password string, db int) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return &Client{rdb: rdb}, nil
}

// GetClient returns the underlying Redis client
func (c *Client) GetClient() *redis.Client {
	return c.rdb
}

// Close closes the Redis connection
func (c *Client) Close() error {
	return c.rdb.Close()
}

// GetVehicle retrieves a cached catalog vehicle. A cache miss returns
// redis.Nil wrapped in the error.
func (c *Client) GetVehicle(ctx context.Context, id int64) (*models.Vehicle, error) {
	key := fmt.Sprintf("vehicle:%d", id)

	data, err := c.rdb.Get(ctx, key).Bytes()
	if err != nil {
		return nil, fmt.Errorf("vehicle cache get: %w", err)
	}

	var vehicle models.Vehicle
	if err := json.Unmarshal(data, &vehicle); err != nil {
		return nil, fmt.Errorf("vehicle cache decode: %w", err)
	}
	return &vehicle, nil
}

// CacheVehicle stores a catalog vehicle with a TTL
func (c *Client) CacheVehicle(ctx context.Context, vehicle *models.Vehicle, ttl time.Duration) error {
	data, err := json.Marshal(vehicle)
	if err != nil {
		return fmt.Errorf("vehicle cache encode: %w", err)
	}

	key := fmt.Sprintf("vehicle:%d", vehicle.ID)
	return c.rdb.Set(ctx, key, data, ttl).Err()
}

// SeenDelivery reports whether a webhook event id was already settled.
// Best-effort fast path in front of the store's conditional update,
// which remains authoritative.
func (c *Client) SeenDelivery(ctx context.Context, eventID string) (bool, error) {
	n, err := c.rdb.Exists(ctx, webhookEventKey(eventID)).Result()
	if err != nil {
		return false, fmt.Errorf("webhook event lookup: %w", err)
	}
	return n > 0, nil
}

// MarkDelivered records a webhook event id after its transition is
// durable. Marking before the store work would let a transient store
// error turn a gateway retry into a false duplicate.
func (c *Client) MarkDelivered(ctx context.Context, eventID string, ttl time.Duration) error {
	return c.rdb.Set(ctx, webhookEventKey(eventID), "1", ttl).Err()
}

func webhookEventKey(eventID string) string {
	return fmt.Sprintf("webhook:event:%s", eventID)
}
