package redisclient

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
)

// Client mirrors per-flavor inventory counts into Redis so dashboards can
// read stock without touching the state document. The document stays the
// source of truth; the mirror is best-effort.
type Client struct {
	rdb *redis.Client
}

// NewClient creates a new Redis client.
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

// Close closes the Redis connection.
func (c *Client) Close() error {
	return c.rdb.Close()
}

func stockKey(flavor string) string {
	return fmt.Sprintf("inventory:%s", flavor)
}

// SyncInventory replaces the mirrored counts with the given snapshot.
func (c *Client) SyncInventory(ctx context.Context, counts map[string]int) error {
	pipe := c.rdb.Pipeline()
	for flavor, count := range counts {
		pipe.Set(ctx, stockKey(flavor), count, 0)
	}
	_, err := pipe.Exec(ctx)
	if err != nil {
		return fmt.Errorf("inventory sync failed: %w", err)
	}
	return nil
}

// GetStock reads one mirrored count.
func (c *Client) GetStock(ctx context.Context, flavor string) (int, error) {
	val, err := c.rdb.Get(ctx, stockKey(flavor)).Result()
	if err != nil {
		return 0, err
	}
	count, err := strconv.Atoi(val)
	if err != nil {
		return 0, fmt.Errorf("unexpected stock value for %s: %w", flavor, err)
	}
	return count, nil
}
