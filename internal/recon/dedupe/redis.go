// Package dedupe provides the Redis-backed fast-path duplicate filter used
// by the reconciliation applier. It is an optimization in front of the
// store's compare-and-set; entries may expire or be lost without affecting
// correctness.
package dedupe

import (
	"context"
	"fmt"
	"time"

	platformredis "github.com/KarimBkr/MyTsango/internal/platform/redis"
	"github.com/KarimBkr/MyTsango/internal/recon"
)

const defaultTTL = 72 * time.Hour

// RedisCache records processed provider event ids with a TTL.
type RedisCache struct {
	client *platformredis.Client
	ttl    time.Duration
}

func NewRedisCache(client *platformredis.Client) *RedisCache {
	return &RedisCache{client: client, ttl: defaultTTL}
}

func key(kind recon.Kind, eventID string) string {
	return fmt.Sprintf("recon:dedupe:%s:%s", kind, eventID)
}

func (c *RedisCache) Seen(ctx context.Context, kind recon.Kind, eventID string) (bool, error) {
	n, err := c.client.Exists(ctx, key(kind, eventID)).Result()
	if err != nil {
		return false, fmt.Errorf("dedupe exists: %w", err)
	}
	return n > 0, nil
}

func (c *RedisCache) Mark(ctx context.Context, kind recon.Kind, eventID string) error {
	if err := c.client.Set(ctx, key(kind, eventID), 1, c.ttl).Err(); err != nil {
		return fmt.Errorf("dedupe mark: %w", err)
	}
	return nil
}
