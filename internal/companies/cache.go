package companies

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// FlagCache keeps the per-company compliance flag in Redis so the gate check
// on every core operation does not hit the store.
type FlagCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewFlagCache instantiates the cache helper. A nil client disables caching.
func NewFlagCache(client *redis.Client, ttl time.Duration) *FlagCache {
	return &FlagCache{client: client, ttl: ttl}
}

func flagKey(companyID string) string {
	return "companies:compliance_flag:" + companyID
}

// Get returns the cached flag and whether the cache held a value.
func (c *FlagCache) Get(ctx context.Context, companyID string) (enabled, ok bool) {
	if c == nil || c.client == nil {
		return false, false
	}
	val, err := c.client.Get(ctx, flagKey(companyID)).Result()
	if err != nil {
		return false, false
	}
	return val == "1", true
}

// Set stores the flag for the configured TTL. Errors are ignored: the cache
// is an optimisation, the store stays authoritative.
func (c *FlagCache) Set(ctx context.Context, companyID string, enabled bool) {
	if c == nil || c.client == nil {
		return
	}
	val := "0"
	if enabled {
		val = "1"
	}
	_ = c.client.Set(ctx, flagKey(companyID), val, c.ttl).Err()
}

// Invalidate drops the cached flag after an update.
func (c *FlagCache) Invalidate(ctx context.Context, companyID string) {
	if c == nil || c.client == nil {
		return
	}
	_ = c.client.Del(ctx, flagKey(companyID)).Err()
}
