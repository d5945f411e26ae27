// Package cache holds the Redis-backed municipality lookup cache.
package cache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const municipalityKeyPrefix = "geo:municipality:"

// MunicipalityCache maps (state id, city name) to a municipality code.
// Only positive lookups are stored.
type MunicipalityCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewClient parses url and verifies the server answers a PING.
func NewClient(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis URL: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return client, nil
}

// NewMunicipalityCache constructs a cache whose entries expire after ttl.
func NewMunicipalityCache(client *redis.Client, ttl time.Duration) *MunicipalityCache {
	return &MunicipalityCache{client: client, ttl: ttl}
}

// Key returns the Redis key for a lookup. City names are matched exactly,
// so the name is not case-folded.
func Key(stateID int64, name string) string {
	return municipalityKeyPrefix + strconv.FormatInt(stateID, 10) + ":" + strings.TrimSpace(name)
}

// Get returns the cached code and whether it was present.
func (c *MunicipalityCache) Get(ctx context.Context, stateID int64, name string) (int64, bool, error) {
	raw, err := c.client.Get(ctx, Key(stateID, name)).Result()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	code, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, false, fmt.Errorf("corrupt cache entry %q: %w", raw, err)
	}
	return code, true, nil
}

// Set stores code for the lookup with the configured TTL.
func (c *MunicipalityCache) Set(ctx context.Context, stateID int64, name string, code int64) error {
	return c.client.Set(ctx, Key(stateID, name), strconv.FormatInt(code, 10), c.ttl).Err()
}

// Ping checks if the Redis connection is healthy.
func (c *MunicipalityCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}
