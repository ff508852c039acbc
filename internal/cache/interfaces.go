package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

// Cache is the shared key/value cache. Entries are advisory: a miss or a
// backend failure only costs a trip to the source of truth.
type Cache interface {
	// Get retrieves a value by key. Returns ErrCacheMiss if not found.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores a value with the given TTL.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes a value by key.
	Delete(ctx context.Context, key string) error

	// Exists checks if a key exists in the cache.
	Exists(ctx context.Context, key string) (bool, error)

	// GetOrSet retrieves a value or computes and stores it if missing.
	GetOrSet(ctx context.Context, key string, ttl time.Duration, fn func() ([]byte, error)) ([]byte, error)

	// Ping checks that the backend is reachable.
	Ping(ctx context.Context) error

	// Clear removes all entries owned by this cache.
	Clear(ctx context.Context) error

	// Close releases background resources.
	Close() error
}

// ErrCacheMiss indicates the key was not found in cache.
var ErrCacheMiss = errors.New("cache miss")

// Keys shared between handlers and services.
const (
	KeyCategories = "categories:all"
)

// ExchangeRatesKey is the cache key for rates against base.
func ExchangeRatesKey(base string) string {
	return "fx:" + base
}

// GetJSON decodes a cached JSON value into v. It returns false on a miss,
// a backend error or undecodable data.
func GetJSON(ctx context.Context, c Cache, key string, v any) bool {
	if c == nil {
		return false
	}
	data, err := c.Get(ctx, key)
	if err != nil {
		return false
	}
	return json.Unmarshal(data, v) == nil
}

// SetJSON encodes v and stores it. Errors are returned for logging only.
func SetJSON(ctx context.Context, c Cache, key string, v any, ttl time.Duration) error {
	if c == nil {
		return nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.Set(ctx, key, data, ttl)
}
