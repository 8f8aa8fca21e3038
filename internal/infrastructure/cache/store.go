// Package cache provides the key-value stores behind the graph read cache,
// the key factory for cached entities and the TTL calculator.
//
// Every store returns CACHE_UNAVAILABLE errors. Callers are expected to log
// and continue: the cache is never authoritative.
package cache

import (
	"context"
	"time"

	appErrors "github.com/xqvvu/yokg/internal/errors"
)

// Store is a byte-oriented cache with per-entry TTL.
type Store interface {
	// Get returns the value and true, or false on a miss.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// Set stores value under key for ttl. The value and its expiry are
	// written together.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// Delete removes keys. Missing keys are not an error.
	Delete(ctx context.Context, keys ...string) error
	Ping(ctx context.Context) error
	Close() error
}

// Provider names accepted by configuration.
const (
	ProviderMemory = "memory"
	ProviderRedis  = "redis"
	ProviderBadger = "badger"
	ProviderNone   = "none"
)

// NoopStore never holds anything. It is used when caching is disabled.
type NoopStore struct{}

func (NoopStore) Get(context.Context, string) ([]byte, bool, error)        { return nil, false, nil }
func (NoopStore) Set(context.Context, string, []byte, time.Duration) error { return nil }
func (NoopStore) Delete(context.Context, ...string) error                  { return nil }
func (NoopStore) Ping(context.Context) error                               { return nil }
func (NoopStore) Close() error                                             { return nil }

func unavailable(operation string, cause error) error {
	return appErrors.CacheUnavailable(appErrors.CodeCacheUnavailable, "cache operation failed").
		WithOperation(operation).
		WithCause(cause).
		WithDetails(cause.Error()).
		Build()
}
