package cache

import (
	"context"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

// BreakerConfig holds configuration for the cache circuit breaker
type BreakerConfig struct {
	Name        string
	MaxRequests uint32
	Interval    time.Duration
	Timeout     time.Duration
	// ReadyToTrip trips once MinRequests have been seen and the failure
	// ratio reaches FailureThreshold
	FailureThreshold float64
	MinRequests      uint32
}

// DefaultBreakerConfig returns the breaker settings used for remote caches.
func DefaultBreakerConfig(name string) BreakerConfig {
	return BreakerConfig{
		Name:             name,
		MaxRequests:      3,
		Interval:         30 * time.Second,
		Timeout:          15 * time.Second,
		FailureThreshold: 0.5,
		MinRequests:      5,
	}
}

// BreakerStore wraps a Store so a failing cache is skipped quickly instead
// of adding its timeout to every request. While open, every call fails with
// CACHE_UNAVAILABLE without touching the inner store.
type BreakerStore struct {
	inner  Store
	cb     *gobreaker.CircuitBreaker
	logger *zap.Logger
}

func NewBreakerStore(inner Store, config BreakerConfig, logger *zap.Logger) *BreakerStore {
	if logger == nil {
		logger = zap.NewNop()
	}

	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        config.Name,
		MaxRequests: config.MaxRequests,
		Interval:    config.Interval,
		Timeout:     config.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < config.MinRequests {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return failureRatio >= config.FailureThreshold
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn("Cache circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	})

	return &BreakerStore{inner: inner, cb: cb, logger: logger}
}

func (s *BreakerStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	type hit struct {
		value []byte
		found bool
	}

	res, err := s.cb.Execute(func() (interface{}, error) {
		value, found, err := s.inner.Get(ctx, key)
		return hit{value: value, found: found}, err
	})
	if err != nil {
		return nil, false, s.wrap("breaker.Get", err)
	}
	h := res.(hit)
	return h.value, h.found, nil
}

func (s *BreakerStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	_, err := s.cb.Execute(func() (interface{}, error) {
		return nil, s.inner.Set(ctx, key, value, ttl)
	})
	return s.wrap("breaker.Set", err)
}

func (s *BreakerStore) Delete(ctx context.Context, keys ...string) error {
	_, err := s.cb.Execute(func() (interface{}, error) {
		return nil, s.inner.Delete(ctx, keys...)
	})
	return s.wrap("breaker.Delete", err)
}

// Ping bypasses the breaker so health checks see the real state.
func (s *BreakerStore) Ping(ctx context.Context) error {
	return s.inner.Ping(ctx)
}

func (s *BreakerStore) Close() error {
	return s.inner.Close()
}

// State exposes the breaker state for health reporting.
func (s *BreakerStore) State() gobreaker.State {
	return s.cb.State()
}

func (s *BreakerStore) wrap(operation string, err error) error {
	switch err {
	case nil:
		return nil
	case gobreaker.ErrOpenState, gobreaker.ErrTooManyRequests:
		return unavailable(operation, err)
	default:
		// inner stores already return CACHE_UNAVAILABLE
		return err
	}
}
