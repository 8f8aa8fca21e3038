package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	appErrors "github.com/xqvvu/yokg/internal/errors"
	"github.com/xqvvu/yokg/internal/infrastructure/cache"
	"github.com/xqvvu/yokg/internal/infrastructure/observability"
)

// Cache entity kinds, used in logs and metric labels.
const (
	kindNode      = "node"
	kindNeighbors = "neighbors"
	kindSubgraph  = "subgraph"
)

// cacheAside wraps a cache.Store with the read-through and invalidation
// rules of the graph service. Cache failures never reach the caller.
type cacheAside struct {
	store   cache.Store
	ttl     *cache.TTLCalculator
	policy  atomic.Pointer[CachePolicy]
	metrics *observability.Collector
	logger  *zap.Logger

	// collapses concurrent misses on one key into a single store query
	group singleflight.Group
	// background writes, waited on by drain
	pending sync.WaitGroup
	// bumped before every invalidation; a write that raced one is undone
	epoch atomic.Uint64
}

func newCacheAside(store cache.Store, ttl *cache.TTLCalculator, policy CachePolicy, metrics *observability.Collector, logger *zap.Logger) *cacheAside {
	if store == nil {
		store = cache.NoopStore{}
	}
	c := &cacheAside{
		store:   store,
		ttl:     ttl,
		metrics: metrics,
		logger:  logger,
	}
	c.policy.Store(&policy)
	return c
}

func (c *cacheAside) currentPolicy() CachePolicy {
	return *c.policy.Load()
}

func (c *cacheAside) ttlFor(kind string) TTL {
	p := c.currentPolicy()
	switch kind {
	case kindNeighbors:
		return p.Neighbors
	case kindSubgraph:
		return p.Subgraph
	default:
		return p.Node
	}
}

// lookup returns the cached value for key. Any failure counts as a miss.
func lookup[T any](ctx context.Context, c *cacheAside, kind, key string) (T, bool) {
	var out T
	data, found, err := c.store.Get(ctx, key)
	if err != nil {
		c.metrics.CacheError("get")
		c.logger.Warn("Cache read failed", zap.String("key", key), zap.Error(err))
		return out, false
	}
	if !found {
		c.metrics.CacheMiss(kind)
		c.logger.Debug("Cache miss", zap.String("key", key))
		return out, false
	}
	if err := json.Unmarshal(data, &out); err != nil {
		c.metrics.CacheError("decode")
		c.logger.Warn("Discarding undecodable cache entry", zap.String("key", key), zap.Error(err))
		var zero T
		return zero, false
	}
	c.metrics.CacheHit(kind)
	c.logger.Debug("Cache hit", zap.String("key", key))
	return out, true
}

// readThrough serves key from the cache or calls load, then schedules a
// cache write for the loaded value without waiting for it.
func readThrough[T any](ctx context.Context, c *cacheAside, kind, key string, load func(context.Context) (T, error)) (T, error) {
	if cached, ok := lookup[T](ctx, c, kind, key); ok {
		return cached, nil
	}

	// A read that starts after an invalidation must not join a flight that
	// began before it, so the flight is per key and epoch.
	epoch := c.epoch.Load()
	flight := key + "@" + strconv.FormatUint(epoch, 10)

	v, err, _ := c.group.Do(flight, func() (any, error) {
		// Joined callers share this load, so the leader going away must not
		// fail it for the rest. The leader's deadline still applies.
		loadCtx := context.WithoutCancel(ctx)
		if deadline, ok := ctx.Deadline(); ok {
			var cancel context.CancelFunc
			loadCtx, cancel = context.WithDeadline(loadCtx, deadline)
			defer cancel()
		}
		value, err := load(loadCtx)
		if err != nil {
			return nil, err
		}
		c.populate(loadCtx, kind, key, value, epoch)
		return value, nil
	})
	var zero T
	if err != nil {
		return zero, err
	}
	value, ok := v.(T)
	if !ok {
		return zero, appErrors.Internal(appErrors.CodeInternal, "unexpected loaded value").
			WithOperation("readThrough").
			WithResource(kind, key).
			WithDetails(fmt.Sprintf("%T", v)).
			Build()
	}
	return value, nil
}

// populate writes value in the background. epoch is the invalidation count
// observed before value was loaded.
func (c *cacheAside) populate(ctx context.Context, kind, key string, value any, epoch uint64) {
	ttl := c.ttlFor(kind)
	timeout := c.currentPolicy().WriteTimeout

	c.pending.Add(1)
	go func() {
		defer c.pending.Done()

		if c.epoch.Load() != epoch {
			return
		}
		duration, err := c.ttl.Duration(ttl.Quantity, ttl.Unit)
		if err != nil {
			c.logger.Error("Cache TTL misconfigured", zap.String("kind", kind), zap.Stringer("ttl", ttl), zap.Error(err))
			return
		}
		data, err := json.Marshal(value)
		if err != nil {
			c.metrics.CacheError("encode")
			c.logger.Warn("Cache encode failed", zap.String("key", key), zap.Error(err))
			return
		}

		writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
		defer cancel()
		if err := c.store.Set(writeCtx, key, data, duration); err != nil {
			c.metrics.CacheError("set")
			c.logger.Warn("Cache write failed", zap.String("key", key), zap.Error(err))
			return
		}
		// an invalidation ran while we were writing
		if c.epoch.Load() != epoch {
			if err := c.store.Delete(writeCtx, key); err != nil {
				c.metrics.CacheError("delete")
				c.logger.Warn("Failed to undo cache write that raced an invalidation",
					zap.String("key", key),
					zap.Error(err),
				)
			}
		}
	}()
}

// invalidate deletes keys and waits for the delete. Failures are logged.
func (c *cacheAside) invalidate(ctx context.Context, reason string, keys []string) {
	if len(keys) == 0 {
		return
	}
	c.epoch.Add(1)

	deleteCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.currentPolicy().WriteTimeout)
	defer cancel()

	start := time.Now()
	if err := c.store.Delete(deleteCtx, keys...); err != nil {
		c.metrics.CacheError("delete")
		c.logger.Warn("Cache invalidation failed",
			zap.String("reason", reason),
			zap.Strings("keys", keys),
			zap.Error(err),
		)
		return
	}
	c.metrics.CacheInvalidated(reason, len(keys))
	c.logger.Debug("Cache invalidated",
		zap.String("reason", reason),
		zap.Int("keys", len(keys)),
		zap.Duration("took", time.Since(start)),
	)
}

func (c *cacheAside) drain() {
	c.pending.Wait()
}
