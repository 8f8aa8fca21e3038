package cache

import (
	"container/list"
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// MemoryStore is an in-process Store with LRU eviction and per-item TTL.
// It is safe for concurrent use and suited to single-instance deployments
// and tests.
type MemoryStore struct {
	mu          sync.Mutex
	items       map[string]*cacheItem
	lruList     *list.List
	maxItems    int
	maxMemory   int64
	currentSize int64
	now         func() time.Time

	// Statistics
	hits      int64
	misses    int64
	evictions int64

	stop   chan struct{}
	once   sync.Once
	logger *zap.Logger
}

type cacheItem struct {
	key        string
	value      []byte
	size       int64
	expiry     time.Time
	lruElement *list.Element
}

// MemoryOptions sizes a MemoryStore.
type MemoryOptions struct {
	MaxItems        int
	MaxMemory       int64
	CleanupInterval time.Duration
	// Now overrides the clock; tests use it to expire entries.
	Now func() time.Time
}

// NewMemoryStore creates a store and, when CleanupInterval is positive,
// starts a janitor goroutine that Close stops.
func NewMemoryStore(opts MemoryOptions, logger *zap.Logger) *MemoryStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.MaxItems <= 0 {
		opts.MaxItems = 10000
	}
	if opts.MaxMemory <= 0 {
		opts.MaxMemory = 64 << 20
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	s := &MemoryStore{
		items:     make(map[string]*cacheItem),
		lruList:   list.New(),
		maxItems:  opts.MaxItems,
		maxMemory: opts.MaxMemory,
		now:       opts.Now,
		stop:      make(chan struct{}),
		logger:    logger,
	}
	if opts.CleanupInterval > 0 {
		go s.runCleanup(opts.CleanupInterval)
	}
	return s
}

func (s *MemoryStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	item, exists := s.items[key]
	if !exists {
		s.misses++
		return nil, false, nil
	}

	if !s.now().Before(item.expiry) {
		s.removeItem(item)
		s.misses++
		return nil, false, nil
	}

	s.lruList.MoveToFront(item.lruElement)
	s.hits++

	// Return a copy to prevent external modifications
	value := make([]byte, len(item.value))
	copy(value, item.value)

	return value, true, nil
}

func (s *MemoryStore) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	itemSize := int64(len(key) + len(value))
	if itemSize > s.maxMemory {
		s.logger.Warn("Item too large for cache",
			zap.String("key", key),
			zap.Int64("size", itemSize),
			zap.Int64("max_memory", s.maxMemory),
		)
		return nil
	}

	if existing, exists := s.items[key]; exists {
		s.removeItem(existing)
	}

	for (s.currentSize+itemSize > s.maxMemory || len(s.items) >= s.maxItems) && s.lruList.Len() > 0 {
		oldest := s.lruList.Back()
		s.removeItem(oldest.Value.(*cacheItem))
		s.evictions++
	}

	item := &cacheItem{
		key:    key,
		value:  make([]byte, len(value)),
		size:   itemSize,
		expiry: s.now().Add(ttl),
	}
	copy(item.value, value)

	item.lruElement = s.lruList.PushFront(item)
	s.items[key] = item
	s.currentSize += itemSize

	return nil
}

func (s *MemoryStore) Delete(_ context.Context, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, key := range keys {
		if item, exists := s.items[key]; exists {
			s.removeItem(item)
		}
	}
	return nil
}

func (s *MemoryStore) Ping(context.Context) error { return nil }

// Close stops the cleanup goroutine. The store stays usable.
func (s *MemoryStore) Close() error {
	s.once.Do(func() { close(s.stop) })
	return nil
}

// removeItem must be called with the lock held.
func (s *MemoryStore) removeItem(item *cacheItem) {
	if item.lruElement != nil {
		s.lruList.Remove(item.lruElement)
	}
	delete(s.items, item.key)
	s.currentSize -= item.size
}

// Stats holds cache statistics
type Stats struct {
	Hits      int64
	Misses    int64
	Evictions int64
	Items     int
	Size      int64
	HitRate   float64
}

func (s *MemoryStore) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	hitRate := float64(0)
	if total := s.hits + s.misses; total > 0 {
		hitRate = float64(s.hits) / float64(total)
	}

	return Stats{
		Hits:      s.hits,
		Misses:    s.misses,
		Evictions: s.evictions,
		Items:     len(s.items),
		Size:      s.currentSize,
		HitRate:   hitRate,
	}
}

func (s *MemoryStore) runCleanup(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.cleanupExpired()
		case <-s.stop:
			return
		}
	}
}

func (s *MemoryStore) cleanupExpired() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	removed := 0
	for _, item := range s.items {
		if !now.Before(item.expiry) {
			s.removeItem(item)
			removed++
		}
	}

	if removed > 0 {
		s.logger.Debug("Cleaned up expired cache items", zap.Int("count", removed))
	}
}
