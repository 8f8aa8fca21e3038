package services

import (
	"fmt"
	"time"

	"github.com/xqvvu/yokg/internal/infrastructure/cache"
)

// TTL is a semantic cache lifetime such as "5 minutes" or "1 month".
type TTL struct {
	Quantity int64
	Unit     cache.Unit
}

func (t TTL) String() string {
	return fmt.Sprintf("%d %s", t.Quantity, t.Unit)
}

// CachePolicy sets the lifetime of each cached entity kind. Subgraphs live
// shortest since any nearby edit changes them.
type CachePolicy struct {
	Node      TTL
	Neighbors TTL
	Subgraph  TTL

	// WriteTimeout bounds each background cache write and invalidation.
	WriteTimeout time.Duration
}

// DefaultCachePolicy returns 5 minutes for nodes, 3 for neighbour sets and
// 2 for subgraphs.
func DefaultCachePolicy() CachePolicy {
	return CachePolicy{
		Node:         TTL{Quantity: 5, Unit: cache.UnitMinute},
		Neighbors:    TTL{Quantity: 3, Unit: cache.UnitMinute},
		Subgraph:     TTL{Quantity: 2, Unit: cache.UnitMinute},
		WriteTimeout: 2 * time.Second,
	}
}

// Validate resolves every TTL once so misconfiguration fails at startup.
func (p CachePolicy) Validate(calc *cache.TTLCalculator) error {
	for name, ttl := range map[string]TTL{"node": p.Node, "neighbors": p.Neighbors, "subgraph": p.Subgraph} {
		if _, err := calc.Duration(ttl.Quantity, ttl.Unit); err != nil {
			return fmt.Errorf("%s ttl: %w", name, err)
		}
	}
	if p.WriteTimeout <= 0 {
		return fmt.Errorf("cache write timeout must be positive")
	}
	return nil
}
