package di

import (
	"context"
	"errors"
	"net/http"
	"sync"

	"go.uber.org/zap"

	"github.com/xqvvu/yokg/internal/application/services"
	"github.com/xqvvu/yokg/internal/config"
	"github.com/xqvvu/yokg/internal/infrastructure/cache"
	"github.com/xqvvu/yokg/internal/infrastructure/observability"
	"github.com/xqvvu/yokg/internal/repository"
)

// Container holds all application dependencies.
type Container struct {
	Config     *config.Config
	Logging    *Logging
	Metrics    *observability.Collector
	Tracing    *observability.TracerProvider
	Cache      cache.Store
	Repository repository.GraphRepository
	Service    *services.GraphService
	Handler    http.Handler

	cleanup   func()
	closeOnce sync.Once
}

// New builds a container from cfg. Close releases everything it opened.
func New(ctx context.Context, cfg *config.Config) (*Container, error) {
	if cfg == nil {
		return nil, errors.New("configuration is required")
	}
	c, cleanup, err := InitializeContainer(ctx, cfg)
	if err != nil {
		return nil, err
	}
	c.cleanup = cleanup
	return c, nil
}

// Logger returns the root logger.
func (c *Container) Logger() *zap.Logger {
	return c.Logging.Logger
}

// ApplyConfig applies the settings that can change without a restart: the
// log level and the cache TTL policy. Everything else needs a restart and
// is ignored.
func (c *Container) ApplyConfig(cfg *config.Config) {
	logger := c.Logger()

	if err := observability.SetLevel(c.Logging.Level, cfg.Logging.Level); err != nil {
		logger.Warn("Ignoring log level change", zap.Error(err))
	}

	policy, err := CachePolicy(cfg.Cache)
	if err == nil {
		err = c.Service.SetCachePolicy(policy)
	}
	if err != nil {
		logger.Warn("Ignoring cache policy change", zap.Error(err))
	}

	c.Config = cfg
}

// Close drains background cache writes, then closes the stores and flushes
// telemetry. It is safe to call more than once.
func (c *Container) Close() {
	c.closeOnce.Do(func() {
		if c.cleanup != nil {
			c.cleanup()
		}
	})
}
