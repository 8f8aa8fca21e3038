package di

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/xqvvu/yokg/internal/application/services"
	"github.com/xqvvu/yokg/internal/config"
	"github.com/xqvvu/yokg/internal/infrastructure/cache"
	graphdb "github.com/xqvvu/yokg/internal/infrastructure/neo4j"
	"github.com/xqvvu/yokg/internal/infrastructure/observability"
	"github.com/xqvvu/yokg/internal/infrastructure/persistence/memory"
	neo4jrepo "github.com/xqvvu/yokg/internal/infrastructure/persistence/neo4j"
	"github.com/xqvvu/yokg/internal/interfaces/http/rest"
	"github.com/xqvvu/yokg/internal/repository"
)

const closeTimeout = 5 * time.Second

// Logging is the root logger together with the level handle that hot
// reload adjusts.
type Logging struct {
	Logger *zap.Logger
	Level  zap.AtomicLevel
}

func provideLogging(cfg *config.Config) (*Logging, func(), error) {
	logger, level, err := observability.NewLogger(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create logger: %w", err)
	}
	logger = logger.With(zap.String("environment", string(cfg.Environment)))
	cleanup := func() {
		_ = logger.Sync()
	}
	return &Logging{Logger: logger, Level: level}, cleanup, nil
}

func provideLogger(logging *Logging) *zap.Logger {
	return logging.Logger
}

// provideMetrics returns nil when metrics are disabled; every consumer
// treats a nil collector as "record nothing".
func provideMetrics(cfg *config.Config) *observability.Collector {
	if !cfg.Metrics.Enabled {
		return nil
	}
	return observability.NewCollector(cfg.Metrics.Namespace)
}

func provideTracerProvider(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*observability.TracerProvider, func(), error) {
	tp, err := observability.InitTracing(ctx, observability.TracingConfig{
		Enabled:     cfg.Tracing.Enabled,
		ServiceName: cfg.Tracing.ServiceName,
		Environment: string(cfg.Environment),
		Endpoint:    cfg.Tracing.Endpoint,
		Insecure:    cfg.Tracing.Insecure,
		SampleRate:  cfg.Tracing.SampleRate,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize tracing: %w", err)
	}
	cleanup := func() {
		ctx, cancel := context.WithTimeout(context.Background(), closeTimeout)
		defer cancel()
		if err := tp.Shutdown(ctx); err != nil {
			logger.Warn("Failed to flush traces", zap.Error(err))
		}
	}
	return tp, cleanup, nil
}

func provideTracer(tp *observability.TracerProvider) trace.Tracer {
	return tp.Tracer()
}

// provideCacheStore builds the configured cache backend. Remote and on-disk
// backends sit behind a circuit breaker when one is enabled.
func provideCacheStore(cfg *config.Config, logger *zap.Logger) (cache.Store, func(), error) {
	var (
		store cache.Store
		err   error
	)
	provider := cfg.Cache.Provider

	switch provider {
	case config.CacheRedis:
		client, cerr := cache.NewRedisClient(cfg.Cache.Redis.Options())
		if cerr != nil {
			return nil, nil, fmt.Errorf("failed to create redis client: %w", cerr)
		}
		store = cache.NewRedisStore(client, logger)
	case config.CacheBadger:
		store, err = cache.NewBadgerStore(cfg.Cache.Badger.Options(), logger)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open badger cache: %w", err)
		}
	case config.CacheNone:
		store = cache.NoopStore{}
	default:
		provider = config.CacheMemory
		store = cache.NewMemoryStore(cfg.Cache.Memory.Options(), logger)
	}

	if cfg.Cache.Breaker.Enabled && (provider == config.CacheRedis || provider == config.CacheBadger) {
		store = cache.NewBreakerStore(store, cfg.Cache.Breaker.Settings("cache-"+provider), logger)
	}

	logger.Info("Cache store ready", zap.String("provider", provider))
	cleanup := func() {
		if err := store.Close(); err != nil {
			logger.Warn("Failed to close cache store", zap.String("provider", provider), zap.Error(err))
		}
	}
	return store, cleanup, nil
}

// provideGraphRepository opens the configured graph store and wraps it with
// tracing and query metrics.
func provideGraphRepository(
	ctx context.Context,
	cfg *config.Config,
	logger *zap.Logger,
	tracer trace.Tracer,
	metrics *observability.Collector,
) (repository.GraphRepository, func(), error) {
	if cfg.Graph.Provider == config.GraphMemory {
		logger.Warn("Using the in-memory graph store; data is lost on restart")
		repo := memory.NewGraphRepository(nil)
		return observability.InstrumentRepository(repo, tracer, metrics), func() {}, nil
	}

	client, err := graphdb.Open(ctx, cfg.Neo4j.ClientConfig(), logger)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		ctx, cancel := context.WithTimeout(context.Background(), closeTimeout)
		defer cancel()
		if err := client.Close(ctx); err != nil {
			logger.Warn("Failed to close neo4j driver", zap.Error(err))
		}
	}

	if cfg.Neo4j.InitSchema {
		if err := client.InitSchema(ctx); err != nil {
			cleanup()
			return nil, nil, err
		}
	}

	repo := neo4jrepo.NewGraphRepository(client, logger)
	return observability.InstrumentRepository(repo, tracer, metrics), cleanup, nil
}

func provideKeys(cfg *config.Config) cache.Keys {
	return cache.NewKeys(cfg.Cache.Namespace)
}

func provideTTLCalculator() *cache.TTLCalculator {
	return cache.NewTTLCalculator(nil)
}

func provideCachePolicy(cfg *config.Config) (services.CachePolicy, error) {
	return CachePolicy(cfg.Cache)
}

// CachePolicy converts the cache section into the service's TTL policy.
func CachePolicy(c config.Cache) (services.CachePolicy, error) {
	policy := services.CachePolicy{WriteTimeout: c.WriteTimeout}
	for _, entry := range []struct {
		name string
		src  config.TTL
		dst  *services.TTL
	}{
		{"node", c.NodeTTL, &policy.Node},
		{"neighbors", c.NeighborsTTL, &policy.Neighbors},
		{"subgraph", c.SubgraphTTL, &policy.Subgraph},
	} {
		quantity, unit, err := entry.src.Parse()
		if err != nil {
			return services.CachePolicy{}, fmt.Errorf("cache %s ttl: %w", entry.name, err)
		}
		*entry.dst = services.TTL{Quantity: quantity, Unit: unit}
	}
	return policy, nil
}

func provideGraphService(
	repo repository.GraphRepository,
	store cache.Store,
	keys cache.Keys,
	ttl *cache.TTLCalculator,
	policy services.CachePolicy,
	metrics *observability.Collector,
	logger *zap.Logger,
) (*services.GraphService, func(), error) {
	svc, err := services.NewGraphService(services.GraphServiceDeps{
		Repository: repo,
		Cache:      store,
		Keys:       keys,
		TTL:        ttl,
		Policy:     policy,
		Metrics:    metrics,
		Logger:     logger,
	})
	if err != nil {
		return nil, nil, err
	}
	return svc, svc.Drain, nil
}

func provideRouter(
	cfg *config.Config,
	svc *services.GraphService,
	logger *zap.Logger,
	metrics *observability.Collector,
	tracer trace.Tracer,
) http.Handler {
	return rest.NewRouter(rest.RouterOptions{
		Service:     svc,
		Logger:      logger,
		Metrics:     metrics,
		MetricsPath: cfg.Metrics.Path,
		Tracer:      tracer,
		CORS: rest.CORSOptions{
			Enabled:          cfg.CORS.Enabled,
			AllowedOrigins:   cfg.CORS.AllowedOrigins,
			AllowedMethods:   cfg.CORS.AllowedMethods,
			AllowedHeaders:   cfg.CORS.AllowedHeaders,
			AllowCredentials: cfg.CORS.AllowCredentials,
			MaxAge:           cfg.CORS.MaxAge,
		},
		MaxBodyBytes: cfg.Server.MaxRequestSize,
	})
}
