// Package config loads and validates the process configuration.
//
// Sources are layered, lowest priority first: defaults in code, base.yaml,
// <environment>.yaml, local.yaml (development only), .env files and finally
// the process environment. Environment variables carry the YOKG_ prefix and
// follow the struct nesting, e.g. YOKG_NEO4J_URI or YOKG_CACHE_NODE_TTL_UNIT.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/xqvvu/yokg/internal/infrastructure/cache"
	graphdb "github.com/xqvvu/yokg/internal/infrastructure/neo4j"
)

// Environment is the deployment environment.
type Environment string

const (
	Development Environment = "development"
	Staging     Environment = "staging"
	Production  Environment = "production"
)

// Graph store providers.
const (
	GraphNeo4j  = "neo4j"
	GraphMemory = "memory"
)

// Cache providers.
const (
	CacheMemory = "memory"
	CacheRedis  = "redis"
	CacheBadger = "badger"
	CacheNone   = "none"
)

type Config struct {
	Environment Environment `yaml:"environment" env:"ENV"`

	Server  Server  `yaml:"server" envPrefix:"SERVER_"`
	Graph   Graph   `yaml:"graph" envPrefix:"GRAPH_"`
	Neo4j   Neo4j   `yaml:"neo4j" envPrefix:"NEO4J_"`
	Cache   Cache   `yaml:"cache" envPrefix:"CACHE_"`
	Logging Logging `yaml:"logging" envPrefix:"LOG_"`
	Metrics Metrics `yaml:"metrics" envPrefix:"METRICS_"`
	Tracing Tracing `yaml:"tracing" envPrefix:"TRACING_"`
	CORS    CORS    `yaml:"cors" envPrefix:"CORS_"`

	// LoadedFrom lists the sources applied, in order.
	LoadedFrom []string `yaml:"-"`
}

type Server struct {
	Host            string        `yaml:"host" env:"HOST"`
	Port            int           `yaml:"port" env:"PORT"`
	ReadTimeout     time.Duration `yaml:"read_timeout" env:"READ_TIMEOUT"`
	WriteTimeout    time.Duration `yaml:"write_timeout" env:"WRITE_TIMEOUT"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" env:"IDLE_TIMEOUT"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"SHUTDOWN_TIMEOUT"`
	MaxRequestSize  int64         `yaml:"max_request_size" env:"MAX_REQUEST_SIZE"`
}

// Addr is the listen address.
func (s Server) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

type Graph struct {
	// Provider is "neo4j" or "memory". The memory store is for local runs
	// and tests; it keeps nothing across restarts.
	Provider string `yaml:"provider" env:"PROVIDER"`
}

type Neo4j struct {
	URI                          string        `yaml:"uri" env:"URI"`
	Username                     string        `yaml:"username" env:"USERNAME"`
	Password                     string        `yaml:"password" env:"PASSWORD"`
	Database                     string        `yaml:"database" env:"DATABASE"`
	MaxConnectionPoolSize        int           `yaml:"max_connection_pool_size" env:"MAX_CONNECTION_POOL_SIZE"`
	ConnectionAcquisitionTimeout time.Duration `yaml:"connection_acquisition_timeout" env:"CONNECTION_ACQUISITION_TIMEOUT"`
	ConnectionTimeout            time.Duration `yaml:"connection_timeout" env:"CONNECTION_TIMEOUT"`
	MaxTransactionRetryTime      time.Duration `yaml:"max_transaction_retry_time" env:"MAX_TRANSACTION_RETRY_TIME"`
	// InitSchema creates the id constraints on startup.
	InitSchema bool `yaml:"init_schema" env:"INIT_SCHEMA"`
}

// ClientConfig converts to the driver wrapper's settings.
func (n Neo4j) ClientConfig() graphdb.Config {
	return graphdb.Config{
		URI:                          n.URI,
		Username:                     n.Username,
		Password:                     n.Password,
		Database:                     n.Database,
		MaxConnectionPoolSize:        n.MaxConnectionPoolSize,
		ConnectionAcquisitionTimeout: n.ConnectionAcquisitionTimeout,
		ConnectionTimeout:            n.ConnectionTimeout,
		MaxTransactionRetryTime:      n.MaxTransactionRetryTime,
	}
}

type Cache struct {
	Provider  string `yaml:"provider" env:"PROVIDER"`
	Namespace string `yaml:"namespace" env:"NAMESPACE"`

	NodeTTL      TTL           `yaml:"node_ttl" envPrefix:"NODE_TTL_"`
	NeighborsTTL TTL           `yaml:"neighbors_ttl" envPrefix:"NEIGHBORS_TTL_"`
	SubgraphTTL  TTL           `yaml:"subgraph_ttl" envPrefix:"SUBGRAPH_TTL_"`
	WriteTimeout time.Duration `yaml:"write_timeout" env:"WRITE_TIMEOUT"`

	Redis   Redis   `yaml:"redis" envPrefix:"REDIS_"`
	Badger  Badger  `yaml:"badger" envPrefix:"BADGER_"`
	Memory  Memory  `yaml:"memory" envPrefix:"MEMORY_"`
	Breaker Breaker `yaml:"breaker" envPrefix:"BREAKER_"`
}

// TTL is a semantic lifetime, e.g. {quantity: 5, unit: minutes}.
type TTL struct {
	Quantity int64  `yaml:"quantity" env:"QUANTITY"`
	Unit     string `yaml:"unit" env:"UNIT"`
}

// Parse resolves the unit name.
func (t TTL) Parse() (int64, cache.Unit, error) {
	unit, err := cache.ParseUnit(t.Unit)
	if err != nil {
		return 0, "", err
	}
	return t.Quantity, unit, nil
}

func (t TTL) String() string {
	return fmt.Sprintf("%d %s", t.Quantity, t.Unit)
}

type Redis struct {
	URL          string        `yaml:"url" env:"URL"`
	Addr         string        `yaml:"addr" env:"ADDR"`
	Username     string        `yaml:"username" env:"USERNAME"`
	Password     string        `yaml:"password" env:"PASSWORD"`
	DB           int           `yaml:"db" env:"DB"`
	PoolSize     int           `yaml:"pool_size" env:"POOL_SIZE"`
	DialTimeout  time.Duration `yaml:"dial_timeout" env:"DIAL_TIMEOUT"`
	ReadTimeout  time.Duration `yaml:"read_timeout" env:"READ_TIMEOUT"`
	WriteTimeout time.Duration `yaml:"write_timeout" env:"WRITE_TIMEOUT"`
}

func (r Redis) Options() cache.RedisOptions {
	return cache.RedisOptions{
		URL:          r.URL,
		Addr:         r.Addr,
		Username:     r.Username,
		Password:     r.Password,
		DB:           r.DB,
		PoolSize:     r.PoolSize,
		DialTimeout:  r.DialTimeout,
		ReadTimeout:  r.ReadTimeout,
		WriteTimeout: r.WriteTimeout,
	}
}

type Badger struct {
	Dir        string `yaml:"dir" env:"DIR"`
	InMemory   bool   `yaml:"in_memory" env:"IN_MEMORY"`
	SyncWrites bool   `yaml:"sync_writes" env:"SYNC_WRITES"`
}

func (b Badger) Options() cache.BadgerOptions {
	return cache.BadgerOptions{Dir: b.Dir, InMemory: b.InMemory, SyncWrites: b.SyncWrites}
}

type Memory struct {
	MaxItems        int           `yaml:"max_items" env:"MAX_ITEMS"`
	MaxMemory       int64         `yaml:"max_memory" env:"MAX_MEMORY"`
	CleanupInterval time.Duration `yaml:"cleanup_interval" env:"CLEANUP_INTERVAL"`
}

func (m Memory) Options() cache.MemoryOptions {
	return cache.MemoryOptions{
		MaxItems:        m.MaxItems,
		MaxMemory:       m.MaxMemory,
		CleanupInterval: m.CleanupInterval,
	}
}

// Breaker guards remote cache providers.
type Breaker struct {
	Enabled          bool          `yaml:"enabled" env:"ENABLED"`
	MaxRequests      uint32        `yaml:"max_requests" env:"MAX_REQUESTS"`
	Interval         time.Duration `yaml:"interval" env:"INTERVAL"`
	Timeout          time.Duration `yaml:"timeout" env:"TIMEOUT"`
	FailureThreshold float64       `yaml:"failure_threshold" env:"FAILURE_THRESHOLD"`
	MinRequests      uint32        `yaml:"min_requests" env:"MIN_REQUESTS"`
}

func (b Breaker) Settings(name string) cache.BreakerConfig {
	return cache.BreakerConfig{
		Name:             name,
		MaxRequests:      b.MaxRequests,
		Interval:         b.Interval,
		Timeout:          b.Timeout,
		FailureThreshold: b.FailureThreshold,
		MinRequests:      b.MinRequests,
	}
}

type Logging struct {
	Level  string `yaml:"level" env:"LEVEL"`
	Format string `yaml:"format" env:"FORMAT"`
}

type Metrics struct {
	Enabled   bool   `yaml:"enabled" env:"ENABLED"`
	Namespace string `yaml:"namespace" env:"NAMESPACE"`
	Path      string `yaml:"path" env:"PATH"`
}

type Tracing struct {
	Enabled     bool    `yaml:"enabled" env:"ENABLED"`
	ServiceName string  `yaml:"service_name" env:"SERVICE_NAME"`
	Endpoint    string  `yaml:"endpoint" env:"ENDPOINT"`
	Insecure    bool    `yaml:"insecure" env:"INSECURE"`
	SampleRate  float64 `yaml:"sample_rate" env:"SAMPLE_RATE"`
}

type CORS struct {
	Enabled          bool     `yaml:"enabled" env:"ENABLED"`
	AllowedOrigins   []string `yaml:"allowed_origins" env:"ALLOWED_ORIGINS"`
	AllowedMethods   []string `yaml:"allowed_methods" env:"ALLOWED_METHODS"`
	AllowedHeaders   []string `yaml:"allowed_headers" env:"ALLOWED_HEADERS"`
	AllowCredentials bool     `yaml:"allow_credentials" env:"ALLOW_CREDENTIALS"`
	MaxAge           int      `yaml:"max_age" env:"MAX_AGE"`
}

// Validate reports every problem found, not just the first.
func (c *Config) Validate() error {
	var errs []error

	switch c.Environment {
	case Development, Staging, Production:
	default:
		errs = append(errs, fmt.Errorf("unknown environment %q", c.Environment))
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server port %d out of range", c.Server.Port))
	}
	if c.Server.ShutdownTimeout < 0 {
		errs = append(errs, errors.New("server shutdown timeout must not be negative"))
	}

	switch c.Graph.Provider {
	case GraphNeo4j:
		if err := c.Neo4j.ClientConfig().Validate(); err != nil {
			errs = append(errs, err)
		}
	case GraphMemory:
		if c.Environment == Production {
			errs = append(errs, errors.New("memory graph provider is not allowed in production"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown graph provider %q", c.Graph.Provider))
	}

	errs = append(errs, c.Cache.validate()...)

	if _, err := parseLevel(c.Logging.Level); err != nil {
		errs = append(errs, err)
	}
	if c.Tracing.SampleRate < 0 || c.Tracing.SampleRate > 1 {
		errs = append(errs, fmt.Errorf("tracing sample rate %v must be within [0, 1]", c.Tracing.SampleRate))
	}

	return errors.Join(errs...)
}

func (c Cache) validate() []error {
	var errs []error
	switch c.Provider {
	case CacheMemory, CacheNone:
	case CacheRedis:
		if c.Redis.URL == "" && c.Redis.Addr == "" {
			errs = append(errs, errors.New("redis cache needs url or addr"))
		}
	case CacheBadger:
		if !c.Badger.InMemory && c.Badger.Dir == "" {
			errs = append(errs, errors.New("badger cache needs dir unless in_memory"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown cache provider %q", c.Provider))
	}
	if c.Namespace == "" {
		errs = append(errs, errors.New("cache namespace is required"))
	}

	calc := cache.NewTTLCalculator(nil)
	for name, ttl := range map[string]TTL{"node": c.NodeTTL, "neighbors": c.NeighborsTTL, "subgraph": c.SubgraphTTL} {
		quantity, unit, err := ttl.Parse()
		if err == nil {
			_, err = calc.Duration(quantity, unit)
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("cache %s ttl: %w", name, err))
		}
	}
	if c.WriteTimeout <= 0 {
		errs = append(errs, errors.New("cache write timeout must be positive"))
	}
	return errs
}
