package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment variable the loader reads.
const EnvPrefix = "YOKG_"

// Loader handles loading configuration from multiple sources.
type Loader struct {
	basePath    string
	environment Environment
	dotenvFiles []string
	// environ replaces the process environment when non-nil
	environ map[string]string

	sources     []string
	fileLoaders []FileLoader
}

// FileLoader decodes one configuration file format.
type FileLoader interface {
	Load(reader io.Reader, target interface{}) error
	Extension() string
}

// NewLoader creates a loader reading files from basePath ("config" when
// empty) and .env files from the working directory.
func NewLoader(basePath string, env Environment) *Loader {
	if basePath == "" {
		basePath = "config"
	}
	if env == "" {
		env = Development
	}

	loader := &Loader{
		basePath:    basePath,
		environment: env,
		dotenvFiles: []string{".env", ".env.local"},
	}
	loader.RegisterLoader(&YAMLLoader{})
	loader.RegisterLoader(&JSONLoader{})
	return loader
}

// RegisterLoader adds a file format. Earlier registrations win when a name
// exists with several extensions.
func (l *Loader) RegisterLoader(loader FileLoader) {
	l.fileLoaders = append(l.fileLoaders, loader)
}

// WithDotenv replaces the list of .env files read.
func (l *Loader) WithDotenv(files ...string) *Loader {
	l.dotenvFiles = files
	return l
}

// WithEnviron makes the loader read vars instead of the process environment.
func (l *Loader) WithEnviron(vars map[string]string) *Loader {
	l.environ = vars
	return l
}

// BasePath is the directory configuration files are read from.
func (l *Loader) BasePath() string { return l.basePath }

// Load applies every source in priority order and validates the result.
func (l *Loader) Load() (*Config, error) {
	l.sources = nil

	cfg := defaultConfig(l.environment)
	l.sources = append(l.sources, "defaults")

	if err := l.loadFile("base", cfg); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load base config: %w", err)
	}

	envFile := strings.ToLower(string(l.environment))
	if err := l.loadFile(envFile, cfg); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load %s config: %w", envFile, err)
	}

	if l.environment == Development {
		if err := l.loadFile("local", cfg); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to load local config: %w", err)
		}
	}

	vars, err := l.variables()
	if err != nil {
		return nil, err
	}
	if err := env.ParseWithOptions(cfg, env.Options{Prefix: EnvPrefix, Environment: vars}); err != nil {
		return nil, fmt.Errorf("failed to apply environment: %w", err)
	}
	l.sources = append(l.sources, "environment")

	cfg.LoadedFrom = append([]string(nil), l.sources...)
	cfg.applyEnvironmentDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// loadFile decodes the first of name.<ext> found for the registered formats.
func (l *Loader) loadFile(name string, cfg *Config) error {
	for _, loader := range l.fileLoaders {
		path := filepath.Join(l.basePath, name+"."+loader.Extension())

		file, err := os.Open(path)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return err
		}
		err = loader.Load(file, cfg)
		file.Close()
		if err != nil && !errors.Is(err, io.EOF) {
			return fmt.Errorf("failed to parse %s: %w", path, err)
		}

		l.sources = append(l.sources, path)
		return nil
	}
	return fs.ErrNotExist
}

// variables merges the .env files under the real (or injected)
// environment. Later .env files override earlier ones; real variables
// override all of them.
func (l *Loader) variables() (map[string]string, error) {
	vars := make(map[string]string)
	for _, file := range l.dotenvFiles {
		values, err := godotenv.Read(file)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return nil, fmt.Errorf("failed to read %s: %w", file, err)
		}
		for k, v := range values {
			vars[k] = v
		}
		l.sources = append(l.sources, file)
	}

	if l.environ != nil {
		for k, v := range l.environ {
			vars[k] = v
		}
		return vars, nil
	}
	for k, v := range env.ToMap(os.Environ()) {
		vars[k] = v
	}
	return vars, nil
}

// defaultConfig lets the process start without any configuration file.
func defaultConfig(environment Environment) *Config {
	return &Config{
		Environment: environment,
		Server: Server{
			Host:            "0.0.0.0",
			Port:            8080,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    30 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			MaxRequestSize:  1 << 20,
		},
		Graph: Graph{
			Provider: GraphNeo4j,
		},
		Neo4j: Neo4j{
			URI:                          "neo4j://localhost:7687",
			Username:                     "neo4j",
			Database:                     "neo4j",
			MaxConnectionPoolSize:        50,
			ConnectionAcquisitionTimeout: 60 * time.Second,
			ConnectionTimeout:            30 * time.Second,
			MaxTransactionRetryTime:      30 * time.Second,
		},
		Cache: Cache{
			Provider:     CacheMemory,
			Namespace:    "yokg",
			NodeTTL:      TTL{Quantity: 5, Unit: "minutes"},
			NeighborsTTL: TTL{Quantity: 3, Unit: "minutes"},
			SubgraphTTL:  TTL{Quantity: 2, Unit: "minutes"},
			WriteTimeout: 2 * time.Second,
			Redis: Redis{
				Addr:         "localhost:6379",
				PoolSize:     10,
				DialTimeout:  5 * time.Second,
				ReadTimeout:  3 * time.Second,
				WriteTimeout: 3 * time.Second,
			},
			Badger: Badger{
				Dir: "data/cache",
			},
			Memory: Memory{
				MaxItems:        10000,
				MaxMemory:       64 << 20,
				CleanupInterval: time.Minute,
			},
			Breaker: Breaker{
				Enabled:          true,
				MaxRequests:      3,
				Interval:         30 * time.Second,
				Timeout:          15 * time.Second,
				FailureThreshold: 0.5,
				MinRequests:      5,
			},
		},
		Logging: Logging{
			Level: "info",
		},
		Metrics: Metrics{
			Enabled:   true,
			Namespace: "yokg",
			Path:      "/metrics",
		},
		Tracing: Tracing{
			ServiceName: "yokg",
			Endpoint:    "localhost:4317",
			Insecure:    true,
		},
		CORS: CORS{
			Enabled:        true,
			AllowedOrigins: []string{"*"},
			AllowedMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
			MaxAge:         300,
		},
	}
}

// applyEnvironmentDefaults fills settings left empty by every source.
func (c *Config) applyEnvironmentDefaults() {
	if c.Logging.Format == "" {
		if c.Environment == Development {
			c.Logging.Format = "console"
		} else {
			c.Logging.Format = "json"
		}
	}
}

func parseLevel(level string) (zapcore.Level, error) {
	if level == "" {
		return zapcore.InfoLevel, nil
	}
	var parsed zapcore.Level
	if err := parsed.UnmarshalText([]byte(strings.ToLower(level))); err != nil {
		return parsed, fmt.Errorf("invalid log level %q", level)
	}
	return parsed, nil
}

// YAMLLoader loads configuration from YAML files.
type YAMLLoader struct{}

func (y *YAMLLoader) Load(reader io.Reader, target interface{}) error {
	decoder := yaml.NewDecoder(reader)
	decoder.KnownFields(true)
	return decoder.Decode(target)
}

func (y *YAMLLoader) Extension() string {
	return "yaml"
}

// JSONLoader loads configuration from JSON files.
type JSONLoader struct{}

func (j *JSONLoader) Load(reader io.Reader, target interface{}) error {
	decoder := json.NewDecoder(reader)
	decoder.DisallowUnknownFields()
	return decoder.Decode(target)
}

func (j *JSONLoader) Extension() string {
	return "json"
}

// EnvironmentFromEnv reads YOKG_ENV, defaulting to development.
func EnvironmentFromEnv() Environment {
	if v := os.Getenv(EnvPrefix + "ENV"); v != "" {
		return Environment(strings.ToLower(v))
	}
	return Development
}

// Load reads configuration from dir for the environment named by YOKG_ENV.
func Load(dir string) (*Config, error) {
	return NewLoader(dir, EnvironmentFromEnv()).Load()
}
