// Package neo4j owns the Neo4j driver lifecycle: connecting, handing out
// access-mode scoped sessions, health checks and schema bootstrap.
package neo4j

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j/config"
	"go.uber.org/zap"

	apperrors "github.com/xqvvu/yokg/internal/errors"
)

// Config holds the connection settings for a Neo4j deployment.
type Config struct {
	URI                          string
	Username                     string
	Password                     string
	Database                     string
	MaxConnectionPoolSize        int
	ConnectionAcquisitionTimeout time.Duration
	ConnectionTimeout            time.Duration
	MaxTransactionRetryTime      time.Duration
}

var supportedSchemes = map[string]bool{
	"neo4j":     true,
	"neo4j+s":   true,
	"neo4j+ssc": true,
	"bolt":      true,
	"bolt+s":    true,
	"bolt+ssc":  true,
}

// Validate checks the URI scheme and credentials.
func (c Config) Validate() error {
	if c.URI == "" {
		return fmt.Errorf("neo4j uri is required")
	}
	u, err := url.Parse(c.URI)
	if err != nil {
		return fmt.Errorf("invalid neo4j uri: %w", err)
	}
	if !supportedSchemes[u.Scheme] {
		return fmt.Errorf("unsupported neo4j uri scheme %q", u.Scheme)
	}
	if c.Username == "" {
		return fmt.Errorf("neo4j username is required")
	}
	if c.Password == "" {
		return fmt.Errorf("neo4j password is required")
	}
	if c.MaxConnectionPoolSize < 0 {
		return fmt.Errorf("neo4j max connection pool size must not be negative")
	}
	return nil
}

// Client wraps a driver. Each Execute call opens one session, runs one
// managed transaction and closes the session.
type Client struct {
	driver   neo4j.DriverWithContext
	database string
	logger   *zap.Logger
}

// Open creates the driver and verifies connectivity.
func Open(ctx context.Context, cfg Config, logger *zap.Logger) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, apperrors.Validation(apperrors.CodeInvalidInput, "invalid neo4j configuration").
			WithDetails(err.Error()).
			WithOperation("neo4j.Open").
			Build()
	}
	logger = logger.Named("neo4j")

	driver, err := neo4j.NewDriverWithContext(
		cfg.URI,
		neo4j.BasicAuth(cfg.Username, cfg.Password, ""),
		func(c *config.Config) {
			if cfg.MaxConnectionPoolSize > 0 {
				c.MaxConnectionPoolSize = cfg.MaxConnectionPoolSize
			}
			if cfg.ConnectionAcquisitionTimeout > 0 {
				c.ConnectionAcquisitionTimeout = cfg.ConnectionAcquisitionTimeout
			}
			if cfg.ConnectionTimeout > 0 {
				c.SocketConnectTimeout = cfg.ConnectionTimeout
			}
			if cfg.MaxTransactionRetryTime > 0 {
				c.MaxTransactionRetryTime = cfg.MaxTransactionRetryTime
			}
			c.Log = driverLogger{logger: logger.Sugar()}
		},
	)
	if err != nil {
		return nil, connectionError("neo4j.Open", err)
	}

	if err := driver.VerifyConnectivity(ctx); err != nil {
		_ = driver.Close(ctx)
		return nil, connectionError("neo4j.VerifyConnectivity", err)
	}

	logger.Info("Connected to Neo4j",
		zap.String("uri", redactURI(cfg.URI)),
		zap.String("database", databaseName(cfg.Database)),
	)

	return &Client{driver: driver, database: cfg.Database, logger: logger}, nil
}

// ExecuteRead runs work in a read-mode session.
func (c *Client) ExecuteRead(ctx context.Context, work neo4j.ManagedTransactionWork) (any, error) {
	session := c.driver.NewSession(ctx, neo4j.SessionConfig{
		AccessMode:   neo4j.AccessModeRead,
		DatabaseName: c.database,
	})
	defer session.Close(ctx)

	return session.ExecuteRead(ctx, work)
}

// ExecuteWrite runs work in a write-mode session.
func (c *Client) ExecuteWrite(ctx context.Context, work neo4j.ManagedTransactionWork) (any, error) {
	session := c.driver.NewSession(ctx, neo4j.SessionConfig{
		AccessMode:   neo4j.AccessModeWrite,
		DatabaseName: c.database,
	})
	defer session.Close(ctx)

	return session.ExecuteWrite(ctx, work)
}

// Health runs a trivial read query.
func (c *Client) Health(ctx context.Context) error {
	_, err := c.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		result, err := tx.Run(ctx, "RETURN 1 AS health", nil)
		if err != nil {
			return nil, err
		}
		record, err := result.Single(ctx)
		if err != nil {
			return nil, err
		}
		value, _ := record.Get("health")
		if n, ok := value.(int64); !ok || n != 1 {
			return nil, fmt.Errorf("unexpected health result %v", value)
		}
		return nil, nil
	})
	if err != nil {
		return connectionError("neo4j.Health", err)
	}
	return nil
}

// Constraint is a uniqueness constraint on the id property of one label.
type Constraint struct {
	Name  string
	Label string
}

// Statement returns the idempotent Cypher that creates the constraint.
func (c Constraint) Statement() string {
	return fmt.Sprintf("CREATE CONSTRAINT %s IF NOT EXISTS FOR (n:%s) REQUIRE n.id IS UNIQUE", c.Name, QuoteIdentifier(c.Label))
}

// SchemaConstraints are created by InitSchema.
var SchemaConstraints = []Constraint{
	{Name: "node_id_unique", Label: "Node"},
	{Name: "person_id_unique", Label: "Person"},
	{Name: "document_id_unique", Label: "Document"},
	{Name: "concept_id_unique", Label: "Concept"},
	{Name: "topic_id_unique", Label: "Topic"},
}

// InitSchema creates the id uniqueness constraints. Safe to run repeatedly.
func (c *Client) InitSchema(ctx context.Context) error {
	for _, constraint := range SchemaConstraints {
		_, err := c.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
			result, err := tx.Run(ctx, constraint.Statement(), nil)
			if err != nil {
				return nil, err
			}
			return result.Consume(ctx)
		})
		if err != nil {
			return apperrors.QueryFailed(apperrors.CodeGraphQuery, "failed to create schema constraint").
				WithOperation("neo4j.InitSchema").
				WithDetails(constraint.Name).
				WithCause(err).
				Build()
		}
		c.logger.Info("Ensured constraint", zap.String("name", constraint.Name))
	}
	return nil
}

// Close releases every pooled connection.
func (c *Client) Close(ctx context.Context) error {
	if c == nil || c.driver == nil {
		return nil
	}
	return c.driver.Close(ctx)
}

func connectionError(operation string, err error) error {
	return apperrors.Unavailable(apperrors.CodeGraphConnection, "graph database unavailable").
		WithOperation(operation).
		WithCause(err).
		Build()
}

func databaseName(name string) string {
	if name == "" {
		return "(default)"
	}
	return name
}

// redactURI drops any credentials embedded in the URI before logging.
func redactURI(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return "invalid-uri"
	}
	u.User = nil
	return u.String()
}

// driverLogger forwards driver diagnostics to zap.
type driverLogger struct {
	logger *zap.SugaredLogger
}

func (l driverLogger) Error(name, id string, err error) {
	l.logger.Errorw("driver error", "component", name, "id", id, "error", err)
}

func (l driverLogger) Warnf(name, id string, msg string, args ...any) {
	l.logger.Warnw(fmt.Sprintf(msg, args...), "component", name, "id", id)
}

func (l driverLogger) Infof(name, id string, msg string, args ...any) {
	l.logger.Debugw(fmt.Sprintf(msg, args...), "component", name, "id", id)
}

func (l driverLogger) Debugf(name, id string, msg string, args ...any) {
	l.logger.Debugw(fmt.Sprintf(msg, args...), "component", name, "id", id)
}
