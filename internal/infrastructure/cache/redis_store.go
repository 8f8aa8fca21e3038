package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RedisOptions configures the Redis connection. URL, when set, wins over
// the individual fields.
type RedisOptions struct {
	URL          string
	Addr         string
	Username     string
	Password     string
	DB           int
	PoolSize     int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// NewRedisClient builds a client without contacting the server.
func NewRedisClient(opts RedisOptions) (*redis.Client, error) {
	if opts.URL != "" {
		parsed, err := redis.ParseURL(opts.URL)
		if err != nil {
			return nil, fmt.Errorf("parse redis url: %w", err)
		}
		if opts.PoolSize > 0 {
			parsed.PoolSize = opts.PoolSize
		}
		return redis.NewClient(parsed), nil
	}

	return redis.NewClient(&redis.Options{
		Addr:         opts.Addr,
		Username:     opts.Username,
		Password:     opts.Password,
		DB:           opts.DB,
		PoolSize:     opts.PoolSize,
		DialTimeout:  opts.DialTimeout,
		ReadTimeout:  opts.ReadTimeout,
		WriteTimeout: opts.WriteTimeout,
	}), nil
}

// RedisStore keeps entries as plain string values with a key expiry.
type RedisStore struct {
	client redis.UniversalClient
	logger *zap.Logger
}

func NewRedisStore(client redis.UniversalClient, logger *zap.Logger) *RedisStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisStore{client: client, logger: logger}
}

func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	value, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, unavailable("redis.Get", err)
	}
	return value, true, nil
}

// Set writes the value and its expiry in one MULTI/EXEC block.
func (s *RedisStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, key, value, 0)
		pipe.Expire(ctx, key, ttl)
		return nil
	})
	if err != nil {
		return unavailable("redis.Set", err)
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	if err := s.client.Del(ctx, keys...).Err(); err != nil {
		return unavailable("redis.Del", err)
	}
	return nil
}

func (s *RedisStore) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return unavailable("redis.Ping", err)
	}
	return nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
