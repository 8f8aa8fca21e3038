package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"go.uber.org/zap"
)

// BadgerOptions configures the embedded store. InMemory ignores Dir.
type BadgerOptions struct {
	Dir        string
	InMemory   bool
	SyncWrites bool
}

// BadgerStore is an embedded, persistent Store for single-node deployments
// without Redis.
type BadgerStore struct {
	db     *badger.DB
	logger *zap.Logger
}

func NewBadgerStore(opts BadgerOptions, logger *zap.Logger) (*BadgerStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	badgerOpts := badger.DefaultOptions(opts.Dir)
	if opts.InMemory {
		badgerOpts = badgerOpts.WithInMemory(true).WithDir("").WithValueDir("")
	}
	if opts.SyncWrites {
		badgerOpts = badgerOpts.WithSyncWrites(true)
	}
	badgerOpts = badgerOpts.
		WithLogger(badgerLogger{logger.Sugar()}).
		WithLoggingLevel(badger.WARNING).
		WithMemTableSize(16 << 20).
		WithNumVersionsToKeep(1)

	db, err := badger.Open(badgerOpts)
	if err != nil {
		return nil, fmt.Errorf("open badger: %w", err)
	}
	return &BadgerStore{db: db, logger: logger}, nil
}

func (s *BadgerStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	var value []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		value, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, unavailable("badger.Get", err)
	}
	return value, true, nil
}

// Set writes the value with its TTL in a single transaction.
func (s *BadgerStore) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.SetEntry(badger.NewEntry([]byte(key), value).WithTTL(ttl))
	})
	if err != nil {
		return unavailable("badger.Set", err)
	}
	return nil
}

func (s *BadgerStore) Delete(_ context.Context, keys ...string) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		for _, key := range keys {
			if err := txn.Delete([]byte(key)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return unavailable("badger.Delete", err)
	}
	return nil
}

func (s *BadgerStore) Ping(context.Context) error {
	if s.db.IsClosed() {
		return unavailable("badger.Ping", errors.New("database is closed"))
	}
	return nil
}

func (s *BadgerStore) Close() error {
	return s.db.Close()
}

// badgerLogger routes badger's internal logging through zap.
type badgerLogger struct {
	*zap.SugaredLogger
}

func (l badgerLogger) Warningf(format string, args ...interface{}) {
	l.Warnf(format, args...)
}
