package config

import (
	"fmt"
	"path/filepath"
	"reflect"
	"slices"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

const defaultDebounce = 500 * time.Millisecond

// Watcher reloads the configuration when a file in the loader's directory
// changes and hands the new value to the registered callbacks. A reload that
// fails validation is logged and dropped; the previous value stays current.
type Watcher struct {
	loader   *Loader
	logger   *zap.Logger
	debounce time.Duration

	reloadMu sync.Mutex

	mu        sync.RWMutex
	config    *Config
	callbacks []func(*Config)

	watcher *fsnotify.Watcher
	stopCh  chan struct{}
	done    chan struct{}
	once    sync.Once
}

// NewWatcher starts watching loader's directory. Call Stop to release it.
func NewWatcher(loader *Loader, initial *Config, logger *zap.Logger) (*Watcher, error) {
	return newWatcher(loader, initial, logger, defaultDebounce)
}

func newWatcher(loader *Loader, initial *Config, logger *zap.Logger, debounce time.Duration) (*Watcher, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}
	// Watch the directory, not the files: editors replace files on save.
	if err := fsWatcher.Add(loader.BasePath()); err != nil {
		fsWatcher.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", loader.BasePath(), err)
	}

	w := &Watcher{
		loader:   loader,
		logger:   logger.Named("config"),
		debounce: debounce,
		config:   initial,
		watcher:  fsWatcher,
		stopCh:   make(chan struct{}),
		done:     make(chan struct{}),
	}
	go w.watchLoop()

	w.logger.Info("Configuration hot reloading enabled",
		zap.String("dir", loader.BasePath()),
		zap.String("environment", string(initial.Environment)),
	)
	return w, nil
}

func (w *Watcher) watchLoop() {
	defer close(w.done)
	defer w.watcher.Close()

	var debounceTimer *time.Timer
	defer func() {
		if debounceTimer != nil {
			debounceTimer.Stop()
		}
	}()

	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 || !isConfigFile(event.Name) {
				continue
			}
			w.logger.Debug("Configuration file changed",
				zap.String("file", event.Name),
				zap.String("operation", event.Op.String()),
			)
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			debounceTimer = time.AfterFunc(w.debounce, w.reload)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error("File watcher error", zap.Error(err))

		case <-w.stopCh:
			return
		}
	}
}

func (w *Watcher) reload() {
	w.reloadMu.Lock()
	defer w.reloadMu.Unlock()

	next, err := w.loader.Load()
	if err != nil {
		w.logger.Error("Invalid configuration after reload", zap.Error(err))
		return
	}

	w.mu.Lock()
	prev := w.config
	if configsEqual(prev, next) {
		w.mu.Unlock()
		w.logger.Debug("Configuration unchanged after reload")
		return
	}
	w.config = next
	callbacks := slices.Clone(w.callbacks)
	w.mu.Unlock()

	w.logChanges(prev, next)
	for i, cb := range callbacks {
		w.notify(i, cb, next)
	}
	w.logger.Info("Configuration reloaded", zap.Int("callbacks_notified", len(callbacks)))
}

func (w *Watcher) notify(idx int, cb func(*Config), cfg *Config) {
	defer func() {
		if r := recover(); r != nil {
			w.logger.Error("Configuration callback panicked",
				zap.Int("callback_index", idx),
				zap.Any("panic", r),
			)
		}
	}()
	cb(cfg)
}

// OnChange registers a callback run after each successful reload.
func (w *Watcher) OnChange(callback func(*Config)) {
	w.mu.Lock()
	w.callbacks = append(w.callbacks, callback)
	w.mu.Unlock()
}

// Current returns the last valid configuration.
func (w *Watcher) Current() *Config {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.config
}

// Stop ends the watch loop and waits for it. Safe to call twice.
func (w *Watcher) Stop() {
	w.once.Do(func() {
		close(w.stopCh)
		<-w.done
	})
}

func configsEqual(a, b *Config) bool {
	x, y := *a, *b
	x.LoadedFrom, y.LoadedFrom = nil, nil
	return reflect.DeepEqual(x, y)
}

// logChanges logs the settings that can be applied without a restart.
func (w *Watcher) logChanges(old, new *Config) {
	var changes []string
	if old.Logging.Level != new.Logging.Level {
		changes = append(changes, fmt.Sprintf("log level: %s -> %s", old.Logging.Level, new.Logging.Level))
	}
	for _, ttl := range []struct {
		name     string
		old, new TTL
	}{
		{"node ttl", old.Cache.NodeTTL, new.Cache.NodeTTL},
		{"neighbors ttl", old.Cache.NeighborsTTL, new.Cache.NeighborsTTL},
		{"subgraph ttl", old.Cache.SubgraphTTL, new.Cache.SubgraphTTL},
	} {
		if ttl.old != ttl.new {
			changes = append(changes, fmt.Sprintf("%s: %s -> %s", ttl.name, ttl.old, ttl.new))
		}
	}
	if old.Cache.WriteTimeout != new.Cache.WriteTimeout {
		changes = append(changes, fmt.Sprintf("cache write timeout: %s -> %s", old.Cache.WriteTimeout, new.Cache.WriteTimeout))
	}
	if len(changes) > 0 {
		w.logger.Info("Configuration changes detected", zap.Strings("changes", changes))
	}
}

func isConfigFile(path string) bool {
	switch filepath.Ext(path) {
	case ".yaml", ".json":
		return true
	}
	return false
}
