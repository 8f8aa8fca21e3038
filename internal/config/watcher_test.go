package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestWatcher_ReloadsOnChange(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "base.yaml", "graph:\n  provider: memory\nlogging:\n  level: info\n")

	loader := newTestLoader(dir, Development, nil)
	initial, err := loader.Load()
	require.NoError(t, err)

	w, err := newWatcher(loader, initial, zap.NewNop(), 20*time.Millisecond)
	require.NoError(t, err)
	defer w.Stop()

	changes := make(chan *Config, 4)
	w.OnChange(func(cfg *Config) {
		select {
		case changes <- cfg:
		default:
		}
	})

	writeFile(t, dir, "base.yaml", "graph:\n  provider: memory\nlogging:\n  level: debug\ncache:\n  node_ttl:\n    quantity: 1\n    unit: hour\n")

	select {
	case cfg := <-changes:
		assert.Equal(t, "debug", cfg.Logging.Level)
		assert.Equal(t, TTL{Quantity: 1, Unit: "hour"}, cfg.Cache.NodeTTL)
		assert.Same(t, cfg, w.Current())
	case <-time.After(5 * time.Second):
		t.Fatal("no reload after config change")
	}
}

func TestWatcher_InvalidReloadKeepsCurrent(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "base.yaml", "graph:\n  provider: memory\n")

	loader := newTestLoader(dir, Development, nil)
	initial, err := loader.Load()
	require.NoError(t, err)

	w, err := newWatcher(loader, initial, zap.NewNop(), 20*time.Millisecond)
	require.NoError(t, err)
	defer w.Stop()

	called := make(chan struct{}, 1)
	w.OnChange(func(*Config) { called <- struct{}{} })

	writeFile(t, dir, "base.yaml", "graph:\n  provider: memory\ncache:\n  provider: memcached\n")

	select {
	case <-called:
		t.Fatal("invalid configuration was published")
	case <-time.After(300 * time.Millisecond):
	}
	assert.Same(t, initial, w.Current())
}

func TestWatcher_PanickingCallbackDoesNotStopOthers(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "base.yaml", "graph:\n  provider: memory\n")

	loader := newTestLoader(dir, Development, nil)
	initial, err := loader.Load()
	require.NoError(t, err)

	w, err := newWatcher(loader, initial, zap.NewNop(), 20*time.Millisecond)
	require.NoError(t, err)
	defer w.Stop()

	got := make(chan string, 1)
	w.OnChange(func(*Config) { panic("boom") })
	w.OnChange(func(cfg *Config) { got <- cfg.Logging.Level })

	writeFile(t, dir, "base.yaml", "graph:\n  provider: memory\nlogging:\n  level: error\n")

	select {
	case level := <-got:
		assert.Equal(t, "error", level)
	case <-time.After(5 * time.Second):
		t.Fatal("second callback never ran")
	}
}

func TestWatcher_StopIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	loader := newTestLoader(dir, Development, nil)

	w, err := newWatcher(loader, validConfig(), nil, defaultDebounce)
	require.NoError(t, err)
	w.Stop()
	w.Stop()
}

func TestWatcher_MissingDirectory(t *testing.T) {
	loader := newTestLoader(t.TempDir()+"/missing", Development, nil)
	_, err := NewWatcher(loader, validConfig(), zap.NewNop())
	assert.Error(t, err)
}

func TestConfigsEqualIgnoresSources(t *testing.T) {
	a := validConfig()
	b := validConfig()
	a.LoadedFrom = []string{"defaults"}
	b.LoadedFrom = []string{"defaults", "environment"}
	assert.True(t, configsEqual(a, b))

	b.Cache.NodeTTL.Quantity = 9
	assert.False(t, configsEqual(a, b))
}

func TestWatcher_CallbackMayRegisterCallback(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "base.yaml", "graph:\n  provider: memory\n")

	loader := newTestLoader(dir, Development, nil)
	initial, err := loader.Load()
	require.NoError(t, err)

	w, err := newWatcher(loader, initial, zap.NewNop(), 20*time.Millisecond)
	require.NoError(t, err)
	defer w.Stop()

	first := make(chan string, 4)
	late := make(chan string, 4)
	registered := false
	w.OnChange(func(cfg *Config) {
		if !registered {
			registered = true
			w.OnChange(func(cfg *Config) { late <- cfg.Logging.Level })
		}
		first <- cfg.Logging.Level
	})

	writeFile(t, dir, "base.yaml", "graph:\n  provider: memory\nlogging:\n  level: warn\n")
	select {
	case level := <-first:
		assert.Equal(t, "warn", level)
	case <-time.After(5 * time.Second):
		t.Fatal("no reload after config change")
	}
	// registered mid-notify, so it only sees the next reload
	select {
	case <-late:
		t.Fatal("callback added during notify ran in the same round")
	case <-time.After(100 * time.Millisecond):
	}

	writeFile(t, dir, "base.yaml", "graph:\n  provider: memory\nlogging:\n  level: error\n")
	select {
	case level := <-late:
		assert.Equal(t, "error", level)
	case <-time.After(5 * time.Second):
		t.Fatal("late callback never ran")
	}
}
