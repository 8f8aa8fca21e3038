package observability

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewLogger builds the process logger. Format "console" selects the
// development encoder; anything else is JSON. The returned level can be
// changed at runtime.
func NewLogger(level, format string) (*zap.Logger, zap.AtomicLevel, error) {
	atomicLevel := zap.NewAtomicLevel()
	if err := SetLevel(atomicLevel, level); err != nil {
		return nil, atomicLevel, err
	}

	var cfg zap.Config
	if strings.EqualFold(format, "console") {
		cfg = zap.NewDevelopmentConfig()
	} else {
		cfg = zap.NewProductionConfig()
	}
	cfg.Level = atomicLevel

	logger, err := cfg.Build()
	if err != nil {
		return nil, atomicLevel, fmt.Errorf("failed to create logger: %w", err)
	}
	return logger, atomicLevel, nil
}

// SetLevel parses level into atomicLevel. An empty level means info.
func SetLevel(atomicLevel zap.AtomicLevel, level string) error {
	if level == "" {
		level = "info"
	}
	var parsed zapcore.Level
	if err := parsed.UnmarshalText([]byte(strings.ToLower(level))); err != nil {
		return fmt.Errorf("invalid log level %q: %w", level, err)
	}
	atomicLevel.SetLevel(parsed)
	return nil
}
