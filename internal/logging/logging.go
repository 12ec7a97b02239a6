// Package logging builds the zap loggers used by the rowexpand binary.
package logging

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Options selects the level and encoding of a logger.
type Options struct {
	Level     string // debug, info, warn, error
	Format    string // json or console
	Component string
}

// New returns a logger writing to stderr. Every entry carries the component
// name and a run_id unique to this logger, so the entries of one run can be
// grouped.
func New(opts Options) (*zap.Logger, error) {
	lvl, err := ParseLevel(opts.Level)
	if err != nil {
		return nil, err
	}

	var cfg zap.Config
	switch strings.ToLower(strings.TrimSpace(opts.Format)) {
	case "", "json":
		cfg = zap.NewProductionConfig()
		cfg.EncoderConfig.TimeKey = "ts"
		cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	case "console":
		cfg = zap.NewDevelopmentConfig()
		cfg.Development = false
	default:
		return nil, fmt.Errorf("logging: unknown format %q", opts.Format)
	}
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.OutputPaths = []string{"stderr"}
	cfg.ErrorOutputPaths = []string{"stderr"}
	cfg.DisableStacktrace = true

	component := opts.Component
	if component == "" {
		component = "rowexpand"
	}
	cfg.InitialFields = map[string]any{
		"component": component,
		"run_id":    uuid.NewString(),
	}

	logger, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("logging: build: %w", err)
	}
	return logger, nil
}

// ParseLevel maps a level name to a zapcore.Level. An empty name is info;
// "warning" is accepted as an alias of warn.
func ParseLevel(s string) (zapcore.Level, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	switch s {
	case "":
		return zapcore.InfoLevel, nil
	case "warning":
		return zapcore.WarnLevel, nil
	}
	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(s)); err != nil {
		return zapcore.InfoLevel, fmt.Errorf("logging: unknown level %q", s)
	}
	return lvl, nil
}
