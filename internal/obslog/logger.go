// Package obslog builds the engine's structured logger on zap.
package obslog

import (
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Options selects encoding and level via the ambient LOG_FORMAT /
// LOG_LEVEL environment conventions rather than a config file section —
// logging setup must work before configuration has loaded.
type Options struct {
	Format string // "json" (default) or "console"
	Level  string // "debug", "info" (default), "warn", "error"
}

// New builds a production-shaped zap.Logger: ISO8601 timestamps, one
// JSON object per line by default, console encoding for local use.
func New(opts Options) (*zap.Logger, error) {
	level := zapcore.InfoLevel
	if opts.Level != "" {
		if err := level.UnmarshalText([]byte(strings.ToLower(opts.Level))); err != nil {
			return nil, err
		}
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(level)
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	if strings.EqualFold(opts.Format, "console") {
		cfg.Encoding = "console"
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	return cfg.Build()
}

// Nop returns a logger that discards everything, for tests.
func Nop() *zap.Logger { return zap.NewNop() }
