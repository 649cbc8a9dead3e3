// Package logging builds the process-wide structured logger. It follows
// the shape of konsul's internal/logger: an env-driven level and format,
// wrapping zap rather than the stdlib log package.
package logging

import (
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Field aliases zap.Field so callers don't need to import zap directly.
type Field = zap.Field

// ParseLevel parses a level name, defaulting to info on anything unknown.
func ParseLevel(s string) zapcore.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return zapcore.DebugLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// New builds a *zap.Logger for the given level and format ("json" or
// "console"). It never returns an error: if the config fails to build it
// falls back to zap.NewExample() so that startup can't fail because of
// LOG_FORMAT.
func New(level zapcore.Level, format string) *zap.Logger {
	var cfg zap.Config
	if strings.EqualFold(format, "json") {
		cfg = zap.NewProductionConfig()
	} else {
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeTime = zapcore.RFC3339TimeEncoder
	}
	cfg.Level = zap.NewAtomicLevelAt(level)

	logger, err := cfg.Build()
	if err != nil {
		logger = zap.NewExample()
	}
	return logger
}
