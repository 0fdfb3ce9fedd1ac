package app

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLoggerHonorsLogLevel(t *testing.T) {
	ctx := context.Background()

	logger := NewLogger(&Config{LogLevel: "debug"})
	assert.True(t, logger.Enabled(ctx, slog.LevelDebug))

	logger = NewLogger(&Config{LogLevel: "warn"})
	assert.False(t, logger.Enabled(ctx, slog.LevelInfo))
	assert.True(t, logger.Enabled(ctx, slog.LevelWarn))

	logger = NewLogger(&Config{LogLevel: "ERROR"})
	assert.False(t, logger.Enabled(ctx, slog.LevelWarn))
}

func TestLoggerDefaultsToInfo(t *testing.T) {
	ctx := context.Background()

	for _, cfg := range []*Config{nil, {}, {LogLevel: "bogus"}} {
		logger := NewLogger(cfg)
		assert.False(t, logger.Enabled(ctx, slog.LevelDebug))
		assert.True(t, logger.Enabled(ctx, slog.LevelInfo))
	}
}
