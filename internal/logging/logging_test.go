package logging_test

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/highlightlab/clipline/internal/logging"
)

func TestWithRunIDRoundTrips(t *testing.T) {
	ctx := logging.WithRunID(context.Background(), "run-123")
	got, ok := logging.RunIDFromContext(ctx)
	assert.True(t, ok)
	assert.Equal(t, "run-123", got)
}

func TestRunIDFromContextMissingReturnsFalse(t *testing.T) {
	_, ok := logging.RunIDFromContext(context.Background())
	assert.False(t, ok)
}

func TestForServiceNeverReturnsNil(t *testing.T) {
	log := logging.ForService("decoder")
	assert.NotNil(t, log)
	assert.NotPanics(t, func() { log.Info("probe ok", "duration", 1.0) })
}

func TestStructuredNeverReturnsNil(t *testing.T) {
	log := logging.Structured("pipeline")
	assert.NotNil(t, log)
	assert.NotPanics(t, func() { log.Debug("stage complete") })
}

func TestSetLevelDoesNotPanic(t *testing.T) {
	assert.NotPanics(t, func() { logging.SetLevel(slog.LevelWarn) })
	assert.NotPanics(t, func() { logging.SetLevel(slog.LevelDebug) })
}
