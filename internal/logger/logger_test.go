package logger_test

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/vytor/verve/internal/logger"
)

func newBufferLogger(level logger.Level) (*logger.Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	return logger.New(
		logger.WithOutput(&buf),
		logger.WithLevel(level),
		logger.WithColors(false),
	), &buf
}

func TestParseLevel(t *testing.T) {
	tests := map[string]logger.Level{
		"debug":   logger.DEBUG,
		"INFO":    logger.INFO,
		"warning": logger.WARN,
		"WARN":    logger.WARN,
		"Error":   logger.ERROR,
		"bogus":   logger.INFO,
		"":        logger.INFO,
	}
	for in, want := range tests {
		assert.Equal(t, want, logger.ParseLevel(in), in)
	}
}

func TestLogger_FormatsMessage(t *testing.T) {
	log, buf := newBufferLogger(logger.DEBUG)

	log.Info("loaded %d cards for set %s", 12, "verbs")

	out := buf.String()
	assert.Contains(t, out, "INFO")
	assert.Contains(t, out, "loaded 12 cards for set verbs")
	assert.Contains(t, out, "logger_test.go")
}

func TestLogger_FiltersBelowLevel(t *testing.T) {
	log, buf := newBufferLogger(logger.WARN)

	log.Debug("debug line")
	log.Info("info line")
	log.Warn("warn line")
	log.Error("error line")

	out := buf.String()
	assert.NotContains(t, out, "debug line")
	assert.NotContains(t, out, "info line")
	assert.Contains(t, out, "warn line")
	assert.Contains(t, out, "error line")
}

func TestLogger_PrefixAndFields(t *testing.T) {
	log, buf := newBufferLogger(logger.INFO)

	log.WithPrefix("write_queue").
		WithField("key", "3/Hund").
		WithFields(map[string]any{"attempt": 2}).
		Warn("retrying")

	out := buf.String()
	assert.Contains(t, out, "write_queue")
	assert.Contains(t, out, "3/Hund")
	assert.Contains(t, out, "attempt")
	assert.Contains(t, out, "retrying")
}

func TestLogger_WithFieldDoesNotMutateParent(t *testing.T) {
	log, buf := newBufferLogger(logger.INFO)

	_ = log.WithField("child", true)
	log.Info("parent")

	assert.NotContains(t, buf.String(), "child")
}

func TestContext(t *testing.T) {
	log, buf := newBufferLogger(logger.INFO)

	ctx := logger.NewContext(context.Background(), log)
	logger.FromContext(ctx).Info("from context")

	assert.Contains(t, buf.String(), "from context")
	assert.Same(t, logger.Default(), logger.FromContext(context.Background()))
}
