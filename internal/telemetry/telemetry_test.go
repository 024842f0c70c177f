package telemetry

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"DEBUG": slog.LevelDebug,
		"WARN":  slog.LevelWarn,
		"ERROR": slog.LevelError,
		"":      slog.LevelInfo,
		"bogus": slog.LevelInfo,
	}
	for env, want := range tests {
		t.Setenv("LOG_LEVEL", env)
		assert.Equal(t, want, LogLevel(), "LOG_LEVEL=%q", env)
	}
}

func TestTaskLogger_WritesToBothSinks(t *testing.T) {
	var base bytes.Buffer
	path := filepath.Join(t.TempDir(), "logs", "replay.log")

	logger, closer, err := TaskLogger(slog.New(slog.NewJSONHandler(&base, nil)), path)
	require.NoError(t, err)

	logger.Info("node finished", "step_index", 3)
	logger.Debug("debug goes only to the file")
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"step_index":3`)
	assert.Contains(t, string(data), "debug goes only to the file")

	assert.Contains(t, base.String(), "node finished")
	assert.NotContains(t, base.String(), "debug goes only")
}

func TestFromContext(t *testing.T) {
	assert.Equal(t, slog.Default(), FromContext(context.Background()))

	l := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	assert.Equal(t, l, FromContext(WithLogger(context.Background(), l)))
}

func TestNewMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	m.TasksTotal.WithLabelValues(OutcomeSuccess).Inc()
	m.QueueDepth.Set(4)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.TasksTotal.WithLabelValues(OutcomeSuccess)))
	assert.Equal(t, 4.0, testutil.ToFloat64(m.QueueDepth))

	n, err := testutil.GatherAndCount(reg, "replay_tasks_total", "replay_queue_depth")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}
