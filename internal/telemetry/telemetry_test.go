package telemetry

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shaiso/permitflow/internal/domain"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("debug"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("WARN"))
	assert.Equal(t, slog.LevelError, ParseLevel("ERROR"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("verbose"))
}

func TestWithTask_AddsAttributes(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, "INFO", "json")

	task := &domain.Task{
		ID:          "t-1",
		TopicName:   "OrderCardTask",
		BusinessKey: "PRH-1",
		Variables:   map[string]any{domain.VarCaseNumber: int64(42)},
	}
	WithTask(logger, task).Info("task started")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "t-1", entry["task_id"])
	assert.Equal(t, "OrderCardTask", entry["topic"])
	assert.Equal(t, "PRH-1", entry["business_key"])
	assert.Equal(t, "42", entry["errand_number"])
}

func TestFromContext_FallsBackToDefault(t *testing.T) {
	assert.Equal(t, slog.Default(), FromContext(context.Background()))

	logger := NewLogger(&bytes.Buffer{}, "", "text")
	ctx := WithLogger(context.Background(), logger)
	assert.Equal(t, logger, FromContext(ctx))
}

func TestMetrics(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	m.ObserveTask("OrderCardTask", OutcomeCompleted, time.Second)
	m.DuplicateAbsorbed("rpa")
	m.DuplicateAbsorbed("rpa")
	m.SetBackoff("OrderCardTask", 4*time.Second)
	m.Purged(3)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.TasksTotal.WithLabelValues("OrderCardTask", OutcomeCompleted)))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.DuplicatesAbsorbed.WithLabelValues("rpa")))
	assert.Equal(t, 4.0, testutil.ToFloat64(m.FetchBackoff.WithLabelValues("OrderCardTask")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.JournalPurged))

	var nilMetrics *Metrics
	nilMetrics.ObserveTask("x", OutcomeLost, 0)
}
