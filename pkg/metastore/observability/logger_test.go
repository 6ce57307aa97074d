package observability

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testHandler captures log records as JSON lines.
type testHandler struct {
	buf   *bytes.Buffer
	level slog.Level
	attrs []slog.Attr
}

func newTestHandler() *testHandler {
	return &testHandler{
		buf:   &bytes.Buffer{},
		level: slog.LevelDebug,
	}
}

func (h *testHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level
}

func (h *testHandler) Handle(_ context.Context, r slog.Record) error {
	data := map[string]any{
		"level": r.Level.String(),
		"msg":   r.Message,
	}
	for _, attr := range h.attrs {
		data[attr.Key] = attr.Value.Any()
	}
	r.Attrs(func(a slog.Attr) bool {
		data[a.Key] = a.Value.Any()
		return true
	})
	return json.NewEncoder(h.buf).Encode(data)
}

func (h *testHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	merged := make([]slog.Attr, 0, len(h.attrs)+len(attrs))
	merged = append(merged, h.attrs...)
	merged = append(merged, attrs...)
	return &testHandler{buf: h.buf, level: h.level, attrs: merged}
}

func (h *testHandler) WithGroup(_ string) slog.Handler {
	return h
}

func (h *testHandler) records(t *testing.T) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range bytes.Split(h.buf.Bytes(), []byte("\n")) {
		if len(line) == 0 {
			continue
		}
		var rec map[string]any
		require.NoError(t, json.Unmarshal(line, &rec))
		out = append(out, rec)
	}
	return out
}

func (h *testHandler) last(t *testing.T) map[string]any {
	t.Helper()
	recs := h.records(t)
	require.NotEmpty(t, recs)
	return recs[len(recs)-1]
}

func TestEnrichLogger(t *testing.T) {
	t.Run("adds table and job", func(t *testing.T) {
		h := newTestHandler()
		logger := EnrichLogger(slog.New(h), "ks.checkpoints", "ingest")
		logger.Info("hello")

		rec := h.last(t)
		assert.Equal(t, "ks.checkpoints", rec["table"])
		assert.Equal(t, "ingest", rec["job"])
		assert.Equal(t, "hello", rec["msg"])
	})

	t.Run("nil logger stays nil", func(t *testing.T) {
		assert.Nil(t, EnrichLogger(nil, "t", "j"))
	})
}

func TestLogStatement(t *testing.T) {
	h := newTestHandler()
	LogStatement(slog.New(h), "insert", "ks.tbl", 1.5)

	rec := h.last(t)
	assert.Equal(t, "DEBUG", rec["level"])
	assert.Equal(t, "statement executed", rec["msg"])
	assert.Equal(t, "insert", rec["kind"])
	assert.Equal(t, "ks.tbl", rec["table"])
	assert.InDelta(t, 1.5, rec["duration_ms"], 0.0001)
}

func TestLogStatementError(t *testing.T) {
	h := newTestHandler()
	LogStatementError(slog.New(h), "delete", "ks.tbl", 3, errors.New("unavailable"))

	rec := h.last(t)
	assert.Equal(t, "ERROR", rec["level"])
	assert.Equal(t, "delete", rec["kind"])
	assert.EqualValues(t, 3, rec["attempts"])
	assert.Equal(t, "unavailable", rec["error"])
}

func TestLogCheckpoint(t *testing.T) {
	h := newTestHandler()
	LogCheckpoint(slog.New(h), "j1", "2024-01-01T00:00:00.000000000Z", 42)

	rec := h.last(t)
	assert.Equal(t, "checkpoint saved", rec["msg"])
	assert.Equal(t, "j1", rec["job"])
	assert.EqualValues(t, 42, rec["size_bytes"])
}

func TestLogPrune(t *testing.T) {
	t.Run("nothing pruned logs at debug", func(t *testing.T) {
		h := newTestHandler()
		LogPrune(slog.New(h), "j1", 0, 5)

		rec := h.last(t)
		assert.Equal(t, "DEBUG", rec["level"])
		assert.Equal(t, "retention satisfied", rec["msg"])
	})

	t.Run("pruned logs at info", func(t *testing.T) {
		h := newTestHandler()
		LogPrune(slog.New(h), "j1", 2, 5)

		rec := h.last(t)
		assert.Equal(t, "INFO", rec["level"])
		assert.EqualValues(t, 2, rec["pruned"])
		assert.EqualValues(t, 5, rec["keep"])
	})
}

func TestLogRetentionError(t *testing.T) {
	h := newTestHandler()
	LogRetentionError(slog.New(h), "j1", errors.New("boom"))

	rec := h.last(t)
	assert.Equal(t, "WARN", rec["level"])
	assert.Equal(t, "boom", rec["error"])
}

func TestNilLoggerIsSafe(t *testing.T) {
	assert.NotPanics(t, func() {
		LogStatement(nil, "insert", "t", 1)
		LogStatementError(nil, "insert", "t", 1, errors.New("x"))
		LogCheckpoint(nil, "j", "ts", 1)
		LogPrune(nil, "j", 1, 1)
		LogRetentionError(nil, "j", errors.New("x"))
	})
}

func TestTimedOperation(t *testing.T) {
	elapsed := TimedOperation()
	assert.GreaterOrEqual(t, elapsed(), 0.0)
}
