package log

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n")) {
		if len(line) == 0 {
			continue
		}
		var m map[string]any
		require.NoError(t, json.Unmarshal(line, &m))
		out = append(out, m)
	}
	return out
}

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug": slog.LevelDebug,
		"":      slog.LevelInfo,
		"INFO":  slog.LevelInfo,
		"warn":  slog.LevelWarn,
		"error": slog.LevelError,
	}
	for in, want := range cases {
		got, err := ParseLevel(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseLevel("loud")
	assert.Error(t, err)
}

func TestLoggerAddsComponent(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Format: "json", Output: &buf, Component: ComponentAuth})

	l.Info("hello", FieldUserID, int64(3))
	l.WithComponent(ComponentCache).Warn("swept")

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 2)
	assert.Equal(t, "auth", lines[0][FieldComponent])
	assert.Equal(t, float64(3), lines[0][FieldUserID])
	assert.Equal(t, "cache", lines[1][FieldComponent])
	assert.Equal(t, "WARN", lines[1]["level"])
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Format: "json", Output: &buf, Level: slog.LevelWarn})

	l.Info("dropped")
	l.Error("kept")

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "kept", lines[0]["msg"])
}

func TestFromContext(t *testing.T) {
	l := Discard().WithComponent("x")
	ctx := WithContext(context.Background(), l)
	assert.Same(t, l, FromContext(ctx))

	fallback := FromContext(context.Background())
	assert.Equal(t, "unknown", fallback.Component())
}

func TestLogHTTPEndLevels(t *testing.T) {
	var buf bytes.Buffer
	sl := NewStructuredLogger(New(Config{Format: "json", Output: &buf}))
	r := httptest.NewRequest(http.MethodGet, "/api/transactions?limit=5", nil)

	sl.LogHTTPEnd(context.Background(), r, 200, NewFields().WithRequestID("req_1"))
	sl.LogHTTPEnd(context.Background(), r, 404, NewFields())
	sl.LogHTTPEnd(context.Background(), r, 502, NewFields())

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 3)
	assert.Equal(t, "INFO", lines[0]["level"])
	assert.Equal(t, "req_1", lines[0][FieldRequestID])
	assert.Equal(t, "limit=5", lines[0][FieldQuery])
	assert.Equal(t, "WARN", lines[1]["level"])
	assert.Equal(t, "ERROR", lines[2]["level"])
	assert.Equal(t, "http", lines[2][FieldComponent])
}

func TestLogError(t *testing.T) {
	var buf bytes.Buffer
	sl := NewStructuredLogger(New(Config{Format: "json", Output: &buf}))

	sl.LogError(context.Background(), "publish failed", errors.New("boom"), ComponentAMQP, OpCreate,
		NewFields().WithTransaction(9, "expense", 1250, "food"))

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "boom", lines[0][FieldError])
	assert.Equal(t, "amqp", lines[0][FieldComponent])
	assert.Equal(t, float64(9), lines[0][FieldTransactionID])
	assert.Equal(t, "create", lines[0][FieldOperation])
}

func TestFromSettings(t *testing.T) {
	l := FromSettings("warn", "json")
	assert.False(t, l.Enabled(context.Background(), slog.LevelInfo))
	assert.True(t, l.Enabled(context.Background(), slog.LevelWarn))
	assert.Equal(t, ComponentApp, l.Component())

	l = FromSettings("shouting", "text")
	assert.True(t, l.Enabled(context.Background(), slog.LevelInfo))
}
