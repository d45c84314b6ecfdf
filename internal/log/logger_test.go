package log

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoggerAddsComponent(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: slog.LevelInfo, Format: "json", Component: ComponentTracker, Output: &buf})

	logger.Info("Transaction added", FieldUser, "alice")

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "Transaction added", rec["msg"])
	assert.Equal(t, ComponentTracker, rec[FieldComponent])
	assert.Equal(t, "alice", rec[FieldUser])
}

func TestLoggerRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: slog.LevelWarn, Output: &buf})

	logger.Info("hidden")
	logger.Warn("shown")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "shown")
	assert.Contains(t, out, "component=app")
}

func TestWithComponent(t *testing.T) {
	var buf bytes.Buffer
	base := New(Config{Output: &buf})
	export := base.WithComponent(ComponentExport)

	assert.Equal(t, ComponentExport, export.Component())
	assert.Equal(t, ComponentApp, base.Component())

	export.Info("saved")
	assert.Equal(t, 1, strings.Count(buf.String(), "component="))
	assert.Contains(t, buf.String(), "component=export")
}

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug": slog.LevelDebug,
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

func TestContextRoundTrip(t *testing.T) {
	logger := Discard().WithComponent(ComponentCLI)
	ctx := NewContext(context.Background(), logger)
	assert.Same(t, logger, FromContext(ctx))
	assert.Equal(t, "unknown", FromContext(context.Background()).Component())
}

func TestLogFields(t *testing.T) {
	f := NewFields().
		WithOperation(OpCreate).
		WithUser("alice").
		WithError(errors.New("boom")).
		WithTransaction(7, "100", "income", "2024-01-05")

	assert.Equal(t, OpCreate, f[FieldOperation])
	assert.Equal(t, "boom", f[FieldError])
	assert.Equal(t, int64(7), f[FieldTransactionID])
	assert.Len(t, f.ToSlice(), len(f)*2)

	assert.NotContains(t, NewFields().WithError(nil), FieldError)
}
