package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_DefaultTextLogger(t *testing.T) {
	var buf bytes.Buffer
	l := New(WithWriter(&buf))
	l.Info("hello", "key", "value")

	out := buf.String()
	assert.Contains(t, out, "hello")
	assert.Contains(t, out, "key")
	assert.Contains(t, out, "value")
}

func TestNew_FiltersDebugByDefault(t *testing.T) {
	var buf bytes.Buffer
	l := New(WithWriter(&buf))
	l.Debug("hidden")

	assert.Empty(t, buf.String())
}

func TestNew_WithDebug(t *testing.T) {
	var buf bytes.Buffer
	l := New(WithWriter(&buf), WithDebug(true))
	l.Debug("debug msg")

	assert.Contains(t, buf.String(), "debug msg")
}

func TestNew_WithLevel(t *testing.T) {
	var buf bytes.Buffer
	l := New(WithWriter(&buf), WithLevel(slog.LevelWarn))

	l.Info("quiet")
	assert.Empty(t, buf.String())

	l.Warn("loud")
	assert.Contains(t, buf.String(), "loud")
}

func TestNew_JSONHandler(t *testing.T) {
	var buf bytes.Buffer
	l := New(WithWriter(&buf), WithJSON(true))
	l.Info("structured", "count", 42)

	var parsed map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &parsed))
	assert.Equal(t, "structured", parsed["msg"])
	assert.EqualValues(t, 42, parsed["count"])
}

func TestNew_PrettyHandler(t *testing.T) {
	var buf bytes.Buffer
	l := New(WithWriter(&buf), WithPretty(true))
	l.Info("pretty output")

	assert.Contains(t, buf.String(), "pretty output")
}

func TestNew_PrettyRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	l := New(WithWriter(&buf), WithPretty(true), WithLevel(slog.LevelError))
	l.Info("suppressed")

	assert.Empty(t, buf.String())
}

func TestNew_MultipleWriters(t *testing.T) {
	var buf1, buf2 bytes.Buffer
	l := New(WithWriters(&buf1, &buf2))
	l.Info("multi")

	assert.Contains(t, buf1.String(), "multi")
	assert.Contains(t, buf2.String(), "multi")
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"DEBUG", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"  Error  ", slog.LevelError},
		{"", slog.LevelInfo},
		{"verbose", slog.LevelInfo},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, ParseLevel(tt.in), "input %q", tt.in)
	}
}
