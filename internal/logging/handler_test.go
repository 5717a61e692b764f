// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"

	"github.com/holomush/authcore/pkg/errutil"
)

func newTestLogger(t *testing.T, format, level string) (*slog.Logger, *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	logger, err := New(Options{Service: "authcore", Version: "1.2.3", Format: format, Level: level, Writer: &buf})
	require.NoError(t, err)
	return logger, &buf
}

func decodeEntry(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry), "invalid JSON: %s", buf.String())
	return entry
}

func TestNew_JSONFormat(t *testing.T) {
	logger, buf := newTestLogger(t, "json", "")
	logger.Info("account registered")

	entry := decodeEntry(t, buf)
	assert.Equal(t, "account registered", entry["msg"])
	assert.Equal(t, "authcore", entry["service"])
	assert.Equal(t, "1.2.3", entry["version"])
	assert.Contains(t, entry, "time")
	assert.NotContains(t, entry, "trace_id")
	assert.NotContains(t, entry, "request_id")
}

func TestNew_TextFormat(t *testing.T) {
	logger, buf := newTestLogger(t, "text", "")
	logger.Info("account registered")

	assert.Contains(t, buf.String(), "account registered")
	assert.Contains(t, buf.String(), "service=authcore")
}

func TestNew_InvalidOptions(t *testing.T) {
	_, err := New(Options{Format: "xml"})
	errutil.AssertErrorCode(t, err, "LOG_FORMAT_INVALID")

	_, err = New(Options{Level: "loud"})
	errutil.AssertErrorCode(t, err, "LOG_LEVEL_INVALID")
}

func TestNew_LevelFilters(t *testing.T) {
	logger, buf := newTestLogger(t, "json", "warn")
	logger.Info("dropped")
	assert.Zero(t, buf.Len())

	logger.Warn("kept")
	assert.Equal(t, "kept", decodeEntry(t, buf)["msg"])
}

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"":        slog.LevelInfo,
		"DEBUG":   slog.LevelDebug,
		" info ":  slog.LevelInfo,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
	}
	for in, want := range tests {
		got, err := ParseLevel(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
}

func TestHandler_TraceContext(t *testing.T) {
	logger, buf := newTestLogger(t, "json", "")

	traceID, err := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	require.NoError(t, err)
	spanID, err := trace.SpanIDFromHex("00f067aa0ba902b7")
	require.NoError(t, err)
	ctx := trace.ContextWithSpanContext(context.Background(), trace.NewSpanContext(trace.SpanContextConfig{
		TraceID: traceID,
		SpanID:  spanID,
	}))

	logger.InfoContext(ctx, "traced")

	entry := decodeEntry(t, buf)
	assert.Equal(t, "4bf92f3577b34da6a3ce929d0e0e4736", entry["trace_id"])
	assert.Equal(t, "00f067aa0ba902b7", entry["span_id"])
}

func TestHandler_RequestID(t *testing.T) {
	logger, buf := newTestLogger(t, "json", "")
	ctx := WithRequestID(context.Background(), "req-42")

	logger.InfoContext(ctx, "handled")

	assert.Equal(t, "req-42", decodeEntry(t, buf)["request_id"])
	assert.Equal(t, "req-42", RequestID(ctx))
	assert.Empty(t, RequestID(context.Background()))
}

func TestHandler_WithAttrsAndGroupKeepIdentity(t *testing.T) {
	logger, buf := newTestLogger(t, "json", "")
	logger.With("component", "api").WithGroup("req").Info("grouped", "path", "/api/users")

	entry := decodeEntry(t, buf)
	assert.Equal(t, "api", entry["component"])
	group, ok := entry["req"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "/api/users", group["path"])
}
