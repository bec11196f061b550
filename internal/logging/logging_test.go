package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    slog.Level
		wantErr bool
	}{
		{"", slog.LevelInfo, false},
		{"debug", slog.LevelDebug, false},
		{"INFO", slog.LevelInfo, false},
		{" Warn ", slog.LevelWarn, false},
		{"warning", slog.LevelWarn, false},
		{"error", slog.LevelError, false},
		{"verbose", slog.LevelInfo, true},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		if tt.wantErr {
			assert.Error(t, err, "ParseLevel(%q)", tt.in)
		} else {
			assert.NoError(t, err, "ParseLevel(%q)", tt.in)
		}
		assert.Equal(t, tt.want, got, "ParseLevel(%q)", tt.in)
	}
}

func TestNewWithWriter_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(&buf, "info", "json")

	logger.Debug("cache sweep", "evicted", 3)
	assert.Zero(t, buf.Len(), "debug is below info")

	logger.Info("scan completed", "host", "example.ng", "risk_level", "HIGH")

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "scan completed", rec["msg"])
	assert.Equal(t, "INFO", rec["level"])
	assert.Equal(t, Service, rec["service"])
	assert.Equal(t, "example.ng", rec["host"])
	assert.NotContains(t, rec, "source", "source is only added at debug")
}

func TestNewWithWriter_TextAndLevelFilter(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(&buf, "Warning", "text")

	logger.Info("list reloaded")
	assert.Zero(t, buf.Len())

	logger.Warn("rdap lookup failed", "domain", "x.ng")
	out := buf.String()
	assert.Contains(t, out, "level=WARN")
	assert.Contains(t, out, `msg="rdap lookup failed"`)
	assert.Contains(t, out, "domain=x.ng")
	assert.Contains(t, out, "service="+Service)
}

func TestNewWithWriter_DebugAddsSource(t *testing.T) {
	var buf bytes.Buffer
	NewWithWriter(&buf, "debug", "json").Debug("scan rejected")

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Contains(t, rec, "source")
}

func TestNewWithWriter_UnknownLevelIsInfo(t *testing.T) {
	logger := NewWithWriter(&bytes.Buffer{}, "verbose", "json")
	assert.True(t, logger.Enabled(context.Background(), slog.LevelInfo))
	assert.False(t, logger.Enabled(context.Background(), slog.LevelDebug))
}

func TestNewWithWriter_RedactsURLQuery(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"https://bank.example.ng/login?session=abc123&otp=991", "https://bank.example.ng/login?[redacted]"},
		{"https://bank.example.ng/reset#token=zz", "https://bank.example.ng/reset?[redacted]"},
		{"https://bank.example.ng/login", "https://bank.example.ng/login"},
		{"not a url %zz", "not a url %zz"},
	}
	for _, tt := range tests {
		var buf bytes.Buffer
		NewWithWriter(&buf, "info", "json").Info("scan rejected", "url", tt.in)

		var rec map[string]any
		require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
		assert.Equal(t, tt.want, rec["url"], tt.in)
	}
}

func TestNewWithWriter_OtherKeysKeepQuery(t *testing.T) {
	var buf bytes.Buffer
	NewWithWriter(&buf, "info", "text").Info("forwarding", "endpoint", "https://intake.example/v1?tenant=ng")
	assert.Contains(t, buf.String(), "tenant=ng")
}

func TestRequestID(t *testing.T) {
	ctx := context.Background()
	assert.Empty(t, RequestID(ctx))

	ctx = WithRequestID(ctx, "first")
	ctx = WithRequestID(ctx, "second")
	assert.Equal(t, "second", RequestID(ctx))
}

func TestFromContext(t *testing.T) {
	assert.Same(t, slog.Default(), FromContext(context.Background()))

	custom := NewWithWriter(&bytes.Buffer{}, "debug", "json")
	ctx := WithLogger(context.Background(), custom)
	assert.Same(t, custom, FromContext(ctx))
}

func TestL_TagsRequestID(t *testing.T) {
	var buf bytes.Buffer
	ctx := WithLogger(context.Background(), NewWithWriter(&buf, "info", "json"))

	L(ctx).Info("no id")
	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.NotContains(t, rec, "request_id")

	buf.Reset()
	L(WithRequestID(ctx, "req-456")).Info("with id")
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "req-456", rec["request_id"])
}
