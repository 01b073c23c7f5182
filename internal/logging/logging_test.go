package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNew_JSONToWriter(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	l, err := New(Config{Level: "warn", Format: "json"}, &buf)
	require.NoError(t, err)

	l.Info("dropped")
	l.Warn("provider failed", "provider", "luse-api")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 1)
	var rec map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &rec))
	require.Equal(t, "provider failed", rec["msg"])
	require.Equal(t, "luse-api", rec["provider"])
	require.Equal(t, "WARN", rec["level"])
}

func TestNew_TextFormat(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	l, err := New(Config{Format: "text"}, &buf)
	require.NoError(t, err)
	l.Info("hello", "k", "v")
	require.Contains(t, buf.String(), "msg=hello k=v")
}

func TestNew_FileOutput(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "nested", "app.log")
	var buf bytes.Buffer
	cfg := Default()
	cfg.Output = "both"
	cfg.FilePath = path

	l, err := New(cfg, &buf)
	require.NoError(t, err)
	l.Info("table resolved", "source", "luse-api")

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(b), "table resolved")
	require.Contains(t, buf.String(), "table resolved")

	_, err = New(Config{Output: "file"}, &buf)
	require.Error(t, err)
}

func TestParseLevel(t *testing.T) {
	t.Parallel()

	require.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	require.Equal(t, slog.LevelWarn, ParseLevel("warning"))
	require.Equal(t, slog.LevelError, ParseLevel(" error "))
	require.Equal(t, slog.LevelInfo, ParseLevel("loud"))
}

func TestFromContext_AddsRequestID(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	base := slog.New(slog.NewJSONHandler(&buf, nil))
	ctx := WithRequestID(context.Background(), "req-1")
	require.Equal(t, "req-1", RequestID(ctx))

	FromContext(ctx, base).Info("served")
	require.Contains(t, buf.String(), `"request_id":"req-1"`)

	buf.Reset()
	FromContext(context.Background(), base).Info("served")
	require.NotContains(t, buf.String(), "request_id")
}
