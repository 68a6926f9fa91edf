package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	for in, want := range map[string]slog.Level{
		"":      slog.LevelInfo,
		"debug": slog.LevelDebug,
		"WARN":  slog.LevelWarn,
		"error": slog.LevelError,
	} {
		got, err := ParseLevel(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseLevel("loud")
	assert.Error(t, err)
}

func TestNewJSONWithComponent(t *testing.T) {
	var buf bytes.Buffer
	l, err := New(Options{Level: "info", Format: "json"}, &buf)
	require.NoError(t, err)

	Component(l, "ingestion").Info("fetch complete", "records", 3)
	l.Debug("hidden")

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "fetch complete", rec["msg"])
	assert.Equal(t, "ingestion", rec["component"])
	assert.EqualValues(t, 3, rec["records"])
	assert.NotContains(t, buf.String(), "hidden")
}

func TestNewDebugOverridesLevel(t *testing.T) {
	var buf bytes.Buffer
	l, err := New(Options{Level: "error", Format: "text", Debug: true}, &buf)
	require.NoError(t, err)

	l.Debug("visible")
	assert.Contains(t, buf.String(), "msg=visible")
	assert.Contains(t, buf.String(), "source=")
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	_, err := New(Options{Format: "xml"}, &bytes.Buffer{})
	assert.Error(t, err)
}

func TestSetupWritesFile(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	path := filepath.Join(t.TempDir(), "flightinsight.log")
	l, closer, err := Setup(Options{Format: "text", File: path, MaxSizeMB: 1})
	require.NoError(t, err)

	l.Info("hello file")
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "hello file")
	assert.Same(t, l, slog.Default())
}
