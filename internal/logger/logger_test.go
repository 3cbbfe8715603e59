package logger

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWithWriterJSON(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(&buf, "json", "info")
	l.Info("catalog ready", "imdb_id", "tt0133093")

	assert.Contains(t, buf.String(), `"msg":"catalog ready"`)
	assert.Contains(t, buf.String(), `"imdb_id":"tt0133093"`)
}

func TestNewWithWriterPretty(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(&buf, "pretty", "info")
	l.Info("catalog ready")

	assert.Contains(t, buf.String(), "level=INFO")
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(&buf, "json", "warn")
	l.Info("hidden")
	l.Warn("shown")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("debug"))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("loud"))
}

func TestNewWritesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.log")
	l := New("json", "info", path)
	l.Info("to file")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "to file")
}
