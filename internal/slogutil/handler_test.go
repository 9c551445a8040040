package slogutil

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandler_Format(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, slog.LevelInfo)

	logger.Info("resolved includes", "file", "a/b.c", "count", 42)

	line := buf.String()
	assert.Contains(t, line, " [info] resolved includes | ")
	assert.Contains(t, line, "file=a/b.c")
	assert.Contains(t, line, "count=42")
	assert.True(t, strings.HasSuffix(line, "\n"))
}

func TestHandler_NoAttrsNoSeparator(t *testing.T) {
	var buf bytes.Buffer
	NewLogger(&buf, slog.LevelInfo).Info("plain")
	assert.NotContains(t, buf.String(), "|")
}

func TestHandler_Levels(t *testing.T) {
	tests := []struct {
		name string
		log  func(*slog.Logger)
		want string
	}{
		{"debug", func(l *slog.Logger) { l.Debug("m") }, "[debug]"},
		{"info", func(l *slog.Logger) { l.Info("m") }, "[info]"},
		{"warn", func(l *slog.Logger) { l.Warn("m") }, "[warn]"},
		{"error", func(l *slog.Logger) { l.Error("m") }, "[error]"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			tt.log(NewLogger(&buf, slog.LevelDebug))
			assert.Contains(t, buf.String(), tt.want)
		})
	}
}

func TestHandler_Filtering(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, slog.LevelWarn)
	logger.Info("hidden")
	logger.Warn("shown")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
}

func TestHandler_WithAttrsAndGroup(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, slog.LevelInfo).
		With("stage", "condense").
		WithGroup("level").
		With("name", "package")

	logger.Info("done", "nodes", 3)

	line := buf.String()
	assert.Contains(t, line, "stage=condense")
	assert.Contains(t, line, "level.name=package")
	assert.Contains(t, line, "level.nodes=3")
}

func TestHandler_QuotesStrings(t *testing.T) {
	var buf bytes.Buffer
	NewLogger(&buf, slog.LevelInfo).Info("m", "msg", "two words", "empty", "")
	assert.Contains(t, buf.String(), `msg="two words"`)
	assert.Contains(t, buf.String(), `empty=""`)
}

func TestLevelFromString(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, LevelFromString("DEBUG"))
	assert.Equal(t, slog.LevelWarn, LevelFromString("warning"))
	assert.Equal(t, slog.LevelError, LevelFromString("error"))
	assert.Equal(t, LevelSilent, LevelFromString("off"))
	assert.Equal(t, slog.LevelInfo, LevelFromString("bogus"))
}

func TestLevelFromVerbosity(t *testing.T) {
	assert.Equal(t, slog.LevelWarn, LevelFromVerbosity(0, false))
	assert.Equal(t, slog.LevelInfo, LevelFromVerbosity(1, false))
	assert.Equal(t, slog.LevelDebug, LevelFromVerbosity(3, false))
	assert.Equal(t, LevelSilent, LevelFromVerbosity(2, true))
}

func TestDiscardLogger(t *testing.T) {
	logger := NewDiscardLogger()
	assert.False(t, logger.Enabled(t.Context(), slog.LevelError))
}

func TestTeeLogger(t *testing.T) {
	var a, b bytes.Buffer
	logger := NewTeeLogger(
		NewHandler(&a, &slog.HandlerOptions{Level: slog.LevelDebug}),
		NewHandler(&b, &slog.HandlerOptions{Level: slog.LevelWarn}),
	)
	logger.With("k", "v").Info("only-a")
	logger.Warn("both")

	assert.Contains(t, a.String(), "only-a")
	assert.Contains(t, a.String(), "k=v")
	assert.NotContains(t, b.String(), "only-a")
	assert.Contains(t, b.String(), "both")
}

func TestNewFileLogger(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cppdep.log")
	logger, f, err := NewFileLogger(path, slog.LevelInfo)
	require.NoError(t, err)
	logger.Info("to file")
	require.NoError(t, f.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "to file")
}
