package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]interface{} {
	t.Helper()
	var entries []map[string]interface{}
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var entry map[string]interface{}
		require.NoError(t, json.Unmarshal([]byte(line), &entry), line)
		entries = append(entries, entry)
	}
	return entries
}

func TestLoggerJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := New(InfoLevel, &buf)

	logger.Info("Run started", map[string]interface{}{"steps": 100})

	entries := decodeLines(t, &buf)
	require.Len(t, entries, 1)
	e := entries[0]
	assert.Equal(t, "INFO", e["level"])
	assert.Equal(t, "Run started", e["message"])
	assert.Equal(t, float64(100), e["steps"])
	assert.NotEmpty(t, e["timestamp"])
	assert.Contains(t, e["caller"], "logging/logger_test.go:")
}

func TestLoggerLevels(t *testing.T) {
	var buf bytes.Buffer
	logger := New(WarnLevel, &buf)

	logger.Debug("debug")
	logger.Info("info")
	logger.Warn("warn")
	logger.Error("error")

	entries := decodeLines(t, &buf)
	require.Len(t, entries, 2)
	assert.Equal(t, "warn", entries[0]["message"])
	assert.Equal(t, "error", entries[1]["message"])
	assert.Equal(t, WarnLevel, logger.Level())
}

func TestLoggerFatal(t *testing.T) {
	var buf bytes.Buffer
	logger := New(InfoLevel, &buf)
	var code int
	logger.exit = func(c int) { code = c }

	logger.Fatal("boom")

	assert.Equal(t, 1, code)
	assert.Contains(t, buf.String(), `"level":"FATAL"`)
}

func TestWithFields(t *testing.T) {
	var buf bytes.Buffer
	base := New(DebugLevel, &buf)
	child := base.WithFields(map[string]interface{}{"service": "gradbench"}).WithField("run_id", "abc")

	child.Debug("step")
	base.Debug("plain")

	entries := decodeLines(t, &buf)
	require.Len(t, entries, 2)
	assert.Equal(t, "gradbench", entries[0]["service"])
	assert.Equal(t, "abc", entries[0]["run_id"])
	assert.NotContains(t, entries[1], "service")
	assert.NotContains(t, entries[1], "run_id")
}

func TestErrorFields(t *testing.T) {
	var buf bytes.Buffer
	logger := New(InfoLevel, &buf)

	logger.WithError(errors.New("first")).Error("failed", map[string]interface{}{"cause": errors.New("second")})

	entries := decodeLines(t, &buf)
	require.Len(t, entries, 1)
	assert.Equal(t, "first", entries[0]["error"])
	assert.Equal(t, "second", entries[0]["cause"])
}

func TestUnencodableFieldsFallBack(t *testing.T) {
	var buf bytes.Buffer
	logger := New(InfoLevel, &buf)

	logger.Warn("Run diverged", map[string]interface{}{"x": func() {}})

	out := buf.String()
	assert.Contains(t, out, "[WARN] Run diverged")
	assert.True(t, strings.HasSuffix(out, "\n"))
}

func TestTextFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := New(InfoLevel, &buf)
	logger.format = TextFormat

	logger.Info("Run finished", map[string]interface{}{"value": 0.5, "algorithm": "adam"})

	line := strings.TrimSpace(buf.String())
	assert.Contains(t, line, "INFO  Run finished")
	ai := strings.Index(line, "algorithm=adam")
	vi := strings.Index(line, "value=0.5")
	require.NotEqual(t, -1, ai)
	require.NotEqual(t, -1, vi)
	assert.Less(t, ai, vi)
}

func TestContextLogger(t *testing.T) {
	var buf bytes.Buffer
	ctxLogger := &CtxLogger{New(InfoLevel, &buf).WithField("request_id", "r-1")}
	ctx := ctxLogger.WithContext(context.Background())

	FromContext(ctx).Info("hello")
	assert.Contains(t, buf.String(), `"request_id":"r-1"`)

	assert.NotNil(t, FromContext(context.Background()))
}

func TestNewLogger(t *testing.T) {
	logger, err := NewLogger(nil)
	require.NoError(t, err)
	assert.Equal(t, InfoLevel, logger.Level())
	assert.Equal(t, JSONFormat, logger.format)

	path := filepath.Join(t.TempDir(), "gradbench.log")
	logger, err = NewLogger(&Config{Level: "debug", Format: "console", Output: path})
	require.NoError(t, err)
	assert.Equal(t, DebugLevel, logger.Level())
	assert.Equal(t, TextFormat, logger.format)

	logger.Debug("written")
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "written")

	_, err = NewLogger(&Config{Output: filepath.Join(t.TempDir(), "missing", "x.log")})
	assert.Error(t, err)

	logger, err = NewLogger(&Config{Output: "discard", Level: "warning"})
	require.NoError(t, err)
	assert.Equal(t, WarnLevel, logger.Level())
}

func TestParseLevel(t *testing.T) {
	tests := map[string]LogLevel{
		"debug":   DebugLevel,
		"WARN":    WarnLevel,
		"warning": WarnLevel,
		" info ":  InfoLevel,
		"Error":   ErrorLevel,
		"fatal":   FatalLevel,
		"verbose": InfoLevel,
		"":        InfoLevel,
	}
	for in, want := range tests {
		assert.Equal(t, want, parseLevel(in), in)
	}
}
