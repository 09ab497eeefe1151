package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogLevelString(t *testing.T) {
	testCases := []struct {
		level    LogLevel
		expected string
	}{
		{LevelDebug, "DEBUG"},
		{LevelInfo, "INFO"},
		{LevelWarn, "WARN"},
		{LevelError, "ERROR"},
		{LogLevel(42), "UNKNOWN"},
	}

	for _, tc := range testCases {
		t.Run(tc.expected, func(t *testing.T) {
			assert.Equal(t, tc.expected, tc.level.String())
		})
	}
}

func TestParseLevel(t *testing.T) {
	testCases := []struct {
		input    string
		expected LogLevel
		wantErr  bool
	}{
		{"debug", LevelDebug, false},
		{"INFO", LevelInfo, false},
		{"", LevelInfo, false},
		{"warning", LevelWarn, false},
		{" error ", LevelError, false},
		{"verbose", LevelInfo, true},
	}

	for _, tc := range testCases {
		t.Run(tc.input, func(t *testing.T) {
			level, err := ParseLevel(tc.input)
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.expected, level)
		})
	}
}

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]interface{} {
	t.Helper()
	var records []map[string]interface{}
	for _, line := range bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n")) {
		if len(line) == 0 {
			continue
		}
		record := map[string]interface{}{}
		require.NoError(t, json.Unmarshal(line, &record))
		records = append(records, record)
	}
	return records
}

func TestLoggerJSONFields(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&LoggerConfig{Level: LevelDebug, Format: "json", Output: &buf})

	logger.WithComponent("watcher").
		With("path", "README.md").
		Warn(context.Background(), errors.New("permission denied"), "Source read failed", "attempt", 2)

	records := decodeLines(t, &buf)
	require.Len(t, records, 1)

	record := records[0]
	assert.Equal(t, "WARN", record["level"])
	assert.Equal(t, "Source read failed", record["msg"])
	assert.Equal(t, "watcher", record["component"])
	assert.Equal(t, "permission denied", record["error"])
	assert.Equal(t, "README.md", record["path"])
	assert.Equal(t, float64(2), record["attempt"])
}

func TestLoggerLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&LoggerConfig{Level: LevelWarn, Format: "json", Output: &buf})
	ctx := context.Background()

	logger.Debug(ctx, "hidden")
	logger.Info(ctx, "hidden")
	logger.Warn(ctx, nil, "shown")
	logger.Error(ctx, errors.New("boom"), "shown too")

	records := decodeLines(t, &buf)
	require.Len(t, records, 2)
	assert.Equal(t, "WARN", records[0]["level"])
	assert.Equal(t, "ERROR", records[1]["level"])
}

func TestLoggerWithDoesNotMutateParent(t *testing.T) {
	var buf bytes.Buffer
	parent := NewLogger(&LoggerConfig{Level: LevelInfo, Format: "json", Output: &buf})
	child := parent.With("viewer", 7)

	parent.Info(context.Background(), "parent")
	child.Info(context.Background(), "child")

	records := decodeLines(t, &buf)
	require.Len(t, records, 2)
	_, hasViewer := records[0]["viewer"]
	assert.False(t, hasViewer)
	assert.Equal(t, float64(7), records[1]["viewer"])
}

func TestLoggerDropsMalformedFields(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&LoggerConfig{Level: LevelInfo, Format: "json", Output: &buf})

	logger.Info(context.Background(), "odd fields", 12, "ignored", "dangling")

	records := decodeLines(t, &buf)
	require.Len(t, records, 1)
	_, hasDangling := records[0]["dangling"]
	assert.False(t, hasDangling)
}

func TestDiscard(t *testing.T) {
	logger := Discard()
	assert.NotPanics(t, func() {
		logger.Error(context.Background(), errors.New("x"), "nothing")
	})
}
