package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogFilePath(t *testing.T) {
	sessionStart := time.Date(2026, 2, 12, 21, 38, 36, 0, time.UTC)

	tests := []struct {
		name    string
		logsDir string
		appName string
		want    string
	}{
		{
			name:    "basic path",
			logsDir: "flightlogs",
			appName: "flightctl",
			want:    filepath.Join("flightlogs", "flightctl.20260212_213836.log"),
		},
		{
			name:    "relative path with dot",
			logsDir: "./flightlogs",
			appName: "flightctl",
			want:    filepath.Join(".", "flightlogs", "flightctl.20260212_213836.log"),
		},
		{
			name:    "absolute path",
			logsDir: filepath.Join("/var", "log", "flightctl"),
			appName: "flightctl",
			want:    filepath.Join("/var", "log", "flightctl", "flightctl.20260212_213836.log"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, LogFilePath(tt.logsDir, tt.appName, sessionStart))
		})
	}
}

func TestOpenLogFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "logs")
	start := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	f, err := OpenLogFile(dir, "flightctl", start)
	require.NoError(t, err)
	t.Cleanup(func() { f.Close() })

	_, err = f.WriteString("hello\n")
	require.NoError(t, err)

	data, err := os.ReadFile(LogFilePath(dir, "flightctl", start))
	require.NoError(t, err)
	assert.Equal(t, "hello\n", string(data))
}

func TestNewZerolog(t *testing.T) {
	var buf bytes.Buffer
	logger := NewZerolog(&buf, "warn", "database")

	logger.Info().Msg("filtered")
	logger.Warn().Str("host", "localhost").Msg("fallback to sqlite")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "warn", entry["level"])
	assert.Equal(t, "database", entry["component"])
	assert.Equal(t, "localhost", entry["host"])
	assert.Equal(t, "fallback to sqlite", entry["message"])
}

func TestNewZerolog_BadLevelDefaultsToInfo(t *testing.T) {
	var buf bytes.Buffer
	logger := NewZerolog(&buf, "loud", "influx")

	logger.Debug().Msg("filtered")
	assert.Empty(t, buf.String())
	logger.Info().Msg("kept")
	assert.Contains(t, buf.String(), "kept")
}

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	return entry
}

func TestDispatcherLogger_Levels(t *testing.T) {
	tests := []struct {
		level string
		log   func(*DispatcherLogger)
	}{
		{"debug", func(l *DispatcherLogger) { l.Debug("handling event", "command", "throttle", "args", 1) }},
		{"info", func(l *DispatcherLogger) { l.Info("handling event", "command", "throttle", "args", 1) }},
		{"error", func(l *DispatcherLogger) { l.Error("handling event", "command", "throttle", "args", 1) }},
	}
	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			var buf bytes.Buffer
			dl := NewDispatcherLogger(zerolog.New(&buf).Level(zerolog.DebugLevel))

			tt.log(dl)

			entry := decodeLine(t, &buf)
			assert.Equal(t, tt.level, entry["level"])
			assert.Equal(t, "handling event", entry["message"])
			assert.Equal(t, "throttle", entry["command"])
			assert.Equal(t, float64(1), entry["args"])
		})
	}
}

func TestDispatcherLogger_RespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	dl := NewDispatcherLogger(zerolog.New(&buf).Level(zerolog.InfoLevel))

	dl.Debug("hidden")
	assert.Empty(t, buf.String())
}

type gear int

func (g gear) String() string { return [...]string{"up", "down"}[g] }

func TestDispatcherLogger_TypedFields(t *testing.T) {
	var buf bytes.Buffer
	dl := NewDispatcherLogger(zerolog.New(&buf))

	dl.Error("event failed",
		"duration", 1500*time.Millisecond,
		"error", errors.New("engine flameout"),
		"gear", gear(1),
		42, "skipped",
		"dangling")

	entry := decodeLine(t, &buf)
	assert.Equal(t, float64(1500), entry["duration"])
	assert.Equal(t, "engine flameout", entry["error"])
	assert.Equal(t, "down", entry["gear"])
	assert.Equal(t, "dangling", entry["!BADKEY"])
	assert.NotContains(t, entry, "42")
}
