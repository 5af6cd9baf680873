package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"topmovers.com/pkg/config"
)

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zerolog.Level
	}{
		{"debug", zerolog.DebugLevel},
		{"INFO", zerolog.InfoLevel},
		{"warning", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
		{"bogus", zerolog.InfoLevel},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, parseLogLevel(tt.in), tt.in)
	}
}

func TestNew(t *testing.T) {
	l := New(&config.Config{Env: "development", LogLevel: "warn", LogFormat: "json"})
	assert.Equal(t, zerolog.WarnLevel, l.Zerolog().GetLevel())
}

func TestLogger_Fields(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(&buf, "debug")

	l.WithField("stock", 42).
		WithFields(map[string]any{"side": "gainers"}).
		WithError(errors.New("boom")).
		Infof("tops changed %d", 3)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "info", entry["level"])
	assert.Equal(t, "tops changed 3", entry["message"])
	assert.Equal(t, float64(42), entry["stock"])
	assert.Equal(t, "gainers", entry["side"])
	assert.Equal(t, "boom", entry["error"])
}

func TestLogger_LevelFilter(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(&buf, "warn")

	l.Debug("hidden")
	l.Info("hidden")
	assert.Zero(t, buf.Len())

	l.Warn("shown")
	assert.Contains(t, buf.String(), "shown")
}

func TestNop(t *testing.T) {
	assert.NotPanics(t, func() { Nop().Error("nothing") })
}

func TestLogger_FormatLevels(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(&buf, "debug")

	l.Debugf("d%d", 1)
	l.Infof("i%d", 2)
	l.Warnf("w%d", 3)
	l.Errorf("e%d", 4)

	dec := json.NewDecoder(&buf)
	for _, want := range []struct{ level, msg string }{
		{"debug", "d1"}, {"info", "i2"}, {"warn", "w3"}, {"error", "e4"},
	} {
		var entry map[string]any
		require.NoError(t, dec.Decode(&entry))
		assert.Equal(t, want.level, entry["level"])
		assert.Equal(t, want.msg, entry["message"])
	}
}
