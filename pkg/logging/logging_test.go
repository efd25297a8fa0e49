package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"rvm/pkg/config"
)

func TestParseLevel(t *testing.T) {
	for in, want := range map[string]zapcore.Level{
		"":      zap.InfoLevel,
		"debug": zap.DebugLevel,
		"INFO":  zap.InfoLevel,
		"warn":  zap.WarnLevel,
		"error": zap.ErrorLevel,
	} {
		got, err := ParseLevel(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseLevel("loud")
	assert.ErrorContains(t, err, `unknown log level "loud"`)
}

func TestJSONLogger(t *testing.T) {
	var buf bytes.Buffer
	logger, level, err := NewWithWriter(config.Log{Level: "info", Format: "json"}, &buf)
	require.NoError(t, err)

	logger.Debug("hidden")
	logger.Info("compiled", zap.Int("bytes", 36))
	require.NoError(t, logger.Sync())

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry), buf.String())
	assert.Equal(t, "compiled", entry["msg"])
	assert.Equal(t, float64(36), entry["bytes"])

	buf.Reset()
	level.SetLevel(zap.DebugLevel)
	logger.Debug("visible")
	assert.Contains(t, buf.String(), "visible")
}

func TestConsoleLogger(t *testing.T) {
	var buf bytes.Buffer
	logger, _, err := NewWithWriter(config.Log{Level: "warn", Format: "console"}, &buf)
	require.NoError(t, err)

	logger.Info("quiet")
	logger.Warn("frame limit close", zap.Int("depth", 90))
	out := buf.String()
	assert.NotContains(t, out, "quiet")
	assert.Contains(t, out, "WARN")
	assert.Contains(t, out, "frame limit close")
	assert.NotContains(t, out, "\x1b[", "no colors when not writing to a terminal")
}

func TestNewRejectsBadConfig(t *testing.T) {
	_, _, err := NewWithWriter(config.Log{Level: "info", Format: "xml"}, &bytes.Buffer{})
	assert.ErrorContains(t, err, `unknown log format "xml"`)

	_, _, err = NewWithWriter(config.Log{Level: "chatty"}, &bytes.Buffer{})
	assert.Error(t, err)
}
