package logger

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestVerbosityToLevel(t *testing.T) {
	assert.Equal(t, zapcore.WarnLevel, VerbosityToLevel(-1))
	assert.Equal(t, zapcore.WarnLevel, VerbosityToLevel(0))
	assert.Equal(t, zapcore.InfoLevel, VerbosityToLevel(1))
	assert.Equal(t, zapcore.DebugLevel, VerbosityToLevel(2))
	assert.Equal(t, zapcore.DebugLevel, VerbosityToLevel(5))
}

func TestNew_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, VerbosityQuiet, false).Sugar()
	l.Infow("hidden")
	l.Warnw("shown", "slug", "my-story")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "shown")
	assert.Contains(t, out, "my-story")
}

func TestNew_JSON(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, VerbosityDebug, true).Sugar()
	l.Debugw("cache hit", "hash", "abc")

	line := strings.TrimSpace(buf.String())
	var m map[string]any
	require.NoError(t, json.Unmarshal([]byte(line), &m))
	assert.Equal(t, "cache hit", m["msg"])
	assert.Equal(t, "abc", m["hash"])
	assert.Equal(t, "debug", m["level"])
}

func TestInitialize_ReplacesGlobal(t *testing.T) {
	old := Logger
	defer func() { Logger = old }()

	var buf bytes.Buffer
	Initialize(&buf, VerbosityInfo, false)
	Logger.Infow("run started")
	Cleanup()
	assert.Contains(t, buf.String(), "run started")
}
