package logging

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap/zapcore"

	"github.com/hochfrequenz/arp-orchestrator/internal/mode"
)

func TestLevel(t *testing.T) {
	assert.Equal(t, zapcore.DebugLevel, Level(mode.LevelDebug))
	assert.Equal(t, zapcore.InfoLevel, Level(mode.LevelInfo))
	assert.Equal(t, zapcore.WarnLevel, Level(mode.LevelWarning))
	assert.Equal(t, zapcore.ErrorLevel, Level(mode.LevelError))
	assert.Equal(t, zapcore.InfoLevel, Level(""))
}

func TestNew_FiltersBelowLevel(t *testing.T) {
	var buf bytes.Buffer
	log := New(mode.LevelWarning, &buf)

	log.Info("hidden")
	log.Warn("shown")
	_ = log.Sync()

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "shown")
	assert.Contains(t, out, "WARN")
}
