// Package logging builds the zap logger used throughout a run.
package logging

import (
	"io"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/hochfrequenz/arp-orchestrator/internal/mode"
)

// Level maps a run-mode log level to the zap level
func Level(l mode.LogLevel) zapcore.Level {
	switch l {
	case mode.LevelDebug:
		return zapcore.DebugLevel
	case mode.LevelWarning:
		return zapcore.WarnLevel
	case mode.LevelError:
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// New returns a console logger writing to w at the given level
func New(l mode.LogLevel, w io.Writer) *zap.Logger {
	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "time"
	encCfg.EncodeTime = zapcore.TimeEncoderOfLayout("2006-01-02 15:04:05")
	encCfg.EncodeLevel = zapcore.CapitalLevelEncoder
	encCfg.EncodeCaller = nil
	encCfg.CallerKey = ""

	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(encCfg),
		zapcore.Lock(zapcore.AddSync(w)),
		zap.NewAtomicLevelAt(Level(l)),
	)
	return zap.New(core).Named("arp")
}
