package main

import (
	"io"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/wippyai/wasmrun/engine"
	"github.com/wippyai/wasmrun/hostenv"
	"github.com/wippyai/wasmrun/invoke"
)

// newLogger builds a console logger on w. Library packages log through it
// once installed.
func newLogger(w io.Writer, level zapcore.Level) *zap.Logger {
	encCfg := zap.NewDevelopmentEncoderConfig()
	encCfg.TimeKey = ""
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(encCfg), zapcore.AddSync(w), level)
	return zap.New(core)
}

func installLogger(l *zap.Logger) {
	engine.SetLogger(l)
	hostenv.SetLogger(l)
	invoke.SetLogger(l)
}
