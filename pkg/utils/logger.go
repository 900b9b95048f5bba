package utils

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// NewLogger returns a zap logger. When debug is true, uses development config
// (human-readable, debug level); otherwise uses production config (JSON, info level).
func NewLogger(debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

// NewFileLogger returns a logger that writes JSON to a rotating file at path in
// addition to the console. With an empty path it behaves like NewLogger.
func NewFileLogger(debug bool, path string, maxSizeMB, maxBackups int) (*zap.Logger, error) {
	if path == "" {
		return NewLogger(debug)
	}
	rotator := &lumberjack.Logger{
		Filename:   path,
		MaxSize:    maxSizeMB,
		MaxBackups: maxBackups,
		MaxAge:     30,
		Compress:   true,
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "timestamp"
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	fileCore := zapcore.NewCore(zapcore.NewJSONEncoder(encCfg), zapcore.AddSync(rotator), zap.InfoLevel)

	consoleLevel := zap.InfoLevel
	consoleEnc := zapcore.NewJSONEncoder(encCfg)
	if debug {
		consoleLevel = zap.DebugLevel
		consoleEnc = zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig())
	}
	consoleCore := zapcore.NewCore(consoleEnc, zapcore.Lock(os.Stderr), consoleLevel)

	return zap.New(zapcore.NewTee(fileCore, consoleCore), zap.AddCaller()), nil
}
