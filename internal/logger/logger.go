// Package logger builds the process-wide zap logger.
package logger

import (
	"os"

	"github.com/ThreeDotsLabs/watermill"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Config controls log output.
type Config struct {
	// FilePath receives JSON logs with rotation. Empty disables the file.
	FilePath string
	// Production switches the console to JSON and raises it to info.
	Production bool
	// Debug lowers the console level to debug in production.
	Debug bool
}

// New creates a logger that tees a rotated JSON file and the console.
func New(cfg Config) *zap.Logger {
	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.TimeKey = "timestamp"
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderConfig.MessageKey = "message"
	encoderConfig.LevelKey = "level"
	encoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	jsonEncoder := zapcore.NewJSONEncoder(encoderConfig)

	var cores []zapcore.Core
	if cfg.FilePath != "" {
		rotator := &lumberjack.Logger{
			Filename:   cfg.FilePath,
			MaxSize:    10, // MB
			MaxBackups: 5,
			MaxAge:     30, // days
			Compress:   true,
		}
		cores = append(cores, zapcore.NewCore(jsonEncoder, zapcore.AddSync(rotator), zap.InfoLevel))
	}

	consoleEncoder := jsonEncoder
	consoleLevel := zap.InfoLevel
	if !cfg.Production {
		consoleEncoder = zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig())
		consoleLevel = zap.DebugLevel
	}
	if cfg.Debug {
		consoleLevel = zap.DebugLevel
	}
	cores = append(cores, zapcore.NewCore(consoleEncoder, zapcore.Lock(os.Stderr), consoleLevel))

	return zap.New(zapcore.NewTee(cores...), zap.AddCaller())
}

// Watermill adapts a zap logger to watermill's logger interface.
func Watermill(l *zap.Logger) watermill.LoggerAdapter {
	return watermillAdapter{l: l.Named("bus")}
}

type watermillAdapter struct {
	l *zap.Logger
}

func fields(f watermill.LogFields) []zap.Field {
	out := make([]zap.Field, 0, len(f))
	for k, v := range f {
		out = append(out, zap.Any(k, v))
	}
	return out
}

func (a watermillAdapter) Error(msg string, err error, f watermill.LogFields) {
	a.l.Error(msg, append(fields(f), zap.Error(err))...)
}

func (a watermillAdapter) Info(msg string, f watermill.LogFields) {
	a.l.Info(msg, fields(f)...)
}

func (a watermillAdapter) Debug(msg string, f watermill.LogFields) {
	a.l.Debug(msg, fields(f)...)
}

// Trace is mapped to debug; zap has no trace level.
func (a watermillAdapter) Trace(msg string, f watermill.LogFields) {
	a.l.Debug(msg, fields(f)...)
}

func (a watermillAdapter) With(f watermill.LogFields) watermill.LoggerAdapter {
	return watermillAdapter{l: a.l.With(fields(f)...)}
}
