// Package logger builds the zap loggers shared across the module. One
// process-wide logger is installed from the CLI or embedder config; the
// connector and component helpers hang identifying fields off it so
// every line says which backend or subsystem produced it.
package logger

import (
	"fmt"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the two knobs the CLI exposes.
type Config struct {
	Level    string // debug, info, warn, error; empty means info
	Encoding string // json or console; empty means json
}

var (
	global *zap.Logger
	once   sync.Once
)

// New builds a logger from the config. Console encoding gets colored
// levels for interactive use; json is the structured default.
func New(cfg Config) (*zap.Logger, error) {
	levelText := cfg.Level
	if levelText == "" {
		levelText = "info"
	}
	level, err := zapcore.ParseLevel(levelText)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
	}

	encoding := cfg.Encoding
	if encoding == "" {
		encoding = "json"
	}

	encoderConfig := zapcore.EncoderConfig{
		TimeKey:        "timestamp",
		LevelKey:       "level",
		NameKey:        "logger",
		CallerKey:      "caller",
		FunctionKey:    zapcore.OmitKey,
		MessageKey:     "message",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.StringDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}
	if encoding == "console" {
		encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	zapCfg := zap.Config{
		Level:            zap.NewAtomicLevelAt(level),
		Encoding:         encoding,
		EncoderConfig:    encoderConfig,
		OutputPaths:      []string{"stdout"},
		ErrorOutputPaths: []string{"stderr"},
	}
	return zapCfg.Build()
}

// Init installs the process-wide logger. Only the first call wins;
// later calls are no-ops so embedders cannot swap the logger out from
// under running connectors.
func Init(cfg Config) error {
	var err error
	once.Do(func() {
		global, err = New(cfg)
	})
	return err
}

// Get returns the process-wide logger, installing the default config if
// Init was never called.
func Get() *zap.Logger {
	if global == nil {
		if err := Init(Config{}); err != nil || global == nil {
			global = zap.NewNop()
		}
	}
	return global
}

// ForConnector returns the child logger a connector logs through.
func ForConnector(typ string) *zap.Logger {
	return Get().With(zap.String("connector", typ))
}

// ForComponent returns the child logger for a non-connector subsystem
// such as the registry or the discovery pipeline.
func ForComponent(name string) *zap.Logger {
	return Get().With(zap.String("component", name))
}

// Sync flushes buffered entries. Safe to call before Init.
func Sync() error {
	if global != nil {
		return global.Sync()
	}
	return nil
}
