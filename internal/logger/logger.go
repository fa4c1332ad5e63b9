// Package logger builds the zap logger used across the player.
package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Config defines log output and rotation.
type Config struct {
	Level      string // debug, info, warn, error
	File       string // empty disables the file sink
	MaxSize    int    // megabytes before rotation
	MaxBackups int
	MaxAge     int // days
	Compress   bool
	Console    bool // also write to stderr
}

// ParseLevel maps a level name to a zapcore level. Unknown names fall back to info.
func ParseLevel(name string) zapcore.Level {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return zapcore.DebugLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

func encoderConfig() zapcore.EncoderConfig {
	return zapcore.EncoderConfig{
		TimeKey:        "timestamp",
		LevelKey:       "level",
		NameKey:        "logger",
		CallerKey:      "caller",
		MessageKey:     "msg",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeTime:     zapcore.RFC3339TimeEncoder,
		EncodeDuration: zapcore.StringDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}
}

// New creates a logger writing JSON lines to a rotated file and, optionally,
// human-readable lines to stderr. With neither sink configured it returns a
// no-op logger.
func New(cfg Config) (*zap.Logger, error) {
	level := ParseLevel(cfg.Level)

	var cores []zapcore.Core

	if cfg.File != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.File), 0o755); err != nil {
			return nil, fmt.Errorf("create log dir: %w", err)
		}
		writer := zapcore.AddSync(&lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    cfg.MaxSize,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAge,
			Compress:   cfg.Compress,
		})
		cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(encoderConfig()), writer, level))
	}

	if cfg.Console {
		consoleCfg := encoderConfig()
		consoleCfg.EncodeLevel = zapcore.CapitalLevelEncoder
		cores = append(cores, zapcore.NewCore(
			zapcore.NewConsoleEncoder(consoleCfg),
			zapcore.Lock(os.Stderr),
			level,
		))
	}

	if len(cores) == 0 {
		return zap.NewNop(), nil
	}

	return zap.New(zapcore.NewTee(cores...),
		zap.AddCaller(),
		zap.AddStacktrace(zapcore.ErrorLevel),
	), nil
}
