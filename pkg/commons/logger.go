// Copyright (c) 2024-2026 CrossTalk AI
// Author: Minh Tran <minh@crosstalk.ai>
//
// Licensed under GPL-2.0 with CrossTalk Additional Terms.
// See LICENSE.md or contact sales@crosstalk.ai for commercial usage.

package commons

import (
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Logger is the logging surface every component of the relay takes.
// It is the zap SugaredLogger method set we actually use, kept as an
// interface so tests can pass a no-op.
type Logger interface {
	Debug(args ...interface{})
	Info(args ...interface{})
	Warn(args ...interface{})
	Error(args ...interface{})
	Debugf(template string, args ...interface{})
	Infof(template string, args ...interface{})
	Warnf(template string, args ...interface{})
	Errorf(template string, args ...interface{})
	Debugw(msg string, keysAndValues ...interface{})
	Infow(msg string, keysAndValues ...interface{})
	Warnw(msg string, keysAndValues ...interface{})
	Errorw(msg string, keysAndValues ...interface{})
	Sync() error
}

// NewApplicationLogger builds the process logger from the environment:
// LOG_LEVEL selects the zap level, LOG_TO_FILE=true routes output through a
// rotating file at LOG_DIR/LOG_FILE_PREFIX.log alongside stderr.
func NewApplicationLogger() (Logger, error) {
	level := parseLevel(os.Getenv("LOG_LEVEL"))

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	encoder := zapcore.NewJSONEncoder(encCfg)

	cores := []zapcore.Core{
		zapcore.NewCore(encoder, zapcore.Lock(os.Stderr), level),
	}

	if strings.EqualFold(os.Getenv("LOG_TO_FILE"), "true") {
		dir := os.Getenv("LOG_DIR")
		if dir == "" {
			dir = "logs"
		}
		prefix := os.Getenv("LOG_FILE_PREFIX")
		if prefix == "" {
			prefix = "relay"
		}
		rotator := &lumberjack.Logger{
			Filename:   filepath.Join(dir, prefix+".log"),
			MaxSize:    100, // MB
			MaxBackups: 7,
			MaxAge:     14, // days
			Compress:   true,
		}
		cores = append(cores, zapcore.NewCore(encoder, zapcore.AddSync(rotator), level))
	}

	base := zap.New(zapcore.NewTee(cores...), zap.AddCaller())
	return base.Sugar(), nil
}

// NewNopLogger returns a Logger that discards everything. Test helper.
func NewNopLogger() Logger {
	return zap.NewNop().Sugar()
}

func parseLevel(s string) zapcore.Level {
	switch strings.ToLower(s) {
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
