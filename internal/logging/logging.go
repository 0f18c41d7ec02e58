// Package logging builds the application's zap logger.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Options configures New.
type Options struct {
	// File receives JSON lines, rotated by size. Empty disables the file core.
	File string
	// Level is the minimum level for both cores: debug, info, warn or error.
	Level string
	// Console defaults to os.Stderr.
	Console io.Writer
}

// New returns a logger writing human-readable lines to the console and,
// when configured, JSON lines to a rotating file.
func New(opt Options) (*zap.Logger, error) {
	lvl := zapcore.WarnLevel
	if opt.Level != "" {
		if err := lvl.Set(opt.Level); err != nil {
			return nil, fmt.Errorf("log level %q: %w", opt.Level, err)
		}
	}
	var console io.Writer = os.Stderr
	if opt.Console != nil {
		console = opt.Console
	}

	consoleCfg := zap.NewDevelopmentEncoderConfig()
	consoleCfg.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05")
	cores := []zapcore.Core{
		zapcore.NewCore(zapcore.NewConsoleEncoder(consoleCfg), zapcore.Lock(zapcore.AddSync(console)), lvl),
	}

	if opt.File != "" {
		if err := os.MkdirAll(filepath.Dir(opt.File), 0o755); err != nil {
			return nil, fmt.Errorf("create log dir: %w", err)
		}
		rotator := &lumberjack.Logger{
			Filename:   opt.File,
			MaxSize:    10, // megabytes
			MaxBackups: 5,
			MaxAge:     30, // days
			Compress:   true,
		}
		enc := zap.NewProductionEncoderConfig()
		enc.TimeKey = "timestamp"
		enc.EncodeTime = zapcore.ISO8601TimeEncoder
		enc.MessageKey = "message"
		enc.EncodeLevel = zapcore.CapitalLevelEncoder
		fileLvl := lvl
		if fileLvl > zapcore.InfoLevel {
			fileLvl = zapcore.InfoLevel
		}
		cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(enc), zapcore.AddSync(rotator), fileLvl))
	}
	return zap.New(zapcore.NewTee(cores...), zap.AddCaller()), nil
}

// Nop returns a logger that discards everything.
func Nop() *zap.Logger { return zap.NewNop() }
