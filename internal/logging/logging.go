// Package logging builds the zap logger shared by every vaihde component.
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

// Config holds configuration for New.
type Config struct {
	Verbose    bool      // Log debug entries to the console
	Console    io.Writer // Console destination (default os.Stderr)
	FilePath   string    // Optional JSON log file, rotated by size
	MaxSizeMB  int       // Max size in MB before rotation
	MaxBackups int       // Max number of old log files to keep
	MaxAgeDays int       // Max days to keep old log files
}

// New creates the logger described by cfg. The returned function flushes
// buffered entries and closes the log file; call it before exiting.
//
// Console output is human-readable and starts at info level (debug with
// Verbose). The file, when configured, always receives debug entries as JSON.
func New(cfg Config) (*zap.Logger, func(), error) {
	if cfg.Console == nil {
		cfg.Console = os.Stderr
	}
	if cfg.MaxSizeMB == 0 {
		cfg.MaxSizeMB = 10
	}
	if cfg.MaxBackups == 0 {
		cfg.MaxBackups = 3
	}
	if cfg.MaxAgeDays == 0 {
		cfg.MaxAgeDays = 14
	}

	consoleLevel := zapcore.InfoLevel
	if cfg.Verbose {
		consoleLevel = zapcore.DebugLevel
	}

	consoleCfg := zapcore.EncoderConfig{
		MessageKey:     "msg",
		LevelKey:       "level",
		NameKey:        "logger",
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeDuration: zapcore.StringDurationEncoder,
		EncodeName:     zapcore.FullNameEncoder,
	}
	cores := []zapcore.Core{
		zapcore.NewCore(zapcore.NewConsoleEncoder(consoleCfg), zapcore.AddSync(cfg.Console), consoleLevel),
	}

	var fileWriter *lumberjack.Logger
	if cfg.FilePath != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.FilePath), 0755); err != nil {
			return nil, nil, fmt.Errorf("failed to create log directory: %w", err)
		}
		fileWriter = &lumberjack.Logger{
			Filename:   cfg.FilePath,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
		}

		fileCfg := zap.NewProductionEncoderConfig()
		fileCfg.TimeKey = "ts"
		fileCfg.EncodeTime = zapcore.ISO8601TimeEncoder
		fileCfg.EncodeLevel = zapcore.LowercaseLevelEncoder
		cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(fileCfg), zapcore.AddSync(fileWriter), zapcore.DebugLevel))
	}

	logger := zap.New(zapcore.NewTee(cores...))

	cleanup := func() {
		_ = logger.Sync()
		if fileWriter != nil {
			_ = fileWriter.Close()
		}
	}
	return logger, cleanup, nil
}
