// Package logging builds the zap loggers used across adsb-terminal.
//
// The dashboard draws on the terminal, so by default log output goes to a
// size-rotated file instead of stdout or stderr.
package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// FileName is the log file created in the log directory.
const FileName = "adsb-terminal.log"

// Options controls logger construction.
type Options struct {
	// Env is "production" for JSON output; anything else is development
	Env string

	// Level is debug, info, warn or error (default: info, debug in development)
	Level string

	// Dir holds the log file; empty = <user cache dir>/adsb-terminal
	Dir string

	// Console writes to stderr instead of a file
	Console bool
}

// Logger is a zap logger plus the file it writes to.
type Logger struct {
	*zap.Logger

	// LogFile is the active log file path, empty for console loggers
	LogFile string

	rotator *lumberjack.Logger
}

// New builds a logger from opts.
func New(opts Options) (*Logger, error) {
	level, err := ParseLevel(opts.Level, opts.Env)
	if err != nil {
		return nil, err
	}

	encCfg := zap.NewDevelopmentEncoderConfig()
	if opts.Env == "production" {
		encCfg = zap.NewProductionEncoderConfig()
	}
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	var encoder zapcore.Encoder
	if opts.Env == "production" {
		encoder = zapcore.NewJSONEncoder(encCfg)
	} else {
		encoder = zapcore.NewConsoleEncoder(encCfg)
	}

	l := &Logger{}
	var sink zapcore.WriteSyncer
	if opts.Console {
		sink = zapcore.Lock(os.Stderr)
	} else {
		dir := opts.Dir
		if dir == "" {
			dir, err = defaultDir()
			if err != nil {
				return nil, err
			}
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create log directory: %w", err)
		}

		l.LogFile = filepath.Join(dir, FileName)
		l.rotator = &lumberjack.Logger{
			Filename:   l.LogFile,
			MaxSize:    32, // MB
			MaxBackups: 3,
			MaxAge:     14,
		}
		if level == zapcore.DebugLevel {
			l.rotator.MaxSize = 128
		}
		sink = zapcore.AddSync(l.rotator)
	}

	core := zapcore.NewCore(encoder, sink, level)
	l.Logger = zap.New(core, zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel))
	return l, nil
}

// Close flushes buffered entries and closes the log file.
func (l *Logger) Close() error {
	_ = l.Logger.Sync()
	if l.rotator != nil {
		return l.rotator.Close()
	}
	return nil
}

// ParseLevel maps a level name to a zap level. An empty name defaults to
// debug in development and info otherwise.
func ParseLevel(name, env string) (zapcore.Level, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "":
		if env == "production" {
			return zapcore.InfoLevel, nil
		}
		return zapcore.DebugLevel, nil
	case "debug":
		return zapcore.DebugLevel, nil
	case "info":
		return zapcore.InfoLevel, nil
	case "warn", "warning":
		return zapcore.WarnLevel, nil
	case "error":
		return zapcore.ErrorLevel, nil
	default:
		return zapcore.InfoLevel, fmt.Errorf("unknown log level %q", name)
	}
}

func defaultDir() (string, error) {
	dir, err := os.UserCacheDir()
	if err != nil {
		return "", fmt.Errorf("failed to locate cache directory: %w", err)
	}
	return filepath.Join(dir, "adsb-terminal"), nil
}
