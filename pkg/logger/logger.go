package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/killallgit/pawnassist/pkg/config"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger provides a unified logging interface
type Logger struct {
	sugar *zap.SugaredLogger
	file  *os.File
}

var (
	defaultLogger = nop()
	mu            sync.RWMutex
)

func nop() *Logger {
	return &Logger{sugar: zap.NewNop().Sugar()}
}

// Init initializes the default logger from logging configuration
func Init(settings config.LoggingConfig) error {
	l, err := New(settings.Level, settings.LogFile, settings.Preserve)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	mu.Lock()
	old := defaultLogger
	defaultLogger = l
	mu.Unlock()

	return old.Close()
}

// New creates a Logger writing JSON lines to logFile. Errors are also written to stderr.
func New(level, logFile string, persist bool) (*Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		lvl = zapcore.InfoLevel
	}

	// Relative paths live next to the settings file
	logPath := config.ResolvePath(logFile)

	if err := os.MkdirAll(filepath.Dir(logPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	flags := os.O_CREATE | os.O_WRONLY | os.O_TRUNC
	if persist {
		flags = os.O_CREATE | os.O_WRONLY | os.O_APPEND
	}
	file, err := os.OpenFile(logPath, flags, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}

	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	core := zapcore.NewTee(
		zapcore.NewCore(zapcore.NewJSONEncoder(encoderCfg), zapcore.AddSync(file), lvl),
		zapcore.NewCore(zapcore.NewConsoleEncoder(encoderCfg), zapcore.Lock(os.Stderr), zapcore.ErrorLevel),
	)

	return &Logger{
		sugar: zap.New(core).Sugar(),
		file:  file,
	}, nil
}

// NewWithCore wraps an existing zap core; tests use it with zaptest/observer
func NewWithCore(core zapcore.Core) *Logger {
	return &Logger{sugar: zap.New(core).Sugar()}
}

// Close flushes and closes the log file
func (l *Logger) Close() error {
	_ = l.sugar.Sync()
	if l.file != nil {
		return l.file.Close()
	}
	return nil
}

// With returns a child logger carrying the given key/value pairs
func (l *Logger) With(keysAndValues ...any) *Logger {
	return &Logger{sugar: l.sugar.With(keysAndValues...)}
}

func (l *Logger) Debug(msg string, keysAndValues ...any) { l.sugar.Debugw(msg, keysAndValues...) }
func (l *Logger) Info(msg string, keysAndValues ...any)  { l.sugar.Infow(msg, keysAndValues...) }
func (l *Logger) Warn(msg string, keysAndValues ...any)  { l.sugar.Warnw(msg, keysAndValues...) }
func (l *Logger) Error(msg string, keysAndValues ...any) { l.sugar.Errorw(msg, keysAndValues...) }

// Package-level convenience functions using the default logger

func current() *Logger {
	mu.RLock()
	defer mu.RUnlock()
	return defaultLogger
}

// SetDefault replaces the default logger and returns the previous one
func SetDefault(l *Logger) *Logger {
	mu.Lock()
	defer mu.Unlock()
	old := defaultLogger
	defaultLogger = l
	return old
}

// WithComponent returns a logger tagged with a component name
func WithComponent(name string) *Logger {
	return current().With("component", name)
}

func Debug(msg string, keysAndValues ...any) { current().Debug(msg, keysAndValues...) }
func Info(msg string, keysAndValues ...any)  { current().Info(msg, keysAndValues...) }
func Warn(msg string, keysAndValues ...any)  { current().Warn(msg, keysAndValues...) }
func Error(msg string, keysAndValues ...any) { current().Error(msg, keysAndValues...) }

// Close closes the default logger and resets it to a no-op logger
func Close() error {
	return SetDefault(nop()).Close()
}
