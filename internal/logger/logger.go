// Package logger provides the process-wide file logger.
//
// The terminal belongs to the UI, so log output goes to a file (or is
// discarded when no file is configured). Call sites use printf-style
// helpers prefixed with their component, e.g.
//
//	logger.Debug("dashboard: folders loaded repo_id=%d count=%d", repoID, n)
package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// LogLevel is the minimum severity written to the log.
type LogLevel int

const (
	LevelDebug LogLevel = iota
	LevelInfo
	LevelWarning
	LevelError
)

var (
	mu     sync.RWMutex
	base   = slog.New(slog.NewTextHandler(io.Discard, nil))
	closer io.Closer
)

// ParseLevel converts a configuration string to a LogLevel.
// Unknown values fall back to LevelWarning.
func ParseLevel(level string) LogLevel {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return LevelDebug
	case "info":
		return LevelInfo
	case "warning", "warn":
		return LevelWarning
	case "error":
		return LevelError
	default:
		return LevelWarning
	}
}

func (l LogLevel) slogLevel() slog.Level {
	switch l {
	case LevelDebug:
		return slog.LevelDebug
	case LevelInfo:
		return slog.LevelInfo
	case LevelError:
		return slog.LevelError
	default:
		return slog.LevelWarn
	}
}

// Init opens path for appending and routes all log output to it.
// An empty path discards output.
func Init(path string, level LogLevel) error {
	var w io.Writer = io.Discard
	var c io.Closer

	if path != "" {
		if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
			return fmt.Errorf("create log directory: %w", err)
		}
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
		if err != nil {
			return fmt.Errorf("open log file: %w", err)
		}
		w, c = f, f
	}

	setOutput(w, c, level)
	return nil
}

// Reinit closes the current output and re-opens with the new settings.
func Reinit(path string, level LogLevel) error {
	Close()
	return Init(path, level)
}

// SetOutput routes log output to w. It is mainly useful in tests.
func SetOutput(w io.Writer, level LogLevel) {
	setOutput(w, nil, level)
}

func setOutput(w io.Writer, c io.Closer, level LogLevel) {
	h := slog.NewTextHandler(w, &slog.HandlerOptions{Level: level.slogLevel()})

	mu.Lock()
	defer mu.Unlock()
	if closer != nil {
		_ = closer.Close()
	}
	base = slog.New(h)
	closer = c
}

// Close flushes and closes the log file, if any.
func Close() {
	mu.Lock()
	defer mu.Unlock()
	if closer != nil {
		_ = closer.Close()
		closer = nil
	}
	base = slog.New(slog.NewTextHandler(io.Discard, nil))
}

func logf(level slog.Level, format string, args ...any) {
	mu.RLock()
	l := base
	mu.RUnlock()

	ctx := context.Background()
	if !l.Enabled(ctx, level) {
		return
	}
	l.Log(ctx, level, fmt.Sprintf(format, args...))
}

// Debug logs a debug message.
func Debug(format string, args ...any) { logf(slog.LevelDebug, format, args...) }

// Info logs an informational message.
func Info(format string, args ...any) { logf(slog.LevelInfo, format, args...) }

// Warning logs a warning.
func Warning(format string, args ...any) { logf(slog.LevelWarn, format, args...) }

// Error logs an error message.
func Error(format string, args ...any) { logf(slog.LevelError, format, args...) }

// ErrorWithErr logs an error message followed by err.
func ErrorWithErr(err error, format string, args ...any) {
	logf(slog.LevelError, "%s error=%v", fmt.Sprintf(format, args...), err)
}
