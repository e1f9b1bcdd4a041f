// Package logging provides file-based structured logging for Stepwise.
// Every component gets its own *slog.Logger tagged with a component name;
// all of them append to a single log file that is opened on first write.
package logging

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// Logger owns the log file and the shared level.
type Logger struct {
	file    *os.File
	level   *slog.LevelVar
	handler slog.Handler
	path    string
	mu      sync.Mutex
}

// New creates a Logger that writes to path. If path is empty, logging is
// disabled and every component logger discards its output.
func New(path string, level slog.Level) *Logger {
	l := &Logger{path: path, level: new(slog.LevelVar)}
	l.level.Set(level)
	if path == "" {
		l.handler = slog.DiscardHandler
	} else {
		l.handler = slog.NewTextHandler(fileWriter{l}, &slog.HandlerOptions{Level: l.level})
	}
	return l
}

// DefaultLogPath returns $XDG_STATE_HOME/stepwise/logs/stepwise.log.
func DefaultLogPath() string {
	stateHome := os.Getenv("XDG_STATE_HOME")
	if stateHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return filepath.Join(".", "stepwise.log")
		}
		stateHome = filepath.Join(home, ".local", "state")
	}
	return filepath.Join(stateHome, "stepwise", "logs", "stepwise.log")
}

// ParseLevel parses a log level string into slog.Level.
func ParseLevel(levelStr string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(levelStr)) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Nop returns a logger that drops everything.
func Nop() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// For returns a logger tagged with the given component name.
func (l *Logger) For(component string) *slog.Logger {
	return slog.New(l.handler).With("component", component)
}

// SetLevel changes the minimum level for every component logger at once.
func (l *Logger) SetLevel(level slog.Level) {
	l.level.Set(level)
}

// Level returns the current minimum level.
func (l *Logger) Level() slog.Level {
	return l.level.Level()
}

// Path returns the log file path, empty when logging is disabled.
func (l *Logger) Path() string {
	return l.path
}

// Close closes the log file if it was opened.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file = nil
	return err
}

func (l *Logger) write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file == nil {
		if err := os.MkdirAll(filepath.Dir(l.path), 0o750); err != nil {
			return 0, fmt.Errorf("create logs directory: %w", err)
		}
		f, err := os.OpenFile(l.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o640)
		if err != nil {
			return 0, fmt.Errorf("open log file: %w", err)
		}
		l.file = f
	}
	return l.file.Write(p)
}

// fileWriter serializes handler output onto the lazily opened file.
type fileWriter struct{ l *Logger }

func (w fileWriter) Write(p []byte) (int, error) { return w.l.write(p) }
