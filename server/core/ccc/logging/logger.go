package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"
)

type Logger interface {
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
	Debug(msg string, args ...any)
}

type LogLevel string

const (
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

// slogLevel maps a configured level to slog, falling back to info
func (l LogLevel) slogLevel() slog.Level {
	switch l {
	case LogLevelDebug:
		return slog.LevelDebug
	case LogLevelWarn:
		return slog.LevelWarn
	case LogLevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// dailyWriter appends to <name>-<yyyy-mm-dd>.log and switches files when the local date changes
type dailyWriter struct {
	dir     string
	name    string
	file    *os.File
	date    string
	nowFunc func() time.Time
	mu      sync.Mutex
}

func newDailyWriter(dir, name string) *dailyWriter {
	return &dailyWriter{
		dir:     dir,
		name:    name,
		nowFunc: time.Now,
	}
}

// Write implements io.Writer
func (w *dailyWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	date := w.nowFunc().Format("2006-01-02")
	if w.file == nil || w.date != date {
		if err := w.openFor(date); err != nil {
			return 0, err
		}
	}

	return w.file.Write(p)
}

func (w *dailyWriter) openFor(date string) error {
	if w.file != nil {
		w.file.Close()
	}

	path := filepath.Join(w.dir, fmt.Sprintf("%s-%s.log", w.name, date))
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return err
	}

	w.file = file
	w.date = date
	return nil
}

// Close closes the file currently being written
func (w *dailyWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.file != nil {
		return w.file.Close()
	}
	return nil
}

// CreateLogger creates a JSON logger for the named service. Records go to stdout
// and, when logDir is usable, to a daily log file in logDir as well.
func CreateLogger(logLevel LogLevel, logDir string, service string) Logger {
	var out io.Writer = os.Stdout

	if logDir != "" {
		if err := os.MkdirAll(logDir, 0755); err == nil {
			out = io.MultiWriter(os.Stdout, newDailyWriter(logDir, service))
		}
	}

	handler := slog.NewJSONHandler(out, &slog.HandlerOptions{
		Level: logLevel.slogLevel(),
	})

	return slog.New(handler).With("service", service)
}

type nopLogger struct{}

// NopLogger discards everything. Services fall back to it when constructed with a nil logger.
var NopLogger Logger = &nopLogger{}

func (l *nopLogger) Info(msg string, args ...any)  {}
func (l *nopLogger) Warn(msg string, args ...any)  {}
func (l *nopLogger) Error(msg string, args ...any) {}
func (l *nopLogger) Debug(msg string, args ...any) {}
