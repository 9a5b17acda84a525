package logging

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLogLevel_SlogLevel(t *testing.T) {
	tests := []struct {
		level LogLevel
		want  slog.Level
	}{
		{LogLevelDebug, slog.LevelDebug},
		{LogLevelInfo, slog.LevelInfo},
		{LogLevelWarn, slog.LevelWarn},
		{LogLevelError, slog.LevelError},
		{LogLevel("verbose"), slog.LevelInfo},
	}

	for _, tt := range tests {
		if got := tt.level.slogLevel(); got != tt.want {
			t.Errorf("LogLevel(%q).slogLevel() = %v, want %v", tt.level, got, tt.want)
		}
	}
}

func TestDailyWriter_SwitchesFileOnNewDate(t *testing.T) {
	dir := t.TempDir()
	w := newDailyWriter(dir, "annotation-server")
	defer w.Close()

	day := time.Date(2026, 3, 1, 23, 59, 0, 0, time.Local)
	w.nowFunc = func() time.Time { return day }

	if _, err := w.Write([]byte("first\n")); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	day = day.Add(2 * time.Minute)
	if _, err := w.Write([]byte("second\n")); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	first, err := os.ReadFile(filepath.Join(dir, "annotation-server-2026-03-01.log"))
	if err != nil {
		t.Fatalf("Expected log file for first day: %v", err)
	}
	if strings.TrimSpace(string(first)) != "first" {
		t.Errorf("Unexpected first day content: %q", first)
	}

	second, err := os.ReadFile(filepath.Join(dir, "annotation-server-2026-03-02.log"))
	if err != nil {
		t.Fatalf("Expected log file for second day: %v", err)
	}
	if strings.TrimSpace(string(second)) != "second" {
		t.Errorf("Unexpected second day content: %q", second)
	}
}

func TestCreateLogger_WritesToLogDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "logs")

	logger := CreateLogger(LogLevelInfo, dir, "test-service")
	logger.Info("hello", "key", "value")
	logger.Debug("filtered out")

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("Expected log directory to be created: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("Expected 1 log file, got %d", len(entries))
	}

	data, err := os.ReadFile(filepath.Join(dir, entries[0].Name()))
	if err != nil {
		t.Fatalf("Failed to read log file: %v", err)
	}

	content := string(data)
	if !strings.Contains(content, `"msg":"hello"`) || !strings.Contains(content, `"service":"test-service"`) {
		t.Errorf("Log file missing expected fields: %s", content)
	}
	if strings.Contains(content, "filtered out") {
		t.Error("Debug record should not be written at info level")
	}
}
