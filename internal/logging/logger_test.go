package logging

import (
	"encoding/json"
	"os"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// TestParseLevel tests level names and profile defaults.
func TestParseLevel(t *testing.T) {
	tests := []struct {
		name    string
		env     string
		want    zapcore.Level
		wantErr bool
	}{
		{"", "development", zapcore.DebugLevel, false},
		{"", "production", zapcore.InfoLevel, false},
		{"WARN", "production", zapcore.WarnLevel, false},
		{"error", "", zapcore.ErrorLevel, false},
		{"loud", "", zapcore.InfoLevel, true},
	}

	for _, tt := range tests {
		got, err := ParseLevel(tt.name, tt.env)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseLevel(%q): unexpected error state %v", tt.name, err)
		}
		if got != tt.want {
			t.Errorf("ParseLevel(%q, %q) = %v, want %v", tt.name, tt.env, got, tt.want)
		}
	}
}

// TestFileLogger tests that production logs are JSON lines in the log file.
func TestFileLogger(t *testing.T) {
	dir := t.TempDir()
	logger, err := New(Options{Env: "production", Level: "info", Dir: dir})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	logger.Debug("hidden")
	logger.Info("poll applied", zap.Int("aircraft", 12))
	if err := logger.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	data, err := os.ReadFile(logger.LogFile)
	if err != nil {
		t.Fatalf("Failed to read log file: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 1 {
		t.Fatalf("Expected 1 line (debug filtered), got %d: %s", len(lines), data)
	}

	var entry map[string]interface{}
	if err := json.Unmarshal([]byte(lines[0]), &entry); err != nil {
		t.Fatalf("Expected JSON log line, got %q: %v", lines[0], err)
	}
	if entry["msg"] != "poll applied" || entry["aircraft"] != float64(12) {
		t.Errorf("Unexpected log entry %v", entry)
	}
}

// TestInvalidLevel tests that a bad level is reported.
func TestInvalidLevel(t *testing.T) {
	if _, err := New(Options{Level: "chatty", Dir: t.TempDir()}); err == nil {
		t.Error("Expected error for unknown level")
	}
}
