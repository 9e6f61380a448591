package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
)

func setupLogger(t *testing.T, level Level) (string, func()) {
	t.Helper()

	logPath := filepath.Join(t.TempDir(), "debug", "ncte.log")
	if err := Initialize(logPath, level); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	if GetLogPath() != logPath {
		t.Fatalf("GetLogPath = %q, want %q", GetLogPath(), logPath)
	}

	var once sync.Once
	cleanup := func() {
		once.Do(func() {
			_ = Close()
		})
	}
	t.Cleanup(cleanup)

	return logPath, cleanup
}

func TestInitializeAndLogWrites(t *testing.T) {
	logPath, cleanup := setupLogger(t, LevelInfo)
	defer cleanup()

	Info("resize to %d,%d", 24, 80)
	cleanup()

	data, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	content := string(data)
	if !strings.Contains(content, "INFO: resize to 24,80") {
		t.Fatalf("expected log line to contain message, got: %q", content)
	}
}

func TestInitializeTruncates(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "ncte.log")
	if err := os.WriteFile(logPath, []byte("stale\n"), 0644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	if err := Initialize(logPath, LevelDebug); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	Debug("fresh")
	_ = Close()

	data, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if strings.Contains(string(data), "stale") {
		t.Fatalf("expected previous contents to be truncated, got %q", string(data))
	}
}

func TestSetEnabledDisablesLogging(t *testing.T) {
	logPath, cleanup := setupLogger(t, LevelDebug)
	defer cleanup()

	SetEnabled(false)
	Info("should not write")
	cleanup()

	data, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if len(strings.TrimSpace(string(data))) != 0 {
		t.Fatalf("expected no log output when disabled, got: %q", string(data))
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	InitializeWriter(&buf, LevelWarn)
	t.Cleanup(func() { _ = Close() })

	Info("info message")
	Warn("warn message")

	content := buf.String()
	if strings.Contains(content, "INFO: info message") {
		t.Fatalf("did not expect info log at warn level: %q", content)
	}
	if !strings.Contains(content, "WARN: warn message") {
		t.Fatalf("expected warn log, got: %q", content)
	}
	if Enabled(LevelDebug) {
		t.Fatalf("debug should not be enabled at warn level")
	}
}

func TestUninitializedDiscards(t *testing.T) {
	_ = Close()
	// Must not panic with no sink configured.
	Error("nobody is listening")
	if Enabled(LevelError) {
		t.Fatalf("expected logging disabled without a sink")
	}
}

func TestParseLevel(t *testing.T) {
	tests := map[string]Level{
		"info":  LevelInfo,
		"WARN":  LevelWarn,
		"error": LevelError,
		"":      LevelDebug,
		"bogus": LevelDebug,
	}
	for in, want := range tests {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}
