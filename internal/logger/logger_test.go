package logger

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestInitWithDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "logs")

	if err := Init(Config{Dir: dir}); err != nil {
		t.Fatalf("Init error: %v", err)
	}
	if Logger == nil {
		t.Fatal("Logger is nil after Init")
	}

	Info("analysis finished", "file", "jan.txt", "trips", 3)
	Debug("hidden at info level")

	b, err := os.ReadFile(filepath.Join(dir, FileName))
	if err != nil {
		t.Fatalf("log file not written: %v", err)
	}
	out := string(b)
	if !strings.Contains(out, "analysis finished") || !strings.Contains(out, "jan.txt") {
		t.Errorf("log file = %q, want info line with keyvals", out)
	}
	if strings.Contains(out, "hidden at info level") {
		t.Errorf("debug line written at info level: %q", out)
	}
}

func TestInitDebugMode(t *testing.T) {
	dir := t.TempDir()
	if err := Init(Config{Debug: true, Dir: dir, Prefix: "test"}); err != nil {
		t.Fatalf("Init error: %v", err)
	}

	Debug("debug line")

	b, err := os.ReadFile(filepath.Join(dir, FileName))
	if err != nil {
		t.Fatalf("log file not written: %v", err)
	}
	if !strings.Contains(string(b), "debug line") {
		t.Errorf("log file = %q, want debug line", b)
	}
}

func TestInitStderrOnly(t *testing.T) {
	if err := Init(Config{}); err != nil {
		t.Fatalf("Init error: %v", err)
	}
	if Logger == nil {
		t.Fatal("Logger is nil after Init")
	}
}

func TestLogFunctionsWithoutInit(t *testing.T) {
	Logger = nil

	// Must not panic.
	Debug("debug")
	Info("info")
	Warn("warn")
	Error("error")
}
