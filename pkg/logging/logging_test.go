package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		" WARN ":  slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"chatty":  slog.LevelInfo,
	}
	for in, want := range tests {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestNew_ConsoleOnly(t *testing.T) {
	var buf bytes.Buffer
	logger, closer := New(Options{Level: "warn", Stderr: &buf})
	defer closer.Close()

	logger.Info("hidden")
	logger.Warn("shown", "club_id", "abc")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("info record written at warn level: %q", out)
	}
	if !strings.Contains(out, "shown") || !strings.Contains(out, "abc") {
		t.Errorf("warn record missing: %q", out)
	}
}

func TestNew_FileSinkWritesJSON(t *testing.T) {
	var console bytes.Buffer
	path := filepath.Join(t.TempDir(), "clubhouse.log")

	logger, closer := New(Options{Level: "info", File: path, MaxSizeMB: 1, Stderr: &console})
	logger.With("component", "sync").Info("Pull applied", "updated_at", 42)
	if err := closer.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	var rec map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(data), &rec); err != nil {
		t.Fatalf("log line is not JSON: %v (%q)", err, data)
	}
	if rec["msg"] != "Pull applied" || rec["component"] != "sync" || rec["updated_at"] != float64(42) {
		t.Errorf("record = %v", rec)
	}
	if !strings.Contains(console.String(), "Pull applied") {
		t.Errorf("console did not receive the record: %q", console.String())
	}
}
