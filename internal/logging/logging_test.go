package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDailyWriterWritesTodayFile(t *testing.T) {
	dir := t.TempDir()
	writer, err := NewDailyWriter(dir, "", 0)
	if err != nil {
		t.Fatalf("NewDailyWriter: %v", err)
	}
	defer writer.Close()

	if _, err := writer.Write([]byte("hello")); err != nil {
		t.Fatalf("Write: %v", err)
	}

	path := filepath.Join(dir, defaultPrefix+"-"+time.Now().Format(fileDateLayout)+".log")
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if !strings.Contains(string(data), "hello") {
		t.Fatalf("log content missing")
	}
}

func TestDailyWriterRotatesAtMidnight(t *testing.T) {
	dir := t.TempDir()
	now := time.Date(2024, 3, 1, 23, 59, 0, 0, time.Local)
	writer, err := newDailyWriter(dir, "test", 7, func() time.Time { return now })
	if err != nil {
		t.Fatalf("newDailyWriter: %v", err)
	}
	defer writer.Close()

	if _, err := writer.Write([]byte("first\n")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	now = now.Add(2 * time.Minute)
	if _, err := writer.Write([]byte("second\n")); err != nil {
		t.Fatalf("Write: %v", err)
	}

	for file, want := range map[string]string{"test-20240301.log": "first", "test-20240302.log": "second"} {
		data, err := os.ReadFile(filepath.Join(dir, file))
		if err != nil {
			t.Fatalf("read %s: %v", file, err)
		}
		if strings.TrimSpace(string(data)) != want {
			t.Fatalf("%s = %q, want %q", file, data, want)
		}
	}
}

func TestDailyWriterPrunesOldFiles(t *testing.T) {
	dir := t.TempDir()
	now := time.Now()
	oldPath := filepath.Join(dir, "test-"+now.AddDate(0, 0, -3).Format(fileDateLayout)+".log")
	otherPath := filepath.Join(dir, "other-"+now.AddDate(0, 0, -30).Format(fileDateLayout)+".log")
	for _, p := range []string{oldPath, otherPath} {
		if err := os.WriteFile(p, []byte("old"), 0o644); err != nil {
			t.Fatalf("write %s: %v", p, err)
		}
	}

	writer, err := NewDailyWriter(dir, "test", 1)
	if err != nil {
		t.Fatalf("NewDailyWriter: %v", err)
	}
	defer writer.Close()

	if _, err := os.Stat(oldPath); err == nil {
		t.Fatalf("expected old log to be removed")
	}
	if _, err := os.Stat(otherPath); err != nil {
		t.Fatalf("files with another prefix must stay: %v", err)
	}
}

func TestDailyWriterCloseTwice(t *testing.T) {
	if err := (&DailyWriter{}).Close(); err != nil {
		t.Fatalf("Close on zero writer: %v", err)
	}
	writer, err := NewDailyWriter(t.TempDir(), "", 0)
	if err != nil {
		t.Fatalf("NewDailyWriter: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		" INFO ":  slog.LevelInfo,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"-8":      slog.Level(-8),
		"loud":    slog.LevelWarn,
		"":        slog.LevelWarn,
	}
	for in, want := range cases {
		if got := ParseLevel(in, slog.LevelWarn); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestNewLoggerJSONAndEnvLevel(t *testing.T) {
	previous := slog.Default()
	t.Cleanup(func() { slog.SetDefault(previous) })
	t.Setenv(EnvLogFormat, "json")
	t.Setenv(EnvLogLevel, "error")

	var out bytes.Buffer
	logger, writer, err := NewLogger(Options{Dir: t.TempDir(), Level: "debug", Stdout: &out})
	if err != nil {
		t.Fatalf("NewLogger: %v", err)
	}
	defer writer.Close()

	logger.Info("dropped")
	logger.Error("kept", "symbol", "AAPL")

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("expected only the error line, got %q", out.String())
	}
	var entry map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &entry); err != nil {
		t.Fatalf("expected JSON output: %v", err)
	}
	if entry["msg"] != "kept" || entry["service"] != "finguard" || entry["symbol"] != "AAPL" {
		t.Fatalf("unexpected entry %v", entry)
	}
}
