package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"WARN":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"bogus":   slog.LevelInfo,
	}
	for input, expected := range cases {
		if got := ParseLevel(input); got != expected {
			t.Fatalf("ParseLevel(%q) = %v, want %v", input, got, expected)
		}
	}
}

func TestLoggerWritesJSONEntries(t *testing.T) {
	var buf bytes.Buffer
	InitWithWriter(&buf, "info")
	t.Cleanup(func() { globalLogger = nil })

	ErrorWithUser("user-1", "image_delete_failed", errors.New("disk full"), map[string]interface{}{
		"image_id": "abc",
	})

	var entry map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry); err != nil {
		t.Fatalf("expected JSON log line, got %q: %v", buf.String(), err)
	}
	if entry["msg"] != "image_delete_failed" {
		t.Fatalf("expected action as msg, got %v", entry["msg"])
	}
	if entry["user_id"] != "user-1" {
		t.Fatalf("expected user_id user-1, got %v", entry["user_id"])
	}
	if entry["error"] != "disk full" {
		t.Fatalf("expected error field, got %v", entry["error"])
	}
	details, ok := entry["details"].(map[string]any)
	if !ok || details["image_id"] != "abc" {
		t.Fatalf("expected details.image_id=abc, got %v", entry["details"])
	}
}

func TestLoggerRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	InitWithWriter(&buf, "warn")
	t.Cleanup(func() { globalLogger = nil })

	Info("ignored", nil)
	Debug("ignored_too", nil)
	Warn("kept", nil)

	out := buf.String()
	if strings.Contains(out, "ignored") {
		t.Fatalf("expected info/debug lines to be filtered, got %q", out)
	}
	if !strings.Contains(out, "kept") {
		t.Fatalf("expected warn line, got %q", out)
	}
}
