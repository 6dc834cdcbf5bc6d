package logging

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoggerWritesConsoleAndFile(t *testing.T) {
	var console bytes.Buffer
	logFile := filepath.Join(t.TempDir(), "logs", "download.log")

	l, err := NewLogger(Options{Console: &console, LogFile: logFile})
	if err != nil {
		t.Fatalf("NewLogger() error = %v", err)
	}

	l.WithField("source", "accounts").Info().Str("attachment_id", "00P1").Msg("downloaded")
	if err := l.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	if !strings.Contains(console.String(), "downloaded") {
		t.Errorf("console output missing message: %q", console.String())
	}

	data, err := os.ReadFile(logFile)
	if err != nil {
		t.Fatalf("reading log file: %v", err)
	}
	var entry map[string]interface{}
	if err := json.Unmarshal(bytes.TrimSpace(data), &entry); err != nil {
		t.Fatalf("log file line is not JSON: %v (%q)", err, data)
	}
	if entry["source"] != "accounts" || entry["attachment_id"] != "00P1" || entry["message"] != "downloaded" {
		t.Errorf("unexpected log entry: %v", entry)
	}
}

func TestSetOutputKeepsFields(t *testing.T) {
	var first, second bytes.Buffer
	l, err := NewLogger(Options{Console: &first})
	if err != nil {
		t.Fatal(err)
	}
	child := l.WithField("source", "contacts")
	child.SetOutput(&second)
	child.Info().Msg("hello")

	if first.Len() != 0 {
		t.Errorf("old writer received output: %q", first.String())
	}
	if !strings.Contains(second.String(), "contacts") {
		t.Errorf("field lost after SetOutput: %q", second.String())
	}
}

func TestNopDiscards(t *testing.T) {
	l := NewNop()
	l.Info().Msg("ignored")
	l.Infof("ignored %d", 1)
	if err := l.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
}
