package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/confaudit/confaudit/internal/observability"
)

func TestJSONLLoggerWritesEntries(t *testing.T) {
	var buf bytes.Buffer
	l := &jsonlLogger{writer: &buf, minLevel: levelPriority(LevelInfo)}

	l.Info("executor", "run complete", "records", 3, "rules", 7)

	line := strings.TrimSpace(buf.String())
	if line == "" {
		t.Fatal("expected a log line")
	}

	var entry map[string]any
	if err := json.Unmarshal([]byte(line), &entry); err != nil {
		t.Fatalf("entry is not valid JSON: %v", err)
	}
	if entry["level"] != "info" {
		t.Errorf("level = %v, want info", entry["level"])
	}
	if entry["component"] != "executor" {
		t.Errorf("component = %v, want executor", entry["component"])
	}
	if entry["msg"] != "run complete" {
		t.Errorf("msg = %v, want 'run complete'", entry["msg"])
	}
	fields, ok := entry["fields"].(map[string]any)
	if !ok {
		t.Fatalf("missing fields object: %v", entry)
	}
	if fields["records"] != float64(3) {
		t.Errorf("fields.records = %v, want 3", fields["records"])
	}
}

func TestJSONLLoggerLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	l := &jsonlLogger{writer: &buf, minLevel: levelPriority(LevelWarn)}

	l.Debug("cli", "dropped")
	l.Info("cli", "dropped too")
	l.Warn("cli", "kept")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("expected 1 line, got %d: %q", len(lines), buf.String())
	}
	if !strings.Contains(lines[0], "kept") {
		t.Errorf("wrong line survived filtering: %s", lines[0])
	}
}

func TestJSONLLoggerEventCarriesRunID(t *testing.T) {
	var buf bytes.Buffer
	l := &jsonlLogger{writer: &buf, minLevel: levelPriority(LevelInfo)}

	ctx := observability.WithRunID(context.Background())
	l.Event(ctx, "evaluate.complete", map[string]any{"score": 83.3})

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("entry is not valid JSON: %v", err)
	}
	if entry["event"] != "confaudit.evaluate.complete" {
		t.Errorf("event = %v, want confaudit.evaluate.complete", entry["event"])
	}
	if entry["run_id"] == "" || entry["run_id"] == nil {
		t.Error("expected a run_id on event entries")
	}
}

func TestNewLoggerOffFormatIsNoop(t *testing.T) {
	l, err := NewLogger(Config{Format: "off", Level: "info", Output: "stderr"})
	if err != nil {
		t.Fatalf("NewLogger failed: %v", err)
	}
	if _, ok := l.(*noopLogger); !ok {
		t.Errorf("expected noop logger for format off, got %T", l)
	}
}

func TestFromReturnsNoopWithoutLogger(t *testing.T) {
	l := From(context.Background())
	if l == nil {
		t.Fatal("From must never return nil")
	}
	// Must not panic.
	l.Info("cli", "no-op")
}
