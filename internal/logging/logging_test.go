package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func TestNewJSONRedactsSensitiveKeys(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Output: &buf, Format: FormatJSON, Level: slog.LevelInfo})
	logger.Info("connecting", slog.String("dsn", "postgres://user:pw@host/db"))

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("unmarshal log line: %v", err)
	}
	if entry["dsn"] != "[REDACTED]" {
		t.Errorf("dsn = %v, want [REDACTED]", entry["dsn"])
	}
}

func TestWithRunScenarioTrialAttachAttributes(t *testing.T) {
	var buf bytes.Buffer
	base := New(Config{Output: &buf, Format: FormatJSON, Level: slog.LevelInfo})
	ctx := NewContext(context.Background(), base)

	ctx = WithRunID(ctx, "run-1")
	ctx = WithScenario(ctx, "bau")
	ctx = WithTrial(ctx, 3)

	FromContext(ctx).Info("year completed")

	line := buf.String()
	for _, want := range []string{`"run_id":"run-1"`, `"scenario":"bau"`, `"trial":3`} {
		if !strings.Contains(line, want) {
			t.Errorf("log line missing %q: %s", want, line)
		}
	}

	if got := RunIDFromContext(ctx); got != "run-1" {
		t.Errorf("RunIDFromContext = %q, want run-1", got)
	}
	if got := ScenarioFromContext(ctx); got != "bau" {
		t.Errorf("ScenarioFromContext = %q, want bau", got)
	}
	if got := TrialFromContext(ctx); got != 3 {
		t.Errorf("TrialFromContext = %d, want 3", got)
	}
}

func TestFromContextFallsBackToDefault(t *testing.T) {
	logger := FromContext(context.Background())
	if logger == nil {
		t.Fatal("FromContext should never return nil")
	}
}

func TestParseLogLevelAndFormat(t *testing.T) {
	if parseLogLevel("debug") != slog.LevelDebug {
		t.Error("expected debug level")
	}
	if parseLogLevel("bogus") != slog.LevelInfo {
		t.Error("expected fallback to info level")
	}
	if parseLogFormat("text") != FormatText {
		t.Error("expected text format")
	}
	if parseLogFormat("") != FormatJSON {
		t.Error("expected default json format")
	}
}
