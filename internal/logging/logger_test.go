package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"duendefinder/internal/config"
	"duendefinder/internal/services"
)

func TestConsoleHandlerFormatsComponentAndFields(t *testing.T) {
	var buf bytes.Buffer
	level := new(slog.LevelVar)
	logger := slog.New(newConsoleHandler(&buf, level, false))

	NewComponentLogger(logger, "enrichment").Info("content generated",
		String(FieldEventID, "abc"),
		String("title", "Noche de cante"),
		Group("llm", Int("attempts", 2)),
	)

	line := buf.String()
	if !strings.Contains(line, "INFO  enrichment: content generated") {
		t.Fatalf("unexpected prefix: %q", line)
	}
	if strings.Contains(line, "component=") {
		t.Fatalf("component should be rendered as prefix only: %q", line)
	}
	for _, want := range []string{"event_id=abc", `title="Noche de cante"`, "llm.attempts=2"} {
		if !strings.Contains(line, want) {
			t.Fatalf("expected %q in %q", want, line)
		}
	}
}

func TestConsoleHandlerRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	level := new(slog.LevelVar)
	level.Set(slog.LevelWarn)
	logger := slog.New(newConsoleHandler(&buf, level, false))

	logger.Info("hidden")
	logger.Warn("shown")

	if strings.Contains(buf.String(), "hidden") {
		t.Fatalf("info line should be filtered: %q", buf.String())
	}
	if !strings.Contains(buf.String(), "WARN") {
		t.Fatalf("expected warn line: %q", buf.String())
	}
}

func TestJSONHandlerRenamesKeys(t *testing.T) {
	var buf bytes.Buffer
	level := new(slog.LevelVar)
	logger := slog.New(newJSONHandler(&buf, level, false))

	logger.Warn("publish failed", String(FieldStage, "publication"))

	var payload map[string]any
	if err := json.Unmarshal(buf.Bytes(), &payload); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if _, ok := payload["ts"]; !ok {
		t.Fatalf("expected ts key: %v", payload)
	}
	if payload["level"] != "warn" {
		t.Fatalf("expected lowercase level, got %v", payload["level"])
	}
	if payload["stage"] != "publication" {
		t.Fatalf("expected stage field, got %v", payload["stage"])
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := New(Options{Format: "xml"}); err == nil {
		t.Fatal("expected error for unknown format")
	}
}

func TestNewFromConfigWritesLogFile(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.LogDir = t.TempDir()
	cfg.Logging.Format = "json"

	logger, err := NewFromConfig(&cfg, nil)
	if err != nil {
		t.Fatalf("NewFromConfig: %v", err)
	}
	logger.Info("daemon started")

	data, err := os.ReadFile(filepath.Join(cfg.Paths.LogDir, "duende.log"))
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(data), "daemon started") {
		t.Fatalf("expected message in log file, got %q", data)
	}
}

func TestWithContextAddsFields(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(newConsoleHandler(&buf, new(slog.LevelVar), false))

	ctx := services.WithEventID(context.Background(), "evt-1")
	ctx = services.WithStage(ctx, "publication")
	ctx = services.WithRequestID(ctx, "req-9")
	WithContext(ctx, logger).Info("posting")

	for _, want := range []string{"event_id=evt-1", "stage=publication", "correlation_id=req-9"} {
		if !strings.Contains(buf.String(), want) {
			t.Fatalf("expected %q in %q", want, buf.String())
		}
	}
}

func TestWarnWithContextInjectsDefaults(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(newConsoleHandler(&buf, new(slog.LevelVar), false))

	WarnWithContext(logger, "pinterest skipped", "distribution_skipped", String(FieldImpact, "no pin created"))

	line := buf.String()
	if !strings.Contains(line, "event_type=distribution_skipped") {
		t.Fatalf("missing event_type: %q", line)
	}
	if !strings.Contains(line, `error_hint="check logs for details"`) {
		t.Fatalf("missing default hint: %q", line)
	}
	if strings.Count(line, "impact=") != 1 || !strings.Contains(line, `impact="no pin created"`) {
		t.Fatalf("expected caller impact to win: %q", line)
	}
}

func TestNopLoggerDiscards(t *testing.T) {
	logger := NewNop()
	if logger.Enabled(context.Background(), slog.LevelError) {
		t.Fatal("nop logger should be disabled")
	}
}
