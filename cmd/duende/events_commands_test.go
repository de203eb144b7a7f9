package main

import (
	"encoding/json"
	"testing"

	"duendefinder/internal/audit"
	"duendefinder/internal/dedup"
	"duendefinder/internal/events"
)

const sampleEvents = `[
  {"name": "Noche Flamenca", "artist": "Farruquito", "date": "2026-11-02", "city": "Sevilla", "venue": "Teatro Central"},
  {"name": "Noche flamenca ", "artist": "FARRUQUITO", "date": "2026-11-02", "city": "Sevilla"},
  {"name": "Cante de Madrugá", "artist": "Arcángel", "date": "2026-11-09", "city": "Jerez", "pipelineStatus": "distributed"}
]`

func TestEventsImportSkipsDuplicates(t *testing.T) {
	env := setupCLITestEnv(t)
	file := writeFile(t, env.baseDir, "events.json", sampleEvents)

	out, _, err := runCLI(t, []string{"events", "import", file}, env.configPath)
	if err != nil {
		t.Fatalf("events import: %v", err)
	}
	requireContains(t, out, "Imported 2 events (1 duplicates skipped)")

	out, _, err = runCLI(t, []string{"events", "list", "--json"}, env.configPath)
	if err != nil {
		t.Fatalf("events list: %v", err)
	}
	var list []events.Event
	if err := json.Unmarshal([]byte(out), &list); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("expected 2 events, got %d", len(list))
	}
	for _, e := range list {
		if e.Status != events.StatusPending {
			t.Fatalf("imported event %s has status %s, want pending", e.ID, e.Status)
		}
	}

	out, _, err = runCLI(t, []string{"events", "show", list[0].ID}, env.configPath)
	if err != nil {
		t.Fatalf("events show: %v", err)
	}
	requireContains(t, out, list[0].ID)
	requireContains(t, out, "Pending")

	if _, _, err := runCLI(t, []string{"events", "show", "missing"}, env.configPath); err == nil {
		t.Fatal("expected error for unknown id")
	}
}

func TestEventsImportRejectsIncompleteEvent(t *testing.T) {
	env := setupCLITestEnv(t)
	file := writeFile(t, env.baseDir, "bad.json", `{"city": "Granada", "date": "2026-12-01"}`)

	_, _, err := runCLI(t, []string{"events", "import", file}, env.configPath)
	if err == nil {
		t.Fatal("expected import error")
	}
	requireContains(t, err.Error(), "name or artist")
}

func TestEventsListRejectsUnknownStatus(t *testing.T) {
	env := setupCLITestEnv(t)
	if _, _, err := runCLI(t, []string{"events", "list", "--status", "archived"}, env.configPath); err == nil {
		t.Fatal("expected unknown status error")
	}
}

func TestEventsMigrateRequiresMongo(t *testing.T) {
	env := setupCLITestEnv(t)
	_, _, err := runCLI(t, []string{"events", "migrate-status"}, env.configPath)
	if err == nil {
		t.Fatal("expected migrate-status to fail on sqlite")
	}
	requireContains(t, err.Error(), "mongo backend")
}

func TestEventsRetryAndReset(t *testing.T) {
	env := setupCLITestEnv(t)
	out, _, err := runCLI(t, []string{"events", "retry"}, env.configPath)
	if err != nil {
		t.Fatalf("events retry: %v", err)
	}
	requireContains(t, out, "Requeued 0 failed events")

	out, _, err = runCLI(t, []string{"events", "reset"}, env.configPath)
	if err != nil {
		t.Fatalf("events reset: %v", err)
	}
	requireContains(t, out, "Released 0 in-flight events")
}

func TestDedupDryRunThenApply(t *testing.T) {
	env := setupCLITestEnv(t)
	file := writeFile(t, env.baseDir, "events.json", sampleEvents)
	if _, _, err := runCLI(t, []string{"events", "import", "--allow-duplicates", file}, env.configPath); err != nil {
		t.Fatalf("events import: %v", err)
	}

	out, _, err := runCLI(t, []string{"dedup"}, env.configPath)
	if err != nil {
		t.Fatalf("dedup: %v", err)
	}
	requireContains(t, out, "1 duplicates found")

	out, _, err = runCLI(t, []string{"dedup", "--apply", "--json"}, env.configPath)
	if err != nil {
		t.Fatalf("dedup --apply: %v", err)
	}
	var report dedup.Report
	if err := json.Unmarshal([]byte(out), &report); err != nil {
		t.Fatalf("decode dedup report: %v", err)
	}
	if report.Duplicates != 1 {
		t.Fatalf("expected 1 duplicate, got %d", report.Duplicates)
	}

	out, _, err = runCLI(t, []string{"dedup"}, env.configPath)
	if err != nil {
		t.Fatalf("dedup: %v", err)
	}
	requireContains(t, out, "No duplicates among 2 events")
}

func TestAuditFormats(t *testing.T) {
	env := setupCLITestEnv(t)
	file := writeFile(t, env.baseDir, "events.json", sampleEvents)
	if _, _, err := runCLI(t, []string{"events", "import", file}, env.configPath); err != nil {
		t.Fatalf("events import: %v", err)
	}

	out, _, err := runCLI(t, []string{"audit", "--format", "json"}, env.configPath)
	if err != nil {
		t.Fatalf("audit json: %v", err)
	}
	var report audit.Report
	if err := json.Unmarshal([]byte(out), &report); err != nil {
		t.Fatalf("decode audit: %v", err)
	}
	if report.Scanned != 2 {
		t.Fatalf("expected 2 scanned, got %d", report.Scanned)
	}

	out, _, err = runCLI(t, []string{"audit", "--format", "yaml"}, env.configPath)
	if err != nil {
		t.Fatalf("audit yaml: %v", err)
	}
	requireContains(t, out, "scanned: 2")

	out, _, err = runCLI(t, []string{"audit"}, env.configPath)
	if err != nil {
		t.Fatalf("audit table: %v", err)
	}
	requireContains(t, out, "No problems found")

	if _, _, err := runCLI(t, []string{"audit", "--format", "xml"}, env.configPath); err == nil {
		t.Fatal("expected unsupported format error")
	}
}
