package logs_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"duendefinder/internal/logs"
)

func writeLog(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "duende.log")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write log: %v", err)
	}
	return path
}

func TestLastLines(t *testing.T) {
	path := writeLog(t, "a\nb\nc\nd\n")

	lines, offset, err := logs.Last(path, 2)
	if err != nil {
		t.Fatalf("Last: %v", err)
	}
	if len(lines) != 2 || lines[0] != "c" || lines[1] != "d" {
		t.Fatalf("unexpected lines: %#v", lines)
	}
	if offset != 8 {
		t.Fatalf("expected offset 8, got %d", offset)
	}

	lines, _, err = logs.Last(path, 10)
	if err != nil {
		t.Fatalf("Last: %v", err)
	}
	if len(lines) != 4 || lines[0] != "a" {
		t.Fatalf("expected every line, got %#v", lines)
	}
}

func TestLastMissingFile(t *testing.T) {
	lines, offset, err := logs.Last(filepath.Join(t.TempDir(), "absent.log"), 5)
	if err != nil || len(lines) != 0 || offset != 0 {
		t.Fatalf("expected empty result, got %#v %d %v", lines, offset, err)
	}
}

func TestReadFromLeavesPartialLine(t *testing.T) {
	path := writeLog(t, "one\ntwo\npart")

	lines, offset, err := logs.ReadFrom(path, 0)
	if err != nil {
		t.Fatalf("ReadFrom: %v", err)
	}
	if len(lines) != 2 || lines[1] != "two" {
		t.Fatalf("unexpected lines: %#v", lines)
	}
	if offset != 8 {
		t.Fatalf("expected offset 8, got %d", offset)
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	_, _ = f.WriteString("ial\n")
	f.Close()

	lines, _, err = logs.ReadFrom(path, offset)
	if err != nil {
		t.Fatalf("ReadFrom: %v", err)
	}
	if len(lines) != 1 || lines[0] != "partial" {
		t.Fatalf("unexpected lines: %#v", lines)
	}
}

func TestFollowDeliversAppendedLines(t *testing.T) {
	path := writeLog(t, "start\n")
	_, offset, err := logs.Last(path, 0)
	if err != nil {
		t.Fatalf("Last: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	var (
		mu  sync.Mutex
		got []string
	)
	done := make(chan error, 1)
	go func() {
		done <- logs.Follow(ctx, path, offset, 10*time.Millisecond, func(line string) {
			mu.Lock()
			got = append(got, line)
			mu.Unlock()
			if line == "next" {
				cancel()
			}
		})
	}()

	time.Sleep(30 * time.Millisecond)
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	_, _ = f.WriteString("next\n")
	f.Close()

	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Fatalf("expected cancellation, got %v", err)
	}
	mu.Lock()
	defer mu.Unlock()
	if len(got) != 1 || got[0] != "next" {
		t.Fatalf("unexpected lines: %#v", got)
	}
}
