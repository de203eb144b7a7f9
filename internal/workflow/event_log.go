package workflow

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"duendefinder/internal/config"
	"duendefinder/internal/events"
	"duendefinder/internal/logging"
)

// EventLogger manages dedicated log files for individual events.
type EventLogger struct {
	baseDir string
	hub     *logging.StreamHub
	cfg     *config.Config

	mu       sync.Mutex
	handlers map[string]slog.Handler
}

// NewEventLogger creates a logger factory rooted at log_dir/events.
func NewEventLogger(cfg *config.Config, hub *logging.StreamHub) *EventLogger {
	dir := ""
	if cfg != nil && cfg.Paths.LogDir != "" {
		dir = filepath.Join(cfg.Paths.LogDir, "events")
	}
	return &EventLogger{
		baseDir:  dir,
		hub:      hub,
		cfg:      cfg,
		handlers: make(map[string]slog.Handler),
	}
}

// Path returns the log file for the event. Every stage of the same event
// appends to one file.
func (b *EventLogger) Path(ev *events.Event) (string, error) {
	if ev == nil || strings.TrimSpace(ev.ID) == "" {
		return "", errors.New("event has no id")
	}
	if strings.TrimSpace(b.baseDir) == "" {
		return "", errors.New("event log directory not configured")
	}
	return filepath.Join(b.baseDir, sanitizeFilename(ev.ID)+".log"), nil
}

// Ensure prepares the log directory and returns the event's log path.
func (b *EventLogger) Ensure(ev *events.Event) (string, error) {
	path, err := b.Path(ev)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("ensure event log directory: %w", err)
	}
	return path, nil
}

// CreateHandler builds a JSON slog.Handler appending to path. Handlers are
// cached per path so repeated claims of one event share a writer.
// TODO: close the cached writer once the event reaches distributed.
func (b *EventLogger) CreateHandler(path string) (slog.Handler, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if handler, ok := b.handlers[path]; ok {
		return handler, nil
	}
	level := "info"
	if b.cfg != nil && strings.TrimSpace(b.cfg.Logging.Level) != "" {
		level = b.cfg.Logging.Level
	}
	logger, err := logging.New(logging.Options{
		Level:       level,
		Format:      "json",
		OutputPaths: []string{path},
		// Event logs still publish to the daemon stream so /api/logs shows stage progress.
		Hub: b.hub,
	})
	if err != nil {
		return nil, err
	}
	b.handlers[path] = logger.Handler()
	return logger.Handler(), nil
}

func sanitizeFilename(value string) string {
	var builder strings.Builder
	builder.Grow(len(value))
	for _, r := range strings.TrimSpace(value) {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			builder.WriteRune(r)
		default:
			builder.WriteByte('-')
		}
	}
	return builder.String()
}
