// Package logging assembles structured slog loggers and formatting helpers used
// across Duende Finder.
//
// It owns the console and JSON handlers, centralizes level and output plumbing,
// and exposes context-aware helpers so stage code tags every line with the
// event ID, stage, and correlation ID it is working on. A bounded in-memory
// hub keeps recent lines for the daemon API, and a no-op logger serves tests
// and wiring code that cannot fail.
package logging
