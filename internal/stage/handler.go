// Package stage defines the contract between the workflow manager and the
// enrichment, publication, and distribution handlers.
package stage

import (
	"context"
	"log/slog"

	"duendefinder/internal/events"
)

// Handler describes what the workflow manager needs from each stage.
//
// Prepare validates the claimed event and may fill fields that should be
// persisted before the long-running Execute call. An error from either
// method is routed through the manager's failure handling.
type Handler interface {
	Prepare(context.Context, *events.Event) error
	Execute(context.Context, *events.Event) error
	HealthCheck(context.Context) Health
}

// LoggerAware handlers receive the manager's logger at registration.
type LoggerAware interface {
	SetLogger(*slog.Logger)
}

// Skipper handlers can short-circuit Execute when the event already carries
// the stage's output.
type Skipper interface {
	AlreadyDone(*events.Event) bool
}
