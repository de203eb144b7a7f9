package workflow

import (
	"context"
	"fmt"
	"log/slog"

	"duendefinder/internal/events"
	"duendefinder/internal/logging"
	"duendefinder/internal/services"
)

func (m *Manager) laneLogger(lane *laneState) *slog.Logger {
	return m.logger.With(
		logging.String(logging.FieldComponent, fmt.Sprintf("workflow-%s-runner", lane.name)),
		logging.String(logging.FieldLane, lane.name),
	)
}

// stageLogger derives the logger handed to a stage. With event logs enabled
// the lines go to the event's own file (and the stream hub) instead of the
// daemon log.
func (m *Manager) stageLogger(ctx context.Context, laneLogger *slog.Logger, ev *events.Event) *slog.Logger {
	base := laneLogger
	if base == nil {
		base = m.logger
	}

	if m.eventLogs != nil && ev != nil {
		path, err := m.eventLogs.Ensure(ev)
		if err != nil {
			base.Warn("event log unavailable", logging.Error(err))
		} else if handler, logErr := m.eventLogs.CreateHandler(path); logErr != nil {
			base.Warn("failed to create event log writer", logging.Error(logErr))
		} else {
			base = slog.New(handler)
		}
	}

	return logging.WithContext(ctx, base)
}

func withStageContext(ctx context.Context, lane *laneState, ev *events.Event, requestID string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	if ev != nil {
		ctx = services.WithEventID(ctx, ev.ID)
	}
	if lane != nil {
		ctx = services.WithStage(ctx, lane.stage.name)
		ctx = services.WithLane(ctx, lane.name)
	}
	if requestID != "" {
		ctx = services.WithRequestID(ctx, requestID)
	}
	return ctx
}
