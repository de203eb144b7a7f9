package logging

import (
	"context"
	"log/slog"

	"duendefinder/internal/services"
)

const (
	// FieldComponent names the subsystem emitting a line.
	FieldComponent = "component"
	// FieldEventID carries the flamenco event being processed.
	FieldEventID = "event_id"
	// FieldStage carries the pipeline stage name.
	FieldStage = "stage"
	// FieldLane carries the workflow lane name.
	FieldLane = "lane"
	// FieldCorrelationID carries the per-attempt request identifier.
	FieldCorrelationID = "correlation_id"
	// FieldEventType classifies warnings and errors for filtering.
	FieldEventType = "event_type"
	// FieldErrorHint tells the operator what to do next.
	FieldErrorHint = "error_hint"
	// FieldImpact describes the user-facing consequence of a warning.
	FieldImpact = "impact"
	// FieldPlatform names a distribution platform.
	FieldPlatform = "platform"
)

// ContextFields extracts standard attributes from the provided context.
func ContextFields(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}
	fields := make([]slog.Attr, 0, 4)
	if id, ok := services.EventIDFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldEventID, id))
	}
	if stage, ok := services.StageFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldStage, stage))
	}
	if lane, ok := services.LaneFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldLane, lane))
	}
	if rid, ok := services.RequestIDFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldCorrelationID, rid))
	}
	return fields
}

// WithContext returns a logger augmented with fields derived from ctx.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	fields := ContextFields(ctx)
	if len(fields) == 0 {
		return logger
	}
	return logger.With(Args(fields...)...)
}
