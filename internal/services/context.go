package services

import "context"

type contextKey string

const (
	eventIDKey   contextKey = "event_id"
	stageKey     contextKey = "stage"
	laneKey      contextKey = "lane"
	requestIDKey contextKey = "request_id"
)

// WithEventID annotates context with the event identifier being processed.
func WithEventID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, eventIDKey, id)
}

// EventIDFromContext extracts the event identifier if present.
func EventIDFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(eventIDKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithStage annotates context with the workflow stage name.
func WithStage(ctx context.Context, stage string) context.Context {
	if stage == "" {
		return ctx
	}
	return context.WithValue(ctx, stageKey, stage)
}

// StageFromContext returns the stage name if present.
func StageFromContext(ctx context.Context) (string, bool) {
	v := ctx.Value(stageKey)
	if str, ok := v.(string); ok && str != "" {
		return str, true
	}
	return "", false
}

// WithLane annotates context with the workflow lane name.
func WithLane(ctx context.Context, lane string) context.Context {
	if lane == "" {
		return ctx
	}
	return context.WithValue(ctx, laneKey, lane)
}

// LaneFromContext returns the lane name if present.
func LaneFromContext(ctx context.Context) (string, bool) {
	v := ctx.Value(laneKey)
	if str, ok := v.(string); ok && str != "" {
		return str, true
	}
	return "", false
}

// WithRequestID annotates context with a correlation identifier.
func WithRequestID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestIDFromContext extracts the correlation identifier if present.
func RequestIDFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(requestIDKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}
