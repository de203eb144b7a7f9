package workflow

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"duendefinder/internal/events"
	"duendefinder/internal/logging"
)

// HeartbeatMonitor keeps claimed events alive and reclaims abandoned claims.
type HeartbeatMonitor struct {
	store             events.Store
	logger            *slog.Logger
	heartbeatInterval time.Duration
	heartbeatTimeout  time.Duration
}

// NewHeartbeatMonitor creates a new monitor.
func NewHeartbeatMonitor(store events.Store, logger *slog.Logger, interval, timeout time.Duration) *HeartbeatMonitor {
	return &HeartbeatMonitor{
		store:             store,
		logger:            logger,
		heartbeatInterval: interval,
		heartbeatTimeout:  timeout,
	}
}

// ReclaimStale rolls processing events whose heartbeat is older than the
// timeout back to their stage start status.
func (h *HeartbeatMonitor) ReclaimStale(ctx context.Context, logger *slog.Logger, statuses ...events.Status) (int64, error) {
	if h.heartbeatTimeout <= 0 || len(statuses) == 0 {
		return 0, nil
	}
	cutoff := time.Now().Add(-h.heartbeatTimeout)
	reclaimed, err := h.store.ReclaimStale(ctx, cutoff, statuses...)
	if err != nil {
		return 0, err
	}
	if reclaimed > 0 {
		logger.Info("reclaimed stale events",
			logging.Int64("count", reclaimed),
			logging.String(logging.FieldEventType, "heartbeat_reclaimed"),
		)
	}
	return reclaimed, nil
}

// StartLoop refreshes the event's heartbeat until ctx is cancelled.
func (h *HeartbeatMonitor) StartLoop(ctx context.Context, wg *sync.WaitGroup, eventID string) {
	defer wg.Done()
	if h.heartbeatInterval <= 0 {
		return
	}
	ticker := time.NewTicker(h.heartbeatInterval)
	defer ticker.Stop()

	logger := logging.WithContext(ctx, h.logger.With(logging.String(logging.FieldComponent, "workflow-heartbeat")))

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := h.store.UpdateHeartbeat(ctx, eventID); err != nil {
				if errors.Is(err, context.Canceled) {
					logger.Debug("heartbeat update cancelled")
				} else {
					logger.Warn("heartbeat update failed", logging.Error(err))
				}
			}
		}
	}
}
