package workflow

import (
	"context"
	"log/slog"

	"duendefinder/internal/logging"
	"duendefinder/internal/preflight"
)

// runStartupChecks logs the preflight results and the health of every
// configured lane, and returns the names of the checks that failed. Lanes
// start regardless; an unready stage fails its events with a configuration
// error instead.
func (m *Manager) runStartupChecks(ctx context.Context, logger *slog.Logger) []string {
	var failed []string
	for _, r := range preflight.RunAll(ctx, m.cfg, m.store) {
		if r.Passed {
			logger.Info("preflight check passed",
				logging.String("check", r.Name),
				logging.String("detail", r.Detail),
				logging.String(logging.FieldEventType, "preflight_passed"),
			)
			continue
		}
		logger.Warn("preflight check failed",
			logging.String("check", r.Name),
			logging.String("detail", r.Detail),
			logging.String(logging.FieldEventType, "preflight_failed"),
			logging.String(logging.FieldErrorHint, "fix the reported issue and restart the daemon"),
			logging.String(logging.FieldImpact, "stages depending on it will fail their events"),
		)
		failed = append(failed, r.Name)
	}

	m.mu.RLock()
	lanes := make([]*laneState, 0, len(m.laneOrder))
	for _, name := range m.laneOrder {
		if lane := m.lanes[name]; lane != nil {
			lanes = append(lanes, lane)
		}
	}
	m.mu.RUnlock()

	for _, lane := range lanes {
		health := lane.stage.handler.HealthCheck(ctx)
		if health.Ready {
			logger.Info("stage ready", logging.String(logging.FieldStage, lane.stage.name), logging.String("health", health.String()))
			continue
		}
		logger.Warn("stage not ready",
			logging.String(logging.FieldStage, lane.stage.name),
			logging.String("health", health.String()),
			logging.String(logging.FieldEventType, "stage_unready"),
		)
		failed = append(failed, lane.stage.name)
	}

	if len(failed) > 0 {
		logger.Warn("startup checks reported problems", logging.Int("failed", len(failed)))
	}
	return failed
}
