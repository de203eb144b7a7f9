package workflow

import (
	"context"
	"fmt"

	"duendefinder/internal/events"
	"duendefinder/internal/logging"
)

func (m *Manager) notifyStageFailure(ctx context.Context, stageName string, ev *events.Event, stageErr error) {
	if m.notifier == nil || stageErr == nil {
		return
	}
	logger := logging.WithContext(ctx, m.logger.With(logging.String(logging.FieldComponent, "workflow-manager")))

	var err error
	if stageName == StageEnrichment {
		err = m.notifier.NotifyEnrichmentFailed(ctx, ev.DisplayTitle(), ev.ErrorMessage)
	} else {
		contextLabel := fmt.Sprintf("%s (%s)", stageName, ev.DisplayTitle())
		err = m.notifier.NotifyError(ctx, stageErr, contextLabel)
	}
	if err != nil {
		if isShutdown(err) {
			logger.Debug("shutting down, could not send failure notification")
		} else {
			logger.Debug("stage failure notification failed", logging.Error(err))
		}
	}
}

func (m *Manager) notifyBatchCompleted(ctx context.Context, result BatchResult) {
	if m.notifier == nil {
		return
	}
	if err := m.notifier.NotifyBatchCompleted(ctx, result.Stage, result.Processed, result.Failed, result.Duration); err != nil {
		if isShutdown(err) {
			m.logger.Debug("shutting down, could not send batch notification")
		} else {
			m.logger.Debug("batch notification failed", logging.Error(err))
		}
	}
}
