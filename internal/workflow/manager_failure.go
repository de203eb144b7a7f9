package workflow

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"duendefinder/internal/events"
	"duendefinder/internal/logging"
	"duendefinder/internal/services"
)

// handleStageFailure applies the retry policy: a retryable error with
// attempts remaining rolls the event back to the stage start status,
// anything else moves it to the stage failed status.
func (m *Manager) handleStageFailure(ctx context.Context, stg pipelineStage, ev *events.Event, stageErr error) outcome {
	logger := m.stageLogger(ctx, m.logger, ev).With(logging.String(logging.FieldComponent, "workflow-manager"))
	m.setLastError(stageErr)

	attempts := 0
	if stg.attempts != nil {
		counter := stg.attempts(ev)
		*counter++
		attempts = *counter
	}
	target, result := resolveFailure(stg, stageErr, attempts)

	message := classifyStageFailure(stg.name, stageErr)
	ev.ErrorMessage = message
	ev.LastHeartbeat = nil

	attrs := []logging.Attr{
		logging.String("resolved_status", string(target)),
		logging.String("error_message", message),
		logging.Bool("retryable", services.Retryable(stageErr)),
		logging.Int("attempts", attempts),
		logging.Int("max_attempts", stg.maxAttempts),
		logging.String(logging.FieldErrorHint, services.Hint(stageErr)),
		logging.Error(stageErr),
		logging.String(logging.FieldEventType, "stage_failure"),
	}
	if result == outcomeRetried {
		logger.Warn("stage failed; event requeued", logging.Args(attrs...)...)
	} else {
		logger.Error("stage failed", logging.Args(attrs...)...)
	}

	persistCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), releaseTimeout)
	defer cancel()
	if err := m.store.Transition(persistCtx, ev, stg.processingStatus, target); err != nil {
		logger.Error("failed to persist stage failure",
			logging.Error(err),
			logging.String(logging.FieldEventType, "stage_failure_persist_failed"),
			logging.String(logging.FieldImpact, "event stays claimed until the heartbeat times out"),
		)
	}

	m.setLastEvent(ev)
	if result == outcomeFailed {
		m.notifyStageFailure(ctx, stg.name, ev, stageErr)
	}
	return result
}

func resolveFailure(stg pipelineStage, stageErr error, attempts int) (events.Status, outcome) {
	if stg.attempts != nil && services.Retryable(stageErr) && attempts < stg.maxAttempts {
		return stg.startStatus, outcomeRetried
	}
	return stg.failedStatus, outcomeFailed
}

func classifyStageFailure(stageName string, stageErr error) string {
	if stageErr == nil {
		return fmt.Sprintf("%s failed without error detail", stageName)
	}
	message := strings.TrimSpace(stageErr.Error())
	if message == "" {
		message = fmt.Sprintf("%s failed", stageName)
	}
	return message
}

func isShutdown(err error) bool {
	return errors.Is(err, context.Canceled)
}
