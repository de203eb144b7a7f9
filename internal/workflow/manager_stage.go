package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"duendefinder/internal/events"
	"duendefinder/internal/logging"
	"duendefinder/internal/services"
	"duendefinder/internal/stage"
)

const releaseTimeout = 10 * time.Second

func (m *Manager) processEvent(ctx context.Context, lane *laneState, laneLogger *slog.Logger, ev *events.Event) outcome {
	stg := lane.stage
	requestID := uuid.NewString()
	stageCtx := withStageContext(ctx, lane, ev, requestID)
	stageLogger := m.stageLogger(stageCtx, laneLogger, ev)
	if aware, ok := stg.handler.(stage.LoggerAware); ok {
		aware.SetLogger(stageLogger)
	}
	m.setLastEvent(ev)

	if err := m.checkInputs(stageLogger, stg, ev); err != nil {
		return m.handleStageFailure(stageCtx, stg, ev, err)
	}

	if skipper, ok := stg.handler.(stage.Skipper); ok && skipper.AlreadyDone(ev) {
		stageLogger.Info("stage output already present; skipping",
			logging.String(logging.FieldEventType, "stage_skipped"),
			logging.String("next_status", string(stg.doneStatus)),
		)
		if err := m.completeStage(stageCtx, stg, ev); err != nil {
			return m.handleStageFailure(stageCtx, stg, ev, err)
		}
		return outcomeSkipped
	}

	return m.executeStage(stageCtx, stg, stageLogger, ev)
}

func (m *Manager) executeStage(ctx context.Context, stg pipelineStage, stageLogger *slog.Logger, ev *events.Event) outcome {
	stageStart := time.Now()
	stageLogger.Info(
		"stage started",
		logging.String(logging.FieldEventType, "stage_start"),
		logging.String("processing_status", string(stg.processingStatus)),
		logging.String("event_title", ev.DisplayTitle()),
		logging.String("event_date", strings.TrimSpace(ev.Date)),
	)

	if err := stg.handler.Prepare(ctx, ev); err != nil {
		return m.handleStageFailure(ctx, stg, ev, err)
	}
	if err := m.store.Update(ctx, ev); err != nil {
		wrapped := fmt.Errorf("persist stage preparation: %w", err)
		stageLogger.Error("failed to persist stage preparation", logging.Error(wrapped))
		m.setLastError(wrapped)
		m.release(ctx, stg, ev, stageLogger)
		return outcomeAborted
	}

	if err := m.executeWithHeartbeat(ctx, stg.handler, ev); err != nil {
		if errors.Is(err, context.Canceled) && ctx.Err() != nil {
			stageLogger.Info("stage interrupted by shutdown; releasing event",
				logging.String("next_status", string(stg.startStatus)))
			m.release(ctx, stg, ev, stageLogger)
			return outcomeAborted
		}
		return m.handleStageFailure(ctx, stg, ev, err)
	}

	if err := m.completeStage(ctx, stg, ev); err != nil {
		return m.handleStageFailure(ctx, stg, ev, err)
	}
	stageLogger.Info(
		"stage completed",
		logging.String(logging.FieldEventType, "stage_complete"),
		logging.String("next_status", string(ev.Status)),
		logging.Duration("stage_duration", time.Since(stageStart)),
	)
	return outcomeSucceeded
}

// checkInputs applies the contract of the stage start status. Violations the
// stage depends on fail the event; inherited gaps are only logged.
func (m *Manager) checkInputs(logger *slog.Logger, stg pipelineStage, ev *events.Event) error {
	candidate := *ev
	candidate.Status = stg.startStatus
	violations := events.CheckContract(&candidate)
	if blocking := violationsOf(violations, stg.requires); len(blocking) > 0 {
		return services.Wrap(services.ErrValidation, stg.name, "check contract",
			fmt.Sprintf("input incomplete for %s: %s", stg.startStatus, violationKinds(blocking)), nil)
	}
	if len(violations) > 0 {
		logger.Warn("event carries contract gaps from an earlier stage",
			logging.String("violations", violationKinds(violations)),
			logging.String(logging.FieldEventType, "contract_gap"),
			logging.String(logging.FieldErrorHint, "run duende audit to list affected events"),
		)
	}
	return nil
}

// completeStage checks the fields the stage owns against the done status
// contract and persists the transition together with the stage output.
func (m *Manager) completeStage(ctx context.Context, stg pipelineStage, ev *events.Event) error {
	candidate := *ev
	candidate.Status = stg.doneStatus
	if violations := violationsOf(events.CheckContract(&candidate), stg.owns); len(violations) > 0 {
		return services.Wrap(services.ErrValidation, stg.name, "check contract",
			fmt.Sprintf("stage output incomplete for %s: %s", stg.doneStatus, violationKinds(violations)), nil)
	}
	ev.ErrorMessage = ""
	ev.LastHeartbeat = nil
	if err := m.store.Transition(ctx, ev, stg.processingStatus, stg.doneStatus); err != nil {
		return fmt.Errorf("persist stage result: %w", err)
	}
	m.setLastEvent(ev)
	return nil
}

func (m *Manager) executeWithHeartbeat(ctx context.Context, handler stage.Handler, ev *events.Event) error {
	hbCtx, hbCancel := context.WithCancel(ctx)
	var hbWG sync.WaitGroup
	hbWG.Add(1)
	go m.heartbeat.StartLoop(hbCtx, &hbWG, ev.ID)

	execErr := handler.Execute(ctx, ev)
	hbCancel()
	hbWG.Wait()
	return execErr
}

// release returns an interrupted claim to the stage start status, keeping
// any partial output so the next attempt can reuse it.
func (m *Manager) release(ctx context.Context, stg pipelineStage, ev *events.Event, logger *slog.Logger) {
	releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), releaseTimeout)
	defer cancel()
	if err := m.store.Transition(releaseCtx, ev, stg.processingStatus, stg.startStatus); err != nil {
		logger.Warn("failed to release claimed event; heartbeat reclaim will recover it",
			logging.Error(err),
			logging.String(logging.FieldEventType, "event_release_failed"),
			logging.String(logging.FieldImpact, "event stays claimed until the heartbeat times out"),
		)
	}
}

func violationsOf(violations []events.Violation, kinds []events.ViolationKind) []events.Violation {
	var out []events.Violation
	for _, v := range violations {
		if v.Kind == events.ViolationUnknownStatus || slices.Contains(kinds, v.Kind) {
			out = append(out, v)
		}
	}
	return out
}

func violationKinds(violations []events.Violation) string {
	kinds := make([]string, len(violations))
	for i, v := range violations {
		kinds[i] = string(v.Kind)
	}
	return strings.Join(kinds, ", ")
}
