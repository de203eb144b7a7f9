package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"duendefinder/internal/logging"
)

// Start begins background processing, one goroutine per lane.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return errors.New("workflow already running")
	}
	lanes := make([]*laneState, 0, len(m.laneOrder))
	for _, name := range m.laneOrder {
		if lane := m.lanes[name]; lane != nil {
			lanes = append(lanes, lane)
		}
	}
	if len(lanes) == 0 {
		m.mu.Unlock()
		return errors.New("workflow stages not configured")
	}

	runCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.running = true

	for _, lane := range lanes {
		lane.logger = m.laneLogger(lane)
	}
	m.wg.Add(len(lanes))
	m.mu.Unlock()

	if m.preflight {
		m.wg.Add(1)
		go func() {
			defer m.wg.Done()
			m.runStartupChecks(runCtx, m.logger.With(logging.String(logging.FieldComponent, "workflow-preflight")))
		}()
	}

	for _, lane := range lanes {
		go m.runLane(runCtx, lane)
	}

	return nil
}

// Stop terminates background processing and waits for completion.
func (m *Manager) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	cancel := m.cancel
	m.running = false
	m.cancel = nil
	m.mu.Unlock()

	cancel()
	m.wg.Wait()
}

// Running reports whether the lanes are active.
func (m *Manager) Running() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.running
}

func (m *Manager) runLane(ctx context.Context, lane *laneState) {
	defer m.wg.Done()
	logger := lane.logger
	if logger == nil {
		logger = m.laneLogger(lane)
	}
	stg := lane.stage

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		m.reclaim(ctx, logger, stg)

		ev, err := m.store.ClaimReady(ctx, stg.startStatus, stg.processingStatus, m.retryCutoff())
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			m.handleClaimError(ctx, logger, err)
			continue
		}
		if ev == nil {
			m.waitForEventOrShutdown(ctx)
			continue
		}

		if result := m.processEvent(ctx, lane, logger, ev); result == outcomeAborted {
			if ctx.Err() != nil {
				return
			}
			continue
		}
		if err := m.sleep(ctx, stg.itemDelay); err != nil {
			return
		}
	}
}

// RunStage processes up to limit events through the named stage once and
// returns the tally. A limit of zero or less uses the stage batch size. It
// stops early when no event is waiting.
func (m *Manager) RunStage(ctx context.Context, name string, limit int) (BatchResult, error) {
	result := BatchResult{Stage: name}
	lane, ok := m.lane(name)
	if !ok {
		return result, fmt.Errorf("stage %q is not configured", name)
	}
	stg := lane.stage
	if limit <= 0 {
		limit = stg.batchSize
	}
	logger := m.laneLogger(lane)
	start := time.Now()

	m.reclaim(ctx, logger, stg)
	logger.Info("batch started",
		logging.String(logging.FieldEventType, "batch_start"),
		logging.Int("limit", limit),
	)

	for limit <= 0 || result.Processed < limit {
		if result.Processed > 0 {
			if err := m.sleep(ctx, stg.itemDelay); err != nil {
				result.Duration = time.Since(start)
				return result, err
			}
		}
		// Events requeued during this batch wait for the next one.
		ev, err := m.store.ClaimReady(ctx, stg.startStatus, stg.processingStatus, start)
		if err != nil {
			m.setLastError(err)
			result.Duration = time.Since(start)
			return result, fmt.Errorf("claim %s event: %w", name, err)
		}
		if ev == nil {
			break
		}
		o := m.processEvent(ctx, lane, logger, ev)
		if o == outcomeAborted {
			result.Duration = time.Since(start)
			if err := ctx.Err(); err != nil {
				return result, err
			}
			return result, m.lastError()
		}
		result.record(o)
	}

	result.Duration = time.Since(start)
	logger.Info("batch completed",
		logging.String(logging.FieldEventType, "batch_complete"),
		logging.Int("processed", result.Processed),
		logging.Int("succeeded", result.Succeeded),
		logging.Int("failed", result.Failed),
		logging.Int("retried", result.Retried),
		logging.Duration("batch_duration", result.Duration),
	)
	m.notifyBatchCompleted(ctx, result)
	return result, nil
}

// retryCutoff is the latest statusChangedAt a requeued event may carry and
// still be claimed by a lane.
func (m *Manager) retryCutoff() time.Time {
	if m.retryWait <= 0 {
		return time.Time{}
	}
	return time.Now().Add(-m.retryWait)
}

func (m *Manager) reclaim(ctx context.Context, logger *slog.Logger, stg pipelineStage) {
	if _, err := m.heartbeat.ReclaimStale(ctx, logger, stg.processingStatus); err != nil && !errors.Is(err, context.Canceled) {
		logger.Warn("reclaim stale processing failed; stuck events may remain",
			logging.Error(err),
			logging.String(logging.FieldEventType, "heartbeat_reclaim_failed"),
			logging.String(logging.FieldErrorHint, "check event store access"),
		)
	}
}

func (m *Manager) handleClaimError(ctx context.Context, logger *slog.Logger, err error) {
	m.setLastError(err)
	logger.Error("failed to claim next event",
		logging.Error(err),
		logging.String(logging.FieldEventType, "event_claim_failed"),
		logging.String(logging.FieldErrorHint, "check event store access"),
	)
	_ = m.sleep(ctx, m.retryWait)
}

func (m *Manager) waitForEventOrShutdown(ctx context.Context) {
	wait := m.pollInterval
	if wait <= 0 {
		wait = 100 * time.Millisecond
	}
	_ = m.sleep(ctx, wait)
}
