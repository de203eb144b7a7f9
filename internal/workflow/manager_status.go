package workflow

import (
	"context"

	"duendefinder/internal/events"
	"duendefinder/internal/logging"
	"duendefinder/internal/stage"
)

// StatusSummary represents lightweight workflow diagnostics.
type StatusSummary struct {
	Running     bool                    `json:"running"`
	Stages      []string                `json:"stages"`
	LastError   string                  `json:"lastError,omitempty"`
	LastEvent   *events.Event           `json:"lastEvent,omitempty"`
	EventStats  map[events.Status]int   `json:"eventStats"`
	StageHealth map[string]stage.Health `json:"stageHealth"`
}

// Status returns the latest workflow information.
func (m *Manager) Status(ctx context.Context) StatusSummary {
	m.mu.RLock()
	running := m.running
	lastErr := m.lastErr
	lastEvent := m.lastEvent
	stages := make([]pipelineStage, 0, len(m.laneOrder))
	names := make([]string, 0, len(m.laneOrder))
	for _, name := range m.laneOrder {
		if lane := m.lanes[name]; lane != nil {
			stages = append(stages, lane.stage)
			names = append(names, name)
		}
	}
	m.mu.RUnlock()

	stats, err := m.store.Stats(ctx)
	if err != nil {
		m.logger.Warn("failed to read event stats", logging.Error(err))
	}

	health := make(map[string]stage.Health, len(stages))
	for _, stg := range stages {
		health[stg.name] = stg.handler.HealthCheck(ctx)
	}

	summary := StatusSummary{Running: running, Stages: names, EventStats: stats, StageHealth: health}
	if lastErr != nil {
		summary.LastError = lastErr.Error()
	}
	if lastEvent != nil {
		copy := *lastEvent
		summary.LastEvent = &copy
	}
	return summary
}

func (m *Manager) setLastError(err error) {
	m.mu.Lock()
	m.lastErr = err
	m.mu.Unlock()
}

func (m *Manager) lastError() error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastErr
}

func (m *Manager) setLastEvent(ev *events.Event) {
	m.mu.Lock()
	if ev != nil {
		copy := *ev
		m.lastEvent = &copy
	} else {
		m.lastEvent = nil
	}
	m.mu.Unlock()
}
