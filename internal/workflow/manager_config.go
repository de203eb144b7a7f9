package workflow

import (
	"time"

	"duendefinder/internal/events"
)

// ConfigureStages registers the concrete stage handlers the workflow will run.
func (m *Manager) ConfigureStages(set StageSet) {
	lanes := make(map[string]*laneState)
	order := make([]string, 0, 3)

	add := func(stg pipelineStage) {
		if stg.handler == nil {
			return
		}
		lanes[stg.name] = &laneState{name: stg.name, stage: stg}
		order = append(order, stg.name)
	}

	add(pipelineStage{
		name:             StageEnrichment,
		handler:          set.Enrichment,
		startStatus:      events.StatusPending,
		processingStatus: events.StatusEnriching,
		doneStatus:       events.StatusContentReady,
		failedStatus:     events.StatusEnrichmentFailed,
		attempts:         func(e *events.Event) *int { return &e.EnrichmentAttempts },
		maxAttempts:      m.cfg.Enrichment.MaxAttempts,
		itemDelay:        seconds(m.cfg.Enrichment.ItemDelaySeconds),
		batchSize:        m.cfg.Enrichment.BatchSize,
		owns: []events.ViolationKind{
			events.ViolationMissingTitle,
			events.ViolationMissingImage,
			events.ViolationMissingGenerationDate,
		},
	})
	add(pipelineStage{
		name:             StagePublication,
		handler:          set.Publication,
		startStatus:      events.StatusContentReady,
		processingStatus: events.StatusPublishing,
		doneStatus:       events.StatusPublished,
		failedStatus:     events.StatusPublishFailed,
		attempts:         func(e *events.Event) *int { return &e.PublishAttempts },
		maxAttempts:      m.cfg.Publication.MaxAttempts,
		itemDelay:        seconds(m.cfg.Publication.ItemDelaySeconds),
		batchSize:        m.cfg.Publication.BatchSize,
		requires:         []events.ViolationKind{events.ViolationMissingTitle},
		owns:             []events.ViolationKind{events.ViolationMissingPostID, events.ViolationInvalidPostURL},
	})
	add(pipelineStage{
		name:             StageDistribution,
		handler:          set.Distribution,
		startStatus:      events.StatusPublished,
		processingStatus: events.StatusDistributing,
		doneStatus:       events.StatusDistributed,
		failedStatus:     events.StatusDistributionFailed,
		itemDelay:        seconds(m.cfg.Distribution.ItemDelaySeconds),
		batchSize:        m.cfg.Distribution.BatchSize,
		requires:         []events.ViolationKind{events.ViolationMissingPostID, events.ViolationInvalidPostURL},
		owns:             []events.ViolationKind{events.ViolationMissingDistribution},
	})

	m.mu.Lock()
	m.lanes = lanes
	m.laneOrder = order
	m.mu.Unlock()
}

// Stages returns the registered stage names in pipeline order.
func (m *Manager) Stages() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, len(m.laneOrder))
	copy(out, m.laneOrder)
	return out
}

func (m *Manager) lane(name string) (*laneState, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	lane, ok := m.lanes[name]
	return lane, ok
}

func seconds(n int) time.Duration {
	if n <= 0 {
		return 0
	}
	return time.Duration(n) * time.Second
}
