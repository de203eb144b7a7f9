package workflow

import (
	"log/slog"
	"time"

	"duendefinder/internal/events"
	"duendefinder/internal/stage"
)

// Stage names used for lane registration and RunStage.
const (
	StageEnrichment   = "enrichment"
	StagePublication  = "publication"
	StageDistribution = "distribution"
)

// StageSet bundles the concrete handlers the manager orchestrates. Nil
// handlers leave their lane unregistered.
type StageSet struct {
	Enrichment   stage.Handler
	Publication  stage.Handler
	Distribution stage.Handler
}

type pipelineStage struct {
	name             string
	handler          stage.Handler
	startStatus      events.Status
	processingStatus events.Status
	doneStatus       events.Status
	failedStatus     events.Status

	// attempts points at the event's counter for this stage; nil means the
	// stage does not retry and every failure is terminal.
	attempts    func(*events.Event) *int
	maxAttempts int
	itemDelay   time.Duration
	batchSize   int

	// requires lists the contract fields the stage reads; an event missing
	// one fails before any external call. owns lists the fields the stage
	// writes and must leave valid at doneStatus. Gaps in other fields are
	// logged and left for the audit.
	requires []events.ViolationKind
	owns     []events.ViolationKind
}

type laneState struct {
	name   string
	stage  pipelineStage
	logger *slog.Logger
}

// BatchResult summarizes one RunStage invocation.
type BatchResult struct {
	Stage     string        `json:"stage"`
	Processed int           `json:"processed"`
	Succeeded int           `json:"succeeded"`
	Failed    int           `json:"failed"`
	Retried   int           `json:"retried"`
	Skipped   int           `json:"skipped"`
	Duration  time.Duration `json:"duration"`
}

type outcome int

const (
	outcomeSucceeded outcome = iota
	outcomeSkipped
	outcomeRetried
	outcomeFailed
	outcomeAborted
)

func (r *BatchResult) record(o outcome) {
	switch o {
	case outcomeSucceeded:
		r.Processed++
		r.Succeeded++
	case outcomeSkipped:
		r.Processed++
		r.Succeeded++
		r.Skipped++
	case outcomeRetried:
		r.Processed++
		r.Retried++
	case outcomeFailed:
		r.Processed++
		r.Failed++
	}
}
