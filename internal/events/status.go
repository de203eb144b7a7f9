package events

import (
	"errors"
	"fmt"
	"strings"
)

// Status is the single lifecycle field of an event.
type Status string

const (
	StatusPending            Status = "pending"
	StatusEnriching          Status = "enriching"
	StatusContentReady       Status = "content_ready"
	StatusEnrichmentFailed   Status = "enrichment_failed"
	StatusPublishing         Status = "publishing"
	StatusPublished          Status = "published"
	StatusPublishFailed      Status = "publish_failed"
	StatusDistributing       Status = "distributing"
	StatusDistributed        Status = "distributed"
	StatusDistributionFailed Status = "distribution_failed"
)

// ErrInvalidTransition is returned when a status change is not part of the lifecycle.
var ErrInvalidTransition = errors.New("invalid status transition")

var allStatuses = []Status{
	StatusPending,
	StatusEnriching,
	StatusContentReady,
	StatusPublishing,
	StatusPublished,
	StatusDistributing,
	StatusDistributed,
	StatusEnrichmentFailed,
	StatusPublishFailed,
	StatusDistributionFailed,
}

var statusSet = func() map[Status]struct{} {
	set := make(map[Status]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

var transitions = map[Status][]Status{
	StatusPending:            {StatusEnriching},
	StatusEnriching:          {StatusContentReady, StatusPending, StatusEnrichmentFailed},
	StatusContentReady:       {StatusPublishing},
	StatusPublishing:         {StatusPublished, StatusContentReady, StatusPublishFailed},
	StatusPublished:          {StatusDistributing},
	StatusDistributing:       {StatusDistributed, StatusPublished, StatusDistributionFailed},
	StatusEnrichmentFailed:   {StatusPending},
	StatusPublishFailed:      {StatusContentReady},
	StatusDistributionFailed: {StatusPublished},
}

// processing statuses map to the status a stalled event falls back to.
var processingRollback = map[Status]Status{
	StatusEnriching:    StatusPending,
	StatusPublishing:   StatusContentReady,
	StatusDistributing: StatusPublished,
}

var failedRetry = map[Status]Status{
	StatusEnrichmentFailed:   StatusPending,
	StatusPublishFailed:      StatusContentReady,
	StatusDistributionFailed: StatusPublished,
}

// progress ranks statuses along the happy path. Failed statuses rank with
// the stage they failed in.
var progress = map[Status]int{
	StatusPending:            0,
	StatusEnriching:          1,
	StatusEnrichmentFailed:   1,
	StatusContentReady:       2,
	StatusPublishing:         3,
	StatusPublishFailed:      3,
	StatusPublished:          4,
	StatusDistributing:       5,
	StatusDistributionFailed: 5,
	StatusDistributed:        6,
}

// AllStatuses returns the ordered list of known statuses.
func AllStatuses() []Status {
	out := make([]Status, len(allStatuses))
	copy(out, allStatuses)
	return out
}

// ParseStatus converts a string into a Status.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	if _, ok := statusSet[normalized]; ok {
		return normalized, true
	}
	return "", false
}

// IsProcessing reports whether the status marks an event claimed by a stage.
func (s Status) IsProcessing() bool {
	_, ok := processingRollback[s]
	return ok
}

// IsFailed reports whether the status is a terminal stage failure.
func (s Status) IsFailed() bool {
	_, ok := failedRetry[s]
	return ok
}

// Rollback returns the status a processing event returns to when its stage
// is abandoned.
func (s Status) Rollback() (Status, bool) {
	to, ok := processingRollback[s]
	return to, ok
}

// RetryTarget returns the status a failed event is requeued to.
func (s Status) RetryTarget() (Status, bool) {
	to, ok := failedRetry[s]
	return to, ok
}

// Reached reports whether s is at or past target on the happy path and is
// not a failure.
func (s Status) Reached(target Status) bool {
	if s.IsFailed() {
		return false
	}
	return progress[s] >= progress[target]
}

// CanTransition reports whether from → to is an allowed lifecycle step.
func CanTransition(from, to Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// ValidateTransition returns ErrInvalidTransition for disallowed steps.
func ValidateTransition(from, to Status) error {
	if CanTransition(from, to) {
		return nil
	}
	return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
}

// ProcessingStatuses returns every status that marks an event as claimed.
func ProcessingStatuses() []Status {
	return []Status{StatusEnriching, StatusPublishing, StatusDistributing}
}

// FailedStatuses returns every terminal failure status.
func FailedStatuses() []Status {
	return []Status{StatusEnrichmentFailed, StatusPublishFailed, StatusDistributionFailed}
}
