package events

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound is returned when no event matches the identifier.
	ErrNotFound = errors.New("event not found")
	// ErrConflict is returned when a conditional status change lost a race.
	ErrConflict = errors.New("event status changed concurrently")
)

// Filter narrows List results.
type Filter struct {
	Statuses []Status
	Limit    int
}

// Store persists events. Implementations must make Claim and Transition
// atomic compare-and-set operations on the status field.
type Store interface {
	Insert(ctx context.Context, e *Event) error
	Get(ctx context.Context, id string) (*Event, error)
	// Update persists every mutable field except the status, which only
	// moves through Claim, Transition, and the maintenance helpers.
	Update(ctx context.Context, e *Event) error
	// Claim moves the oldest event in from to processing and returns it, or
	// nil when none is waiting.
	Claim(ctx context.Context, from, processing Status) (*Event, error)
	// ClaimReady is Claim restricted to events that are not waiting out a
	// retry: an event carrying an errorMessage is only eligible once its
	// statusChangedAt is before retryCutoff. A zero cutoff behaves like Claim.
	ClaimReady(ctx context.Context, from, processing Status, retryCutoff time.Time) (*Event, error)
	// Transition moves the event from → to, persisting its other fields in
	// the same write. It returns ErrConflict if the stored status is not from.
	Transition(ctx context.Context, e *Event, from, to Status) error
	List(ctx context.Context, filter Filter) ([]*Event, error)
	Stats(ctx context.Context) (map[Status]int, error)
	UpdateHeartbeat(ctx context.Context, id string) error
	// ReclaimStale rolls processing events whose heartbeat is older than
	// cutoff back to their stage start status.
	ReclaimStale(ctx context.Context, cutoff time.Time, statuses ...Status) (int64, error)
	// ResetProcessing rolls every processing event back regardless of heartbeat.
	ResetProcessing(ctx context.Context) (int64, error)
	// RetryFailed requeues failed events; with no ids every failed event is requeued.
	RetryFailed(ctx context.Context, ids ...string) (int64, error)
	Delete(ctx context.Context, ids ...string) (int64, error)
	Ping(ctx context.Context) error
	Close() error
}

// PrepareInsert stamps defaults on a new event before it is stored.
func PrepareInsert(e *Event, now time.Time) {
	now = now.UTC()
	if e.Status == "" {
		e.Status = StatusPending
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = now
	}
	e.UpdatedAt = now
	e.StatusChangedAt = now
}
