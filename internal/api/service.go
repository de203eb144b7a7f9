package api

import (
	"context"
	"errors"

	"duendefinder/internal/events"
)

// EventReader abstracts the store operations the API needs.
type EventReader interface {
	Get(ctx context.Context, id string) (*events.Event, error)
	List(ctx context.Context, filter events.Filter) ([]*events.Event, error)
	Stats(ctx context.Context) (map[events.Status]int, error)
	Ping(ctx context.Context) error
}

// EventService exposes read-only event queries returning API DTOs.
type EventService struct {
	store EventReader
}

// NewEventService constructs an EventService around the provided reader.
func NewEventService(store EventReader) *EventService {
	if store == nil {
		return nil
	}
	return &EventService{store: store}
}

// List returns events filtered by status, oldest first.
func (s *EventService) List(ctx context.Context, limit int, statuses ...events.Status) ([]EventItem, error) {
	if s == nil {
		return []EventItem{}, nil
	}
	list, err := s.store.List(ctx, events.Filter{Statuses: statuses, Limit: limit})
	if err != nil {
		return nil, err
	}
	return FromEvents(list), nil
}

// Describe fetches a single event. It returns nil when the id is unknown.
func (s *EventService) Describe(ctx context.Context, id string) (*EventItem, error) {
	if s == nil {
		return nil, nil
	}
	e, err := s.store.Get(ctx, id)
	if errors.Is(err, events.ErrNotFound) {
		return nil, nil
	}
	if err != nil || e == nil {
		return nil, err
	}
	dto := FromEvent(e)
	return &dto, nil
}

// Counts returns per-status totals for every known status.
func (s *EventService) Counts(ctx context.Context) (map[string]int, int, error) {
	if s == nil {
		return MergeEventStats(nil), 0, nil
	}
	stats, err := s.store.Stats(ctx)
	if err != nil {
		return nil, 0, err
	}
	total := 0
	for _, count := range stats {
		total += count
	}
	return MergeEventStats(stats), total, nil
}

// Ping reports store reachability.
func (s *EventService) Ping(ctx context.Context) error {
	if s == nil {
		return errors.New("event store not configured")
	}
	return s.store.Ping(ctx)
}
