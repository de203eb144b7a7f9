package api

import (
	"slices"
	"time"

	"duendefinder/internal/events"
	"duendefinder/internal/logging"
	"duendefinder/internal/stage"
	"duendefinder/internal/workflow"
)

// FromEvent converts a stored event to its API representation.
func FromEvent(e *events.Event) EventItem {
	if e == nil {
		return EventItem{}
	}
	dto := EventItem{
		ID:           e.ID,
		Name:         e.Name,
		Artist:       e.Artist,
		City:         e.City,
		Venue:        e.Venue,
		Date:         e.Date,
		Time:         e.Time,
		Title:        e.DisplayTitle(),
		Status:       string(e.Status),
		ErrorMessage: e.ErrorMessage,
		Attempts: EventAttempts{
			Enrichment:  e.EnrichmentAttempts,
			Publication: e.PublishAttempts,
		},
		ImageURL:        e.Content.ImageURL,
		WordPressPostID: e.Publication.WordPressPostID,
		BlogPostURL:     e.Publication.BlogPostURL,
		StatusChangedAt: FormatTime(e.StatusChangedAt),
		CreatedAt:       FormatTime(e.CreatedAt),
		UpdatedAt:       FormatTime(e.UpdatedAt),
	}
	if e.Publication.FeaturedImageURL != "" {
		dto.ImageURL = e.Publication.FeaturedImageURL
	}
	if e.LastHeartbeat != nil {
		dto.LastHeartbeat = FormatTime(*e.LastHeartbeat)
	}
	for _, d := range e.Distributions {
		dto.Distributions = append(dto.Distributions, DistributionState{
			Platform:    string(d.Platform),
			OK:          d.OK,
			URL:         d.URL,
			Error:       d.Error,
			AttemptedAt: FormatTime(d.AttemptedAt),
		})
	}
	return dto
}

// FromEvents converts a slice of events into API DTOs.
func FromEvents(list []*events.Event) []EventItem {
	out := make([]EventItem, 0, len(list))
	for _, e := range list {
		out = append(out, FromEvent(e))
	}
	return out
}

// FromStatusSummary converts a workflow status summary to API payload.
func FromStatusSummary(summary workflow.StatusSummary) WorkflowStatus {
	wf := WorkflowStatus{
		Running:     summary.Running,
		Stages:      append([]string(nil), summary.Stages...),
		EventStats:  MergeEventStats(summary.EventStats),
		LastError:   summary.LastError,
		StageHealth: StageHealthSlice(summary.StageHealth),
	}
	if summary.LastEvent != nil {
		last := FromEvent(summary.LastEvent)
		wf.LastEvent = &last
	}
	return wf
}

// MergeEventStats produces a string-keyed count for every known status,
// including those with no events.
func MergeEventStats(stats map[events.Status]int) map[string]int {
	out := make(map[string]int, len(events.AllStatuses()))
	for _, status := range events.AllStatuses() {
		out[string(status)] = 0
	}
	for status, count := range stats {
		out[string(status)] += count
	}
	return out
}

// StageHealthSlice converts a stage health map into a deterministic slice.
func StageHealthSlice(health map[string]stage.Health) []StageHealth {
	names := make([]string, 0, len(health))
	for name := range health {
		names = append(names, name)
	}
	slices.Sort(names)

	out := make([]StageHealth, 0, len(names))
	for _, name := range names {
		h := health[name]
		out = append(out, StageHealth{Name: name, Ready: h.Ready, Detail: h.Detail})
	}
	return out
}

// FromLogEvents converts hub entries to API log lines.
func FromLogEvents(list []logging.LogEvent) []LogEvent {
	out := make([]LogEvent, 0, len(list))
	for _, evt := range list {
		out = append(out, LogEvent{
			Sequence:      evt.Sequence,
			Timestamp:     FormatTime(evt.Timestamp),
			Level:         evt.Level,
			Message:       evt.Message,
			Component:     evt.Component,
			Stage:         evt.Stage,
			EventID:       evt.EventID,
			CorrelationID: evt.CorrelationID,
			Fields:        evt.Fields,
		})
	}
	return out
}

// FormatTime converts a time to RFC3339 or returns empty string.
func FormatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(dateTimeFormat)
}
