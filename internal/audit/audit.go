// Package audit inspects stored events for broken data contracts, stuck
// claims, failures, and partial distributions.
//
// Run is read-only. The CLI renders the Report as a table, JSON, or YAML.
package audit

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"duendefinder/internal/dedup"
	"duendefinder/internal/events"
)

// Lister is the part of events.Store the audit reads from.
type Lister interface {
	List(ctx context.Context, filter events.Filter) ([]*events.Event, error)
}

// Options narrows the audit.
type Options struct {
	Statuses []events.Status
	Limit    int
	// StaleAfter marks processing events whose heartbeat is older than this.
	StaleAfter time.Duration
	Now        func() time.Time
}

// Report is the structured audit output.
type Report struct {
	GeneratedAt  time.Time             `json:"generatedAt" yaml:"generatedAt"`
	Scanned      int                   `json:"scanned" yaml:"scanned"`
	StatusCounts map[events.Status]int `json:"statusCounts" yaml:"statusCounts"`
	Violations   []KindGroup           `json:"violations,omitempty" yaml:"violations,omitempty"`
	Failed       []EventSummary        `json:"failed,omitempty" yaml:"failed,omitempty"`
	Stale        []EventSummary        `json:"stale,omitempty" yaml:"stale,omitempty"`
	Partial      []EventSummary        `json:"partialDistributions,omitempty" yaml:"partialDistributions,omitempty"`
	Duplicates   int                   `json:"duplicates" yaml:"duplicates"`
}

// KindGroup collects violations of one kind.
type KindGroup struct {
	Kind       events.ViolationKind `json:"kind" yaml:"kind"`
	Count      int                  `json:"count" yaml:"count"`
	Violations []events.Violation   `json:"events" yaml:"events"`
}

// EventSummary is the audit view of one event.
type EventSummary struct {
	ID            string        `json:"id" yaml:"id"`
	Title         string        `json:"title" yaml:"title"`
	Date          string        `json:"date" yaml:"date"`
	Status        events.Status `json:"status" yaml:"status"`
	Attempts      int           `json:"attempts,omitempty" yaml:"attempts,omitempty"`
	Detail        string        `json:"detail,omitempty" yaml:"detail,omitempty"`
	LastHeartbeat *time.Time    `json:"lastHeartbeat,omitempty" yaml:"lastHeartbeat,omitempty"`
}

// Clean reports whether the audit found nothing to act on.
func (r *Report) Clean() bool {
	return len(r.Violations) == 0 && len(r.Failed) == 0 && len(r.Stale) == 0 &&
		len(r.Partial) == 0 && r.Duplicates == 0
}

// ViolationCount totals the contract violations.
func (r *Report) ViolationCount() int {
	total := 0
	for _, g := range r.Violations {
		total += g.Count
	}
	return total
}

// Run reads the events and builds the report.
func Run(ctx context.Context, store Lister, opts Options) (*Report, error) {
	now := time.Now
	if opts.Now != nil {
		now = opts.Now
	}
	all, err := store.List(ctx, events.Filter{Statuses: opts.Statuses, Limit: opts.Limit})
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}

	r := &Report{
		GeneratedAt:  now().UTC(),
		Scanned:      len(all),
		StatusCounts: make(map[events.Status]int),
	}
	byKind := make(map[events.ViolationKind][]events.Violation)

	for _, e := range all {
		r.StatusCounts[e.Status]++
		for _, v := range events.CheckContract(e) {
			byKind[v.Kind] = append(byKind[v.Kind], v)
		}
		switch {
		case e.Status.IsFailed():
			r.Failed = append(r.Failed, summarize(e, strings.TrimSpace(e.ErrorMessage)))
		case e.Status.IsProcessing() && stale(e, now(), opts.StaleAfter):
			r.Stale = append(r.Stale, summarize(e, "heartbeat expired"))
		case e.Status == events.StatusDistributed:
			if failed := failedPlatforms(e); len(failed) > 0 {
				r.Partial = append(r.Partial, summarize(e, "failed on "+strings.Join(failed, ", ")))
			}
		}
	}

	kinds := make([]events.ViolationKind, 0, len(byKind))
	for kind := range byKind {
		kinds = append(kinds, kind)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	for _, kind := range kinds {
		list := byKind[kind]
		r.Violations = append(r.Violations, KindGroup{Kind: kind, Count: len(list), Violations: list})
	}

	r.Duplicates = dedup.Plan(all).Duplicates
	return r, nil
}

func summarize(e *events.Event, detail string) EventSummary {
	attempts := e.EnrichmentAttempts
	if e.Status.Reached(events.StatusContentReady) || e.Status == events.StatusPublishFailed || e.Status == events.StatusDistributionFailed {
		attempts = e.PublishAttempts
	}
	return EventSummary{
		ID:            e.ID,
		Title:         e.DisplayTitle(),
		Date:          e.Date,
		Status:        e.Status,
		Attempts:      attempts,
		Detail:        detail,
		LastHeartbeat: e.LastHeartbeat,
	}
}

func stale(e *events.Event, now time.Time, after time.Duration) bool {
	if after <= 0 {
		return false
	}
	if e.LastHeartbeat == nil {
		return now.Sub(e.StatusChangedAt) > after
	}
	return now.Sub(*e.LastHeartbeat) > after
}

func failedPlatforms(e *events.Event) []string {
	var out []string
	for _, d := range e.Distributions {
		if !d.OK {
			out = append(out, string(d.Platform))
		}
	}
	return out
}
