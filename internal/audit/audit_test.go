package audit

import (
	"context"
	"errors"
	"testing"
	"time"

	"duendefinder/internal/events"
)

type fakeLister struct {
	events []*events.Event
	err    error
	filter events.Filter
}

func (f *fakeLister) List(_ context.Context, filter events.Filter) ([]*events.Event, error) {
	f.filter = filter
	return f.events, f.err
}

var now = time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

func goodContent(e *events.Event) {
	generated := now.Add(-48 * time.Hour)
	e.Content.BlogPostTitle = "Title"
	e.Content.ImageID = 4
	e.Content.ContentGenerationDate = &generated
}

func TestRunGroupsViolationsByKind(t *testing.T) {
	ready := &events.Event{ID: "a", Name: "Uno", Date: "2025-03-14", Status: events.StatusContentReady}
	published := &events.Event{ID: "b", Name: "Dos", Date: "2025-03-15", Status: events.StatusPublished}
	goodContent(published)
	published.Publication.WordPressPostID = 3
	published.Publication.BlogPostURL = "not-a-url"
	missingTitle := &events.Event{ID: "c", Name: "Tres", Date: "2025-03-16", Status: events.StatusContentReady}
	goodContent(missingTitle)
	missingTitle.Content.BlogPostTitle = ""

	r, err := Run(context.Background(), &fakeLister{events: []*events.Event{ready, published, missingTitle}}, Options{Now: func() time.Time { return now }})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if r.Scanned != 3 || r.StatusCounts[events.StatusContentReady] != 2 {
		t.Fatalf("unexpected counts %+v", r.StatusCounts)
	}

	counts := map[events.ViolationKind]int{}
	for _, g := range r.Violations {
		counts[g.Kind] = g.Count
	}
	if counts[events.ViolationMissingTitle] != 2 {
		t.Fatalf("expected two missing titles, got %v", counts)
	}
	if counts[events.ViolationInvalidPostURL] != 1 || counts[events.ViolationMissingImage] != 1 {
		t.Fatalf("unexpected violation counts %v", counts)
	}
	for i := 1; i < len(r.Violations); i++ {
		if r.Violations[i-1].Kind > r.Violations[i].Kind {
			t.Fatal("violation groups should be sorted by kind")
		}
	}
	if r.Clean() {
		t.Fatal("report with violations is not clean")
	}
}

func TestRunFindsFailedStaleAndPartial(t *testing.T) {
	old := now.Add(-2 * time.Hour)
	fresh := now.Add(-time.Minute)
	distributedAt := now.Add(-time.Hour)

	failed := &events.Event{ID: "f", Name: "Fallo", Status: events.StatusPublishFailed, PublishAttempts: 3, ErrorMessage: "wordpress: status 500"}
	stuck := &events.Event{ID: "s", Name: "Atascado", Status: events.StatusEnriching, LastHeartbeat: &old}
	live := &events.Event{ID: "l", Name: "Vivo", Status: events.StatusEnriching, LastHeartbeat: &fresh}
	partial := &events.Event{ID: "p", Name: "Parcial", Status: events.StatusDistributed, DistributedAt: &distributedAt}
	goodContent(partial)
	partial.Publication.WordPressPostID = 9
	partial.Publication.BlogPostURL = "https://blog.test/p/"
	partial.Distributions = []events.DistributionResult{
		{Platform: events.PlatformPinterest, OK: true},
		{Platform: events.PlatformReddit, OK: false, Error: "status 403"},
	}

	r, err := Run(context.Background(), &fakeLister{events: []*events.Event{failed, stuck, live, partial}}, Options{
		StaleAfter: 5 * time.Minute,
		Now:        func() time.Time { return now },
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(r.Failed) != 1 || r.Failed[0].Attempts != 3 || r.Failed[0].Detail != "wordpress: status 500" {
		t.Fatalf("unexpected failed list %+v", r.Failed)
	}
	if len(r.Stale) != 1 || r.Stale[0].ID != "s" {
		t.Fatalf("unexpected stale list %+v", r.Stale)
	}
	if len(r.Partial) != 1 || r.Partial[0].Detail != "failed on reddit" {
		t.Fatalf("unexpected partial list %+v", r.Partial)
	}
	if r.ViolationCount() != 0 {
		t.Fatalf("expected no contract violations, got %+v", r.Violations)
	}
}

func TestRunCountsDuplicates(t *testing.T) {
	a := &events.Event{ID: "a", Name: "Tablao", Artist: "Farruquito", Date: "2025-05-01", Status: events.StatusPending}
	b := &events.Event{ID: "b", Name: "TABLAO", Artist: "Farruquito", Date: "2025-05-01", Status: events.StatusPending}
	r, err := Run(context.Background(), &fakeLister{events: []*events.Event{a, b}}, Options{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if r.Duplicates != 1 {
		t.Fatalf("expected one duplicate, got %d", r.Duplicates)
	}
}

func TestRunPassesFilterAndErrors(t *testing.T) {
	lister := &fakeLister{err: errors.New("connection refused")}
	_, err := Run(context.Background(), lister, Options{Statuses: []events.Status{events.StatusPublished}, Limit: 5})
	if err == nil {
		t.Fatal("expected error")
	}
	if lister.filter.Limit != 5 || len(lister.filter.Statuses) != 1 {
		t.Fatalf("filter not forwarded: %+v", lister.filter)
	}
}

func TestEmptyReportIsClean(t *testing.T) {
	r, err := Run(context.Background(), &fakeLister{}, Options{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !r.Clean() {
		t.Fatalf("empty store should audit clean: %+v", r)
	}
}
