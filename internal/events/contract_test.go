package events

import (
	"testing"
	"time"
)

func kinds(violations []Violation) map[ViolationKind]bool {
	out := make(map[ViolationKind]bool, len(violations))
	for _, v := range violations {
		out[v.Kind] = true
	}
	return out
}

func TestCheckContractContentReady(t *testing.T) {
	e := &Event{ID: "1", Status: StatusContentReady}
	got := kinds(CheckContract(e))
	for _, want := range []ViolationKind{ViolationMissingTitle, ViolationMissingImage, ViolationMissingGenerationDate} {
		if !got[want] {
			t.Fatalf("expected %s violation, got %v", want, got)
		}
	}

	now := time.Now()
	e.Content.BlogPostTitle = "Noche de bulerías"
	e.Content.ImageID = 42
	e.Content.ContentGenerationDate = &now
	if v := CheckContract(e); len(v) != 0 {
		t.Fatalf("expected no violations, got %+v", v)
	}
}

func TestCheckContractPublished(t *testing.T) {
	now := time.Now()
	e := &Event{
		ID:     "2",
		Status: StatusPublished,
		Content: ContentPackage{
			BlogPostTitle:         "Title",
			ImageID:               7,
			ContentGenerationDate: &now,
		},
		Publication: Publication{WordPressPostID: 0, BlogPostURL: "/relative/path"},
	}
	got := kinds(CheckContract(e))
	if !got[ViolationMissingPostID] || !got[ViolationInvalidPostURL] {
		t.Fatalf("expected post id and url violations, got %v", got)
	}

	e.Publication.WordPressPostID = 1001
	e.Publication.BlogPostURL = "https://blog.example.com/2024/noche"
	if v := CheckContract(e); len(v) != 0 {
		t.Fatalf("expected no violations, got %+v", v)
	}
}

func TestCheckContractSkipsPendingAndFailed(t *testing.T) {
	for _, status := range []Status{StatusPending, StatusEnriching, StatusEnrichmentFailed, StatusPublishFailed} {
		if v := CheckContract(&Event{ID: "x", Status: status}); len(v) != 0 {
			t.Fatalf("status %s should carry no content contract, got %+v", status, v)
		}
	}
}

func TestCheckContractUnknownStatus(t *testing.T) {
	got := kinds(CheckContract(&Event{ID: "x", Status: "enriched"}))
	if !got[ViolationUnknownStatus] {
		t.Fatalf("expected unknown status violation, got %v", got)
	}
}

func TestValidPostURL(t *testing.T) {
	tests := map[string]bool{
		"https://duendefinder.com/evento": true,
		"http://localhost:8080/?p=12":     true,
		"":                                false,
		"ftp://example.com/file":          false,
		"duendefinder.com/evento":         false,
		"https://":                        false,
	}
	for raw, want := range tests {
		if got := ValidPostURL(raw); got != want {
			t.Fatalf("ValidPostURL(%q) = %v, want %v", raw, got, want)
		}
	}
}

func TestRecordDistributionReplacesPlatform(t *testing.T) {
	e := &Event{}
	e.RecordDistribution(DistributionResult{Platform: PlatformX, OK: false, Error: "rate limited"})
	e.RecordDistribution(DistributionResult{Platform: PlatformReddit, OK: true})
	e.RecordDistribution(DistributionResult{Platform: PlatformX, OK: true, PostID: "99"})
	if len(e.Distributions) != 2 {
		t.Fatalf("expected two records, got %d", len(e.Distributions))
	}
	got, ok := e.DistributionFor(PlatformX)
	if !ok || !got.OK || got.PostID != "99" {
		t.Fatalf("unexpected x record: %+v", got)
	}
}
