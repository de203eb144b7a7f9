package events

import (
	"errors"
	"testing"
)

func TestParseStatus(t *testing.T) {
	if got, ok := ParseStatus("  Content_Ready "); !ok || got != StatusContentReady {
		t.Fatalf("ParseStatus returned %q %v", got, ok)
	}
	if _, ok := ParseStatus("enriched"); ok {
		t.Fatal("legacy value should not parse as a unified status")
	}
}

func TestTransitions(t *testing.T) {
	tests := []struct {
		from, to Status
		allowed  bool
	}{
		{StatusPending, StatusEnriching, true},
		{StatusEnriching, StatusContentReady, true},
		{StatusEnriching, StatusPending, true},
		{StatusEnriching, StatusEnrichmentFailed, true},
		{StatusContentReady, StatusPublishing, true},
		{StatusPublishing, StatusContentReady, true},
		{StatusPublishing, StatusPublished, true},
		{StatusPublished, StatusDistributing, true},
		{StatusDistributing, StatusDistributed, true},
		{StatusPublishFailed, StatusContentReady, true},
		{StatusPending, StatusPublished, false},
		{StatusContentReady, StatusPublished, false},
		{StatusDistributed, StatusPending, false},
		{StatusPublished, StatusPublishing, false},
	}
	for _, tc := range tests {
		if got := CanTransition(tc.from, tc.to); got != tc.allowed {
			t.Fatalf("CanTransition(%s, %s) = %v, want %v", tc.from, tc.to, got, tc.allowed)
		}
		err := ValidateTransition(tc.from, tc.to)
		if tc.allowed && err != nil {
			t.Fatalf("ValidateTransition(%s, %s) returned %v", tc.from, tc.to, err)
		}
		if !tc.allowed && !errors.Is(err, ErrInvalidTransition) {
			t.Fatalf("expected ErrInvalidTransition for %s -> %s, got %v", tc.from, tc.to, err)
		}
	}
}

func TestRollbackAndRetryTargetsAreValidTransitions(t *testing.T) {
	for _, status := range ProcessingStatuses() {
		to, ok := status.Rollback()
		if !ok {
			t.Fatalf("processing status %s has no rollback", status)
		}
		if !CanTransition(status, to) {
			t.Fatalf("rollback %s -> %s is not an allowed transition", status, to)
		}
	}
	for _, status := range FailedStatuses() {
		to, ok := status.RetryTarget()
		if !ok {
			t.Fatalf("failed status %s has no retry target", status)
		}
		if !CanTransition(status, to) {
			t.Fatalf("retry %s -> %s is not an allowed transition", status, to)
		}
	}
}

func TestReached(t *testing.T) {
	if !StatusDistributed.Reached(StatusContentReady) {
		t.Fatal("distributed should have reached content_ready")
	}
	if StatusPending.Reached(StatusContentReady) {
		t.Fatal("pending should not have reached content_ready")
	}
	if StatusPublishFailed.Reached(StatusContentReady) {
		t.Fatal("failed statuses never count as reached")
	}
}

func TestStatusFromLegacy(t *testing.T) {
	tests := []struct {
		name   string
		legacy LegacyFields
		want   Status
	}{
		{"empty", LegacyFields{}, StatusPending},
		{"pending enrichment", LegacyFields{ContentStatus: "pending_enrichment"}, StatusPending},
		{"content ready", LegacyFields{ContentStatus: "content_ready"}, StatusContentReady},
		{"enriched", LegacyFields{Status: "enriched"}, StatusContentReady},
		{"stale lock", LegacyFields{ContentStatus: "content_ready", Status: "publishing"}, StatusContentReady},
		{"published status", LegacyFields{Status: "published"}, StatusPublished},
		{"post id wins over content status", LegacyFields{ContentStatus: "pending", WordPressPostID: 12}, StatusPublished},
		{"distributed", LegacyFields{Status: "published", WordPressPostID: 12, IsDistributed: true}, StatusDistributed},
		{"failed", LegacyFields{ContentStatus: "enrichment_failed"}, StatusEnrichmentFailed},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := StatusFromLegacy(tc.legacy); got != tc.want {
				t.Fatalf("StatusFromLegacy(%+v) = %s, want %s", tc.legacy, got, tc.want)
			}
		})
	}
}
