package stage

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"duendefinder/internal/events"
	"duendefinder/internal/services"
)

func TestRequireFieldsListsMissing(t *testing.T) {
	err := RequireFields("enrichment", map[string]string{"name": "", "date": " ", "city": "Jerez"})
	if err == nil {
		t.Fatal("expected validation error")
	}
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
	if !strings.Contains(err.Error(), "missing date, name") {
		t.Fatalf("unexpected message: %v", err)
	}
	if services.Retryable(err) {
		t.Fatal("validation errors must not be retryable")
	}
}

func TestRequireFieldsPasses(t *testing.T) {
	if err := RequireFields("publication", map[string]string{"title": "x"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestRequireEvent(t *testing.T) {
	if err := RequireEvent("distribution", nil); err == nil {
		t.Fatal("expected error for nil event")
	}
	if err := RequireEvent("distribution", &events.Event{ID: "abc"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestSleepHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	start := time.Now()
	if err := Sleep(ctx, time.Minute); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if time.Since(start) > time.Second {
		t.Fatal("sleep did not return promptly")
	}
	if err := Sleep(context.Background(), 0); err != nil {
		t.Fatalf("zero sleep: %v", err)
	}
}

func TestHealthString(t *testing.T) {
	cases := []struct {
		health Health
		want   string
	}{
		{Healthy("enrichment"), "enrichment: ready"},
		{ReadyWith("distribution", "pinterest, x"), "distribution: ready (pinterest, x)"},
		{Unhealthy("publication", "wordpress not configured"), "publication: not ready (wordpress not configured)"},
	}
	for _, tc := range cases {
		if got := tc.health.String(); got != tc.want {
			t.Errorf("String() = %q, want %q", got, tc.want)
		}
	}
}
