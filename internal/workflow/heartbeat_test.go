package workflow_test

import (
	"context"
	"testing"
	"time"

	"duendefinder/internal/events"
	"duendefinder/internal/logging"
	"duendefinder/internal/testsupport"
	"duendefinder/internal/workflow"
)

func TestReclaimStaleReturnsClaimsToStartStatus(t *testing.T) {
	_, store, _ := setup(t)
	ev := testsupport.NewEvent(t, store, "Noche de Cante", "Estrella Morente", "2025-03-14")

	claimed, err := store.Claim(context.Background(), events.StatusPending, events.StatusEnriching)
	if err != nil || claimed == nil || claimed.ID != ev.ID {
		t.Fatalf("Claim: %v %+v", err, claimed)
	}
	time.Sleep(10 * time.Millisecond)

	monitor := workflow.NewHeartbeatMonitor(store, logging.NewNop(), time.Second, time.Millisecond)
	n, err := monitor.ReclaimStale(context.Background(), logging.NewNop(), events.StatusEnriching)
	if err != nil {
		t.Fatalf("ReclaimStale: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected one reclaimed event, got %d", n)
	}
	if got := getEvent(t, store, ev.ID); got.Status != events.StatusPending {
		t.Fatalf("status = %s, want pending", got.Status)
	}
}

func TestReclaimStaleKeepsFreshClaims(t *testing.T) {
	_, store, _ := setup(t)
	testsupport.NewEvent(t, store, "Noche de Cante", "Estrella Morente", "2025-03-14")
	if _, err := store.Claim(context.Background(), events.StatusPending, events.StatusEnriching); err != nil {
		t.Fatalf("Claim: %v", err)
	}

	monitor := workflow.NewHeartbeatMonitor(store, logging.NewNop(), time.Second, time.Hour)
	n, err := monitor.ReclaimStale(context.Background(), logging.NewNop(), events.StatusEnriching)
	if err != nil {
		t.Fatalf("ReclaimStale: %v", err)
	}
	if n != 0 {
		t.Fatalf("fresh claim reclaimed: %d", n)
	}
}
