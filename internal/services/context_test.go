package services_test

import (
	"context"
	"testing"

	"duendefinder/internal/services"
)

func TestContextHelpers(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithEventID(ctx, "65f0c0ffee")
	ctx = services.WithStage(ctx, "enrichment")
	ctx = services.WithLane(ctx, "enrichment")
	ctx = services.WithRequestID(ctx, "req-123")

	if id, ok := services.EventIDFromContext(ctx); !ok || id != "65f0c0ffee" {
		t.Fatalf("unexpected event id: %v %v", id, ok)
	}
	if stage, ok := services.StageFromContext(ctx); !ok || stage != "enrichment" {
		t.Fatalf("unexpected stage: %v %v", stage, ok)
	}
	if lane, ok := services.LaneFromContext(ctx); !ok || lane != "enrichment" {
		t.Fatalf("unexpected lane: %v %v", lane, ok)
	}
	if rid, ok := services.RequestIDFromContext(ctx); !ok || rid != "req-123" {
		t.Fatalf("unexpected request id: %v %v", rid, ok)
	}
}

func TestBlankValuesPreserveContext(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithStage(ctx, "")
	ctx = services.WithEventID(ctx, "")
	if _, ok := services.StageFromContext(ctx); ok {
		t.Fatal("expected no stage value")
	}
	if _, ok := services.EventIDFromContext(ctx); ok {
		t.Fatal("expected no event id value")
	}
}
