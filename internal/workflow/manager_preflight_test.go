package workflow

import (
	"context"
	"slices"
	"testing"

	"duendefinder/internal/events"
	"duendefinder/internal/stage"
	"duendefinder/internal/testsupport"
)

type healthOnlyStage struct {
	health stage.Health
}

func (healthOnlyStage) Prepare(context.Context, *events.Event) error { return nil }
func (healthOnlyStage) Execute(context.Context, *events.Event) error { return nil }
func (s healthOnlyStage) HealthCheck(context.Context) stage.Health   { return s.health }

func TestRunStartupChecksReportsUnreadyStages(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	mgr := NewManager(cfg, store, nil)
	mgr.ConfigureStages(StageSet{
		Enrichment:   healthOnlyStage{health: stage.Healthy(StageEnrichment)},
		Distribution: healthOnlyStage{health: stage.Unhealthy(StageDistribution, "no platforms enabled")},
	})

	failed := mgr.runStartupChecks(context.Background(), mgr.logger)
	if !slices.Contains(failed, StageDistribution) {
		t.Fatalf("expected distribution in failures, got %v", failed)
	}
	if slices.Contains(failed, StageEnrichment) {
		t.Fatalf("ready stage reported as failed: %v", failed)
	}
}
