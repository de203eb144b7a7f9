package main

import (
	"fmt"
	"log/slog"

	"duendefinder/internal/config"
	"duendefinder/internal/distribution"
	"duendefinder/internal/enrichment"
	"duendefinder/internal/notifications"
	"duendefinder/internal/publication"
	"duendefinder/internal/workflow"
)

// buildStageSet wires the named stages, or all three when names is empty.
func buildStageSet(cfg *config.Config, logger *slog.Logger, notifier notifications.Service, names ...string) (workflow.StageSet, error) {
	want := map[string]bool{}
	for _, name := range names {
		want[name] = true
	}
	all := len(want) == 0

	var set workflow.StageSet
	if all || want[workflow.StageEnrichment] {
		enricher, err := enrichment.New(cfg, logger)
		if err != nil {
			return set, fmt.Errorf("enrichment stage: %w", err)
		}
		set.Enrichment = enricher
	}
	if all || want[workflow.StagePublication] {
		publisher, err := publication.New(cfg, logger, notifier)
		if err != nil {
			return set, fmt.Errorf("publication stage: %w", err)
		}
		set.Publication = publisher
	}
	if all || want[workflow.StageDistribution] {
		set.Distribution = distribution.New(cfg, logger, notifier)
	}
	return set, nil
}
