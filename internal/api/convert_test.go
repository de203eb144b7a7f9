package api

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"duendefinder/internal/events"
)

func TestFromEventPrefersFeaturedImage(t *testing.T) {
	hb := time.Date(2026, 10, 1, 9, 30, 0, 0, time.UTC)
	e := &events.Event{
		ID:            "evt-1",
		Name:          "Bienal",
		Status:        events.StatusDistributing,
		Content:       events.ContentPackage{BlogPostTitle: "La Bienal", ImageURL: "https://img/raw.png"},
		Publication:   events.Publication{FeaturedImageURL: "https://site/wp-content/hero.png", BlogPostURL: "https://site/la-bienal"},
		LastHeartbeat: &hb,
		Distributions: []events.DistributionResult{{Platform: events.PlatformReddit, OK: false, Error: "rate limited"}},
	}

	dto := FromEvent(e)
	assert.Equal(t, "La Bienal", dto.Title)
	assert.Equal(t, "https://site/wp-content/hero.png", dto.ImageURL)
	assert.Equal(t, "2026-10-01T09:30:00.000Z", dto.LastHeartbeat)
	assert.Equal(t, "distributing", dto.Status)
	if assert.Len(t, dto.Distributions, 1) {
		assert.Equal(t, "reddit", dto.Distributions[0].Platform)
		assert.Empty(t, dto.Distributions[0].AttemptedAt)
	}
}

func TestMergeEventStatsIncludesEveryStatus(t *testing.T) {
	out := MergeEventStats(map[events.Status]int{events.StatusPublished: 4})
	assert.Len(t, out, len(events.AllStatuses()))
	assert.Equal(t, 4, out["published"])
	assert.Zero(t, out["pending"])
}
