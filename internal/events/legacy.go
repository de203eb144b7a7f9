package events

import (
	"context"
	"strings"
)

// Legacy lifecycle values written by the pre-unification scripts.
const (
	legacyContentPending           = "pending"
	legacyContentPendingEnrichment = "pending_enrichment"
	legacyContentReady             = "content_ready"
	legacyContentFailed            = "enrichment_failed"
	legacyStatusEnriched           = "enriched"
	legacyStatusPublishing         = "publishing"
	legacyStatusPublished          = "published"
)

// LegacyFields are the overlapping lifecycle fields of older documents.
type LegacyFields struct {
	ContentStatus   string `bson:"contentStatus,omitempty"`
	Status          string `bson:"status,omitempty"`
	WordPressPostID int64  `bson:"wordpressPostId,omitempty"`
	IsDistributed   bool   `bson:"isDistributed,omitempty"`
}

// StatusFromLegacy derives the unified status from the legacy contentStatus,
// status and isDistributed fields. The most advanced signal wins; a stale
// publishing lock is released back to content_ready.
func StatusFromLegacy(legacy LegacyFields) Status {
	contentStatus := strings.ToLower(strings.TrimSpace(legacy.ContentStatus))
	status := strings.ToLower(strings.TrimSpace(legacy.Status))

	switch {
	case legacy.IsDistributed:
		return StatusDistributed
	case legacy.WordPressPostID > 0, status == legacyStatusPublished:
		return StatusPublished
	case status == legacyStatusPublishing:
		return StatusContentReady
	case status == legacyStatusEnriched, contentStatus == legacyContentReady:
		return StatusContentReady
	case contentStatus == legacyContentFailed:
		return StatusEnrichmentFailed
	default:
		return StatusPending
	}
}

// IsLegacyPending reports whether a legacy contentStatus value meant "not enriched yet".
func IsLegacyPending(contentStatus string) bool {
	switch strings.ToLower(strings.TrimSpace(contentStatus)) {
	case "", legacyContentPending, legacyContentPendingEnrichment:
		return true
	default:
		return false
	}
}

// MigrationReport summarizes a legacy status migration run.
type MigrationReport struct {
	Scanned  int            `json:"scanned" yaml:"scanned"`
	Migrated int            `json:"migrated" yaml:"migrated"`
	ByStatus map[Status]int `json:"byStatus" yaml:"byStatus"`
	Applied  bool           `json:"applied" yaml:"applied"`
}

// LegacyMigrator is implemented by stores that may hold documents written
// before the unified status existed.
type LegacyMigrator interface {
	MigrateLegacy(ctx context.Context, apply bool) (MigrationReport, error)
}
