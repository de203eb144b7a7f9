// Package notifications pushes pipeline milestones to an ntfy topic.
//
// NewService returns a no-op implementation when no topic is configured, so
// stage handlers can notify unconditionally. Per-event toggles from the
// [notifications] config section are applied here rather than at call sites.
package notifications
