package events

import (
	"fmt"
	"net/url"
	"strings"
)

// ViolationKind names a broken data-shape contract.
type ViolationKind string

const (
	ViolationMissingTitle          ViolationKind = "missing_title"
	ViolationMissingImage          ViolationKind = "missing_image"
	ViolationMissingGenerationDate ViolationKind = "missing_generation_date"
	ViolationMissingPostID         ViolationKind = "missing_wordpress_post_id"
	ViolationInvalidPostURL        ViolationKind = "invalid_blog_post_url"
	ViolationMissingDistribution   ViolationKind = "missing_distribution"
	ViolationUnknownStatus         ViolationKind = "unknown_status"
)

// Violation describes one contract failure on an event.
type Violation struct {
	EventID string        `json:"eventId" yaml:"eventId"`
	Status  Status        `json:"status" yaml:"status"`
	Kind    ViolationKind `json:"kind" yaml:"kind"`
	Detail  string        `json:"detail" yaml:"detail"`
}

// CheckContract returns every data-shape violation for the event's status.
func CheckContract(e *Event) []Violation {
	if e == nil {
		return nil
	}
	var out []Violation
	add := func(kind ViolationKind, detail string) {
		out = append(out, Violation{EventID: e.ID, Status: e.Status, Kind: kind, Detail: detail})
	}

	if _, ok := statusSet[e.Status]; !ok {
		add(ViolationUnknownStatus, fmt.Sprintf("status %q is not part of the lifecycle", e.Status))
		return out
	}

	if e.Status.Reached(StatusContentReady) {
		if strings.TrimSpace(e.Content.BlogPostTitle) == "" {
			add(ViolationMissingTitle, "blogPostTitle is empty")
		}
		if e.Content.ImageID <= 0 {
			add(ViolationMissingImage, "imageId is not set")
		}
		if e.Content.ContentGenerationDate == nil || e.Content.ContentGenerationDate.IsZero() {
			add(ViolationMissingGenerationDate, "contentGenerationDate is not set")
		}
	}

	if e.Status.Reached(StatusPublished) {
		if e.Publication.WordPressPostID <= 0 {
			add(ViolationMissingPostID, "wordpressPostId must be a positive integer")
		}
		if !ValidPostURL(e.Publication.BlogPostURL) {
			add(ViolationInvalidPostURL, fmt.Sprintf("blogPostUrl %q is not an absolute http(s) URL", e.Publication.BlogPostURL))
		}
	}

	if e.Status == StatusDistributed {
		if e.DistributedAt == nil || len(e.Distributions) == 0 {
			add(ViolationMissingDistribution, "distributed event has no distribution record")
		}
	}
	return out
}

// ValidPostURL reports whether raw is an absolute http or https URL with a host.
func ValidPostURL(raw string) bool {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return false
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		return false
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return false
	}
	return parsed.Host != ""
}
