package events

import (
	"strings"
	"time"
)

// Platform identifies a social network the distribution stage posts to.
type Platform string

const (
	PlatformPinterest Platform = "pinterest"
	PlatformReddit    Platform = "reddit"
	PlatformX         Platform = "x"
)

// SocialCaptions holds per-platform copy generated during enrichment.
type SocialCaptions struct {
	Pinterest string `bson:"pinterest,omitempty" json:"pinterest,omitempty"`
	Reddit    string `bson:"reddit,omitempty" json:"reddit,omitempty"`
	X         string `bson:"x,omitempty" json:"x,omitempty"`
}

// For returns the caption for the platform.
func (c SocialCaptions) For(p Platform) string {
	switch p {
	case PlatformPinterest:
		return strings.TrimSpace(c.Pinterest)
	case PlatformReddit:
		return strings.TrimSpace(c.Reddit)
	case PlatformX:
		return strings.TrimSpace(c.X)
	default:
		return ""
	}
}

// ContentPackage is the LLM-generated material attached to an event.
type ContentPackage struct {
	BlogPostTitle         string         `bson:"blogPostTitle,omitempty" json:"blogPostTitle,omitempty"`
	BlogPostMarkdown      string         `bson:"blogPostMarkdown,omitempty" json:"blogPostMarkdown,omitempty"`
	NightPlan             string         `bson:"nightPlan,omitempty" json:"nightPlan,omitempty"`
	Excerpt               string         `bson:"excerpt,omitempty" json:"excerpt,omitempty"`
	SocialCaptions        SocialCaptions `bson:"socialCaptions,omitempty" json:"socialCaptions,omitempty"`
	Hashtags              []string       `bson:"hashtags,omitempty" json:"hashtags,omitempty"`
	ImageID               int64          `bson:"imageId,omitempty" json:"imageId,omitempty"`
	ImageURL              string         `bson:"imageUrl,omitempty" json:"imageUrl,omitempty"`
	SecondaryImageID      int64          `bson:"secondaryImageId,omitempty" json:"secondaryImageId,omitempty"`
	SecondaryImageURL     string         `bson:"secondaryImageUrl,omitempty" json:"secondaryImageUrl,omitempty"`
	ContentGenerationDate *time.Time     `bson:"contentGenerationDate,omitempty" json:"contentGenerationDate,omitempty"`
	ContentModel          string         `bson:"contentModel,omitempty" json:"contentModel,omitempty"`
}

// Publication records the WordPress post created for an event.
type Publication struct {
	WordPressPostID  int64      `bson:"wordpressPostId,omitempty" json:"wordpressPostId,omitempty"`
	BlogPostURL      string     `bson:"blogPostUrl,omitempty" json:"blogPostUrl,omitempty"`
	FeaturedImageID  int64      `bson:"featuredImageId,omitempty" json:"featuredImageId,omitempty"`
	FeaturedImageURL string     `bson:"featuredImageUrl,omitempty" json:"featuredImageUrl,omitempty"`
	PublishedAt      *time.Time `bson:"publishedAt,omitempty" json:"publishedAt,omitempty"`
}

// DistributionResult is the outcome of posting an event to one platform.
type DistributionResult struct {
	Platform    Platform  `bson:"platform" json:"platform"`
	OK          bool      `bson:"ok" json:"ok"`
	PostID      string    `bson:"postId,omitempty" json:"postId,omitempty"`
	URL         string    `bson:"url,omitempty" json:"url,omitempty"`
	Error       string    `bson:"error,omitempty" json:"error,omitempty"`
	AttemptedAt time.Time `bson:"attemptedAt" json:"attemptedAt"`
}

// Event is a flamenco event document moving through the content pipeline.
type Event struct {
	ID          string `bson:"-" json:"id"`
	Name        string `bson:"name" json:"name"`
	Artist      string `bson:"artist,omitempty" json:"artist,omitempty"`
	City        string `bson:"city,omitempty" json:"city,omitempty"`
	Venue       string `bson:"venue,omitempty" json:"venue,omitempty"`
	Date        string `bson:"date" json:"date"`
	Time        string `bson:"time,omitempty" json:"time,omitempty"`
	SourceURL   string `bson:"sourceUrl,omitempty" json:"sourceUrl,omitempty"`
	Description string `bson:"description,omitempty" json:"description,omitempty"`

	Status Status `bson:"pipelineStatus" json:"pipelineStatus"`

	Content     ContentPackage `bson:",inline" json:"content"`
	Publication Publication    `bson:",inline" json:"publication"`

	Distributions []DistributionResult `bson:"distributions,omitempty" json:"distributions,omitempty"`
	DistributedAt *time.Time           `bson:"distributedAt,omitempty" json:"distributedAt,omitempty"`

	EnrichmentAttempts int    `bson:"enrichmentAttempts,omitempty" json:"enrichmentAttempts,omitempty"`
	PublishAttempts    int    `bson:"publishAttempts,omitempty" json:"publishAttempts,omitempty"`
	ErrorMessage       string `bson:"errorMessage,omitempty" json:"errorMessage,omitempty"`

	LastHeartbeat   *time.Time `bson:"lastHeartbeat,omitempty" json:"lastHeartbeat,omitempty"`
	StatusChangedAt time.Time  `bson:"statusChangedAt" json:"statusChangedAt"`
	CreatedAt       time.Time  `bson:"createdAt" json:"createdAt"`
	UpdatedAt       time.Time  `bson:"updatedAt" json:"updatedAt"`
}

// DisplayTitle returns the best human label for the event.
func (e *Event) DisplayTitle() string {
	if e == nil {
		return ""
	}
	if title := strings.TrimSpace(e.Content.BlogPostTitle); title != "" {
		return title
	}
	name := strings.TrimSpace(e.Name)
	artist := strings.TrimSpace(e.Artist)
	switch {
	case name != "" && artist != "" && !strings.Contains(strings.ToLower(name), strings.ToLower(artist)):
		return name + " – " + artist
	case name != "":
		return name
	default:
		return artist
	}
}

// SetFailed records a stage failure.
func (e *Event) SetFailed(status Status, message string) {
	e.Status = status
	e.ErrorMessage = strings.TrimSpace(message)
	e.LastHeartbeat = nil
}

// SnapshotStatus captures the fields a status write touches and returns a
// func that puts them back, for stores to call when the write is rejected.
func SnapshotStatus(e *Event) func() {
	status, changed, updated := e.Status, e.StatusChangedAt, e.UpdatedAt
	var heartbeat *time.Time
	if e.LastHeartbeat != nil {
		hb := *e.LastHeartbeat
		heartbeat = &hb
	}
	return func() {
		e.Status = status
		e.StatusChangedAt = changed
		e.UpdatedAt = updated
		e.LastHeartbeat = heartbeat
	}
}

// DistributionFor returns the last recorded outcome for the platform.
func (e *Event) DistributionFor(p Platform) (DistributionResult, bool) {
	for i := len(e.Distributions) - 1; i >= 0; i-- {
		if e.Distributions[i].Platform == p {
			return e.Distributions[i], true
		}
	}
	return DistributionResult{}, false
}

// RecordDistribution replaces any earlier outcome for the same platform.
func (e *Event) RecordDistribution(result DistributionResult) {
	for i := range e.Distributions {
		if e.Distributions[i].Platform == result.Platform {
			e.Distributions[i] = result
			return
		}
	}
	e.Distributions = append(e.Distributions, result)
}
