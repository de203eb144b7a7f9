package social

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"duendefinder/internal/events"
)

const (
	pinTitleLimit       = 100
	pinDescriptionLimit = 500
)

// PinterestConfig contains v5 API credentials.
type PinterestConfig struct {
	AccessToken    string
	BoardID        string
	BaseURL        string
	TimeoutSeconds int
}

// Pinterest creates pins linking to the blog post.
type Pinterest struct {
	cfg    PinterestConfig
	client *http.Client
}

// NewPinterest returns a Pinterest poster.
func NewPinterest(cfg PinterestConfig, client *http.Client) *Pinterest {
	if client == nil {
		client = httpClientFor(cfg.TimeoutSeconds)
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &Pinterest{cfg: cfg, client: client}
}

func (p *Pinterest) Platform() events.Platform { return events.PlatformPinterest }

type pinRequest struct {
	BoardID     string          `json:"board_id"`
	Title       string          `json:"title,omitempty"`
	Description string          `json:"description,omitempty"`
	Link        string          `json:"link"`
	AltText     string          `json:"alt_text,omitempty"`
	MediaSource *pinMediaSource `json:"media_source"`
}

type pinMediaSource struct {
	SourceType string `json:"source_type"`
	URL        string `json:"url"`
}

// Post creates a pin from the message image.
func (p *Pinterest) Post(ctx context.Context, msg Message) (Result, error) {
	if p.cfg.AccessToken == "" || p.cfg.BoardID == "" {
		return Result{}, errors.New("pinterest: access token and board id required")
	}
	if strings.TrimSpace(msg.ImageURL) == "" {
		return Result{}, errors.New("pinterest: image url required")
	}
	description := strings.TrimSpace(msg.Text)
	if tags := HashtagLine(msg.Hashtags); tags != "" {
		description = strings.TrimSpace(description + "\n\n" + tags)
	}
	payload := pinRequest{
		BoardID:     p.cfg.BoardID,
		Title:       truncate(msg.Title, pinTitleLimit),
		Description: truncate(description, pinDescriptionLimit),
		Link:        msg.Link,
		AltText:     truncate(msg.Title, pinDescriptionLimit),
		MediaSource: &pinMediaSource{SourceType: "image_url", URL: msg.ImageURL},
	}
	header := http.Header{}
	header.Set("Authorization", "Bearer "+p.cfg.AccessToken)

	var created struct {
		ID string `json:"id"`
	}
	if err := postJSON(ctx, p.client, p.Platform(), p.cfg.BaseURL+"/v5/pins", header, payload, &created); err != nil {
		return Result{}, err
	}
	if created.ID == "" {
		return Result{}, errors.New("pinterest: response has no pin id")
	}
	return Result{PostID: created.ID, URL: "https://www.pinterest.com/pin/" + created.ID + "/"}, nil
}
