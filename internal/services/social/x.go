package social

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"duendefinder/internal/events"
)

// X counts every URL as 23 characters regardless of length.
const (
	tweetLimit     = 280
	tweetURLLength = 23
)

// XConfig contains v2 API credentials.
type XConfig struct {
	AccessToken    string
	BaseURL        string
	TimeoutSeconds int
}

// X posts tweets with a user-context bearer token.
type X struct {
	cfg    XConfig
	client *http.Client
}

// NewX returns an X poster.
func NewX(cfg XConfig, client *http.Client) *X {
	if client == nil {
		client = httpClientFor(cfg.TimeoutSeconds)
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &X{cfg: cfg, client: client}
}

func (x *X) Platform() events.Platform { return events.PlatformX }

// ComposeTweet fits text, hashtags and link into one tweet. Hashtags are
// dropped before the text is shortened.
func ComposeTweet(msg Message) string {
	text := strings.TrimSpace(msg.Text)
	if text == "" {
		text = strings.TrimSpace(msg.Title)
	}
	tags := HashtagLine(msg.Hashtags)
	budget := tweetLimit
	if msg.Link != "" {
		budget -= tweetURLLength + 1
	}

	body := text
	if tags != "" && len([]rune(text))+1+len([]rune(tags)) <= budget {
		body = text + " " + tags
	}
	body = truncate(body, budget)
	if msg.Link != "" {
		body += " " + msg.Link
	}
	return body
}

// Post publishes a tweet linking to the blog post.
func (x *X) Post(ctx context.Context, msg Message) (Result, error) {
	if x.cfg.AccessToken == "" {
		return Result{}, errors.New("x: access token required")
	}
	header := http.Header{}
	header.Set("Authorization", "Bearer "+x.cfg.AccessToken)

	var created struct {
		Data struct {
			ID   string `json:"id"`
			Text string `json:"text"`
		} `json:"data"`
	}
	payload := map[string]string{"text": ComposeTweet(msg)}
	if err := postJSON(ctx, x.client, x.Platform(), x.cfg.BaseURL+"/2/tweets", header, payload, &created); err != nil {
		return Result{}, err
	}
	if created.Data.ID == "" {
		return Result{}, errors.New("x: response has no tweet id")
	}
	return Result{PostID: created.Data.ID, URL: "https://x.com/i/web/status/" + created.Data.ID}, nil
}
