package social

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"duendefinder/internal/events"
)

const redditTitleLimit = 300

// RedditConfig contains script-app OAuth credentials.
type RedditConfig struct {
	ClientID       string
	ClientSecret   string
	Username       string
	Password       string
	Subreddit      string
	UserAgent      string
	AuthURL        string
	BaseURL        string
	TimeoutSeconds int
}

// Reddit submits link posts with a password-grant token.
type Reddit struct {
	cfg    RedditConfig
	client *http.Client
	now    func() time.Time

	mu      sync.Mutex
	token   string
	expires time.Time
}

// NewReddit returns a Reddit poster.
func NewReddit(cfg RedditConfig, client *http.Client) *Reddit {
	if client == nil {
		client = httpClientFor(cfg.TimeoutSeconds)
	}
	cfg.AuthURL = strings.TrimRight(cfg.AuthURL, "/")
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &Reddit{cfg: cfg, client: client, now: time.Now}
}

func (r *Reddit) Platform() events.Platform { return events.PlatformReddit }

// accessToken returns a cached token, refreshing it a minute before expiry.
func (r *Reddit) accessToken(ctx context.Context) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.token != "" && r.now().Before(r.expires) {
		return r.token, nil
	}

	form := url.Values{}
	form.Set("grant_type", "password")
	form.Set("username", r.cfg.Username)
	form.Set("password", r.cfg.Password)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.cfg.AuthURL+"/api/v1/access_token", strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("reddit: new token request: %w", err)
	}
	req.SetBasicAuth(r.cfg.ClientID, r.cfg.ClientSecret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", r.cfg.UserAgent)

	var token struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
		Error       string `json:"error"`
	}
	if err := send(r.client, r.Platform(), req, &token); err != nil {
		return "", fmt.Errorf("reddit token: %w", err)
	}
	if token.AccessToken == "" {
		return "", fmt.Errorf("reddit token: %s", firstNonEmpty(token.Error, "empty access token"))
	}
	lifetime := time.Duration(token.ExpiresIn) * time.Second
	if lifetime <= 0 {
		lifetime = time.Hour
	}
	r.token = token.AccessToken
	r.expires = r.now().Add(lifetime - time.Minute)
	return r.token, nil
}

// Post submits a link post to the configured subreddit.
func (r *Reddit) Post(ctx context.Context, msg Message) (Result, error) {
	if r.cfg.ClientID == "" || r.cfg.Username == "" || r.cfg.Subreddit == "" {
		return Result{}, errors.New("reddit: client id, username and subreddit required")
	}
	token, err := r.accessToken(ctx)
	if err != nil {
		return Result{}, err
	}

	title := msg.Text
	if title == "" {
		title = msg.Title
	}
	form := url.Values{}
	form.Set("sr", r.cfg.Subreddit)
	form.Set("kind", "link")
	form.Set("title", truncate(title, redditTitleLimit))
	form.Set("url", msg.Link)
	form.Set("resubmit", "true")
	form.Set("api_type", "json")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.cfg.BaseURL+"/api/submit", strings.NewReader(form.Encode()))
	if err != nil {
		return Result{}, fmt.Errorf("reddit: new submit request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", r.cfg.UserAgent)

	var submitted struct {
		JSON struct {
			Errors [][]any `json:"errors"`
			Data   struct {
				ID   string `json:"id"`
				Name string `json:"name"`
				URL  string `json:"url"`
			} `json:"data"`
		} `json:"json"`
	}
	if err := send(r.client, r.Platform(), req, &submitted); err != nil {
		return Result{}, err
	}
	if len(submitted.JSON.Errors) > 0 {
		detail, _ := json.Marshal(submitted.JSON.Errors)
		return Result{}, fmt.Errorf("reddit submit: %s", detail)
	}
	if submitted.JSON.Data.ID == "" {
		return Result{}, errors.New("reddit submit: response has no post id")
	}
	return Result{PostID: firstNonEmpty(submitted.JSON.Data.Name, submitted.JSON.Data.ID), URL: submitted.JSON.Data.URL}, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
