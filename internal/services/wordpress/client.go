// Package wordpress talks to the WordPress REST API using application
// passwords.
package wordpress

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"

	"duendefinder/internal/services"
)

const defaultTimeout = 30 * time.Second

// Config contains site credentials.
type Config struct {
	URL            string
	Username       string
	AppPassword    string
	TimeoutSeconds int
}

// Client is a minimal WordPress REST client.
type Client struct {
	baseURL    string
	username   string
	password   string
	httpClient *http.Client
}

// New returns a client for the site at cfg.URL.
func New(cfg Config, httpClient *http.Client) *Client {
	if httpClient == nil {
		timeout := defaultTimeout
		if cfg.TimeoutSeconds > 0 {
			timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	return &Client{
		baseURL:    strings.TrimRight(strings.TrimSpace(cfg.URL), "/"),
		username:   strings.TrimSpace(cfg.Username),
		password:   strings.TrimSpace(cfg.AppPassword),
		httpClient: httpClient,
	}
}

// Media is an uploaded attachment.
type Media struct {
	ID        int64  `json:"id"`
	SourceURL string `json:"source_url"`
	Link      string `json:"link"`
}

// Post describes a post to create.
type Post struct {
	Title         string  `json:"title"`
	Content       string  `json:"content"`
	Excerpt       string  `json:"excerpt,omitempty"`
	Slug          string  `json:"slug,omitempty"`
	Status        string  `json:"status"`
	FeaturedMedia int64   `json:"featured_media,omitempty"`
	Categories    []int64 `json:"categories,omitempty"`
	Tags          []int64 `json:"tags,omitempty"`
}

// PostResult is the created post.
type PostResult struct {
	ID     int64  `json:"id"`
	Link   string `json:"link"`
	Status string `json:"status"`
}

// User is the authenticated account.
type User struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug"`
}

// StatusError reports a non-2xx REST response.
type StatusError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *StatusError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("wordpress: status %d (%s): %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("wordpress: status %d: %s", e.StatusCode, e.Message)
}

// Unauthorized reports whether the credentials were rejected.
func (e *StatusError) Unauthorized() bool {
	return e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden
}

// Transient reports whether the request is worth retrying.
func (e *StatusError) Transient() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= http.StatusInternalServerError
}

// UploadMedia uploads a binary file to the media library and sets its alt text.
func (c *Client) UploadMedia(ctx context.Context, filename, mimeType string, data []byte, altText string) (Media, error) {
	if len(data) == 0 {
		return Media{}, errors.New("wordpress: media upload requires data")
	}
	filename = strings.TrimSpace(filename)
	if filename == "" {
		filename = "image.png"
	}
	req, err := c.newRequest(ctx, http.MethodPost, "/wp-json/wp/v2/media", bytes.NewReader(data))
	if err != nil {
		return Media{}, err
	}
	req.Header.Set("Content-Type", mimeType)
	req.Header.Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": filename}))

	var media Media
	if err := c.do(req, &media); err != nil {
		return Media{}, fmt.Errorf("upload media: %w", err)
	}
	if media.ID <= 0 {
		return Media{}, errors.New("wordpress: upload media: response has no id")
	}
	if alt := strings.TrimSpace(altText); alt != "" {
		if err := c.updateMediaAlt(ctx, media.ID, alt); err != nil {
			return media, fmt.Errorf("set media alt text: %w", err)
		}
	}
	return media, nil
}

func (c *Client) updateMediaAlt(ctx context.Context, id int64, alt string) error {
	body, err := json.Marshal(map[string]string{"alt_text": alt})
	if err != nil {
		return err
	}
	req, err := c.newRequest(ctx, http.MethodPost, fmt.Sprintf("/wp-json/wp/v2/media/%d", id), bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, nil)
}

// CreatePost creates a post and returns its id and permalink.
func (c *Client) CreatePost(ctx context.Context, post Post) (PostResult, error) {
	if strings.TrimSpace(post.Title) == "" {
		return PostResult{}, errors.New("wordpress: post title required")
	}
	if post.Status == "" {
		post.Status = "publish"
	}
	body, err := json.Marshal(post)
	if err != nil {
		return PostResult{}, fmt.Errorf("wordpress: encode post: %w", err)
	}
	req, err := c.newRequest(ctx, http.MethodPost, "/wp-json/wp/v2/posts", bytes.NewReader(body))
	if err != nil {
		return PostResult{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	var result PostResult
	if err := c.do(req, &result); err != nil {
		return PostResult{}, fmt.Errorf("create post: %w", err)
	}
	if result.ID <= 0 {
		return PostResult{}, errors.New("wordpress: create post: response has no id")
	}
	return result, nil
}

// Me returns the authenticated user, verifying the credentials.
func (c *Client) Me(ctx context.Context) (User, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/wp-json/wp/v2/users/me", nil)
	if err != nil {
		return User{}, err
	}
	var user User
	if err := c.do(req, &user); err != nil {
		return User{}, fmt.Errorf("users/me: %w", err)
	}
	return user, nil
}

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	if c.baseURL == "" {
		return nil, errors.New("wordpress: site url not configured")
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("wordpress: new request: %w", err)
	}
	req.SetBasicAuth(c.username, c.password)
	req.Header.Set("Accept", "application/json")
	return req, nil
}

func (c *Client) do(req *http.Request, target any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("wordpress: request: %w", err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("wordpress: read response: %w", err)
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		statusErr := &StatusError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(raw))}
		var apiErr struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		}
		if json.Unmarshal(raw, &apiErr) == nil && apiErr.Message != "" {
			statusErr.Code = apiErr.Code
			statusErr.Message = apiErr.Message
		}
		return statusErr
	}
	if target == nil {
		return nil
	}
	if err := json.Unmarshal(raw, target); err != nil {
		return fmt.Errorf("wordpress: decode response: %w", err)
	}
	return nil
}

// ClassifyError tags a client error with the matching services marker.
func ClassifyError(stage, op string, err error) error {
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		switch {
		case statusErr.Unauthorized():
			return services.Wrap(services.ErrConfiguration, stage, op, "wordpress rejected the credentials", err)
		case statusErr.Transient():
			return services.Wrap(services.ErrTransient, stage, op, "wordpress unavailable", err)
		case statusErr.StatusCode == http.StatusBadRequest:
			return services.Wrap(services.ErrValidation, stage, op, "wordpress rejected the request", err)
		}
	}
	return services.Wrap(services.ErrExternalTool, stage, op, "wordpress request failed", err)
}
