// Package social posts published events to Pinterest, Reddit and X.
package social

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"duendefinder/internal/events"
)

const defaultTimeout = 20 * time.Second

// Message is the platform-neutral content of a share.
type Message struct {
	Title       string
	Text        string
	Link        string
	ImageURL    string
	Hashtags    []string
	Description string
}

// Result identifies the created post.
type Result struct {
	PostID string
	URL    string
}

// Poster shares a message on one platform.
type Poster interface {
	Platform() events.Platform
	Post(ctx context.Context, msg Message) (Result, error)
}

// StatusError reports a non-2xx platform response.
type StatusError struct {
	Platform   events.Platform
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: status %d: %s", e.Platform, e.StatusCode, e.Body)
}

func httpClientFor(timeoutSeconds int) *http.Client {
	timeout := defaultTimeout
	if timeoutSeconds > 0 {
		timeout = time.Duration(timeoutSeconds) * time.Second
	}
	return &http.Client{Timeout: timeout}
}

// HashtagLine formats tags as "#a #b", skipping blanks and duplicates.
func HashtagLine(tags []string) string {
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		tag = strings.TrimSpace(strings.TrimLeft(strings.TrimSpace(tag), "#"))
		tag = strings.ReplaceAll(tag, " ", "")
		if tag == "" {
			continue
		}
		key := strings.ToLower(tag)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, "#"+tag)
	}
	return strings.Join(out, " ")
}

// truncate shortens s to at most limit runes, ending with an ellipsis.
func truncate(s string, limit int) string {
	runes := []rune(strings.TrimSpace(s))
	if limit <= 0 || len(runes) <= limit {
		return string(runes)
	}
	if limit == 1 {
		return "…"
	}
	return strings.TrimSpace(string(runes[:limit-1])) + "…"
}

func postJSON(ctx context.Context, client *http.Client, platform events.Platform, endpoint string, header http.Header, payload, target any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("%s: encode request: %w", platform, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%s: new request: %w", platform, err)
	}
	for key, values := range header {
		for _, v := range values {
			req.Header.Add(key, v)
		}
	}
	req.Header.Set("Content-Type", "application/json")
	return send(client, platform, req, target)
}

func send(client *http.Client, platform events.Platform, req *http.Request, target any) error {
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("%s: request: %w", platform, err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%s: read response: %w", platform, err)
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		return &StatusError{Platform: platform, StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(raw))}
	}
	if target == nil {
		return nil
	}
	if err := json.Unmarshal(raw, target); err != nil {
		return fmt.Errorf("%s: decode response: %w", platform, err)
	}
	return nil
}
