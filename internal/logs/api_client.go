package logs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"duendefinder/internal/api"
)

// ErrAPIUnavailable is returned when no status API address is configured.
var ErrAPIUnavailable = errors.New("log API unavailable")

// StreamClient reads recent log lines from a running daemon.
type StreamClient struct {
	base  *url.URL
	token string
	http  *http.Client
}

// StreamQuery selects which log lines to fetch.
type StreamQuery struct {
	Since     uint64
	Limit     int
	EventID   string
	Component string
}

// NewStreamClient targets the daemon bound at bind. An empty bind returns nil.
func NewStreamClient(bind, token string) (*StreamClient, error) {
	bind = strings.TrimSpace(bind)
	if bind == "" {
		return nil, nil
	}
	if !strings.Contains(bind, "://") {
		bind = "http://" + bind
	}
	base, err := url.Parse(bind)
	if err != nil {
		return nil, err
	}
	base.Path, base.RawQuery, base.Fragment = "", "", ""
	return &StreamClient{
		base:  base,
		token: strings.TrimSpace(token),
		http:  &http.Client{Timeout: 10 * time.Second},
	}, nil
}

// Fetch returns one page of log lines.
func (c *StreamClient) Fetch(ctx context.Context, q StreamQuery) (api.LogStreamResponse, error) {
	if c == nil {
		return api.LogStreamResponse{}, ErrAPIUnavailable
	}

	values := url.Values{}
	if q.Since > 0 {
		values.Set("since", strconv.FormatUint(q.Since, 10))
	}
	if q.Limit > 0 {
		values.Set("limit", strconv.Itoa(q.Limit))
	}
	if id := strings.TrimSpace(q.EventID); id != "" {
		values.Set("event", id)
	}
	if component := strings.TrimSpace(q.Component); component != "" {
		values.Set("component", component)
	}

	endpoint := c.base.ResolveReference(&url.URL{Path: "/api/logs", RawQuery: values.Encode()})
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return api.LogStreamResponse{}, err
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return api.LogStreamResponse{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return api.LogStreamResponse{}, fmt.Errorf("api logs returned status %d", resp.StatusCode)
	}
	var payload api.LogStreamResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return api.LogStreamResponse{}, fmt.Errorf("decode log stream: %w", err)
	}
	return payload, nil
}

// IsAPIUnavailable reports whether err means the daemon could not be reached.
func IsAPIUnavailable(err error) bool {
	if err == nil {
		return false
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Err != nil {
		err = urlErr.Err
	}
	var opErr *net.OpError
	return errors.Is(err, ErrAPIUnavailable) || errors.As(err, &opErr)
}
