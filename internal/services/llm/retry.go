package llm

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// HTTPStatusError is a non-2xx provider response.
type HTTPStatusError struct {
	StatusCode int
	Body       string
	RetryAfter time.Duration
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("llm request: http %d: %s", e.StatusCode, summarizePayloadSnippet(e.Body))
}

// Unauthorized reports whether the provider rejected the credentials.
func (e *HTTPStatusError) Unauthorized() bool {
	return e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden
}

// emptyContentError is a 2xx response without usable text, usually a
// safety stop or a truncated generation. It is retried like a 5xx.
type emptyContentError struct {
	Op           string
	FinishReason string
	Snippet      string
}

func (e *emptyContentError) Error() string {
	return fmt.Sprintf("%s: empty content (finish_reason=%q): %s", e.Op, e.FinishReason, e.Snippet)
}

func (c *Client) retryAttempts() int {
	if c.retryMaxAttempts <= 0 {
		return 1
	}
	return c.retryMaxAttempts
}

func (c *Client) retryDelay(ctx context.Context, err error, attempt, maxAttempts int) (time.Duration, bool) {
	if err == nil || attempt >= maxAttempts || ctx.Err() != nil {
		return 0, false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return 0, false
	}

	var emptyErr *emptyContentError
	if errors.As(err, &emptyErr) {
		return c.backoffDelay(attempt), true
	}

	var statusErr *HTTPStatusError
	if errors.As(err, &statusErr) {
		switch {
		case statusErr.StatusCode == http.StatusRequestTimeout,
			statusErr.StatusCode == http.StatusTooManyRequests,
			statusErr.StatusCode >= http.StatusInternalServerError:
			if statusErr.RetryAfter > 0 {
				// A provider asking for longer than the ceiling is left to
				// the workflow's own requeue instead of blocking the lane.
				if statusErr.RetryAfter > retryAfterCeiling {
					return 0, false
				}
				return statusErr.RetryAfter, true
			}
			return c.backoffDelay(attempt), true
		default:
			return 0, false
		}
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return c.backoffDelay(attempt), true
	}
	return 0, false
}

// backoffDelay doubles from the base delay: attempt 1 waits base, attempt 2
// waits 2*base, and so on up to the max delay.
func (c *Client) backoffDelay(attempt int) time.Duration {
	base := c.retryBaseDelay
	if base <= 0 {
		return 0
	}
	delay := base
	for i := 1; i < attempt; i++ {
		delay *= 2
		if delay >= c.maxDelay() {
			break
		}
	}
	return c.capDelay(delay)
}

func (c *Client) maxDelay() time.Duration {
	if c.retryMaxDelay > 0 {
		return c.retryMaxDelay
	}
	return defaultRetryMaxDelay
}

func (c *Client) capDelay(delay time.Duration) time.Duration {
	if delay < 0 {
		return 0
	}
	return min(delay, c.maxDelay())
}

func (c *Client) sleep(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if c.sleeper != nil {
		c.sleeper(delay)
		return ctx.Err()
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// retryAfterFromHeader prefers Retry-After and falls back to Groq's
// x-ratelimit-reset-requests and x-ratelimit-reset-tokens, which carry Go
// style durations such as "7.66s" or "2m59.56s".
func retryAfterFromHeader(h http.Header) time.Duration {
	if delay, ok := parseRetryAfter(h.Get("Retry-After")); ok {
		return delay
	}
	var longest time.Duration
	for _, key := range []string{"X-Ratelimit-Reset-Requests", "X-Ratelimit-Reset-Tokens"} {
		if d, err := time.ParseDuration(strings.TrimSpace(h.Get(key))); err == nil && d > longest {
			longest = d
		}
	}
	return longest
}

func parseRetryAfter(value string) (time.Duration, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, false
	}
	if seconds, err := strconv.Atoi(value); err == nil {
		if seconds < 0 {
			return 0, false
		}
		return time.Duration(seconds) * time.Second, true
	}
	if when, err := http.ParseTime(value); err == nil {
		if delay := time.Until(when); delay > 0 {
			return delay, true
		}
	}
	return 0, false
}
