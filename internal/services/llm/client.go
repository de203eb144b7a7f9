package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	jsonResponseType      = "json_object"
	defaultHTTPTimeout    = 60 * time.Second
	defaultRetryMaxDelay  = 10 * time.Second
	retryAfterCeiling     = 2 * time.Minute
	defaultRetryBaseDelay = 1 * time.Second
	defaultRetryAttempts  = 4
)

// Completer produces a chat completion for a system and user prompt.
type Completer interface {
	Name() string
	Model() string
	CompleteJSON(ctx context.Context, systemPrompt, userPrompt string) (string, error)
	HealthCheck(ctx context.Context) error
}

// Config captures the settings for one OpenAI-compatible provider.
type Config struct {
	Name           string
	APIKey         string
	BaseURL        string
	Model          string
	Temperature    float64
	MaxTokens      int
	TimeoutSeconds int
}

// Client calls an OpenAI-compatible chat completions endpoint.
type Client struct {
	cfg        Config
	httpClient *http.Client

	retryMaxAttempts int
	retryBaseDelay   time.Duration
	retryMaxDelay    time.Duration
	sleeper          func(time.Duration)
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithRetryMaxAttempts overrides the retry count.
func WithRetryMaxAttempts(attempts int) Option {
	return func(c *Client) {
		c.retryMaxAttempts = attempts
	}
}

// WithRetryBackoff overrides the retry backoff delays.
func WithRetryBackoff(baseDelay, maxDelay time.Duration) Option {
	return func(c *Client) {
		c.retryBaseDelay = baseDelay
		c.retryMaxDelay = maxDelay
	}
}

// WithSleeper replaces retry sleeps, for tests.
func WithSleeper(sleeper func(time.Duration)) Option {
	return func(c *Client) {
		c.sleeper = sleeper
	}
}

// NewClient constructs a client for the supplied provider.
func NewClient(cfg Config, opts ...Option) *Client {
	timeout := defaultHTTPTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	cfg.Name = strings.TrimSpace(cfg.Name)
	cfg.APIKey = strings.TrimSpace(cfg.APIKey)
	cfg.BaseURL = strings.TrimSpace(cfg.BaseURL)
	cfg.Model = strings.TrimSpace(cfg.Model)
	client := &Client{
		cfg:              cfg,
		httpClient:       &http.Client{Timeout: timeout},
		retryMaxAttempts: defaultRetryAttempts,
		retryBaseDelay:   defaultRetryBaseDelay,
		retryMaxDelay:    defaultRetryMaxDelay,
	}
	for _, opt := range opts {
		opt(client)
	}
	if client.cfg.Name == "" {
		client.cfg.Name = "openai-compatible"
	}
	return client
}

func (c *Client) Name() string  { return c.cfg.Name }
func (c *Client) Model() string { return c.cfg.Model }

// CompleteJSON issues a JSON-mode chat completion and returns the raw content.
func (c *Client) CompleteJSON(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	systemPrompt = strings.TrimSpace(systemPrompt)
	userPrompt = strings.TrimSpace(userPrompt)
	if systemPrompt == "" {
		return "", errors.New("llm complete: system prompt required")
	}
	if userPrompt == "" {
		return "", errors.New("llm complete: user prompt required")
	}
	if c.cfg.APIKey == "" {
		return "", fmt.Errorf("llm complete: %s api key required", c.cfg.Name)
	}
	payload := chatCompletionRequest{
		Model: c.cfg.Model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPrompt},
		},
		Temperature:    c.cfg.Temperature,
		MaxTokens:      c.cfg.MaxTokens,
		ResponseFormat: map[string]string{"type": jsonResponseType},
	}
	return c.completionContentWithRetry(ctx, payload, c.cfg.Name+" complete")
}

// HealthCheck issues a small JSON ping to verify the key and model.
func (c *Client) HealthCheck(ctx context.Context) error {
	if c.cfg.APIKey == "" {
		return fmt.Errorf("llm health: %s api key required", c.cfg.Name)
	}
	payload := chatCompletionRequest{
		Model: c.cfg.Model,
		Messages: []chatMessage{
			{Role: "system", Content: "You must respond with JSON only."},
			{Role: "user", Content: `Respond with {"ok":true}`},
		},
		ResponseFormat: map[string]string{"type": jsonResponseType},
	}
	content, err := c.completionContentWithRetry(ctx, payload, c.cfg.Name+" health")
	if err != nil {
		return err
	}
	var parsed struct {
		OK bool `json:"ok"`
	}
	if err := DecodeJSON(content, &parsed); err != nil {
		return fmt.Errorf("llm health: parse payload: %w", err)
	}
	if !parsed.OK {
		return errors.New("llm health: unexpected response")
	}
	return nil
}

type chatCompletionRequest struct {
	Model          string            `json:"model"`
	Messages       []chatMessage     `json:"messages"`
	Temperature    float64           `json:"temperature"`
	MaxTokens      int               `json:"max_tokens,omitempty"`
	ResponseFormat map[string]string `json:"response_format,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message      chatMessage `json:"message"`
		FinishReason string      `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// content returns the first non-blank message. Groq and the Gemini
// compatibility endpoint both answer with a single choice.
func (r chatCompletionResponse) content() (string, string) {
	finish := ""
	for _, choice := range r.Choices {
		if finish == "" {
			finish = choice.FinishReason
		}
		if text := strings.TrimSpace(choice.Message.Content); text != "" {
			return text, choice.FinishReason
		}
	}
	return "", finish
}

func (c *Client) completionContentWithRetry(ctx context.Context, payload chatCompletionRequest, op string) (string, error) {
	attempts := c.retryAttempts()
	var err error
	for attempt := 1; ; attempt++ {
		var resp chatCompletionResponse
		var raw []byte
		resp, raw, err = c.post(ctx, payload)
		if err == nil {
			text, finish := resp.content()
			if text != "" {
				return text, nil
			}
			err = &emptyContentError{Op: op, FinishReason: finish, Snippet: summarizePayloadSnippet(string(raw))}
		}

		delay, retry := c.retryDelay(ctx, err, attempt, attempts)
		if !retry {
			if attempt > 1 {
				return "", fmt.Errorf("%s: gave up after %d attempts: %w", op, attempt, err)
			}
			return "", err
		}
		if sleepErr := c.sleep(ctx, delay); sleepErr != nil {
			return "", sleepErr
		}
	}
}

func (c *Client) post(ctx context.Context, payload chatCompletionRequest) (chatCompletionResponse, []byte, error) {
	var out chatCompletionResponse
	body, err := json.Marshal(payload)
	if err != nil {
		return out, nil, fmt.Errorf("%s request: encode: %w", c.cfg.Name, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL, bytes.NewReader(body))
	if err != nil {
		return out, nil, fmt.Errorf("%s request: %w", c.cfg.Name, err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return out, nil, fmt.Errorf("%s request: %w", c.cfg.Name, err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return out, nil, fmt.Errorf("%s request: read body: %w", c.cfg.Name, err)
	}
	if resp.StatusCode/100 != 2 {
		return out, raw, &HTTPStatusError{
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(raw)),
			RetryAfter: retryAfterFromHeader(resp.Header),
		}
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return out, raw, fmt.Errorf("%s request: decode response: %w", c.cfg.Name, err)
	}
	if out.Error != nil {
		return out, raw, fmt.Errorf("%s request: %s", c.cfg.Name, strings.TrimSpace(out.Error.Message))
	}
	return out, raw, nil
}
