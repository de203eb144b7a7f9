package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aktagon/llmkit/anthropic"
	"github.com/aktagon/llmkit/anthropic/types"
)

// promptFunc returns the first text block of a Claude reply.
type promptFunc func(systemPrompt, userPrompt, apiKey string, settings types.RequestSettings) (string, error)

func llmkitPrompt(systemPrompt, userPrompt, apiKey string, settings types.RequestSettings) (string, error) {
	response, err := anthropic.PromptWithSettings(systemPrompt, userPrompt, "", apiKey, settings)
	if err != nil {
		return "", err
	}
	if len(response.Content) == 0 {
		return "", errors.New("no content in response")
	}
	return response.Content[0].Text, nil
}

// AnthropicClient sends completions to Claude through llmkit.
type AnthropicClient struct {
	apiKey      string
	model       string
	maxTokens   int
	temperature float64
	prompt      promptFunc
}

// NewAnthropicClient builds a Completer backed by llmkit.
func NewAnthropicClient(cfg Config) *AnthropicClient {
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 4096
	}
	return &AnthropicClient{
		apiKey:      strings.TrimSpace(cfg.APIKey),
		model:       strings.TrimSpace(cfg.Model),
		maxTokens:   maxTokens,
		temperature: cfg.Temperature,
		prompt:      llmkitPrompt,
	}
}

func (a *AnthropicClient) Name() string  { return "anthropic" }
func (a *AnthropicClient) Model() string { return a.model }

// CompleteJSON asks Claude for a JSON-only reply. llmkit calls are blocking
// and do not take a context, so cancellation is checked before the call.
func (a *AnthropicClient) CompleteJSON(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	if a.apiKey == "" {
		return "", errors.New("anthropic complete: api key required")
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	settings := types.RequestSettings{
		Model:       a.model,
		MaxTokens:   a.maxTokens,
		Temperature: a.temperature,
	}
	system := strings.TrimSpace(systemPrompt) + "\n\nRespond with a single JSON object and nothing else."
	text, err := a.prompt(system, strings.TrimSpace(userPrompt), a.apiKey, settings)
	if err != nil {
		return "", fmt.Errorf("anthropic complete: %w", err)
	}
	if text = strings.TrimSpace(text); text == "" {
		return "", errors.New("anthropic complete: empty content")
	}
	return text, nil
}

func (a *AnthropicClient) HealthCheck(ctx context.Context) error {
	content, err := a.CompleteJSON(ctx, "You must respond with JSON only.", `Respond with {"ok":true}`)
	if err != nil {
		return err
	}
	var parsed struct {
		OK bool `json:"ok"`
	}
	if err := DecodeJSON(content, &parsed); err != nil || !parsed.OK {
		return fmt.Errorf("anthropic health: unexpected response %q", summarizePayloadSnippet(content))
	}
	return nil
}
