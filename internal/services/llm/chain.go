package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"duendefinder/internal/config"
	"duendefinder/internal/logging"
)

// ErrNoProviders is returned when the chain has nothing to call.
var ErrNoProviders = errors.New("llm: no providers configured")

// Result is a completion plus the provider that produced it.
type Result struct {
	Content  string
	Provider string
	Model    string
}

// Chain tries providers in order until one returns content.
type Chain struct {
	providers []Completer
	logger    *slog.Logger
}

// NewChain wraps the providers in the order given.
func NewChain(logger *slog.Logger, providers ...Completer) *Chain {
	filtered := make([]Completer, 0, len(providers))
	for _, p := range providers {
		if p != nil {
			filtered = append(filtered, p)
		}
	}
	return &Chain{providers: filtered, logger: logging.NewComponentLogger(logger, "llm")}
}

// NewChainFromConfig builds the provider chain from resolved config entries.
func NewChainFromConfig(logger *slog.Logger, entries []config.ProviderConfig) *Chain {
	providers := make([]Completer, 0, len(entries))
	for _, entry := range entries {
		cfg := Config{
			Name:           entry.Name,
			APIKey:         entry.APIKey,
			BaseURL:        entry.BaseURL,
			Model:          entry.Model,
			Temperature:    entry.Temperature,
			MaxTokens:      entry.MaxTokens,
			TimeoutSeconds: entry.TimeoutSeconds,
		}
		switch entry.Name {
		case config.ProviderAnthropic:
			providers = append(providers, NewAnthropicClient(cfg))
		default:
			providers = append(providers, NewClient(cfg, WithRetryMaxAttempts(entry.RetryAttempts)))
		}
	}
	return NewChain(logger, providers...)
}

// Providers returns the provider names in call order.
func (c *Chain) Providers() []string {
	names := make([]string, len(c.providers))
	for i, p := range c.providers {
		names[i] = p.Name()
	}
	return names
}

// Empty reports whether no provider is configured.
func (c *Chain) Empty() bool { return c == nil || len(c.providers) == 0 }

// CompleteJSON returns the first non-empty completion. When every provider
// fails the errors are joined in call order.
func (c *Chain) CompleteJSON(ctx context.Context, systemPrompt, userPrompt string) (Result, error) {
	if c.Empty() {
		return Result{}, ErrNoProviders
	}
	var errs []error
	for _, provider := range c.providers {
		content, err := provider.CompleteJSON(ctx, systemPrompt, userPrompt)
		if err == nil {
			return Result{Content: content, Provider: provider.Name(), Model: provider.Model()}, nil
		}
		if ctx.Err() != nil {
			return Result{}, ctx.Err()
		}
		errs = append(errs, fmt.Errorf("%s: %w", provider.Name(), err))
		logging.WarnWithContext(logging.WithContext(ctx, c.logger), "llm provider failed; trying next", "llm_provider_failed",
			logging.String("provider", provider.Name()),
			logging.Error(err),
			logging.String(logging.FieldImpact, "falling back to the next provider"),
		)
	}
	return Result{}, errors.Join(errs...)
}

// HealthCheck reports the first failing provider, or nil when all respond.
func (c *Chain) HealthCheck(ctx context.Context) error {
	if c.Empty() {
		return ErrNoProviders
	}
	for _, provider := range c.providers {
		if err := provider.HealthCheck(ctx); err != nil {
			return fmt.Errorf("%s: %w", provider.Name(), err)
		}
	}
	return nil
}

// IsAuthError reports whether every wrapped provider error is an auth failure.
func IsAuthError(err error) bool {
	if err == nil {
		return false
	}
	var leaves []error
	collectLeaves(err, &leaves)
	if len(leaves) == 0 {
		return false
	}
	for _, leaf := range leaves {
		var statusErr *HTTPStatusError
		if errors.As(leaf, &statusErr) && statusErr.Unauthorized() {
			continue
		}
		if strings.Contains(leaf.Error(), "api key required") {
			continue
		}
		return false
	}
	return true
}

func collectLeaves(err error, out *[]error) {
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		for _, e := range joined.Unwrap() {
			collectLeaves(e, out)
		}
		return
	}
	*out = append(*out, err)
}
