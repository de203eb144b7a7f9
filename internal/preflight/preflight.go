package preflight

import (
	"context"

	"duendefinder/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string `json:"name"`
	Passed bool   `json:"passed"`
	Detail string `json:"detail"`
}

// Pinger is satisfied by every events.Store implementation.
type Pinger interface {
	Ping(ctx context.Context) error
}

// RunAll executes all applicable preflight checks for the given config.
// A nil store skips the store check.
func RunAll(ctx context.Context, cfg *config.Config, store Pinger) []Result {
	if cfg == nil {
		return nil
	}

	var results []Result

	results = append(results, CheckDirectoryAccess("State directory", cfg.Paths.StateDir))
	results = append(results, CheckDirectoryAccess("Log directory", cfg.Paths.LogDir))

	if store != nil {
		results = append(results, CheckStore(ctx, cfg.Store.Backend, store))
	}

	chain := cfg.LLMChain()
	if len(chain) == 0 {
		results = append(results, Result{Name: "LLM providers", Detail: "no provider has an API key"})
	}
	for _, provider := range chain {
		results = append(results, CheckLLM(ctx, provider))
	}

	if cfg.Images.Enabled {
		results = append(results, CheckImagesFromConfig(cfg))
	}

	results = append(results, CheckWordPress(ctx, cfg.WordPress))
	results = append(results, CheckSocialFromConfig(cfg)...)
	return results
}

// Failed returns the results that did not pass.
func Failed(results []Result) []Result {
	var out []Result
	for _, r := range results {
		if !r.Passed {
			out = append(out, r)
		}
	}
	return out
}
