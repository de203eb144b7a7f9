package preflight

import (
	"strings"

	"duendefinder/internal/config"
)

// CheckImagesFromConfig evaluates image generation settings without a network call.
func CheckImagesFromConfig(cfg *config.Config) Result {
	const name = "Image generation"

	if cfg == nil {
		return Result{Name: name, Detail: "Unknown"}
	}
	if !cfg.Images.Enabled {
		return Result{Name: name, Detail: "Disabled (enrichment cannot attach images)"}
	}
	if strings.TrimSpace(cfg.Images.APIKey) == "" {
		return Result{Name: name, Detail: "Missing API key"}
	}
	return Result{Name: name, Passed: true, Detail: cfg.Images.Model}
}

// CheckSocialFromConfig reports which distribution platforms are usable.
// Disabled platforms pass; enabled ones fail when credentials are missing.
func CheckSocialFromConfig(cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}
	return []Result{
		platformResult("Pinterest", cfg.Social.Pinterest.Enabled, map[string]string{
			"access token": cfg.Social.Pinterest.AccessToken,
			"board id":     cfg.Social.Pinterest.BoardID,
		}),
		platformResult("Reddit", cfg.Social.Reddit.Enabled, map[string]string{
			"client id":     cfg.Social.Reddit.ClientID,
			"client secret": cfg.Social.Reddit.ClientSecret,
			"username":      cfg.Social.Reddit.Username,
			"password":      cfg.Social.Reddit.Password,
			"subreddit":     cfg.Social.Reddit.Subreddit,
		}),
		platformResult("X", cfg.Social.X.Enabled, map[string]string{
			"access token": cfg.Social.X.AccessToken,
		}),
	}
}

func platformResult(name string, enabled bool, required map[string]string) Result {
	if !enabled {
		return Result{Name: name, Passed: true, Detail: "Disabled"}
	}
	var missing []string
	for _, key := range []string{"access token", "board id", "client id", "client secret", "username", "password", "subreddit"} {
		value, ok := required[key]
		if ok && strings.TrimSpace(value) == "" {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		return Result{Name: name, Detail: "Missing " + strings.Join(missing, ", ")}
	}
	return Result{Name: name, Passed: true, Detail: "Configured"}
}
