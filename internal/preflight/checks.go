package preflight

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"strings"
	"time"

	"golang.org/x/sys/unix"

	"duendefinder/internal/config"
	"duendefinder/internal/services/llm"
	"duendefinder/internal/services/wordpress"
)

// CheckLLM verifies that one provider of the chain is reachable and the key
// is valid. It uses a 30-second timeout and a single attempt.
func CheckLLM(ctx context.Context, provider config.ProviderConfig) Result {
	name := "LLM " + provider.Name
	if strings.TrimSpace(provider.APIKey) == "" {
		return Result{Name: name, Detail: "API key missing"}
	}

	checkCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	provider.RetryAttempts = 1
	chain := llm.NewChainFromConfig(nil, []config.ProviderConfig{provider})
	if err := chain.HealthCheck(checkCtx); err != nil {
		return Result{Name: name, Detail: summarizeLLMError(err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s reachable", provider.Model)}
}

// CheckWordPress verifies the site URL and application password by asking
// for the authenticated user.
func CheckWordPress(ctx context.Context, cfg config.WordPress) Result {
	const name = "WordPress"

	if strings.TrimSpace(cfg.URL) == "" {
		return Result{Name: name, Detail: "missing url"}
	}
	if strings.TrimSpace(cfg.Username) == "" || strings.TrimSpace(cfg.AppPassword) == "" {
		return Result{Name: name, Detail: "missing username or application password"}
	}

	checkCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client := wordpress.New(wordpress.Config{
		URL:            cfg.URL,
		Username:       cfg.Username,
		AppPassword:    cfg.AppPassword,
		TimeoutSeconds: cfg.TimeoutSeconds,
	}, nil)
	user, err := client.Me(checkCtx)
	if err != nil {
		var status *wordpress.StatusError
		if errors.As(err, &status) && status.Unauthorized() {
			return Result{Name: name, Detail: "auth failed (check the application password)"}
		}
		return Result{Name: name, Detail: fmt.Sprintf("auth check failed (%v)", err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("authenticated as %s", user.Slug)}
}

// CheckStore pings the event store.
func CheckStore(ctx context.Context, backend string, store Pinger) Result {
	name := "Event store (" + backend + ")"
	checkCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := store.Ping(checkCtx); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("ping failed (%v)", err)}
	}
	return Result{Name: name, Passed: true, Detail: "reachable"}
}

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// summarizeLLMError produces a human-readable summary for LLM health check failures.
func summarizeLLMError(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "health check timed out (LLM API unresponsive)"
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "health check timed out (LLM API unreachable)"
	}
	if llm.IsAuthError(err) {
		return "auth failed (invalid api key)"
	}
	return err.Error()
}
