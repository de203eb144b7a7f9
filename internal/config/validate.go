package config

import (
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	validators := []func() error{
		c.validateStore,
		c.validateLLM,
		c.validateWordPress,
		c.validateSocial,
		c.validateStages,
		c.validateWorkflow,
		c.validateLogging,
	}
	for _, validate := range validators {
		if err := validate(); err != nil {
			return err
		}
	}
	return nil
}

func (c *Config) validateStore() error {
	switch c.Store.Backend {
	case BackendMongo:
		if c.Mongo.URI == "" {
			defaultPath, err := DefaultConfigPath()
			if err != nil {
				defaultPath = defaultConfigPath
			}
			return fmt.Errorf("mongo.uri is required. Set MONGODB_URI env var or edit %s (create with 'duende config init')", defaultPath)
		}
		if !strings.HasPrefix(c.Mongo.URI, "mongodb://") && !strings.HasPrefix(c.Mongo.URI, "mongodb+srv://") {
			return errors.New("mongo.uri must start with mongodb:// or mongodb+srv://")
		}
		if strings.TrimSpace(c.Mongo.Database) == "" {
			return errors.New("mongo.database must be set")
		}
	case BackendSQLite:
		if strings.TrimSpace(c.Store.SQLitePath) == "" {
			return errors.New("store.sqlite_path must be set when store.backend is sqlite")
		}
	default:
		return fmt.Errorf("store.backend: unsupported value %q (use %q or %q)", c.Store.Backend, BackendMongo, BackendSQLite)
	}
	return nil
}

func (c *Config) validateLLM() error {
	for _, name := range c.LLM.Providers {
		if _, ok := c.provider(name); !ok {
			return fmt.Errorf("llm.providers: unknown provider %q", name)
		}
	}
	if c.LLM.Temperature < 0 || c.LLM.Temperature > 2 {
		return errors.New("llm.temperature must be between 0 and 2")
	}
	return ensurePositiveMap(map[string]int{
		"llm.timeout_seconds":    c.LLM.TimeoutSeconds,
		"llm.retry_attempts":     c.LLM.RetryAttempts,
		"images.timeout_seconds": c.Images.TimeoutSeconds,
	})
}

func (c *Config) validateWordPress() error {
	if c.WordPress.URL == "" {
		return nil
	}
	if err := validateBaseURL("wordpress.url", c.WordPress.URL); err != nil {
		return err
	}
	if c.WordPress.Username == "" || c.WordPress.AppPassword == "" {
		return errors.New("wordpress.username and wordpress.app_password must be set when wordpress.url is set")
	}
	switch c.WordPress.PostStatus {
	case "publish", "draft", "pending", "private", "future":
	default:
		return fmt.Errorf("wordpress.post_status: unsupported value %q", c.WordPress.PostStatus)
	}
	return nil
}

func (c *Config) validateSocial() error {
	if p := c.Social.Pinterest; p.Enabled {
		if p.AccessToken == "" || p.BoardID == "" {
			return errors.New("social.pinterest.access_token and board_id must be set when social.pinterest.enabled is true")
		}
	}
	if r := c.Social.Reddit; r.Enabled {
		if r.ClientID == "" || r.ClientSecret == "" || r.Username == "" || r.Password == "" {
			return errors.New("social.reddit client_id, client_secret, username and password must be set when social.reddit.enabled is true")
		}
		if r.Subreddit == "" {
			return errors.New("social.reddit.subreddit must be set when social.reddit.enabled is true")
		}
	}
	if x := c.Social.X; x.Enabled && x.AccessToken == "" {
		return errors.New("social.x.access_token must be set when social.x.enabled is true")
	}
	return nil
}

func (c *Config) validateStages() error {
	if err := ensurePositiveMap(map[string]int{
		"enrichment.batch_size":     c.Enrichment.BatchSize,
		"enrichment.max_attempts":   c.Enrichment.MaxAttempts,
		"publication.batch_size":    c.Publication.BatchSize,
		"publication.max_attempts":  c.Publication.MaxAttempts,
		"distribution.batch_size":   c.Distribution.BatchSize,
		"social.timeout_seconds":    c.Social.TimeoutSeconds,
		"wordpress.timeout_seconds": c.WordPress.TimeoutSeconds,
	}); err != nil {
		return err
	}
	return ensureNonNegativeMap(map[string]int{
		"enrichment.item_delay_seconds":       c.Enrichment.ItemDelaySeconds,
		"publication.item_delay_seconds":      c.Publication.ItemDelaySeconds,
		"distribution.item_delay_seconds":     c.Distribution.ItemDelaySeconds,
		"distribution.platform_delay_seconds": c.Distribution.PlatformDelaySeconds,
		"notifications.request_timeout":       c.Notifications.RequestTimeout,
		"mongo.connect_timeout_seconds":       c.Mongo.ConnectTimeoutSeconds,
	})
}

func (c *Config) validateWorkflow() error {
	if err := ensurePositiveMap(map[string]int{
		"workflow.poll_interval":        c.Workflow.PollInterval,
		"workflow.error_retry_interval": c.Workflow.ErrorRetryInterval,
		"workflow.heartbeat_interval":   c.Workflow.HeartbeatInterval,
		"workflow.heartbeat_timeout":    c.Workflow.HeartbeatTimeout,
	}); err != nil {
		return err
	}
	if c.Workflow.HeartbeatTimeout <= c.Workflow.HeartbeatInterval {
		return errors.New("workflow.heartbeat_timeout must be greater than workflow.heartbeat_interval")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	return nil
}

func validateBaseURL(key, raw string) error {
	parsed, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("%s must be an http(s) URL", key)
	}
	if parsed.Host == "" {
		return fmt.Errorf("%s must include a host", key)
	}
	return nil
}

func sortedKeys(values map[string]int) []string {
	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

func ensurePositiveMap(values map[string]int) error {
	for _, key := range sortedKeys(values) {
		if values[key] <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}

func ensureNonNegativeMap(values map[string]int) error {
	for _, key := range sortedKeys(values) {
		if values[key] < 0 {
			return fmt.Errorf("%s must not be negative", key)
		}
	}
	return nil
}
