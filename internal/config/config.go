package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	LogDir   string `toml:"log_dir"`
	StateDir string `toml:"state_dir"`
}

// Store selects the event persistence backend.
type Store struct {
	Backend    string `toml:"backend"`
	SQLitePath string `toml:"sqlite_path"`
}

// Mongo contains MongoDB connection settings.
type Mongo struct {
	URI                   string `toml:"uri"`
	Database              string `toml:"database"`
	Collection            string `toml:"collection"`
	ConnectTimeoutSeconds int    `toml:"connect_timeout_seconds"`
}

// Provider contains one LLM provider's connection settings.
type Provider struct {
	APIKey    string `toml:"api_key"`
	BaseURL   string `toml:"base_url"`
	Model     string `toml:"model"`
	MaxTokens int    `toml:"max_tokens"`
}

// LLM contains the ordered provider chain used for enrichment.
type LLM struct {
	Providers      []string `toml:"providers"`
	TimeoutSeconds int      `toml:"timeout_seconds"`
	RetryAttempts  int      `toml:"retry_attempts"`
	Temperature    float64  `toml:"temperature"`
	Groq           Provider `toml:"groq"`
	Gemini         Provider `toml:"gemini"`
	Anthropic      Provider `toml:"anthropic"`
}

// Images contains image generation settings.
type Images struct {
	Enabled        bool   `toml:"enabled"`
	APIKey         string `toml:"api_key"`
	BaseURL        string `toml:"base_url"`
	Model          string `toml:"model"`
	AspectRatio    string `toml:"aspect_ratio"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// WordPress contains REST API credentials and post defaults.
type WordPress struct {
	URL            string  `toml:"url"`
	Username       string  `toml:"username"`
	AppPassword    string  `toml:"app_password"`
	PostStatus     string  `toml:"post_status"`
	CategoryIDs    []int64 `toml:"category_ids"`
	TagIDs         []int64 `toml:"tag_ids"`
	SiteName       string  `toml:"site_name"`
	FooterNote     string  `toml:"footer_note"`
	TimeoutSeconds int     `toml:"timeout_seconds"`
}

// Pinterest contains Pinterest v5 API settings.
type Pinterest struct {
	Enabled     bool   `toml:"enabled"`
	AccessToken string `toml:"access_token"`
	BoardID     string `toml:"board_id"`
	BaseURL     string `toml:"base_url"`
}

// Reddit contains Reddit OAuth2 script-app settings.
type Reddit struct {
	Enabled      bool   `toml:"enabled"`
	ClientID     string `toml:"client_id"`
	ClientSecret string `toml:"client_secret"`
	Username     string `toml:"username"`
	Password     string `toml:"password"`
	Subreddit    string `toml:"subreddit"`
	UserAgent    string `toml:"user_agent"`
	AuthURL      string `toml:"auth_url"`
	BaseURL      string `toml:"base_url"`
}

// X contains X (Twitter) v2 API settings.
type X struct {
	Enabled     bool   `toml:"enabled"`
	AccessToken string `toml:"access_token"`
	BaseURL     string `toml:"base_url"`
}

// Social groups the distribution platforms.
type Social struct {
	TimeoutSeconds int       `toml:"timeout_seconds"`
	Pinterest      Pinterest `toml:"pinterest"`
	Reddit         Reddit    `toml:"reddit"`
	X              X         `toml:"x"`
}

// Enrichment contains enrichment stage settings.
type Enrichment struct {
	BatchSize        int    `toml:"batch_size"`
	MaxAttempts      int    `toml:"max_attempts"`
	ItemDelaySeconds int    `toml:"item_delay_seconds"`
	FetchSource      bool   `toml:"fetch_source"`
	SourceMaxChars   int    `toml:"source_max_chars"`
	PromptsPath      string `toml:"prompts_path"`
}

// Publication contains publication stage settings.
type Publication struct {
	BatchSize        int `toml:"batch_size"`
	MaxAttempts      int `toml:"max_attempts"`
	ItemDelaySeconds int `toml:"item_delay_seconds"`
}

// Distribution contains distribution stage settings.
type Distribution struct {
	BatchSize            int `toml:"batch_size"`
	ItemDelaySeconds     int `toml:"item_delay_seconds"`
	PlatformDelaySeconds int `toml:"platform_delay_seconds"`
}

// Notifications contains configuration for ntfy push notifications.
type Notifications struct {
	NtfyTopic        string `toml:"ntfy_topic"`
	RequestTimeout   int    `toml:"request_timeout"`
	EnrichmentFailed bool   `toml:"enrichment_failed"`
	Published        bool   `toml:"published"`
	Distributed      bool   `toml:"distributed"`
	Batch            bool   `toml:"batch"`
	Errors           bool   `toml:"errors"`
}

// Workflow contains configuration for daemon timing and intervals.
type Workflow struct {
	PollInterval       int `toml:"poll_interval"`
	ErrorRetryInterval int `toml:"error_retry_interval"`
	HeartbeatInterval  int `toml:"heartbeat_interval"`
	HeartbeatTimeout   int `toml:"heartbeat_timeout"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format    string `toml:"format"`
	Level     string `toml:"level"`
	EventLogs bool   `toml:"event_logs"`
}

// API contains the daemon status API settings.
type API struct {
	Enabled bool   `toml:"enabled"`
	Bind    string `toml:"bind"`
	Token   string `toml:"token"`
}

// Config encapsulates all configuration values for Duende Finder.
//
// Configuration sections by subsystem:
//   - Paths: log and state directories
//   - Store/Mongo: event persistence backend
//   - LLM/Images: enrichment providers
//   - WordPress: publication target
//   - Social: distribution platforms
//   - Enrichment/Publication/Distribution: per-stage batch and retry settings
//   - Notifications: ntfy push notification settings
//   - Workflow: daemon polling intervals and heartbeats
//   - Logging: log format and level
//   - API: daemon status API
type Config struct {
	Paths         Paths         `toml:"paths"`
	Store         Store         `toml:"store"`
	Mongo         Mongo         `toml:"mongo"`
	LLM           LLM           `toml:"llm"`
	Images        Images        `toml:"images"`
	WordPress     WordPress     `toml:"wordpress"`
	Social        Social        `toml:"social"`
	Enrichment    Enrichment    `toml:"enrichment"`
	Publication   Publication   `toml:"publication"`
	Distribution  Distribution  `toml:"distribution"`
	Notifications Notifications `toml:"notifications"`
	Workflow      Workflow      `toml:"workflow"`
	Logging       Logging       `toml:"logging"`
	API           API           `toml:"api"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("duende.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the log and state directories.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.LogDir, c.Paths.StateDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// LockPath returns the daemon single-instance lock file.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.StateDir, "duende.lock")
}

// LogFilePath returns the shared log file path.
func (c *Config) LogFilePath() string {
	return filepath.Join(c.Paths.LogDir, "duende.log")
}

// ProviderConfig is one resolved entry of the LLM provider chain.
type ProviderConfig struct {
	Name           string
	APIKey         string
	BaseURL        string
	Model          string
	MaxTokens      int
	TimeoutSeconds int
	RetryAttempts  int
	Temperature    float64
}

// LLMChain returns the configured providers in order, skipping entries
// without an API key.
func (c *Config) LLMChain() []ProviderConfig {
	chain := make([]ProviderConfig, 0, len(c.LLM.Providers))
	for _, name := range c.LLM.Providers {
		provider, ok := c.provider(name)
		if !ok || strings.TrimSpace(provider.APIKey) == "" {
			continue
		}
		chain = append(chain, ProviderConfig{
			Name:           name,
			APIKey:         strings.TrimSpace(provider.APIKey),
			BaseURL:        strings.TrimSpace(provider.BaseURL),
			Model:          strings.TrimSpace(provider.Model),
			MaxTokens:      provider.MaxTokens,
			TimeoutSeconds: c.LLM.TimeoutSeconds,
			RetryAttempts:  c.LLM.RetryAttempts,
			Temperature:    c.LLM.Temperature,
		})
	}
	return chain
}

func (c *Config) provider(name string) (Provider, bool) {
	switch name {
	case ProviderGroq:
		return c.LLM.Groq, true
	case ProviderGemini:
		return c.LLM.Gemini, true
	case ProviderAnthropic:
		return c.LLM.Anthropic, true
	default:
		return Provider{}, false
	}
}

// WordPressConfigured reports whether publication credentials are present.
func (c *Config) WordPressConfigured() bool {
	return c.WordPress.URL != "" && c.WordPress.Username != "" && c.WordPress.AppPassword != ""
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o600); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
