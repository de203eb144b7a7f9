package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"duendefinder/internal/config"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"DUENDE_STORE", "MONGODB_URI", "MONGO_URI", "MONGODB_DB",
		"GROQ_API_KEY", "GEMINI_API_KEY", "GOOGLE_API_KEY", "ANTHROPIC_API_KEY",
		"WORDPRESS_URL", "WORDPRESS_USERNAME", "WORDPRESS_USER",
		"WORDPRESS_APP_PASSWORD", "WORDPRESS_PASSWORD",
		"PINTEREST_ACCESS_TOKEN", "PINTEREST_BOARD_ID",
		"REDDIT_CLIENT_ID", "REDDIT_CLIENT_SECRET", "REDDIT_USERNAME", "REDDIT_PASSWORD",
		"X_ACCESS_TOKEN", "TWITTER_ACCESS_TOKEN", "NTFY_TOPIC", "DUENDE_API_TOKEN",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadDefaultConfigUsesEnvAndExpandsPaths(t *testing.T) {
	clearEnv(t)
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Chdir(t.TempDir())
	t.Setenv("MONGODB_URI", "mongodb://localhost:27017")
	t.Setenv("GROQ_API_KEY", "groq-key")

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}
	if resolved != filepath.Join(tempHome, ".config", "duende", "config.toml") {
		t.Fatalf("unexpected resolved path: %q", resolved)
	}
	if cfg.Paths.StateDir != filepath.Join(tempHome, ".local", "share", "duende") {
		t.Fatalf("unexpected state dir: %q", cfg.Paths.StateDir)
	}
	if cfg.Mongo.URI != "mongodb://localhost:27017" {
		t.Fatalf("expected mongo uri from env, got %q", cfg.Mongo.URI)
	}
	if cfg.LLM.Groq.APIKey != "groq-key" {
		t.Fatalf("expected groq key from env, got %q", cfg.LLM.Groq.APIKey)
	}
	if cfg.LockPath() != filepath.Join(cfg.Paths.StateDir, "duende.lock") {
		t.Fatalf("unexpected lock path: %q", cfg.LockPath())
	}
	if cfg.WordPressConfigured() {
		t.Fatal("expected WordPress to be unconfigured by default")
	}
}

func TestLoadRequiresMongoURI(t *testing.T) {
	clearEnv(t)
	t.Setenv("HOME", t.TempDir())
	t.Chdir(t.TempDir())

	_, _, _, err := config.Load("")
	if err == nil || !strings.Contains(err.Error(), "mongo.uri") {
		t.Fatalf("expected mongo.uri error, got %v", err)
	}
}

func TestLoadSQLiteBackendDefaultsPath(t *testing.T) {
	clearEnv(t)
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Chdir(t.TempDir())
	t.Setenv("DUENDE_STORE", "SQLite")

	cfg, _, _, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Store.Backend != config.BackendSQLite {
		t.Fatalf("unexpected backend: %q", cfg.Store.Backend)
	}
	want := filepath.Join(tempHome, ".local", "share", "duende", "events.db")
	if cfg.Store.SQLitePath != want {
		t.Fatalf("unexpected sqlite path: got %q want %q", cfg.Store.SQLitePath, want)
	}
}

func TestLoadCustomConfigOverrides(t *testing.T) {
	clearEnv(t)
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)

	configPath := filepath.Join(t.TempDir(), "config.toml")
	content := `
[store]
backend = "sqlite"
sqlite_path = "~/events/duende.db"

[llm]
providers = ["Gemini", "groq", "gemini", ""]

[llm.gemini]
api_key = "gem"

[wordpress]
url = "https://blog.example.com/"
username = "editor"
app_password = "abcd efgh"
post_status = "Draft"

[social.reddit]
enabled = true
client_id = "id"
client_secret = "secret"
username = "bot"
password = "pw"
subreddit = "r/flamenco"

[enrichment]
max_attempts = 5

[logging]
format = "JSON"
`
	if err := os.WriteFile(configPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists || resolved != configPath {
		t.Fatalf("expected custom config to be used, got %q exists=%v", resolved, exists)
	}
	if cfg.Store.SQLitePath != filepath.Join(tempHome, "events", "duende.db") {
		t.Fatalf("unexpected sqlite path: %q", cfg.Store.SQLitePath)
	}
	if got := strings.Join(cfg.LLM.Providers, ","); got != "gemini,groq" {
		t.Fatalf("unexpected providers: %q", got)
	}
	chain := cfg.LLMChain()
	if len(chain) != 1 || chain[0].Name != config.ProviderGemini || chain[0].APIKey != "gem" {
		t.Fatalf("expected only gemini in chain, got %+v", chain)
	}
	if cfg.WordPress.URL != "https://blog.example.com" {
		t.Fatalf("expected trailing slash trimmed, got %q", cfg.WordPress.URL)
	}
	if cfg.WordPress.PostStatus != "draft" {
		t.Fatalf("unexpected post status: %q", cfg.WordPress.PostStatus)
	}
	if !cfg.WordPressConfigured() {
		t.Fatal("expected WordPress configured")
	}
	if cfg.Social.Reddit.Subreddit != "flamenco" {
		t.Fatalf("unexpected subreddit: %q", cfg.Social.Reddit.Subreddit)
	}
	if cfg.Enrichment.MaxAttempts != 5 {
		t.Fatalf("unexpected max attempts: %d", cfg.Enrichment.MaxAttempts)
	}
	if cfg.Publication.MaxAttempts != config.Default().Publication.MaxAttempts {
		t.Fatalf("expected publication defaults preserved, got %d", cfg.Publication.MaxAttempts)
	}
	if cfg.Logging.Format != "json" {
		t.Fatalf("unexpected logging format: %q", cfg.Logging.Format)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*config.Config)
		want   string
	}{
		{"unknown backend", func(c *config.Config) { c.Store.Backend = "postgres" }, "store.backend"},
		{"bad mongo scheme", func(c *config.Config) { c.Mongo.URI = "http://localhost" }, "mongo.uri"},
		{"unknown provider", func(c *config.Config) { c.LLM.Providers = []string{"openai"} }, "unknown provider"},
		{"wordpress without password", func(c *config.Config) {
			c.WordPress.URL = "https://blog.example.com"
			c.WordPress.Username = "editor"
		}, "wordpress.username"},
		{"wordpress bad url", func(c *config.Config) { c.WordPress.URL = "blog.example.com" }, "wordpress.url"},
		{"pinterest without board", func(c *config.Config) {
			c.Social.Pinterest.Enabled = true
			c.Social.Pinterest.AccessToken = "tok"
		}, "social.pinterest"},
		{"x without token", func(c *config.Config) { c.Social.X.Enabled = true }, "social.x"},
		{"zero batch", func(c *config.Config) { c.Enrichment.BatchSize = 0 }, "enrichment.batch_size"},
		{"negative delay", func(c *config.Config) { c.Distribution.PlatformDelaySeconds = -1 }, "distribution.platform_delay_seconds"},
		{"heartbeat ordering", func(c *config.Config) { c.Workflow.HeartbeatTimeout = c.Workflow.HeartbeatInterval }, "heartbeat_timeout"},
		{"log format", func(c *config.Config) { c.Logging.Format = "xml" }, "logging.format"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := config.Default()
			cfg.Mongo.URI = "mongodb://localhost:27017"
			tc.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatalf("expected validation error containing %q", tc.want)
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected error containing %q, got %v", tc.want, err)
			}
		})
	}
}

func TestCreateSampleProducesLoadableConfig(t *testing.T) {
	clearEnv(t)
	t.Setenv("HOME", t.TempDir())
	t.Setenv("MONGODB_URI", "mongodb://localhost:27017")

	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample returned error: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	var parsed map[string]any
	if err := toml.Unmarshal(data, &parsed); err != nil {
		t.Fatalf("sample config is not valid TOML: %v", err)
	}
	if _, ok := parsed["wordpress"]; !ok {
		t.Fatal("expected wordpress section in sample config")
	}
	if _, _, _, err := config.Load(path); err != nil {
		t.Fatalf("sample config failed to load: %v", err)
	}
}
