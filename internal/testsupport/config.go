package testsupport

import (
	"path/filepath"
	"testing"

	"duendefinder/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// The store points at a SQLite file inside the temp dir, delays are zeroed,
// and no external service is configured.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Paths.StateDir = filepath.Join(base, "state")
	cfgVal.Store.Backend = config.BackendSQLite
	cfgVal.Store.SQLitePath = filepath.Join(base, "state", "events.db")
	cfgVal.Enrichment.ItemDelaySeconds = 0
	cfgVal.Enrichment.FetchSource = false
	cfgVal.Publication.ItemDelaySeconds = 0
	cfgVal.Distribution.ItemDelaySeconds = 0
	cfgVal.Distribution.PlatformDelaySeconds = 0
	cfgVal.Notifications.NtfyTopic = ""
	cfgVal.API.Bind = "127.0.0.1:0"

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithWordPress points the config at a test WordPress endpoint.
func WithWordPress(url string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.WordPress.URL = url
		b.cfg.WordPress.Username = "editor"
		b.cfg.WordPress.AppPassword = "app-password"
	}
}

// WithAPIToken requires bearer authentication on the HTTP API.
func WithAPIToken(token string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.API.Enabled = true
		b.cfg.API.Token = token
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.StateDir)
}
