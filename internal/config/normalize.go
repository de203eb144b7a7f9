package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	if err := c.normalizeStore(); err != nil {
		return err
	}
	c.normalizeLLM()
	c.normalizeImages()
	c.normalizeWordPress()
	c.normalizeSocial()
	if err := c.normalizeEnrichment(); err != nil {
		return err
	}
	c.normalizeNotifications()
	c.normalizeLogging()
	c.normalizeAPI()
	return nil
}

// fromEnv fills an empty value from the first environment variable that is set.
func fromEnv(value string, keys ...string) string {
	value = strings.TrimSpace(value)
	if value != "" {
		return value
	}
	for _, key := range keys {
		if env, ok := os.LookupEnv(key); ok && strings.TrimSpace(env) != "" {
			return strings.TrimSpace(env)
		}
	}
	return ""
}

func orDefault(value, fallback string) string {
	if value = strings.TrimSpace(value); value != "" {
		return value
	}
	return fallback
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Paths.LogDir, err = expandPath(orDefault(c.Paths.LogDir, defaultLogDir)); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if c.Paths.StateDir, err = expandPath(orDefault(c.Paths.StateDir, defaultStateDir)); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeStore() error {
	c.Store.Backend = strings.ToLower(orDefault(fromEnv(c.Store.Backend, "DUENDE_STORE"), BackendMongo))
	if c.Store.Backend == BackendSQLite {
		path := orDefault(c.Store.SQLitePath, filepath.Join(c.Paths.StateDir, "events.db"))
		expanded, err := expandPath(path)
		if err != nil {
			return fmt.Errorf("store.sqlite_path: %w", err)
		}
		c.Store.SQLitePath = expanded
	}

	c.Mongo.URI = fromEnv(c.Mongo.URI, "MONGODB_URI", "MONGO_URI")
	c.Mongo.Database = orDefault(fromEnv(c.Mongo.Database, "MONGODB_DB"), defaultMongoDatabase)
	c.Mongo.Collection = orDefault(c.Mongo.Collection, defaultMongoCollection)
	if c.Mongo.ConnectTimeoutSeconds <= 0 {
		c.Mongo.ConnectTimeoutSeconds = defaultMongoConnectTimeout
	}
	return nil
}

func (c *Config) normalizeLLM() {
	providers := make([]string, 0, len(c.LLM.Providers))
	seen := make(map[string]struct{}, len(c.LLM.Providers))
	for _, name := range c.LLM.Providers {
		name = strings.ToLower(strings.TrimSpace(name))
		if name == "" {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		providers = append(providers, name)
	}
	c.LLM.Providers = providers

	c.LLM.Groq.APIKey = fromEnv(c.LLM.Groq.APIKey, "GROQ_API_KEY")
	c.LLM.Groq.BaseURL = orDefault(c.LLM.Groq.BaseURL, defaultGroqBaseURL)
	c.LLM.Groq.Model = orDefault(c.LLM.Groq.Model, defaultGroqModel)

	c.LLM.Gemini.APIKey = fromEnv(c.LLM.Gemini.APIKey, "GEMINI_API_KEY", "GOOGLE_API_KEY")
	c.LLM.Gemini.BaseURL = orDefault(c.LLM.Gemini.BaseURL, defaultGeminiBaseURL)
	c.LLM.Gemini.Model = orDefault(c.LLM.Gemini.Model, defaultGeminiModel)

	c.LLM.Anthropic.APIKey = fromEnv(c.LLM.Anthropic.APIKey, "ANTHROPIC_API_KEY")
	c.LLM.Anthropic.Model = orDefault(c.LLM.Anthropic.Model, defaultAnthropicModel)
	if c.LLM.Anthropic.MaxTokens <= 0 {
		c.LLM.Anthropic.MaxTokens = defaultAnthropicTokens
	}
}

func (c *Config) normalizeImages() {
	c.Images.APIKey = fromEnv(c.Images.APIKey, "GEMINI_API_KEY", "GOOGLE_API_KEY")
	c.Images.BaseURL = strings.TrimRight(orDefault(c.Images.BaseURL, defaultImagesBaseURL), "/")
	c.Images.Model = orDefault(c.Images.Model, defaultImagesModel)
	c.Images.AspectRatio = orDefault(c.Images.AspectRatio, defaultImagesAspect)
}

func (c *Config) normalizeWordPress() {
	c.WordPress.URL = strings.TrimRight(fromEnv(c.WordPress.URL, "WORDPRESS_URL"), "/")
	c.WordPress.Username = fromEnv(c.WordPress.Username, "WORDPRESS_USERNAME", "WORDPRESS_USER")
	c.WordPress.AppPassword = fromEnv(c.WordPress.AppPassword, "WORDPRESS_APP_PASSWORD", "WORDPRESS_PASSWORD")
	c.WordPress.PostStatus = strings.ToLower(orDefault(c.WordPress.PostStatus, defaultWordPressPostStatus))
	c.WordPress.SiteName = orDefault(c.WordPress.SiteName, defaultWordPressSiteName)
	if c.WordPress.TimeoutSeconds <= 0 {
		c.WordPress.TimeoutSeconds = defaultWordPressTimeout
	}
}

func (c *Config) normalizeSocial() {
	if c.Social.TimeoutSeconds <= 0 {
		c.Social.TimeoutSeconds = defaultSocialTimeout
	}

	p := &c.Social.Pinterest
	p.AccessToken = fromEnv(p.AccessToken, "PINTEREST_ACCESS_TOKEN")
	p.BoardID = fromEnv(p.BoardID, "PINTEREST_BOARD_ID")
	p.BaseURL = strings.TrimRight(orDefault(p.BaseURL, defaultPinterestBaseURL), "/")

	r := &c.Social.Reddit
	r.ClientID = fromEnv(r.ClientID, "REDDIT_CLIENT_ID")
	r.ClientSecret = fromEnv(r.ClientSecret, "REDDIT_CLIENT_SECRET")
	r.Username = fromEnv(r.Username, "REDDIT_USERNAME")
	r.Password = fromEnv(r.Password, "REDDIT_PASSWORD")
	r.Subreddit = strings.TrimPrefix(strings.TrimSpace(r.Subreddit), "r/")
	r.UserAgent = orDefault(r.UserAgent, defaultRedditUserAgent)
	r.AuthURL = strings.TrimRight(orDefault(r.AuthURL, defaultRedditAuthURL), "/")
	r.BaseURL = strings.TrimRight(orDefault(r.BaseURL, defaultRedditBaseURL), "/")

	x := &c.Social.X
	x.AccessToken = fromEnv(x.AccessToken, "X_ACCESS_TOKEN", "TWITTER_ACCESS_TOKEN")
	x.BaseURL = strings.TrimRight(orDefault(x.BaseURL, defaultXBaseURL), "/")
}

func (c *Config) normalizeEnrichment() error {
	if c.Enrichment.SourceMaxChars <= 0 {
		c.Enrichment.SourceMaxChars = defaultSourceMaxChars
	}
	if strings.TrimSpace(c.Enrichment.PromptsPath) != "" {
		expanded, err := expandPath(c.Enrichment.PromptsPath)
		if err != nil {
			return fmt.Errorf("enrichment.prompts_path: %w", err)
		}
		c.Enrichment.PromptsPath = expanded
	}
	return nil
}

func (c *Config) normalizeNotifications() {
	c.Notifications.NtfyTopic = fromEnv(c.Notifications.NtfyTopic, "NTFY_TOPIC")
	if c.Notifications.RequestTimeout <= 0 {
		c.Notifications.RequestTimeout = 10
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(orDefault(c.Logging.Format, defaultLogFormat))
	c.Logging.Level = strings.ToLower(orDefault(c.Logging.Level, defaultLogLevel))
}

func (c *Config) normalizeAPI() {
	c.API.Bind = orDefault(c.API.Bind, defaultAPIBind)
	c.API.Token = fromEnv(c.API.Token, "DUENDE_API_TOKEN")
}
