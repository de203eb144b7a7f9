package config

const (
	defaultConfigPath = "~/.config/duende/config.toml"

	defaultLogDir   = "~/.local/share/duende/logs"
	defaultStateDir = "~/.local/share/duende"

	BackendMongo  = "mongo"
	BackendSQLite = "sqlite"

	ProviderGroq      = "groq"
	ProviderGemini    = "gemini"
	ProviderAnthropic = "anthropic"

	defaultMongoDatabase       = "duende"
	defaultMongoCollection     = "events"
	defaultMongoConnectTimeout = 10

	defaultGroqBaseURL      = "https://api.groq.com/openai/v1/chat/completions"
	defaultGroqModel        = "llama-3.3-70b-versatile"
	defaultGeminiBaseURL    = "https://generativelanguage.googleapis.com/v1beta/openai/chat/completions"
	defaultGeminiModel      = "gemini-2.0-flash"
	defaultAnthropicModel   = "claude-3-5-haiku-latest"
	defaultAnthropicTokens  = 4096
	defaultLLMTimeout       = 60
	defaultLLMRetryAttempts = 4
	defaultLLMTemperature   = 0.7

	defaultImagesBaseURL = "https://generativelanguage.googleapis.com/v1beta/models"
	defaultImagesModel   = "imagen-3.0-generate-002"
	defaultImagesAspect  = "16:9"
	defaultImagesTimeout = 90

	defaultWordPressPostStatus = "publish"
	defaultWordPressSiteName   = "Duende Finder"
	defaultWordPressTimeout    = 30

	defaultPinterestBaseURL = "https://api.pinterest.com"
	defaultRedditAuthURL    = "https://www.reddit.com"
	defaultRedditBaseURL    = "https://oauth.reddit.com"
	defaultRedditUserAgent  = "duende-finder/1.0"
	defaultXBaseURL         = "https://api.twitter.com"
	defaultSocialTimeout    = 20

	defaultEnrichBatchSize     = 10
	defaultEnrichMaxAttempts   = 3
	defaultEnrichItemDelay     = 5
	defaultSourceMaxChars      = 6000
	defaultPublishBatchSize    = 10
	defaultPublishMaxAttempts  = 3
	defaultPublishItemDelay    = 3
	defaultDistributeBatchSize = 10
	defaultDistributeItemDelay = 10
	defaultPlatformDelay       = 2

	defaultLogFormat = "console"
	defaultLogLevel  = "info"

	defaultWorkflowHeartbeatInterval = 15
	defaultWorkflowHeartbeatTimeout  = 300

	defaultAPIBind = "127.0.0.1:7488"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			LogDir:   defaultLogDir,
			StateDir: defaultStateDir,
		},
		Store: Store{
			Backend: BackendMongo,
		},
		Mongo: Mongo{
			Database:              defaultMongoDatabase,
			Collection:            defaultMongoCollection,
			ConnectTimeoutSeconds: defaultMongoConnectTimeout,
		},
		LLM: LLM{
			Providers:      []string{ProviderGroq, ProviderGemini},
			TimeoutSeconds: defaultLLMTimeout,
			RetryAttempts:  defaultLLMRetryAttempts,
			Temperature:    defaultLLMTemperature,
			Groq:           Provider{BaseURL: defaultGroqBaseURL, Model: defaultGroqModel},
			Gemini:         Provider{BaseURL: defaultGeminiBaseURL, Model: defaultGeminiModel},
			Anthropic:      Provider{Model: defaultAnthropicModel, MaxTokens: defaultAnthropicTokens},
		},
		Images: Images{
			Enabled:        true,
			BaseURL:        defaultImagesBaseURL,
			Model:          defaultImagesModel,
			AspectRatio:    defaultImagesAspect,
			TimeoutSeconds: defaultImagesTimeout,
		},
		WordPress: WordPress{
			PostStatus:     defaultWordPressPostStatus,
			SiteName:       defaultWordPressSiteName,
			TimeoutSeconds: defaultWordPressTimeout,
		},
		Social: Social{
			TimeoutSeconds: defaultSocialTimeout,
			Pinterest:      Pinterest{BaseURL: defaultPinterestBaseURL},
			Reddit: Reddit{
				AuthURL:   defaultRedditAuthURL,
				BaseURL:   defaultRedditBaseURL,
				UserAgent: defaultRedditUserAgent,
				Subreddit: "flamenco",
			},
			X: X{BaseURL: defaultXBaseURL},
		},
		Enrichment: Enrichment{
			BatchSize:        defaultEnrichBatchSize,
			MaxAttempts:      defaultEnrichMaxAttempts,
			ItemDelaySeconds: defaultEnrichItemDelay,
			FetchSource:      true,
			SourceMaxChars:   defaultSourceMaxChars,
		},
		Publication: Publication{
			BatchSize:        defaultPublishBatchSize,
			MaxAttempts:      defaultPublishMaxAttempts,
			ItemDelaySeconds: defaultPublishItemDelay,
		},
		Distribution: Distribution{
			BatchSize:            defaultDistributeBatchSize,
			ItemDelaySeconds:     defaultDistributeItemDelay,
			PlatformDelaySeconds: defaultPlatformDelay,
		},
		Notifications: Notifications{
			RequestTimeout:   10,
			EnrichmentFailed: true,
			Published:        true,
			Distributed:      false,
			Batch:            true,
			Errors:           true,
		},
		Workflow: Workflow{
			PollInterval:       30,
			ErrorRetryInterval: 60,
			HeartbeatInterval:  defaultWorkflowHeartbeatInterval,
			HeartbeatTimeout:   defaultWorkflowHeartbeatTimeout,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
		API: API{
			Bind: defaultAPIBind,
		},
	}
}
