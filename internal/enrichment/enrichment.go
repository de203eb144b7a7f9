// Package enrichment turns pending events into content-ready events: it
// asks the LLM chain for a content package and attaches generated images
// uploaded to the WordPress media library.
package enrichment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"duendefinder/internal/config"
	"duendefinder/internal/content"
	"duendefinder/internal/events"
	"duendefinder/internal/logging"
	"duendefinder/internal/services"
	"duendefinder/internal/services/imagegen"
	"duendefinder/internal/services/llm"
	"duendefinder/internal/services/wordpress"
	"duendefinder/internal/sourcepage"
	"duendefinder/internal/stage"
)

// StageName identifies the enrichment stage in logs and errors.
const StageName = "enrichment"

// Completer produces JSON completions.
type Completer interface {
	CompleteJSON(ctx context.Context, systemPrompt, userPrompt string) (llm.Result, error)
	HealthCheck(ctx context.Context) error
}

// MediaUploader stores generated images.
type MediaUploader interface {
	UploadMedia(ctx context.Context, filename, mimeType string, data []byte, altText string) (wordpress.Media, error)
}

// SourceFetcher returns a markdown rendition of a source page.
type SourceFetcher interface {
	Fetch(ctx context.Context, pageURL string) (string, error)
}

// Dependencies are the collaborators of the enrichment stage.
type Dependencies struct {
	LLM     Completer
	Images  imagegen.Generator
	Media   MediaUploader
	Source  SourceFetcher
	Prompts *content.Prompts
}

// Enricher implements stage.Handler for the enrichment stage.
type Enricher struct {
	cfg    *config.Config
	deps   Dependencies
	logger *slog.Logger
	now    func() time.Time
}

// New wires the enricher from configuration.
func New(cfg *config.Config, logger *slog.Logger) (*Enricher, error) {
	prompts, err := content.LoadPrompts(cfg.Enrichment.PromptsPath)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, StageName, "load prompts", "invalid prompt pack", err)
	}
	deps := Dependencies{
		LLM:     llm.NewChainFromConfig(logger, cfg.LLMChain()),
		Prompts: prompts,
	}
	if cfg.Images.Enabled {
		deps.Images = imagegen.New(imagegen.Config{
			APIKey:         cfg.Images.APIKey,
			BaseURL:        cfg.Images.BaseURL,
			Model:          cfg.Images.Model,
			AspectRatio:    cfg.Images.AspectRatio,
			TimeoutSeconds: cfg.Images.TimeoutSeconds,
		}, nil)
	}
	if cfg.WordPressConfigured() {
		deps.Media = wordpress.New(wordpress.Config{
			URL:            cfg.WordPress.URL,
			Username:       cfg.WordPress.Username,
			AppPassword:    cfg.WordPress.AppPassword,
			TimeoutSeconds: cfg.WordPress.TimeoutSeconds,
		}, nil)
	}
	if cfg.Enrichment.FetchSource {
		deps.Source = sourcepage.New(nil, cfg.Enrichment.SourceMaxChars)
	}
	return NewWithDependencies(cfg, logger, deps), nil
}

// NewWithDependencies allows injecting collaborators (used in tests).
func NewWithDependencies(cfg *config.Config, logger *slog.Logger, deps Dependencies) *Enricher {
	return &Enricher{
		cfg:    cfg,
		deps:   deps,
		logger: logging.NewComponentLogger(logger, StageName),
		now:    time.Now,
	}
}

func (e *Enricher) SetLogger(logger *slog.Logger) {
	e.logger = logging.NewComponentLogger(logger, StageName)
}

// AlreadyDone reports whether the event already satisfies the content_ready contract.
func (e *Enricher) AlreadyDone(ev *events.Event) bool {
	c := ev.Content
	return strings.TrimSpace(c.BlogPostTitle) != "" &&
		strings.TrimSpace(c.BlogPostMarkdown) != "" &&
		c.ImageID > 0 &&
		c.ContentGenerationDate != nil
}

func (e *Enricher) Prepare(ctx context.Context, ev *events.Event) error {
	if err := stage.RequireEvent(StageName, ev); err != nil {
		return err
	}
	if err := stage.RequireFields(StageName, map[string]string{"name": ev.Name, "date": ev.Date}); err != nil {
		return err
	}
	ev.ErrorMessage = ""
	logging.WithContext(ctx, e.logger).Info("starting enrichment",
		logging.String("event_name", ev.Name),
		logging.String("event_date", ev.Date),
		logging.Int("attempt", ev.EnrichmentAttempts+1),
	)
	return nil
}

func (e *Enricher) Execute(ctx context.Context, ev *events.Event) error {
	logger := logging.WithContext(ctx, e.logger)

	source := e.sourceContext(ctx, logger, ev)

	system := e.deps.Prompts.System()
	user, err := e.deps.Prompts.User(ev, source)
	if err != nil {
		return services.Wrap(services.ErrConfiguration, StageName, "render prompt", "prompt template failed", err)
	}

	result, err := e.deps.LLM.CompleteJSON(ctx, system, user)
	if err != nil {
		return classifyLLMError(err)
	}

	var generated content.Generated
	if err := llm.DecodeJSON(result.Content, &generated); err != nil {
		return services.Wrap(services.ErrExternalTool, StageName, "decode content", "llm returned malformed JSON", err)
	}
	if err := generated.Validate(); err != nil {
		return services.Wrap(services.ErrExternalTool, StageName, "validate content", "llm returned an incomplete package", err)
	}
	generated.Apply(&ev.Content, result.Provider+"/"+result.Model, e.now())
	logger.Info("content package generated",
		logging.String("provider", result.Provider),
		logging.String("model", result.Model),
		logging.String("title", ev.Content.BlogPostTitle),
	)

	if err := e.attachImages(ctx, logger, ev); err != nil {
		return err
	}

	logger.Info("enrichment completed",
		logging.String("title", ev.Content.BlogPostTitle),
		logging.Int64("image_id", ev.Content.ImageID),
		logging.Int64("secondary_image_id", ev.Content.SecondaryImageID),
	)
	return nil
}

func (e *Enricher) sourceContext(ctx context.Context, logger *slog.Logger, ev *events.Event) string {
	if e.deps.Source == nil || strings.TrimSpace(ev.SourceURL) == "" {
		return ""
	}
	text, err := e.deps.Source.Fetch(ctx, ev.SourceURL)
	if err != nil {
		logging.WarnWithContext(logger, "source page unavailable; enriching from listing only", "source_fetch_failed",
			logging.String("source_url", ev.SourceURL),
			logging.Error(err),
			logging.String(logging.FieldImpact, "prompt has less context"),
		)
		return ""
	}
	return text
}

// attachImages uploads the hero image (required) and the night plan image
// (best effort). Images already attached by an earlier attempt are kept.
func (e *Enricher) attachImages(ctx context.Context, logger *slog.Logger, ev *events.Event) error {
	if ev.Content.ImageID <= 0 {
		if e.deps.Images == nil || e.deps.Media == nil {
			return services.Wrap(services.ErrConfiguration, StageName, "generate image",
				"image generation and WordPress media upload must be configured; imageId is required", nil)
		}
		media, err := e.generateAndUpload(ctx, ev, content.ImageHero)
		if err != nil {
			return err
		}
		ev.Content.ImageID = media.ID
		ev.Content.ImageURL = media.SourceURL
	}

	if ev.Content.SecondaryImageID <= 0 && e.deps.Images != nil && e.deps.Media != nil {
		media, err := e.generateAndUpload(ctx, ev, content.ImageNightPlan)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return err
			}
			logging.WarnWithContext(logger, "night plan image failed; continuing without it", "secondary_image_failed",
				logging.Error(err),
				logging.String(logging.FieldImpact, "post renders without the night plan image"),
			)
			return nil
		}
		ev.Content.SecondaryImageID = media.ID
		ev.Content.SecondaryImageURL = media.SourceURL
	}
	return nil
}

func (e *Enricher) generateAndUpload(ctx context.Context, ev *events.Event, kind content.ImageKind) (wordpress.Media, error) {
	prompt, err := e.deps.Prompts.Image(kind, ev)
	if err != nil {
		return wordpress.Media{}, services.Wrap(services.ErrConfiguration, StageName, "render image prompt", string(kind), err)
	}
	img, err := e.deps.Images.Generate(ctx, prompt)
	if err != nil {
		return wordpress.Media{}, services.Wrap(services.ErrExternalTool, StageName, "generate image", string(kind), err)
	}
	filename := fmt.Sprintf("%s-%s%s", content.Slug(ev), kind, img.Extension())
	media, err := e.deps.Media.UploadMedia(ctx, filename, img.MIMEType, img.Data, ev.DisplayTitle())
	if err != nil {
		return wordpress.Media{}, wordpress.ClassifyError(StageName, "upload image", err)
	}
	return media, nil
}

func (e *Enricher) HealthCheck(ctx context.Context) stage.Health {
	switch {
	case e.deps.LLM == nil:
		return stage.Unhealthy(StageName, "no llm provider configured")
	case e.deps.Prompts == nil:
		return stage.Unhealthy(StageName, "prompt pack not loaded")
	case e.deps.Images == nil:
		return stage.Unhealthy(StageName, "image generation disabled")
	case e.deps.Media == nil:
		return stage.Unhealthy(StageName, "wordpress credentials missing for media upload")
	}
	if chain, ok := e.deps.LLM.(*llm.Chain); ok && chain.Empty() {
		return stage.Unhealthy(StageName, "no llm provider has an api key")
	}
	return stage.Healthy(StageName)
}

func classifyLLMError(err error) error {
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	case errors.Is(err, llm.ErrNoProviders):
		return services.Wrap(services.ErrConfiguration, StageName, "generate content", "no llm provider configured", err)
	case llm.IsAuthError(err):
		return services.Wrap(services.ErrConfiguration, StageName, "generate content", "every llm provider rejected its api key", err)
	default:
		return services.Wrap(services.ErrExternalTool, StageName, "generate content", "llm providers failed", err)
	}
}
