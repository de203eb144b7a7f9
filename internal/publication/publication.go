// Package publication creates the WordPress post for content-ready events.
package publication

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"duendefinder/internal/config"
	"duendefinder/internal/content"
	"duendefinder/internal/events"
	"duendefinder/internal/logging"
	"duendefinder/internal/notifications"
	"duendefinder/internal/services"
	"duendefinder/internal/services/imagegen"
	"duendefinder/internal/services/wordpress"
	"duendefinder/internal/stage"
)

// StageName identifies the publication stage in logs and errors.
const StageName = "publication"

// WordPress is the subset of the REST client the stage uses.
type WordPress interface {
	CreatePost(ctx context.Context, post wordpress.Post) (wordpress.PostResult, error)
	UploadMedia(ctx context.Context, filename, mimeType string, data []byte, altText string) (wordpress.Media, error)
	Me(ctx context.Context) (wordpress.User, error)
}

// Publisher implements stage.Handler for the publication stage.
type Publisher struct {
	cfg      *config.Config
	wp       WordPress
	images   imagegen.Generator
	prompts  *content.Prompts
	notifier notifications.Service
	logger   *slog.Logger
	now      func() time.Time
}

// New wires the publisher from configuration.
func New(cfg *config.Config, logger *slog.Logger, notifier notifications.Service) (*Publisher, error) {
	var wp WordPress
	if cfg.WordPressConfigured() {
		wp = wordpress.New(wordpress.Config{
			URL:            cfg.WordPress.URL,
			Username:       cfg.WordPress.Username,
			AppPassword:    cfg.WordPress.AppPassword,
			TimeoutSeconds: cfg.WordPress.TimeoutSeconds,
		}, nil)
	}
	var images imagegen.Generator
	if cfg.Images.Enabled {
		images = imagegen.New(imagegen.Config{
			APIKey:         cfg.Images.APIKey,
			BaseURL:        cfg.Images.BaseURL,
			Model:          cfg.Images.Model,
			AspectRatio:    cfg.Images.AspectRatio,
			TimeoutSeconds: cfg.Images.TimeoutSeconds,
		}, nil)
	}
	prompts, err := content.LoadPrompts(cfg.Enrichment.PromptsPath)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, StageName, "load prompts", "invalid prompt pack", err)
	}
	return NewWithDependencies(cfg, logger, wp, images, prompts, notifier), nil
}

// NewWithDependencies allows injecting collaborators (used in tests).
func NewWithDependencies(cfg *config.Config, logger *slog.Logger, wp WordPress, images imagegen.Generator, prompts *content.Prompts, notifier notifications.Service) *Publisher {
	return &Publisher{
		cfg:      cfg,
		wp:       wp,
		images:   images,
		prompts:  prompts,
		notifier: notifier,
		logger:   logging.NewComponentLogger(logger, StageName),
		now:      time.Now,
	}
}

func (p *Publisher) SetLogger(logger *slog.Logger) {
	p.logger = logging.NewComponentLogger(logger, StageName)
}

// AlreadyDone reports whether the event already has a WordPress post, so a
// retried claim never creates a duplicate.
func (p *Publisher) AlreadyDone(ev *events.Event) bool {
	return ev.Publication.WordPressPostID > 0 && events.ValidPostURL(ev.Publication.BlogPostURL)
}

func (p *Publisher) Prepare(ctx context.Context, ev *events.Event) error {
	if err := stage.RequireEvent(StageName, ev); err != nil {
		return err
	}
	if err := stage.RequireFields(StageName, map[string]string{
		"blogPostTitle":    ev.Content.BlogPostTitle,
		"blogPostMarkdown": ev.Content.BlogPostMarkdown,
	}); err != nil {
		return err
	}
	if ev.Content.ImageID <= 0 && (p.images == nil || p.prompts == nil) {
		return services.Wrap(services.ErrValidation, StageName, "validate event",
			"missing imageId and image generation is disabled", nil)
	}
	ev.ErrorMessage = ""
	logging.WithContext(ctx, p.logger).Info("starting publication",
		logging.String("title", ev.Content.BlogPostTitle),
		logging.Int("attempt", ev.PublishAttempts+1),
	)
	return nil
}

func (p *Publisher) Execute(ctx context.Context, ev *events.Event) error {
	logger := logging.WithContext(ctx, p.logger)
	if p.wp == nil {
		return services.Wrap(services.ErrConfiguration, StageName, "create post", "wordpress credentials are not configured", nil)
	}

	if err := p.ensureFeaturedImage(ctx, ev); err != nil {
		return err
	}

	html, err := content.RenderPostHTML(ev, content.Site{
		Name:       p.cfg.WordPress.SiteName,
		FooterNote: p.cfg.WordPress.FooterNote,
	})
	if err != nil {
		return services.Wrap(services.ErrValidation, StageName, "render post", "markdown could not be rendered", err)
	}

	post := wordpress.Post{
		Title:         ev.Content.BlogPostTitle,
		Content:       html,
		Excerpt:       ev.Content.Excerpt,
		Slug:          content.Slug(ev),
		Status:        p.cfg.WordPress.PostStatus,
		FeaturedMedia: ev.Content.ImageID,
		Categories:    p.cfg.WordPress.CategoryIDs,
		Tags:          p.cfg.WordPress.TagIDs,
	}
	result, err := p.wp.CreatePost(ctx, post)
	if err != nil {
		return wordpress.ClassifyError(StageName, "create post", err)
	}
	if !events.ValidPostURL(result.Link) {
		return services.Wrap(services.ErrExternalTool, StageName, "create post",
			fmt.Sprintf("post %d returned invalid link %q", result.ID, result.Link), nil)
	}

	published := p.now().UTC()
	ev.Publication = events.Publication{
		WordPressPostID:  result.ID,
		BlogPostURL:      result.Link,
		FeaturedImageID:  ev.Content.ImageID,
		FeaturedImageURL: ev.Content.ImageURL,
		PublishedAt:      &published,
	}
	logger.Info("post published",
		logging.Int64("wordpress_post_id", result.ID),
		logging.String("blog_post_url", result.Link),
		logging.String("post_status", result.Status),
	)

	if p.notifier != nil {
		if err := p.notifier.NotifyPublished(ctx, ev.Content.BlogPostTitle, result.Link); err != nil {
			logger.Debug("publish notification failed", logging.Error(err))
		}
	}
	return nil
}

func (p *Publisher) ensureFeaturedImage(ctx context.Context, ev *events.Event) error {
	if ev.Content.ImageID > 0 {
		return nil
	}
	prompt, err := p.prompts.Image(content.ImageHero, ev)
	if err != nil {
		return services.Wrap(services.ErrConfiguration, StageName, "render image prompt", "hero", err)
	}
	img, err := p.images.Generate(ctx, prompt)
	if err != nil {
		return services.Wrap(services.ErrExternalTool, StageName, "generate featured image", "hero", err)
	}
	media, err := p.wp.UploadMedia(ctx, content.Slug(ev)+"-hero"+img.Extension(), img.MIMEType, img.Data, ev.DisplayTitle())
	if err != nil {
		return wordpress.ClassifyError(StageName, "upload featured image", err)
	}
	ev.Content.ImageID = media.ID
	ev.Content.ImageURL = media.SourceURL
	return nil
}

func (p *Publisher) HealthCheck(ctx context.Context) stage.Health {
	if p.wp == nil {
		return stage.Unhealthy(StageName, "wordpress credentials missing")
	}
	if strings.TrimSpace(p.cfg.WordPress.PostStatus) == "" {
		return stage.Unhealthy(StageName, "wordpress post status not set")
	}
	return stage.Healthy(StageName)
}
