// Package distribution shares published events on the enabled social
// platforms and records one outcome per platform.
package distribution

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"duendefinder/internal/config"
	"duendefinder/internal/events"
	"duendefinder/internal/logging"
	"duendefinder/internal/notifications"
	"duendefinder/internal/services"
	"duendefinder/internal/services/social"
	"duendefinder/internal/stage"
)

// StageName identifies the distribution stage in logs and errors.
const StageName = "distribution"

// Distributor implements stage.Handler for the distribution stage.
type Distributor struct {
	posters       []social.Poster
	platformDelay time.Duration
	notifier      notifications.Service
	logger        *slog.Logger
	now           func() time.Time
	sleep         func(context.Context, time.Duration) error
}

// New wires the distributor from configuration.
func New(cfg *config.Config, logger *slog.Logger, notifier notifications.Service) *Distributor {
	delay := time.Duration(cfg.Distribution.PlatformDelaySeconds) * time.Second
	return NewWithPosters(social.Enabled(cfg), delay, logger, notifier)
}

// NewWithPosters allows injecting platform clients (used in tests).
func NewWithPosters(posters []social.Poster, platformDelay time.Duration, logger *slog.Logger, notifier notifications.Service) *Distributor {
	return &Distributor{
		posters:       posters,
		platformDelay: platformDelay,
		notifier:      notifier,
		logger:        logging.NewComponentLogger(logger, StageName),
		now:           time.Now,
		sleep:         stage.Sleep,
	}
}

func (d *Distributor) SetLogger(logger *slog.Logger) {
	d.logger = logging.NewComponentLogger(logger, StageName)
}

// Platforms returns the enabled platforms in posting order.
func (d *Distributor) Platforms() []events.Platform {
	out := make([]events.Platform, len(d.posters))
	for i, p := range d.posters {
		out[i] = p.Platform()
	}
	return out
}

func (d *Distributor) Prepare(ctx context.Context, ev *events.Event) error {
	if err := stage.RequireEvent(StageName, ev); err != nil {
		return err
	}
	if err := stage.RequireFields(StageName, map[string]string{"blogPostUrl": ev.Publication.BlogPostURL}); err != nil {
		return err
	}
	if !events.ValidPostURL(ev.Publication.BlogPostURL) {
		return services.Wrap(services.ErrValidation, StageName, "validate event",
			"blogPostUrl is not an absolute http(s) URL", nil)
	}
	ev.ErrorMessage = ""
	return nil
}

// Execute posts to every platform in order. A platform failure is recorded
// and does not stop later platforms; the event is distributed once all were
// attempted. Platforms that already succeeded on an earlier claim are skipped.
func (d *Distributor) Execute(ctx context.Context, ev *events.Event) error {
	logger := logging.WithContext(ctx, d.logger)
	if len(d.posters) == 0 {
		return services.Wrap(services.ErrConfiguration, StageName, "distribute", "no social platform is enabled", nil)
	}

	msgBase := social.Message{
		Title:       ev.DisplayTitle(),
		Link:        ev.Publication.BlogPostURL,
		ImageURL:    firstNonEmpty(ev.Publication.FeaturedImageURL, ev.Content.ImageURL),
		Hashtags:    ev.Content.Hashtags,
		Description: ev.Content.Excerpt,
	}

	attempted, succeeded := 0, 0
	posted := false
	for _, poster := range d.posters {
		platform := poster.Platform()
		if prior, ok := ev.DistributionFor(platform); ok && prior.OK {
			logger.Info("platform already shared; skipping", logging.String(logging.FieldPlatform, string(platform)))
			attempted++
			succeeded++
			continue
		}
		if posted {
			if err := d.sleep(ctx, d.platformDelay); err != nil {
				return err
			}
		}
		posted = true

		msg := msgBase
		msg.Text = firstNonEmpty(ev.Content.SocialCaptions.For(platform), msgBase.Title)
		result, err := poster.Post(ctx, msg)
		if err != nil && errors.Is(err, context.Canceled) {
			return err
		}
		outcome := events.DistributionResult{
			Platform:    platform,
			OK:          err == nil,
			PostID:      result.PostID,
			URL:         result.URL,
			AttemptedAt: d.now().UTC(),
		}
		attempted++
		if err != nil {
			outcome.Error = strings.TrimSpace(err.Error())
			logging.WarnWithContext(logger, "platform post failed", "distribution_platform_failed",
				logging.String(logging.FieldPlatform, string(platform)),
				logging.Error(err),
				logging.String(logging.FieldImpact, "event is not shared on this platform"),
				logging.String(logging.FieldErrorHint, "check the platform credentials and rate limits"),
			)
		} else {
			succeeded++
			logger.Info("platform post created",
				logging.String(logging.FieldPlatform, string(platform)),
				logging.String("post_id", result.PostID),
				logging.String("post_url", result.URL),
			)
		}
		ev.RecordDistribution(outcome)
	}

	distributed := d.now().UTC()
	ev.DistributedAt = &distributed
	logger.Info("distribution completed",
		logging.Int("platforms_attempted", attempted),
		logging.Int("platforms_succeeded", succeeded),
	)
	if d.notifier != nil {
		if err := d.notifier.NotifyDistributed(ctx, ev.DisplayTitle(), succeeded, attempted); err != nil {
			logger.Debug("distribution notification failed", logging.Error(err))
		}
	}
	return nil
}

func (d *Distributor) HealthCheck(context.Context) stage.Health {
	if len(d.posters) == 0 {
		return stage.Unhealthy(StageName, "no social platform enabled")
	}
	names := make([]string, len(d.posters))
	for i, p := range d.posters {
		names[i] = string(p.Platform())
	}
	return stage.ReadyWith(StageName, strings.Join(names, ", "))
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
