package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"duendefinder/internal/config"
)

const (
	userAgent       = "DuendeFinder/1.0"
	defaultNtfyBase = "https://ntfy.sh/"
)

// Service defines the notification surface exposed to the pipeline.
type Service interface {
	NotifyEnrichmentFailed(ctx context.Context, title, reason string) error
	NotifyPublished(ctx context.Context, title, url string) error
	NotifyDistributed(ctx context.Context, title string, succeeded, attempted int) error
	NotifyBatchCompleted(ctx context.Context, stage string, processed, failed int, duration time.Duration) error
	NotifyError(ctx context.Context, err error, context string) error
	TestNotification(ctx context.Context) error
}

// NewService builds an ntfy-backed service, or a noop when no topic is set.
func NewService(cfg *config.Config) Service {
	if cfg == nil {
		return noopService{}
	}
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}
	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &ntfyService{
		endpoint: TopicURL(topic),
		client:   &http.Client{Timeout: timeout},
		toggles:  cfg.Notifications,
	}
}

// TopicURL accepts a bare topic name or a full URL.
func TopicURL(topic string) string {
	topic = strings.TrimSpace(topic)
	if strings.HasPrefix(topic, "http://") || strings.HasPrefix(topic, "https://") {
		return topic
	}
	return defaultNtfyBase + strings.TrimLeft(topic, "/")
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
	click    string
}

type ntfyService struct {
	endpoint string
	client   *http.Client
	toggles  config.Notifications
}

func (n *ntfyService) NotifyEnrichmentFailed(ctx context.Context, title, reason string) error {
	if !n.toggles.EnrichmentFailed {
		return nil
	}
	message := fmt.Sprintf("Enrichment failed: %s", strings.TrimSpace(title))
	if reason = strings.TrimSpace(reason); reason != "" {
		message += "\n" + reason
	}
	return n.send(ctx, payload{
		title:    "Duende Finder - Enrichment Failed",
		message:  message,
		tags:     []string{"duende", "enrichment", "warning"},
		priority: "high",
	})
}

func (n *ntfyService) NotifyPublished(ctx context.Context, title, url string) error {
	if !n.toggles.Published {
		return nil
	}
	message := fmt.Sprintf("Published: %s", strings.TrimSpace(title))
	if url = strings.TrimSpace(url); url != "" {
		message += "\n" + url
	}
	return n.send(ctx, payload{
		title:   "Duende Finder - Published",
		message: message,
		tags:    []string{"duende", "wordpress", "published"},
		click:   url,
	})
}

func (n *ntfyService) NotifyDistributed(ctx context.Context, title string, succeeded, attempted int) error {
	if !n.toggles.Distributed {
		return nil
	}
	return n.send(ctx, payload{
		title:   "Duende Finder - Distributed",
		message: fmt.Sprintf("Shared %s on %d of %d platforms", strings.TrimSpace(title), succeeded, attempted),
		tags:    []string{"duende", "social", "distributed"},
	})
}

func (n *ntfyService) NotifyBatchCompleted(ctx context.Context, stage string, processed, failed int, duration time.Duration) error {
	if !n.toggles.Batch || processed == 0 {
		return nil
	}
	duration = max(duration.Round(time.Second), 0)
	title := fmt.Sprintf("Duende Finder - %s Batch Complete", stageLabel(stage))
	message := fmt.Sprintf("%s batch complete: %d events processed in %s", stageLabel(stage), processed, duration)
	if failed > 0 {
		title += " (with errors)"
		message = fmt.Sprintf("%s batch complete: %d succeeded, %d failed in %s", stageLabel(stage), processed-failed, failed, duration)
	}
	return n.send(ctx, payload{
		title:   title,
		message: message,
		tags:    []string{"duende", strings.ToLower(strings.TrimSpace(stage)), "batch"},
	})
}

func (n *ntfyService) NotifyError(ctx context.Context, err error, contextLabel string) error {
	if !n.toggles.Errors {
		return nil
	}
	var builder strings.Builder
	builder.WriteString("Error")
	if contextLabel = strings.TrimSpace(contextLabel); contextLabel != "" {
		builder.WriteString(" with ")
		builder.WriteString(contextLabel)
	}
	builder.WriteString(": ")
	if err != nil {
		builder.WriteString(strings.TrimSpace(err.Error()))
	} else {
		builder.WriteString("unknown")
	}
	return n.send(ctx, payload{
		title:    "Duende Finder - Error",
		message:  builder.String(),
		tags:     []string{"duende", "error", "alert"},
		priority: "high",
	})
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	return n.send(ctx, payload{
		title:    "Duende Finder - Test",
		message:  "Notification system test",
		tags:     []string{"duende", "test"},
		priority: "low",
	})
}

func (n *ntfyService) send(ctx context.Context, data payload) error {
	if n == nil || n.client == nil {
		return nil
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.message))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if data.title != "" {
		req.Header.Set("Title", data.title)
	}
	if len(data.tags) > 0 {
		req.Header.Set("Tags", strings.Join(data.tags, ","))
	}
	if data.priority != "" && data.priority != "default" {
		req.Header.Set("Priority", data.priority)
	}
	if data.click != "" {
		req.Header.Set("Click", data.click)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

func stageLabel(stage string) string {
	stage = strings.TrimSpace(stage)
	if stage == "" {
		return "Pipeline"
	}
	return strings.ToUpper(stage[:1]) + stage[1:]
}

type noopService struct{}

func (noopService) NotifyEnrichmentFailed(context.Context, string, string) error { return nil }
func (noopService) NotifyPublished(context.Context, string, string) error        { return nil }
func (noopService) NotifyDistributed(context.Context, string, int, int) error    { return nil }
func (noopService) NotifyBatchCompleted(context.Context, string, int, int, time.Duration) error {
	return nil
}
func (noopService) NotifyError(context.Context, error, string) error { return nil }
func (noopService) TestNotification(context.Context) error           { return nil }
