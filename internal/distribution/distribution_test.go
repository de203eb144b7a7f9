package distribution

import (
	"context"
	"errors"
	"testing"
	"time"

	"duendefinder/internal/events"
	"duendefinder/internal/services"
	"duendefinder/internal/services/social"
)

type fakePoster struct {
	platform events.Platform
	err      error
	messages []social.Message
}

func (f *fakePoster) Platform() events.Platform { return f.platform }

func (f *fakePoster) Post(_ context.Context, msg social.Message) (social.Result, error) {
	f.messages = append(f.messages, msg)
	if f.err != nil {
		return social.Result{}, f.err
	}
	return social.Result{PostID: string(f.platform) + "-1", URL: "https://" + string(f.platform) + ".test/1"}, nil
}

func publishedEvent() *events.Event {
	return &events.Event{
		ID:     "ev-1",
		Name:   "Noche de Cante",
		Date:   "2025-03-14",
		Status: events.StatusDistributing,
		Content: events.ContentPackage{
			BlogPostTitle:  "Estrella in Granada",
			SocialCaptions: events.SocialCaptions{Reddit: "Estrella Morente live in Granada"},
			Hashtags:       []string{"flamenco"},
			ImageURL:       "https://blog.test/hero.png",
		},
		Publication: events.Publication{WordPressPostID: 9, BlogPostURL: "https://blog.test/estrella/"},
	}
}

func newDistributor(posters ...social.Poster) (*Distributor, *[]time.Duration) {
	var slept []time.Duration
	d := NewWithPosters(posters, 2*time.Second, nil, nil)
	d.sleep = func(_ context.Context, delay time.Duration) error {
		slept = append(slept, delay)
		return nil
	}
	d.now = func() time.Time { return time.Date(2025, 3, 3, 8, 0, 0, 0, time.UTC) }
	return d, &slept
}

func TestExecuteAttemptsEveryPlatform(t *testing.T) {
	pinterest := &fakePoster{platform: events.PlatformPinterest}
	reddit := &fakePoster{platform: events.PlatformReddit, err: errors.New("reddit: status 429")}
	x := &fakePoster{platform: events.PlatformX}
	d, slept := newDistributor(pinterest, reddit, x)
	ev := publishedEvent()

	if err := d.Prepare(context.Background(), ev); err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	if err := d.Execute(context.Background(), ev); err != nil {
		t.Fatalf("Execute: %v", err)
	}

	if len(ev.Distributions) != 3 || ev.DistributedAt == nil {
		t.Fatalf("expected three outcomes and distributedAt, got %+v", ev.Distributions)
	}
	if got, _ := ev.DistributionFor(events.PlatformReddit); got.OK || got.Error == "" {
		t.Fatalf("reddit failure not recorded: %+v", got)
	}
	if got, _ := ev.DistributionFor(events.PlatformX); !got.OK || got.PostID != "x-1" {
		t.Fatalf("x success not recorded: %+v", got)
	}
	if len(*slept) != 2 {
		t.Fatalf("expected a delay between platforms, got %v", *slept)
	}
	if pinterest.messages[0].Text != "Estrella in Granada" {
		t.Fatalf("pinterest caption should fall back to title, got %q", pinterest.messages[0].Text)
	}
	if reddit.messages[0].Text != "Estrella Morente live in Granada" || reddit.messages[0].Link != "https://blog.test/estrella/" {
		t.Fatalf("unexpected reddit message %+v", reddit.messages[0])
	}
	ev.Status = events.StatusDistributed
	if v := events.CheckContract(ev); len(v) != 0 {
		t.Fatalf("distributed contract violated: %+v", v)
	}
}

func TestExecuteSkipsPlatformsAlreadyShared(t *testing.T) {
	pinterest := &fakePoster{platform: events.PlatformPinterest}
	x := &fakePoster{platform: events.PlatformX}
	d, _ := newDistributor(pinterest, x)
	ev := publishedEvent()
	ev.RecordDistribution(events.DistributionResult{Platform: events.PlatformPinterest, OK: true, PostID: "old"})

	if err := d.Execute(context.Background(), ev); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if len(pinterest.messages) != 0 || len(x.messages) != 1 {
		t.Fatalf("pinterest should be skipped: pinterest=%d x=%d", len(pinterest.messages), len(x.messages))
	}
	if got, _ := ev.DistributionFor(events.PlatformPinterest); got.PostID != "old" {
		t.Fatalf("prior outcome overwritten: %+v", got)
	}
}

func TestPrepareRequiresBlogURL(t *testing.T) {
	d, _ := newDistributor(&fakePoster{platform: events.PlatformX})
	ev := publishedEvent()
	ev.Publication.BlogPostURL = "/relative"
	if err := d.Prepare(context.Background(), ev); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestExecuteWithoutPlatforms(t *testing.T) {
	d, _ := newDistributor()
	if err := d.Execute(context.Background(), publishedEvent()); !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
	if h := d.HealthCheck(context.Background()); h.Ready {
		t.Fatal("expected unhealthy without platforms")
	}
}
