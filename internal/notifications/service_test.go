package notifications_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"duendefinder/internal/config"
	"duendefinder/internal/notifications"
)

type captured struct {
	title    string
	message  string
	tags     string
	priority string
	click    string
}

func newCaptureServer(t *testing.T) (*httptest.Server, *[]captured) {
	t.Helper()
	var got []captured
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		got = append(got, captured{
			title:    r.Header.Get("Title"),
			message:  string(body),
			tags:     r.Header.Get("Tags"),
			priority: r.Header.Get("Priority"),
			click:    r.Header.Get("Click"),
		})
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(server.Close)
	return server, &got
}

func TestNewServiceReturnsNoopWhenTopicMissing(t *testing.T) {
	cfg := config.Default()
	svc := notifications.NewService(&cfg)
	if err := svc.NotifyPublished(context.Background(), "Noche", "https://blog.test/noche"); err != nil {
		t.Fatalf("expected noop notifier to return nil, got %v", err)
	}
}

func TestNtfyServiceFormatsPayloads(t *testing.T) {
	server, got := newCaptureServer(t)
	cfg := config.Default()
	cfg.Notifications.NtfyTopic = server.URL + "/duende"
	cfg.Notifications.Distributed = true
	svc := notifications.NewService(&cfg)
	ctx := context.Background()

	tests := []struct {
		name   string
		send   func() error
		expect captured
	}{
		{
			name: "enrichment failed",
			send: func() error { return svc.NotifyEnrichmentFailed(ctx, "Noche de Cante", "llm: status 500") },
			expect: captured{
				title:    "Duende Finder - Enrichment Failed",
				message:  "Enrichment failed: Noche de Cante\nllm: status 500",
				tags:     "duende,enrichment,warning",
				priority: "high",
			},
		},
		{
			name: "published",
			send: func() error { return svc.NotifyPublished(ctx, "Noche de Cante", "https://blog.test/noche") },
			expect: captured{
				title:   "Duende Finder - Published",
				message: "Published: Noche de Cante\nhttps://blog.test/noche",
				tags:    "duende,wordpress,published",
				click:   "https://blog.test/noche",
			},
		},
		{
			name: "distributed",
			send: func() error { return svc.NotifyDistributed(ctx, "Noche", 2, 3) },
			expect: captured{
				title:   "Duende Finder - Distributed",
				message: "Shared Noche on 2 of 3 platforms",
				tags:    "duende,social,distributed",
			},
		},
		{
			name: "batch with errors",
			send: func() error { return svc.NotifyBatchCompleted(ctx, "publication", 5, 1, 61*time.Second) },
			expect: captured{
				title:   "Duende Finder - Publication Batch Complete (with errors)",
				message: "Publication batch complete: 4 succeeded, 1 failed in 1m1s",
				tags:    "duende,publication,batch",
			},
		},
		{
			name: "error",
			send: func() error { return svc.NotifyError(ctx, errors.New("boom"), "daemon") },
			expect: captured{
				title:    "Duende Finder - Error",
				message:  "Error with daemon: boom",
				tags:     "duende,error,alert",
				priority: "high",
			},
		},
	}

	for i, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.send(); err != nil {
				t.Fatalf("send: %v", err)
			}
			if len(*got) != i+1 {
				t.Fatalf("expected %d requests, got %d", i+1, len(*got))
			}
			if last := (*got)[i]; last != tt.expect {
				t.Fatalf("unexpected payload\n got: %+v\nwant: %+v", last, tt.expect)
			}
		})
	}
}

func TestTogglesSuppressNotifications(t *testing.T) {
	server, got := newCaptureServer(t)
	cfg := config.Default()
	cfg.Notifications.NtfyTopic = server.URL
	cfg.Notifications.Published = false
	cfg.Notifications.Distributed = false
	svc := notifications.NewService(&cfg)

	ctx := context.Background()
	_ = svc.NotifyPublished(ctx, "x", "https://y")
	_ = svc.NotifyDistributed(ctx, "x", 1, 1)
	_ = svc.NotifyBatchCompleted(ctx, "enrichment", 0, 0, time.Second)
	if len(*got) != 0 {
		t.Fatalf("expected no requests, got %d", len(*got))
	}
	if err := svc.TestNotification(ctx); err != nil || len(*got) != 1 {
		t.Fatalf("test notification should always send: err=%v count=%d", err, len(*got))
	}
}

func TestNtfyServiceReportsHTTPErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "topic forbidden", http.StatusForbidden)
	}))
	defer server.Close()

	cfg := config.Default()
	cfg.Notifications.NtfyTopic = server.URL
	if err := notifications.NewService(&cfg).TestNotification(context.Background()); err == nil {
		t.Fatal("expected error for 403 response")
	}
}

func TestTopicURL(t *testing.T) {
	if got := notifications.TopicURL("duende-alerts"); got != "https://ntfy.sh/duende-alerts" {
		t.Fatalf("unexpected url %q", got)
	}
	if got := notifications.TopicURL("https://ntfy.example.com/x"); got != "https://ntfy.example.com/x" {
		t.Fatalf("unexpected url %q", got)
	}
}
