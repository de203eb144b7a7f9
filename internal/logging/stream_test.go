package logging

import (
	"fmt"
	"log/slog"
	"testing"
)

func TestStreamHandlerCapturesAccumulatedAttrs(t *testing.T) {
	hub := NewStreamHub(10)
	logger := slog.New(newStreamHandler(NoopHandler{}, hub)).
		With(String(FieldComponent, "workflow")).
		With(String(FieldEventID, "evt-42"))

	logger.Info("stage complete", String(FieldStage, "distribution"), Int("platforms", 3))

	events, seq := hub.Tail(5)
	if len(events) != 1 || seq != 1 {
		t.Fatalf("expected one event at seq 1, got %d events seq %d", len(events), seq)
	}
	evt := events[0]
	if evt.Component != "workflow" || evt.EventID != "evt-42" || evt.Stage != "distribution" {
		t.Fatalf("unexpected event: %+v", evt)
	}
	if evt.Fields["platforms"] != "3" {
		t.Fatalf("expected extra field, got %v", evt.Fields)
	}
}

func TestStreamHubEvictsOldest(t *testing.T) {
	hub := NewStreamHub(3)
	for i := range 5 {
		hub.Publish(LogEvent{Message: fmt.Sprintf("line %d", i)})
	}
	events, seq := hub.Tail(10)
	if len(events) != 3 || seq != 5 {
		t.Fatalf("expected 3 events at seq 5, got %d at %d", len(events), seq)
	}
	if events[0].Message != "line 2" {
		t.Fatalf("expected oldest retained line 2, got %q", events[0].Message)
	}
}

func TestStreamHubSince(t *testing.T) {
	hub := NewStreamHub(10)
	for i := range 4 {
		hub.Publish(LogEvent{Message: fmt.Sprintf("line %d", i)})
	}
	events, seq := hub.Since(2, 1)
	if len(events) != 1 || events[0].Sequence != 3 || seq != 4 {
		t.Fatalf("unexpected since result: %+v seq %d", events, seq)
	}
}
