package logging

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"
)

// LogEvent is one structured log line retained by the hub.
type LogEvent struct {
	Sequence      uint64            `json:"seq"`
	Timestamp     time.Time         `json:"ts"`
	Level         string            `json:"level"`
	Message       string            `json:"msg"`
	Component     string            `json:"component,omitempty"`
	Stage         string            `json:"stage,omitempty"`
	EventID       string            `json:"event_id,omitempty"`
	CorrelationID string            `json:"correlation_id,omitempty"`
	Fields        map[string]string `json:"fields,omitempty"`
}

// StreamHub keeps a bounded window of recent log events for the daemon API.
type StreamHub struct {
	mu       sync.Mutex
	capacity int
	buffer   []LogEvent
	nextSeq  uint64
}

// NewStreamHub constructs a hub holding at most capacity events.
func NewStreamHub(capacity int) *StreamHub {
	if capacity <= 0 {
		capacity = 512
	}
	return &StreamHub{capacity: capacity}
}

// Publish appends an event, evicting the oldest when full.
func (h *StreamHub) Publish(evt LogEvent) {
	if h == nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.nextSeq++
	evt.Sequence = h.nextSeq
	if evt.Timestamp.IsZero() {
		evt.Timestamp = time.Now().UTC()
	}
	if len(h.buffer) == h.capacity {
		copy(h.buffer, h.buffer[1:])
		h.buffer = h.buffer[:h.capacity-1]
	}
	h.buffer = append(h.buffer, evt)
}

// Since returns up to limit events newer than seq, oldest first, plus the
// latest sequence number.
func (h *StreamHub) Since(seq uint64, limit int) ([]LogEvent, uint64) {
	if h == nil {
		return nil, 0
	}
	if limit <= 0 || limit > h.capacity {
		limit = h.capacity
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]LogEvent, 0, limit)
	for _, evt := range h.buffer {
		if evt.Sequence <= seq {
			continue
		}
		out = append(out, evt)
		if len(out) == limit {
			break
		}
	}
	return out, h.nextSeq
}

// Tail returns the most recent limit events.
func (h *StreamHub) Tail(limit int) ([]LogEvent, uint64) {
	if h == nil {
		return nil, 0
	}
	if limit <= 0 || limit > h.capacity {
		limit = h.capacity
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	start := max(len(h.buffer)-limit, 0)
	out := make([]LogEvent, len(h.buffer)-start)
	copy(out, h.buffer[start:])
	return out, h.nextSeq
}

type streamHandler struct {
	next  slog.Handler
	hub   *StreamHub
	attrs []slog.Attr
}

func newStreamHandler(next slog.Handler, hub *StreamHub) slog.Handler {
	return &streamHandler{next: next, hub: hub}
}

func (h *streamHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

func (h *streamHandler) Handle(ctx context.Context, record slog.Record) error {
	h.hub.Publish(eventFromRecord(record, h.attrs))
	return h.next.Handle(ctx, record)
}

func (h *streamHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &streamHandler{
		next:  h.next.WithAttrs(attrs),
		hub:   h.hub,
		attrs: append(append([]slog.Attr(nil), h.attrs...), attrs...),
	}
}

func (h *streamHandler) WithGroup(name string) slog.Handler {
	return &streamHandler{next: h.next.WithGroup(name), hub: h.hub, attrs: h.attrs}
}

func eventFromRecord(record slog.Record, pre []slog.Attr) LogEvent {
	event := LogEvent{
		Timestamp: record.Time.UTC(),
		Level:     strings.ToLower(record.Level.String()),
		Message:   strings.TrimSpace(record.Message),
	}
	apply := func(attr slog.Attr) {
		value := valueString(attr.Value)
		switch attr.Key {
		case "":
			return
		case FieldComponent:
			event.Component = value
		case FieldStage:
			event.Stage = value
		case FieldEventID:
			event.EventID = value
		case FieldCorrelationID:
			event.CorrelationID = value
		default:
			if event.Fields == nil {
				event.Fields = make(map[string]string)
			}
			event.Fields[attr.Key] = value
		}
	}
	for _, attr := range pre {
		apply(attr)
	}
	record.Attrs(func(attr slog.Attr) bool {
		apply(attr)
		return true
	})
	return event
}
