package api

// dateTimeFormat is used for RFC3339 timestamps in API payloads.
const dateTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// EventItem describes an event in a transport-friendly format.
type EventItem struct {
	ID              string              `json:"id"`
	Name            string              `json:"name"`
	Artist          string              `json:"artist,omitempty"`
	City            string              `json:"city,omitempty"`
	Venue           string              `json:"venue,omitempty"`
	Date            string              `json:"date"`
	Time            string              `json:"time,omitempty"`
	Title           string              `json:"title"`
	Status          string              `json:"status"`
	ErrorMessage    string              `json:"errorMessage,omitempty"`
	Attempts        EventAttempts       `json:"attempts"`
	ImageURL        string              `json:"imageUrl,omitempty"`
	WordPressPostID int64               `json:"wordpressPostId,omitempty"`
	BlogPostURL     string              `json:"blogPostUrl,omitempty"`
	Distributions   []DistributionState `json:"distributions,omitempty"`
	LastHeartbeat   string              `json:"lastHeartbeat,omitempty"`
	StatusChangedAt string              `json:"statusChangedAt,omitempty"`
	CreatedAt       string              `json:"createdAt,omitempty"`
	UpdatedAt       string              `json:"updatedAt,omitempty"`
}

// EventAttempts reports the retry counters of the retryable stages.
type EventAttempts struct {
	Enrichment  int `json:"enrichment"`
	Publication int `json:"publication"`
}

// DistributionState is the last outcome recorded for one platform.
type DistributionState struct {
	Platform    string `json:"platform"`
	OK          bool   `json:"ok"`
	URL         string `json:"url,omitempty"`
	Error       string `json:"error,omitempty"`
	AttemptedAt string `json:"attemptedAt,omitempty"`
}

// EventListResponse wraps a collection of events.
type EventListResponse struct {
	Events []EventItem `json:"events"`
	Count  int         `json:"count"`
}

// EventResponse wraps a single event.
type EventResponse struct {
	Event EventItem `json:"event"`
}

// WorkflowStatus summarizes workflow execution state.
type WorkflowStatus struct {
	Running     bool           `json:"running"`
	Stages      []string       `json:"stages"`
	EventStats  map[string]int `json:"eventStats"`
	LastError   string         `json:"lastError,omitempty"`
	LastEvent   *EventItem     `json:"lastEvent,omitempty"`
	StageHealth []StageHealth  `json:"stageHealth"`
}

// StageHealth mirrors readiness reporting for workflow stages.
type StageHealth struct {
	Name   string `json:"name"`
	Ready  bool   `json:"ready"`
	Detail string `json:"detail,omitempty"`
}

// DashboardResponse aggregates the pipeline view shown by the dashboard.
type DashboardResponse struct {
	GeneratedAt string          `json:"generatedAt"`
	Counts      map[string]int  `json:"counts"`
	Total       int             `json:"total"`
	Workflow    *WorkflowStatus `json:"workflow,omitempty"`
}

// HealthResponse is returned by the health endpoint.
type HealthResponse struct {
	Status string `json:"status"`
	Store  string `json:"store"`
	Detail string `json:"detail,omitempty"`
}

// LogEvent is a structured daemon log line.
type LogEvent struct {
	Sequence      uint64            `json:"seq"`
	Timestamp     string            `json:"ts"`
	Level         string            `json:"level"`
	Message       string            `json:"msg"`
	Component     string            `json:"component,omitempty"`
	Stage         string            `json:"stage,omitempty"`
	EventID       string            `json:"eventId,omitempty"`
	CorrelationID string            `json:"correlationId,omitempty"`
	Fields        map[string]string `json:"fields,omitempty"`
}

// LogStreamResponse wraps log events and the cursor for the next poll.
type LogStreamResponse struct {
	Events []LogEvent `json:"events"`
	Next   uint64     `json:"next"`
}

// ErrorResponse is the body of every non-2xx reply.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
