package workflow

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"duendefinder/internal/config"
	"duendefinder/internal/events"
	"duendefinder/internal/logging"
	"duendefinder/internal/notifications"
	"duendefinder/internal/stage"
)

// Manager coordinates event processing using registered stage handlers.
type Manager struct {
	cfg          *config.Config
	store        events.Store
	logger       *slog.Logger
	pollInterval time.Duration
	retryWait    time.Duration
	notifier     notifications.Service

	heartbeat *HeartbeatMonitor
	eventLogs *EventLogger
	preflight bool

	lanes     map[string]*laneState
	laneOrder []string

	mu        sync.RWMutex
	running   bool
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	lastErr   error
	lastEvent *events.Event

	sleep func(context.Context, time.Duration) error
}

// ManagerOption configures optional Manager behavior.
type ManagerOption func(*managerOptions)

type managerOptions struct {
	eventLogs bool
	preflight bool
}

// WithEventLogs writes each event's stage logs to its own file under the log directory.
func WithEventLogs(enabled bool) ManagerOption {
	return func(o *managerOptions) {
		o.eventLogs = enabled
	}
}

// WithStartupChecks runs the preflight checks when Start is called and logs the results.
func WithStartupChecks(enabled bool) ManagerOption {
	return func(o *managerOptions) {
		o.preflight = enabled
	}
}

// NewManager constructs a new workflow manager.
func NewManager(cfg *config.Config, store events.Store, logger *slog.Logger) *Manager {
	return NewManagerWithOptions(cfg, store, logger, notifications.NewService(cfg), nil)
}

// NewManagerWithNotifier constructs a workflow manager with a custom notifier (used in tests).
func NewManagerWithNotifier(cfg *config.Config, store events.Store, logger *slog.Logger, notifier notifications.Service) *Manager {
	return NewManagerWithOptions(cfg, store, logger, notifier, nil)
}

// NewManagerWithOptions constructs a workflow manager with full configuration.
func NewManagerWithOptions(cfg *config.Config, store events.Store, logger *slog.Logger, notifier notifications.Service, logHub *logging.StreamHub, opts ...ManagerOption) *Manager {
	options := &managerOptions{}
	for _, opt := range opts {
		opt(options)
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	m := &Manager{
		cfg:          cfg,
		store:        store,
		logger:       logger,
		notifier:     notifier,
		pollInterval: seconds(cfg.Workflow.PollInterval),
		retryWait:    seconds(cfg.Workflow.ErrorRetryInterval),
		heartbeat: NewHeartbeatMonitor(
			store,
			logger,
			seconds(cfg.Workflow.HeartbeatInterval),
			seconds(cfg.Workflow.HeartbeatTimeout),
		),
		preflight: options.preflight,
		lanes:     make(map[string]*laneState),
		sleep:     stage.Sleep,
	}
	if options.eventLogs {
		m.eventLogs = NewEventLogger(cfg, logHub)
	}
	return m
}
