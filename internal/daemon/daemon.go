package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"

	"github.com/gofrs/flock"

	"duendefinder/internal/api"
	"duendefinder/internal/config"
	"duendefinder/internal/events"
	"duendefinder/internal/logging"
	"duendefinder/internal/notifications"
	"duendefinder/internal/workflow"
)

// Daemon runs the workflow lanes and enforces single-instance execution.
type Daemon struct {
	cfg      *config.Config
	logger   *slog.Logger
	store    events.Store
	workflow *workflow.Manager
	logHub   *logging.StreamHub

	lockPath string
	lock     *flock.Flock
	api      *api.Server

	running atomic.Bool
	cancel  context.CancelFunc
}

// Status represents daemon runtime information.
type Status struct {
	Running      bool                   `json:"running"`
	Backend      string                 `json:"backend"`
	LockFilePath string                 `json:"lockFilePath"`
	APIAddress   string                 `json:"apiAddress,omitempty"`
	Workflow     workflow.StatusSummary `json:"workflow"`
}

// Option customises a Daemon.
type Option func(*Daemon)

// WithLogHub exposes the hub's recent log lines on the status API.
func WithLogHub(hub *logging.StreamHub) Option {
	return func(d *Daemon) { d.logHub = hub }
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, store events.Store, logger *slog.Logger, wf *workflow.Manager, opts ...Option) (*Daemon, error) {
	if cfg == nil || store == nil || logger == nil || wf == nil {
		return nil, errors.New("daemon requires config, store, logger, and workflow manager")
	}
	lockPath := cfg.LockPath()
	d := &Daemon{
		cfg:      cfg,
		logger:   logging.NewComponentLogger(logger, "daemon"),
		store:    store,
		workflow: wf,
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

// Start acquires the daemon lock, launches the workflow lanes, and serves the
// status API when enabled.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}
	if err := d.cfg.EnsureDirectories(); err != nil {
		return err
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another duende daemon instance is already running")
	}

	runCtx, cancel := context.WithCancel(ctx)
	if err := d.workflow.Start(runCtx); err != nil {
		cancel()
		_ = d.lock.Unlock()
		return fmt.Errorf("start workflow: %w", err)
	}

	if d.cfg.API.Enabled {
		router := api.NewRouter(api.Options{
			Events:   d.store,
			Workflow: d.workflow,
			Logs:     d.logHub,
			Token:    d.cfg.API.Token,
			Logger:   d.logger,
		})
		server := api.NewServer(d.cfg.API.Bind, router, d.logger)
		if err := server.Start(runCtx); err != nil {
			cancel()
			d.workflow.Stop()
			_ = d.lock.Unlock()
			return err
		}
		d.api = server
	}

	d.cancel = cancel
	d.running.Store(true)
	d.logger.Info("duende daemon started",
		logging.String("lock", d.lockPath),
		logging.String("backend", d.cfg.Store.Backend),
		logging.Any("stages", d.workflow.Stages()),
	)
	return nil
}

// Stop stops background processing and releases the daemon lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}
	if d.api != nil {
		d.api.Stop()
		d.api = nil
	}
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.workflow.Stop()
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.running.Store(false)
	d.logger.Info("duende daemon stopped")
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	if d.store != nil {
		return d.store.Close()
	}
	return nil
}

// ResetProcessing rolls in-flight events back to their stage start status.
func (d *Daemon) ResetProcessing(ctx context.Context) (int64, error) {
	return d.store.ResetProcessing(ctx)
}

// RetryFailed requeues failed events; with no ids every failed event is requeued.
func (d *Daemon) RetryFailed(ctx context.Context, ids []string) (int64, error) {
	return d.store.RetryFailed(ctx, ids...)
}

// TestNotification triggers a test notification using the current configuration.
func (d *Daemon) TestNotification(ctx context.Context) (bool, string, error) {
	if strings.TrimSpace(d.cfg.Notifications.NtfyTopic) == "" {
		return false, "ntfy topic not configured", nil
	}
	notifier := notifications.NewService(d.cfg)
	if err := notifier.TestNotification(ctx); err != nil {
		return false, "failed to send notification", err
	}
	return true, "test notification sent", nil
}

// LogPath returns the path to the daemon log file.
func (d *Daemon) LogPath() string {
	return d.cfg.LogFilePath()
}

// APIAddress returns the bound status API address, or "" when disabled.
func (d *Daemon) APIAddress() string {
	return d.api.Addr()
}

// Status returns the current daemon status.
func (d *Daemon) Status(ctx context.Context) Status {
	return Status{
		Running:      d.running.Load(),
		Backend:      d.cfg.Store.Backend,
		LockFilePath: d.lockPath,
		APIAddress:   d.APIAddress(),
		Workflow:     d.workflow.Status(ctx),
	}
}
