package main

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"duendefinder/internal/config"
	"duendefinder/internal/events"
	"duendefinder/internal/events/mongostore"
	"duendefinder/internal/events/sqlitestore"
	"duendefinder/internal/logging"
	"duendefinder/internal/mongodb"
)

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

func (c *commandContext) configPath() string {
	if c.configFlag == nil {
		return ""
	}
	return strings.TrimSpace(*c.configFlag)
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		cfg, _, _, err := config.Load(c.configPath())
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

// withStore opens the configured event store for the duration of fn.
func (c *commandContext) withStore(ctx context.Context, fn func(events.Store) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	store, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer store.Close()
	return fn(store)
}

// newLogger builds a logger for one-shot commands. hub may be nil.
func (c *commandContext) newLogger(hub *logging.StreamHub) (*slog.Logger, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	logger, err := logging.NewFromConfig(cfg, hub)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	return logger, nil
}

func openStore(ctx context.Context, cfg *config.Config) (events.Store, error) {
	switch cfg.Store.Backend {
	case config.BackendSQLite:
		store, err := sqlitestore.Open(ctx, cfg.Store.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("open sqlite store: %w", err)
		}
		return store, nil
	default:
		store, err := mongostore.Open(ctx, mongodb.Options{
			URI:            cfg.Mongo.URI,
			ConnectTimeout: time.Duration(cfg.Mongo.ConnectTimeoutSeconds) * time.Second,
			AppName:        "duende",
		}, cfg.Mongo.Database, cfg.Mongo.Collection)
		if err != nil {
			return nil, fmt.Errorf("open mongo store: %w", err)
		}
		return store, nil
	}
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
