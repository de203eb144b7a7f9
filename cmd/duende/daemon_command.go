package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"duendefinder/internal/daemon"
	"duendefinder/internal/logging"
	"duendefinder/internal/notifications"
	"duendefinder/internal/workflow"
)

func newDaemonCommand(ctx *commandContext) *cobra.Command {
	var skipChecks bool

	cmd := &cobra.Command{
		Use:   "daemon",
		Short: "Run every stage continuously until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDaemonProcess(cmd.Context(), ctx, !skipChecks)
		},
	}
	cmd.Flags().BoolVar(&skipChecks, "skip-checks", false, "Skip the startup preflight checks")
	return cmd
}

func runDaemonProcess(cmdCtx context.Context, ctx *commandContext, startupChecks bool) error {
	if cmdCtx == nil {
		cmdCtx = context.Background()
	}
	signalCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, err := ctx.ensureConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logHub := logging.NewStreamHub(4096)
	logger, err := ctx.newLogger(logHub)
	if err != nil {
		return err
	}

	store, err := openStore(signalCtx, cfg)
	if err != nil {
		logger.Error("open event store", logging.Error(err))
		return err
	}

	notifier := notifications.NewService(cfg)
	set, err := buildStageSet(cfg, logger, notifier)
	if err != nil {
		store.Close()
		return err
	}
	mgr := workflow.NewManagerWithOptions(cfg, store, logger, notifier, logHub,
		workflow.WithEventLogs(cfg.Logging.EventLogs),
		workflow.WithStartupChecks(startupChecks),
	)
	mgr.ConfigureStages(set)

	d, err := daemon.New(cfg, store, logger, mgr, daemon.WithLogHub(logHub))
	if err != nil {
		store.Close()
		return fmt.Errorf("create daemon: %w", err)
	}
	defer d.Close()

	if err := d.Start(signalCtx); err != nil {
		return err
	}
	if addr := d.APIAddress(); addr != "" {
		fmt.Fprintf(os.Stderr, "status API listening on http://%s\n", addr)
	}

	<-signalCtx.Done()
	logger.Info("duende daemon shutting down")
	return nil
}
