package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"duendefinder/internal/api"
	"duendefinder/internal/config"
	"duendefinder/internal/events"
	"duendefinder/internal/logs"
	"duendefinder/internal/workflow"
)

type logsOptions struct {
	eventID   string
	component string
	lines     int
	follow    bool
	useAPI    bool
}

func newLogsCommand(ctx *commandContext) *cobra.Command {
	var opts logsOptions

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Show daemon logs, or one event's stage log with --event",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if opts.useAPI {
				return streamAPILogs(cmd, cfg, opts)
			}
			return tailLogFile(cmd, cfg, opts)
		},
	}
	cmd.Flags().StringVarP(&opts.eventID, "event", "e", "", "Show the per-event log for this event id")
	cmd.Flags().StringVar(&opts.component, "component", "", "Filter API log lines by component")
	cmd.Flags().IntVarP(&opts.lines, "lines", "n", 50, "Number of trailing lines to show")
	cmd.Flags().BoolVarP(&opts.follow, "follow", "f", false, "Keep printing new lines until interrupted")
	cmd.Flags().BoolVar(&opts.useAPI, "api", false, "Read from the running daemon's status API instead of log files")
	return cmd
}

func tailLogFile(cmd *cobra.Command, cfg *config.Config, opts logsOptions) error {
	if opts.component != "" {
		return errors.New("--component requires --api")
	}
	path := cfg.LogFilePath()
	if opts.eventID != "" {
		eventPath, err := workflow.NewEventLogger(cfg, nil).Path(&events.Event{ID: opts.eventID})
		if err != nil {
			return err
		}
		path = eventPath
	}

	out := cmd.OutOrStdout()
	lines, offset, err := logs.Last(path, opts.lines)
	if err != nil {
		return err
	}
	if len(lines) == 0 && !opts.follow {
		fmt.Fprintf(out, "No log lines at %s\n", path)
		return nil
	}
	for _, line := range lines {
		fmt.Fprintln(out, line)
	}
	if !opts.follow {
		return nil
	}
	err = logs.Follow(cmd.Context(), path, offset, 250*time.Millisecond, func(line string) {
		fmt.Fprintln(out, line)
	})
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func streamAPILogs(cmd *cobra.Command, cfg *config.Config, opts logsOptions) error {
	if !cfg.API.Enabled {
		return errors.New("api.enabled is false; read the log files instead")
	}
	client, err := logs.NewStreamClient(cfg.API.Bind, cfg.API.Token)
	if err != nil {
		return err
	}
	query := logs.StreamQuery{Limit: opts.lines, EventID: opts.eventID, Component: opts.component}
	out := cmd.OutOrStdout()
	for {
		resp, err := client.Fetch(cmd.Context(), query)
		if err != nil {
			if logs.IsAPIUnavailable(err) {
				return fmt.Errorf("daemon API not reachable at %s; is `duende daemon` running?", cfg.API.Bind)
			}
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		}
		printLogEvents(out, resp.Events)
		if !opts.follow {
			return nil
		}
		query.Since = resp.Next
		query.Limit = 0
		select {
		case <-cmd.Context().Done():
			return nil
		case <-time.After(time.Second):
		}
	}
}

func printLogEvents(out io.Writer, list []api.LogEvent) {
	for _, evt := range list {
		line := fmt.Sprintf("%s %-5s %s", evt.Timestamp, evt.Level, evt.Message)
		if evt.Component != "" {
			line += " component=" + evt.Component
		}
		if evt.EventID != "" {
			line += " event=" + evt.EventID
		}
		fmt.Fprintln(out, line)
	}
}
