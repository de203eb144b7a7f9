package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/gofrs/flock"
	"github.com/spf13/cobra"

	"duendefinder/internal/config"
	"duendefinder/internal/events"
	"duendefinder/internal/preflight"
)

type statusReport struct {
	DaemonRunning bool                  `json:"daemonRunning"`
	Backend       string                `json:"backend"`
	Counts        map[events.Status]int `json:"counts,omitempty"`
	Checks        []preflight.Result    `json:"checks"`
}

// unreachableStore reports the open error through the store preflight check.
type unreachableStore struct{ err error }

func (u unreachableStore) Ping(context.Context) error { return u.err }

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show daemon state, event counts and preflight checks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			report := statusReport{Backend: cfg.Store.Backend, DaemonRunning: daemonRunning(cfg)}

			var pinger preflight.Pinger
			store, openErr := openStore(cmd.Context(), cfg)
			if openErr != nil {
				pinger = unreachableStore{err: openErr}
			} else {
				defer store.Close()
				pinger = store
				if report.Counts, err = store.Stats(cmd.Context()); err != nil {
					return err
				}
			}
			report.Checks = preflight.RunAll(cmd.Context(), cfg, pinger)

			if jsonOutput {
				return writeJSON(cmd, report)
			}
			renderStatus(cmd, report)
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

// daemonRunning tests the daemon lock without holding it.
func daemonRunning(cfg *config.Config) bool {
	lock := flock.New(cfg.LockPath())
	ok, err := lock.TryLock()
	if err != nil {
		return false
	}
	if ok {
		_ = lock.Unlock()
		return false
	}
	return true
}

func renderStatus(cmd *cobra.Command, report statusReport) {
	out := cmd.OutOrStdout()
	colorize := shouldColorize(out)

	for _, line := range renderSectionHeader("Daemon", colorize) {
		fmt.Fprintln(out, line)
	}
	if report.DaemonRunning {
		fmt.Fprintln(out, renderStatusLine("Daemon", statusOK, "running", colorize))
	} else {
		fmt.Fprintln(out, renderStatusLine("Daemon", statusInfo, "not running", colorize))
	}
	fmt.Fprintln(out, renderStatusLine("Store backend", statusInfo, report.Backend, false))

	if report.Counts != nil {
		fmt.Fprintln(out)
		rows := make([][]string, 0, len(events.AllStatuses()))
		total := 0
		for _, status := range events.AllStatuses() {
			n := report.Counts[status]
			total += n
			rows = append(rows, []string{statusLabel(status), strconv.Itoa(n)})
		}
		rows = append(rows, []string{"Total", strconv.Itoa(total)})
		fmt.Fprintln(out, renderTable([]string{"Status", "Events"}, rows, []columnAlignment{alignLeft, alignRight}))
	}

	fmt.Fprintln(out)
	for _, line := range renderSectionHeader("Checks", colorize) {
		fmt.Fprintln(out, line)
	}
	for _, check := range report.Checks {
		kind := statusOK
		if !check.Passed {
			kind = statusError
		}
		fmt.Fprintln(out, renderStatusLine(check.Name, kind, check.Detail, colorize))
	}
}
