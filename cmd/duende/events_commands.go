package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"duendefinder/internal/dedup"
	"duendefinder/internal/events"
)

func newEventsCommand(ctx *commandContext) *cobra.Command {
	eventsCmd := &cobra.Command{
		Use:   "events",
		Short: "Inspect and maintain stored events",
	}
	eventsCmd.AddCommand(newEventsListCommand(ctx))
	eventsCmd.AddCommand(newEventsShowCommand(ctx))
	eventsCmd.AddCommand(newEventsImportCommand(ctx))
	eventsCmd.AddCommand(newEventsRetryCommand(ctx))
	eventsCmd.AddCommand(newEventsResetCommand(ctx))
	eventsCmd.AddCommand(newEventsMigrateCommand(ctx))
	return eventsCmd
}

func newEventsListCommand(ctx *commandContext) *cobra.Command {
	var statusFlags []string
	var limit int
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List events, optionally filtered by status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			statuses, err := parseStatuses(statusFlags)
			if err != nil {
				return err
			}
			return ctx.withStore(cmd.Context(), func(store events.Store) error {
				list, err := store.List(cmd.Context(), events.Filter{Statuses: statuses, Limit: limit})
				if err != nil {
					return err
				}
				if jsonOutput {
					return writeJSON(cmd, list)
				}
				out := cmd.OutOrStdout()
				if len(list) == 0 {
					fmt.Fprintln(out, "No events found")
					return nil
				}
				colorize := shouldColorize(out)
				rows := make([][]string, 0, len(list))
				for _, e := range list {
					rows = append(rows, []string{e.ID, e.Date, truncate(e.DisplayTitle(), 48), colorStatus(e.Status, colorize), e.ErrorMessage})
				}
				fmt.Fprintln(out, renderTable([]string{"ID", "Date", "Title", "Status", "Error"}, rows, nil))
				return nil
			})
		},
	}
	cmd.Flags().StringSliceVarP(&statusFlags, "status", "s", nil, "Filter by status (repeatable or comma separated)")
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "Maximum events to list")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

func newEventsShowCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show one event in detail",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(cmd.Context(), func(store events.Store) error {
				e, err := store.Get(cmd.Context(), strings.TrimSpace(args[0]))
				if errors.Is(err, events.ErrNotFound) {
					return fmt.Errorf("event %s not found", args[0])
				}
				if err != nil {
					return err
				}
				if jsonOutput {
					return writeJSON(cmd, e)
				}
				renderEventDetail(cmd, e)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

func renderEventDetail(cmd *cobra.Command, e *events.Event) {
	out := cmd.OutOrStdout()
	colorize := shouldColorize(out)
	for _, line := range renderSectionHeader(e.DisplayTitle(), colorize) {
		fmt.Fprintln(out, line)
	}
	fmt.Fprintln(out, renderStatusLine("Status", statusKindFor(e.Status), statusLabel(e.Status), colorize))
	info := []struct{ label, value string }{
		{"ID", e.ID},
		{"Date", strings.TrimSpace(e.Date + " " + e.Time)},
		{"Artist", e.Artist},
		{"Venue", strings.Trim(e.Venue+", "+e.City, ", ")},
		{"Source", e.SourceURL},
		{"Blog post", e.Publication.BlogPostURL},
		{"Error", e.ErrorMessage},
	}
	for _, field := range info {
		if field.value == "" {
			continue
		}
		fmt.Fprintln(out, renderStatusLine(field.label, statusInfo, field.value, false))
	}
	fmt.Fprintln(out, renderStatusLine("Attempts", statusInfo,
		fmt.Sprintf("enrichment %d, publication %d", e.EnrichmentAttempts, e.PublishAttempts), false))
	for _, d := range e.Distributions {
		kind, detail := statusOK, d.URL
		if !d.OK {
			kind, detail = statusError, d.Error
		}
		fmt.Fprintln(out, renderStatusLine(titleCaser.String(string(d.Platform)), kind, detail, colorize))
	}
	for _, v := range events.CheckContract(e) {
		fmt.Fprintln(out, renderStatusLine("Contract", statusWarn, string(v.Kind)+": "+v.Detail, colorize))
	}
}

func newEventsImportCommand(ctx *commandContext) *cobra.Command {
	var allowDuplicates bool

	cmd := &cobra.Command{
		Use:   "import <file.json>",
		Short: "Insert events from a JSON file as pending",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			incoming, err := readEventsFile(args[0])
			if err != nil {
				return err
			}
			return ctx.withStore(cmd.Context(), func(store events.Store) error {
				seen := map[dedup.Key]bool{}
				if !allowDuplicates {
					existing, err := store.List(cmd.Context(), events.Filter{})
					if err != nil {
						return err
					}
					for _, e := range existing {
						if key, ok := dedup.KeyFor(e); ok {
							seen[key] = true
						}
					}
				}

				inserted, skipped := 0, 0
				for _, e := range incoming {
					if key, ok := dedup.KeyFor(e); ok && !allowDuplicates {
						if seen[key] {
							skipped++
							continue
						}
						seen[key] = true
					}
					if err := store.Insert(cmd.Context(), e); err != nil {
						return fmt.Errorf("insert %q: %w", e.DisplayTitle(), err)
					}
					inserted++
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Imported %d events (%d duplicates skipped)\n", inserted, skipped)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&allowDuplicates, "allow-duplicates", false, "Insert events even when the date, artist and name already exist")
	return cmd
}

// readEventsFile accepts a JSON array of events or a single event object.
func readEventsFile(path string) ([]*events.Event, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read events file: %w", err)
	}
	raw = bytes.TrimSpace(raw)
	var list []*events.Event
	if bytes.HasPrefix(raw, []byte("{")) {
		var single events.Event
		if err := json.Unmarshal(raw, &single); err != nil {
			return nil, fmt.Errorf("parse events file: %w", err)
		}
		list = []*events.Event{&single}
	} else if err := json.Unmarshal(raw, &list); err != nil {
		return nil, fmt.Errorf("parse events file: %w", err)
	}

	out := make([]*events.Event, 0, len(list))
	for i, e := range list {
		if e == nil {
			continue
		}
		e.Name = strings.TrimSpace(e.Name)
		e.Artist = strings.TrimSpace(e.Artist)
		e.Date = strings.TrimSpace(e.Date)
		if e.Date == "" || (e.Name == "" && e.Artist == "") {
			return nil, fmt.Errorf("event %d: date and a name or artist are required", i+1)
		}
		fresh := &events.Event{
			Name:        e.Name,
			Artist:      e.Artist,
			City:        strings.TrimSpace(e.City),
			Venue:       strings.TrimSpace(e.Venue),
			Date:        e.Date,
			Time:        strings.TrimSpace(e.Time),
			SourceURL:   strings.TrimSpace(e.SourceURL),
			Description: strings.TrimSpace(e.Description),
			Status:      events.StatusPending,
		}
		out = append(out, fresh)
	}
	return out, nil
}

func newEventsRetryCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "retry [id...]",
		Short: "Requeue failed events (all failed events when no id is given)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(cmd.Context(), func(store events.Store) error {
				n, err := store.RetryFailed(cmd.Context(), args...)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Requeued %d failed events\n", n)
				return nil
			})
		},
	}
}

func newEventsResetCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Release events stuck in a processing status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(cmd.Context(), func(store events.Store) error {
				n, err := store.ResetProcessing(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Released %d in-flight events\n", n)
				return nil
			})
		},
	}
}

func newEventsMigrateCommand(ctx *commandContext) *cobra.Command {
	var apply bool
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "migrate-status",
		Short: "Derive pipelineStatus for documents written before the unified status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(cmd.Context(), func(store events.Store) error {
				migrator, ok := store.(events.LegacyMigrator)
				if !ok {
					return errors.New("migrate-status requires the mongo backend")
				}
				report, err := migrator.MigrateLegacy(cmd.Context(), apply)
				if err != nil {
					return err
				}
				if jsonOutput {
					return writeJSON(cmd, report)
				}
				out := cmd.OutOrStdout()
				verb := "Would migrate"
				if report.Applied {
					verb = "Migrated"
				}
				fmt.Fprintf(out, "%s %d of %d legacy documents\n", verb, report.Migrated, report.Scanned)
				rows := make([][]string, 0, len(report.ByStatus))
				for _, status := range events.AllStatuses() {
					if n := report.ByStatus[status]; n > 0 {
						rows = append(rows, []string{statusLabel(status), strconv.Itoa(n)})
					}
				}
				if len(rows) > 0 {
					fmt.Fprintln(out, renderTable([]string{"Status", "Documents"}, rows, []columnAlignment{alignLeft, alignRight}))
				}
				if !report.Applied && report.Migrated > 0 {
					fmt.Fprintln(out, "Run again with --apply to write the changes")
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&apply, "apply", false, "Write the derived status (default is a dry run)")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output the report as JSON")
	return cmd
}

func parseStatuses(values []string) ([]events.Status, error) {
	var out []events.Status
	for _, value := range values {
		value = strings.TrimSpace(value)
		if value == "" {
			continue
		}
		status, ok := events.ParseStatus(value)
		if !ok {
			return nil, fmt.Errorf("unknown status %q", value)
		}
		out = append(out, status)
	}
	return out, nil
}

func colorStatus(status events.Status, colorize bool) string {
	label := string(status)
	if !colorize {
		return label
	}
	return statusKindColor(statusKindFor(status)) + label + ansiReset
}

func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit-1]) + "…"
}
