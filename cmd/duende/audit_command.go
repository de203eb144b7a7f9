package main

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"duendefinder/internal/audit"
	"duendefinder/internal/events"
)

func newAuditCommand(ctx *commandContext) *cobra.Command {
	var (
		formatFlag  string
		statusFlags []string
		limit       int
		staleAfter  time.Duration
		strict      bool
	)

	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Report contract violations, failures, stale claims and partial distributions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := parseFormat(formatFlag)
			if err != nil {
				return err
			}
			statuses, err := parseStatuses(statusFlags)
			if err != nil {
				return err
			}
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if staleAfter <= 0 {
				staleAfter = time.Duration(cfg.Workflow.HeartbeatTimeout) * time.Second
			}

			return ctx.withStore(cmd.Context(), func(store events.Store) error {
				report, err := audit.Run(cmd.Context(), store, audit.Options{
					Statuses:   statuses,
					Limit:      limit,
					StaleAfter: staleAfter,
				})
				if err != nil {
					return err
				}
				handled, err := writeStructured(cmd, format, report)
				if err != nil {
					return err
				}
				if !handled {
					renderAuditReport(cmd, report)
				}
				if strict && !report.Clean() {
					return errors.New("audit found problems")
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&formatFlag, "format", "f", formatTable, "Output format: table, json or yaml")
	cmd.Flags().StringSliceVarP(&statusFlags, "status", "s", nil, "Only audit events in these statuses")
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "Maximum events to scan")
	cmd.Flags().DurationVar(&staleAfter, "stale-after", 0, "Heartbeat age that marks a claim stale (default: workflow.heartbeat_timeout)")
	cmd.Flags().BoolVar(&strict, "strict", false, "Exit non-zero when the audit is not clean")
	return cmd
}

func renderAuditReport(cmd *cobra.Command, report *audit.Report) {
	out := cmd.OutOrStdout()
	colorize := shouldColorize(out)

	for _, line := range renderSectionHeader("Audit", colorize) {
		fmt.Fprintln(out, line)
	}
	fmt.Fprintln(out, renderStatusLine("Events scanned", statusInfo, strconv.Itoa(report.Scanned), false))
	summary := []struct {
		label string
		count int
	}{
		{"Contract violations", report.ViolationCount()},
		{"Failed", len(report.Failed)},
		{"Stale claims", len(report.Stale)},
		{"Partial shares", len(report.Partial)},
		{"Duplicates", report.Duplicates},
	}
	for _, s := range summary {
		kind := statusOK
		if s.count > 0 {
			kind = statusWarn
		}
		fmt.Fprintln(out, renderStatusLine(s.label, kind, strconv.Itoa(s.count), colorize))
	}

	if len(report.Violations) > 0 {
		rows := [][]string{}
		for _, group := range report.Violations {
			for _, v := range group.Violations {
				rows = append(rows, []string{string(group.Kind), v.EventID, string(v.Status), v.Detail})
			}
		}
		fmt.Fprintln(out)
		fmt.Fprintln(out, renderTable([]string{"Violation", "Event", "Status", "Detail"}, rows, nil))
	}

	sections := []struct {
		title string
		list  []audit.EventSummary
	}{
		{"Failed events", report.Failed},
		{"Stale claims", report.Stale},
		{"Partial distributions", report.Partial},
	}
	for _, section := range sections {
		if len(section.list) == 0 {
			continue
		}
		rows := make([][]string, 0, len(section.list))
		for _, e := range section.list {
			rows = append(rows, []string{e.ID, e.Date, truncate(e.Title, 40), string(e.Status), strconv.Itoa(e.Attempts), e.Detail})
		}
		fmt.Fprintln(out)
		fmt.Fprintln(out, section.title)
		fmt.Fprintln(out, renderTable([]string{"ID", "Date", "Title", "Status", "Attempts", "Detail"}, rows,
			[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignLeft}))
	}
	if report.Clean() {
		fmt.Fprintln(out, "No problems found")
	}
}
