package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"duendefinder/internal/dedup"
	"duendefinder/internal/events"
)

func newDedupCommand(ctx *commandContext) *cobra.Command {
	var apply bool
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "dedup",
		Short: "Find events sharing date, artist and name (dry run unless --apply)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(cmd.Context(), func(store events.Store) error {
				all, err := store.List(cmd.Context(), events.Filter{})
				if err != nil {
					return err
				}
				report := dedup.Plan(all)

				var deleted int64
				if apply {
					if deleted, err = dedup.Apply(cmd.Context(), store, report); err != nil {
						return err
					}
				}
				if jsonOutput {
					return writeJSON(cmd, report)
				}

				out := cmd.OutOrStdout()
				if report.Duplicates == 0 {
					fmt.Fprintf(out, "No duplicates among %d events\n", report.Scanned)
					return nil
				}
				rows := make([][]string, 0, len(report.Groups))
				for _, g := range report.Groups {
					remove := make([]string, 0, len(g.Remove))
					for _, e := range g.Remove {
						remove = append(remove, e.ID+" ("+string(e.Status)+")")
					}
					rows = append(rows, []string{g.Key.String(), g.Keep.ID + " (" + string(g.Keep.Status) + ")", strings.Join(remove, "\n")})
				}
				fmt.Fprintln(out, renderTable([]string{"Key", "Keep", "Remove"}, rows, nil))
				if apply {
					fmt.Fprintf(out, "Deleted %d duplicate events\n", deleted)
				} else {
					fmt.Fprintf(out, "%d duplicates found; run with --apply to delete them\n", report.Duplicates)
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&apply, "apply", false, "Delete the duplicates")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output the plan as JSON")
	return cmd
}
