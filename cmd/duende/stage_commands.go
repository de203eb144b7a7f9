package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"duendefinder/internal/events"
	"duendefinder/internal/notifications"
	"duendefinder/internal/workflow"
)

type stageCommandDef struct {
	use   string
	short string
	stage string
}

func newStageCommands(ctx *commandContext) []*cobra.Command {
	defs := []stageCommandDef{
		{use: "enrich", short: "Generate content for pending events", stage: workflow.StageEnrichment},
		{use: "publish", short: "Publish enriched events to WordPress", stage: workflow.StagePublication},
		{use: "distribute", short: "Share published events on social platforms", stage: workflow.StageDistribution},
	}
	cmds := make([]*cobra.Command, 0, len(defs))
	for _, def := range defs {
		cmds = append(cmds, newStageCommand(ctx, def))
	}
	return cmds
}

func newStageCommand(ctx *commandContext, def stageCommandDef) *cobra.Command {
	var limit int
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   def.use,
		Short: def.short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.newLogger(nil)
			if err != nil {
				return err
			}
			notifier := notifications.NewService(cfg)
			set, err := buildStageSet(cfg, logger, notifier, def.stage)
			if err != nil {
				return err
			}

			return ctx.withStore(cmd.Context(), func(store events.Store) error {
				mgr := workflow.NewManagerWithNotifier(cfg, store, logger, notifier)
				mgr.ConfigureStages(set)

				result, runErr := mgr.RunStage(cmd.Context(), def.stage, limit)
				if jsonOutput {
					if err := writeJSON(cmd, result); err != nil {
						return err
					}
					return runErr
				}
				renderBatchResult(cmd, result)
				return runErr
			})
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "Maximum events to process (default: the stage batch size)")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output the batch result as JSON")
	return cmd
}

func renderBatchResult(cmd *cobra.Command, result workflow.BatchResult) {
	out := cmd.OutOrStdout()
	if result.Processed == 0 {
		fmt.Fprintf(out, "No events waiting for %s\n", result.Stage)
		return
	}
	rows := [][]string{
		{"Processed", strconv.Itoa(result.Processed)},
		{"Succeeded", strconv.Itoa(result.Succeeded)},
		{"Skipped", strconv.Itoa(result.Skipped)},
		{"Retried", strconv.Itoa(result.Retried)},
		{"Failed", strconv.Itoa(result.Failed)},
		{"Duration", result.Duration.Round(time.Millisecond).String()},
	}
	fmt.Fprintln(out, renderTable([]string{titleCaser.String(result.Stage), "Count"}, rows, []columnAlignment{alignLeft, alignRight}))
}
