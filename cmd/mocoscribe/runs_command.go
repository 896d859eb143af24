package main

import (
	"fmt"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"mocoscribe/internal/history"
)

func newRunsCommand(ctx *commandContext) *cobra.Command {
	var limitFlag int

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "Show recorded transcription runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openHistory(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			runs, err := store.List(cmd.Context(), limitFlag)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(runs) == 0 {
				fmt.Fprintln(out, "No runs recorded yet.")
				return nil
			}

			title := cases.Title(language.Und)
			headers := []string{"Started", "Source", "Minutes", "Segments", "Outcome", "Output"}
			aligns := []columnAlignment{alignLeft, alignLeft, alignRight, alignRight, alignLeft, alignLeft}
			rows := make([][]string, 0, len(runs))
			for _, run := range runs {
				outcome := title.String(run.Outcome)
				output := run.OutputPath
				if output == "" && run.ErrorMessage != "" {
					output = run.ErrorMessage
				}
				rows = append(rows, []string{
					run.StartedAt.Local().Format("2006-01-02 15:04"),
					filepath.Base(run.SourcePath),
					strconv.FormatFloat(run.DurationMinutes, 'f', 1, 64),
					strconv.Itoa(run.SegmentCount),
					outcome,
					output,
				})
			}
			fmt.Fprintln(out, renderTable(out, headers, rows, aligns))
			return nil
		},
	}
	cmd.Flags().IntVarP(&limitFlag, "limit", "n", 20, "Maximum number of runs to show (0 for all)")

	cmd.AddCommand(newRunsClearCommand(ctx))
	return cmd
}

func newRunsClearCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Delete all recorded runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openHistory(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			removed, err := store.Clear(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %d run(s).\n", removed)
			return nil
		},
	}
}

func openHistory(ctx *commandContext) (*history.Store, error) {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return nil, err
	}
	if !cfg.History.Enabled {
		return nil, fmt.Errorf("run history is disabled in the configuration")
	}
	return history.Open(cfg.History.Path)
}
