package commands

import (
	"fmt"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/yasurirashmika/dtlc/internal/cli/config"
	"github.com/yasurirashmika/dtlc/internal/state"
)

// NewHistoryCommand creates the history command.
func NewHistoryCommand() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent runs",
		Long:  `List recent compile-and-execute runs from the history database, newest first.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := config.GetCurrentConfig()

			store, err := openStore(cfg.StatePath)
			if err != nil {
				return err
			}
			defer store.Close()

			runs, err := store.RecentRuns(limit)
			if err != nil {
				return err
			}
			if len(runs) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "(no runs recorded)")
				return nil
			}

			t := table.NewWriter()
			t.SetOutputMirror(cmd.OutOrStdout())
			t.SetStyle(table.StyleLight)
			t.AppendHeader(table.Row{"ID", "Script", "Status", "Warnings", "Output", "Started", "Duration"})

			for _, run := range runs {
				t.AppendRow(table.Row{
					shortID(run.ID),
					run.Script,
					run.Status,
					run.Warnings,
					run.OutputPath,
					run.StartedAt.Local().Format("2006-01-02 15:04:05"),
					runDuration(run),
				})
			}
			t.Render()
			fmt.Fprintf(cmd.OutOrStdout(), "(%d runs)\n", len(runs))
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of runs to show")

	return cmd
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func runDuration(run *state.Run) string {
	if run.CompletedAt == nil {
		return "-"
	}
	return run.CompletedAt.Sub(run.StartedAt).Round(time.Millisecond).String()
}
