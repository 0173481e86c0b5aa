package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/harrison/relmatrix/internal/history"
)

// NewHistoryCommand creates the history command
func NewHistoryCommand() *cobra.Command {
	var dbPath string
	var limit int

	cmd := &cobra.Command{
		Use:   "history [run-id]",
		Short: "Show recorded matrix runs",
		Long: `History lists recent matrix runs recorded in the history database.
With a run ID argument, it prints that run's per-unit outcomes instead.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := history.NewStore(dbPath)
			if err != nil {
				return err
			}
			defer store.Close()

			out := cmd.OutOrStdout()

			if len(args) == 1 {
				leaves, err := store.RunLeaves(args[0])
				if err != nil {
					return err
				}
				if len(leaves) == 0 {
					fmt.Fprintf(out, "no leaves recorded for run %s\n", args[0])
					return nil
				}
				for _, leaf := range leaves {
					status := "PASSED"
					if !leaf.Passed {
						status = "FAILED"
					}
					fmt.Fprintf(out, "%s  %s/%s/%s/%s\n", status, leaf.Interface, leaf.Version, leaf.Role, leaf.Charm)
				}
				return nil
			}

			runs, err := store.ListRuns(limit)
			if err != nil {
				return err
			}
			if len(runs) == 0 {
				fmt.Fprintln(out, "no runs recorded")
				return nil
			}
			for _, run := range runs {
				fmt.Fprintf(out, "%s  %s  %d unit(s), %d failed\n",
					run.ID,
					run.StartedAt.Local().Format("2006-01-02 15:04:05"),
					run.Total,
					run.Failed)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&dbPath, "db", ".relmatrix/history.db", "Path to the history database")
	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum number of runs to list")

	return cmd
}
