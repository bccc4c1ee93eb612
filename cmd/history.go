package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/hazukari/sc3kit/internal/db"
	"github.com/hazukari/sc3kit/internal/registry"
)

var historyCmd = &cobra.Command{
	Use:   "history [query]",
	Short: "Show pipeline run history",
	Long:  "Show pipeline run history, newest first. A query fuzzy-matches ref, commit message, version, and actor. Example:\n  sc3kit history 1.2",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		runID, _ := cmd.Flags().GetInt64("id")

		dbConn, err := db.InitDB()
		if err != nil {
			return err
		}
		defer func() { _ = dbConn.Close() }()

		r := registry.New(dbConn)
		ctx := cmd.Context()
		out := cmd.OutOrStdout()

		if runID != 0 {
			run, err := r.GetRun(ctx, runID)
			if err != nil {
				return err
			}
			if run == nil {
				return fmt.Errorf("run not found: %d", runID)
			}
			printRunLine(out, run)
			for _, st := range run.Steps {
				fmt.Fprintf(out, "  %d. %-8s %s\n", st.Position, st.Name, st.Status)
			}
			return nil
		}

		var runs []registry.Run
		if len(args) == 1 {
			runs, err = r.SearchRuns(ctx, args[0], limit)
		} else {
			runs, err = r.ListRuns(ctx, limit)
		}
		if err != nil {
			return err
		}
		if len(runs) == 0 {
			fmt.Fprintln(out, "no runs recorded")
			return nil
		}
		for i := range runs {
			printRunLine(out, &runs[i])
		}
		return nil
	},
}

func printRunLine(out io.Writer, run *registry.Run) {
	version := run.Version
	if version == "" {
		version = "-"
	}
	fmt.Fprintf(out, "#%d\t%s\t%s\t%s\t%s\t%s\n",
		run.ID, run.Event, run.Status, version,
		run.StartedAt.Local().Format("2006-01-02 15:04:05"),
		firstMessageLine(run.CommitMessage))
}

func firstMessageLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

func init() {
	historyCmd.Flags().Int("limit", 20, "Maximum number of runs to show")
	historyCmd.Flags().Int64("id", 0, "Show one run with its steps")
	rootCmd.AddCommand(historyCmd)
}
