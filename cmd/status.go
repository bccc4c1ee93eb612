package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/hazukari/sc3kit/internal/db"
	"github.com/hazukari/sc3kit/internal/registry"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the latest pipeline run and overall counts",
	RunE: func(cmd *cobra.Command, _ []string) error {
		dbConn, err := db.InitDB()
		if err != nil {
			return err
		}
		defer func() { _ = dbConn.Close() }()

		r := registry.New(dbConn)
		ctx := cmd.Context()
		out := cmd.OutOrStdout()

		last, err := r.LastRun(ctx)
		if err != nil {
			return err
		}
		if last == nil {
			fmt.Fprintln(out, "no runs recorded")
			return nil
		}

		fmt.Fprintf(out, "latest run: #%d (%s)\n", last.ID, last.Event)
		fmt.Fprintf(out, "- status: %s\n", last.Status)
		if last.Version != "" {
			fmt.Fprintf(out, "- version: %s\n", last.Version)
		}
		if last.Ref != "" {
			fmt.Fprintf(out, "- ref: %s\n", last.Ref)
		}
		if last.CommitSHA != "" {
			fmt.Fprintf(out, "- commit: %.12s %s\n", last.CommitSHA, firstMessageLine(last.CommitMessage))
		}
		fmt.Fprintf(out, "- started: %s\n", last.StartedAt.Local().Format("2006-01-02 15:04:05"))
		if last.FinishedAt != nil {
			fmt.Fprintf(out, "- duration: %s\n", last.FinishedAt.Sub(last.StartedAt).Round(time.Millisecond))
		}
		if last.Error != "" {
			fmt.Fprintf(out, "- error: %s\n", last.Error)
		}

		counts, err := r.RunCounts(ctx)
		if err != nil {
			return err
		}
		total := 0
		for _, n := range counts {
			total += n
		}
		fmt.Fprintf(out, "runs: %d total, %d succeeded, %d failed\n",
			total, counts[registry.RunSucceeded], counts[registry.RunFailed])
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
