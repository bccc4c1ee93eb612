package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/hazukari/sc3kit/internal/db"
	"github.com/hazukari/sc3kit/internal/registry"
)

var releasesCmd = &cobra.Command{
	Use:   "releases [tag]",
	Short: "List recorded releases",
	Long:  "List releases recorded by successful runs, newest first. With a tag, show that release in full.",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		dbConn, err := db.InitDB()
		if err != nil {
			return err
		}
		defer func() { _ = dbConn.Close() }()

		r := registry.New(dbConn)
		ctx := cmd.Context()
		out := cmd.OutOrStdout()

		if len(args) == 1 {
			rel, err := r.ReleaseByTag(ctx, args[0])
			if err != nil {
				return err
			}
			if rel == nil {
				return fmt.Errorf("release not found: %s", args[0])
			}
			fmt.Fprintf(out, "Tag: %s\n", rel.Tag)
			fmt.Fprintf(out, "Name: %s\n", rel.Name)
			fmt.Fprintf(out, "Target: %s\n", rel.TargetSHA)
			fmt.Fprintf(out, "Published: %s\n", rel.PublishedAt.Local().Format("2006-01-02 15:04:05"))
			if len(rel.Assets) > 0 {
				fmt.Fprintf(out, "Assets: %s\n", strings.Join(rel.Assets, ", "))
			}
			if rel.Checksums != "" {
				fmt.Fprintf(out, "Checksums:\n%s", rel.Checksums)
			}
			return nil
		}

		rels, err := r.ListReleases(ctx, limit)
		if err != nil {
			return err
		}
		if len(rels) == 0 {
			fmt.Fprintln(out, "no releases recorded")
			return nil
		}
		for _, rel := range rels {
			fmt.Fprintf(out, "%s\t%s\t%s\t%s\n",
				rel.Tag, rel.Name,
				rel.PublishedAt.Local().Format("2006-01-02 15:04:05"),
				strings.Join(rel.Assets, ", "))
		}
		return nil
	},
}

func init() {
	releasesCmd.Flags().Int("limit", 20, "Maximum number of releases to show")
	rootCmd.AddCommand(releasesCmd)
}
