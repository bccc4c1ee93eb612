package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/hazukari/sc3kit/internal/manifest"
)

var verifyCmd = &cobra.Command{
	Use:   "verify [dir]",
	Short: "Verify downloaded release artifacts against a SHA256SUMS manifest",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dir := "."
		if len(args) == 1 {
			dir = args[0]
		}
		manifestPath, _ := cmd.Flags().GetString("manifest")
		if manifestPath == "" {
			manifestPath = filepath.Join(dir, "SHA256SUMS")
		}
		entries, err := manifest.Load(manifestPath)
		if err != nil {
			return err
		}
		results, err := manifest.VerifyDir(cmd.Context(), dir, entries)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		for _, r := range results {
			switch r.Status {
			case manifest.StatusOK:
				fmt.Fprintf(out, "ok        %s\n", r.Entry.Name)
			case manifest.StatusMissing:
				fmt.Fprintf(out, "missing   %s\n", r.Entry.Name)
			case manifest.StatusMismatch:
				fmt.Fprintf(out, "mismatch  %s (got %.12s, want %.12s)\n", r.Entry.Name, r.Got, r.Entry.SHA256)
			}
		}
		if manifest.Failed(results) {
			return fmt.Errorf("verification failed")
		}
		fmt.Fprintf(out, "%d files verified\n", len(results))
		return nil
	},
}

func init() {
	verifyCmd.Flags().String("manifest", "", "Path to the checksum manifest (default: <dir>/SHA256SUMS)")
	rootCmd.AddCommand(verifyCmd)
}
