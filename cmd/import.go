package cmd

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/hazukari/sc3kit/internal/db"
	"github.com/hazukari/sc3kit/internal/importer"
)

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Import run history from exported files",
	RunE: func(cmd *cobra.Command, _ []string) error {
		// Interactive mode when invoked without subcommands
		rdr := bufio.NewReader(cmd.InOrStdin())
		cmd.Println("Select import type:\n  1) db (replace the active database)\n  2) runs (merge a run archive)")
		cmd.Print("Enter choice [1/2]: ")
		choiceRaw, err := rdr.ReadString('\n')
		if err != nil {
			return err
		}
		choice := strings.TrimSpace(choiceRaw)
		switch choice {
		case "1":
			cmd.Print("Source file path: ")
			srcRaw, err := rdr.ReadString('\n')
			if err != nil {
				return err
			}
			src := strings.TrimSpace(srcRaw)
			if src == "" {
				return fmt.Errorf("source path is required")
			}
			cmd.Print("Overwrite existing database? [y/N]: ")
			ansRaw, err := rdr.ReadString('\n')
			if err != nil {
				return err
			}
			overwrite := strings.EqualFold(strings.TrimSpace(ansRaw), "y")
			if err := importer.ImportDatabase(src, overwrite); err != nil {
				return err
			}
			cmd.Printf("imported database from %s\n", src)
			return nil
		case "2":
			cmd.Print("Source file path: ")
			srcRaw, err := rdr.ReadString('\n')
			if err != nil {
				return err
			}
			src := strings.TrimSpace(srcRaw)
			if src == "" {
				return fmt.Errorf("source path is required")
			}
			dbConn, err := db.InitDB()
			if err != nil {
				return err
			}
			defer func() { _ = dbConn.Close() }()
			runs, rels, err := importer.ImportRuns(cmd.Context(), dbConn, src)
			if err != nil {
				return err
			}
			cmd.Printf("imported %d runs and %d releases from %s\n", runs, rels, src)
			return nil
		default:
			return fmt.Errorf("invalid choice: %s", choice)
		}
	},
}

var importDbCmd = &cobra.Command{
	Use:   "db <file>",
	Short: "Replace the active database with an exported copy",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		overwrite, _ := cmd.Flags().GetBool("overwrite")
		if err := importer.ImportDatabase(args[0], overwrite); err != nil {
			return err
		}
		fmt.Printf("imported database from %s\n", args[0])
		return nil
	},
}

var importRunsCmd = &cobra.Command{
	Use:   "runs <file>",
	Short: "Merge runs and releases from an exported archive",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dbConn, err := db.InitDB()
		if err != nil {
			return err
		}
		defer func() { _ = dbConn.Close() }()
		runs, rels, err := importer.ImportRuns(cmd.Context(), dbConn, args[0])
		if err != nil {
			return err
		}
		fmt.Printf("imported %d runs and %d releases from %s\n", runs, rels, args[0])
		return nil
	},
}

func init() {
	importDbCmd.Flags().Bool("overwrite", false, "Replace an existing database without asking")
	importCmd.AddCommand(importDbCmd)
	importCmd.AddCommand(importRunsCmd)
	rootCmd.AddCommand(importCmd)
}
