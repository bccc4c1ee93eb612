package cmd

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/hazukari/sc3kit/internal/db"
	"github.com/hazukari/sc3kit/internal/exporter"
)

// defaultExportName picks ./sc3kit-YYYY-MM-DD.db, suffixing -N instead of
// overwriting an existing file.
func defaultExportName() string {
	date := time.Now().UTC().Format("2006-01-02")
	dst := filepath.Join(".", fmt.Sprintf("sc3kit-%s.db", date))
	si := 1
	for {
		if _, err := os.Stat(dst); os.IsNotExist(err) {
			return dst
		}
		dst = filepath.Join(".", fmt.Sprintf("sc3kit-%s-%d.db", date, si))
		si++
	}
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export run history to portable files",
	RunE: func(cmd *cobra.Command, _ []string) error {
		// Interactive mode when invoked without subcommands
		rdr := bufio.NewReader(cmd.InOrStdin())
		cmd.Println("Select export type:\n  1) db (full database copy)\n  2) runs (portable run archive)")
		cmd.Print("Enter choice [1/2]: ")
		choiceRaw, err := rdr.ReadString('\n')
		if err != nil {
			return err
		}
		choice := strings.TrimSpace(choiceRaw)
		switch choice {
		case "1":
			cmd.Print("Destination path (leave empty for default): ")
			dstRaw, err := rdr.ReadString('\n')
			if err != nil {
				return err
			}
			dst := strings.TrimSpace(dstRaw)
			if dst == "" {
				dst = defaultExportName()
			}
			// ensure DB exists before copying it
			dbConn, err := db.InitDB()
			if err != nil {
				return err
			}
			_ = dbConn.Close()
			if err := exporter.ExportDatabase(dst); err != nil {
				return err
			}
			cmd.Printf("exported database to %s\n", dst)
			return nil
		case "2":
			cmd.Print("Destination path (leave empty for default): ")
			dstRaw, err := rdr.ReadString('\n')
			if err != nil {
				return err
			}
			dst := strings.TrimSpace(dstRaw)
			if dst == "" {
				dst = defaultExportName()
			}
			dbConn, err := db.InitDB()
			if err != nil {
				return err
			}
			defer func() { _ = dbConn.Close() }()
			runs, rels, err := exporter.ExportRuns(cmd.Context(), dbConn, dst, 0)
			if err != nil {
				return err
			}
			cmd.Printf("exported %d runs and %d releases to %s\n", runs, rels, dst)
			return nil
		default:
			return fmt.Errorf("invalid choice: %s", choice)
		}
	},
}

var exportDbCmd = &cobra.Command{
	Use:   "db [--dst <path>]",
	Short: "Export the active database to a file",
	RunE: func(cmd *cobra.Command, _ []string) error {
		dst, _ := cmd.Flags().GetString("dst")
		if dst == "" {
			dst = defaultExportName()
		}
		// ensure DB exists before copying it
		dbConn, err := db.InitDB()
		if err != nil {
			return err
		}
		_ = dbConn.Close()
		if err := exporter.ExportDatabase(dst); err != nil {
			return err
		}
		fmt.Printf("exported database to %s\n", dst)
		return nil
	},
}

var exportRunsCmd = &cobra.Command{
	Use:   "runs [--dst <path>] [--limit <n>]",
	Short: "Export run history to a portable archive that import can merge",
	RunE: func(cmd *cobra.Command, _ []string) error {
		dst, _ := cmd.Flags().GetString("dst")
		limit, _ := cmd.Flags().GetInt("limit")
		if dst == "" {
			dst = defaultExportName()
		}
		dbConn, err := db.InitDB()
		if err != nil {
			return err
		}
		defer func() { _ = dbConn.Close() }()
		runs, rels, err := exporter.ExportRuns(cmd.Context(), dbConn, dst, limit)
		if err != nil {
			return err
		}
		fmt.Printf("exported %d runs and %d releases to %s\n", runs, rels, dst)
		return nil
	},
}

func init() {
	exportDbCmd.Flags().String("dst", "", "Destination file path for the exported DB")
	exportRunsCmd.Flags().String("dst", "", "Destination file path for the run archive")
	exportRunsCmd.Flags().Int("limit", 0, "Export only the newest N runs (0 = all)")
	exportCmd.AddCommand(exportDbCmd)
	exportCmd.AddCommand(exportRunsCmd)
	rootCmd.AddCommand(exportCmd)
}
