package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/hazukari/sc3kit/cmd/tui/ui"
	"github.com/hazukari/sc3kit/internal/db"
	"github.com/hazukari/sc3kit/internal/registry"
	"github.com/hazukari/sc3kit/internal/tui/adapters"
	modelpkg "github.com/hazukari/sc3kit/internal/tui/model"
)

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Start the interactive run-history browser",
	RunE: func(_ *cobra.Command, _ []string) error {
		// Init DB
		dbConn, err := db.InitDB()
		if err != nil {
			return err
		}
		defer func() { _ = dbConn.Close() }()

		ctx := context.Background()

		reg := registry.New(dbConn)
		history := adapters.NewRegistryHistory(reg)

		uiModel := modelpkg.New(history)
		if err := uiModel.RefreshRuns(ctx, 200); err != nil {
			return err
		}

		p := ui.NewProgram(uiModel)
		_, err = p.Run()
		return err
	},
}

func init() {
	rootCmd.AddCommand(tuiCmd)
}

// The Bubble Tea UI lives in `cmd/tui/ui` to keep UI implementation
// and tests centralized. See that package for the run list, preview,
// and full-screen step log viewer.
