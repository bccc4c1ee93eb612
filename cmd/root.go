package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "sc3kit",
	Short: "sc3kit is a toolkit for the SC3 script text encoding",
	Long:  "sc3kit encodes and decodes SC3 script text for the MAGES engine ports and carries its own build-and-release pipeline",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("sc3kit: run 'sc3kit --help' to see available commands")
	},
}

// Execute executes the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
