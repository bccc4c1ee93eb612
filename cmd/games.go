package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/hazukari/sc3kit/internal/gamedef"
)

var gamesCmd = &cobra.Command{
	Use:   "games",
	Short: "List supported games and their aliases",
	Long:  "List supported games and their aliases. Example:\n  sc3kit games",
	RunE: func(cmd *cobra.Command, _ []string) error {
		verbose, _ := cmd.Flags().GetBool("verbose")
		defs, err := gamedef.Defs()
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		for _, d := range defs {
			fmt.Fprintf(out, "- %-8s %s\n", d.Aliases[0], d.FullName)
			if verbose {
				fmt.Fprintf(out, "  aliases: %s\n", strings.Join(d.Aliases, ", "))
				fmt.Fprintf(out, "  charset: %d mapped characters, %d compound expansions\n",
					d.Maps().MappedCount(), d.Maps().CompoundCount())
				if d.ReservedCodepoints != nil {
					fmt.Fprintf(out, "  reserved: U+%04X-U+%04X\n", d.ReservedCodepoints.Lo, d.ReservedCodepoints.Hi)
				}
			}
		}
		return nil
	},
}

func init() {
	gamesCmd.Flags().BoolP("verbose", "v", false, "Show aliases and charset statistics per game")
	rootCmd.AddCommand(gamesCmd)
}
