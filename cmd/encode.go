package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/hazukari/sc3kit/internal/gamedef"
	"github.com/hazukari/sc3kit/internal/sc3"
)

var encodeCmd = &cobra.Command{
	Use:   "encode <game> [text]",
	Short: "Encode dialogue text to SC3 bytes",
	Long:  "Encode dialogue text to SC3 bytes for a game. Text comes from the argument, --in, or stdin. Example:\n  sc3kit encode sghd \"[name]Okabe[line]El Psy Kongroo[%p]\"",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		def, err := gamedef.GetByAlias(args[0])
		if err != nil {
			return err
		}
		inPath, _ := cmd.Flags().GetString("in")
		outPath, _ := cmd.Flags().GetString("out")

		var text string
		switch {
		case len(args) == 2:
			text = args[1]
		case inPath != "":
			b, err := os.ReadFile(inPath)
			if err != nil {
				return fmt.Errorf("read input: %w", err)
			}
			text = string(b)
		default:
			b, err := io.ReadAll(cmd.InOrStdin())
			if err != nil {
				return fmt.Errorf("read stdin: %w", err)
			}
			text = string(b)
		}

		data, err := sc3.Encode(def, text)
		if err != nil {
			return err
		}
		if outPath != "" {
			if err := os.WriteFile(outPath, data, 0o644); err != nil {
				return fmt.Errorf("write output: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %d bytes to %s\n", len(data), outPath)
			return nil
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%x\n", data)
		return nil
	},
}

func init() {
	encodeCmd.Flags().String("in", "", "Read dialogue text from a file instead of the argument or stdin")
	encodeCmd.Flags().String("out", "", "Write the encoded bytes to a file instead of printing hex")
	rootCmd.AddCommand(encodeCmd)
}
