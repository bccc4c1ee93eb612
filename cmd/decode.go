package cmd

import (
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/hazukari/sc3kit/internal/gamedef"
	"github.com/hazukari/sc3kit/internal/sc3"
)

var decodeCmd = &cobra.Command{
	Use:   "decode <game> [hex]",
	Short: "Decode SC3 bytes back to dialogue text",
	Long:  "Decode SC3 bytes back to dialogue text. Bytes come from --in (raw binary) or a hex string on the command line or stdin. Example:\n  sc3kit decode sghd 80c880c9ff",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		def, err := gamedef.GetByAlias(args[0])
		if err != nil {
			return err
		}
		inPath, _ := cmd.Flags().GetString("in")

		var data []byte
		switch {
		case inPath != "":
			data, err = os.ReadFile(inPath)
			if err != nil {
				return fmt.Errorf("read input: %w", err)
			}
		case len(args) == 2:
			data, err = decodeHex(args[1])
			if err != nil {
				return err
			}
		default:
			b, err := io.ReadAll(cmd.InOrStdin())
			if err != nil {
				return fmt.Errorf("read stdin: %w", err)
			}
			data, err = decodeHex(string(b))
			if err != nil {
				return err
			}
		}

		text, err := sc3.Decode(def, data)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), text)
		return nil
	},
}

// decodeHex accepts the hex form `encode` prints, with whitespace allowed
// between byte pairs.
func decodeHex(s string) ([]byte, error) {
	clean := strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\t', '\n', '\r':
			return -1
		}
		return r
	}, s)
	data, err := hex.DecodeString(clean)
	if err != nil {
		return nil, fmt.Errorf("parse hex: %w", err)
	}
	return data, nil
}

func init() {
	decodeCmd.Flags().String("in", "", "Read raw SC3 bytes from a file instead of a hex argument")
	rootCmd.AddCommand(decodeCmd)
}
