package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hazukari/sc3kit/internal/user"
)

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Manage the stored actor identity",
	Long:  "Manage the persisted actor identity stamped onto manually triggered runs.",
}

var whoamiSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Set the stored actor identity",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		name, _ := cmd.Flags().GetString("name")
		email, _ := cmd.Flags().GetString("email")
		if name == "" {
			return fmt.Errorf("--name is required")
		}
		if err := user.SetProfile(user.Profile{Name: name, Email: email}); err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "stored actor as: %s <%s>\n", name, email)
		return nil
	},
}

var whoamiClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Clear the stored actor identity",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := user.ClearProfile(); err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintln(out, "cleared stored actor identity")
		return nil
	},
}

var whoamiShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the stored actor identity",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		p, ok, err := user.GetProfile()
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if !ok {
			fmt.Fprintln(out, "no stored actor identity")
			return nil
		}
		fmt.Fprintf(out, "%s <%s>\n", p.Name, p.Email)
		return nil
	},
}

func init() {
	whoamiSetCmd.Flags().StringP("name", "n", "", "Actor name (required)")
	whoamiSetCmd.Flags().StringP("email", "e", "", "Actor email (optional)")
	whoamiCmd.AddCommand(whoamiSetCmd)
	whoamiCmd.AddCommand(whoamiClearCmd)
	whoamiCmd.AddCommand(whoamiShowCmd)
	rootCmd.AddCommand(whoamiCmd)
}
