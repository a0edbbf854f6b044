package cmd

import (
	"fmt"

	"github.com/brogergvhs/mangapdf/internal/config"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
)

var flagRemoveForce bool

var configRemoveCmd = &cobra.Command{
	Use:   "remove <label>",
	Short: "Remove a config profile",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		label := args[0]
		out := cmd.OutOrStdout()

		if active, _ := config.CurrentLabel(); label == active && !flagRemoveForce {
			prompt := promptui.Prompt{
				Label:     fmt.Sprintf("Config %s is active. Remove it anyway", label),
				IsConfirm: true,
			}
			if _, err := prompt.Run(); err != nil {
				_, _ = fmt.Fprintln(out, "Aborted.")
				return nil
			}
		}

		if err := config.RemoveConfig(label); err != nil {
			return err
		}

		_, _ = fmt.Fprintf(out, "Removed config %q\n", label)
		if active, err := config.CurrentLabel(); err == nil {
			_, _ = fmt.Fprintln(out, "Active config:", active)
		}
		return nil
	},
}

func init() {
	configRemoveCmd.Flags().BoolVarP(&flagRemoveForce, "force", "f", false, "remove the active profile without asking")

	configCmd.AddCommand(configRemoveCmd)
}
