package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/brogergvhs/mangapdf/internal/config"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
)

var (
	flagInitLabel string
	flagInitForce bool
	flagInitYes   bool
)

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a config profile with default values and make it active",
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		def := config.DefaultConfig()

		_, _ = fmt.Fprintf(out, "Profile %q will be saved under:\n   %s\n\n", flagInitLabel, config.ConfigsDir())
		_, _ = fmt.Fprintln(out, "Default configuration:")
		def.Print(out)
		_, _ = fmt.Fprintln(out)

		if !flagInitYes {
			prompt := promptui.Prompt{
				Label:     fmt.Sprintf("Create profile %s", flagInitLabel),
				IsConfirm: true,
			}
			if _, err := prompt.Run(); err != nil {
				_, _ = fmt.Fprintln(out, "Aborted.")
				return nil
			}
		}

		path, err := config.InitProfile(flagInitLabel, def, flagInitForce)
		if errors.Is(err, os.ErrExist) {
			_, _ = fmt.Fprintf(out, "Configuration already exists at:\n   %s\n", path)
			_, _ = fmt.Fprintln(out, "Use `mangapdf config init --force` to reset it.")
			return nil
		}
		if err != nil {
			return err
		}

		_, _ = fmt.Fprintln(out, "Config created at:", path)
		_, _ = fmt.Fprintf(out, "This config is now active (label: %s).\n", flagInitLabel)
		return nil
	},
}

func init() {
	configInitCmd.Flags().StringVar(&flagInitLabel, "label", config.DefaultLabel, "profile label")
	configInitCmd.Flags().BoolVar(&flagInitForce, "force", false, "overwrite an existing profile with defaults")
	configInitCmd.Flags().BoolVarP(&flagInitYes, "yes", "y", false, "do not ask for confirmation")

	configCmd.AddCommand(configInitCmd)
}
