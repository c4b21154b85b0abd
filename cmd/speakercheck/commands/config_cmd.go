package commands

import (
	"fmt"

	"github.com/goccy/go-yaml"
	"github.com/spf13/cobra"

	"github.com/tphakala/go-audio-fidelity/cmd/speakercheck/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage persistent settings",
	Long: `Manage the settings file that seeds every command's analysis
parameters. Flags passed alongside a subcommand are merged in, so

  speakercheck config save --rate 44100 --tone 440

persists those values as the new defaults.`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective settings as YAML",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := mergedSettings()
		if err != nil {
			return err
		}
		data, err := yaml.Marshal(s)
		if err != nil {
			return fmt.Errorf("marshal settings: %w", err)
		}
		fmt.Print(string(data))
		return nil
	},
}

var configSaveCmd = &cobra.Command{
	Use:   "save",
	Short: "Persist the effective settings to the settings file",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := mergedSettings()
		if err != nil {
			return err
		}

		path := cfgFile
		if path == "" {
			if path, err = config.DefaultPath(); err != nil {
				return err
			}
		}
		if err := config.Save(path, s); err != nil {
			return err
		}
		fmt.Printf("settings written to %s\n", path)
		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSaveCmd)
	rootCmd.AddCommand(configCmd)
}
