package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/MeKo-Tech/orient/internal/config"
	"github.com/spf13/cobra"
)

// configCmd groups configuration helpers.
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage orient configuration",
	Long: `Write a default configuration file or show the effective configuration.

Configuration is read from orient.yaml in ., $XDG_CONFIG_HOME/orient (or
~/.config/orient) and /etc/orient, then from a .env file and ORIENT_*
environment variables, then from command line flags.`,
}

var configInitCmd = &cobra.Command{
	Use:   "init [file]",
	Short: "Write the default configuration to a YAML file",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		filename := config.ConfigFileName + ".yaml"
		if len(args) == 1 {
			filename = args[0]
		}

		force, _ := cmd.Flags().GetBool("force")
		if _, err := os.Stat(filename); err == nil && !force {
			return fmt.Errorf("%s already exists (use --force to overwrite)", filename)
		}

		if err := config.GenerateDefaultConfigFile(filename); err != nil {
			return err
		}
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Configuration written to %s\n", filename)
		return nil
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := GetConfig()

		asJSON, _ := cmd.Flags().GetBool("json")
		if asJSON {
			bts, err := json.MarshalIndent(cfg, "", "  ")
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), string(bts))
			return nil
		}

		if used := GetConfigLoader().GetConfigFileUsed(); used != "" {
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "# loaded from %s\n", used)
		}
		out, err := config.MarshalYAML(*cfg)
		if err != nil {
			return err
		}
		_, _ = cmd.OutOrStdout().Write(out)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)

	configInitCmd.Flags().Bool("force", false, "overwrite an existing file")
	configShowCmd.Flags().Bool("json", false, "print as JSON instead of YAML")
}
