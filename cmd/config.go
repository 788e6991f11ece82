package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/PolarWolf314/kaitiaki/internal/configs"
	"github.com/PolarWolf314/kaitiaki/internal/ui"
	"github.com/spf13/cobra"
)

var (
	configShowJSON  bool
	configInitForce bool
)

func init() {
	configShowCmd.Flags().BoolVar(&configShowJSON, "json", false, "output in JSON format")
	configInitCmd.Flags().BoolVar(&configInitForce, "force", false, "overwrite an existing config file")

	ConfigCmd.AddCommand(configShowCmd)
	ConfigCmd.AddCommand(configInitCmd)
	RootCmd.AddCommand(ConfigCmd)
}

// resetConfigInitState resets the config commands' global state for testing.
func resetConfigInitState() {
	configShowJSON = false
	configInitForce = false
}

// ConfigCmd is the top-level config command.
var ConfigCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage Kaitiaki configuration",
	Long: `Provides commands for inspecting and creating the configuration file.

The file is looked up in this order: --config, $KAITIAKI_CONFIG, then
config.toml, config.yaml or config.yml in the kaitiaki config directory.
--vault and $KAITIAKI_VAULT override the vault path from the file.

Examples:
  # Show the configuration in effect
  kaitiaki config show

  # Write a config file with the default settings
  kaitiaki config init`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Display the configuration in effect",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		Logger.Infof("Starting config show command")

		cfg, err := loadConfig()
		if err != nil {
			return errorf("Failed to load configuration: %v", err)
		}

		out := cmd.OutOrStdout()
		if configShowJSON {
			data, err := json.MarshalIndent(cfg, "", "  ")
			if err != nil {
				return fmt.Errorf("failed to marshal config to JSON: %w", err)
			}
			fmt.Fprintln(out, string(data))
			return nil
		}

		source := "built-in defaults"
		if cfg.Source != "" {
			source = cfg.Source
		}
		fmt.Fprintf(out, "# source: %s\n", source)
		return configs.WriteTOML(out, cfg)
	},
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a config file with the default settings",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		Logger.Infof("Starting config init command")

		path := configs.ExpandHome(configPath)
		if path == "" {
			dir, err := configs.ConfigDir()
			if err != nil {
				return errorf("Failed to find config directory: %v", err)
			}
			path = filepath.Join(dir, "config.toml")
		}
		if filepath.Ext(path) != ".toml" {
			return errorf("config init writes TOML, %s does not end in .toml", path)
		}

		out := cmd.OutOrStdout()
		if _, err := os.Stat(path); err == nil && !configInitForce {
			fmt.Fprintln(out, ui.Warning.Sprint("⚠")+" "+ui.Path.Sprint(path)+" already exists\n"+
				ui.Info.Sprint("→")+" Run "+ui.Code.Sprint("kaitiaki config init --force")+" to overwrite it")
			return nil
		}

		cfg, err := configs.Default()
		if err != nil {
			return errorf("Failed to build default configuration: %v", err)
		}
		Logger.Debugf("Writing default configuration to %s", path)
		if err := configs.SaveTOML(path, cfg); err != nil {
			return errorf("Failed to write %s: %v", path, err)
		}

		fmt.Fprintln(out, ui.Success.Sprint("✓")+" Wrote "+ui.Path.Sprint(path))
		return nil
	},
}
