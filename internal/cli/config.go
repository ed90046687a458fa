// internal/cli/config.go
package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/arc-language/upkgd/pkg/core"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or save the effective configuration",
	Long: `Show or save the configuration after file, environment (UPKGD_*)
and flag overrides have been applied.`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration as YAML",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return core.EncodeConfig(cmd.OutOrStdout(), config)
	},
}

var configSaveCmd = &cobra.Command{
	Use:   "save [path]",
	Short: "Write the effective configuration to a file",
	Long: `Write the effective configuration to path, or to the --config file,
or to $HOME/.config/upkgd/config.yaml.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := cfgFile
		if len(args) == 1 {
			path = args[0]
		}
		if path == "" {
			var err error
			if path, err = core.DefaultConfigPath(); err != nil {
				return fmt.Errorf("locating config file: %w", err)
			}
		}
		if err := core.SaveConfig(config, path); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Configuration written to %s\n", path)
		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSaveCmd)
}
