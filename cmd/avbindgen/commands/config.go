package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/teranos/avbindgen/buildenv"
)

// ConfigCmd groups the configuration commands
var ConfigCmd = &cobra.Command{
	Use:   "config",
	Short: "Show and validate the build configuration",
	Long: `Display the configuration a build would use.

Configuration sources (in order of precedence):
1. Environment variables (FFMPEG_DIR, EMSDK, OUT_DIR, CARGO_FEATURE_*, ...)
2. .env in the working directory (never overrides the environment)
3. --config file, or <project root>/` + buildenv.ConfigFileName + `
4. Default values`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective configuration as TOML",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		text, err := cfg.ToTOML()
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "# avbindgen configuration\n%s", text)
		return nil
	},
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if err := cfg.Validate(); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "✓ Configuration is valid")
		return nil
	},
}

func init() {
	ConfigCmd.AddCommand(configShowCmd)
	ConfigCmd.AddCommand(configValidateCmd)
}
