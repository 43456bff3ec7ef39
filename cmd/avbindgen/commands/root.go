// Package commands implements the avbindgen command line.
package commands

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/teranos/avbindgen/buildenv"
	"github.com/teranos/avbindgen/errors"
	"github.com/teranos/avbindgen/logger"
)

// EnvFile is read from the working directory before the environment.
const EnvFile = ".env"

var (
	configFile string
	verbosity  int
	jsonLogs   bool
)

// RootCmd generates bindings when run without a subcommand, which is how
// a build script invokes it.
var RootCmd = &cobra.Command{
	Use:   "avbindgen",
	Short: "Generate Rust FFI bindings for the FFmpeg libraries",
	Long: `avbindgen translates the FFmpeg C headers into a Rust bindings file for
a WebAssembly build.

It runs as a build-script step: configuration comes from the build tool's
environment (FFMPEG_DIR, EMSDK, CARGO_MANIFEST_DIR, OUT_DIR and the
CARGO_FEATURE_* capability flags), link directives are printed to stdout,
and logs go to stderr.

Examples:
  avbindgen                          # Generate bindings (same as generate)
  avbindgen check                    # Fail if the bindings in OUT_DIR are stale
  avbindgen watch                    # Regenerate when a header changes
  avbindgen headers                  # Show the selected headers
  avbindgen rules macro AV_CH_LAYOUT_NATIVE 0x8000000000000000
  avbindgen config show              # Show the effective configuration`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := logger.Initialize(jsonLogs, verbosity); err != nil {
			return errors.Wrap(err, "failed to initialize logger")
		}
		return nil
	},
	RunE: runGenerate,
}

func init() {
	RootCmd.PersistentFlags().StringVar(&configFile, "config", "", "TOML config file (default: <project root>/"+buildenv.ConfigFileName+")")
	RootCmd.PersistentFlags().CountVarP(&verbosity, "verbose", "v", "Increase log verbosity (-v debug, -vv per-declaration decisions)")
	RootCmd.PersistentFlags().BoolVar(&jsonLogs, "json-logs", false, "Write logs as JSON")

	RootCmd.AddCommand(GenerateCmd)
	RootCmd.AddCommand(CheckCmd)
	RootCmd.AddCommand(WatchCmd)
	RootCmd.AddCommand(HeadersCmd)
	RootCmd.AddCommand(RulesCmd)
	RootCmd.AddCommand(ConfigCmd)
	RootCmd.AddCommand(VersionCmd)
}

func loadConfig() (*buildenv.Config, error) {
	return buildenv.Load(buildenv.LoadOptions{ConfigFile: configFile, EnvFile: EnvFile})
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
