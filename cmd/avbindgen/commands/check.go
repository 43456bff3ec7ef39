package commands

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/teranos/avbindgen/build"
	"github.com/teranos/avbindgen/errors"
	"github.com/teranos/avbindgen/typegen"
	"github.com/teranos/avbindgen/typegen/rust"
)

// CheckCmd checks whether the bindings file is up to date
var CheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Check if the bindings file is up to date",
	Long: `Regenerate the bindings in memory and compare them with the file in
OUT_DIR, ignoring the generated-by banner. Nothing is written and no link
directives are emitted.

Exit codes:
  0 - Bindings are up to date
  1 - Bindings are missing or out of date, or the check failed`,
	RunE: runCheck,
}

func runCheck(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	text, err := build.Generate(cfg, rust.NewGenerator())
	if err != nil {
		return err
	}
	result, err := typegen.CheckArtifact(cfg.OutputPath(), text)
	if err != nil {
		return err
	}
	return reportCheck(cmd.OutOrStdout(), cfg.OutputPath(), result)
}

func reportCheck(w io.Writer, path string, result *typegen.CheckResult) error {
	switch {
	case result.UpToDate:
		fmt.Fprintf(w, "✓ %s is up to date\n", path)
		return nil
	case result.Missing:
		fmt.Fprintf(w, "✗ %s does not exist\n", path)
	default:
		fmt.Fprintf(w, "✗ %s is out of date:\n", path)
		for _, diff := range result.Differences {
			fmt.Fprintf(w, "  %s\n", diff)
		}
	}
	return errors.WithHint(errors.New("bindings are out of date"), "run 'avbindgen generate' to update them")
}
