package commands

import (
	"github.com/spf13/cobra"

	"github.com/teranos/avbindgen/build"
	"github.com/teranos/avbindgen/typegen/rust"
)

// GenerateCmd runs the build pipeline once
var GenerateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate the bindings file",
	Long: `Emit the link directives on stdout, translate the selected headers and
write the bindings file to OUT_DIR.`,
	RunE: runGenerate,
}

func runGenerate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	_, err = build.Run(cfg, rust.NewGenerator(), cmd.OutOrStdout())
	return err
}
