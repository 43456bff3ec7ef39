package commands

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/teranos/avbindgen/build"
	"github.com/teranos/avbindgen/typegen/rust"
)

// WatchCmd regenerates the bindings whenever a selected header changes
var WatchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Regenerate the bindings when a header changes",
	Long: `Run a full build, then watch the directories of the selected headers and
rewrite the bindings file after every change. Failed rebuilds are logged
and the watch continues. Stop with Ctrl-C.`,
	RunE: runWatch,
}

func runWatch(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return build.Watch(ctx, cfg, rust.NewGenerator(), cmd.OutOrStdout())
}
