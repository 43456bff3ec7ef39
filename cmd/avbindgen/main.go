package main

import (
	"fmt"
	"os"

	"github.com/teranos/avbindgen/cmd/avbindgen/commands"
	"github.com/teranos/avbindgen/errors"
	"github.com/teranos/avbindgen/logger"
)

func main() {
	err := commands.RootCmd.Execute()
	logger.Cleanup()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		if hint := errors.FlattenHints(err); hint != "" {
			fmt.Fprintf(os.Stderr, "Hint: %s\n", hint)
		}
		os.Exit(1)
	}
}
