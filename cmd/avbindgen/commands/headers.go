package commands

import (
	"fmt"
	"os"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/teranos/avbindgen/buildenv"
	"github.com/teranos/avbindgen/headers"
)

// HeadersCmd shows which headers a build would translate
var HeadersCmd = &cobra.Command{
	Use:   "headers",
	Short: "Show the selected headers and where they resolve",
	Long: `List the headers selected by the enabled capabilities, in translation
order, with the path each one resolves to. Missing headers are reported
here; a build fails on them.`,
	RunE: runHeaders,
}

func runHeaders(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	rows, missing := headerRows(cfg)
	table, err := pterm.DefaultTable.WithHasHeader().WithData(rows).Srender()
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, table)

	if missing > 0 {
		pterm.Warning.WithWriter(out).Printf("%d of %d headers are missing\n", missing, len(rows)-1)
	} else {
		pterm.Success.WithWriter(out).Printf("%d headers found\n", len(rows)-1)
	}
	return nil
}

// headerRows builds the table: a header row, the platform header when one
// is configured, then every selected header.
func headerRows(cfg *buildenv.Config) (pterm.TableData, int) {
	rows := pterm.TableData{{"Group", "Header", "Path", "Status"}}
	missing := 0
	add := func(group, header, path string) {
		status := "found"
		if _, err := os.Stat(path); err != nil {
			status = "missing"
			missing++
		}
		rows = append(rows, []string{group, header, path, status})
	}

	if cfg.PlatformHeader != "" {
		add("platform", cfg.PlatformHeader, headers.Resolve(cfg.PlatformRoots(), cfg.PlatformHeader))
	}
	for _, g := range headers.Select(cfg.Flags()) {
		for _, h := range g.Headers {
			add(g.Name, h, headers.Resolve(cfg.IncludeRoots(), h))
		}
	}
	return rows, missing
}
