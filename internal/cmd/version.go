package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/anglerdiary/flownet/internal/iocontext"
	"github.com/anglerdiary/flownet/internal/update"
)

// version is set at build time via ldflags
var version = "dev"

func newVersionCmd() *cobra.Command {
	var check bool

	cmd := &cobra.Command{
		Use:     "version",
		Aliases: []string{"v"},
		Short:   "Print version information",
		Args:    cobra.NoArgs,
		RunE: RunE(func(cmd *cobra.Command, _ []string) error {
			ioStreams := iocontext.GetIO(cmd.Context())

			var result *update.CheckResult
			if check || (os.Getenv("FLOWNET_NO_UPDATE_CHECK") == "" && ioStreams.OutIsTerminal()) {
				result = update.CheckForUpdate(cmd.Context(), version)
			}

			if isJSON(cmd) {
				payload := map[string]any{"version": version}
				if result != nil {
					payload["update"] = result
				}
				return printJSON(cmd, payload)
			}

			_, _ = fmt.Fprintf(ioStreams.Out, "flownet version %s\n", version)
			if result != nil && result.UpdateAvailable {
				_, _ = fmt.Fprintf(ioStreams.ErrOut, "\nUpdate available: %s -> %s\n", result.CurrentVersion, result.LatestVersion)
				_, _ = fmt.Fprintf(ioStreams.ErrOut, "Download: %s\n", result.UpdateURL)
			}
			return nil
		}),
	}

	cmd.Flags().BoolVar(&check, "check", false, "Check GitHub for a newer release")

	return cmd
}
