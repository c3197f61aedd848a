package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/anglerdiary/flownet/internal/iocontext"
)

func newCurlCmd() *cobra.Command {
	var opts requestOptions
	var showSecrets bool

	cmd := &cobra.Command{
		Use:   "curl <path>",
		Short: "Print the cURL command for a request without sending it",
		Long: `Print the cURL command equivalent to a request.

Takes the same flags as "flownet request". Credentials are redacted unless
--show-secrets is given.`,
		Example: `  flownet curl /v1/catches -p limit=5
  flownet curl /v1/catches -f location=Busan --show-secrets | sh`,
		Args: cobra.ExactArgs(1),
		RunE: RunE(func(cmd *cobra.Command, args []string) error {
			client, cfg, err := getClient(cmd)
			if err != nil {
				return err
			}
			req, err := opts.build(cmd, args[0], cfg.Token)
			if err != nil {
				return err
			}
			resolved, err := client.Resolve(req)
			if err != nil {
				return err
			}
			if !showSecrets {
				resolved = resolved.Redacted()
			}

			if isJSON(cmd) {
				return printJSON(cmd, map[string]any{
					"method": string(resolved.Method),
					"url":    resolved.URL.String(),
					"curl":   resolved.CurlCommand(),
				})
			}
			_, err = fmt.Fprintln(iocontext.GetIO(cmd.Context()).Out, resolved.CurlCommand())
			return err
		}),
	}

	opts.register(cmd.Flags())
	opts.registerCompletions(cmd)
	cmd.Flags().BoolVar(&showSecrets, "show-secrets", false, "Include the Authorization header unredacted")

	return cmd
}
