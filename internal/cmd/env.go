package cmd

import (
	"github.com/spf13/cobra"

	"github.com/anglerdiary/flownet/internal/config"
)

func newEnvCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "env",
		Aliases: []string{"environments"},
		Short:   "Show the configured API environments",
		Long: `Show the API environments from the built-ins and the config file.

Define more in ~/.config/flownet/config.toml:

  default_environment = "staging"

  [environments.staging]
  base_url = "https://staging.anglerdiary.com"
  description = "Pre-release API"`,
	}

	cmd.AddCommand(newEnvListCmd())
	cmd.AddCommand(newEnvShowCmd())

	return cmd
}

func newEnvListCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List environments",
		Args:    cobra.NoArgs,
		RunE: RunE(func(cmd *cobra.Command, _ []string) error {
			envs := sessionFrom(cmd).envs
			list := envs.List()

			if isJSON(cmd) {
				return printJSON(cmd, map[string]any{
					"default":      envs.DefaultName(),
					"environments": list,
				})
			}

			f := newFormatter(cmd)
			f.StartTable("", "NAME", "BASE URL", "DESCRIPTION")
			for _, env := range list {
				marker := ""
				if env.Name == envs.DefaultName() {
					marker = "*"
				}
				f.Row(marker, env.Name, env.BaseURL, env.Description)
			}
			return f.EndTable()
		}),
	}
}

func newEnvShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show [name]",
		Short: "Show one environment (default: the selected one)",
		Args:  cobra.MaximumNArgs(1),
		RunE: RunE(func(cmd *cobra.Command, args []string) error {
			envs := sessionFrom(cmd).envs

			name := envs.DefaultName()
			switch {
			case len(args) == 1:
				name = args[0]
			case flags.Environment != "":
				name = flags.Environment
			case sessionFrom(cmd).env.Environment != "":
				name = sessionFrom(cmd).env.Environment
			}

			env, err := envs.Lookup(name)
			if err != nil {
				return err
			}
			return printEnvironment(cmd, env, name == envs.DefaultName())
		}),
	}
}

func printEnvironment(cmd *cobra.Command, env config.Environment, isDefault bool) error {
	if isJSON(cmd) {
		return printJSON(cmd, map[string]any{
			"name":        env.Name,
			"base_url":    env.BaseURL,
			"description": env.Description,
			"builtin":     env.Builtin,
			"default":     isDefault,
		})
	}
	f := newFormatter(cmd)
	f.Row("Name:", env.Name)
	f.Row("Base URL:", env.BaseURL)
	if env.Description != "" {
		f.Row("Description:", env.Description)
	}
	source := "config file"
	if env.Builtin {
		source = "built-in"
	}
	f.Row("Source:", source)
	if isDefault {
		f.Row("Default:", "yes")
	}
	return f.EndTable()
}
