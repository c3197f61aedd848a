package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"strings"

	"github.com/99designs/keyring"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/anglerdiary/flownet/internal/api"
	"github.com/anglerdiary/flownet/internal/config"
	"github.com/anglerdiary/flownet/internal/diary"
	"github.com/anglerdiary/flownet/internal/dryrun"
	"github.com/anglerdiary/flownet/internal/iocontext"
)

// promptPassword reads a password without echo. Replaced in tests.
var promptPassword = keyring.TerminalPrompt

// newAuthCmd returns the auth command with subcommands
func newAuthCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "auth",
		Aliases: []string{"au"},
		Short:   "Manage stored credentials",
		Long:    "Log in to the AnglerDiary API and manage the tokens stored in your OS keychain.",
	}

	cmd.AddCommand(newAuthLoginCmd())
	cmd.AddCommand(newAuthStatusCmd())
	cmd.AddCommand(newAuthLogoutCmd())
	cmd.AddCommand(newAuthListCmd())
	cmd.AddCommand(newAuthSwitchCmd())

	return cmd
}

func newAuthLoginCmd() *cobra.Command {
	var (
		email         string
		password      string
		passwordStdin bool
		profile       string
	)

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in with email and password",
		Long: strings.TrimSpace(`
Exchange an email and password for a token and save it in the OS keychain.

The base URL comes from --env, --base-url or FLOWNET_* variables as for any
other command. The password is prompted for when stdin is a terminal.
`),
		Example: strings.TrimSpace(`
  # Interactive password prompt
  flownet auth login --email angler@example.com

  # Non-interactive, against the development environment
  echo "$PASSWORD" | flownet auth login --email angler@example.com --password-stdin --env development

  # Save under a named profile
  flownet auth login --email angler@example.com --save-as work
`),
		RunE: RunE(func(cmd *cobra.Command, _ []string) error {
			if dryrun.IsEnabled(cmd.Context()) {
				return fmt.Errorf("--dry-run is not supported for auth login")
			}
			if password != "" && passwordStdin {
				return fmt.Errorf("--password and --password-stdin cannot be used together")
			}

			ioStreams := iocontext.GetIO(cmd.Context())
			switch {
			case passwordStdin:
				line, err := bufio.NewReader(ioStreams.In).ReadString('\n')
				if err != nil && line == "" {
					return fmt.Errorf("failed to read password from stdin: %w", err)
				}
				password = strings.TrimRight(line, "\r\n")
			case password == "" && ioStreams.InIsTerminal():
				p, err := promptPassword("Password")
				if err != nil {
					return fmt.Errorf("failed to read password: %w", err)
				}
				password = p
			}

			login := diary.Login{Email: strings.TrimSpace(email), Password: password}
			if err := login.Validate(); err != nil {
				return err
			}

			client, cfg, err := getClient(cmd)
			if err != nil {
				return err
			}
			issued, err := api.Send[diary.Session](cmdContext(cmd), client, login)
			if err != nil {
				return err
			}
			if issued.Token == "" {
				return fmt.Errorf("login response did not include a token")
			}

			stored := config.Profile{
				Environment: cfg.Environment,
				Token:       issued.Token,
				Email:       login.Email,
			}
			if issued.User.ID != uuid.Nil {
				stored.UserID = issued.User.ID.String()
			}
			// Explicit base URLs are kept; otherwise the environment name is.
			if cfg.Source == config.SourceFlag || cfg.Source == config.SourceEnv || cfg.Environment == "" {
				stored.BaseURL = cfg.BaseURL
			}

			name := strings.TrimSpace(profile)
			if name == "" {
				name = "default"
			}
			if err := config.SaveProfile(name, stored); err != nil {
				return fmt.Errorf("failed to save credentials: %w", err)
			}

			if isJSON(cmd) {
				return printJSON(cmd, map[string]any{
					"profile":    name,
					"email":      stored.Email,
					"user_id":    stored.UserID,
					"base_url":   cfg.BaseURL,
					"expires_at": issued.ExpiresAt,
				})
			}
			out := ioStreams.Out
			_, _ = fmt.Fprintf(out, "Logged in as %s\n", displayUser(issued.User, stored.Email))
			_, _ = fmt.Fprintf(out, "  Base URL: %s\n", cfg.BaseURL)
			_, _ = fmt.Fprintf(out, "  Profile: %s\n", name)
			if !issued.ExpiresAt.IsZero() {
				_, _ = fmt.Fprintf(out, "  Expires: %s\n", issued.ExpiresAt.Local().Format("2006-01-02 15:04"))
			}
			return nil
		}),
	}

	cmd.Flags().StringVar(&email, "email", "", "Account email")
	cmd.Flags().StringVar(&password, "password", "", "Account password (prefer the prompt or --password-stdin)")
	cmd.Flags().BoolVar(&passwordStdin, "password-stdin", false, "Read the password from stdin")
	cmd.Flags().StringVar(&profile, "save-as", "", "Profile name to save credentials under (default \"default\")")
	_ = cmd.MarkFlagRequired("email")
	flagAlias(cmd.Flags(), "email", "em")
	flagAlias(cmd.Flags(), "save-as", "name")

	return cmd
}

func displayUser(u diary.User, email string) string {
	if u.Nickname != "" {
		return fmt.Sprintf("%s (%s)", u.Nickname, email)
	}
	return email
}

func newAuthStatusCmd() *cobra.Command {
	var check bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the resolved connection settings",
		Long:  "Display where the base URL and token come from. The token is masked.",
		Example: strings.TrimSpace(`
  flownet auth status
  flownet auth status --check --json
`),
		RunE: RunE(func(cmd *cobra.Command, _ []string) error {
			client, cfg, err := getClient(cmd)
			if err != nil {
				return err
			}

			payload := map[string]any{
				"authenticated": cfg.HasToken(),
				"base_url":      cfg.BaseURL,
				"source":        cfg.Source,
			}
			if cfg.Environment != "" {
				payload["environment"] = cfg.Environment
			}
			if cfg.Profile != "" {
				payload["profile"] = cfg.Profile
			}
			if cfg.HasToken() {
				payload["token"] = maskToken(cfg.Token)
			}

			var user *diary.User
			if check && cfg.HasToken() {
				u, err := api.Send[diary.User](cmdContext(cmd), client, diary.GetProfile{Token: cfg.Token})
				if err != nil {
					if !api.IsAuthError(err) {
						return err
					}
					payload["valid"] = false
				} else {
					user = &u
					payload["valid"] = true
					payload["user"] = map[string]any{"id": u.ID, "email": u.Email, "nickname": u.Nickname}
				}
			}

			if isJSON(cmd) {
				return printJSON(cmd, payload)
			}

			out := iocontext.GetIO(cmd.Context()).Out
			if cfg.HasToken() {
				_, _ = fmt.Fprintln(out, "Authenticated")
			} else {
				_, _ = fmt.Fprintln(out, "Not authenticated. Run 'flownet auth login' to store a token.")
			}
			_, _ = fmt.Fprintf(out, "  Base URL: %s (%s)\n", cfg.BaseURL, cfg.Source)
			if cfg.Environment != "" {
				_, _ = fmt.Fprintf(out, "  Environment: %s\n", cfg.Environment)
			}
			if cfg.Profile != "" {
				_, _ = fmt.Fprintf(out, "  Profile: %s\n", cfg.Profile)
			}
			if cfg.HasToken() {
				_, _ = fmt.Fprintf(out, "  Token: %s\n", maskToken(cfg.Token))
			}
			if check && cfg.HasToken() {
				if user != nil {
					_, _ = fmt.Fprintf(out, "  User: %s\n", displayUser(*user, user.Email))
				} else {
					_, _ = fmt.Fprintln(out, "  Token rejected by the server")
				}
			}
			return nil
		}),
	}

	cmd.Flags().BoolVar(&check, "check", false, "Verify the token against the API")

	return cmd
}

func newAuthLogoutCmd() *cobra.Command {
	var profile string

	cmd := &cobra.Command{
		Use:   "logout",
		Short: "Remove a stored profile from the keychain",
		Example: strings.TrimSpace(`
  flownet auth logout
  flownet auth logout --name work
`),
		RunE: RunE(func(cmd *cobra.Command, _ []string) error {
			name := strings.TrimSpace(profile)
			if name == "" {
				current, err := config.CurrentProfile()
				if err != nil {
					return err
				}
				name = current
			}

			if _, err := config.LoadProfile(name); err != nil {
				if errors.Is(err, config.ErrNotConfigured) {
					_, _ = fmt.Fprintln(cmd.OutOrStdout(), "No credentials found.")
					return nil
				}
				return err
			}
			if err := config.DeleteProfile(name); err != nil {
				return fmt.Errorf("failed to remove credentials: %w", err)
			}

			if isJSON(cmd) {
				return printJSON(cmd, map[string]any{"removed": name})
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Profile %s removed.\n", name)
			return nil
		}),
	}

	cmd.Flags().StringVar(&profile, "name", "", "Profile to remove (defaults to current)")

	return cmd
}

func newAuthListCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List stored profiles",
		Args:    cobra.NoArgs,
		RunE: RunE(func(cmd *cobra.Command, _ []string) error {
			names, err := config.ListProfiles()
			if err != nil {
				return err
			}
			current, err := config.CurrentProfile()
			if err != nil {
				return err
			}

			type row struct {
				Name        string `json:"name"`
				Current     bool   `json:"current"`
				Email       string `json:"email,omitempty"`
				Environment string `json:"environment,omitempty"`
				BaseURL     string `json:"base_url,omitempty"`
			}
			rows := make([]row, 0, len(names))
			for _, name := range names {
				p, err := config.LoadProfile(name)
				if err != nil && !errors.Is(err, config.ErrNotConfigured) {
					return err
				}
				rows = append(rows, row{
					Name:        name,
					Current:     name == current,
					Email:       p.Email,
					Environment: p.Environment,
					BaseURL:     p.BaseURL,
				})
			}

			if isJSON(cmd) {
				return printJSON(cmd, rows)
			}
			f := newFormatter(cmd)
			if len(rows) == 0 {
				f.Empty("No profiles stored. Run 'flownet auth login' first.")
				return nil
			}
			f.StartTable("", "NAME", "EMAIL", "TARGET")
			for _, r := range rows {
				marker := ""
				if r.Current {
					marker = "*"
				}
				target := r.Environment
				if r.BaseURL != "" {
					target = r.BaseURL
				}
				f.Row(marker, r.Name, r.Email, target)
			}
			return f.EndTable()
		}),
	}
}

func newAuthSwitchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "switch <profile>",
		Short: "Make a stored profile current",
		Args:  cobra.ExactArgs(1),
		RunE: RunE(func(cmd *cobra.Command, args []string) error {
			name := strings.TrimSpace(args[0])
			if _, err := config.LoadProfile(name); err != nil {
				if errors.Is(err, config.ErrNotConfigured) {
					return fmt.Errorf("profile %q not found; run 'flownet auth list'", name)
				}
				return err
			}
			if err := config.SetCurrentProfile(name); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Switched to profile %s.\n", name)
			return nil
		}),
	}
}
