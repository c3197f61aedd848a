// Package cmd implements the flownet command line interface.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.opentelemetry.io/otel/trace"

	"github.com/anglerdiary/flownet/internal/api"
	"github.com/anglerdiary/flownet/internal/config"
	"github.com/anglerdiary/flownet/internal/debug"
	"github.com/anglerdiary/flownet/internal/dryrun"
	"github.com/anglerdiary/flownet/internal/iocontext"
	"github.com/anglerdiary/flownet/internal/outfmt"
	"github.com/anglerdiary/flownet/internal/telemetry"
	"github.com/anglerdiary/flownet/internal/validation"
)

// annotationRawOutput marks commands that print raw responses and apply
// --jq themselves, so --jq does not force JSON mode for them.
const annotationRawOutput = "flownet/raw-output"

// rootFlags holds global CLI flags
type rootFlags struct {
	Output        string
	JSON          bool
	JQ            string
	Compact       bool
	Color         string
	LogLevel      string
	Debug         bool
	Timeout       time.Duration
	DryRun        bool
	Quiet         bool
	Silent        bool
	AllowInsecure bool
	BaseURL       string
	Token         string
	Environment   string
	Profile       string
	Config        string
	OTelEndpoint  string
}

// flags holds the global command flags. It is reset at the start of every
// Execute call; reading it outside a command's RunE sees stale values.
var flags rootFlags

// session carries what PersistentPreRunE builds for the running command.
type session struct {
	env      config.Env
	envs     *config.Environments
	level    debug.Level
	logger   *slog.Logger
	tracer   trace.TracerProvider
	shutdown func(context.Context) error
}

type sessionKey struct{}

func sessionFrom(cmd *cobra.Command) *session {
	if s, ok := cmd.Context().Value(sessionKey{}).(*session); ok && s != nil {
		return s
	}
	env, _ := config.LoadEnv()
	return &session{
		env:    env,
		envs:   config.BuiltinEnvironments(),
		logger: debug.SetupLogger(io.Discard, debug.LevelOff),
	}
}

// close flushes pending spans.
func (s *session) close() {
	if s.shutdown == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = s.shutdown(ctx)
}

func parseBoolEnv(key string) bool {
	v, err := strconv.ParseBool(strings.TrimSpace(os.Getenv(key)))
	return err == nil && v
}

func defaultOutput(env config.Env) string {
	if out := strings.ToLower(strings.TrimSpace(env.Output)); out != "" {
		return out
	}
	return "text"
}

func defaultTimeout(env config.Env) time.Duration {
	if env.Timeout > 0 {
		return env.Timeout
	}
	return api.DefaultTimeout
}

// loadDotEnv loads ~/.config/flownet/.env. Failures are reported but not fatal.
func loadDotEnv() {
	if err := config.LoadDotEnv(config.DotEnvPath()); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
	}
}

// Execute runs the CLI with args.
func Execute(ctx context.Context, args []string) error {
	// Runs before the flag reset so FLOWNET_* values from .env become defaults.
	loadDotEnv()

	env, err := config.LoadEnv()
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return &handledError{err: err, exitCode: exitUsage}
	}

	flags = rootFlags{
		Output:       defaultOutput(env),
		Color:        "auto",
		LogLevel:     env.LogLevel.String(),
		Timeout:      defaultTimeout(env),
		Config:       env.ConfigFile,
		OTelEndpoint: env.OTelEndpoint,
	}
	sess := &session{env: env}
	defer sess.close()

	root := &cobra.Command{
		Use:                "flownet",
		Short:              "Typed HTTP client for the AnglerDiary API",
		Long:               "flownet sends requests to the AnglerDiary API, prints responses, and exports them as cURL commands.",
		SilenceUsage:       true,
		SilenceErrors:      true,
		DisableSuggestions: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return setupCommand(cmd, sess)
		},
	}

	root.SetContext(ctx)
	root.SetArgs(args)

	pf := root.PersistentFlags()
	pf.StringVarP(&flags.Output, "output", "o", flags.Output, "Output format: text|json|jsonl|ndjson (env FLOWNET_OUTPUT)")
	pf.BoolVarP(&flags.JSON, "json", "j", false, "Shorthand for --output json")
	pf.StringVarP(&flags.JQ, "jq", "q", "", "JQ expression to filter JSON output")
	pf.BoolVar(&flags.Compact, "compact-json", false, "Compact JSON output (no indentation)")
	pf.StringVar(&flags.Color, "color", flags.Color, "Color output: auto|always|never")
	pf.StringVar(&flags.LogLevel, "log-level", flags.LogLevel, "Network log level: off|info|debug (env FLOWNET_LOG_LEVEL)")
	pf.BoolVar(&flags.Debug, "debug", false, "Shorthand for --log-level debug")
	pf.DurationVar(&flags.Timeout, "timeout", flags.Timeout, "HTTP request timeout (e.g., 30s, 2m; env FLOWNET_TIMEOUT)")
	pf.BoolVar(&flags.DryRun, "dry-run", false, "Print the request instead of sending it")
	pf.BoolVarP(&flags.Quiet, "quiet", "Q", false, "Suppress non-essential output")
	pf.BoolVar(&flags.Silent, "silent", false, "Suppress non-error output to stderr")
	pf.BoolVar(&flags.AllowInsecure, "allow-insecure", false, "Allow plain http base URLs for non-local hosts (unsafe)")
	pf.StringVar(&flags.BaseURL, "base-url", "", "API base URL (env FLOWNET_BASE_URL)")
	pf.StringVar(&flags.Token, "token", "", "Bearer token (env FLOWNET_TOKEN)")
	pf.StringVarP(&flags.Environment, "env", "e", "", "Named environment from the config file (env FLOWNET_ENV)")
	pf.StringVar(&flags.Profile, "profile", "", "Stored profile to use (env FLOWNET_PROFILE)")
	pf.StringVar(&flags.Config, "config", flags.Config, "Environments file (default ~/.config/flownet/config.toml)")
	pf.StringVar(&flags.OTelEndpoint, "otel-endpoint", flags.OTelEndpoint, "OTLP/HTTP endpoint for request spans (env FLOWNET_OTEL_ENDPOINT)")

	flagAlias(pf, "output", "out")
	flagAlias(pf, "jq", "query")
	flagAlias(pf, "compact-json", "cj")
	flagAlias(pf, "dry-run", "dr")
	flagAlias(pf, "timeout", "to")
	flagAlias(pf, "log-level", "ll")
	flagAlias(pf, "env", "environment")
	registerStaticCompletions(root, "output", []string{"text", "json", "jsonl", "ndjson"})
	registerStaticCompletions(root, "color", []string{"auto", "always", "never"})
	registerStaticCompletions(root, "log-level", []string{"off", "info", "debug"})

	root.AddCommand(newRequestCmd())
	root.AddCommand(newCurlCmd())
	root.AddCommand(newBatchCmd())
	root.AddCommand(newAuthCmd())
	root.AddCommand(newEnvCmd())
	root.AddCommand(newProfileCmd())
	root.AddCommand(newCatchesCmd())
	root.AddCommand(newVersionCmd())

	targetCmd, err := root.ExecuteC()
	if err != nil {
		if !errors.Is(err, errAlreadyHandled) {
			_, _ = fmt.Fprintln(root.ErrOrStderr(), enhanceUnknownError(err, root, targetCmd))
		}
		return err
	}
	return nil
}

// setupCommand applies global flags to the context of the running command.
func setupCommand(cmd *cobra.Command, sess *session) error {
	ctx := cmd.Context()

	flags.Output = strings.ToLower(strings.TrimSpace(flags.Output))
	if flags.JSON {
		if flagOrAliasChanged(cmd, "output") && flags.Output != "json" {
			return fmt.Errorf("--json conflicts with --output %s", flags.Output)
		}
		flags.Output = "json"
	}
	if flags.JQ != "" && cmd.Annotations[annotationRawOutput] == "" && flags.Output != "json" && flags.Output != "jsonl" && flags.Output != "ndjson" {
		if flagOrAliasChanged(cmd, "output") {
			return fmt.Errorf("--jq requires --output json or jsonl (or --json)")
		}
		flags.Output = "json"
	}

	mode, err := outfmt.Parse(flags.Output)
	if err != nil {
		return err
	}
	ctx = outfmt.WithMode(ctx, mode)
	ctx = outfmt.WithCompact(ctx, flags.Compact)
	if flags.JQ != "" {
		ctx = outfmt.WithQuery(ctx, flags.JQ)
	}

	ioStreams := iocontext.DefaultIO()
	if flags.Silent || flags.Quiet {
		ioStreams.ErrOut = io.Discard
	}
	if flags.Quiet && mode == outfmt.Text {
		ioStreams.Out = io.Discard
	}
	ctx = iocontext.WithIO(ctx, ioStreams)
	cmd.SetOut(ioStreams.Out)
	cmd.SetErr(ioStreams.ErrOut)

	color, err := colorEnabled(flags.Color, ioStreams)
	if err != nil {
		return err
	}
	ctx = outfmt.WithColor(ctx, color)

	level, err := debug.ParseLevel(flags.LogLevel)
	if err != nil {
		return err
	}
	if flags.Debug {
		level = debug.LevelDebug
	}
	sess.level = level
	sess.logger = debug.SetupLogger(ioStreams.ErrOut, level)

	if flags.Timeout <= 0 {
		return fmt.Errorf("--timeout must be greater than zero")
	}

	allowInsecure := parseBoolEnv("FLOWNET_ALLOW_INSECURE") || flags.AllowInsecure
	validation.SetAllowInsecure(allowInsecure)
	if flags.AllowInsecure {
		_, _ = fmt.Fprintln(ioStreams.ErrOut, "Warning: allowing plain http base URLs (use only with trusted targets).")
	}

	envs, err := config.LoadEnvironments(flags.Config)
	if err != nil {
		return err
	}
	sess.envs = envs

	tp, shutdown, err := telemetry.Setup(ctx, telemetry.Config{
		Endpoint:       flags.OTelEndpoint,
		ServiceName:    "flownet",
		ServiceVersion: version,
	})
	if err != nil {
		return fmt.Errorf("set up tracing: %w", err)
	}
	sess.tracer, sess.shutdown = tp, shutdown

	ctx = dryrun.WithDryRun(ctx, flags.DryRun)
	ctx = context.WithValue(ctx, sessionKey{}, sess)
	cmd.SetContext(ctx)
	return nil
}

func colorEnabled(mode string, ioStreams *iocontext.IO) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case "", "auto":
		return os.Getenv("NO_COLOR") == "" && ioStreams.OutIsTerminal(), nil
	case "always":
		return true, nil
	case "never":
		return false, nil
	default:
		return false, fmt.Errorf("invalid --color %q (use auto, always, or never)", mode)
	}
}

// enhanceUnknownError adds "did you mean?" suggestions to unknown command/flag errors.
// targetCmd is the command Cobra resolved before the error (may be root itself).
func enhanceUnknownError(err error, root *cobra.Command, targetCmd *cobra.Command) string {
	msg := err.Error()

	if strings.Contains(msg, "unknown command") {
		if unknown := extractQuoted(msg); unknown != "" {
			var names []string
			for _, c := range root.Commands() {
				if c.IsAvailableCommand() || c.Name() == "help" {
					names = append(names, c.Name())
					names = append(names, c.Aliases...)
				}
			}
			if suggestion := suggestCommand(unknown, names); suggestion != "" {
				return fmt.Sprintf("%s\n\nDid you mean %q?", msg, suggestion)
			}
		}
		return msg
	}

	if !strings.Contains(msg, "unknown flag") && !strings.Contains(msg, "unknown shorthand flag") {
		return msg
	}
	unknown := extractFlag(msg)
	if unknown == "" {
		return msg
	}

	target := root
	if targetCmd != nil {
		target = targetCmd
	}
	seen := make(map[string]bool)
	var flagNames []string
	add := func(fs *pflag.FlagSet) {
		fs.VisitAll(func(f *pflag.Flag) {
			for _, name := range []string{"--" + f.Name, "-" + f.Shorthand} {
				if name == "-" || seen[name] {
					continue
				}
				seen[name] = true
				flagNames = append(flagNames, name)
			}
		})
	}
	add(target.Flags())
	add(target.InheritedFlags())

	helpCmd := strings.TrimSpace(target.CommandPath()) + " --help"
	if suggestion := suggestFlag(unknown, flagNames); suggestion != "" {
		return fmt.Sprintf("%s\n\nDid you mean %q?\nRun %q to see supported flags.", msg, suggestion, helpCmd)
	}
	return fmt.Sprintf("%s\n\nRun %q to see supported flags.", msg, helpCmd)
}

// extractQuoted extracts the first double-quoted substring from s.
func extractQuoted(s string) string {
	start := strings.IndexByte(s, '"')
	if start < 0 {
		return ""
	}
	end := strings.IndexByte(s[start+1:], '"')
	if end < 0 {
		return ""
	}
	return s[start+1 : start+1+end]
}

// extractFlag extracts a flag name such as "--foo" or "-f" from an error message.
func extractFlag(s string) string {
	idx := strings.Index(s, "--")
	if idx < 0 {
		// "unknown shorthand flag: 'a' in -a"
		idx = strings.LastIndex(s, " -")
		if idx < 0 {
			return ""
		}
		idx++
	}
	rest := s[idx:]
	if end := strings.IndexByte(rest, ' '); end >= 0 {
		rest = rest[:end]
	}
	rest = strings.TrimRight(rest, ".,;:!?\"'")
	if len(rest) < 2 || rest[0] != '-' {
		return ""
	}
	return rest
}
