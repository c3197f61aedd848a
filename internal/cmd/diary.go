package cmd

import (
	"fmt"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/anglerdiary/flownet/internal/api"
	"github.com/anglerdiary/flownet/internal/cache"
	"github.com/anglerdiary/flownet/internal/cli"
	"github.com/anglerdiary/flownet/internal/config"
	"github.com/anglerdiary/flownet/internal/diary"
	"github.com/anglerdiary/flownet/internal/iocontext"
	"github.com/anglerdiary/flownet/internal/urlparse"
)

func newProfileCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "profile",
		Aliases: []string{"me", "whoami"},
		Short:   "Show the signed-in angler",
		Args:    cobra.NoArgs,
		RunE: RunE(func(cmd *cobra.Command, _ []string) error {
			client, cfg, err := getAuthedClient(cmd)
			if err != nil {
				return err
			}
			req := diary.GetProfile{Token: cfg.Token}
			if handled, err := maybeDryRun(cmd, client, req); handled {
				return err
			}

			user, err := api.Send[diary.User](cmdContext(cmd), client, req)
			if err != nil {
				return err
			}
			if isJSON(cmd) {
				return printJSON(cmd, user)
			}

			f := newFormatter(cmd)
			f.Row("ID:", user.ID.String())
			f.Row("Email:", user.Email)
			f.Row("Nickname:", user.Nickname)
			if user.ExperienceLevel != "" {
				f.Row("Level:", user.ExperienceLevel.EnglishName())
			}
			if !user.SignUpDate.IsZero() {
				f.Row("Joined:", user.SignUpDate.Local().Format("2006-01-02"))
			}
			if len(user.PreferredMethods) > 0 {
				names := make([]string, len(user.PreferredMethods))
				for i, m := range user.PreferredMethods {
					names[i] = m.EnglishName()
				}
				f.Row("Methods:", strings.Join(names, ", "))
			}
			if len(user.Achievements) > 0 {
				f.Row("Achievements:", strconv.Itoa(len(user.Achievements)))
			}
			return f.EndTable()
		}),
	}
}

func newCatchesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "catches",
		Aliases: []string{"catch", "c"},
		Short:   "Manage catch records",
	}

	cmd.AddCommand(newCatchesListCmd())
	cmd.AddCommand(newCatchesCreateCmd())
	cmd.AddCommand(newCatchesDeleteCmd())
	cmd.AddCommand(newCatchesPhotoCmd())

	return cmd
}

func registerMethodCompletion(cmd *cobra.Command) {
	methods := diary.FishingMethods()
	slugs := make([]string, len(methods))
	for i, m := range methods {
		slugs[i] = m.Slug()
	}
	registerStaticCompletions(cmd, "method", slugs)
}

// parseTimeFlag accepts the expressions cli.ParseCatchTime understands.
func parseTimeFlag(name, value string) (time.Time, error) {
	if strings.TrimSpace(value) == "" {
		return time.Time{}, nil
	}
	t, err := cli.ParseCatchTime(value, time.Now())
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid --%s %q: use YYYY-MM-DD, RFC 3339, yesterday or 3d ago", name, value)
	}
	return t, nil
}

func newCatchesListCmd() *cobra.Command {
	var (
		species string
		method  string
		since   string
		limit   int
	)

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List catch records, newest first",
		Example: strings.TrimSpace(`
  flownet catches list --limit 5
  flownet catches list --method lure --since "2w ago" --json
`),
		Args: cobra.NoArgs,
		RunE: RunE(func(cmd *cobra.Command, _ []string) error {
			if limit < 0 || limit > diary.MaxCatchLimit {
				return fmt.Errorf("--limit must be between 1 and %d", diary.MaxCatchLimit)
			}
			req := diary.ListCatches{Species: strings.TrimSpace(species), Limit: limit}
			if method != "" {
				m, err := diary.ParseFishingMethod(method)
				if err != nil {
					return err
				}
				req.Method = m
			}
			t, err := parseTimeFlag("since", since)
			if err != nil {
				return err
			}
			req.Since = t

			client, cfg, err := getAuthedClient(cmd)
			if err != nil {
				return err
			}
			req.Token = cfg.Token
			if handled, err := maybeDryRun(cmd, client, req); handled {
				return err
			}

			catches, err := api.Send[[]diary.CatchRecord](cmdContext(cmd), client, req)
			if err != nil {
				return err
			}
			if isJSON(cmd) {
				items := make([]any, len(catches))
				for i, c := range catches {
					items[i] = c
				}
				return printJSON(cmd, items)
			}

			f := newFormatter(cmd)
			if len(catches) == 0 {
				f.Empty("No catches found.")
				return nil
			}
			f.StartTable("ID", "SPECIES", "METHOD", "WEIGHT", "LENGTH", "LOCATION", "TIME")
			for _, c := range catches {
				f.Row(
					c.ID.String(),
					c.FishSpecies.Name,
					c.Method.Slug(),
					formatMeasure(c.Weight, "kg"),
					formatMeasure(c.Length, "cm"),
					c.Location,
					c.Time.Local().Format("2006-01-02 15:04"),
				)
			}
			return f.EndTable()
		}),
	}

	cmd.Flags().StringVar(&species, "species", "", "Filter by species name")
	cmd.Flags().StringVar(&method, "method", "", "Filter by fishing method")
	cmd.Flags().StringVar(&since, "since", "", "Only catches at or after this time (e.g. 2025-06-01, yesterday, 3d ago)")
	cmd.Flags().IntVarP(&limit, "limit", "l", diary.DefaultCatchLimit, "Maximum records to return")
	flagAlias(cmd.Flags(), "species", "sp")
	registerMethodCompletion(cmd)

	return cmd
}

func formatMeasure(v *float64, unit string) string {
	if v == nil {
		return "-"
	}
	return strconv.FormatFloat(*v, 'f', -1, 64) + unit
}

func newCatchesCreateCmd() *cobra.Command {
	var (
		c      diary.NewCatch
		method string
		when   string
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Log a catch",
		Example: strings.TrimSpace(`
  flownet catches create --species 감성돔 --location Busan --method float --weight 1.2
  flownet catches create --species Mackerel --location Jeju --method boat --time 2025-07-04T05:30:00+09:00 --tag night
`),
		Args: cobra.NoArgs,
		RunE: RunE(func(cmd *cobra.Command, _ []string) error {
			if method != "" {
				m, err := diary.ParseFishingMethod(method)
				if err != nil {
					return err
				}
				c.Method = m
			}
			t, err := parseTimeFlag("time", when)
			if err != nil {
				return err
			}
			c.Time = t
			c.Species = strings.TrimSpace(c.Species)
			c.Location = strings.TrimSpace(c.Location)

			req := diary.CreateCatch{Catch: c}
			if err := req.Validate(); err != nil {
				return err
			}

			client, cfg, err := getAuthedClient(cmd)
			if err != nil {
				return err
			}
			req.Token = cfg.Token
			if handled, err := maybeDryRun(cmd, client, req); handled {
				return err
			}

			record, err := api.Send[diary.CatchRecord](cmdContext(cmd), client, req)
			if err != nil {
				return err
			}
			catchCache(cfg).Clear()
			if isJSON(cmd) {
				return printJSON(cmd, record)
			}
			_, _ = fmt.Fprintf(iocontext.GetIO(cmd.Context()).Out, "Logged catch %s (%s at %s)\n",
				record.ID, record.FishSpecies.Name, record.Location)
			return nil
		}),
	}

	cmd.Flags().StringVar(&c.Species, "species", "", "Fish species name (required)")
	cmd.Flags().StringVar(&c.Location, "location", "", "Where it was caught (required)")
	cmd.Flags().StringVar(&method, "method", "", "Fishing method (required)")
	cmd.Flags().Float64Var(&c.Weight, "weight", 0, "Weight in kg")
	cmd.Flags().Float64Var(&c.Length, "length", 0, "Length in cm")
	cmd.Flags().StringVar(&when, "time", "", "Catch time (default now)")
	cmd.Flags().StringSliceVar(&c.Tags, "tag", nil, "Tag (repeatable)")
	flagAlias(cmd.Flags(), "species", "sp")
	flagAlias(cmd.Flags(), "location", "loc")
	registerMethodCompletion(cmd)

	return cmd
}

// catchCache holds the recent catches of one account for completion.
func catchCache(cfg config.ClientConfig) *cache.Store[[]diary.CatchRecord] {
	dir, err := cache.DefaultDir()
	if err != nil {
		dir = ""
	}
	return cache.NewStore[[]diary.CatchRecord](dir, "catches", cfg.BaseURL+"\x00"+cfg.Token)
}

// completeCatchID completes the first argument with recent catch IDs. Later
// arguments fall back to file completion when files is set.
func completeCatchID(files bool) cobra.CompletionFunc {
	return func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		if len(args) > 0 {
			if files {
				return nil, cobra.ShellCompDirectiveDefault
			}
			return nil, cobra.ShellCompDirectiveNoFileComp
		}
		client, cfg, err := getAuthedClient(cmd)
		if err != nil {
			return nil, cobra.ShellCompDirectiveNoFileComp
		}

		store := catchCache(cfg)
		catches, ok := store.Get()
		if !ok {
			req := diary.ListCatches{Token: cfg.Token, Limit: diary.MaxCatchLimit}
			catches, err = api.Send[[]diary.CatchRecord](cmdContext(cmd), client, req)
			if err != nil {
				return nil, cobra.ShellCompDirectiveNoFileComp
			}
			store.Put(catches)
		}

		var out []string
		for _, c := range catches {
			id := c.ID.String()
			if strings.HasPrefix(id, strings.ToLower(toComplete)) {
				out = append(out, fmt.Sprintf("%s\t%s at %s", id, c.FishSpecies.Name, c.Location))
			}
		}
		return out, cobra.ShellCompDirectiveNoFileComp
	}
}

// parseCatchID accepts a bare UUID or a catch URL copied from the web app.
func parseCatchID(s string) (uuid.UUID, error) {
	if urlparse.IsURL(s) {
		ref, err := urlparse.Parse(strings.TrimSpace(s))
		if err != nil {
			return uuid.Nil, fmt.Errorf("invalid catch id %q: %w", s, err)
		}
		if ref.ResourceType != "catch" || !ref.HasResourceID() {
			return uuid.Nil, fmt.Errorf("invalid catch id %q: URL does not name a catch", s)
		}
		return ref.ResourceID, nil
	}
	id, err := uuid.Parse(strings.TrimSpace(s))
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid catch id %q: %w", s, err)
	}
	return id, nil
}

func newCatchesDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:               "delete <id|url>",
		Aliases:           []string{"rm"},
		Short:             "Delete a catch record",
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: completeCatchID(false),
		RunE: RunE(func(cmd *cobra.Command, args []string) error {
			id, err := parseCatchID(args[0])
			if err != nil {
				return err
			}
			client, cfg, err := getAuthedClient(cmd)
			if err != nil {
				return err
			}
			req := diary.DeleteCatch{Token: cfg.Token, CatchID: id}
			if handled, err := maybeDryRun(cmd, client, req); handled {
				return err
			}
			if _, err := api.Send[api.Empty](cmdContext(cmd), client, req); err != nil {
				return err
			}
			catchCache(cfg).Clear()
			if isJSON(cmd) {
				return printJSON(cmd, map[string]any{"deleted": id})
			}
			_, _ = fmt.Fprintf(iocontext.GetIO(cmd.Context()).Out, "Deleted catch %s\n", id)
			return nil
		}),
	}
}

func newCatchesPhotoCmd() *cobra.Command {
	var caption, mimeType string

	cmd := &cobra.Command{
		Use:   "photo <id|url> <file>",
		Short: "Upload a photo for a catch",
		Example: strings.TrimSpace(`
  flownet catches photo 6f1c2b4e-0d7a-4f43-9a55-3f1f0c9e8b21 ./bream.jpg --caption "Morning tide"
`),
		Args:              cobra.ExactArgs(2),
		ValidArgsFunction: completeCatchID(true),
		RunE: RunE(func(cmd *cobra.Command, args []string) error {
			id, err := parseCatchID(args[0])
			if err != nil {
				return err
			}
			data, err := os.ReadFile(args[1])
			if err != nil {
				return fmt.Errorf("failed to read photo: %w", err)
			}
			if mimeType == "" {
				mimeType = mime.TypeByExtension(filepath.Ext(args[1]))
			}
			if mimeType == "" {
				mimeType = http.DetectContentType(data)
			}

			req := diary.UploadCatchPhoto{
				CatchID:  id,
				FileName: filepath.Base(args[1]),
				MIMEType: mimeType,
				Data:     data,
				Caption:  caption,
			}
			if err := req.Validate(); err != nil {
				return err
			}

			client, cfg, err := getAuthedClient(cmd)
			if err != nil {
				return err
			}
			req.Token = cfg.Token
			if handled, err := maybeDryRun(cmd, client, req); handled {
				return err
			}

			photo, err := api.Send[diary.Photo](cmdContext(cmd), client, req)
			if err != nil {
				return err
			}
			if isJSON(cmd) {
				return printJSON(cmd, photo)
			}
			out := iocontext.GetIO(cmd.Context()).Out
			_, _ = fmt.Fprintf(out, "Uploaded %s (%d bytes)\n", req.FileName, len(data))
			if photo.URL != "" {
				_, _ = fmt.Fprintf(out, "  URL: %s\n", photo.URL)
			}
			return nil
		}),
	}

	cmd.Flags().StringVar(&caption, "caption", "", "Photo caption")
	cmd.Flags().StringVar(&mimeType, "type", "", "MIME type (default: from extension or content)")

	return cmd
}
