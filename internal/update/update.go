// Package update checks GitHub for a newer flownet release.
package update

import (
	"context"
	"strings"
	"time"

	"golang.org/x/mod/semver"

	"github.com/anglerdiary/flownet/internal/api"
	"github.com/anglerdiary/flownet/internal/debug"
)

const (
	DefaultGitHubAPIURL = "https://api.github.com"
	ReleasePath         = "/repos/anglerdiary/flownet/releases/latest"
	CheckTimeout        = 5 * time.Second
)

// GitHubAPIURL is the API root queried for releases. Overridden in tests.
var GitHubAPIURL = DefaultGitHubAPIURL

type Release struct {
	TagName string `json:"tag_name"`
	HTMLURL string `json:"html_url"`
}

type latestRelease struct {
	api.Endpoint[Release]
}

func (latestRelease) Path() string { return ReleasePath }

func (latestRelease) Headers() api.Headers {
	return api.Headers{"Accept": "application/vnd.github+json"}
}

type CheckResult struct {
	CurrentVersion  string `json:"current_version"`
	LatestVersion   string `json:"latest_version"`
	UpdateURL       string `json:"update_url"`
	UpdateAvailable bool   `json:"update_available"`
}

// CheckForUpdate reports whether a newer release exists. Development builds
// are never checked, and any failure yields nil.
func CheckForUpdate(ctx context.Context, currentVersion string) *CheckResult {
	if currentVersion == "dev" || currentVersion == "" {
		return nil
	}

	client := api.New(GitHubAPIURL,
		api.WithTimeout(CheckTimeout),
		api.WithLogLevel(debug.LevelOff),
		api.WithUserAgent("flownet/"+currentVersion),
	)
	release, err := api.Send[Release](ctx, client, latestRelease{})
	if err != nil || release.TagName == "" {
		return nil
	}

	current := normalizeVersion(currentVersion)
	latest := normalizeVersion(release.TagName)

	result := &CheckResult{
		CurrentVersion: currentVersion,
		LatestVersion:  strings.TrimPrefix(release.TagName, "v"),
		UpdateURL:      release.HTMLURL,
	}
	if semver.IsValid(current) && semver.IsValid(latest) {
		result.UpdateAvailable = semver.Compare(latest, current) > 0
	}
	return result
}

func normalizeVersion(v string) string {
	if !strings.HasPrefix(v, "v") {
		return "v" + v
	}
	return v
}
