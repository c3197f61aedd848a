package cmd

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/anglerdiary/flownet/internal/config"
)

func writeConfig(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(contents), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestEnvList_Builtins(t *testing.T) {
	isolateEnv(t)

	output := captureStdout(t, func() {
		if err := Execute(context.Background(), []string{"env", "list"}); err != nil {
			t.Fatalf("env list failed: %v", err)
		}
	})
	if !strings.Contains(output, "BASE URL") {
		t.Errorf("missing header row: %s", output)
	}
	if !regexp.MustCompile(`\*\s+production\s+https://api.anglerdiary.com`).MatchString(output) {
		t.Errorf("production should be marked as default: %s", output)
	}
	if !strings.Contains(output, "https://devapi.anglerdiary.com") {
		t.Errorf("missing development URL: %s", output)
	}
}

func TestEnvList_ConfigFileJSON(t *testing.T) {
	isolateEnv(t)
	path := writeConfig(t, `
default_environment = "staging"

[environments.staging]
base_url = "https://staging.anglerdiary.com/"
description = "Pre-release API"
`)

	output := captureStdout(t, func() {
		if err := Execute(context.Background(), []string{"env", "list", "--config", path, "--json"}); err != nil {
			t.Fatalf("env list failed: %v", err)
		}
	})

	var payload struct {
		Default      string               `json:"default"`
		Environments []config.Environment `json:"environments"`
	}
	if err := json.Unmarshal([]byte(output), &payload); err != nil {
		t.Fatalf("invalid JSON %q: %v", output, err)
	}
	if payload.Default != "staging" {
		t.Errorf("default = %q, want staging", payload.Default)
	}
	if len(payload.Environments) != 3 {
		t.Fatalf("expected 3 environments, got %d", len(payload.Environments))
	}

	var staging *config.Environment
	for i := range payload.Environments {
		if payload.Environments[i].Name == "staging" {
			staging = &payload.Environments[i]
		}
	}
	if staging == nil {
		t.Fatal("staging environment missing")
	}
	if staging.BaseURL != "https://staging.anglerdiary.com" {
		t.Errorf("base URL = %q", staging.BaseURL)
	}
	if staging.Builtin {
		t.Error("staging should not be built in")
	}
}

func TestEnvShow(t *testing.T) {
	isolateEnv(t)

	output := captureStdout(t, func() {
		if err := Execute(context.Background(), []string{"env", "show", "development"}); err != nil {
			t.Fatalf("env show failed: %v", err)
		}
	})
	if !strings.Contains(output, "https://devapi.anglerdiary.com") || !strings.Contains(output, "built-in") {
		t.Errorf("unexpected output: %s", output)
	}

	output = captureStdout(t, func() {
		if err := Execute(context.Background(), []string{"env", "show", "-e", "development", "-o", "json"}); err != nil {
			t.Fatalf("env show failed: %v", err)
		}
	})
	var payload map[string]any
	if err := json.Unmarshal([]byte(output), &payload); err != nil {
		t.Fatalf("invalid JSON %q: %v", output, err)
	}
	if payload["name"] != "development" {
		t.Errorf("name = %v", payload["name"])
	}
	if payload["default"] != false {
		t.Errorf("default = %v, want false", payload["default"])
	}
}

func TestEnvShow_UnknownSuggests(t *testing.T) {
	isolateEnv(t)

	var err error
	stderr := captureStderr(t, func() {
		err = Execute(context.Background(), []string{"env", "show", "prodution"})
	})
	if err == nil {
		t.Fatal("expected error for unknown environment")
	}
	if code := ExitCode(err); code != exitUsage {
		t.Errorf("exit code = %d, want %d", code, exitUsage)
	}
	if !strings.Contains(stderr, "production") || !strings.Contains(stderr, "flownet env list") {
		t.Errorf("expected suggestion in stderr: %s", stderr)
	}
}

func TestEnvironmentSelectsBaseURL(t *testing.T) {
	handler := newRouteHandler().
		On("GET", "/v1/users/me", jsonResponse(200, `{}`))
	env := setupTestEnvWithHandler(t, handler)
	_ = os.Unsetenv("FLOWNET_BASE_URL")
	path := writeConfig(t, "[environments.local]\nbase_url = \""+env.server.URL+"\"\n")

	_ = captureStdout(t, func() {
		if err := Execute(context.Background(), []string{"request", "/v1/users/me", "--config", path, "--env", "local"}); err != nil {
			t.Fatalf("request failed: %v", err)
		}
	})
	if got := handler.count(); got != 1 {
		t.Errorf("expected 1 request, got %d", got)
	}
}

func TestInvalidConfigFile(t *testing.T) {
	isolateEnv(t)
	path := writeConfig(t, "[environments.broken]\ndescription = \"no url\"\n")

	var err error
	_ = captureStderr(t, func() {
		err = Execute(context.Background(), []string{"env", "list", "--config", path})
	})
	if err == nil || !strings.Contains(err.Error(), "base_url is required") {
		t.Errorf("expected base_url error, got %v", err)
	}
}
