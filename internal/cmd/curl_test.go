package cmd

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
)

func TestCurl_RedactsTokenByDefault(t *testing.T) {
	handler := newRouteHandler()
	env := setupTestEnvWithHandler(t, handler)

	output := captureStdout(t, func() {
		if err := Execute(context.Background(), []string{"curl", "/v1/catches", "-p", "limit=5"}); err != nil {
			t.Fatalf("curl failed: %v", err)
		}
	})

	if n := handler.count(); n != 0 {
		t.Errorf("curl must not send the request, got %d requests", n)
	}
	if !strings.HasPrefix(output, `curl "`+env.server.URL+`/v1/catches?limit=5"`) {
		t.Errorf("unexpected command start: %s", output)
	}
	if !strings.Contains(output, "'Authorization: Bearer [REDACTED]'") {
		t.Errorf("expected redacted Authorization header: %s", output)
	}
	if strings.Contains(output, "test-token") {
		t.Errorf("token leaked: %s", output)
	}
}

func TestCurl_ShowSecrets(t *testing.T) {
	setupTestEnvWithHandler(t, newRouteHandler())

	output := captureStdout(t, func() {
		err := Execute(context.Background(), []string{"curl", "/v1/catches", "-f", "location=Busan", "--show-secrets"})
		if err != nil {
			t.Fatalf("curl failed: %v", err)
		}
	})

	for _, want := range []string{"-X POST", "'Authorization: Bearer test-token'", `-d '{"location":"Busan"}'`} {
		if !strings.Contains(output, want) {
			t.Errorf("output missing %q: %s", want, output)
		}
	}
}

func TestCurl_EscapesShellExpansion(t *testing.T) {
	env := setupTestEnvWithHandler(t, newRouteHandler())

	output := captureStdout(t, func() {
		if err := Execute(context.Background(), []string{"curl", "/v1/catches", "-p", "q=$(id)"}); err != nil {
			t.Fatalf("curl failed: %v", err)
		}
	})

	if !strings.HasPrefix(output, `curl "`+env.server.URL+`/v1/catches?q=\$(id)"`) {
		t.Errorf("command substitution should be escaped: %s", output)
	}
}

func TestCurl_JSON(t *testing.T) {
	env := setupTestEnvWithHandler(t, newRouteHandler())

	output := captureStdout(t, func() {
		if err := Execute(context.Background(), []string{"curl", "/v1/catches/c1", "-X", "DELETE", "-o", "json"}); err != nil {
			t.Fatalf("curl failed: %v", err)
		}
	})

	var payload map[string]string
	if err := json.Unmarshal([]byte(output), &payload); err != nil {
		t.Fatalf("invalid JSON %q: %v", output, err)
	}
	if payload["method"] != "DELETE" {
		t.Errorf("method = %q", payload["method"])
	}
	if payload["url"] != env.server.URL+"/v1/catches/c1" {
		t.Errorf("url = %q", payload["url"])
	}
	if !strings.Contains(payload["curl"], "-X DELETE") {
		t.Errorf("curl = %q", payload["curl"])
	}
}

func TestCurl_NoAuth(t *testing.T) {
	setupTestEnvWithHandler(t, newRouteHandler())

	output := captureStdout(t, func() {
		if err := Execute(context.Background(), []string{"curl", "/v1/health", "--no-auth"}); err != nil {
			t.Fatalf("curl failed: %v", err)
		}
	})
	if strings.Contains(output, "Authorization") {
		t.Errorf("Authorization should be omitted: %s", output)
	}
}
