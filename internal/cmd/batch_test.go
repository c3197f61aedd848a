package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/anglerdiary/flownet/internal/api"
)

func TestParseBatch(t *testing.T) {
	t.Run("json array", func(t *testing.T) {
		specs, err := parseBatch([]byte(`[{"method":"GET","path":"/a"},{"method":"POST","path":"/b","body":{"x":1}}]`))
		if err != nil {
			t.Fatalf("parseBatch: %v", err)
		}
		if len(specs) != 2 || specs[1].Path != "/b" {
			t.Errorf("unexpected specs: %+v", specs)
		}
	})

	t.Run("jsonl with comments", func(t *testing.T) {
		input := "# catches\n{\"path\":\"/a\"}\n\n{\"method\":\"DELETE\",\"path\":\"/b\"}\n"
		specs, err := parseBatch([]byte(input))
		if err != nil {
			t.Fatalf("parseBatch: %v", err)
		}
		if len(specs) != 2 || specs[1].Method != "DELETE" {
			t.Errorf("unexpected specs: %+v", specs)
		}
	})

	t.Run("bad line", func(t *testing.T) {
		_, err := parseBatch([]byte("{\"path\":\"/a\"}\n{nope}\n"))
		if err == nil || !strings.Contains(err.Error(), "line 2") {
			t.Errorf("expected line 2 error, got %v", err)
		}
	})

	t.Run("empty", func(t *testing.T) {
		if _, err := parseBatch([]byte("  \n")); err == nil {
			t.Error("expected error for empty input")
		}
	})
}

func TestParseBatch_KeepsLargeIntegers(t *testing.T) {
	inputs := []string{
		`[{"method":"POST","path":"/v1/catches","query":{"after":12345678901234567},"body":{"spot_id":12345678901234567,"weight":1.25}}]`,
		"{\"method\":\"POST\",\"path\":\"/v1/catches\",\"query\":{\"after\":12345678901234567},\"body\":{\"spot_id\":12345678901234567,\"weight\":1.25}}\n",
	}
	for _, input := range inputs {
		specs, err := parseBatch([]byte(input))
		if err != nil {
			t.Fatalf("parseBatch: %v", err)
		}
		req, err := specs[0].descriptor("")
		if err != nil {
			t.Fatalf("descriptor: %v", err)
		}
		resolved, err := api.Resolve(req, "https://api.example.com")
		if err != nil {
			t.Fatalf("Resolve: %v", err)
		}
		if got := resolved.URL.RawQuery; got != "after=12345678901234567" {
			t.Errorf("query = %q", got)
		}
		if got := string(resolved.Body); got != `{"spot_id":12345678901234567,"weight":1.25}` {
			t.Errorf("body = %s", got)
		}
	}
}

func TestParseBatch_TrailingData(t *testing.T) {
	if _, err := parseBatch([]byte(`[{"path":"/a"}] [{"path":"/b"}]`)); err == nil {
		t.Fatal("expected an error for trailing JSON")
	}
}

func TestBatchSpecDescriptor(t *testing.T) {
	spec := batchSpec{
		Path:    "/v1/catches?species=bream",
		Query:   map[string]any{"limit": 5},
		Headers: map[string]string{"X-Trace": "1"},
	}
	req, err := spec.descriptor("tok")
	if err != nil {
		t.Fatalf("descriptor: %v", err)
	}
	if req.RequestMethod != api.MethodGet {
		t.Errorf("method = %v", req.RequestMethod)
	}
	if req.RequestPath != "/v1/catches" {
		t.Errorf("path = %q", req.RequestPath)
	}
	if want := api.P("species", "bream", "limit", 5); !reflect.DeepEqual(req.Query, want) {
		t.Errorf("query = %v, want %v", req.Query, want)
	}
	if req.Token != "tok" {
		t.Errorf("token = %q", req.Token)
	}

	spec.NoAuth = true
	req, err = spec.descriptor("tok")
	if err != nil {
		t.Fatalf("descriptor: %v", err)
	}
	if req.Token != "" {
		t.Errorf("no-auth spec kept token %q", req.Token)
	}

	if _, err := (batchSpec{Path: "/x", Type: "multipart"}).descriptor(""); err == nil {
		t.Error("expected error for multipart batch item")
	}
}

func TestRunBatch_KeepsOrderAndBoundsConcurrency(t *testing.T) {
	var inFlight, maxInFlight int32
	server := newRouteHandler()
	for _, p := range []string{"/a", "/b", "/c", "/d", "/e", "/f"} {
		server.On("GET", p, func(w http.ResponseWriter, r *http.Request) {
			n := atomic.AddInt32(&inFlight, 1)
			for {
				m := atomic.LoadInt32(&maxInFlight)
				if n <= m || atomic.CompareAndSwapInt32(&maxInFlight, m, n) {
					break
				}
			}
			time.Sleep(20 * time.Millisecond)
			atomic.AddInt32(&inFlight, -1)
			jsonResponse(200, `{"path":"`+r.URL.Path+`"}`)(w, r)
		})
	}
	env := setupTestEnvWithHandler(t, server)

	specs := []batchSpec{{Path: "/a"}, {Path: "/b"}, {Path: "/c"}, {Path: "/d"}, {Path: "/e"}, {Path: "/f"}}
	client := api.New(env.server.URL)
	var progress bytes.Buffer
	results := runBatch(context.Background(), client, specs, batchOptions{Token: "tok", Concurrency: 2, Progress: &progress})

	if len(results) != len(specs) {
		t.Fatalf("expected %d results, got %d", len(specs), len(results))
	}
	for i, r := range results {
		if r.Index != i || r.Path != specs[i].Path {
			t.Errorf("result %d out of order: index=%d path=%s", i, r.Index, r.Path)
		}
		if !r.OK || r.Status != 200 {
			t.Errorf("result %d failed: status=%d error=%s", i, r.Status, r.Error)
		}
		var body struct {
			Path string `json:"path"`
		}
		if err := json.Unmarshal(r.Body, &body); err != nil || body.Path != specs[i].Path {
			t.Errorf("result %d body = %s", i, r.Body)
		}
	}
	if got := atomic.LoadInt32(&maxInFlight); got > 2 {
		t.Errorf("max in flight = %d, want <= 2", got)
	}
	if !strings.Contains(progress.String(), "Processed 6/6") {
		t.Errorf("unexpected progress: %q", progress.String())
	}
}

func TestRunBatch_FailuresDoNotStopOthers(t *testing.T) {
	handler := newRouteHandler().
		On("GET", "/ok", jsonResponse(200, `{}`)).
		On("GET", "/boom", jsonResponse(500, `{"message":"down"}`))
	env := setupTestEnvWithHandler(t, handler)

	specs := []batchSpec{{Path: "/boom"}, {Path: "/ok"}, {Path: "/missing"}, {Path: "/x", Type: "bogus"}}
	results := runBatch(context.Background(), api.New(env.server.URL), specs, batchOptions{})

	if len(results) != 4 {
		t.Fatalf("expected 4 results, got %d", len(results))
	}
	if results[0].Code != api.CodeServerError || results[0].Attempts != 1 {
		t.Errorf("result 0 = %+v", results[0])
	}
	if !results[1].OK {
		t.Errorf("result 1 should succeed: %+v", results[1])
	}
	if results[2].Code != api.CodeNotFound || results[2].Status != 404 {
		t.Errorf("result 2 = %+v", results[2])
	}
	if results[3].Code != api.CodeInvalidRequest || results[3].Attempts != 0 {
		t.Errorf("result 3 = %+v", results[3])
	}
	if got := countBatchFailures(results); got != 3 {
		t.Errorf("failures = %d, want 3", got)
	}
}

func TestRunBatch_RetriesTransientFailures(t *testing.T) {
	var flaky, missing int32
	handler := newRouteHandler().
		On("GET", "/flaky", func(w http.ResponseWriter, r *http.Request) {
			switch atomic.AddInt32(&flaky, 1) {
			case 1:
				jsonResponse(503, `{"message":"warming up"}`)(w, r)
			case 2:
				w.Header().Set("Retry-After", "0")
				jsonResponse(429, `{"message":"slow down"}`)(w, r)
			default:
				jsonResponse(200, `{"ok":true}`)(w, r)
			}
		}).
		On("GET", "/missing", func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt32(&missing, 1)
			jsonResponse(404, `{}`)(w, r)
		})
	env := setupTestEnvWithHandler(t, handler)

	specs := []batchSpec{{Path: "/flaky"}, {Path: "/missing"}}
	opts := batchOptions{Retry: api.RetryPolicy{MaxRetries: 3, BaseDelay: time.Millisecond}}
	results := runBatch(context.Background(), api.New(env.server.URL), specs, opts)

	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if first := results[0]; !first.OK || first.Attempts != 3 || first.Status != 200 || first.Code != "" {
		t.Errorf("flaky result = %+v", first)
	}
	if second := results[1]; second.OK || second.Attempts != 1 {
		t.Errorf("missing result = %+v", second)
	}
	if got := atomic.LoadInt32(&missing); got != 1 {
		t.Errorf("404 was sent %d times, want 1", got)
	}
}

func TestRunBatch_RetriesExhausted(t *testing.T) {
	var calls int32
	handler := newRouteHandler().
		On("GET", "/down", func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt32(&calls, 1)
			jsonResponse(500, `{"message":"down"}`)(w, r)
		})
	env := setupTestEnvWithHandler(t, handler)

	opts := batchOptions{Retry: api.RetryPolicy{MaxRetries: 2, BaseDelay: time.Millisecond}}
	results := runBatch(context.Background(), api.New(env.server.URL), []batchSpec{{Path: "/down"}}, opts)

	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	if r := results[0]; r.OK || r.Code != api.CodeServerError || r.Attempts != 3 {
		t.Errorf("result = %+v", r)
	}
	if got := atomic.LoadInt32(&calls); got != 3 {
		t.Errorf("calls = %d, want 3", got)
	}
}

func TestBatchCommand_Table(t *testing.T) {
	handler := newRouteHandler().
		On("GET", "/v1/users/me", jsonResponse(200, `{}`)).
		On("DELETE", "/v1/catches/c1", func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusNoContent)
		})
	setupTestEnvWithHandler(t, handler)

	path := filepath.Join(t.TempDir(), "batch.jsonl")
	input := "{\"path\":\"/v1/users/me\"}\n{\"method\":\"delete\",\"path\":\"/v1/catches/c1\"}\n"
	if err := os.WriteFile(path, []byte(input), 0o600); err != nil {
		t.Fatal(err)
	}

	output := captureStdout(t, func() {
		if err := Execute(context.Background(), []string{"batch", "-i", path}); err != nil {
			t.Fatalf("batch failed: %v", err)
		}
	})

	lines := strings.Split(strings.TrimSpace(output), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %d: %s", len(lines), output)
	}
	if !strings.Contains(lines[0], "METHOD") {
		t.Errorf("missing header: %s", lines[0])
	}
	if !strings.Contains(lines[1], "/v1/users/me") {
		t.Errorf("unexpected first row: %s", lines[1])
	}
	if !strings.Contains(lines[2], "DELETE") || !strings.Contains(lines[2], "204") {
		t.Errorf("unexpected second row: %s", lines[2])
	}
}

func TestBatchCommand_JSONLFromStdinWithFailure(t *testing.T) {
	handler := newRouteHandler().
		On("GET", "/v1/users/me", jsonResponse(200, `{"nickname":"kim"}`))
	setupTestEnvWithHandler(t, handler)
	withStdin(t, `[{"path":"/v1/users/me"},{"path":"/v1/nope"}]`)

	var err error
	output := captureStdout(t, func() {
		_ = captureStderr(t, func() {
			err = Execute(context.Background(), []string{"batch", "-o", "jsonl"})
		})
	})
	if err == nil || !strings.Contains(err.Error(), "1 of 2 requests failed") {
		t.Fatalf("expected partial failure error, got %v", err)
	}

	lines := strings.Split(strings.TrimSpace(output), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d: %s", len(lines), output)
	}
	var first, second BatchResult
	if err := json.Unmarshal([]byte(lines[0]), &first); err != nil {
		t.Fatalf("line 1: %v", err)
	}
	if err := json.Unmarshal([]byte(lines[1]), &second); err != nil {
		t.Fatalf("line 2: %v", err)
	}
	if !first.OK {
		t.Errorf("first result should succeed: %+v", first)
	}
	if second.OK || second.Code != api.CodeNotFound {
		t.Errorf("second result = %+v", second)
	}
}

func TestBatchCommand_DryRun(t *testing.T) {
	handler := newRouteHandler()
	setupTestEnvWithHandler(t, handler)
	withStdin(t, "{\"method\":\"POST\",\"path\":\"/v1/catches\",\"body\":{\"location\":\"Busan\"}}\n")

	output := captureStdout(t, func() {
		if err := Execute(context.Background(), []string{"batch", "--dry-run"}); err != nil {
			t.Fatalf("batch failed: %v", err)
		}
	})
	if got := handler.count(); got != 0 {
		t.Errorf("dry run sent %d requests", got)
	}
	if !strings.Contains(output, "[DRY-RUN] Would send POST") || !strings.Contains(output, `{"location":"Busan"}`) {
		t.Errorf("unexpected output: %s", output)
	}
}

func TestBatchCommand_InvalidConcurrency(t *testing.T) {
	setupTestEnvWithHandler(t, newRouteHandler())

	for _, args := range [][]string{{"batch", "-c", "0"}, {"batch", "--retries", "-1"}} {
		var err error
		_ = captureStderr(t, func() {
			err = Execute(context.Background(), args)
		})
		if err == nil {
			t.Errorf("%v: expected error", args)
			continue
		}
		if code := ExitCode(err); code != exitUsage {
			t.Errorf("%v: exit code = %d, want %d", args, code, exitUsage)
		}
	}
}

func TestBatchCommand_Retries(t *testing.T) {
	var calls int32
	handler := newRouteHandler().
		On("GET", "/v1/users/me", func(w http.ResponseWriter, r *http.Request) {
			if atomic.AddInt32(&calls, 1) == 1 {
				jsonResponse(502, `{}`)(w, r)
				return
			}
			jsonResponse(200, `{"nickname":"kim"}`)(w, r)
		})
	setupTestEnvWithHandler(t, handler)
	withStdin(t, "{\"path\":\"/v1/users/me\"}\n")

	output := captureStdout(t, func() {
		if err := Execute(context.Background(), []string{"batch", "--retries", "2", "--retry-delay", "1ms", "-o", "json"}); err != nil {
			t.Fatalf("batch failed: %v", err)
		}
	})

	var results []BatchResult
	if err := json.Unmarshal([]byte(output), &results); err != nil {
		t.Fatalf("invalid JSON %q: %v", output, err)
	}
	if len(results) != 1 || !results[0].OK || results[0].Attempts != 2 {
		t.Errorf("results = %+v", results)
	}
}
