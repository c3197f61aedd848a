// Test utilities for the flownet commands.
//
// Commands run against an httptest server through Execute:
//
//	func TestMyCommand(t *testing.T) {
//	    handler := newRouteHandler().
//	        On("GET", "/v1/users/me", jsonResponse(200, `{"email": "a@b.c"}`))
//	    setupTestEnvWithHandler(t, handler)
//
//	    output := captureStdout(t, func() {
//	        if err := Execute(context.Background(), []string{"profile"}); err != nil {
//	            t.Fatalf("command failed: %v", err)
//	        }
//	    })
//	    // Assert on output...
//	}
//
// setupTestEnvWithHandler isolates the config directory and swaps the OS
// keychain for an in-memory one, so nothing on the host is read or written.
package cmd

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"sync"
	"testing"

	"github.com/99designs/keyring"

	"github.com/anglerdiary/flownet/internal/config"
)

// captureStdout executes fn and returns what it wrote to stdout.
func captureStdout(t *testing.T, fn func()) string {
	t.Helper()
	old := os.Stdout
	r, w, _ := os.Pipe()
	os.Stdout = w

	var buf bytes.Buffer
	done := make(chan struct{})
	go func() {
		_, _ = io.Copy(&buf, r)
		close(done)
	}()

	fn()

	_ = w.Close()
	os.Stdout = old
	<-done
	return buf.String()
}

// captureStderr executes fn and returns what it wrote to stderr.
func captureStderr(t *testing.T, fn func()) string {
	t.Helper()
	old := os.Stderr
	r, w, _ := os.Pipe()
	os.Stderr = w

	var buf bytes.Buffer
	done := make(chan struct{})
	go func() {
		_, _ = io.Copy(&buf, r)
		close(done)
	}()

	fn()

	_ = w.Close()
	os.Stderr = old
	<-done
	return buf.String()
}

// withStdin replaces os.Stdin with a pipe holding input until the test ends.
func withStdin(t *testing.T, input string) {
	t.Helper()
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatal(err)
	}
	go func() {
		_, _ = io.WriteString(w, input)
		_ = w.Close()
	}()
	old := os.Stdin
	os.Stdin = r
	t.Cleanup(func() {
		os.Stdin = old
		_ = r.Close()
	})
}

var flownetEnvKeys = []string{
	"FLOWNET_BASE_URL",
	"FLOWNET_TOKEN",
	"FLOWNET_ENV",
	"FLOWNET_PROFILE",
	"FLOWNET_LOG_LEVEL",
	"FLOWNET_TIMEOUT",
	"FLOWNET_CONFIG",
	"FLOWNET_OUTPUT",
	"FLOWNET_OTEL_ENDPOINT",
	"FLOWNET_ALLOW_INSECURE",
	"FLOWNET_KEYRING_BACKEND",
	"FLOWNET_CREDENTIALS_DIR",
	"FLOWNET_NO_CACHE",
	"NO_COLOR",
}

// isolateEnv clears FLOWNET_* variables, points the config and cache
// directories at temp dirs and installs an in-memory keyring. It returns the keyring.
func isolateEnv(t *testing.T) keyring.Keyring {
	t.Helper()
	for _, key := range flownetEnvKeys {
		t.Setenv(key, "")
		_ = os.Unsetenv(key)
	}
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("XDG_CACHE_HOME", t.TempDir())
	t.Setenv("FLOWNET_NO_UPDATE_CHECK", "1")

	ring := keyring.NewArrayKeyring(nil)
	restore := config.SetOpenKeyring(func(keyring.Config) (keyring.Keyring, error) {
		return ring, nil
	})
	t.Cleanup(restore)
	return ring
}

// testEnv gives access to the mock server.
type testEnv struct {
	server *httptest.Server
}

// setupTestEnvWithHandler starts a server for handler and exports
// FLOWNET_BASE_URL and FLOWNET_TOKEN ("test-token") pointing at it.
// Output defaults to text.
func setupTestEnvWithHandler(t *testing.T, handler http.Handler) *testEnv {
	t.Helper()
	isolateEnv(t)

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	t.Setenv("FLOWNET_BASE_URL", server.URL)
	t.Setenv("FLOWNET_TOKEN", "test-token")
	t.Setenv("FLOWNET_OUTPUT", "text")

	return &testEnv{server: server}
}

// jsonResponse returns a handler writing body with the given status.
func jsonResponse(statusCode int, body string) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(statusCode)
		_, _ = w.Write([]byte(body))
	}
}

// recordedRequest is a request seen by routeHandler.
type recordedRequest struct {
	Method string
	Path   string
	Query  string
	Header http.Header
	Body   []byte
}

// routeHandler routes on the exact "METHOD PATH" and records every request.
// Unknown routes answer 404.
//
//	handler := newRouteHandler().
//	    On("GET", "/v1/catches", jsonResponse(200, `[]`)).
//	    On("POST", "/v1/catches", jsonResponse(201, `{"id": "..."}`))
type routeHandler struct {
	mu       sync.Mutex
	routes   map[string]http.HandlerFunc
	requests []recordedRequest
}

func newRouteHandler() *routeHandler {
	return &routeHandler{routes: make(map[string]http.HandlerFunc)}
}

// On registers a handler for method and path.
func (h *routeHandler) On(method, path string, handler http.HandlerFunc) *routeHandler {
	h.routes[method+" "+path] = handler
	return h
}

func (h *routeHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	_ = r.Body.Close()
	r.Body = io.NopCloser(bytes.NewReader(body))

	h.mu.Lock()
	h.requests = append(h.requests, recordedRequest{
		Method: r.Method,
		Path:   r.URL.Path,
		Query:  r.URL.RawQuery,
		Header: r.Header.Clone(),
		Body:   body,
	})
	handler, ok := h.routes[r.Method+" "+r.URL.Path]
	h.mu.Unlock()

	if !ok {
		http.NotFound(w, r)
		return
	}
	handler(w, r)
}

// last returns the most recent request, failing the test when there is none.
func (h *routeHandler) last(t *testing.T) recordedRequest {
	t.Helper()
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.requests) == 0 {
		t.Fatal("no request received")
	}
	return h.requests[len(h.requests)-1]
}

func (h *routeHandler) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.requests)
}
