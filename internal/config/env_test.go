package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/anglerdiary/flownet/internal/debug"
)

func TestLoadEnv(t *testing.T) {
	t.Setenv("FLOWNET_BASE_URL", "https://api.example.com")
	t.Setenv("FLOWNET_TOKEN", "tok")
	t.Setenv("FLOWNET_ENV", "development")
	t.Setenv("FLOWNET_LOG_LEVEL", "info")
	t.Setenv("FLOWNET_TIMEOUT", "5s")

	e, err := LoadEnv()
	if err != nil {
		t.Fatalf("LoadEnv: %v", err)
	}
	if e.BaseURL != "https://api.example.com" || e.Token != "tok" || e.Environment != "development" {
		t.Errorf("unexpected env: %+v", e)
	}
	if e.LogLevel != debug.LevelInfo {
		t.Errorf("LogLevel = %v", e.LogLevel)
	}
	if e.Timeout != 5*time.Second {
		t.Errorf("Timeout = %v", e.Timeout)
	}
}

func TestLoadEnv_InvalidLevel(t *testing.T) {
	t.Setenv("FLOWNET_LOG_LEVEL", "loud")
	if _, err := LoadEnv(); err == nil {
		t.Fatal("expected error for invalid log level")
	}
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	if err := os.WriteFile(path, []byte("FLOWNET_TEST_DOTENV=from-file\nFLOWNET_TEST_KEEP=from-file\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("FLOWNET_TEST_KEEP", "exported")
	t.Setenv("FLOWNET_TEST_DOTENV", "")
	_ = os.Unsetenv("FLOWNET_TEST_DOTENV")

	if err := LoadDotEnv(path); err != nil {
		t.Fatalf("LoadDotEnv: %v", err)
	}
	if got := os.Getenv("FLOWNET_TEST_DOTENV"); got != "from-file" {
		t.Errorf("FLOWNET_TEST_DOTENV = %q", got)
	}
	if got := os.Getenv("FLOWNET_TEST_KEEP"); got != "exported" {
		t.Errorf("exported value overridden: %q", got)
	}
}

func TestLoadDotEnv_Missing(t *testing.T) {
	if err := LoadDotEnv(filepath.Join(t.TempDir(), "nope.env")); err != nil {
		t.Errorf("missing file should be ignored: %v", err)
	}
}
