package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/anglerdiary/flownet/internal/debug"
)

// Env holds the FLOWNET_* environment overrides.
type Env struct {
	BaseURL      string        `env:"FLOWNET_BASE_URL"`
	Token        string        `env:"FLOWNET_TOKEN"`
	Environment  string        `env:"FLOWNET_ENV"`
	Profile      string        `env:"FLOWNET_PROFILE"`
	LogLevel     debug.Level   `env:"FLOWNET_LOG_LEVEL"`
	Timeout      time.Duration `env:"FLOWNET_TIMEOUT"`
	ConfigFile   string        `env:"FLOWNET_CONFIG"`
	Output       string        `env:"FLOWNET_OUTPUT"`
	OTelEndpoint string        `env:"FLOWNET_OTEL_ENDPOINT"`
}

// LoadEnv parses FLOWNET_* variables.
func LoadEnv() (Env, error) {
	var e Env
	if err := env.Parse(&e); err != nil {
		return Env{}, fmt.Errorf("parse env: %w", err)
	}
	return e, nil
}

// DotEnvPath returns the default .env location.
func DotEnvPath() string {
	return filepath.Join(configDir(), ".env")
}

// LoadDotEnv loads variables from path without overriding variables that are
// already exported. A missing file is not an error.
func LoadDotEnv(path string) error {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("stat %s: %w", path, err)
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}
