package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/anglerdiary/flownet/internal/validation"
)

// Source records where the resolved base URL came from.
type Source string

const (
	SourceFlag        Source = "flag"
	SourceEnv         Source = "env"
	SourceEnvironment Source = "environment"
	SourceProfile     Source = "profile"
	SourceDefault     Source = "default"
)

// Overrides carries values given on the command line.
type Overrides struct {
	BaseURL     string
	Token       string
	Environment string
	Profile     string
}

// ClientConfig contains resolved API client settings.
type ClientConfig struct {
	BaseURL     string `json:"base_url"`
	Token       string `json:"-"`
	Environment string `json:"environment,omitempty"`
	Profile     string `json:"profile,omitempty"`
	Source      Source `json:"source"`
}

// HasToken reports whether a bearer token was resolved.
func (c ClientConfig) HasToken() bool {
	return c.Token != ""
}

// ResolveClientConfig merges settings with precedence flags, then FLOWNET_*
// variables, then the stored profile, then the default environment.
// A missing token is not an error; unauthenticated endpoints exist.
func ResolveClientConfig(o Overrides, e Env, envs *Environments) (ClientConfig, error) {
	if envs == nil {
		envs = BuiltinEnvironments()
	}

	var cfg ClientConfig
	switch {
	case strings.TrimSpace(o.BaseURL) != "":
		cfg.BaseURL, cfg.Source = strings.TrimSpace(o.BaseURL), SourceFlag
	case strings.TrimSpace(e.BaseURL) != "":
		cfg.BaseURL, cfg.Source = strings.TrimSpace(e.BaseURL), SourceEnv
	}
	cfg.Token = firstNonBlank(o.Token, e.Token)

	if name := firstNonBlank(o.Environment, e.Environment); name != "" {
		env, err := envs.Lookup(name)
		if err != nil {
			return ClientConfig{}, err
		}
		cfg.Environment = env.Name
		if cfg.BaseURL == "" {
			cfg.BaseURL, cfg.Source = env.BaseURL, SourceEnvironment
		}
	}

	if cfg.BaseURL == "" || cfg.Token == "" {
		explicit := firstNonBlank(o.Profile, e.Profile)
		if err := applyProfile(&cfg, explicit, envs); err != nil {
			return ClientConfig{}, err
		}
	}

	if cfg.BaseURL == "" {
		env, err := envs.Lookup(envs.DefaultName())
		if err != nil {
			return ClientConfig{}, err
		}
		cfg.Environment = env.Name
		cfg.BaseURL, cfg.Source = env.BaseURL, SourceDefault
	}

	cfg.BaseURL = strings.TrimSuffix(cfg.BaseURL, "/")
	if err := validation.ValidateBaseURL(cfg.BaseURL); err != nil {
		return ClientConfig{}, fmt.Errorf("invalid base URL (%s): %w", cfg.Source, err)
	}
	return cfg, nil
}

// applyProfile fills missing fields from the stored profile. Keyring errors
// only surface when the profile was named explicitly.
func applyProfile(cfg *ClientConfig, explicit string, envs *Environments) error {
	name := explicit
	if name == "" {
		current, err := CurrentProfile()
		if err != nil {
			return nil
		}
		name = current
	}

	profile, err := LoadProfile(name)
	if err != nil {
		if explicit == "" {
			return nil
		}
		if errors.Is(err, ErrNotConfigured) {
			return fmt.Errorf("profile %q: %w", name, err)
		}
		return err
	}

	cfg.Profile = name
	if cfg.Token == "" {
		cfg.Token = profile.Token
	}
	if cfg.BaseURL != "" {
		return nil
	}
	if profile.BaseURL != "" {
		cfg.BaseURL, cfg.Source = profile.BaseURL, SourceProfile
		return nil
	}
	if profile.Environment != "" {
		env, err := envs.Lookup(profile.Environment)
		if err != nil {
			return fmt.Errorf("profile %q: %w", name, err)
		}
		cfg.Environment = env.Name
		cfg.BaseURL, cfg.Source = env.BaseURL, SourceProfile
	}
	return nil
}

func firstNonBlank(values ...string) string {
	for _, v := range values {
		if trimmed := strings.TrimSpace(v); trimmed != "" {
			return trimmed
		}
	}
	return ""
}
