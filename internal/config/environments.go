package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
	"github.com/sahilm/fuzzy"
)

const (
	EnvProduction  = "production"
	EnvDevelopment = "development"
)

// Environment is a named API deployment.
type Environment struct {
	Name        string `json:"name"`
	BaseURL     string `json:"base_url"`
	Description string `json:"description,omitempty"`
	Builtin     bool   `json:"builtin"`
}

// Environments is the set of known deployments plus the default choice.
type Environments struct {
	defaultName string
	byName      map[string]Environment
}

// BuiltinEnvironments returns the AnglerDiary deployments.
func BuiltinEnvironments() *Environments {
	return &Environments{
		defaultName: EnvProduction,
		byName: map[string]Environment{
			EnvProduction: {
				Name:        EnvProduction,
				BaseURL:     "https://api.anglerdiary.com",
				Description: "AnglerDiary production API",
				Builtin:     true,
			},
			EnvDevelopment: {
				Name:        EnvDevelopment,
				BaseURL:     "https://devapi.anglerdiary.com",
				Description: "AnglerDiary development API",
				Builtin:     true,
			},
		},
	}
}

// DefaultConfigPath returns the environments file location.
func DefaultConfigPath() string {
	return filepath.Join(configDir(), "config.toml")
}

// LoadEnvironments reads the environments file at path on top of the
// built-ins. An empty path uses DefaultConfigPath; a missing file yields the
// built-ins alone.
func LoadEnvironments(path string) (*Environments, error) {
	envs := BuiltinEnvironments()

	resolved, err := expandPath(path)
	if err != nil {
		return nil, err
	}

	file, err := os.Open(resolved)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return envs, nil
		}
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer func() { _ = file.Close() }()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var raw struct {
		DefaultEnvironment string `toml:"default_environment"`
		Environments       map[string]struct {
			BaseURL     string `toml:"base_url"`
			Description string `toml:"description"`
		} `toml:"environments"`
	}
	if err := toml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	for name, e := range raw.Environments {
		name = strings.TrimSpace(name)
		baseURL := strings.TrimSpace(e.BaseURL)
		if baseURL == "" {
			return nil, fmt.Errorf("parse config: environment %q: base_url is required", name)
		}
		envs.byName[name] = Environment{
			Name:        name,
			BaseURL:     strings.TrimSuffix(baseURL, "/"),
			Description: strings.TrimSpace(e.Description),
		}
	}

	if def := strings.TrimSpace(raw.DefaultEnvironment); def != "" {
		if _, err := envs.Lookup(def); err != nil {
			return nil, fmt.Errorf("parse config: default_environment: %w", err)
		}
		envs.defaultName = def
	}
	return envs, nil
}

// DefaultName returns the environment used when none is selected.
func (e *Environments) DefaultName() string {
	return e.defaultName
}

// Names returns the environment names in sorted order.
func (e *Environments) Names() []string {
	names := make([]string, 0, len(e.byName))
	for name := range e.byName {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// List returns all environments sorted by name.
func (e *Environments) List() []Environment {
	names := e.Names()
	out := make([]Environment, len(names))
	for i, name := range names {
		out[i] = e.byName[name]
	}
	return out
}

// Lookup returns the named environment. Unknown names produce an
// *UnknownEnvironmentError with close matches.
func (e *Environments) Lookup(name string) (Environment, error) {
	name = strings.TrimSpace(name)
	if env, ok := e.byName[name]; ok {
		return env, nil
	}
	for key, env := range e.byName {
		if strings.EqualFold(key, name) {
			return env, nil
		}
	}
	return Environment{}, &UnknownEnvironmentError{Name: name, Suggestions: e.suggest(name)}
}

func (e *Environments) suggest(name string) []string {
	if name == "" {
		return nil
	}
	names := e.Names()
	matches := fuzzy.Find(strings.ToLower(name), names)
	var out []string
	for _, m := range matches {
		out = append(out, m.Str)
		if len(out) == 3 {
			break
		}
	}
	return out
}

// UnknownEnvironmentError reports an environment name that is not defined.
type UnknownEnvironmentError struct {
	Name        string
	Suggestions []string
}

func (e *UnknownEnvironmentError) Error() string {
	msg := fmt.Sprintf("unknown environment %q", e.Name)
	if len(e.Suggestions) > 0 {
		quoted := make([]string, len(e.Suggestions))
		for i, s := range e.Suggestions {
			quoted[i] = fmt.Sprintf("%q", s)
		}
		msg += "; did you mean " + strings.Join(quoted, " or ") + "?"
	}
	return msg
}

func expandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return DefaultConfigPath(), nil
	}
	if strings.HasPrefix(trimmed, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		trimmed = filepath.Join(home, strings.TrimPrefix(trimmed, "~"))
	}
	return filepath.Abs(trimmed)
}
