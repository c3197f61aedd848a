package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/anglerdiary/flownet/internal/api"
	"github.com/anglerdiary/flownet/internal/config"
)

type clientFactory struct {
	sess      *session
	overrides config.Overrides
	timeout   time.Duration
	userAgent string
}

func newClientFactory(cmd *cobra.Command) *clientFactory {
	return &clientFactory{
		sess: sessionFrom(cmd),
		overrides: config.Overrides{
			BaseURL:     flags.BaseURL,
			Token:       flags.Token,
			Environment: flags.Environment,
			Profile:     flags.Profile,
		},
		timeout:   flags.Timeout,
		userAgent: fmt.Sprintf("flownet/%s", version),
	}
}

// resolve merges flags, FLOWNET_* variables, the stored profile and the
// environments file.
func (f *clientFactory) resolve() (config.ClientConfig, error) {
	return config.ResolveClientConfig(f.overrides, f.sess.env, f.sess.envs)
}

func (f *clientFactory) newClient(cfg config.ClientConfig) *api.Client {
	return api.New(cfg.BaseURL,
		api.WithLogLevel(f.sess.level),
		api.WithLogger(f.sess.logger),
		api.WithTimeout(f.timeout),
		api.WithUserAgent(f.userAgent),
		api.WithTracerProvider(f.sess.tracer),
	)
}

// getClient returns a client for the resolved settings along with them.
func getClient(cmd *cobra.Command) (*api.Client, config.ClientConfig, error) {
	f := newClientFactory(cmd)
	cfg, err := f.resolve()
	if err != nil {
		return nil, config.ClientConfig{}, err
	}
	return f.newClient(cfg), cfg, nil
}

// getAuthedClient is getClient for endpoints that need a bearer token.
func getAuthedClient(cmd *cobra.Command) (*api.Client, config.ClientConfig, error) {
	client, cfg, err := getClient(cmd)
	if err != nil {
		return nil, cfg, err
	}
	if !cfg.HasToken() {
		return nil, cfg, config.ErrNotConfigured
	}
	return client, cfg, nil
}
