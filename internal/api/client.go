// Package api is the typed HTTP request pipeline: request descriptors,
// encoding, resolution, transport, logging and the error taxonomy.
package api

import (
	"context"
	"crypto/tls"
	"log/slog"
	"net/http"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/anglerdiary/flownet/internal/debug"
)

const DefaultTimeout = 30 * time.Second

// Client sends Request descriptors to one base URL. All fields are fixed by
// New; a Client is safe for concurrent use.
type Client struct {
	baseURL   string
	userAgent string
	logger    *Logger
	transport *Transport
}

type clientOptions struct {
	level      debug.Level
	slogger    *slog.Logger
	timeout    time.Duration
	httpClient *http.Client
	userAgent  string
	tracer     trace.TracerProvider
}

// Option configures a Client.
type Option func(*clientOptions)

// WithLogLevel sets the network log level. The default is debug.LevelDebug.
func WithLogLevel(level debug.Level) Option {
	return func(o *clientOptions) { o.level = level }
}

// WithLogger routes log output to l.
func WithLogger(l *slog.Logger) Option {
	return func(o *clientOptions) { o.slogger = l }
}

// WithTimeout sets the overall per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(o *clientOptions) { o.timeout = d }
}

// WithHTTPClient replaces the underlying HTTP client. WithTimeout is ignored
// when a client is supplied.
func WithHTTPClient(c *http.Client) Option {
	return func(o *clientOptions) { o.httpClient = c }
}

// WithUserAgent sets the User-Agent header on every request.
func WithUserAgent(ua string) Option {
	return func(o *clientOptions) { o.userAgent = ua }
}

// WithTracerProvider sets the provider used for request spans. The default
// is the global provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(o *clientOptions) { o.tracer = tp }
}

// New creates a client for baseURL. The URL is checked on each send, so
// construction never fails.
func New(baseURL string, opts ...Option) *Client {
	o := clientOptions{
		level:   debug.LevelDebug,
		timeout: DefaultTimeout,
	}
	for _, opt := range opts {
		opt(&o)
	}

	httpClient := o.httpClient
	if httpClient == nil {
		httpClient = &http.Client{
			Timeout:   o.timeout,
			Transport: newHTTPTransport(),
		}
	}
	tp := o.tracer
	if tp == nil {
		tp = otel.GetTracerProvider()
	}

	logger := NewLogger(o.level, o.slogger)
	return &Client{
		baseURL:   baseURL,
		userAgent: o.userAgent,
		logger:    logger,
		transport: NewTransport(httpClient, logger, tp.Tracer(tracerName)),
	}
}

func newHTTPTransport() http.RoundTripper {
	base, ok := http.DefaultTransport.(*http.Transport)
	if !ok {
		base = &http.Transport{}
	}
	transport := base.Clone()
	if transport.TLSClientConfig == nil {
		transport.TLSClientConfig = &tls.Config{}
	} else {
		transport.TLSClientConfig = transport.TLSClientConfig.Clone()
	}
	transport.TLSClientConfig.MinVersion = tls.VersionTLS12
	return transport
}

// BaseURL returns the configured base URL.
func (c *Client) BaseURL() string { return c.baseURL }

// LogLevel returns the configured log level.
func (c *Client) LogLevel() debug.Level { return c.logger.Level() }

// Resolve builds the request for d without sending it.
func (c *Client) Resolve(d Descriptor) (*ResolvedRequest, error) {
	var opts []ResolveOption
	if c.userAgent != "" {
		opts = append(opts, UserAgent(c.userAgent))
	}
	return Resolve(d, c.baseURL, opts...)
}

// Send performs req and decodes the result. It returns either the decoded
// value or a *NetworkError, never both.
func Send[T any](ctx context.Context, c *Client, req Request[T]) (T, error) {
	out, _, err := SendWithResponse(ctx, c, req)
	return out, err
}

// SendWithResponse is Send that also returns the received response, when
// there was one, including for status and decoding errors.
func SendWithResponse[T any](ctx context.Context, c *Client, req Request[T]) (T, *Response, error) {
	var zero T
	resolved, err := c.Resolve(req)
	if err != nil {
		c.logger.LogFailure(ctx, nil, err)
		return zero, nil, err
	}
	return Execute[T](ctx, c.transport, resolved, req.Decoder())
}
