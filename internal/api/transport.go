package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
)

const (
	tracerName = "github.com/anglerdiary/flownet/internal/api"
	spanName   = "flownet.send"
)

// Transport performs single HTTP exchanges. It holds no per-call state and
// is safe for concurrent use.
type Transport struct {
	HTTP   *http.Client
	Logger *Logger
	Tracer trace.Tracer
	now    func() time.Time
}

// NewTransport returns a Transport using client. A nil client uses
// http.DefaultClient; a nil tracer uses the global tracer provider.
func NewTransport(client *http.Client, logger *Logger, tracer trace.Tracer) *Transport {
	if client == nil {
		client = http.DefaultClient
	}
	if tracer == nil {
		tracer = otel.GetTracerProvider().Tracer(tracerName)
	}
	return &Transport{HTTP: client, Logger: logger, Tracer: tracer, now: time.Now}
}

// Do sends req and reads the whole response body. Non-2xx statuses return
// both the response and a *NetworkError describing it.
func (t *Transport) Do(ctx context.Context, req *ResolvedRequest) (*Response, error) {
	ctx, span := t.Tracer.Start(ctx, spanName,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			semconv.HTTPRequestMethodKey.String(string(req.Method)),
			semconv.URLFull(req.URL.String()),
		),
	)
	defer span.End()

	t.Logger.LogRequest(ctx, req)

	httpReq, err := req.HTTPRequest(ctx)
	if err != nil {
		ne := &NetworkError{Kind: KindInvalidRequest, Message: "build request", Err: err}
		t.fail(ctx, span, req, ne)
		return nil, ne
	}
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(httpReq.Header))

	start := t.now()
	resp, err := t.HTTP.Do(httpReq)
	if err != nil {
		ne := &NetworkError{Kind: KindTransport, Err: transportCause(ctx, err)}
		t.fail(ctx, span, req, ne)
		return nil, ne
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		ne := &NetworkError{Kind: KindTransport, StatusCode: resp.StatusCode, Message: "read response body", Err: transportCause(ctx, err)}
		t.fail(ctx, span, req, ne)
		return nil, ne
	}
	elapsed := t.now().Sub(start)

	out := &Response{
		ResponseMeta: *newResponseMeta(req, resp, len(body), elapsed, t.now()),
		Body:         body,
	}
	span.SetAttributes(
		semconv.HTTPResponseStatusCode(resp.StatusCode),
		attribute.Int("http.response.body.size", len(body)),
	)
	t.Logger.LogResponse(ctx, out.ResponseMeta, body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		ne := statusError(resp.StatusCode, body, &out.ResponseMeta)
		span.SetStatus(codes.Error, ne.Kind.String())
		return out, ne
	}
	return out, nil
}

func (t *Transport) fail(ctx context.Context, span trace.Span, req *ResolvedRequest, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	t.Logger.LogFailure(ctx, req, err)
}

// transportCause joins the context error to err once the context has ended.
func transportCause(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil && !errors.Is(err, ctxErr) {
		return fmt.Errorf("%w: %w", ctxErr, err)
	}
	return err
}

// Execute sends req and decodes a successful response into T.
func Execute[T any](ctx context.Context, t *Transport, req *ResolvedRequest, dec Decoder) (T, *Response, error) {
	var zero T
	resp, err := t.Do(ctx, req)
	if err != nil {
		return zero, resp, err
	}
	out, err := Decode[T](resp, dec)
	if err != nil {
		t.Logger.LogFailure(ctx, req, err)
		return zero, resp, err
	}
	return out, resp, nil
}
