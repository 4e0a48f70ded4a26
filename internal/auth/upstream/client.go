package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// maxResponseBody caps how much of an upstream response is read.
const maxResponseBody = 1 << 20

// Option configures an HTTP collaborator.
type Option func(*client)

// WithTracer records one client span per upstream call on t.
func WithTracer(t trace.Tracer) Option {
	return func(c *client) { c.tracer = t }
}

// client is the shared plumbing for the HTTP collaborators.
type client struct {
	baseURL    string
	httpClient *http.Client
	tracer     trace.Tracer
}

func newClient(baseURL string, timeout time.Duration, opts ...Option) client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	c := client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		tracer:     noop.NewTracerProvider().Tracer(""),
	}
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

// do sends one request and returns the status code with the body read. It
// never retries. op names the span, since path may carry identifiers.
func (c client) do(ctx context.Context, op, method, path string, body any) (status int, b []byte, err error) {
	ctx, span := c.tracer.Start(ctx, op,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attribute.String("http.request.method", method)),
	)
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		} else {
			span.SetAttributes(attribute.Int("http.response.status_code", status))
		}
		span.End()
	}()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return 0, nil, err
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	propagation.TraceContext{}.Inject(ctx, propagation.HeaderCarrier(req.Header))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("%w: %s %s: %w", ErrUnavailable, method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	b, err = io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return 0, nil, fmt.Errorf("%w: read %s: %w", ErrUnavailable, path, err)
	}
	return resp.StatusCode, b, nil
}

func unexpected(path string, status int) error {
	return fmt.Errorf("%w: %s returned %d", ErrUnavailable, path, status)
}
