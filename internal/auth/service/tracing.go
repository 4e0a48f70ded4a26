package service

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/aussiebroadwan/tollgate/internal/auth/service"

// startSpan opens a span on t, or on the global provider when t is nil.
func startSpan(ctx context.Context, t trace.Tracer, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	if t == nil {
		t = otel.Tracer(tracerName)
	}
	return t.Start(ctx, name, trace.WithAttributes(attrs...))
}

// endSpan records err on the span and ends it. Expected protocol failures are
// tagged but do not mark the span as errored.
func endSpan(span trace.Span, err error) {
	defer span.End()
	if err == nil {
		span.SetStatus(codes.Ok, "")
		return
	}
	if isClientError(err) {
		span.SetAttributes(attribute.String("auth.error", err.Error()))
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

func isClientError(err error) bool {
	for _, target := range []error{
		ErrInvalidClient, ErrUnauthorizedClient, ErrInvalidRequest,
		ErrUnsupportedResponseType, ErrUnsupportedGrantType, ErrInvalidGrant,
		ErrInvalidScope, ErrInvalidCredentials, ErrInvalidTwoFactorCode,
		ErrTwoFactorExpired,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
