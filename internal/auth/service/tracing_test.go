package service_test

import (
	"context"
	"testing"

	"github.com/aussiebroadwan/tollgate/internal/auth/service"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestTokenExchangeSpans(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })
	h.token.Tracer = tp.Tracer("test")

	_, err := h.token.Exchange(ctx, codeRequest(h.loginCode(t, webLogin("jane.smith", "password456"))))
	require.NoError(t, err)

	_, err = h.token.Exchange(ctx, codeRequest("spent"))
	require.ErrorIs(t, err, service.ErrInvalidGrant)

	spans := exporter.GetSpans()
	require.Len(t, spans, 2)
	for _, s := range spans {
		require.Equal(t, "auth.token", s.Name)
	}
	require.Equal(t, codes.Ok, spans[0].Status.Code)
	require.Equal(t, codes.Unset, spans[1].Status.Code, "client errors do not mark spans as failed")

	var tagged bool
	for _, attr := range spans[1].Attributes {
		if string(attr.Key) == "auth.error" {
			require.Equal(t, "invalid_grant", attr.Value.AsString())
			tagged = true
		}
	}
	require.True(t, tagged)
}
