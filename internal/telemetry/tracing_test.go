package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
)

func TestInitTracerProviderWithoutExporter(t *testing.T) {
	ctx := context.Background()
	tp, err := InitTracerProvider(ctx, Config{ServiceName: "story-preview-gateway-test"})
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, tp.Shutdown(ctx)) })

	_, span := otel.Tracer("test").Start(ctx, "probe")
	require.True(t, span.SpanContext().IsValid())
	span.End()
}
