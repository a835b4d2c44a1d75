// Package telemetry sets up OpenTelemetry tracing for the gateway.
package telemetry

import (
	"context"
	"fmt"

	texporter "github.com/GoogleCloudPlatform/opentelemetry-operations-go/exporter/trace"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

// Config selects how spans are exported.
type Config struct {
	ServiceName string
	// ProjectID enables the Google Cloud Trace exporter. Without it spans are
	// sampled and propagated but not exported.
	ProjectID string
}

// InitTracerProvider initializes and installs the global trace provider.
// Callers own the returned provider and must Shutdown it on exit.
func InitTracerProvider(ctx context.Context, cfg Config) (*sdktrace.TracerProvider, error) {
	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(cfg.ServiceName),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	opts := []sdktrace.TracerProviderOption{
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.AlwaysSample())),
	}
	if cfg.ProjectID != "" {
		exporter, err := texporter.New(texporter.WithProjectID(cfg.ProjectID))
		if err != nil {
			return nil, fmt.Errorf("failed to create google trace exporter: %w", err)
		}
		opts = append(opts, sdktrace.WithBatcher(exporter))
	}

	tp := sdktrace.NewTracerProvider(opts...)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(propagation.TraceContext{}, propagation.Baggage{}))

	return tp, nil
}
