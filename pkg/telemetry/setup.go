package telemetry

import (
	"context"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
)

// InitTracer installs a tracer provider for serviceName. With stdout set the
// spans are pretty-printed for local development; otherwise they are sampled
// but not exported. The returned func flushes and shuts the provider down.
func InitTracer(ctx context.Context, serviceName string, stdout bool, logger zerolog.Logger) func(context.Context) error {
	opts := []sdktrace.TracerProviderOption{
		sdktrace.WithResource(resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(serviceName),
		)),
	}

	if stdout {
		exporter, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
		if err != nil {
			logger.Warn().Err(err).Msg("telemetry exporter init failed")
			return func(context.Context) error { return nil }
		}
		opts = append(opts, sdktrace.WithBatcher(exporter))
	}

	provider := sdktrace.NewTracerProvider(opts...)
	otel.SetTracerProvider(provider)
	logger.Debug().Str("service", serviceName).Bool("stdout", stdout).Msg("tracer provider installed")

	return provider.Shutdown
}
