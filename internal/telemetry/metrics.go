// Package telemetry builds the OpenTelemetry meter provider that zkq's
// server process registers globally and also passes explicitly (via
// runtime.Options.Meter) to BQ/RRQ's instrument creation (stats.go,
// pending.go), so they attach to a real provider instead of a no-op one.
package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.4.0"
)

// NewMeterProvider builds an SDK-backed MeterProvider tagged with
// serviceName and registers it as the process-wide default via
// otel.SetMeterProvider, then returns it so the caller can shut it down
// on exit. No exporter is attached by default: operators that want the
// counters scraped wire a reader in front of this provider (a Prometheus
// or OTLP exporter, per their deployment) without any zkq code changes.
func NewMeterProvider(serviceName string) (metric.MeterProvider, error) {
	res := resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceNameKey.String(serviceName),
	)
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithResource(res))
	otel.SetMeterProvider(mp)
	return mp, nil
}

// Shutdown flushes and releases mp's resources. Safe to call with a
// MeterProvider that isn't a *sdkmetric.MeterProvider (a no-op).
func Shutdown(ctx context.Context, mp metric.MeterProvider) error {
	if sdkMP, ok := mp.(*sdkmetric.MeterProvider); ok {
		return sdkMP.Shutdown(ctx)
	}
	return nil
}
