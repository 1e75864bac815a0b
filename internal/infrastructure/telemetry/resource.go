// Package telemetry wires OpenTelemetry tracing, metrics and logs export,
// GORM instrumentation and Pyroscope continuous profiling.
package telemetry

import (
	"fmt"

	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.37.0"
)

// ServiceVersion is stamped on every exported resource. Overridden at build
// time with -ldflags "-X .../telemetry.ServiceVersion=...".
var ServiceVersion = "dev"

func newResource(serviceName string) (*resource.Resource, error) {
	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(serviceName),
			semconv.ServiceVersion(ServiceVersion),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}
	return res, nil
}
