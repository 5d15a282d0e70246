// Package telemetry wires OpenTelemetry tracing, metrics and log export for
// the inventory service, plus the instrument helpers its components record to.
package telemetry

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.37.0"
	"go.uber.org/zap"
)

// ShutdownTimeout bounds the final flush of each provider
const ShutdownTimeout = 10 * time.Second

// ServiceVersion is reported as service.version; overridden at link time
var ServiceVersion = "dev"

func newResource(serviceName string) (*resource.Resource, error) {
	res, err := resource.Merge(resource.Default(), resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(serviceName),
		semconv.ServiceVersion(ServiceVersion),
	))
	if err != nil {
		return nil, fmt.Errorf("telemetry resource: %w", err)
	}
	return res, nil
}

// flushAndStop runs an SDK provider's Shutdown under ShutdownTimeout. kind
// names the provider in logs and errors.
func flushAndStop(ctx context.Context, kind string, logger *zap.Logger, shutdown func(context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, ShutdownTimeout)
	defer cancel()

	if err := shutdown(ctx); err != nil {
		logger.Error("Telemetry provider shutdown failed", zap.String("provider", kind), zap.Error(err))
		return fmt.Errorf("shutdown %s provider: %w", kind, err)
	}
	logger.Debug("Telemetry provider stopped", zap.String("provider", kind))
	return nil
}
