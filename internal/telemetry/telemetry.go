// Package telemetry provides OpenTelemetry metrics for the Databricks MCP
// server, exported in Prometheus format.
package telemetry

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

// Config holds the settings for initializing telemetry.
type Config struct {
	ServiceName string
	Enabled     bool
}

// Providers bundles the OpenTelemetry providers created at startup.
// When telemetry is disabled, all methods are safe no-ops.
type Providers struct {
	serviceName string
	enabled     bool

	Meter metric.Meter

	meterProvider *sdkmetric.MeterProvider
}

// Init sets up the OpenTelemetry meter provider with a Prometheus exporter.
// If telemetry is disabled, it returns a Providers whose IsEnabled reports
// false and whose Shutdown does nothing.
func Init(_ context.Context, cfg *Config) (*Providers, error) {
	p := &Providers{serviceName: cfg.ServiceName, enabled: cfg.Enabled}
	if !cfg.Enabled {
		return p, nil
	}

	exporter, err := otelprom.New()
	if err != nil {
		return nil, fmt.Errorf("failed to create prometheus exporter: %w", err)
	}

	p.meterProvider = sdkmetric.NewMeterProvider(sdkmetric.WithReader(exporter))
	otel.SetMeterProvider(p.meterProvider)
	p.Meter = p.meterProvider.Meter(cfg.ServiceName)

	return p, nil
}

// IsEnabled returns true if telemetry was enabled at initialization.
func (p *Providers) IsEnabled() bool {
	return p != nil && p.enabled
}

// ServiceName returns the service name telemetry was initialized with.
func (p *Providers) ServiceName() string {
	return p.serviceName
}

// Shutdown flushes and stops the providers.
func (p *Providers) Shutdown(ctx context.Context) error {
	if p == nil || p.meterProvider == nil {
		return nil
	}
	return p.meterProvider.Shutdown(ctx)
}
