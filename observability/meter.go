// Package observability wires OpenTelemetry metrics and traces for the
// capture, schedule and remote components. When a signal is disabled the
// global noop provider is left in place and records nothing.
package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"

	"github.com/kbukum/voicecap/logger"
)

// MeterName is the instrumentation scope used for voicecap instruments.
const MeterName = "github.com/kbukum/voicecap"

// MeterConfig is the metrics section of the agent config. Endpoint is an
// OTLP/HTTP host:port, usually a local collector.
type MeterConfig struct {
	Enabled        bool          `mapstructure:"enabled"`
	ServiceName    string        `mapstructure:"service_name"`
	ServiceVersion string        `mapstructure:"service_version"`
	Environment    string        `mapstructure:"environment"`
	Endpoint       string        `mapstructure:"endpoint"`
	Insecure       bool          `mapstructure:"insecure"`
	Interval       time.Duration `mapstructure:"interval"` // export period
}

// ApplyDefaults fills zero fields with development defaults.
func (c *MeterConfig) ApplyDefaults() {
	if c.ServiceName == "" {
		c.ServiceName = "voicecap"
	}
	if c.Environment == "" {
		c.Environment = "development"
	}
	if c.Endpoint == "" {
		c.Endpoint = "localhost:4318"
	}
	if c.Interval <= 0 {
		c.Interval = 15 * time.Second
	}
}

// Shutdown flushes and stops a meter provider.
type Shutdown func(ctx context.Context) error

// InitMeter installs an OTLP HTTP meter provider as the global provider.
// With Enabled false it does nothing and returns a no-op Shutdown.
func InitMeter(ctx context.Context, config MeterConfig) (Shutdown, error) {
	config.ApplyDefaults()
	if !config.Enabled {
		return func(context.Context) error { return nil }, nil
	}
	opts := []otlpmetrichttp.Option{
		otlpmetrichttp.WithEndpoint(config.Endpoint),
	}
	if config.Insecure {
		opts = append(opts, otlpmetrichttp.WithInsecure())
	}

	exporter, err := otlpmetrichttp.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating metric exporter: %w", err)
	}

	res, err := newResource(config.ServiceName, config.ServiceVersion, config.Environment)
	if err != nil {
		return nil, fmt.Errorf("creating resource: %w", err)
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(config.Interval))),
		sdkmetric.WithResource(res),
	)
	otel.SetMeterProvider(mp)

	logger.Info("meter initialized", logger.Fields(
		"service", config.ServiceName,
		"endpoint", config.Endpoint,
		"interval", config.Interval.String(),
	))
	return mp.Shutdown, nil
}

// Meter returns the voicecap meter from the global provider.
func Meter() metric.Meter {
	return otel.Meter(MeterName)
}

func newResource(serviceName, serviceVersion, environment string) (*resource.Resource, error) {
	return resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(serviceName),
			semconv.ServiceVersion(serviceVersion),
			attribute.String("environment", environment),
		),
	)
}
