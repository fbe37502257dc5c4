package telemetry

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

var (
	ErrInvalidConfig         = errors.New("invalid telemetry configuration")
	ErrMissingServiceName    = errors.New("service name is required")
	ErrMissingServiceVersion = errors.New("service version is required")
	ErrInvalidSampleRate     = errors.New("sample rate must be between 0.0 and 1.0")
)

// Config selects which signals are exported and where. An empty OTLPEndpoint
// keeps the providers local: spans still carry ids for log correlation but
// nothing leaves the process.
type Config struct {
	ServiceName    string
	ServiceVersion string
	Environment    string
	OTLPEndpoint   string
	EnableTracing  bool
	EnableMetrics  bool
	SampleRate     float64
}

func (c Config) Validate() error {
	switch {
	case c.ServiceName == "":
		return fmt.Errorf("%w: %w", ErrInvalidConfig, ErrMissingServiceName)
	case c.ServiceVersion == "":
		return fmt.Errorf("%w: %w", ErrInvalidConfig, ErrMissingServiceVersion)
	case c.SampleRate < 0 || c.SampleRate > 1:
		return fmt.Errorf("%w: %w", ErrInvalidConfig, ErrInvalidSampleRate)
	}
	return nil
}

type Telemetry struct {
	tracerProvider *sdktrace.TracerProvider
	meterProvider  *sdkmetric.MeterProvider
	shutdowns      []func(context.Context) error
}

type Option func(*options)

type options struct {
	spanExporter sdktrace.SpanExporter
	metricReader sdkmetric.Reader
}

// WithSpanExporter replaces the OTLP span exporter.
func WithSpanExporter(exporter sdktrace.SpanExporter) Option {
	return func(o *options) { o.spanExporter = exporter }
}

// WithMetricReader replaces the periodic OTLP metric reader.
func WithMetricReader(reader sdkmetric.Reader) Option {
	return func(o *options) { o.metricReader = reader }
}

// Initialize installs global tracer and meter providers plus the W3C
// propagator used on inbound requests and outbound Kafka messages.
func Initialize(ctx context.Context, cfg Config, opts ...Option) (*Telemetry, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	o := &options{}
	for _, opt := range opts {
		opt(o)
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(cfg.ServiceName),
			semconv.ServiceVersion(cfg.ServiceVersion),
			semconv.DeploymentEnvironment(cfg.Environment),
		),
		resource.WithFromEnv(),
		resource.WithProcess(),
		resource.WithHost(),
	)
	if err != nil {
		return nil, fmt.Errorf("create resource: %w", err)
	}

	tel := &Telemetry{}

	if cfg.EnableTracing {
		if err := tel.startTracing(ctx, res, cfg, o.spanExporter); err != nil {
			return nil, errors.Join(err, tel.Shutdown(ctx))
		}
	}

	if cfg.EnableMetrics {
		if err := tel.startMetrics(ctx, res, cfg, o.metricReader); err != nil {
			return nil, errors.Join(err, tel.Shutdown(ctx))
		}
	}

	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	return tel, nil
}

func (t *Telemetry) startTracing(ctx context.Context, res *resource.Resource, cfg Config, exporter sdktrace.SpanExporter) error {
	if exporter == nil && cfg.OTLPEndpoint != "" {
		// the local collector has no TLS
		var err error
		exporter, err = otlptracegrpc.New(ctx,
			otlptracegrpc.WithEndpoint(cfg.OTLPEndpoint),
			otlptracegrpc.WithInsecure(),
		)
		if err != nil {
			return fmt.Errorf("create trace exporter: %w", err)
		}
	}

	providerOpts := []sdktrace.TracerProviderOption{
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sampler(cfg.SampleRate)),
	}
	if exporter != nil {
		providerOpts = append(providerOpts, sdktrace.WithBatcher(exporter))
	}

	t.tracerProvider = sdktrace.NewTracerProvider(providerOpts...)
	t.shutdowns = append(t.shutdowns, t.tracerProvider.Shutdown)
	otel.SetTracerProvider(t.tracerProvider)
	return nil
}

func (t *Telemetry) startMetrics(ctx context.Context, res *resource.Resource, cfg Config, reader sdkmetric.Reader) error {
	if reader == nil && cfg.OTLPEndpoint != "" {
		exporter, err := otlpmetricgrpc.New(ctx,
			otlpmetricgrpc.WithEndpoint(cfg.OTLPEndpoint),
			otlpmetricgrpc.WithInsecure(),
		)
		if err != nil {
			return fmt.Errorf("create metric exporter: %w", err)
		}
		reader = sdkmetric.NewPeriodicReader(exporter)
	}

	providerOpts := []sdkmetric.Option{sdkmetric.WithResource(res)}
	if reader != nil {
		providerOpts = append(providerOpts, sdkmetric.WithReader(reader))
	}

	t.meterProvider = sdkmetric.NewMeterProvider(providerOpts...)
	t.shutdowns = append(t.shutdowns, t.meterProvider.Shutdown)
	otel.SetMeterProvider(t.meterProvider)
	return nil
}

func sampler(rate float64) sdktrace.Sampler {
	switch {
	case rate <= 0:
		return sdktrace.NeverSample()
	case rate >= 1:
		return sdktrace.AlwaysSample()
	default:
		return sdktrace.ParentBased(sdktrace.TraceIDRatioBased(rate))
	}
}

// Meter returns a meter from the installed provider, or from the global one
// when metrics are disabled.
func (t *Telemetry) Meter(name string) metric.Meter {
	if t.meterProvider != nil {
		return t.meterProvider.Meter(name)
	}
	return otel.GetMeterProvider().Meter(name)
}

// Shutdown flushes and stops the providers in reverse start order.
func (t *Telemetry) Shutdown(ctx context.Context) error {
	var errs []error
	for i := len(t.shutdowns) - 1; i >= 0; i-- {
		if err := t.shutdowns[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	t.shutdowns = nil
	return errors.Join(errs...)
}

func (t *Telemetry) TracerProvider() *sdktrace.TracerProvider {
	return t.tracerProvider
}

func (t *Telemetry) MeterProvider() *sdkmetric.MeterProvider {
	return t.meterProvider
}
