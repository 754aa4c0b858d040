package telemetry

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

const (
	serviceName    = "interview"
	serviceVersion = "1.0.0"
)

// Config holds OTLP exporter configuration.
type Config struct {
	Endpoint string
	Enabled  bool
	Insecure bool
}

// OTel records measurements with OpenTelemetry instruments.
type OTel struct {
	provider          *sdkmetric.MeterProvider
	sessionsTotal     metric.Int64Counter
	fallbacksTotal    metric.Int64Counter
	watchdogTotal     metric.Int64Counter
	localModeTotal    metric.Int64Counter
	finalizedTotal    metric.Int64Counter
	recommendationHst metric.Int64Histogram
}

// New returns an OTel recorder when cfg enables telemetry, Noop otherwise.
func New(ctx context.Context, cfg Config) (Recorder, error) {
	if !cfg.Enabled || cfg.Endpoint == "" {
		return Noop{}, nil
	}
	return NewExporter(ctx, cfg)
}

// NewExporter creates an OTLP gRPC metrics exporter.
func NewExporter(ctx context.Context, cfg Config) (*OTel, error) {
	opts := []otlpmetricgrpc.Option{
		otlpmetricgrpc.WithEndpoint(cfg.Endpoint),
	}
	if cfg.Insecure {
		opts = append(opts, otlpmetricgrpc.WithDialOption(grpc.WithTransportCredentials(insecure.NewCredentials())))
		opts = append(opts, otlpmetricgrpc.WithInsecure())
	}

	exp, err := otlpmetricgrpc.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating OTLP exporter: %w", err)
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(serviceName),
			semconv.ServiceVersion(serviceVersion),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("creating resource: %w", err)
	}

	provider := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exp)),
		sdkmetric.WithResource(res),
	)
	otel.SetMeterProvider(provider)

	return NewFromProvider(provider)
}

// NewFromProvider builds the instruments on an existing provider. Tests pass
// one backed by a ManualReader.
func NewFromProvider(provider *sdkmetric.MeterProvider) (*OTel, error) {
	meter := provider.Meter(serviceName)
	o := &OTel{provider: provider}

	var err error
	if o.sessionsTotal, err = meter.Int64Counter(
		"interview_sessions_total",
		metric.WithDescription("Interview sessions created"),
		metric.WithUnit("{session}"),
	); err != nil {
		return nil, fmt.Errorf("creating sessions counter: %w", err)
	}
	if o.fallbacksTotal, err = meter.Int64Counter(
		"interview_generator_fallbacks_total",
		metric.WithDescription("Generator calls resolved by a heuristic fallback"),
		metric.WithUnit("{call}"),
	); err != nil {
		return nil, fmt.Errorf("creating fallbacks counter: %w", err)
	}
	if o.watchdogTotal, err = meter.Int64Counter(
		"interview_watchdog_fired_total",
		metric.WithDescription("Client watchdogs that expired before the coordinator answered"),
		metric.WithUnit("{event}"),
	); err != nil {
		return nil, fmt.Errorf("creating watchdog counter: %w", err)
	}
	if o.localModeTotal, err = meter.Int64Counter(
		"interview_local_mode_total",
		metric.WithDescription("Interviews that switched to the local question bank"),
		metric.WithUnit("{event}"),
	); err != nil {
		return nil, fmt.Errorf("creating local mode counter: %w", err)
	}
	if o.finalizedTotal, err = meter.Int64Counter(
		"interview_sessions_finalized_total",
		metric.WithDescription("Interview sessions finalized with a recommendation"),
		metric.WithUnit("{session}"),
	); err != nil {
		return nil, fmt.Errorf("creating finalized counter: %w", err)
	}
	if o.recommendationHst, err = meter.Int64Histogram(
		"interview_recommendation_score",
		metric.WithDescription("Distribution of recommendation scores"),
		metric.WithExplicitBucketBoundaries(0, 25, 45, 70, 85, 100),
	); err != nil {
		return nil, fmt.Errorf("creating score histogram: %w", err)
	}
	return o, nil
}

func (o *OTel) SessionCreated(ctx context.Context, role string, defaultQuestion bool) {
	o.sessionsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("role", role),
		attribute.Bool("default_question", defaultQuestion),
	))
}

func (o *OTel) GeneratorFallback(ctx context.Context, kind string) {
	o.fallbacksTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", kind)))
}

func (o *OTel) WatchdogFired(ctx context.Context, watchdog string) {
	o.watchdogTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("watchdog", watchdog)))
}

func (o *OTel) LocalModeEngaged(ctx context.Context, reason string) {
	o.localModeTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", reason)))
}

func (o *OTel) SessionFinalized(ctx context.Context, tier string, score int) {
	attrs := metric.WithAttributes(attribute.String("tier", tier))
	o.finalizedTotal.Add(ctx, 1, attrs)
	o.recommendationHst.Record(ctx, int64(score), attrs)
}

// Close flushes and shuts down the meter provider.
func (o *OTel) Close(ctx context.Context) error {
	return o.provider.Shutdown(ctx)
}
