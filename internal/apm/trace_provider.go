package apm

import (
	"context"
	"fmt"
	"io"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/exporters/zipkin"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.10.0"

	"github.com/fd1az/fxbridge/internal/logger"
)

type Provider string

const (
	ZipkinProvider   Provider = "zipkin"
	OTLPGRPCProvider Provider = "otlp-grpc"
	OTLPHTTPProvider Provider = "otlp-http"
	ConsoleProvider  Provider = "console"
	EmptyProvider    Provider = "none"
)

type TraceProvider interface {
	Stop() error
}

type traceProvider struct {
	tp *sdktrace.TracerProvider
}

type emptyTraceProvider struct{}

func (emptyTraceProvider) Stop() error { return nil }

// Config selects and configures the span exporter.
type Config struct {
	ServiceName string
	Provider    Provider
	Endpoint    string
	Headers     map[string]string
	Insecure    bool
	Writer      io.Writer // console output, stdout when nil
}

type TracerOptions struct {
	exporter           sdktrace.SpanExporter
	tracerProviderName string
	useEmpty           bool
}

type TracerOption func(*TracerOptions) error

func WithProvider(cfg Config, log logger.LoggerInterface) TracerOption {
	switch cfg.Provider {
	case ZipkinProvider:
		return useZipkin(cfg)
	case OTLPGRPCProvider:
		return useOTLPGRPC(cfg)
	case OTLPHTTPProvider:
		return useOTLPHTTP(cfg)
	case ConsoleProvider:
		return useConsole(cfg)
	case EmptyProvider, "":
		return useEmpty()
	}

	log.Warn(context.Background(), "TracerProvider not found, using EmptyProvider", "provider", cfg.Provider)

	return useEmpty()
}

func useEmpty() TracerOption {
	return func(option *TracerOptions) error {
		option.useEmpty = true
		option.tracerProviderName = string(EmptyProvider)
		return nil
	}
}

func useConsole(cfg Config) TracerOption {
	return func(option *TracerOptions) error {
		opts := []stdouttrace.Option{stdouttrace.WithPrettyPrint()}
		if cfg.Writer != nil {
			opts = append(opts, stdouttrace.WithWriter(cfg.Writer))
		}

		exp, err := stdouttrace.New(opts...)
		if err != nil {
			return err
		}

		option.exporter = exp
		option.tracerProviderName = string(ConsoleProvider)
		return nil
	}
}

func useZipkin(cfg Config) TracerOption {
	return func(option *TracerOptions) error {
		exp, err := zipkin.New(cfg.Endpoint)
		if err != nil {
			return err
		}

		option.exporter = exp
		option.tracerProviderName = string(ZipkinProvider)
		return nil
	}
}

func useOTLPGRPC(cfg Config) TracerOption {
	return func(option *TracerOptions) error {
		opts := []otlptracegrpc.Option{
			otlptracegrpc.WithEndpointURL(cfg.Endpoint),
			otlptracegrpc.WithHeaders(cfg.Headers),
		}
		if cfg.Insecure {
			opts = append(opts, otlptracegrpc.WithInsecure())
		}

		exp, err := otlptracegrpc.New(context.Background(), opts...)
		if err != nil {
			return err
		}

		option.exporter = exp
		option.tracerProviderName = string(OTLPGRPCProvider)
		return nil
	}
}

func useOTLPHTTP(cfg Config) TracerOption {
	return func(option *TracerOptions) error {
		opts := []otlptracehttp.Option{
			otlptracehttp.WithEndpointURL(cfg.Endpoint),
			otlptracehttp.WithHeaders(cfg.Headers),
		}
		if cfg.Insecure {
			opts = append(opts, otlptracehttp.WithInsecure())
		}

		exp, err := otlptracehttp.New(context.Background(), opts...)
		if err != nil {
			return err
		}

		option.exporter = exp
		option.tracerProviderName = string(OTLPHTTPProvider)
		return nil
	}
}

// NewTraceProvider builds the tracer provider and installs it globally along
// with the W3C propagators.
func NewTraceProvider(cfg Config, log logger.LoggerInterface, options ...TracerOption) (TraceProvider, error) {
	if len(options) == 0 {
		options = []TracerOption{WithProvider(cfg, log)}
	}

	opts := &TracerOptions{}

	for _, opt := range options {
		if err := opt(opts); err != nil {
			return nil, fmt.Errorf("trace exporter: %w", err)
		}
	}

	if opts.useEmpty {
		return emptyTraceProvider{}, nil
	}

	rsrc, err := resource.Merge(
		resource.Default(),
		resource.NewSchemaless(
			semconv.ServiceNameKey.String(cfg.ServiceName),
			attribute.String("otel.provider", opts.tracerProviderName),
		))
	if err != nil {
		return nil, fmt.Errorf("trace resource: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
		sdktrace.WithBatcher(opts.exporter),
		sdktrace.WithResource(rsrc),
	)

	// Set global trace provider
	otel.SetTracerProvider(tp)

	// Set trace propagator
	otel.SetTextMapPropagator(
		propagation.NewCompositeTextMapPropagator(
			propagation.TraceContext{},
			propagation.Baggage{},
		))

	log.Info(context.Background(), "tracing enabled", "provider", opts.tracerProviderName)

	return &traceProvider{
		tp,
	}, nil
}

func (o *traceProvider) Stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second*5) //nolint:gomnd
	defer cancel()

	if err := o.tp.Shutdown(ctx); err != nil {
		return err
	}

	return nil
}
