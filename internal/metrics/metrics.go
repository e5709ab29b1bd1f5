// Package metrics sets up the OpenTelemetry meter provider and the Prometheus scrape endpoint.
package metrics

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	metric2 "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.10.0"
)

type MetricProvider interface {
	Meter(name string, options ...metric.MeterOption) metric.Meter
	Shutdown(ctx context.Context) error
}

func getReaders(ctx context.Context, cfg Config) ([]metric2.Reader, error) {
	var readers []metric2.Reader

	for _, provider := range cfg.Provider {
		switch provider.Provider {
		case PrometheusProvider:
			var opts []otelprom.Option
			if cfg.Registerer != nil {
				opts = append(opts, otelprom.WithRegisterer(cfg.Registerer))
			}

			promExporter, err := otelprom.New(opts...)
			if err != nil {
				return nil, fmt.Errorf("prometheus exporter: %w", err)
			}

			readers = append(readers, promExporter)
		case OtelCollector:
			opts := []otlpmetricgrpc.Option{
				otlpmetricgrpc.WithEndpointURL(provider.Endpoint),
				otlpmetricgrpc.WithHeaders(provider.Headers),
			}

			if provider.Insecure {
				opts = append(opts, otlpmetricgrpc.WithInsecure())
			}

			exp, err := otlpmetricgrpc.New(ctx, opts...)
			if err != nil {
				return nil, fmt.Errorf("otlp metric exporter: %w", err)
			}

			readers = append(readers, metric2.NewPeriodicReader(exp))
		}
	}

	return readers, nil
}

// NewMetricProvider builds the meter provider from options and installs it globally.
func NewMetricProvider(options ...OptionFn) (MetricProvider, error) {
	ctx := context.Background()

	var cfg Config

	for _, opt := range options {
		cfg = opt(cfg)
	}

	readers, err := getReaders(ctx, cfg)
	if err != nil {
		return nil, err
	}

	var metricsOps []metric2.Option

	for _, reader := range readers {
		metricsOps = append(metricsOps, metric2.WithReader(reader))
	}

	metricsOps = append(metricsOps, metric2.WithResource(
		resource.NewSchemaless(semconv.ServiceNameKey.String(cfg.ServiceName)),
	))

	meterProvider := metric2.NewMeterProvider(metricsOps...)

	otel.SetMeterProvider(meterProvider)

	return meterProvider, nil
}

// NewPrometheusServer serves gatherer on /metrics. A nil gatherer serves the
// default registry.
func NewPrometheusServer(port int, gatherer prometheus.Gatherer) *http.Server {
	handler := promhttp.Handler()
	if gatherer != nil {
		handler = promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", handler)

	return &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
}
