package httpclient

import (
	"context"
	"net"
	"net/http"
	"net/http/httptrace"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/httptrace/otelhttptrace"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const (
	// Default connection pool settings
	defaultDialKeepAlive         = 10 * time.Second
	defaultRequestTimeout        = 10 * time.Second
	defaultMaxIdleConns          = 0
	defaultMaxConnsPerHost       = 8
	defaultIdleConnTimeout       = 2 * time.Minute
	defaultExpectContinueTimeout = 100 * time.Millisecond

	// Metric names
	metricRequestCounter  = "http_client_requests_total"
	metricRequestDuration = "http_client_request_duration_ms"
)

// Client is the interface for making HTTP requests.
type Client interface {
	// NewRequest creates a new request builder.
	NewRequest(opts ...RequestOption) Request
}

// InstrumentedClient wraps http.Client with OTEL instrumentation.
type InstrumentedClient struct {
	client          *http.Client
	requestCounter  metric.Int64Counter
	requestDuration metric.Float64Histogram
	providerName    string
	tracer          trace.Tracer
	baseURL         string
	defaultHeaders  map[string]string
	logResponse     bool
}

// NewInstrumentedClient creates a new instrumented HTTP client.
func NewInstrumentedClient(opts ...ClientOption) (*InstrumentedClient, error) {
	options := NewClientOptions(opts...)

	httpClient := options.client
	if httpClient == nil {
		httpClient = &http.Client{
			Timeout: defaultRequestTimeout,
		}
	}

	if options.roundTripper != nil {
		httpClient.Transport = options.roundTripper
	} else if httpClient.Transport == nil {
		httpClient.Transport = &http.Transport{
			Proxy: http.ProxyFromEnvironment,
			DialContext: (&net.Dialer{
				KeepAlive: defaultDialKeepAlive,
			}).DialContext,
			MaxIdleConns:          defaultMaxIdleConns,
			MaxConnsPerHost:       defaultMaxConnsPerHost,
			IdleConnTimeout:       defaultIdleConnTimeout,
			ExpectContinueTimeout: defaultExpectContinueTimeout,
		}
	}

	if options.requestTimeout != nil {
		httpClient.Timeout = *options.requestTimeout
	}

	httpClient.Transport = otelhttp.NewTransport(
		httpClient.Transport,
		otelhttp.WithClientTrace(func(ctx context.Context) *httptrace.ClientTrace {
			return otelhttptrace.NewClientTrace(ctx)
		}),
	)

	providerName := options.providerName
	if providerName == "" {
		providerName = "default"
	}

	meterProvider := options.meterProvider
	if meterProvider == nil {
		meterProvider = otel.GetMeterProvider()
	}

	meter := meterProvider.Meter(
		"instrumented_http_client",
		metric.WithInstrumentationAttributes(attribute.String("provider", providerName)),
	)

	requestCounter, err := meter.Int64Counter(
		metricRequestCounter,
		metric.WithDescription("Total number of HTTP requests"),
	)
	if err != nil {
		return nil, err
	}

	requestDuration, err := meter.Float64Histogram(
		metricRequestDuration,
		metric.WithDescription("HTTP request latency"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	tracer := options.tracer
	if tracer == nil {
		tracer = otel.GetTracerProvider().Tracer("instrumented_http_client")
	}

	return &InstrumentedClient{
		client:          httpClient,
		requestCounter:  requestCounter,
		requestDuration: requestDuration,
		providerName:    providerName,
		tracer:          tracer,
		baseURL:         options.baseURL,
		defaultHeaders:  options.headers,
		logResponse:     options.logResponse,
	}, nil
}

// NewRequest creates a new request builder with the given per-request options.
func (c *InstrumentedClient) NewRequest(opts ...RequestOption) Request {
	reqOpts := NewRequestOptions(opts...)

	return &requestBuilder{
		client:          c.client,
		requestCounter:  c.requestCounter,
		requestDuration: c.requestDuration,
		providerName:    c.providerName,
		tracer:          c.tracer,
		baseURL:         c.baseURL,
		headers:         copyHeaders(c.defaultHeaders),
		errorHandler:    reqOpts.responseErrorHandler,
		labels:          reqOpts.labels,
		logResponse:     c.logResponse,
	}
}

// copyHeaders creates a copy of a headers map.
func copyHeaders(src map[string]string) map[string]string {
	dst := make(map[string]string, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}
