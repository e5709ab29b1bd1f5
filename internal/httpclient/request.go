package httpclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// ErrDecodeResult is returned when a successful response body cannot be
// decoded into the result set with SetResult.
var ErrDecodeResult = errors.New("httpclient: failed to decode response body")

// Request is the interface for building and executing HTTP requests.
type Request interface {
	Get(ctx context.Context, path string) (*Response, error)

	SetHeader(key, value string) Request
	SetQueryParam(key, value string) Request
	SetResult(result any) Request
}

// Response wraps http.Response with the buffered body.
type Response struct {
	*http.Response
	body []byte
}

// Body returns the response body as bytes.
func (r *Response) Body() []byte {
	return r.body
}

// String returns the response body as string.
func (r *Response) String() string {
	return string(r.body)
}

// IsSuccess returns true for 2xx status codes.
func (r *Response) IsSuccess() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// requestBuilder implements Request.
type requestBuilder struct {
	client          *http.Client
	requestCounter  metric.Int64Counter
	requestDuration metric.Float64Histogram
	providerName    string
	tracer          trace.Tracer
	baseURL         string
	headers         map[string]string
	queryParams     url.Values
	result          any
	errorHandler    ResponseErrorHandler
	labels          []*Label
	logResponse     bool
}

// Get executes a GET request.
func (r *requestBuilder) Get(ctx context.Context, path string) (*Response, error) {
	return r.execute(ctx, http.MethodGet, path)
}

// SetHeader sets a single header.
func (r *requestBuilder) SetHeader(key, value string) Request {
	r.headers[key] = value
	return r
}

// SetQueryParam sets a single query parameter.
func (r *requestBuilder) SetQueryParam(key, value string) Request {
	if r.queryParams == nil {
		r.queryParams = url.Values{}
	}
	r.queryParams.Set(key, value)
	return r
}

// SetResult sets the value that 2xx JSON bodies are decoded into.
func (r *requestBuilder) SetResult(result any) Request {
	r.result = result
	return r
}

// buildURL joins the base URL, path and query parameters.
func (r *requestBuilder) buildURL(path string) string {
	fullURL := path
	if r.baseURL != "" && !strings.HasPrefix(path, "http") {
		fullURL = strings.TrimSuffix(r.baseURL, "/") + "/" + strings.TrimPrefix(path, "/")
	}

	if len(r.queryParams) > 0 {
		separator := "?"
		if strings.Contains(fullURL, "?") {
			separator = "&"
		}
		fullURL += separator + r.queryParams.Encode()
	}
	return fullURL
}

// execute performs the HTTP request with instrumentation.
func (r *requestBuilder) execute(ctx context.Context, method, path string) (*Response, error) {
	fullURL := r.buildURL(path)

	ctx, span := r.tracer.Start(ctx, "http.request",
		trace.WithAttributes(
			attribute.String("http.method", method),
			attribute.String("http.url", fullURL),
			attribute.String("provider", r.providerName),
		),
	)
	defer span.End()

	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, method, fullURL, nil)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to create request")
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	for k, v := range r.headers {
		req.Header.Set(k, v)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		r.recordError(ctx, span, err, start)
		return nil, err
	}

	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		r.recordError(ctx, span, err, start)
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if r.logResponse {
		span.AddEvent("response.body", trace.WithAttributes(
			attribute.String("http.response_body", string(body)),
		))
	}

	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))

	response := &Response{
		Response: resp,
		body:     body,
	}

	if r.errorHandler != nil {
		if handlerErr := r.errorHandler(resp.StatusCode, body); handlerErr != nil {
			r.recordMetrics(ctx, false, start)
			span.SetStatus(codes.Error, handlerErr.Error())
			return response, handlerErr
		}
	}

	if r.result != nil && response.IsSuccess() {
		if err := json.Unmarshal(body, r.result); err != nil {
			r.recordMetrics(ctx, false, start)
			span.RecordError(err)
			span.SetStatus(codes.Error, "failed to decode body")
			return response, fmt.Errorf("%w: %v", ErrDecodeResult, err)
		}
	}

	r.recordMetrics(ctx, response.IsSuccess(), start)

	return response, nil
}

// recordError logs network errors to the span.
func (r *requestBuilder) recordError(ctx context.Context, span trace.Span, err error, start time.Time) {
	span.RecordError(err)

	var netErr net.Error
	if errors.Is(err, context.Canceled) {
		span.SetAttributes(attribute.Bool("context.cancelled", true))
	}
	if errors.As(err, &netErr) && netErr.Timeout() {
		span.SetAttributes(attribute.Bool("request.timeout", true))
	}

	span.SetStatus(codes.Error, err.Error())
	r.recordMetrics(ctx, false, start)
}

// recordMetrics increments the request counter and records latency.
func (r *requestBuilder) recordMetrics(ctx context.Context, success bool, start time.Time) {
	attrs := []attribute.KeyValue{
		attribute.String("provider", r.providerName),
		attribute.Bool("success", success),
	}

	for _, label := range r.labels {
		attrs = append(attrs, attribute.String(label.Key, label.Value))
	}

	r.requestCounter.Add(ctx, 1, metric.WithAttributes(attrs...))
	r.requestDuration.Record(ctx, float64(time.Since(start).Milliseconds()), metric.WithAttributes(attrs...))
}
