package buda

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/fd1az/fxbridge/business/conversion/app"
	"github.com/fd1az/fxbridge/business/conversion/domain"
	"github.com/fd1az/fxbridge/internal/circuitbreaker"
	"github.com/fd1az/fxbridge/internal/httpclient"
	"github.com/fd1az/fxbridge/internal/logger"
	"github.com/fd1az/fxbridge/internal/ratelimit"
)

const (
	// BaseAPIURL is the public Buda REST API.
	BaseAPIURL = "https://www.buda.com/api/v2"

	marketsEndpoint = "/markets"
	tradesEndpoint  = "/markets/%s/trades"

	httpTimeout = 10 * time.Second
	tracerName  = "fxbridge/buda"
)

var _ app.MarketData = (*Client)(nil)

// Config holds configuration for the Buda client.
type Config struct {
	BaseURL           string        // API base URL (empty = default)
	Timeout           time.Duration // per call
	RequestsPerMinute int           // 0 = unlimited
	Breaker           circuitbreaker.Config
	MeterProvider     metric.MeterProvider // nil = global
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		BaseURL: BaseAPIURL,
		Timeout: httpTimeout,
		Breaker: circuitbreaker.DefaultConfig("buda"),
	}
}

// Client fetches markets and trades from Buda.
type Client struct {
	client  httpclient.Client
	limiter *ratelimit.Limiter
	breaker *circuitbreaker.CircuitBreaker[*httpclient.Response]
	logger  logger.LoggerInterface
	tracer  trace.Tracer
}

// NewClient creates a new Buda client.
func NewClient(cfg Config, log logger.LoggerInterface) (*Client, error) {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = BaseAPIURL
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = httpTimeout
	}

	tracer := otel.Tracer(tracerName)

	opts := []httpclient.ClientOption{
		httpclient.WithProviderName("buda"),
		httpclient.WithBaseURL(baseURL),
		httpclient.WithRequestTimeout(timeout),
		httpclient.WithTracer(tracer, false),
		httpclient.WithHeaders(map[string]string{
			"Accept": "application/json",
		}),
	}
	if cfg.MeterProvider != nil {
		opts = append(opts, httpclient.WithMeterProvider(cfg.MeterProvider))
	}

	client, err := httpclient.NewInstrumentedClient(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP client: %w", err)
	}

	breakerCfg := cfg.Breaker
	if breakerCfg.Name == "" {
		breakerCfg.Name = "buda"
	}
	breakerCfg.IsSuccessful = isBreakerSuccess
	breakerCfg.OnStateChange = func(name string, from, to gobreaker.State) {
		log.Warn(context.Background(), "circuit breaker state changed",
			"breaker", name, "from", from.String(), "to", to.String())
	}

	return &Client{
		client:  client,
		limiter: ratelimit.New(cfg.RequestsPerMinute),
		breaker: circuitbreaker.New[*httpclient.Response](breakerCfg),
		logger:  log,
		tracer:  tracer,
	}, nil
}

// FetchMarkets returns every market listed by Buda, in response order.
func (c *Client) FetchMarkets(ctx context.Context) ([]domain.Market, error) {
	ctx, span := c.tracer.Start(ctx, "buda.get_markets")
	defer span.End()

	var result MarketsResponse
	if err := c.get(ctx, "markets", marketsEndpoint, &result); err != nil {
		span.RecordError(err)
		return nil, err
	}

	markets := result.ToDomain()
	span.SetAttributes(attribute.Int("markets", len(markets)))
	c.logger.Debug(ctx, "fetched markets", "count", len(markets))

	return markets, nil
}

// FetchTrades returns the latest trades of marketID, most recent first.
func (c *Client) FetchTrades(ctx context.Context, marketID string) (domain.Trades, error) {
	ctx, span := c.tracer.Start(ctx, "buda.get_trades",
		trace.WithAttributes(attribute.String("market_id", marketID)),
	)
	defer span.End()

	var result TradesResponse
	path := fmt.Sprintf(tradesEndpoint, url.PathEscape(marketID))
	if err := c.get(ctx, "trades", path, &result); err != nil {
		span.RecordError(err)
		return nil, err
	}

	trades, err := result.ToDomain()
	if err != nil {
		err = toAppError(fmt.Errorf("%w: %s: %v", errInvalidPayload, marketID, err))
		span.RecordError(err)
		return nil, err
	}

	span.SetAttributes(attribute.Int("entries", len(trades)))
	c.logger.Debug(ctx, "fetched trades", "market", marketID, "entries", len(trades))

	return trades, nil
}

// BreakerState exposes the circuit state for readiness checks.
func (c *Client) BreakerState() gobreaker.State {
	return c.breaker.State()
}

// get waits for the limiter, then runs the request through the breaker.
func (c *Client) get(ctx context.Context, endpoint, path string, result any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	_, err := c.breaker.Execute(func() (*httpclient.Response, error) {
		return c.client.NewRequest(
			httpclient.WithLabels(httpclient.NewLabel("endpoint", endpoint)),
			httpclient.WithResponseErrorHandler(budaErrorHandler),
		).
			SetResult(result).
			Get(ctx, path)
	})
	if err != nil {
		c.logger.Warn(ctx, "buda request failed", "endpoint", endpoint, "path", path, "error", err)
		return toAppError(err)
	}
	return nil
}
