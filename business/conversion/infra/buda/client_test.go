package buda

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fd1az/fxbridge/business/conversion/domain"
	"github.com/fd1az/fxbridge/internal/apperror"
	"github.com/fd1az/fxbridge/internal/circuitbreaker"
	"github.com/fd1az/fxbridge/internal/logger"
)

const marketsBody = `{"markets":[
	{"id":"BTC-CLP","name":"btc-clp","base_currency":"BTC","quote_currency":"CLP"},
	{"id":"eth-pen","name":"eth-pen","base_currency":"eth","quote_currency":"pen"},
	{"id":"bad","name":"bad","base_currency":"","quote_currency":"CLP"}
]}`

const tradesBody = `{"trades":{"market_id":"BTC-CLP","timestamp":"1476905551698","last_timestamp":"1476905551687","entries":[
	["1476905551687","0.00984662","81600000.0","buy",12345],
	["1476905551600","0.1","81500000.0","sell"]
]}}`

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	cfg := DefaultConfig()
	cfg.BaseURL = srv.URL
	cfg.Timeout = time.Second

	c, err := NewClient(cfg, logger.NewNop())
	require.NoError(t, err)
	return c
}

func TestClient_FetchMarkets(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/markets", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		w.Write([]byte(marketsBody))
	})

	markets, err := c.FetchMarkets(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []domain.Market{
		domain.NewMarket("BTC", "CLP"),
		domain.NewMarket("ETH", "PEN"),
	}, markets)
}

func TestClient_FetchTrades(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/markets/BTC-CLP/trades", r.URL.Path)
		w.Write([]byte(tradesBody))
	})

	trades, err := c.FetchTrades(context.Background(), "BTC-CLP")
	require.NoError(t, err)
	require.Len(t, trades, 2)

	assert.Equal(t, 81600000.0, trades[0].Price)
	assert.Equal(t, 0.00984662, trades[0].Amount)
	assert.Equal(t, "buy", trades[0].Direction)
	assert.Equal(t, time.UnixMilli(1476905551687), trades[0].Timestamp)

	p, ok := trades.LastPrice()
	assert.True(t, ok)
	assert.Equal(t, 81600000.0, p)
}

func TestClient_FetchTradesEmpty(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"trades":{"market_id":"BTC-PEN","timestamp":null,"last_timestamp":null,"entries":[]}}`))
	})

	trades, err := c.FetchTrades(context.Background(), "BTC-PEN")
	require.NoError(t, err)
	assert.Empty(t, trades)

	_, ok := trades.LastPrice()
	assert.False(t, ok)
}

func TestClient_FetchTradesSkipsOlderMalformedEntries(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"trades":{"entries":[
			["1476905551687","0.1","81600000.0","buy"],
			["1476905551600","0.1","not-a-price","sell"],
			["1476905551500"]
		]}}`))
	})

	trades, err := c.FetchTrades(context.Background(), "BTC-CLP")
	require.NoError(t, err)
	require.Len(t, trades, 1)

	p, ok := trades.LastPrice()
	assert.True(t, ok)
	assert.Equal(t, 81600000.0, p)
}

func TestClient_ErrorMapping(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		message string
	}{
		{"bad_request", 400, `{"message":"bad market"}`, "Bad Request: bad market"},
		{"unauthorized", 401, `{"message":"no key"}`, "Unauthorized: no key"},
		{"forbidden", 403, `{"message":"nope"}`, "Forbidden: nope"},
		{"not_found", 404, `{"message":"Not found","code":"not_found"}`, "Not Found: Not found"},
		{"rate_limited", 429, `{"message":"slow down"}`, "Rate Limit Exceeded: slow down"},
		{"server_error", 503, `{"message":"maintenance"}`, "API Error (503): maintenance"},
		{"missing_message", 404, `{"code":"not_found"}`, "Not Found: Unknown error"},
		{"invalid_json", 500, `<html>oops</html>`, "API Error (500): Invalid JSON response"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			})

			_, err := c.FetchMarkets(context.Background())
			require.Error(t, err)

			var appErr *apperror.AppError
			require.ErrorAs(t, err, &appErr)
			assert.Equal(t, apperror.CodeBudaAPIError, appErr.Code)
			assert.Equal(t, tt.message, appErr.Message)
			assert.Equal(t, http.StatusUnprocessableEntity, appErr.StatusCode)
		})
	}
}

func TestClient_InvalidPayload(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"malformed_json", `{"trades":`},
		{"bad_price", `{"trades":{"entries":[["1","0.1","not-a-price","buy"]]}}`},
		{"short_entry", `{"trades":{"entries":[["1","0.1"]]}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(tt.body))
			})

			_, err := c.FetchTrades(context.Background(), "BTC-CLP")

			var appErr *apperror.AppError
			require.ErrorAs(t, err, &appErr)
			assert.Equal(t, apperror.CodeBudaInvalidResponse, appErr.Code)
			assert.Equal(t, "Invalid JSON response", appErr.Message)
		})
	}
}

func TestClient_ConnectionFailed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	srv.Close()

	cfg := DefaultConfig()
	cfg.BaseURL = srv.URL
	c, err := NewClient(cfg, logger.NewNop())
	require.NoError(t, err)

	_, err = c.FetchMarkets(context.Background())
	assert.Equal(t, apperror.CodeBudaConnectionFailed, apperror.GetCode(err))
}

func TestClient_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	t.Cleanup(func() {
		close(release)
		srv.Close()
	})

	cfg := DefaultConfig()
	cfg.BaseURL = srv.URL
	cfg.Timeout = 50 * time.Millisecond
	c, err := NewClient(cfg, logger.NewNop())
	require.NoError(t, err)

	_, err = c.FetchTrades(context.Background(), "BTC-CLP")
	assert.Equal(t, apperror.CodeBudaConnectionFailed, apperror.GetCode(err))
}

func TestClient_BreakerTripsOnServerErrors(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	t.Cleanup(srv.Close)

	cfg := DefaultConfig()
	cfg.BaseURL = srv.URL
	cfg.Breaker = circuitbreaker.Config{FailureThreshold: 2, Timeout: time.Minute}
	c, err := NewClient(cfg, logger.NewNop())
	require.NoError(t, err)

	for range 2 {
		_, err := c.FetchMarkets(context.Background())
		assert.Equal(t, apperror.CodeBudaAPIError, apperror.GetCode(err))
	}
	assert.Equal(t, gobreaker.StateOpen, c.BreakerState())

	_, err = c.FetchMarkets(context.Background())
	assert.Equal(t, apperror.CodeCircuitOpen, apperror.GetCode(err))
	assert.Equal(t, int32(2), hits.Load())
}

func TestClient_ClientErrorsKeepBreakerClosed(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"message":"Not found"}`))
	})

	for range 10 {
		_, err := c.FetchTrades(context.Background(), "XRP-CLP")
		assert.Equal(t, apperror.CodeBudaAPIError, apperror.GetCode(err))
	}
	assert.Equal(t, gobreaker.StateClosed, c.BreakerState())
}
