package app

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/metric/noop"

	"github.com/fd1az/fxbridge/business/conversion/domain"
	"github.com/fd1az/fxbridge/internal/apperror"
	"github.com/fd1az/fxbridge/internal/currency"
	"github.com/fd1az/fxbridge/internal/logger"
)

// fakeMarketData serves a fixed catalog and per-market trades.
type fakeMarketData struct {
	markets    []domain.Market
	marketsErr error
	trades     map[string]domain.Trades
	tradeErrs  map[string]error

	// after holds a market's response until the channel is closed; served
	// closes the channel once that market has been answered.
	after  map[string]chan struct{}
	served map[string]chan struct{}

	mu    sync.Mutex
	calls []string
}

func (f *fakeMarketData) FetchMarkets(context.Context) ([]domain.Market, error) {
	return f.markets, f.marketsErr
}

func (f *fakeMarketData) FetchTrades(ctx context.Context, marketID string) (domain.Trades, error) {
	if gate, ok := f.after[marketID]; ok {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	f.mu.Lock()
	f.calls = append(f.calls, marketID)
	f.mu.Unlock()

	if done, ok := f.served[marketID]; ok {
		defer close(done)
	}
	if err, ok := f.tradeErrs[marketID]; ok {
		return nil, err
	}
	return f.trades[marketID], nil
}

func (f *fakeMarketData) callOrder() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeMarketData) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func price(p float64) domain.Trades {
	return domain.Trades{{Price: p}}
}

func scenarioA() *fakeMarketData {
	return &fakeMarketData{
		markets: []domain.Market{
			domain.NewMarket("BTC", "CLP"),
			domain.NewMarket("BTC", "PEN"),
			domain.NewMarket("ETH", "CLP"),
			domain.NewMarket("ETH", "PEN"),
		},
		trades: map[string]domain.Trades{
			"BTC-CLP": price(81600000.0),
			"BTC-PEN": price(305642.93),
			"ETH-CLP": price(1780184.0),
			"ETH-PEN": price(6526.69),
		},
	}
}

func newService(t *testing.T, data *fakeMarketData, workers int) *ConversionService {
	t.Helper()

	meter := noop.NewMeterProvider().Meter("test")

	selector, err := NewSelector(NewEvaluator(data), workers, meter)
	require.NoError(t, err)

	validator, err := NewRequestValidator(currency.DefaultRegistry())
	require.NoError(t, err)

	svc, err := NewConversionService(data, selector, validator, logger.NewNop(), meter)
	require.NoError(t, err)
	return svc
}

func convertReq(from, to, amount string) ConvertRequest {
	return ConvertRequest{FromCurrency: from, ToCurrency: to, Amount: amount}
}

func TestEvaluator_Evaluate(t *testing.T) {
	data := scenarioA()
	catalog := domain.NewCatalog(data.markets)
	eval := NewEvaluator(data)

	t.Run("two_legs", func(t *testing.T) {
		c, err := eval.Evaluate(context.Background(), catalog, "BTC", "CLP", "PEN", 10000)
		require.NoError(t, err)
		assert.True(t, c.OK)
		assert.InDelta(t, 10000/81600000.0*305642.93, c.Output, 1e-12)
	})

	t.Run("missing_sell_market", func(t *testing.T) {
		c, err := eval.Evaluate(context.Background(), catalog, "BTC", "CLP", "COP", 10000)
		require.NoError(t, err)
		assert.False(t, c.OK)
	})

	t.Run("markets_are_directional", func(t *testing.T) {
		c, err := eval.Evaluate(context.Background(), catalog, "CLP", "BTC", "ETH", 10000)
		require.NoError(t, err)
		assert.False(t, c.OK)
	})

	t.Run("empty_trades", func(t *testing.T) {
		data := scenarioA()
		data.trades["ETH-PEN"] = domain.Trades{}
		c, err := NewEvaluator(data).Evaluate(context.Background(), catalog, "ETH", "CLP", "PEN", 10000)
		require.NoError(t, err)
		assert.False(t, c.OK)
	})
}

func TestConvert_ScenarioA(t *testing.T) {
	for _, workers := range []int{1, 4} {
		svc := newService(t, scenarioA(), workers)

		res, err := svc.Convert(context.Background(), convertReq("clp", "pen", "10000"))
		require.NoError(t, err)

		assert.Equal(t, "CLP", res.FromCurrency)
		assert.Equal(t, "PEN", res.ToCurrency)
		assert.Equal(t, 10000.0, res.InputAmount)
		assert.Equal(t, "BTC", res.Intermediary)
		assert.InDelta(t, 37.45624142156863, res.OutputAmount, 1e-9)
	}
}

func TestConvert_EvaluatesEveryCandidate(t *testing.T) {
	data := scenarioA()
	svc := newService(t, data, 1)

	_, err := svc.Convert(context.Background(), convertReq("CLP", "PEN", "10000"))
	require.NoError(t, err)
	assert.Equal(t, 4, data.callCount())
}

func TestConvert_Validation(t *testing.T) {
	tests := []struct {
		name    string
		req     ConvertRequest
		code    apperror.Code
		message string
	}{
		{
			name:    "missing_amount",
			req:     convertReq("CLP", "PEN", ""),
			code:    apperror.CodeMissingParameter,
			message: "Missing required parameters: from_currency, to_currency, and amount are required",
		},
		{
			name:    "missing_wins_over_unsupported",
			req:     convertReq("USD", "", "10"),
			code:    apperror.CodeMissingParameter,
			message: "Missing required parameters: from_currency, to_currency, and amount are required",
		},
		{
			name:    "unsupported_currency",
			req:     convertReq("USD", "PEN", "10000"),
			code:    apperror.CodeUnsupportedCurrency,
			message: "Invalid currency. Only CLP, PEN, COP are supported.",
		},
		{
			name:    "unsupported_wins_over_bad_amount",
			req:     convertReq("CLP", "ARS", "abc"),
			code:    apperror.CodeUnsupportedCurrency,
			message: "Invalid currency. Only CLP, PEN, COP are supported.",
		},
		{
			name:    "non_numeric_amount",
			req:     convertReq("CLP", "PEN", "ten"),
			code:    apperror.CodeInvalidAmount,
			message: "Invalid amount: must be a non-negative number",
		},
		{
			name:    "negative_amount",
			req:     convertReq("CLP", "PEN", "-5"),
			code:    apperror.CodeInvalidAmount,
			message: "Invalid amount: must be a non-negative number",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := scenarioA()
			svc := newService(t, data, 2)

			_, err := svc.Convert(context.Background(), tt.req)
			require.Error(t, err)

			var appErr *apperror.AppError
			require.ErrorAs(t, err, &appErr)
			assert.Equal(t, tt.code, appErr.Code)
			assert.Equal(t, tt.message, appErr.Message)
			assert.Equal(t, http.StatusBadRequest, appErr.StatusCode)
			assert.Zero(t, data.callCount())
		})
	}
}

func TestConvert_NoPath(t *testing.T) {
	tests := []struct {
		name string
		data *fakeMarketData
	}{
		{name: "empty_catalog", data: &fakeMarketData{}},
		{
			name: "all_trades_empty",
			data: func() *fakeMarketData {
				d := scenarioA()
				for id := range d.trades {
					d.trades[id] = domain.Trades{}
				}
				return d
			}(),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := newService(t, tt.data, 4).Convert(context.Background(), convertReq("CLP", "PEN", "10000"))

			var appErr *apperror.AppError
			require.ErrorAs(t, err, &appErr)
			assert.Equal(t, apperror.CodeNoConversionPath, appErr.Code)
			assert.Equal(t, "No valid conversion path found", appErr.Message)
			assert.Equal(t, http.StatusUnprocessableEntity, appErr.StatusCode)
		})
	}
}

func TestConvert_ProviderErrorAborts(t *testing.T) {
	providerErr := apperror.Provider(apperror.CodeBudaAPIError, "Rate Limit Exceeded: slow down", nil)

	for _, workers := range []int{1, 4} {
		data := scenarioA()
		data.tradeErrs = map[string]error{"ETH-CLP": providerErr}

		_, err := newService(t, data, workers).Convert(context.Background(), convertReq("CLP", "PEN", "10000"))
		require.Error(t, err)
		assert.Equal(t, apperror.CodeBudaAPIError, apperror.GetCode(err))
		assert.Equal(t, "Rate Limit Exceeded: slow down", err.(*apperror.AppError).Message)
	}
}

func TestConvert_CatalogErrorAborts(t *testing.T) {
	data := &fakeMarketData{
		marketsErr: apperror.Provider(apperror.CodeBudaConnectionFailed, "", errors.New("dial tcp: refused")),
	}

	_, err := newService(t, data, 1).Convert(context.Background(), convertReq("CLP", "PEN", "1"))
	assert.Equal(t, apperror.CodeBudaConnectionFailed, apperror.GetCode(err))
	assert.Zero(t, data.callCount())
}

func TestConvert_UnexpectedErrorIsWrapped(t *testing.T) {
	data := &fakeMarketData{marketsErr: errors.New("boom")}

	_, err := newService(t, data, 1).Convert(context.Background(), convertReq("CLP", "PEN", "1"))

	var appErr *apperror.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperror.CodeInternalError, appErr.Code)
	assert.Equal(t, "boom", appErr.Message)
	assert.Equal(t, http.StatusInternalServerError, appErr.StatusCode)
}

func tiedMarkets() *fakeMarketData {
	return &fakeMarketData{
		markets: []domain.Market{
			domain.NewMarket("ETH", "CLP"),
			domain.NewMarket("ETH", "PEN"),
			domain.NewMarket("BTC", "CLP"),
			domain.NewMarket("BTC", "PEN"),
		},
		trades: map[string]domain.Trades{
			"ETH-CLP": price(100),
			"ETH-PEN": price(10),
			"BTC-CLP": price(100),
			"BTC-PEN": price(10),
		},
	}
}

func TestConvert_TieKeepsCatalogOrder(t *testing.T) {
	for _, workers := range []int{1, 2, 8} {
		res, err := newService(t, tiedMarkets(), workers).Convert(context.Background(), convertReq("CLP", "PEN", "1000"))
		require.NoError(t, err)
		assert.Equal(t, "ETH", res.Intermediary)
		assert.Equal(t, 100.0, res.OutputAmount)
	}
}

func TestConvert_TieIgnoresCompletionOrder(t *testing.T) {
	for _, workers := range []int{2, 8} {
		data := tiedMarkets()
		btcDone := make(chan struct{})
		data.after = map[string]chan struct{}{"ETH-CLP": btcDone}
		data.served = map[string]chan struct{}{"BTC-PEN": btcDone}

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		res, err := newService(t, data, workers).Convert(ctx, convertReq("CLP", "PEN", "1000"))
		cancel()
		require.NoError(t, err)

		// BTC finished both legs before ETH fetched its first one.
		calls := data.callOrder()
		require.Len(t, calls, 4)
		assert.Equal(t, []string{"BTC-CLP", "BTC-PEN"}, calls[:2])

		assert.Equal(t, "ETH", res.Intermediary)
		assert.Equal(t, 100.0, res.OutputAmount)
	}
}

func TestConvert_OutputOverflowIsUnexpected(t *testing.T) {
	_, err := newService(t, scenarioA(), 2).Convert(context.Background(), convertReq("PEN", "CLP", "1e307"))

	var appErr *apperror.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperror.CodeInternalError, appErr.Code)
	assert.Equal(t, "converted amount is out of range", appErr.Message)
	assert.Equal(t, http.StatusInternalServerError, appErr.StatusCode)
}

func TestConvert_ContextDoneIsProviderTimeout(t *testing.T) {
	cancelled, cancel := context.WithCancel(context.Background())
	cancel()
	expired, cancel := context.WithDeadline(context.Background(), time.Now().Add(-time.Second))
	defer cancel()

	for name, ctx := range map[string]context.Context{"cancelled": cancelled, "expired": expired} {
		t.Run(name, func(t *testing.T) {
			data := scenarioA()
			_, err := newService(t, data, 2).Convert(ctx, convertReq("CLP", "PEN", "10000"))

			var appErr *apperror.AppError
			require.ErrorAs(t, err, &appErr)
			assert.Equal(t, apperror.CodeServiceTimeout, appErr.Code)
			assert.Equal(t, "Service request timeout", appErr.Message)
			assert.Equal(t, http.StatusUnprocessableEntity, appErr.StatusCode)
			assert.Zero(t, data.callCount())
		})
	}
}

func TestConvert_ZeroAmount(t *testing.T) {
	res, err := newService(t, scenarioA(), 2).Convert(context.Background(), convertReq("CLP", "PEN", "0"))
	require.NoError(t, err)
	assert.Equal(t, 0.0, res.OutputAmount)
	assert.Equal(t, "BTC", res.Intermediary)
}
