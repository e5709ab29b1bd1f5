package app

import (
	"context"

	"github.com/fd1az/fxbridge/business/conversion/domain"
)

// Evaluator computes the two-leg output for one intermediary.
type Evaluator struct {
	trades TradeFeed
}

// NewEvaluator creates a new Evaluator.
func NewEvaluator(trades TradeFeed) *Evaluator {
	return &Evaluator{trades: trades}
}

// Evaluate buys the intermediary with amount of from and sells it for to.
// A missing market or an empty trade history yields a candidate with OK false.
// Provider errors are returned as is.
func (e *Evaluator) Evaluate(
	ctx context.Context,
	catalog *domain.Catalog,
	intermediary, from, to string,
	amount float64,
) (domain.Candidate, error) {
	buy, ok := catalog.Find(intermediary, from)
	if !ok {
		return domain.NoResult(intermediary), nil
	}
	sell, ok := catalog.Find(intermediary, to)
	if !ok {
		return domain.NoResult(intermediary), nil
	}

	buyPrice, ok, err := e.lastPrice(ctx, buy)
	if err != nil || !ok {
		return domain.NoResult(intermediary), err
	}
	crypto := amount / buyPrice

	sellPrice, ok, err := e.lastPrice(ctx, sell)
	if err != nil || !ok {
		return domain.NoResult(intermediary), err
	}

	return domain.Candidate{
		Intermediary: intermediary,
		Output:       crypto * sellPrice,
		OK:           true,
	}, nil
}

func (e *Evaluator) lastPrice(ctx context.Context, m domain.Market) (float64, bool, error) {
	trades, err := e.trades.FetchTrades(ctx, m.ID())
	if err != nil {
		return 0, false, err
	}
	price, ok := trades.LastPrice()
	return price, ok, nil
}
