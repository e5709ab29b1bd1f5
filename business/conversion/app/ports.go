// Package app contains application services and port definitions for the conversion context.
package app

import (
	"context"

	"github.com/fd1az/fxbridge/business/conversion/domain"
)

// MarketCatalog provides the list of tradable markets.
type MarketCatalog interface {
	// FetchMarkets returns every tradable market in provider order.
	FetchMarkets(ctx context.Context) ([]domain.Market, error)
}

// TradeFeed provides recent trades for a market.
type TradeFeed interface {
	// FetchTrades returns the market's trades, most recent first. An empty
	// slice with a nil error means no price is available.
	FetchTrades(ctx context.Context, marketID string) (domain.Trades, error)
}

// MarketData is a provider serving both ports.
type MarketData interface {
	MarketCatalog
	TradeFeed
}
