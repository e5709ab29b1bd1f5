// Package buda implements the market data ports against the Buda.com public REST API.
package buda

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/fd1az/fxbridge/business/conversion/domain"
	"github.com/fd1az/fxbridge/internal/currency"
)

// MarketsResponse is the body of GET /markets.
type MarketsResponse struct {
	Markets []MarketPayload `json:"markets"`
}

// MarketPayload is one market as returned by Buda.
type MarketPayload struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	BaseCurrency  string `json:"base_currency"`
	QuoteCurrency string `json:"quote_currency"`
}

// TradesResponse is the body of GET /markets/{id}/trades.
type TradesResponse struct {
	Trades TradesPayload `json:"trades"`
}

// TradesPayload holds the trade entries, most recent first.
type TradesPayload struct {
	MarketID      string       `json:"market_id"`
	Timestamp     *string      `json:"timestamp"`
	LastTimestamp *string      `json:"last_timestamp"`
	Entries       []TradeEntry `json:"entries"`
}

// TradeEntry is [timestamp_ms, amount, price, direction, id?].
// Buda sends the values as strings; numbers are accepted too.
type TradeEntry []json.RawMessage

const (
	entryTimestamp = iota
	entryAmount
	entryPrice
	entryDirection
)

// field returns the i-th value as text, unquoting JSON strings.
func (e TradeEntry) field(i int) string {
	if i >= len(e) {
		return ""
	}
	var s string
	if err := json.Unmarshal(e[i], &s); err == nil {
		return s
	}
	return strings.TrimSpace(string(e[i]))
}

// ToDomain converts the entry. Only the price is mandatory.
func (e TradeEntry) ToDomain() (domain.TradeEntry, error) {
	if len(e) <= entryPrice {
		return domain.TradeEntry{}, fmt.Errorf("trade entry has %d fields", len(e))
	}

	price, err := decimal.NewFromString(e.field(entryPrice))
	if err != nil {
		return domain.TradeEntry{}, fmt.Errorf("trade price: %w", err)
	}

	out := domain.TradeEntry{
		Price:     price.InexactFloat64(),
		Direction: e.field(entryDirection),
	}
	if ts, err := decimal.NewFromString(e.field(entryTimestamp)); err == nil {
		out.Timestamp = time.UnixMilli(ts.IntPart())
	}
	if amount, err := decimal.NewFromString(e.field(entryAmount)); err == nil {
		out.Amount = amount.InexactFloat64()
	}
	return out, nil
}

// ToDomain converts the catalog, upper-casing codes. Markets missing a
// currency are dropped.
func (r MarketsResponse) ToDomain() []domain.Market {
	markets := make([]domain.Market, 0, len(r.Markets))
	for _, m := range r.Markets {
		base := currency.Normalize(m.BaseCurrency)
		quote := currency.Normalize(m.QuoteCurrency)
		if base == "" || quote == "" {
			continue
		}
		markets = append(markets, domain.NewMarket(base, quote))
	}
	return markets
}

// ToDomain converts the trade list, keeping Buda's order. The most recent
// entry must be well formed; older malformed entries are skipped.
func (r TradesResponse) ToDomain() (domain.Trades, error) {
	trades := make(domain.Trades, 0, len(r.Trades.Entries))
	for i, e := range r.Trades.Entries {
		t, err := e.ToDomain()
		if err != nil {
			if i == 0 {
				return nil, fmt.Errorf("entry %d: %w", i, err)
			}
			continue
		}
		trades = append(trades, t)
	}
	return trades, nil
}

// APIErrorPayload is the body of a Buda error response.
type APIErrorPayload struct {
	Message *string `json:"message"`
	Code    string  `json:"code,omitempty"`
}
