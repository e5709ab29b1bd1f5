package domain

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func scenarioCatalog() *Catalog {
	return NewCatalog([]Market{
		NewMarket("BTC", "CLP"),
		NewMarket("BTC", "PEN"),
		NewMarket("ETH", "CLP"),
		NewMarket("ETH", "PEN"),
	})
}

func TestMarket_ID(t *testing.T) {
	assert.Equal(t, "BTC-CLP", NewMarket("BTC", "CLP").ID())
}

func TestCatalog_Intermediaries(t *testing.T) {
	tests := []struct {
		name     string
		markets  []Market
		from, to string
		want     []string
	}{
		{
			name:    "scenario_catalog",
			markets: scenarioCatalog().Markets(),
			from:    "CLP", to: "PEN",
			want: []string{"BTC", "ETH"},
		},
		{
			name:    "empty_catalog",
			markets: nil,
			from:    "CLP", to: "PEN",
			want: []string{},
		},
		{
			name: "first_occurrence_order_base_before_quote",
			markets: []Market{
				NewMarket("USDC", "COP"),
				NewMarket("ETH", "BTC"),
				NewMarket("BTC", "CLP"),
				NewMarket("ETH", "COP"),
			},
			from: "CLP", to: "PEN",
			want: []string{"USDC", "COP", "ETH", "BTC"},
		},
		{
			name:    "endpoints_excluded_even_as_base",
			markets: []Market{NewMarket("CLP", "PEN"), NewMarket("PEN", "BTC")},
			from:    "CLP", to: "PEN",
			want: []string{"BTC"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NewCatalog(tt.markets).Intermediaries(tt.from, tt.to)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCatalog_FindIsDirectional(t *testing.T) {
	c := scenarioCatalog()

	m, ok := c.Find("BTC", "CLP")
	assert.True(t, ok)
	assert.Equal(t, "BTC-CLP", m.ID())

	_, ok = c.Find("CLP", "BTC")
	assert.False(t, ok)
	assert.True(t, NewCatalog(nil).IsEmpty())
}

func TestTrades_LastPrice(t *testing.T) {
	tests := []struct {
		name   string
		trades Trades
		want   float64
		wantOK bool
	}{
		{"empty", nil, 0, false},
		{"most_recent_first", Trades{{Price: 81600000.0}, {Price: 1}}, 81600000.0, true},
		{"zero_price", Trades{{Price: 0}}, 0, false},
		{"negative_price", Trades{{Price: -1}}, 0, false},
		{"infinite_price", Trades{{Price: math.Inf(1)}}, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := tt.trades.LastPrice()
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSelectBest(t *testing.T) {
	tests := []struct {
		name       string
		candidates []Candidate
		want       Best
		wantFound  bool
	}{
		{
			name:       "none",
			candidates: []Candidate{NoResult("BTC"), NoResult("ETH")},
			wantFound:  false,
		},
		{
			name: "strict_maximum_wins",
			candidates: []Candidate{
				{Intermediary: "ETH", Output: 36.67, OK: true},
				{Intermediary: "BTC", Output: 37.45, OK: true},
				{Intermediary: "USDC", Output: 10, OK: true},
			},
			want:      Best{Output: 37.45, Intermediary: "BTC"},
			wantFound: true,
		},
		{
			name: "tie_keeps_first_seen",
			candidates: []Candidate{
				NoResult("LTC"),
				{Intermediary: "BTC", Output: 5, OK: true},
				{Intermediary: "ETH", Output: 5, OK: true},
			},
			want:      Best{Output: 5, Intermediary: "BTC"},
			wantFound: true,
		},
		{
			name: "zero_output_is_a_result",
			candidates: []Candidate{
				{Intermediary: "BTC", Output: 0, OK: true},
			},
			want:      Best{Output: 0, Intermediary: "BTC"},
			wantFound: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, found := SelectBest(tt.candidates)
			assert.Equal(t, tt.wantFound, found)
			assert.Equal(t, tt.want, got)
		})
	}
}
