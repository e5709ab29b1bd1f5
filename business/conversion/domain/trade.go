package domain

import (
	"math"
	"time"
)

// TradeEntry is one executed trade; only Price drives conversion.
type TradeEntry struct {
	Timestamp time.Time
	Amount    float64
	Price     float64
	Direction string
}

// Trades is a market's trade history, most recent first.
type Trades []TradeEntry

// LastPrice returns the price of the most recent trade. ok is false when there
// are no trades or the price cannot be used as a divisor.
func (t Trades) LastPrice() (price float64, ok bool) {
	if len(t) == 0 {
		return 0, false
	}
	p := t[0].Price
	if p <= 0 || math.IsInf(p, 0) || math.IsNaN(p) {
		return 0, false
	}
	return p, true
}
