// Package domain contains the core domain types for the conversion context.
package domain

// Market is a tradable (base, quote) pair on the exchange.
type Market struct {
	BaseCurrency  string
	QuoteCurrency string
}

// NewMarket creates a market from already-normalized codes.
func NewMarket(base, quote string) Market {
	return Market{BaseCurrency: base, QuoteCurrency: quote}
}

// ID returns the composite market identifier (e.g., "BTC-CLP").
func (m Market) ID() string {
	return m.BaseCurrency + "-" + m.QuoteCurrency
}

func (m Market) String() string {
	return m.ID()
}

// Catalog is a snapshot of tradable markets in provider response order.
type Catalog struct {
	markets []Market
}

// NewCatalog wraps markets; the slice order is preserved.
func NewCatalog(markets []Market) *Catalog {
	return &Catalog{markets: markets}
}

// Len returns the number of markets.
func (c *Catalog) Len() int {
	return len(c.markets)
}

// IsEmpty reports whether the catalog has no markets.
func (c *Catalog) IsEmpty() bool {
	return len(c.markets) == 0
}

// Markets returns a copy of the markets.
func (c *Catalog) Markets() []Market {
	out := make([]Market, len(c.markets))
	copy(out, c.markets)
	return out
}

// Find returns the first market with exactly the given base and quote.
func (c *Catalog) Find(base, quote string) (Market, bool) {
	for _, m := range c.markets {
		if m.BaseCurrency == base && m.QuoteCurrency == quote {
			return m, true
		}
	}
	return Market{}, false
}

// Intermediaries returns every currency that appears in the catalog, base
// before quote, deduplicated by first occurrence, excluding from and to.
func (c *Catalog) Intermediaries(from, to string) []string {
	seen := make(map[string]struct{}, len(c.markets)*2)
	out := make([]string, 0, len(c.markets))

	add := func(code string) {
		if code == from || code == to {
			return
		}
		if _, ok := seen[code]; ok {
			return
		}
		seen[code] = struct{}{}
		out = append(out, code)
	}

	for _, m := range c.markets {
		add(m.BaseCurrency)
		add(m.QuoteCurrency)
	}
	return out
}
