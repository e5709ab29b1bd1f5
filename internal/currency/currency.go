// Package currency holds the fiat currencies the converter accepts as endpoints.
package currency

import (
	"fmt"
	"strings"
	"sync"
)

// Currency is a fiat currency identified by its upper-case ISO code.
type Currency struct {
	code string
}

// New creates a Currency. The code is normalized.
func New(code string) *Currency {
	code = Normalize(code)
	if code == "" {
		panic("currency: empty code")
	}
	return &Currency{code: code}
}

// Code returns the ISO code (e.g., "CLP").
func (c *Currency) Code() string { return c.code }

func (c *Currency) String() string { return c.code }

// Normalize case-folds and trims a currency code.
func Normalize(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// Fiat currencies accepted by default.
var (
	CLP = New("CLP")
	PEN = New("PEN")
	COP = New("COP")
)

// Registry is the ordered set of supported endpoint currencies.
type Registry struct {
	mu     sync.RWMutex
	byCode map[string]*Currency
	order  []*Currency
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{byCode: make(map[string]*Currency)}
}

// NewRegistryFromCodes builds a registry from configured codes, keeping their order.
func NewRegistryFromCodes(codes []string) (*Registry, error) {
	r := NewRegistry()
	for _, raw := range codes {
		code := Normalize(raw)
		if code == "" {
			return nil, fmt.Errorf("currency: empty code in supported list")
		}
		if err := r.Register(New(code)); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// DefaultRegistry returns CLP, PEN and COP.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	for _, c := range []*Currency{CLP, PEN, COP} {
		_ = r.Register(c)
	}
	return r
}

// Register adds a currency. Duplicate codes are rejected.
func (r *Registry) Register(c *Currency) error {
	if c == nil {
		return fmt.Errorf("currency: cannot register nil currency")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byCode[c.code]; exists {
		return fmt.Errorf("currency: %s already registered", c.code)
	}
	r.byCode[c.code] = c
	r.order = append(r.order, c)
	return nil
}

// Get looks up a currency by (unnormalized) code.
func (r *Registry) Get(code string) (*Currency, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.byCode[Normalize(code)]
	return c, ok
}

// IsSupported reports whether code is registered.
func (r *Registry) IsSupported(code string) bool {
	_, ok := r.Get(code)
	return ok
}

// Codes returns the registered codes in registration order.
func (r *Registry) Codes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	codes := make([]string, len(r.order))
	for i, c := range r.order {
		codes[i] = c.code
	}
	return codes
}

// Len returns the number of registered currencies.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}
