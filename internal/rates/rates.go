// Package rates provides the static symbol rate table used to convert price
// deltas into dollar profit/loss figures.
package rates

import (
	"errors"
	"fmt"
	"math"
	"sort"
)

// ErrSymbolRateMissing is returned by Rate when a symbol has no configured
// dollar-per-lot-per-price-unit value.
var ErrSymbolRateMissing = errors.New("symbol rate missing")

// Table maps an instrument symbol to the dollar value of a one-unit price
// move on one lot. It is validated at construction and read-only afterwards,
// so it is safe to share across the whole run without locking.
type Table struct {
	rates map[string]float64
}

// New builds a rate table from the configured mapping. Every value must be a
// positive finite number; a violation is a configuration error that aborts
// startup before any account is contacted.
func New(mapping map[string]float64) (*Table, error) {
	if len(mapping) == 0 {
		return nil, fmt.Errorf("symbol rate table cannot be empty")
	}
	rates := make(map[string]float64, len(mapping))
	for symbol, value := range mapping {
		if symbol == "" {
			return nil, fmt.Errorf("symbol rate table contains an empty symbol")
		}
		if value <= 0 || math.IsInf(value, 0) || math.IsNaN(value) {
			return nil, fmt.Errorf("invalid rate for %s: %v (must be a positive finite number)", symbol, value)
		}
		rates[symbol] = value
	}
	return &Table{rates: rates}, nil
}

// Rate returns the dollar-per-lot-per-price-unit value for symbol.
func (t *Table) Rate(symbol string) (float64, error) {
	v, ok := t.rates[symbol]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrSymbolRateMissing, symbol)
	}
	return v, nil
}

// Has reports whether symbol has a configured rate.
func (t *Table) Has(symbol string) bool {
	_, ok := t.rates[symbol]
	return ok
}

// Len returns the number of configured symbols.
func (t *Table) Len() int { return len(t.rates) }

// Symbols returns the configured symbols in sorted order.
func (t *Table) Symbols() []string {
	out := make([]string, 0, len(t.rates))
	for s := range t.rates {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}
