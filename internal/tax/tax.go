package tax

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// RateLookup resolves the tax rate for a sale line. Implementations return
// the rate as a percentage, e.g. "20" for 20%.
type RateLookup interface {
	RateFor(productRate *string) (decimal.Decimal, error)
}

// Calculator computes per-line tax in integer cents. Tax is rounded
// half-up per line so line taxes always sum to the sale tax.
type Calculator struct {
	lookup RateLookup
}

// NewCalculator builds a calculator with the provided rate lookup.
func NewCalculator(lookup RateLookup) (*Calculator, error) {
	if lookup == nil {
		return nil, fmt.Errorf("rate lookup required")
	}
	return &Calculator{lookup: lookup}, nil
}

// LineTax returns the tax in cents for a line total, using the product's
// registered rate when present.
func (c *Calculator) LineTax(lineTotalCents int64, productRate *string) (int64, error) {
	rate, err := c.lookup.RateFor(productRate)
	if err != nil {
		return 0, err
	}
	if rate.IsZero() {
		return 0, nil
	}

	total := decimal.NewFromInt(lineTotalCents)
	tax := total.Mul(rate).Div(decimal.NewFromInt(100)).Round(0)
	return tax.IntPart(), nil
}

// StaticRates resolves rates from the configured default, overridden by a
// per-product rate when one is registered.
type StaticRates struct {
	defaultRate decimal.Decimal
}

// NewStaticRates parses the configured default rate percentage.
func NewStaticRates(defaultRatePercent string) (*StaticRates, error) {
	rate, err := decimal.NewFromString(defaultRatePercent)
	if err != nil {
		return nil, fmt.Errorf("parsing default tax rate %q: %w", defaultRatePercent, err)
	}
	if rate.IsNegative() {
		return nil, fmt.Errorf("default tax rate must not be negative")
	}
	return &StaticRates{defaultRate: rate}, nil
}

// RateFor returns the product's rate when set, otherwise the default.
func (s *StaticRates) RateFor(productRate *string) (decimal.Decimal, error) {
	if productRate == nil || *productRate == "" {
		return s.defaultRate, nil
	}
	rate, err := decimal.NewFromString(*productRate)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parsing product tax rate %q: %w", *productRate, err)
	}
	if rate.IsNegative() {
		return decimal.Zero, fmt.Errorf("product tax rate must not be negative")
	}
	return rate, nil
}
