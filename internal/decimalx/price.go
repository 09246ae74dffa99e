// Package decimalx wraps github.com/shopspring/decimal in a small set of
// dimensioned types (Price, Quote, Size, SignedSize, Ratio, Leverage) so the
// rest of the engine cannot accidentally multiply a price by a balance or
// compare a rate to a quantity. All value math here is exact decimal; no
// float64 is ever used in a balance-affecting calculation.
package decimalx

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// RoundPlaces is the scale Quote.RoundHalfEven rounds to; all other math,
// including equality comparison, stays at whatever precision
// shopspring/decimal carries.
const RoundPlaces = 18

// Price is a strictly positive quote for one unit of an instrument.
type Price struct{ d decimal.Decimal }

// NewPrice wraps an already-validated decimal as a Price.
func NewPrice(d decimal.Decimal) Price { return Price{d} }

// PriceFromInt builds a Price from a whole-number quote.
func PriceFromInt(i int64) Price { return Price{decimal.NewFromInt(i)} }

// PriceFromString parses a decimal literal, e.g. config or test fixtures.
func PriceFromString(s string) (Price, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Price{}, fmt.Errorf("decimalx: parse price %q: %w", s, err)
	}
	return Price{d}, nil
}

func (p Price) Decimal() decimal.Decimal { return p.d }
func (p Price) IsPositive() bool         { return p.d.IsPositive() }
func (p Price) IsZero() bool             { return p.d.IsZero() }

func (p Price) Add(o Price) Price { return Price{p.d.Add(o.d)} }
func (p Price) Sub(o Price) Price { return Price{p.d.Sub(o.d)} }

// Mul scales a Price by a dimensionless Ratio (e.g. 1+premium).
func (p Price) Mul(r Ratio) Price { return Price{p.d.Mul(r.d)} }

// MulSignedSize returns the signed notional of holding size units at this
// price (positive for long, negative for short).
func (p Price) MulSignedSize(s SignedSize) Quote { return Quote{p.d.Mul(s.d)} }

// MulSize returns the (unsigned) notional of size units at this price.
func (p Price) MulSize(s Size) Quote { return Quote{p.d.Mul(s.d)} }

// Div returns the dimensionless ratio of two prices.
func (p Price) Div(o Price) Ratio { return Ratio{p.d.Div(o.d)} }

func (p Price) Cmp(o Price) int                 { return p.d.Cmp(o.d) }
func (p Price) Equal(o Price) bool              { return p.d.Equal(o.d) }
func (p Price) LessThan(o Price) bool           { return p.d.LessThan(o.d) }
func (p Price) LessThanOrEqual(o Price) bool    { return p.d.LessThanOrEqual(o.d) }
func (p Price) GreaterThan(o Price) bool        { return p.d.GreaterThan(o.d) }
func (p Price) GreaterThanOrEqual(o Price) bool { return p.d.GreaterThanOrEqual(o.d) }

// Mid returns the midpoint of two prices.
func Mid(a, b Price) Price {
	return Price{a.d.Add(b.d).Div(decimal.NewFromInt(2))}
}

func (p Price) String() string { return p.d.String() }
