package decimalx

import "github.com/shopspring/decimal"

// Quote is a money amount. It may be negative (debt, realized loss).
type Quote struct{ d decimal.Decimal }

func NewQuote(d decimal.Decimal) Quote { return Quote{d} }
func QuoteFromInt(i int64) Quote       { return Quote{decimal.NewFromInt(i)} }
func ZeroQuote() Quote                 { return Quote{decimal.Zero} }

func QuoteFromString(s string) (Quote, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Quote{}, err
	}
	return Quote{d}, nil
}

func (q Quote) Decimal() decimal.Decimal { return q.d }
func (q Quote) IsZero() bool             { return q.d.IsZero() }
func (q Quote) IsNegative() bool         { return q.d.IsNegative() }
func (q Quote) IsPositive() bool         { return q.d.IsPositive() }

func (q Quote) Add(o Quote) Quote { return Quote{q.d.Add(o.d)} }
func (q Quote) Sub(o Quote) Quote { return Quote{q.d.Sub(o.d)} }
func (q Quote) Neg() Quote        { return Quote{q.d.Neg()} }

// MulRatio scales a quote by a dimensionless ratio, e.g. a penalty rate.
func (q Quote) MulRatio(r Ratio) Quote { return Quote{q.d.Mul(r.d)} }

// DivLeverage returns the notional divided by leverage (initial margin).
func (q Quote) DivLeverage(l Leverage) Quote { return Quote{q.d.Div(l.d)} }

// DivInt splits a quote into an even divisor, e.g. a 50/50 penalty split.
func (q Quote) DivInt(n int64) Quote { return Quote{q.d.Div(decimal.NewFromInt(n))} }

func (q Quote) Cmp(o Quote) int                 { return q.d.Cmp(o.d) }
func (q Quote) Equal(o Quote) bool              { return q.d.Equal(o.d) }
func (q Quote) LessThan(o Quote) bool           { return q.d.LessThan(o.d) }
func (q Quote) LessThanOrEqual(o Quote) bool    { return q.d.LessThanOrEqual(o.d) }
func (q Quote) GreaterThan(o Quote) bool        { return q.d.GreaterThan(o.d) }
func (q Quote) GreaterThanOrEqual(o Quote) bool { return q.d.GreaterThanOrEqual(o.d) }

// RoundHalfEven applies the bankers' rounding spec.md mandates for
// once-per-position funding residuals.
func (q Quote) RoundHalfEven() Quote { return Quote{q.d.RoundBank(RoundPlaces)} }

func (q Quote) String() string { return q.d.String() }
