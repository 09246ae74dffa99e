package decimalx

import "github.com/shopspring/decimal"

// Ratio is a dimensionless exact-decimal fraction: funding rates, premiums,
// margin ratios, and ADL pro-rata fractions all live here. spec.md bounds
// most of these to [-1, 1] or [0, 1]; callers clamp at the point of use
// (Clamp below) rather than at construction, since an un-clamped raw premium
// is a valid intermediate value.
type Ratio struct{ d decimal.Decimal }

func NewRatio(d decimal.Decimal) Ratio { return Ratio{d} }
func ZeroRatio() Ratio                 { return Ratio{decimal.Zero} }
func OneRatio() Ratio                  { return Ratio{decimal.NewFromInt(1)} }

// RatioFromFloat is for fixed protocol constants such as 0.05 or 0.0001
// (spec.md §6 Parameters) which are not derived from any live measurement.
func RatioFromFloat(f float64) Ratio { return Ratio{decimal.NewFromFloat(f)} }

func (r Ratio) Decimal() decimal.Decimal { return r.d }
func (r Ratio) IsZero() bool             { return r.d.IsZero() }
func (r Ratio) IsNegative() bool         { return r.d.IsNegative() }
func (r Ratio) IsPositive() bool         { return r.d.IsPositive() }

func (r Ratio) Add(o Ratio) Ratio { return Ratio{r.d.Add(o.d)} }
func (r Ratio) Sub(o Ratio) Ratio { return Ratio{r.d.Sub(o.d)} }
func (r Ratio) Mul(o Ratio) Ratio { return Ratio{r.d.Mul(o.d)} }
func (r Ratio) Neg() Ratio        { return Ratio{r.d.Neg()} }

// DivLeverage divides a ratio by a leverage multiplier, e.g. 0.5/leverage in
// the liquidation-price formulas.
func (r Ratio) DivLeverage(l Leverage) Ratio { return Ratio{r.d.Div(l.d)} }

func (r Ratio) Cmp(o Ratio) int              { return r.d.Cmp(o.d) }
func (r Ratio) LessThan(o Ratio) bool        { return r.d.LessThan(o.d) }
func (r Ratio) GreaterThan(o Ratio) bool     { return r.d.GreaterThan(o.d) }
func (r Ratio) LessThanOrEqual(o Ratio) bool { return r.d.LessThanOrEqual(o.d) }

// Clamp bounds r to [lo, hi].
func (r Ratio) Clamp(lo, hi Ratio) Ratio {
	if r.d.LessThan(lo.d) {
		return lo
	}
	if r.d.GreaterThan(hi.d) {
		return hi
	}
	return r
}

func (r Ratio) String() string { return r.d.String() }
