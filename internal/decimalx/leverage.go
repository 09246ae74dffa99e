package decimalx

import "github.com/shopspring/decimal"

// Leverage is a positive multiplier requested for, or capped onto, a
// position. It is kept as exact decimal (rather than int) so margin math
// (notional / leverage) never round-trips through float64.
type Leverage struct{ d decimal.Decimal }

func NewLeverageInt(i int64) Leverage { return Leverage{decimal.NewFromInt(i)} }
func NewLeverage(d decimal.Decimal) Leverage { return Leverage{d} }

func (l Leverage) Decimal() decimal.Decimal { return l.d }
func (l Leverage) IsPositive() bool         { return l.d.IsPositive() }

func (l Leverage) Cmp(o Leverage) int              { return l.d.Cmp(o.d) }
func (l Leverage) GreaterThan(o Leverage) bool      { return l.d.GreaterThan(o.d) }
func (l Leverage) LessThanOrEqual(o Leverage) bool  { return l.d.LessThanOrEqual(o.d) }

func (l Leverage) String() string { return l.d.String() }
