package decimalx

import "github.com/shopspring/decimal"

// Side is Buy or Sell; it never appears bare in value math, only as the
// carrier that turns a Size into a SignedSize.
type Side int

const (
	Buy Side = iota
	Sell
)

func (s Side) String() string {
	if s == Buy {
		return "buy"
	}
	return "sell"
}

// Sign returns +1 for Buy, -1 for Sell.
func (s Side) Sign() int64 {
	if s == Buy {
		return 1
	}
	return -1
}

// Opposite flips Buy<->Sell.
func (s Side) Opposite() Side {
	if s == Buy {
		return Sell
	}
	return Buy
}

// Size is a non-negative order quantity, e.g. the amount an Order still has
// left to fill. It carries no side; combine with a Side to get a SignedSize.
type Size struct{ d decimal.Decimal }

func NewSize(d decimal.Decimal) Size { return Size{d} }
func SizeFromInt(i int64) Size       { return Size{decimal.NewFromInt(i)} }
func ZeroSize() Size                 { return Size{decimal.Zero} }

func SizeFromString(s string) (Size, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Size{}, err
	}
	return Size{d}, nil
}

func (s Size) Decimal() decimal.Decimal { return s.d }
func (s Size) IsZero() bool             { return s.d.IsZero() }
func (s Size) IsPositive() bool         { return s.d.IsPositive() }

func (s Size) Add(o Size) Size { return Size{s.d.Add(o.d)} }
func (s Size) Sub(o Size) Size { return Size{s.d.Sub(o.d)} }

func (s Size) Cmp(o Size) int              { return s.d.Cmp(o.d) }
func (s Size) LessThan(o Size) bool        { return s.d.LessThan(o.d) }
func (s Size) GreaterThan(o Size) bool     { return s.d.GreaterThan(o.d) }
func (s Size) GreaterOrEqual(o Size) bool  { return s.d.GreaterThanOrEqual(o.d) }

// MinSize returns the smaller of two sizes; used for fill-quantity matching.
func MinSize(a, b Size) Size {
	if a.d.LessThan(b.d) {
		return a
	}
	return b
}

// Mul returns the (unsigned) notional of this quantity at a price.
func (s Size) Mul(p Price) Quote { return Quote{s.d.Mul(p.d)} }

// Signed attaches a side, producing the signed quantity Position math uses.
func (s Size) Signed(side Side) SignedSize {
	if side == Sell {
		return SignedSize{s.d.Neg()}
	}
	return SignedSize{s.d}
}

func (s Size) String() string { return s.d.String() }

// SignedSize is an exact-decimal quantity whose sign encodes side: positive
// is long, negative is short, zero means flat (and, per spec.md, a flat
// position record must not exist).
type SignedSize struct{ d decimal.Decimal }

func NewSignedSize(d decimal.Decimal) SignedSize { return SignedSize{d} }
func ZeroSignedSize() SignedSize                 { return SignedSize{decimal.Zero} }

func (s SignedSize) Decimal() decimal.Decimal { return s.d }
func (s SignedSize) IsZero() bool             { return s.d.IsZero() }
func (s SignedSize) IsLong() bool             { return s.d.IsPositive() }
func (s SignedSize) IsShort() bool            { return s.d.IsNegative() }

// Side reports which side this signed size represents (only meaningful when
// non-zero).
func (s SignedSize) Side() Side {
	if s.d.IsNegative() {
		return Sell
	}
	return Buy
}

func (s SignedSize) Abs() Size { return Size{s.d.Abs()} }

func (s SignedSize) Add(o SignedSize) SignedSize { return SignedSize{s.d.Add(o.d)} }
func (s SignedSize) Sub(o SignedSize) SignedSize { return SignedSize{s.d.Sub(o.d)} }
func (s SignedSize) Neg() SignedSize             { return SignedSize{s.d.Neg()} }

func (s SignedSize) Cmp(o SignedSize) int { return s.d.Cmp(o.d) }
func (s SignedSize) Equal(o SignedSize) bool { return s.d.Equal(o.d) }

// Mul returns the signed notional (PnL-style) of holding this size at a
// given delta price, e.g. size * (mark - entry) for unrealized PnL.
func (s SignedSize) Mul(p Price) Quote { return Quote{s.d.Mul(p.d)} }

// SameSign reports whether two signed sizes are on the same side (both long
// or both short); used to distinguish Position increase from reduce/flip.
func (s SignedSize) SameSign(o SignedSize) bool {
	return s.d.Sign() == o.d.Sign()
}

func (s SignedSize) String() string { return s.d.String() }
