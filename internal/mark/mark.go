// Package mark implements the Mark-Price Engine of spec.md §4.4: a clamped,
// EMA-smoothed premium over the oracle index price.
package mark

import "fenrir/internal/decimalx"

// Params configures the engine; values come from spec.md §6.
type Params struct {
	MaxPremium decimalx.Ratio // clamp bound, default 0.05
	EMAAlpha   decimalx.Ratio // smoothing factor, default 0.1
}

// DefaultParams matches spec.md §6.
func DefaultParams() Params {
	return Params{
		MaxPremium: decimalx.RatioFromFloat(0.05),
		EMAAlpha:   decimalx.RatioFromFloat(0.1),
	}
}

// State is the mark-price-relevant slice of MarketState (spec.md §3).
type State struct {
	IndexPrice      decimalx.Price
	SmoothedPremium decimalx.Ratio
	MarkPrice       decimalx.Price
	LastOracleTime  decimalx.Timestamp
}

// OnOracleTick recomputes smoothed premium and mark price from a fresh
// oracle index tick and the book's current mid (nil if one-sided, per
// spec.md: "If the book is one-sided, book_mid is treated as index").
func OnOracleTick(prev State, bookMid *decimalx.Price, index decimalx.Price, ts decimalx.Timestamp, params Params) State {
	var rawPremium decimalx.Ratio
	if bookMid != nil {
		diff := bookMid.Sub(index).Div(index)
		rawPremium = diff.Clamp(params.MaxPremium.Neg(), params.MaxPremium)
	}

	// smoothed <- alpha*raw + (1-alpha)*smoothed
	smoothed := params.EMAAlpha.Mul(rawPremium).Add(
		decimalx.OneRatio().Sub(params.EMAAlpha).Mul(prev.SmoothedPremium),
	)

	mark := index.Mul(decimalx.OneRatio().Add(smoothed))

	return State{
		IndexPrice:      index,
		SmoothedPremium: smoothed,
		MarkPrice:       mark,
		LastOracleTime:  ts,
	}
}

// IsStale reports whether ts has drifted beyond thresholdMs since the last
// oracle tick recorded in state; used by the Risk Guard (spec.md §4.7).
func IsStale(state State, ts decimalx.Timestamp, thresholdMs int64) bool {
	return ts.ElapsedMs(state.LastOracleTime) > thresholdMs
}
