// Package funding implements the cumulative-index Funding Engine of
// spec.md §4.5: per-market funding index advance, pro-rated over elapsed
// time, and per-position settlement against it.
package funding

import (
	"github.com/shopspring/decimal"

	"fenrir/internal/decimalx"
)

// Params configures the engine; values come from spec.md §6.
type Params struct {
	MaxRate      decimalx.Ratio // clamp bound, default 0.01
	BaseInterest decimalx.Ratio // default 0.0001
	PeriodMs     int64          // cadence, default 28_800_000 (8h)
}

// DefaultParams matches spec.md §6.
func DefaultParams() Params {
	return Params{
		MaxRate:      decimalx.RatioFromFloat(0.01),
		BaseInterest: decimalx.RatioFromFloat(0.0001),
		PeriodMs:     28_800_000,
	}
}

// State is the funding-relevant slice of MarketState (spec.md §3).
type State struct {
	FundingIndex    decimalx.Ratio
	LastFundingTime decimalx.Timestamp
}

// AdvanceIndex pro-rates a settlement over the elapsed time since
// state.LastFundingTime and folds it into the cumulative funding index.
// The orchestrator's post-command pipeline invokes this after every order,
// oracle tick, and tick (spec.md §4.9), settling whenever elapsed time is
// nonzero (since
// funding is pro-rated continuously rather than gated strictly to the 8h
// boundary).
func AdvanceIndex(state State, smoothedPremium decimalx.Ratio, now decimalx.Timestamp, params Params) (newState State, effectiveRate decimalx.Ratio) {
	elapsed := now.ElapsedMs(state.LastFundingTime)
	if elapsed <= 0 {
		return state, decimalx.ZeroRatio()
	}

	baseRate := smoothedPremium.Add(params.BaseInterest).Clamp(params.MaxRate.Neg(), params.MaxRate)
	// elapsed/PeriodMs is a live measurement, not a fixed protocol constant,
	// so it must never pass through RatioFromFloat's float64 round-trip
	// (spec.md §1/§9: no floating point in balance-affecting calculations).
	fraction := decimalx.NewRatio(decimal.NewFromInt(elapsed).Div(decimal.NewFromInt(params.PeriodMs)))
	effectiveRate = baseRate.Mul(fraction)

	newState = State{
		FundingIndex:    state.FundingIndex.Add(effectiveRate),
		LastFundingTime: now,
	}
	return newState, effectiveRate
}

// Accrued is the funding owed by (positive) or to (negative) a position
// since its last snapshot: size * mark * (fundingIndex - lastSnapshot).
// The sign of size handles both sides: a long with a positive index delta
// pays, a short with the same delta receives (spec.md §4.5).
func Accrued(size decimalx.SignedSize, mark decimalx.Price, fundingIndex, lastSnapshot decimalx.Ratio) decimalx.Quote {
	delta := fundingIndex.Sub(lastSnapshot)
	return size.Mul(mark).MulRatio(delta).RoundHalfEven()
}
