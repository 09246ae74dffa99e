// Package risk implements the Risk Guard of spec.md §4.7: pre-admission
// checks gating order placement, and the circuit breaker that halts a
// market on an extreme mark move.
package risk

import (
	"errors"

	"fenrir/internal/decimalx"
)

// Rejection reasons, enumerated per spec.md §7 (kinds, not type names).
var (
	ErrOraclePriceStale       = errors.New("oracle price stale")
	ErrMarketHalted           = errors.New("market halted")
	ErrPriceDeviationTooLarge = errors.New("order price deviates too far from mark")
	ErrPositionCapExceeded    = errors.New("order exceeds account position cap")
	ErrMarketOICapReached     = errors.New("market open interest cap reached")
	ErrInsufficientMargin     = errors.New("insufficient margin for order")
)

// Params configures the guard; values come from spec.md §6.
type Params struct {
	PriceDeviation    decimalx.Ratio // e.g. 0.10
	CircuitDropRate   decimalx.Ratio // e.g. 0.15
	CircuitWindowMs   int64          // e.g. 60_000
	CircuitCooloffMs  int64
	OracleStalenessMs int64
	MaxPositionNotional decimalx.Quote
	MaxMarketOI         decimalx.Size
}

// DefaultParams matches spec.md §6 (cooloff and staleness are left to the
// deployer; sane defaults given here).
func DefaultParams() Params {
	return Params{
		PriceDeviation:      decimalx.RatioFromFloat(0.10),
		CircuitDropRate:     decimalx.RatioFromFloat(0.15),
		CircuitWindowMs:     60_000,
		CircuitCooloffMs:    300_000,
		OracleStalenessMs:   10_000,
		MaxPositionNotional: decimalx.QuoteFromInt(10_000_000),
		MaxMarketOI:         decimalx.SizeFromInt(1_000),
	}
}

// CircuitState tracks the breaker's halted/armed status for one market.
type CircuitState struct {
	Halted       bool
	HaltedUntil  decimalx.Timestamp
	WindowStart  decimalx.Timestamp
	WindowOpen   decimalx.Price // mark price observed at WindowStart
}

// ObserveMark feeds a new mark price into the breaker's rolling window. If
// the move since WindowStart exceeds CircuitDropRate, the market halts
// until now + CircuitCooloffMs. Returns the updated state and whether this
// call tripped the breaker (for emitting CircuitBreakerTripped).
func ObserveMark(state CircuitState, mark decimalx.Price, now decimalx.Timestamp, params Params) (CircuitState, bool, decimalx.Ratio) {
	if state.Halted && now.Before(state.HaltedUntil) {
		return state, false, decimalx.ZeroRatio()
	}
	if state.Halted && !now.Before(state.HaltedUntil) {
		state.Halted = false
	}

	if state.WindowOpen.IsZero() || now.ElapsedMs(state.WindowStart) > params.CircuitWindowMs {
		state.WindowStart = now
		state.WindowOpen = mark
		return state, false, decimalx.ZeroRatio()
	}

	delta := mark.Sub(state.WindowOpen).Div(state.WindowOpen)
	magnitude := delta
	if magnitude.IsNegative() {
		magnitude = magnitude.Neg()
	}

	if magnitude.GreaterThan(params.CircuitDropRate) {
		state.Halted = true
		state.HaltedUntil = decimalx.Timestamp(int64(now) + params.CircuitCooloffMs)
		return state, true, magnitude
	}

	return state, false, decimalx.ZeroRatio()
}

// AdmissionInput bundles everything the guard needs to evaluate one
// PlaceOrder command; the orchestrator assembles it from MarketState and
// Account.
type AdmissionInput struct {
	Now                decimalx.Timestamp
	LastOracleTime     decimalx.Timestamp
	Halted             bool
	OrderPrice         decimalx.Price // limit price, or mark for a market order
	Mark               decimalx.Price
	ExistingNotional    decimalx.Quote
	IncrementalNotional decimalx.Quote
	MarketOI           decimalx.Size
	IncrementalSize     decimalx.Size
	AvailableMargin    decimalx.Quote
	RequiredMargin     decimalx.Quote
}

// Admit runs every pre-admission check in spec.md §4.7's order: oracle
// freshness; circuit breaker; price deviation; account position cap;
// market OI cap; available margin. The first failing check returns its
// error; no state is mutated by this function.
func Admit(in AdmissionInput, params Params) error {
	if in.Now.ElapsedMs(in.LastOracleTime) > params.OracleStalenessMs {
		return ErrOraclePriceStale
	}
	if in.Halted {
		return ErrMarketHalted
	}

	deviation := in.OrderPrice.Sub(in.Mark).Div(in.Mark)
	if deviation.IsNegative() {
		deviation = deviation.Neg()
	}
	if deviation.GreaterThan(params.PriceDeviation) {
		return ErrPriceDeviationTooLarge
	}

	if in.ExistingNotional.Add(in.IncrementalNotional).GreaterThan(params.MaxPositionNotional) {
		return ErrPositionCapExceeded
	}

	if in.MarketOI.Add(in.IncrementalSize).GreaterThan(params.MaxMarketOI) {
		return ErrMarketOICapReached
	}

	if in.AvailableMargin.LessThan(in.RequiredMargin) {
		return ErrInsufficientMargin
	}

	return nil
}

// AllowsWhileHalted reports whether a command kind may still execute
// against a halted market (spec.md §4.7: "Halted markets accept only
// cancels and liquidations").
func AllowsWhileHalted(isCancel, isLiquidation bool) bool {
	return isCancel || isLiquidation
}
