// Package market wires the book, mark-price, funding, and open-interest
// state of a single instrument into the MarketState aggregate of spec.md
// §3. The Market exclusively owns its book and mark/funding state
// (spec.md §5 resource ownership).
package market

import (
	"fenrir/internal/book"
	"fenrir/internal/conditional"
	"fenrir/internal/decimalx"
	"fenrir/internal/funding"
	"fenrir/internal/mark"
	"fenrir/internal/risk"
)

// Params bundles every sub-engine's tunables for one market.
type Params struct {
	Mark       mark.Params
	Funding    funding.Params
	Risk       risk.Params
	Liquidation LiquidationParams
}

// LiquidationParams avoids an import cycle (liquidation imports position,
// market would otherwise need to import liquidation just for its Params
// alias); callers pass liquidation.DefaultParams() values through here.
type LiquidationParams struct {
	PenaltyRate   decimalx.Ratio
	LiquidatorCut decimalx.Ratio
}

// DefaultParams matches spec.md §6 across every sub-engine.
func DefaultParams() Params {
	return Params{
		Mark:    mark.DefaultParams(),
		Funding: funding.DefaultParams(),
		Risk:    risk.DefaultParams(),
		Liquidation: LiquidationParams{
			PenaltyRate:   decimalx.RatioFromFloat(0.01),
			LiquidatorCut: decimalx.RatioFromFloat(0.5),
		},
	}
}

// State is one instrument's full live state: its order book, derived
// pricing, funding index, circuit-breaker status, conditional orders, and
// open interest (spec.md §3 MarketState).
type State struct {
	ID     decimalx.MarketId
	Book   *book.Book
	Mark   mark.State
	Funding funding.State
	Circuit risk.CircuitState
	Conditionals *conditional.Book
	Params Params

	OpenInterestLong  decimalx.Size
	OpenInterestShort decimalx.Size
}

// New constructs an empty market in its genesis state.
func New(id decimalx.MarketId, params Params) *State {
	return &State{
		ID:           id,
		Book:         book.New(),
		Conditionals: conditional.NewBook(),
		Params:       params,
	}
}

// bookMid returns a *Price for the mark engine, nil if the book is
// one-sided or empty (spec.md §4.4 "book_mid treated as index").
func (s *State) bookMid() *decimalx.Price {
	bid, bidOk := s.Book.BestBid()
	ask, askOk := s.Book.BestAsk()
	if !bidOk || !askOk {
		return nil
	}
	mid := decimalx.Mid(bid, ask)
	return &mid
}

// ApplyOracleTick recomputes mark price from a fresh index tick and feeds
// the result into the circuit breaker. Returns whether the breaker
// tripped on this tick (caller emits CircuitBreakerTripped) and the
// magnitude observed.
func (s *State) ApplyOracleTick(index decimalx.Price, ts decimalx.Timestamp) (tripped bool, dropMagnitude decimalx.Ratio) {
	s.Mark = mark.OnOracleTick(s.Mark, s.bookMid(), index, ts, s.Params.Mark)
	s.Circuit, tripped, dropMagnitude = risk.ObserveMark(s.Circuit, s.Mark.MarkPrice, ts, s.Params.Risk)
	return tripped, dropMagnitude
}

// Halted reports whether the market currently rejects new orders (spec.md
// §4.7: halted markets accept only cancels and liquidations).
func (s *State) Halted() bool { return s.Circuit.Halted }

// SettleFunding pro-rates the funding index forward to now, returning the
// effective per-period rate applied (zero if no time has elapsed). The
// caller is responsible for walking open positions and applying
// funding.Accrued against the returned index delta.
func (s *State) SettleFunding(now decimalx.Timestamp) decimalx.Ratio {
	newState, effectiveRate := funding.AdvanceIndex(s.Funding, s.Mark.SmoothedPremium, now, s.Params.Funding)
	s.Funding = newState
	return effectiveRate
}

// Open-interest bookkeeping. The orchestrator calls these directly from
// the position transition it just applied (open/increase grow a side,
// reduce/close/flip shrink the old side and may grow the other) rather
// than inferring intent from fill side alone, since a Buy fill can either
// open new long exposure or close existing short exposure.
func (s *State) IncreaseLongOI(amount decimalx.Size)  { s.OpenInterestLong = s.OpenInterestLong.Add(amount) }
func (s *State) DecreaseLongOI(amount decimalx.Size)  { s.OpenInterestLong = s.OpenInterestLong.Sub(amount) }
func (s *State) IncreaseShortOI(amount decimalx.Size) { s.OpenInterestShort = s.OpenInterestShort.Add(amount) }
func (s *State) DecreaseShortOI(amount decimalx.Size) { s.OpenInterestShort = s.OpenInterestShort.Sub(amount) }
