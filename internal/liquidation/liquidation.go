// Package liquidation implements the Liquidation Engine of spec.md §4.6:
// under-margin detection, close-at-mark liquidation with a penalty split
// between liquidator and insurance fund, bad-debt absorption, and the ADL
// cascade.
package liquidation

import (
	"sort"

	"fenrir/internal/decimalx"
	"fenrir/internal/margin"
	"fenrir/internal/position"
)

// Params configures the engine; values come from spec.md §6.
type Params struct {
	PenaltyRate  decimalx.Ratio // notional * PenaltyRate, default 0.01
	LiquidatorCut decimalx.Ratio // default 0.5 of the penalty
}

// DefaultParams matches spec.md §6.
func DefaultParams() Params {
	return Params{
		PenaltyRate:   decimalx.RatioFromFloat(0.01),
		LiquidatorCut: decimalx.RatioFromFloat(0.5),
	}
}

// IsLiquidatable reports whether a position's equity has fallen below its
// maintenance margin (spec.md §4.6). pendingFunding is the not-yet-settled
// accrual since the position's last funding snapshot.
func IsLiquidatable(p *position.Position, mark decimalx.Price, pendingFunding decimalx.Quote) bool {
	equity := p.Equity(mark, pendingFunding)
	notional := p.Notional(p.EntryPrice)
	initialMargin := margin.InitialMargin(notional, p.Leverage)
	mm := margin.MaintenanceMargin(initialMargin)
	return equity.LessThan(mm)
}

// Result reports the full accounting consequence of closing one position
// at mark, per spec.md §4.6 steps (1)-(4).
type Result struct {
	ClosedSize     decimalx.SignedSize
	Penalty        decimalx.Quote
	LiquidatorCut  decimalx.Quote
	InsuranceCut   decimalx.Quote
	// ReturnedToAccount is the residual collateral handed back if
	// liquidation leaves the account solvent (step 3).
	ReturnedToAccount decimalx.Quote
	// BadDebt is the shortfall the insurance fund must cover if residual
	// equity is negative (step 4); zero if the account stayed solvent.
	BadDebt decimalx.Quote
}

// Liquidate closes a position entirely at mark_price against the
// insurance fund, with no book impact (spec.md §4.6 step (1), the
// close-at-mark default this engine implements — see DESIGN.md for the
// book-walk alternative this repo does not build).
//
// Liquidate takes no pending-funding input: it reads p.Collateral as it
// stands, so any not-yet-settled funding accrual is not reflected in
// Result unless it was applied to p.Collateral before the call.
func Liquidate(p *position.Position, mark decimalx.Price, params Params) Result {
	notional := p.Size.Abs().Mul(mark)
	penalty := notional.MulRatio(params.PenaltyRate)

	// Closing realizes the position's unrealized PnL into its collateral
	// before the penalty is assessed, so a position liquidated deep
	// underwater (scenario 6) can produce bad debt even when its posted
	// collateral alone would have covered the penalty.
	equityAtClose := p.Collateral.Add(p.UnrealizedPnL(mark))
	residual := equityAtClose.Sub(penalty)

	result := Result{
		ClosedSize: p.Size,
		Penalty:    penalty,
	}

	if residual.IsNegative() {
		result.BadDebt = residual.Neg()
		// equityAtClose cannot cover the full penalty; the penalty
		// actually collected is capped at what remained, split 50/50 as
		// usual on the collected amount (zero or negative collects zero).
		collected := equityAtClose
		if collected.IsNegative() {
			collected = decimalx.ZeroQuote()
		}
		result.LiquidatorCut = collected.MulRatio(params.LiquidatorCut)
		result.InsuranceCut = collected.Sub(result.LiquidatorCut)
		return result
	}

	result.LiquidatorCut = penalty.MulRatio(params.LiquidatorCut)
	result.InsuranceCut = penalty.Sub(result.LiquidatorCut)
	result.ReturnedToAccount = residual
	return result
}

// ADLCandidate is one opposite-side position considered for
// auto-deleveraging, along with the ranking inputs spec.md §4.6 names.
type ADLCandidate struct {
	Position        *position.Position
	AccountID       decimalx.AccountId
	UnrealizedPnLRatio decimalx.Ratio // unrealized_pnl / collateral
}

// RankForADL orders candidates by (unrealized_pnl_ratio desc, size desc,
// account_id asc). The account_id tie-break is this implementation's
// documented choice for spec.md §9 Open Question (b).
func RankForADL(candidates []ADLCandidate) []ADLCandidate {
	ranked := make([]ADLCandidate, len(candidates))
	copy(ranked, candidates)

	sort.Slice(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		if a.UnrealizedPnLRatio.Cmp(b.UnrealizedPnLRatio) != 0 {
			return a.UnrealizedPnLRatio.GreaterThan(b.UnrealizedPnLRatio)
		}
		sizeCmp := a.Position.Size.Abs().Cmp(b.Position.Size.Abs())
		if sizeCmp != 0 {
			return sizeCmp > 0
		}
		return a.AccountID < b.AccountID
	})
	return ranked
}

// ADLStep is one candidate's pro-rata reduction.
type ADLStep struct {
	AccountID   decimalx.AccountId
	ReducedBy   decimalx.Size
	RealizedPnL decimalx.Quote
}

// RunADL reduces ranked candidates at mark, pro-rata, until shortfall
// (a positive Quote, the insurance fund's deficit) is closed or every
// candidate is fully closed, per spec.md §4.6 "ADL". The fraction of each
// candidate closed is sized against its OWN unrealized PnL, not its
// notional, so that the realized PnL each step hands back to the caller
// (to patch the insurance shortfall — "their realized PnL absorbs the
// loss") sums to shortfall directly rather than to some multiple of it.
func RunADL(ranked []ADLCandidate, shortfall decimalx.Quote, mark decimalx.Price) []ADLStep {
	remaining := shortfall
	var steps []ADLStep

	for _, c := range ranked {
		if !remaining.IsPositive() {
			break
		}
		p := c.Position
		if p.Size.IsZero() {
			continue
		}

		totalPnL := p.UnrealizedPnL(mark)
		if !totalPnL.IsPositive() {
			continue
		}

		reduceBy := p.Size.Abs()
		if totalPnL.GreaterThan(remaining) {
			fraction := remaining.Decimal().Div(totalPnL.Decimal())
			reduceBy = decimalx.NewSize(p.Size.Abs().Decimal().Mul(fraction))
		}

		fillSize := reduceBy.Signed(p.Size.Side().Opposite())
		result := p.ApplyFill(fillSize, mark)

		steps = append(steps, ADLStep{
			AccountID:   c.AccountID,
			ReducedBy:   reduceBy,
			RealizedPnL: result.RealizedPnL,
		})

		remaining = remaining.Sub(result.RealizedPnL)
	}

	return steps
}
