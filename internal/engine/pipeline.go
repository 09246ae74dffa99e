package engine

import (
	"sort"

	"fenrir/internal/book"
	"fenrir/internal/decimalx"
	"fenrir/internal/eventlog"
	"fenrir/internal/funding"
	"fenrir/internal/liquidation"
	"fenrir/internal/market"
)

// LiquidatorAccountID is the well-known sink for the liquidator's cut of a
// liquidation penalty (spec.md §4.6 step (2): "split 50/50 to liquidator
// (if present) and insurance fund"). spec.md's data model has no separate
// liquidator-bot entity to route this to; crediting a single reserved
// account keeps the split's bookkeeping visible and the money conserved,
// rather than quietly folding the liquidator's half into the insurance
// fund it is explicitly split from.
const LiquidatorAccountID decimalx.AccountId = "liquidator-bot"

func (e *Engine) applyOracleTick(cmd Command) error {
	m, ok := e.Markets[cmd.OracleMarketID]
	if !ok {
		return ErrMarketNotFound
	}
	e.LastKnownTime = cmd.Now

	tripped, dropMagnitude := m.ApplyOracleTick(cmd.IndexPrice, cmd.Now)
	e.Log.Append(eventlog.MarkPriceUpdated, cmd.Now, eventlog.MarkPriceUpdatedPayload{
		MarketID:   m.ID,
		IndexPrice: m.Mark.IndexPrice,
		MarkPrice:  m.Mark.MarkPrice,
		Premium:    m.Mark.SmoothedPremium,
	})
	if tripped {
		e.Log.Append(eventlog.CircuitBreakerTripped, cmd.Now, eventlog.CircuitBreakerTrippedPayload{
			MarketID:  m.ID,
			DropRate:  dropMagnitude,
			CooloffMs: m.Params.Risk.CircuitCooloffMs,
		})
	}

	e.runPipeline(cmd.OracleMarketID, cmd.Now)
	return nil
}

// applyTick drives the funding cadence and conditional re-evaluation across
// every market without a fresh oracle reading (spec.md §6 Tick(now_ms)).
// Markets are visited in sorted order so the event log this produces is
// identical across runs regardless of Go's randomized map iteration
// (spec.md §5 determinism).
func (e *Engine) applyTick(cmd Command) error {
	e.LastKnownTime = cmd.Now
	for _, id := range e.sortedMarketIDs() {
		e.runPipeline(id, cmd.Now)
	}
	return nil
}

func (e *Engine) applyFundingSettlement(marketID decimalx.MarketId, now decimalx.Timestamp) error {
	m, ok := e.Markets[marketID]
	if !ok {
		return ErrMarketNotFound
	}
	e.LastKnownTime = now
	e.settleFunding(m, now)
	return nil
}

// runPipeline is the post-command sequence spec.md §4.9 names: settle
// funding pro-rated over whatever time has elapsed since the last
// settlement (any nonzero elapsed time settles; there is no 8h gate),
// evaluate conditional triggers against the
// current mark, then sweep liquidations — run after the triggering
// command's own matching/pricing has already committed, never re-entrantly
// mid-fill (spec.md §4.6 Safety).
func (e *Engine) runPipeline(marketID decimalx.MarketId, now decimalx.Timestamp) {
	m, ok := e.Markets[marketID]
	if !ok {
		return
	}
	e.settleFunding(m, now)
	e.evaluateConditionals(m, now)
	e.sweepLiquidations(m, now)
}

// settleFunding pro-rates the market's funding index forward to now and
// applies the resulting accrual to every open position in the market, in
// sorted account order for determinism. Each position's accrual is rounded
// half-even exactly once (funding.Accrued); whatever doesn't net to zero
// across every position — which spec.md promises should only ever be a
// rounding residual, since open_interest_long always equals
// open_interest_short — is booked to the insurance fund (spec.md §4.5).
//
// Funding is settled into the position's own Collateral, not the account's
// shared FreeBalance: isolated margin means a position's health has to be
// judged from its own collateral, and IsLiquidatable/Equity (internal/
// position, internal/liquidation) only ever look at Collateral plus
// unrealized PnL. Crediting FreeBalance instead would let funding drain an
// account without ever being reflected in the equity check that is
// supposed to catch it — a position pinned at a flat mark but a
// persistently nonzero funding rate would never come up for liquidation.
// acct.ReservedCollateral is adjusted by the same delta so it keeps
// tracking the true sum of reserved collateral across the account's
// positions; the cash itself never crosses into or out of FreeBalance
// until the position actually closes (settleOneSide/sweepLiquidations).
func (e *Engine) settleFunding(m *market.State, now decimalx.Timestamp) {
	effectiveRate := m.SettleFunding(now)
	if effectiveRate.IsZero() {
		return
	}

	residualSum := decimalx.ZeroQuote()
	for _, accountID := range e.sortedAccountIDs() {
		acct := e.Accounts[accountID]
		p, ok := acct.Position(m.ID)
		if !ok {
			continue
		}
		accrued := funding.Accrued(p.Size, m.Mark.MarkPrice, m.Funding.FundingIndex, p.LastFundingIndex)
		p.LastFundingIndex = m.Funding.FundingIndex
		p.Collateral = p.Collateral.Sub(accrued)
		acct.ReservedCollateral = acct.ReservedCollateral.Sub(accrued)
		residualSum = residualSum.Add(accrued)
	}

	e.Log.Append(eventlog.FundingSettled, now, eventlog.FundingSettledPayload{
		MarketID:      m.ID,
		EffectiveRate: effectiveRate,
		NewIndex:      m.Funding.FundingIndex,
		Residual:      residualSum,
	})

	if !residualSum.IsZero() {
		e.InsuranceFund = e.InsuranceFund.Add(residualSum)
		e.Log.Append(eventlog.InsurancePaid, now, eventlog.InsurancePaidPayload{
			MarketID: m.ID,
			Amount:   residualSum,
			NewFund:  e.InsuranceFund,
			Reason:   "funding rounding residual",
		})
	}
}

// evaluateConditionals converts every conditional order whose trigger
// condition is now met into a market order and submits it through the
// normal admission path (spec.md §4.8). Submitting re-enters applyPlaceOrder
// within the same command epoch rather than starting a new one, so every
// event a trigger produces is still part of the originating command's
// generation (spec.md §5 ordering guarantee); the recursion this causes
// through runPipeline terminates because the conditional book only shrinks
// (triggers are one-shot, spec.md §9 Open Question (c)) and a second
// funding settlement in the same instant is a no-op (elapsed time is zero).
func (e *Engine) evaluateConditionals(m *market.State, now decimalx.Timestamp) {
	triggered := m.Conditionals.Evaluate(m.Mark.MarkPrice)
	for _, o := range triggered {
		leverage := decimalx.NewLeverageInt(1)
		if acct, ok := e.account(o.AccountID); ok {
			if p, ok := acct.Position(o.MarketID); ok {
				leverage = p.Leverage
			}
		}

		spec := OrderSpec{
			ID:        decimalx.NewOrderId(),
			AccountID: o.AccountID,
			MarketID:  o.MarketID,
			Side:      o.Side,
			Kind:      book.Market,
			Size:      o.Size,
			Leverage:  leverage,
			CreatedAt: now,
		}
		_ = e.applyPlaceOrder(Command{Kind: CmdPlaceOrder, Order: spec})
	}
}

// sweepLiquidations closes every under-margined position in m at mark
// (spec.md §4.6), in sorted account order for determinism. A position's
// entire posted collateral is released from the account's reserved pool and
// redistributed: the penalty splits between LiquidatorAccountID and the
// insurance fund, any residual equity returns to the trader, and any bad
// debt is drawn from the insurance fund — which can in turn trigger ADL if
// that draw takes the fund negative.
func (e *Engine) sweepLiquidations(m *market.State, now decimalx.Timestamp) {
	liqParams := liquidation.Params{
		PenaltyRate:   m.Params.Liquidation.PenaltyRate,
		LiquidatorCut: m.Params.Liquidation.LiquidatorCut,
	}

	for _, accountID := range e.sortedAccountIDs() {
		acct := e.Accounts[accountID]
		p, ok := acct.Position(m.ID)
		if !ok {
			continue
		}

		pendingFunding := funding.Accrued(p.Size, m.Mark.MarkPrice, m.Funding.FundingIndex, p.LastFundingIndex)
		if !liquidation.IsLiquidatable(p, m.Mark.MarkPrice, pendingFunding) {
			continue
		}

		before := p.Size
		closedSide := p.Size.Side()
		result := liquidation.Liquidate(p, m.Mark.MarkPrice, liqParams)

		acct.ReservedCollateral = acct.ReservedCollateral.Sub(p.Collateral)
		if result.ReturnedToAccount.IsPositive() {
			acct.FreeBalance = acct.FreeBalance.Add(result.ReturnedToAccount)
		}
		acct.ClosePosition(m.ID)
		adjustOI(m, before, decimalx.ZeroSignedSize())

		liquidatorAcct := e.getOrCreateAccount(LiquidatorAccountID)
		liquidatorAcct.FreeBalance = liquidatorAcct.FreeBalance.Add(result.LiquidatorCut)
		e.InsuranceFund = e.InsuranceFund.Add(result.InsuranceCut)

		e.Log.Append(eventlog.Liquidated, now, eventlog.LiquidatedPayload{
			AccountID:         accountID,
			MarketID:          m.ID,
			Size:              before,
			MarkPrice:         m.Mark.MarkPrice,
			Penalty:           result.Penalty,
			LiquidatorCut:     result.LiquidatorCut,
			InsuranceCut:      result.InsuranceCut,
			BadDebt:           result.BadDebt,
			ReturnedToAccount: result.ReturnedToAccount,
		})

		if !result.BadDebt.IsPositive() {
			continue
		}

		e.InsuranceFund = e.InsuranceFund.Sub(result.BadDebt)
		e.Log.Append(eventlog.InsurancePaid, now, eventlog.InsurancePaidPayload{
			MarketID: m.ID,
			Amount:   result.BadDebt,
			NewFund:  e.InsuranceFund,
			Reason:   "bad debt absorption",
		})

		if e.InsuranceFund.IsNegative() {
			e.runADL(m, closedSide.Opposite(), e.InsuranceFund.Neg(), now)
		}
	}
}

// runADL ranks every open position on side with positive unrealized PnL
// (spec.md §4.6 ADL, §9 Open Question (b) tie-break) and reduces them
// pro-rata until shortfall is covered. Each step's realized PnL is diverted
// to the insurance fund instead of the trader's account — "their realized
// PnL absorbs the loss" — while the untouched portion of their collateral
// is released normally if the reduction fully closes them.
func (e *Engine) runADL(m *market.State, side decimalx.Side, shortfall decimalx.Quote, now decimalx.Timestamp) {
	if !shortfall.IsPositive() {
		return
	}

	var candidates []liquidation.ADLCandidate
	before := make(map[decimalx.AccountId]decimalx.SignedSize)

	for _, accountID := range e.sortedAccountIDs() {
		acct := e.Accounts[accountID]
		p, ok := acct.Position(m.ID)
		if !ok || p.Size.Side() != side {
			continue
		}
		upnl := p.UnrealizedPnL(m.Mark.MarkPrice)
		if !upnl.IsPositive() {
			continue
		}
		ratio := decimalx.NewRatio(upnl.Decimal().Div(p.Collateral.Decimal()))
		candidates = append(candidates, liquidation.ADLCandidate{
			Position:           p,
			AccountID:          accountID,
			UnrealizedPnLRatio: ratio,
		})
		before[accountID] = p.Size
	}
	if len(candidates) == 0 {
		return
	}

	ranked := liquidation.RankForADL(candidates)
	steps := liquidation.RunADL(ranked, shortfall, m.Mark.MarkPrice)

	for _, step := range steps {
		acct, ok := e.account(step.AccountID)
		if !ok {
			continue
		}
		p, ok := acct.Position(m.ID)
		if !ok {
			continue
		}

		adjustOI(m, before[step.AccountID], p.Size)
		e.InsuranceFund = e.InsuranceFund.Add(step.RealizedPnL)

		if p.Size.IsZero() {
			acct.ReleaseMargin(p.Collateral)
			acct.ClosePosition(m.ID)
		}

		e.Log.Append(eventlog.AutoDeleveraged, now, eventlog.AutoDeleveragedPayload{
			AccountID:   step.AccountID,
			MarketID:    m.ID,
			ReducedBy:   step.ReducedBy,
			RealizedPnL: step.RealizedPnL,
		})
	}
}

// sortedAccountIDs and sortedMarketIDs give every sweep over e.Accounts and
// e.Markets a fixed iteration order; ranging over a Go map directly would
// make the event log non-deterministic across runs of the identical command
// sequence, which spec.md §5/§8 requires to be byte-identical.
func (e *Engine) sortedAccountIDs() []decimalx.AccountId {
	ids := make([]decimalx.AccountId, 0, len(e.Accounts))
	for id := range e.Accounts {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func (e *Engine) sortedMarketIDs() []decimalx.MarketId {
	ids := make([]decimalx.MarketId, 0, len(e.Markets))
	for id := range e.Markets {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
