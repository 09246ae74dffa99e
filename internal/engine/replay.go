package engine

import (
	"fenrir/internal/decimalx"
	"fenrir/internal/eventlog"
	"fenrir/internal/funding"
	"fenrir/internal/market"
	"fenrir/internal/position"
)

// Replay reconstructs an Engine's ledger state purely by folding events
// forward from genesis (spec.md §9 "pure-functional apply event to state";
// SPEC_FULL.md §4 names it ApplyEvent(state, event), folded by Replay).
// It never re-runs admission, matching, or risk checks — only the balance
// and position bookkeeping those checks already committed, which is what
// replay-based testing asserts against: that folding the log reproduces the
// exact ledger a live Apply(cmd) run produced.
//
// Market listing is deployment-time configuration, never itself a command
// or event (see AddMarket), so replay cannot discover it from the log; the
// caller supplies every market's Params up front, exactly as cmd/simulate
// does via AddMarket before driving commands live.
//
// Scope: the reconstructed Engine's Accounts, Positions, InsuranceFund, and
// each Market's Mark/Funding/OpenInterest/Circuit.Halted are exact — every
// one of them is either an absolute snapshot carried by some event payload,
// or a deterministic function of values that are. Two pieces of live state
// are deliberately NOT reconstructed, since the log was never designed to
// carry them and no replay-based test needs them: the resting order book
// (spec.md's MarketState.book — transient execution-engine state, never
// persisted as its own event; OrderPlaced/OrderMatched exist to reconstruct
// the ledger consequences of a fill, not the book's remaining resting
// orders) and the circuit breaker's rolling-window baseline (Circuit.
// WindowStart/WindowOpen — needed only to decide a future trip, not to
// report the current Halted status, which IS reconstructed exactly).
func Replay(markets map[decimalx.MarketId]market.Params, events []eventlog.Event) *Engine {
	e := New()
	for id, params := range markets {
		e.AddMarket(id, params)
	}
	for _, ev := range events {
		ApplyEvent(e, ev)
	}
	return e
}

// ApplyEvent folds one event onto e in place. Folding is the idiomatic Go
// shape for this: e is the owned, mutable aggregate Replay just built, not
// a value some other caller still holds a reference to, so there is nothing
// for in-place mutation to corrupt. What makes this "pure-functional" in
// the sense spec.md means is that it is a function of (state, event) alone
// — no wall clock, no I/O, no hidden dependency on anything Replay did not
// already pass in — not that it avoids mutating its own receiver.
func ApplyEvent(e *Engine, ev eventlog.Event) {
	e.LastKnownTime = ev.Timestamp

	switch ev.Kind {
	case eventlog.Deposited:
		p := ev.Payload.(eventlog.DepositedPayload)
		e.getOrCreateAccount(p.AccountID).FreeBalance = p.NewFree

	case eventlog.Withdrawn:
		p := ev.Payload.(eventlog.WithdrawnPayload)
		e.getOrCreateAccount(p.AccountID).FreeBalance = p.NewFree

	case eventlog.OrderPlaced:
		p := ev.Payload.(eventlog.OrderPlacedPayload)
		if !p.ReservedMargin.IsZero() {
			acct := e.getOrCreateAccount(p.AccountID)
			acct.FreeBalance = acct.FreeBalance.Sub(p.ReservedMargin)
			acct.ReservedCollateral = acct.ReservedCollateral.Add(p.ReservedMargin)
		}

	case eventlog.OrderMatched, eventlog.OrderRejected:
		// No ledger effect of their own: OrderMatched's balance/position
		// consequences arrive as the Position* events beside it, and a
		// rejection never reserved anything to begin with.

	case eventlog.PositionOpened:
		p := ev.Payload.(eventlog.PositionOpenedPayload)
		acct := e.getOrCreateAccount(p.AccountID)
		m := e.Markets[p.MarketID]
		acct.SetPosition(p.MarketID, position.Open(p.AccountID, p.MarketID, p.Size, p.EntryPrice, p.Collateral, p.Leverage, m.Funding.FundingIndex, ev.Timestamp))
		adjustOI(m, decimalx.ZeroSignedSize(), p.Size)

	case eventlog.PositionIncreased:
		p := ev.Payload.(eventlog.PositionIncreasedPayload)
		if pos, ok := e.getOrCreateAccount(p.AccountID).Position(p.MarketID); ok {
			adjustOI(e.Markets[p.MarketID], pos.Size, p.NewSize)
			pos.Size = p.NewSize
			pos.EntryPrice = p.NewEntry
		}

	case eventlog.PositionReduced:
		p := ev.Payload.(eventlog.PositionReducedPayload)
		acct := e.getOrCreateAccount(p.AccountID)
		if pos, ok := acct.Position(p.MarketID); ok {
			adjustOI(e.Markets[p.MarketID], pos.Size, p.NewSize)
			pos.Size = p.NewSize
		}
		acct.CreditRealizedPnL(p.RealizedPnL)

	case eventlog.PositionClosed:
		p := ev.Payload.(eventlog.PositionClosedPayload)
		acct := e.getOrCreateAccount(p.AccountID)
		if pos, ok := acct.Position(p.MarketID); ok {
			adjustOI(e.Markets[p.MarketID], pos.Size, decimalx.ZeroSignedSize())
			acct.ReleaseMargin(pos.Collateral)
		}
		acct.CreditRealizedPnL(p.RealizedPnL)
		acct.ClosePosition(p.MarketID)

	case eventlog.FundingSettled:
		p := ev.Payload.(eventlog.FundingSettledPayload)
		m := e.Markets[p.MarketID]
		for _, accountID := range e.sortedAccountIDs() {
			acct := e.Accounts[accountID]
			pos, ok := acct.Position(p.MarketID)
			if !ok {
				continue
			}
			accrued := funding.Accrued(pos.Size, m.Mark.MarkPrice, p.NewIndex, pos.LastFundingIndex)
			pos.LastFundingIndex = p.NewIndex
			pos.Collateral = pos.Collateral.Sub(accrued)
			acct.ReservedCollateral = acct.ReservedCollateral.Sub(accrued)
		}
		m.Funding.FundingIndex = p.NewIndex
		m.Funding.LastFundingTime = ev.Timestamp

	case eventlog.MarkPriceUpdated:
		p := ev.Payload.(eventlog.MarkPriceUpdatedPayload)
		m := e.Markets[p.MarketID]
		m.Mark.IndexPrice = p.IndexPrice
		m.Mark.MarkPrice = p.MarkPrice
		m.Mark.SmoothedPremium = p.Premium
		m.Mark.LastOracleTime = ev.Timestamp
		// Mirrors risk.ObserveMark's lazy recovery clause: nothing re-trips
		// the breaker here (a later CircuitBreakerTripped event does that),
		// this only clears a Halted flag whose cooloff has since elapsed.
		if m.Circuit.Halted && !ev.Timestamp.Before(m.Circuit.HaltedUntil) {
			m.Circuit.Halted = false
		}

	case eventlog.Liquidated:
		p := ev.Payload.(eventlog.LiquidatedPayload)
		acct := e.getOrCreateAccount(p.AccountID)
		if pos, ok := acct.Position(p.MarketID); ok {
			acct.ReservedCollateral = acct.ReservedCollateral.Sub(pos.Collateral)
		}
		if p.ReturnedToAccount.IsPositive() {
			acct.FreeBalance = acct.FreeBalance.Add(p.ReturnedToAccount)
		}
		acct.ClosePosition(p.MarketID)
		adjustOI(e.Markets[p.MarketID], p.Size, decimalx.ZeroSignedSize())

		liquidatorAcct := e.getOrCreateAccount(LiquidatorAccountID)
		liquidatorAcct.FreeBalance = liquidatorAcct.FreeBalance.Add(p.LiquidatorCut)
		e.InsuranceFund = e.InsuranceFund.Add(p.InsuranceCut)

	case eventlog.InsurancePaid:
		p := ev.Payload.(eventlog.InsurancePaidPayload)
		e.InsuranceFund = p.NewFund

	case eventlog.AutoDeleveraged:
		p := ev.Payload.(eventlog.AutoDeleveragedPayload)
		acct := e.getOrCreateAccount(p.AccountID)
		m := e.Markets[p.MarketID]
		e.InsuranceFund = e.InsuranceFund.Add(p.RealizedPnL)
		if pos, ok := acct.Position(p.MarketID); ok {
			before := pos.Size
			fillSize := p.ReducedBy.Signed(before.Side().Opposite())
			pos.Size = pos.Size.Add(fillSize)
			adjustOI(m, before, pos.Size)
			if pos.Size.IsZero() {
				acct.ReleaseMargin(pos.Collateral)
				acct.ClosePosition(p.MarketID)
			}
		}

	case eventlog.CircuitBreakerTripped:
		p := ev.Payload.(eventlog.CircuitBreakerTrippedPayload)
		m := e.Markets[p.MarketID]
		m.Circuit.Halted = true
		m.Circuit.HaltedUntil = decimalx.Timestamp(int64(ev.Timestamp) + p.CooloffMs)
	}
}
