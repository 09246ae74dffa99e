package engine

import (
	"fenrir/internal/book"
	"fenrir/internal/decimalx"
	"fenrir/internal/eventlog"
	"fenrir/internal/margin"
	"fenrir/internal/market"
	"fenrir/internal/position"
	"fenrir/internal/risk"
)

// admissionPrice picks the price the Risk Guard checks for deviation: a
// Limit order's own limit, or the current mark for a Market order (which
// is marketable by definition and so never itself deviates).
func admissionPrice(spec OrderSpec, mark decimalx.Price) decimalx.Price {
	if spec.Kind == book.Limit {
		return spec.LimitPrice
	}
	return mark
}

func (e *Engine) applyPlaceOrder(cmd Command) error {
	spec := cmd.Order
	m, ok := e.Markets[spec.MarketID]
	if !ok {
		return ErrMarketNotFound
	}
	acct, ok := e.account(spec.AccountID)
	if !ok {
		return ErrAccountNotFound
	}

	if m.Halted() {
		e.rejectOrder(spec, risk.ErrMarketHalted)
		return risk.ErrMarketHalted
	}

	orderPrice := admissionPrice(spec, m.Mark.MarkPrice)
	notional := spec.Size.Mul(orderPrice)

	// A reduce-only order (opposite side of an existing position, size no
	// larger than it) never opens fresh exposure, so it posts no additional
	// margin: the position's own collateral already covers it and is
	// released back to the account as the reduce/close settles (see
	// settleOneSide). Without this carve-out every stop-loss/take-profit
	// market order (internal/conditional) would be rejected or would
	// double-reserve margin the trader already posted at open.
	existingNotional := decimalx.ZeroQuote()
	reduceOnly := false
	if p, ok := acct.Position(spec.MarketID); ok {
		existingNotional = p.Notional(m.Mark.MarkPrice)
		orderSigned := spec.Size.Signed(spec.Side)
		reduceOnly = !p.Size.SameSign(orderSigned) && !spec.Size.GreaterThan(p.Size.Abs())
	}

	cappedLeverage := spec.Leverage
	requiredMargin := decimalx.ZeroQuote()
	if !reduceOnly {
		var err error
		cappedLeverage, _, err = margin.CapLeverage(notional, spec.Leverage, e.MarginTiers)
		if err != nil {
			e.rejectOrder(spec, err)
			return err
		}
		requiredMargin = margin.InitialMargin(notional, cappedLeverage)
	}

	// A reduce-only order shrinks open interest, never grows it, so it
	// never contributes to the OI-cap or position-notional-cap checks.
	incrementalSize := spec.Size
	incrementalNotional := notional
	if reduceOnly {
		incrementalSize = decimalx.ZeroSize()
		incrementalNotional = decimalx.ZeroQuote()
	}

	admission := risk.AdmissionInput{
		Now:                 spec.CreatedAt,
		LastOracleTime:      m.Mark.LastOracleTime,
		Halted:              m.Halted(),
		OrderPrice:          orderPrice,
		Mark:                m.Mark.MarkPrice,
		ExistingNotional:    existingNotional,
		IncrementalNotional: incrementalNotional,
		MarketOI:            m.OpenInterestLong.Add(m.OpenInterestShort),
		IncrementalSize:     incrementalSize,
		AvailableMargin:     acct.FreeBalance,
		RequiredMargin:      requiredMargin,
	}
	if err := risk.Admit(admission, m.Params.Risk); err != nil {
		e.rejectOrder(spec, err)
		return err
	}

	if err := acct.ReserveMargin(requiredMargin); err != nil {
		e.rejectOrder(spec, err)
		return err
	}
	e.OrderMargin[spec.ID] = OrderMarginInfo{RequiredMargin: requiredMargin, Leverage: cappedLeverage}

	e.Log.Append(eventlog.OrderPlaced, spec.CreatedAt, eventlog.OrderPlacedPayload{
		OrderID:        spec.ID,
		AccountID:      spec.AccountID,
		MarketID:       spec.MarketID,
		Side:           spec.Side,
		ReservedMargin: requiredMargin,
	})

	order := &book.Order{
		ID:         spec.ID,
		AccountID:  spec.AccountID,
		MarketID:   spec.MarketID,
		Side:       spec.Side,
		Kind:       spec.Kind,
		Size:       spec.Size,
		LimitPrice: spec.LimitPrice,
		CreatedAt:  spec.CreatedAt,
	}

	fills, _, placeErr := m.Book.Place(order)

	for _, fill := range fills {
		e.applyFill(m, fill, requiredMargin, cappedLeverage, spec)
	}

	if placeErr != nil {
		// Book exhausted: fills already produced stand; the unfilled
		// remainder is rejected, not the whole order (spec.md §4.1).
		e.rejectOrder(spec, placeErr)
	}

	e.runPipeline(spec.MarketID, spec.CreatedAt)
	return nil
}

func (e *Engine) rejectOrder(spec OrderSpec, reason error) {
	e.Log.Append(eventlog.OrderRejected, spec.CreatedAt, eventlog.OrderRejectedPayload{
		AccountID: spec.AccountID,
		MarketID:  spec.MarketID,
		Reason:    reason.Error(),
	})
}

// applyFill folds one book.Fill into both sides' Position/Account state.
// takerMargin/takerLeverage back the taker's own fresh-open case directly
// (computed moments ago in applyPlaceOrder, for the taker's full order
// size). The maker's margin was already posted, under its own requested
// leverage, when its order rested — applyFill looks that reservation back
// up by OrderId rather than recomputing it from the fill, so a maker's
// newly-opened position is collateralized by what its account actually
// has reserved (see OrderMargin and DESIGN.md for the bug this replaced).
func (e *Engine) applyFill(m *market.State, fill book.Fill, takerMargin decimalx.Quote, takerLeverage decimalx.Leverage, takerSpec OrderSpec) {
	e.Log.Append(eventlog.OrderMatched, takerSpec.CreatedAt, eventlog.OrderMatchedPayload{
		MarketID:     takerSpec.MarketID,
		TakerOrderID: fill.TakerOrderID,
		MakerOrderID: fill.MakerOrderID,
		TakerSide:    fill.TakerSide,
		Price:        fill.Price,
		Size:         fill.Size,
	})

	e.settleOneSide(m, fill.TakerAccountID, fill.TakerSide, fill.Size, fill.Price, takerMargin, takerLeverage, takerSpec.CreatedAt)

	makerInfo := e.OrderMargin[fill.MakerOrderID]
	e.settleOneSide(m, fill.MakerAccountID, fill.TakerSide.Opposite(), fill.Size, fill.Price, makerInfo.RequiredMargin, makerInfo.Leverage, takerSpec.CreatedAt)
}

// settleOneSide applies one side of a fill to its account's position,
// updates open interest by diffing the position's signed size before and
// after (correct across increase, reduce, close, and flip alike), and
// emits the matching lifecycle event.
func (e *Engine) settleOneSide(m *market.State, accountID decimalx.AccountId, side decimalx.Side, size decimalx.Size, price decimalx.Price, freshMargin decimalx.Quote, freshLeverage decimalx.Leverage, ts decimalx.Timestamp) {
	acct, ok := e.account(accountID)
	if !ok {
		return
	}

	fillSize := size.Signed(side)
	existing, hasPosition := acct.Position(m.ID)

	before := decimalx.ZeroSignedSize()
	if hasPosition {
		before = existing.Size
	}

	if !hasPosition {
		p := position.Open(accountID, m.ID, fillSize, price, freshMargin, freshLeverage, m.Funding.FundingIndex, ts)
		acct.SetPosition(m.ID, p)
		adjustOI(m, before, p.Size)
		e.Log.Append(eventlog.PositionOpened, ts, eventlog.PositionOpenedPayload{
			AccountID:  accountID,
			MarketID:   m.ID,
			Size:       p.Size,
			EntryPrice: p.EntryPrice,
			Collateral: p.Collateral,
			Leverage:   p.Leverage,
		})
		return
	}

	result := existing.ApplyFill(fillSize, price)
	acct.CreditRealizedPnL(result.RealizedPnL)

	switch {
	case result.FlipRemainder != nil:
		acct.ReleaseMargin(existing.Collateral)
		acct.ClosePosition(m.ID)
		adjustOI(m, before, decimalx.ZeroSignedSize())
		e.Log.Append(eventlog.PositionClosed, ts, eventlog.PositionClosedPayload{
			AccountID:   accountID,
			MarketID:    m.ID,
			RealizedPnL: result.RealizedPnL,
		})

		newPos := position.Open(accountID, m.ID, *result.FlipRemainder, price, freshMargin, freshLeverage, m.Funding.FundingIndex, ts)
		acct.SetPosition(m.ID, newPos)
		adjustOI(m, decimalx.ZeroSignedSize(), newPos.Size)
		e.Log.Append(eventlog.PositionOpened, ts, eventlog.PositionOpenedPayload{
			AccountID:  accountID,
			MarketID:   m.ID,
			Size:       newPos.Size,
			EntryPrice: newPos.EntryPrice,
			Collateral: newPos.Collateral,
			Leverage:   newPos.Leverage,
		})

	case result.Closed:
		acct.ReleaseMargin(existing.Collateral)
		acct.ClosePosition(m.ID)
		adjustOI(m, before, decimalx.ZeroSignedSize())
		e.Log.Append(eventlog.PositionClosed, ts, eventlog.PositionClosedPayload{
			AccountID:   accountID,
			MarketID:    m.ID,
			RealizedPnL: result.RealizedPnL,
		})

	default:
		adjustOI(m, before, existing.Size)
		kind := eventlog.PositionIncreased
		payload := any(eventlog.PositionIncreasedPayload{
			AccountID: accountID,
			MarketID:  m.ID,
			NewSize:   existing.Size,
			NewEntry:  existing.EntryPrice,
		})
		if existing.Size.Abs().LessThan(before.Abs()) {
			kind = eventlog.PositionReduced
			payload = eventlog.PositionReducedPayload{
				AccountID:   accountID,
				MarketID:    m.ID,
				NewSize:     existing.Size,
				RealizedPnL: result.RealizedPnL,
			}
		}
		e.Log.Append(kind, ts, payload)
	}
}

// adjustOI removes before's contribution to its side's open interest and
// adds after's, so callers never need to reason about which of
// increase/reduce/flip/close happened.
func adjustOI(m *market.State, before, after decimalx.SignedSize) {
	if before.IsLong() {
		m.DecreaseLongOI(before.Abs())
	} else if before.IsShort() {
		m.DecreaseShortOI(before.Abs())
	}
	if after.IsLong() {
		m.IncreaseLongOI(after.Abs())
	} else if after.IsShort() {
		m.IncreaseShortOI(after.Abs())
	}
}
