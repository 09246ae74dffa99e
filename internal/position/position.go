// Package position implements the signed-size Position record of spec.md
// §4.2: weighted-average entry on same-side fills, realized-PnL split on
// reduce, and the two-step reduce-then-open accounting on flip.
package position

import (
	"fenrir/internal/decimalx"
)

// Position is a single isolated-margin leveraged holding in one market for
// one account. It must not exist with Size == 0; FillResult.Closed tells
// the caller to delete the record.
type Position struct {
	AccountID        decimalx.AccountId
	MarketID         decimalx.MarketId
	Size             decimalx.SignedSize
	EntryPrice       decimalx.Price
	Collateral       decimalx.Quote
	Leverage         decimalx.Leverage
	LastFundingIndex decimalx.Ratio
	OpenedAt         decimalx.Timestamp
}

// Open constructs a brand-new position from its first fill.
func Open(accountID decimalx.AccountId, marketID decimalx.MarketId, size decimalx.SignedSize, price decimalx.Price, collateral decimalx.Quote, leverage decimalx.Leverage, fundingIndex decimalx.Ratio, now decimalx.Timestamp) *Position {
	return &Position{
		AccountID:        accountID,
		MarketID:         marketID,
		Size:             size,
		EntryPrice:       price,
		Collateral:       collateral,
		Leverage:         leverage,
		LastFundingIndex: fundingIndex,
		OpenedAt:         now,
	}
}

// FillResult reports the accounting consequences of ApplyFill.
type FillResult struct {
	RealizedPnL decimalx.Quote
	// Closed is true once Size has returned to zero; the caller must
	// delete the Position record and return Collateral to the account.
	Closed bool
	// FlipRemainder is the portion of the incoming fill left over after a
	// flip closed the old position; the caller opens a brand new Position
	// from it (two-step accounting, spec.md §4.2).
	FlipRemainder *decimalx.SignedSize
}

// ApplyFill updates the position for a fill of fillSize (signed: positive
// for a buy fill, negative for a sell fill) at fillPrice. It implements
// increase, reduce, and flip exactly as spec.md §4.2 describes; flip is
// split into a reduce-to-zero step (reflected in the returned RealizedPnL)
// followed by the caller opening a new Position for FlipRemainder.
func (p *Position) ApplyFill(fillSize decimalx.SignedSize, fillPrice decimalx.Price) FillResult {
	if p.Size.SameSign(fillSize) || p.Size.IsZero() {
		return p.increase(fillSize, fillPrice)
	}

	if fillSize.Abs().Cmp(p.Size.Abs()) <= 0 {
		return p.reduce(fillSize, fillPrice)
	}

	return p.flip(fillSize, fillPrice)
}

// increase folds a same-side fill into a new weighted-average entry price.
func (p *Position) increase(fillSize decimalx.SignedSize, fillPrice decimalx.Price) FillResult {
	oldAbs := p.Size.Abs()
	fillAbs := fillSize.Abs()
	totalAbs := oldAbs.Add(fillAbs)

	if totalAbs.IsZero() {
		// Both legs zero: nothing to weight, keep entry as-is.
		p.Size = p.Size.Add(fillSize)
		return FillResult{RealizedPnL: decimalx.ZeroQuote()}
	}

	weighted := oldAbs.Mul(p.EntryPrice).Add(fillAbs.Mul(fillPrice))
	newEntry := decimalx.NewPrice(weighted.Decimal().Div(totalAbs.Decimal()))

	p.EntryPrice = newEntry
	p.Size = p.Size.Add(fillSize)

	return FillResult{RealizedPnL: decimalx.ZeroQuote()}
}

// reduce shrinks (or exactly closes) the position without moving entry
// price; realized PnL accrues on the reduced quantity only.
func (p *Position) reduce(fillSize decimalx.SignedSize, fillPrice decimalx.Price) FillResult {
	reducedQty := fillSize.Abs()
	side := p.Size.Side()

	// realized = reducedQty * (fillPrice - entry) signed per old side.
	delta := fillPrice.Sub(p.EntryPrice)
	pnl := reducedQty.Mul(delta)
	if side == decimalx.Sell {
		pnl = pnl.Neg()
	}

	p.Size = p.Size.Add(fillSize)

	result := FillResult{RealizedPnL: pnl}
	if p.Size.IsZero() {
		result.Closed = true
	}
	return result
}

// flip is a reduce-to-zero followed by opening a new position with the
// remaining fill quantity; spec.md calls for two-step accounting and two
// events. This method performs the reduce step and returns the remainder
// for the caller to open as a fresh Position.
func (p *Position) flip(fillSize decimalx.SignedSize, fillPrice decimalx.Price) FillResult {
	oldAbs := p.Size.Abs()
	closingFill := oldAbs.Signed(fillSize.Side())

	result := p.reduce(closingFill, fillPrice)
	result.Closed = true

	remainder := fillSize.Sub(closingFill)
	result.FlipRemainder = &remainder
	return result
}

// UnrealizedPnL is size * (mark - entry); correct for both sides because
// size already carries the sign.
func (p *Position) UnrealizedPnL(mark decimalx.Price) decimalx.Quote {
	return p.Size.Mul(mark.Sub(p.EntryPrice))
}

// Notional is |size| * price.
func (p *Position) Notional(price decimalx.Price) decimalx.Quote {
	return p.Size.Abs().Mul(price)
}

// Equity is collateral + unrealized PnL - pending funding (spec.md
// Glossary). pendingFunding is the not-yet-settled accrual since
// LastFundingIndex; the caller (funding engine) computes it.
func (p *Position) Equity(mark decimalx.Price, pendingFunding decimalx.Quote) decimalx.Quote {
	return p.Collateral.Add(p.UnrealizedPnL(mark)).Sub(pendingFunding)
}
