// Package account implements the Account record of spec.md §3: balances,
// reserved collateral, realized PnL, and the positions it owns per market.
package account

import (
	"errors"

	"fenrir/internal/decimalx"
	"fenrir/internal/position"
)

var (
	ErrInvalidAmount      = errors.New("invalid amount")
	ErrInsufficientFree   = errors.New("insufficient free balance")
	ErrPositionNotFound   = errors.New("position not found")
)

// Account holds one trader's balances and open positions. Each Account
// exclusively owns its Positions and reserved collateral (spec.md §5); no
// cross-position netting happens here (isolated margin, spec.md §9).
type Account struct {
	ID                 decimalx.AccountId
	FreeBalance        decimalx.Quote
	ReservedCollateral decimalx.Quote
	RealizedPnL        decimalx.Quote
	Positions          map[decimalx.MarketId]*position.Position
}

// New constructs a fresh, empty account, created on first deposit per
// spec.md §3 lifecycle rules.
func New(id decimalx.AccountId) *Account {
	return &Account{
		ID:        id,
		Positions: make(map[decimalx.MarketId]*position.Position),
	}
}

// Deposit credits free balance. amount must be strictly positive.
func (a *Account) Deposit(amount decimalx.Quote) error {
	if !amount.IsPositive() {
		return ErrInvalidAmount
	}
	a.FreeBalance = a.FreeBalance.Add(amount)
	return nil
}

// Withdraw debits free balance if enough is available.
func (a *Account) Withdraw(amount decimalx.Quote) error {
	if !amount.IsPositive() {
		return ErrInvalidAmount
	}
	if a.FreeBalance.LessThan(amount) {
		return ErrInsufficientFree
	}
	a.FreeBalance = a.FreeBalance.Sub(amount)
	return nil
}

// ReserveMargin moves `amount` from free balance into reserved collateral,
// e.g. when opening or increasing a position. Fails rather than letting
// free_balance go negative (spec.md Account invariant).
func (a *Account) ReserveMargin(amount decimalx.Quote) error {
	if a.FreeBalance.LessThan(amount) {
		return ErrInsufficientFree
	}
	a.FreeBalance = a.FreeBalance.Sub(amount)
	a.ReservedCollateral = a.ReservedCollateral.Add(amount)
	return nil
}

// ReleaseMargin moves `amount` back from reserved collateral to free
// balance, e.g. when a position closes and its collateral is returned.
func (a *Account) ReleaseMargin(amount decimalx.Quote) {
	a.ReservedCollateral = a.ReservedCollateral.Sub(amount)
	a.FreeBalance = a.FreeBalance.Add(amount)
}

// CreditRealizedPnL applies a realized gain/loss to both the running
// RealizedPnL counter and free balance (funding and trade PnL both flow
// through here).
func (a *Account) CreditRealizedPnL(amount decimalx.Quote) {
	a.RealizedPnL = a.RealizedPnL.Add(amount)
	a.FreeBalance = a.FreeBalance.Add(amount)
}

// Position returns the open position for a market, if any.
func (a *Account) Position(marketID decimalx.MarketId) (*position.Position, bool) {
	p, ok := a.Positions[marketID]
	return p, ok
}

// SetPosition records (or replaces) the open position for a market.
func (a *Account) SetPosition(marketID decimalx.MarketId, p *position.Position) {
	a.Positions[marketID] = p
}

// ClosePosition deletes the position record for a market; the caller is
// responsible for having already released its collateral.
func (a *Account) ClosePosition(marketID decimalx.MarketId) {
	delete(a.Positions, marketID)
}

// TotalReservedCollateral sums collateral across every open position into a single margin
// health figure for reporting, NOT used for per-position liquidation
// checks (those use position.Equity directly since margin is isolated).
func (a *Account) TotalReservedCollateral() decimalx.Quote {
	total := decimalx.ZeroQuote()
	for _, p := range a.Positions {
		total = total.Add(p.Collateral)
	}
	return total
}
