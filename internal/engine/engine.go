// Package engine is the Engine Orchestrator of spec.md §4.9: a
// single-threaded command dispatcher sequencing order admission, matching,
// pricing, funding, and liquidation, and emitting the event log that is
// their source of truth.
//
// This package replaces the teacher's original internal/engine (a second,
// btree-backed order book keyed by float64 — see DESIGN.md) with the
// top-level orchestrator SPEC_FULL.md calls for; the order-book logic it
// used to hold now lives, generalized to exact decimal, in internal/book.
package engine

import (
	"errors"

	"fenrir/internal/account"
	"fenrir/internal/decimalx"
	"fenrir/internal/eventlog"
	"fenrir/internal/liquidation"
	"fenrir/internal/margin"
	"fenrir/internal/market"
)

var (
	ErrAccountNotFound = errors.New("account not found")
	ErrMarketNotFound  = errors.New("market not found")
)

// Engine owns every Account and Market in the process and the single
// event log they share. Each Account exclusively owns its Positions and
// reserved collateral; each Market exclusively owns its book and
// mark/funding state; InsuranceFund is process-wide (spec.md §5).
type Engine struct {
	Accounts      map[decimalx.AccountId]*account.Account
	Markets       map[decimalx.MarketId]*market.State
	InsuranceFund decimalx.Quote
	Log           *eventlog.Log

	MarginTiers      []margin.Tier
	LiquidationParams liquidation.Params

	// OrderMargin remembers the margin and leverage actually reserved for
	// each resting order at placement time, keyed by OrderId. A fill only
	// ever opens a brand-new Position for the SIDE THAT HASN'T TRADED YET
	// in this market — the taker's freshly-placed order, whose margin is
	// already in hand at the applyPlaceOrder call site, or a resting
	// maker order placed (and margined) by some earlier command. Without
	// this table, applyFill would have no way to recover what a maker's
	// resting order actually reserved and would have to guess — see
	// DESIGN.md for the bug this replaced.
	OrderMargin map[decimalx.OrderId]OrderMarginInfo

	// LastKnownTime is the latest timestamp carried by any OracleTick,
	// FundingTick, or Tick command; it stamps the events of Deposit and
	// Withdraw, which carry no timestamp of their own (PlaceOrder events
	// use the order's CreatedAt instead). The core never reads the
	// wall clock (spec.md §5) — this is the only clock it has.
	LastKnownTime decimalx.Timestamp
}

// OrderMarginInfo is the margin/leverage snapshot taken when an order is
// placed, looked up again at fill time so a maker's position opens with
// the collateral its own order actually reserved.
type OrderMarginInfo struct {
	RequiredMargin decimalx.Quote
	Leverage       decimalx.Leverage
}

// New constructs an empty engine at genesis.
func New() *Engine {
	return &Engine{
		Accounts:          make(map[decimalx.AccountId]*account.Account),
		Markets:           make(map[decimalx.MarketId]*market.State),
		Log:               eventlog.NewLog(),
		MarginTiers:       margin.DefaultTiers(),
		LiquidationParams: liquidation.DefaultParams(),
		OrderMargin:       make(map[decimalx.OrderId]OrderMarginInfo),
	}
}

// AddMarket registers a new market at genesis. Not itself a command
// (market listing is deployment-time configuration, out of spec.md's
// command surface), but exercised identically by cmd/simulate and tests.
func (e *Engine) AddMarket(id decimalx.MarketId, params market.Params) *market.State {
	m := market.New(id, params)
	e.Markets[id] = m
	return m
}

func (e *Engine) account(id decimalx.AccountId) (*account.Account, bool) {
	a, ok := e.Accounts[id]
	return a, ok
}

func (e *Engine) getOrCreateAccount(id decimalx.AccountId) *account.Account {
	a, ok := e.Accounts[id]
	if !ok {
		a = account.New(id)
		e.Accounts[id] = a
	}
	return a
}

// Apply processes one command to completion, atomically: either every
// resulting state change and event commits, or a typed rejection is
// returned and no account, position, book or market state is mutated
// (spec.md §5, §7); a rejected order still appends an OrderRejected event
// to the log. Every event emitted
// while handling cmd shares one BeginEpoch generation, totally ordered by
// sequence within it.
func (e *Engine) Apply(cmd Command) ([]eventlog.Event, error) {
	e.Log.BeginEpoch()
	start := e.Log.Len()

	var err error
	switch cmd.Kind {
	case CmdDeposit:
		err = e.applyDeposit(cmd)
	case CmdWithdraw:
		err = e.applyWithdraw(cmd)
	case CmdPlaceOrder:
		err = e.applyPlaceOrder(cmd)
	case CmdCancelOrder:
		err = e.applyCancelOrder(cmd)
	case CmdOracleTick:
		err = e.applyOracleTick(cmd)
	case CmdFundingTick:
		err = e.applyFundingSettlement(cmd.OracleMarketID, cmd.Now)
	case CmdTick:
		err = e.applyTick(cmd)
	default:
		err = errors.New("engine: unknown command kind")
	}

	events := e.Log.Events()[start:]
	return events, err
}

func (e *Engine) applyDeposit(cmd Command) error {
	if !cmd.Amount.IsPositive() {
		return account.ErrInvalidAmount
	}
	a := e.getOrCreateAccount(cmd.AccountID)
	if err := a.Deposit(cmd.Amount); err != nil {
		return err
	}
	e.Log.Append(eventlog.Deposited, e.LastKnownTime, eventlog.DepositedPayload{
		AccountID: cmd.AccountID,
		Amount:    cmd.Amount,
		NewFree:   a.FreeBalance,
	})
	return nil
}

func (e *Engine) applyWithdraw(cmd Command) error {
	a, ok := e.account(cmd.AccountID)
	if !ok {
		return ErrAccountNotFound
	}
	if err := a.Withdraw(cmd.Amount); err != nil {
		return err
	}
	e.Log.Append(eventlog.Withdrawn, e.LastKnownTime, eventlog.WithdrawnPayload{
		AccountID: cmd.AccountID,
		Amount:    cmd.Amount,
		NewFree:   a.FreeBalance,
	})
	return nil
}

func (e *Engine) applyCancelOrder(cmd Command) error {
	m, ok := e.Markets[cmd.CancelMarketID]
	if !ok {
		return ErrMarketNotFound
	}
	return m.Book.Cancel(cmd.CancelSide, cmd.CancelPrice, cmd.CancelOrderID)
}
