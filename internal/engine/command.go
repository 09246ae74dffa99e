package engine

import (
	"fenrir/internal/book"
	"fenrir/internal/decimalx"
)

// CommandKind tags which of spec.md §4.9/§6's seven command shapes a
// Command carries. Modeled as a tagged variant, not an open interface
// hierarchy, so Apply's dispatch enumerates every case exhaustively.
type CommandKind int

const (
	CmdDeposit CommandKind = iota
	CmdWithdraw
	CmdPlaceOrder
	CmdCancelOrder
	CmdOracleTick
	CmdFundingTick
	CmdTick
)

// OrderSpec is the order half of a PlaceOrder command (spec.md §6).
type OrderSpec struct {
	ID         decimalx.OrderId
	AccountID  decimalx.AccountId
	MarketID   decimalx.MarketId
	Side       decimalx.Side
	Kind       book.Kind
	Size       decimalx.Size
	LimitPrice decimalx.Price
	Leverage   decimalx.Leverage
	CreatedAt  decimalx.Timestamp
}

// Command is one instruction to the Engine Orchestrator. Exactly one of
// its payload fields is meaningful per Kind; see the comment on each
// field for which.
type Command struct {
	Kind CommandKind

	// CmdDeposit, CmdWithdraw
	AccountID decimalx.AccountId
	Amount    decimalx.Quote

	// CmdPlaceOrder
	Order OrderSpec

	// CmdCancelOrder
	CancelMarketID decimalx.MarketId
	CancelOrderID  decimalx.OrderId
	CancelSide     decimalx.Side
	CancelPrice    decimalx.Price

	// CmdOracleTick (both fields); CmdFundingTick also names its market
	// in OracleMarketID.
	OracleMarketID decimalx.MarketId
	IndexPrice     decimalx.Price

	// CmdOracleTick, CmdFundingTick, CmdTick all carry a timestamp; it is
	// the only source of time the core ever observes (spec.md §5).
	Now decimalx.Timestamp
}

// Deposit builds a CmdDeposit command.
func Deposit(accountID decimalx.AccountId, amount decimalx.Quote) Command {
	return Command{Kind: CmdDeposit, AccountID: accountID, Amount: amount}
}

// Withdraw builds a CmdWithdraw command.
func Withdraw(accountID decimalx.AccountId, amount decimalx.Quote) Command {
	return Command{Kind: CmdWithdraw, AccountID: accountID, Amount: amount}
}

// PlaceOrder builds a CmdPlaceOrder command.
func PlaceOrder(spec OrderSpec) Command {
	return Command{Kind: CmdPlaceOrder, Order: spec}
}

// CancelOrder builds a CmdCancelOrder command.
func CancelOrder(marketID decimalx.MarketId, side decimalx.Side, price decimalx.Price, orderID decimalx.OrderId) Command {
	return Command{Kind: CmdCancelOrder, CancelMarketID: marketID, CancelSide: side, CancelPrice: price, CancelOrderID: orderID}
}

// OracleTick builds a CmdOracleTick command.
func OracleTick(marketID decimalx.MarketId, index decimalx.Price, now decimalx.Timestamp) Command {
	return Command{Kind: CmdOracleTick, OracleMarketID: marketID, IndexPrice: index, Now: now}
}

// Tick builds a CmdTick command, driving funding cadence and conditional
// re-evaluation across every market without a fresh oracle reading.
func Tick(now decimalx.Timestamp) Command {
	return Command{Kind: CmdTick, Now: now}
}

// FundingTick builds a CmdFundingTick command: an explicit funding
// settlement request for one market, independent of the general Tick
// sweep (e.g. a test driving funding deterministically without touching
// conditional triggers).
func FundingTick(marketID decimalx.MarketId, now decimalx.Timestamp) Command {
	return Command{Kind: CmdFundingTick, OracleMarketID: marketID, Now: now}
}
