// Package eventlog is the append-only, ordered record of every state
// change the engine makes (spec.md §3, §12). It is the source of truth:
// replaying it from genesis must reconstruct identical state.
package eventlog

import (
	"fenrir/internal/decimalx"
)

// Kind tags the payload carried by an Event.
type Kind int

const (
	Deposited Kind = iota
	Withdrawn
	OrderPlaced
	OrderMatched
	OrderRejected
	PositionOpened
	PositionIncreased
	PositionReduced
	PositionClosed
	FundingSettled
	MarkPriceUpdated
	Liquidated
	InsurancePaid
	AutoDeleveraged
	CircuitBreakerTripped
)

func (k Kind) String() string {
	switch k {
	case Deposited:
		return "Deposited"
	case Withdrawn:
		return "Withdrawn"
	case OrderPlaced:
		return "OrderPlaced"
	case OrderMatched:
		return "OrderMatched"
	case OrderRejected:
		return "OrderRejected"
	case PositionOpened:
		return "PositionOpened"
	case PositionIncreased:
		return "PositionIncreased"
	case PositionReduced:
		return "PositionReduced"
	case PositionClosed:
		return "PositionClosed"
	case FundingSettled:
		return "FundingSettled"
	case MarkPriceUpdated:
		return "MarkPriceUpdated"
	case Liquidated:
		return "Liquidated"
	case InsurancePaid:
		return "InsurancePaid"
	case AutoDeleveraged:
		return "AutoDeleveraged"
	case CircuitBreakerTripped:
		return "CircuitBreakerTripped"
	default:
		return "Unknown"
	}
}

// Event is one entry in the log: a monotonically increasing Seq within an
// Epoch (one epoch per command, spec.md §5 "Ordering guarantee"), a
// Timestamp carried from the triggering command, and a kind-specific
// Payload.
type Event struct {
	Epoch     uint64
	Seq       uint64
	Kind      Kind
	Timestamp decimalx.Timestamp
	Payload   any
}

// Payload types, one per Kind (OrderRejected carries its reason as a
// string).

type DepositedPayload struct {
	AccountID decimalx.AccountId
	Amount    decimalx.Quote
	NewFree   decimalx.Quote
}

type WithdrawnPayload struct {
	AccountID decimalx.AccountId
	Amount    decimalx.Quote
	NewFree   decimalx.Quote
}

type OrderPlacedPayload struct {
	OrderID   decimalx.OrderId
	AccountID decimalx.AccountId
	MarketID  decimalx.MarketId
	Side      decimalx.Side
	// ReservedMargin is the amount ReserveMargin moved from FreeBalance to
	// ReservedCollateral for this command (zero for a reduce-only order);
	// replay needs this since no other event carries a reservation delta.
	ReservedMargin decimalx.Quote
}

type OrderMatchedPayload struct {
	MarketID     decimalx.MarketId
	TakerOrderID decimalx.OrderId
	MakerOrderID decimalx.OrderId
	TakerSide    decimalx.Side
	Price        decimalx.Price
	Size         decimalx.Size
}

type OrderRejectedPayload struct {
	AccountID decimalx.AccountId
	MarketID  decimalx.MarketId
	Reason    string
}

type PositionOpenedPayload struct {
	AccountID  decimalx.AccountId
	MarketID   decimalx.MarketId
	Size       decimalx.SignedSize
	EntryPrice decimalx.Price
	Collateral decimalx.Quote
	Leverage   decimalx.Leverage
}

type PositionIncreasedPayload struct {
	AccountID  decimalx.AccountId
	MarketID   decimalx.MarketId
	NewSize    decimalx.SignedSize
	NewEntry   decimalx.Price
}

type PositionReducedPayload struct {
	AccountID   decimalx.AccountId
	MarketID    decimalx.MarketId
	NewSize     decimalx.SignedSize
	RealizedPnL decimalx.Quote
}

type PositionClosedPayload struct {
	AccountID   decimalx.AccountId
	MarketID    decimalx.MarketId
	RealizedPnL decimalx.Quote
}

type FundingSettledPayload struct {
	MarketID      decimalx.MarketId
	EffectiveRate decimalx.Ratio
	NewIndex      decimalx.Ratio
	Residual      decimalx.Quote
}

type MarkPriceUpdatedPayload struct {
	MarketID   decimalx.MarketId
	IndexPrice decimalx.Price
	MarkPrice  decimalx.Price
	Premium    decimalx.Ratio
}

type LiquidatedPayload struct {
	AccountID     decimalx.AccountId
	MarketID      decimalx.MarketId
	Size          decimalx.SignedSize
	MarkPrice     decimalx.Price
	Penalty       decimalx.Quote
	LiquidatorCut decimalx.Quote
	InsuranceCut  decimalx.Quote
	BadDebt       decimalx.Quote
	// ReturnedToAccount is the residual equity (if any) paid back to the
	// liquidated account's FreeBalance; replay needs this since it is
	// otherwise only ever computed in-process by liquidation.Liquidate.
	ReturnedToAccount decimalx.Quote
}

type InsurancePaidPayload struct {
	MarketID decimalx.MarketId
	Amount   decimalx.Quote
	NewFund  decimalx.Quote
	Reason   string
}

type AutoDeleveragedPayload struct {
	AccountID   decimalx.AccountId
	MarketID    decimalx.MarketId
	ReducedBy   decimalx.Size
	RealizedPnL decimalx.Quote
}

type CircuitBreakerTrippedPayload struct {
	MarketID decimalx.MarketId
	DropRate decimalx.Ratio
	CooloffMs int64
}
