package book

import "fenrir/internal/decimalx"

// Kind distinguishes a resting limit order from a cross-only market order.
type Kind int

const (
	Limit Kind = iota
	Market
)

// Order is a single resting or incoming instruction against the book.
// Remaining tracks how much of Size is still unfilled; it is mutated in
// place as the book matches against it.
type Order struct {
	ID         decimalx.OrderId
	AccountID  decimalx.AccountId
	MarketID   decimalx.MarketId
	Side       decimalx.Side
	Kind       Kind
	Size       decimalx.Size
	LimitPrice decimalx.Price // zero value unused unless Kind == Limit
	CreatedAt  decimalx.Timestamp
	Remaining  decimalx.Size
	// seq is the book's insertion sequence number, assigned on rest. FIFO
	// order within a price level comes from the level's append order, not
	// from seq, so CreatedAt collisions never affect it.
	seq uint64
}

// Fill records one crossing between a taker and a resting maker order.
type Fill struct {
	TakerOrderID   decimalx.OrderId
	TakerAccountID decimalx.AccountId
	MakerOrderID   decimalx.OrderId
	MakerAccountID decimalx.AccountId
	TakerSide      decimalx.Side
	Price          decimalx.Price // the resting (maker) order's price
	Size           decimalx.Size
}
