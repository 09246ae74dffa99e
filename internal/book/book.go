// Package book implements the price-time-priority central limit order book
// of spec.md §4.1: two price-ordered ladders of FIFO queues, matched by
// market and marketable-limit orders.
package book

import (
	"errors"

	"github.com/tidwall/btree"

	"fenrir/internal/decimalx"
)

var (
	// ErrBookExhausted is returned by a Market order that crosses as much
	// liquidity as exists and still has remaining size; the fills already
	// produced stand, the remainder is rejected.
	ErrBookExhausted = errors.New("book exhausted before order filled")
	ErrOrderNotFound = errors.New("order not found")
)

// Level is one price's FIFO queue of resting orders. Exported so callers
// (tests, event replay) can inspect book depth without a private type leak.
type Level struct {
	Price  decimalx.Price
	Orders []*Order
}

type ladder = btree.BTreeG[*Level]

// Book is the two-sided order book for a single market.
type Book struct {
	bids *ladder // ordered descending by price (best bid first)
	asks *ladder // ordered ascending by price (best ask first)

	nextSeq   uint64
	lastTrade *decimalx.Price
}

// New constructs an empty book.
func New() *Book {
	bids := btree.NewBTreeG(func(a, b *Level) bool { return a.Price.GreaterThan(b.Price) })
	asks := btree.NewBTreeG(func(a, b *Level) bool { return a.Price.LessThan(b.Price) })
	return &Book{bids: bids, asks: asks}
}

// BestBid returns the highest resting bid price, if any.
func (b *Book) BestBid() (decimalx.Price, bool) {
	lvl, ok := b.bids.MinMut()
	if !ok {
		return decimalx.Price{}, false
	}
	return lvl.Price, true
}

// BestAsk returns the lowest resting ask price, if any.
func (b *Book) BestAsk() (decimalx.Price, bool) {
	lvl, ok := b.asks.MinMut()
	if !ok {
		return decimalx.Price{}, false
	}
	return lvl.Price, true
}

// Mid returns (best_bid+best_ask)/2, or the last trade price if one side of
// the book is empty (spec.md §4.1).
func (b *Book) Mid() (decimalx.Price, bool) {
	bid, bidOk := b.BestBid()
	ask, askOk := b.BestAsk()
	switch {
	case bidOk && askOk:
		return decimalx.Mid(bid, ask), true
	case b.lastTrade != nil:
		return *b.lastTrade, true
	default:
		return decimalx.Price{}, false
	}
}

func (b *Book) ladderFor(side decimalx.Side) *ladder {
	if side == decimalx.Buy {
		return b.bids
	}
	return b.asks
}

func (b *Book) oppositeLadder(side decimalx.Side) *ladder {
	return b.ladderFor(side.Opposite())
}

// Place matches order against the opposing side of the book, then (for
// Limit orders only) rests any residual at the tail of its price level. It
// returns every Fill generated, in generation order, plus any residual size
// still unfilled.
//
// A Market order that cannot be fully filled returns ErrBookExhausted
// alongside the fills already produced; spec.md treats this as a rejection
// of the remainder, not of the whole order.
func (b *Book) Place(order *Order) ([]Fill, decimalx.Size, error) {
	order.Remaining = order.Size

	fills := b.cross(order)

	if order.Remaining.IsZero() {
		return fills, order.Remaining, nil
	}

	if order.Kind == Market {
		return fills, order.Remaining, ErrBookExhausted
	}

	b.rest(order)
	return fills, order.Remaining, nil
}

// cross sweeps the opposing ladder against order's marketable quantity: for
// a Market order, until liquidity runs out; for a Limit order, only while
// the opposing best price is equal-or-better than its limit.
func (b *Book) cross(order *Order) []Fill {
	var fills []Fill
	opposing := b.oppositeLadder(order.Side)

	for !order.Remaining.IsZero() {
		level, ok := opposing.MinMut()
		if !ok {
			break
		}
		if order.Kind == Limit && !crosses(order.Side, order.LimitPrice, level.Price) {
			break
		}

		consumed := 0
		for _, maker := range level.Orders {
			if order.Remaining.IsZero() {
				break
			}
			matchSize := decimalx.MinSize(order.Remaining, maker.Remaining)

			order.Remaining = order.Remaining.Sub(matchSize)
			maker.Remaining = maker.Remaining.Sub(matchSize)

			fills = append(fills, Fill{
				TakerOrderID:   order.ID,
				TakerAccountID: order.AccountID,
				MakerOrderID:   maker.ID,
				MakerAccountID: maker.AccountID,
				TakerSide:      order.Side,
				Price:          level.Price,
				Size:           matchSize,
			})

			b.lastTrade = &level.Price

			if maker.Remaining.IsZero() {
				consumed++
			}
		}

		if consumed == len(level.Orders) {
			opposing.Delete(level)
		} else if consumed > 0 {
			level.Orders = level.Orders[consumed:]
		}
	}

	return fills
}

// crosses reports whether a Limit order's limit price is marketable against
// the opposing level's price: a buy crosses asks at or below its limit, a
// sell crosses bids at or above its limit.
func crosses(side decimalx.Side, limit, levelPrice decimalx.Price) bool {
	if side == decimalx.Buy {
		return levelPrice.LessThanOrEqual(limit)
	}
	return levelPrice.GreaterThanOrEqual(limit)
}

// rest enqueues order's residual at the tail of its price level.
func (b *Book) rest(order *Order) {
	b.nextSeq++
	order.seq = b.nextSeq

	lad := b.ladderFor(order.Side)
	key := &Level{Price: order.LimitPrice}
	if level, ok := lad.GetMut(key); ok {
		level.Orders = append(level.Orders, order)
		return
	}
	lad.Set(&Level{Price: order.LimitPrice, Orders: []*Order{order}})
}

// Cancel removes a resting order from its side of the book.
func (b *Book) Cancel(side decimalx.Side, price decimalx.Price, id decimalx.OrderId) error {
	lad := b.ladderFor(side)
	key := &Level{Price: price}
	level, ok := lad.GetMut(key)
	if !ok {
		return ErrOrderNotFound
	}
	for i, o := range level.Orders {
		if o.ID == id {
			level.Orders = append(level.Orders[:i], level.Orders[i+1:]...)
			if len(level.Orders) == 0 {
				lad.Delete(level)
			}
			return nil
		}
	}
	return ErrOrderNotFound
}

// Bids returns resting bid levels ordered best-first, for inspection/tests.
func (b *Book) Bids() []*Level { return b.bids.Items() }

// Asks returns resting ask levels ordered best-first, for inspection/tests.
func (b *Book) Asks() []*Level { return b.asks.Items() }
