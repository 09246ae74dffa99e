// Package conditional implements the stop-loss, take-profit, and
// trailing-stop triggers of spec.md §4.8, evaluated on every
// MarkPriceUpdated.
package conditional

import (
	"fenrir/internal/decimalx"
)

// Kind tags which conditional variant an Order is (modeled as a tagged
// variant per spec.md §9, not an open class hierarchy).
type Kind int

const (
	StopLoss Kind = iota
	TakeProfit
	TrailingStop
)

// Order is a resting conditional instruction for one account/market. Once
// triggered it is removed and converted to a market Order for submission
// through the normal admission path; it never re-arms (spec.md §9 Open
// Question (c)).
type Order struct {
	ID        decimalx.OrderId
	AccountID decimalx.AccountId
	MarketID  decimalx.MarketId
	Side      decimalx.Side // side of the market order to submit on trigger
	Kind      Kind
	Size      decimalx.Size

	// TriggerPrice is used directly by StopLoss/TakeProfit. For
	// TrailingStop it is recomputed every tick from BestSeen ± Distance.
	TriggerPrice decimalx.Price

	// TrailDistance and BestSeen are only meaningful for TrailingStop.
	TrailDistance decimalx.Price
	BestSeen      decimalx.Price
}

// AdvanceTrailingStop updates BestSeen monotonically in the favorable
// direction and recomputes TriggerPrice. For a long-side trailing stop
// (Side == Sell, protecting a long) BestSeen only rises, trigger =
// BestSeen - distance; for a short-side trailing stop (Side == Buy) it
// only falls, trigger = BestSeen + distance. This runs on every mark
// update regardless of whether the order has triggered yet (spec.md §4.8).
func (o *Order) AdvanceTrailingStop(mark decimalx.Price) {
	if o.Kind != TrailingStop {
		return
	}
	if o.BestSeen.IsZero() {
		o.BestSeen = mark
	} else if o.Side == decimalx.Sell {
		if mark.GreaterThan(o.BestSeen) {
			o.BestSeen = mark
		}
	} else {
		if mark.LessThan(o.BestSeen) {
			o.BestSeen = mark
		}
	}

	if o.Side == decimalx.Sell {
		o.TriggerPrice = o.BestSeen.Sub(o.TrailDistance)
	} else {
		o.TriggerPrice = o.BestSeen.Add(o.TrailDistance)
	}
}

// Triggered reports whether mark has crossed o's trigger condition:
//   - StopLoss protecting a long (Side == Sell): mark <= trigger.
//   - TakeProfit protecting a long (Side == Sell): mark >= trigger.
//   - StopLoss protecting a short (Side == Buy): mark >= trigger.
//   - TakeProfit protecting a short (Side == Buy): mark <= trigger.
//   - TrailingStop: same direction as the stop-loss it trails.
func (o *Order) Triggered(mark decimalx.Price) bool {
	switch o.Kind {
	case StopLoss:
		if o.Side == decimalx.Sell {
			return mark.LessThanOrEqual(o.TriggerPrice)
		}
		return mark.GreaterThanOrEqual(o.TriggerPrice)
	case TakeProfit:
		if o.Side == decimalx.Sell {
			return mark.GreaterThanOrEqual(o.TriggerPrice)
		}
		return mark.LessThanOrEqual(o.TriggerPrice)
	case TrailingStop:
		if o.Side == decimalx.Sell {
			return mark.LessThanOrEqual(o.TriggerPrice)
		}
		return mark.GreaterThanOrEqual(o.TriggerPrice)
	}
	return false
}

// Book holds the set of resting conditional orders for one market, keyed
// by trigger_price with side as spec.md §4.8 describes (a slice is
// sufficient at the scale this engine targets; no separate index is kept
// since evaluation sweeps every resting order on every mark update).
type Book struct {
	orders []*Order
}

// NewBook constructs an empty conditional-order book.
func NewBook() *Book { return &Book{} }

// Add rests a new conditional order.
func (b *Book) Add(o *Order) { b.orders = append(b.orders, o) }

// Cancel removes a resting conditional order by ID.
func (b *Book) Cancel(id decimalx.OrderId) bool {
	for i, o := range b.orders {
		if o.ID == id {
			b.orders = append(b.orders[:i], b.orders[i+1:]...)
			return true
		}
	}
	return false
}

// Evaluate advances every trailing stop's BestSeen against mark, then
// removes and returns every order whose condition is now met, in stable
// order. Removed orders are converted by the caller into market Orders
// and submitted through the normal admission path (spec.md §4.8); they do
// not re-arm.
func (b *Book) Evaluate(mark decimalx.Price) []*Order {
	for _, o := range b.orders {
		o.AdvanceTrailingStop(mark)
	}

	var triggered []*Order
	remaining := b.orders[:0]
	for _, o := range b.orders {
		if o.Triggered(mark) {
			triggered = append(triggered, o)
		} else {
			remaining = append(remaining, o)
		}
	}
	b.orders = remaining
	return triggered
}

// Len reports the number of resting conditional orders.
func (b *Book) Len() int { return len(b.orders) }
