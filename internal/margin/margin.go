// Package margin implements the pure leverage-tier lookup and the
// initial/maintenance margin and liquidation-price formulas of spec.md §4.3.
// Nothing here touches an Account or Position directly; it maps
// (notional, leverage) onto collateral requirements.
package margin

import (
	"errors"

	"fenrir/internal/decimalx"
)

// ErrLeverageExceedsTier is returned when the requested leverage is above
// the tier's max for the position's notional; spec.md says such requests
// are rejected outright rather than silently capped.
var ErrLeverageExceedsTier = errors.New("leverage exceeds tier maximum")

// MaintenanceRatio is fixed across all tiers at half of initial margin, per
// spec.md §4.3 ("maintenance ratio = 0.5 of initial").
var MaintenanceRatio = decimalx.RatioFromFloat(0.5)

// Tier is one row of the notional -> max-leverage table.
type Tier struct {
	// UpperBound is the tier's exclusive notional ceiling; the last tier's
	// UpperBound is ignored (it covers everything above the prior ceiling).
	UpperBound  decimalx.Quote
	MaxLeverage decimalx.Leverage
}

// DefaultTiers is spec.md's table: <100k->50x; 100k-500k->20x; 500k-2M->10x;
// 2M-10M->5x; >=10M->5x (the last two rows share a leverage, so they
// collapse into one open-ended tier here).
func DefaultTiers() []Tier {
	return []Tier{
		{UpperBound: decimalx.QuoteFromInt(100_000), MaxLeverage: decimalx.NewLeverageInt(50)},
		{UpperBound: decimalx.QuoteFromInt(500_000), MaxLeverage: decimalx.NewLeverageInt(20)},
		{UpperBound: decimalx.QuoteFromInt(2_000_000), MaxLeverage: decimalx.NewLeverageInt(10)},
		{UpperBound: decimalx.QuoteFromInt(10_000_000), MaxLeverage: decimalx.NewLeverageInt(5)},
		{MaxLeverage: decimalx.NewLeverageInt(5)}, // >= 10M, open-ended
	}
}

// LookupTier returns the smallest tier whose UpperBound contains notional,
// falling back to the last (open-ended) tier.
func LookupTier(notional decimalx.Quote, tiers []Tier) Tier {
	for i, tier := range tiers[:len(tiers)-1] {
		if notional.LessThan(tier.UpperBound) {
			return tiers[i]
		}
	}
	return tiers[len(tiers)-1]
}

// CapLeverage validates the requested leverage against the tier found for
// notional, returning ErrLeverageExceedsTier if it is over the cap.
func CapLeverage(notional decimalx.Quote, requested decimalx.Leverage, tiers []Tier) (decimalx.Leverage, Tier, error) {
	tier := LookupTier(notional, tiers)
	if requested.GreaterThan(tier.MaxLeverage) {
		return decimalx.Leverage{}, tier, ErrLeverageExceedsTier
	}
	return requested, tier, nil
}

// InitialMargin is notional / leverage.
func InitialMargin(notional decimalx.Quote, leverage decimalx.Leverage) decimalx.Quote {
	return notional.DivLeverage(leverage)
}

// MaintenanceMargin is initial margin * 0.5.
func MaintenanceMargin(initialMargin decimalx.Quote) decimalx.Quote {
	return initialMargin.MulRatio(MaintenanceRatio)
}

// LiquidationPriceLong is entry * (1 - 0.5/leverage).
func LiquidationPriceLong(entry decimalx.Price, leverage decimalx.Leverage) decimalx.Price {
	halfOverLev := MaintenanceRatio.DivLeverage(leverage)
	return entry.Mul(decimalx.OneRatio().Sub(halfOverLev))
}

// LiquidationPriceShort is entry * (1 + 0.5/leverage).
func LiquidationPriceShort(entry decimalx.Price, leverage decimalx.Leverage) decimalx.Price {
	halfOverLev := MaintenanceRatio.DivLeverage(leverage)
	return entry.Mul(decimalx.OneRatio().Add(halfOverLev))
}

// LiquidationPrice dispatches on side.
func LiquidationPrice(entry decimalx.Price, leverage decimalx.Leverage, side decimalx.Side) decimalx.Price {
	if side == decimalx.Sell {
		return LiquidationPriceShort(entry, leverage)
	}
	return LiquidationPriceLong(entry, leverage)
}
