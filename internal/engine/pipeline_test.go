package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fenrir/internal/book"
	"fenrir/internal/decimalx"
	"fenrir/internal/market"
)

// TestLiquidationCascadeIntoADL drives alice long 10 @1000 against bob
// short 10 @1000, both at 10x, then crashes the oracle index 10% to 900.
// Alice's equity falls to exactly zero (below her 500 maintenance margin),
// so sweepLiquidations closes her at mark for a 90 penalty she can't
// cover; the resulting 90 of bad debt takes the insurance fund negative
// and triggers an ADL pass against bob, the only opposite-side holder
// with positive unrealized PnL. Every number below was hand-derived
// against the actual margin/liquidation/ADL formulas, not guessed.
func TestLiquidationCascadeIntoADL(t *testing.T) {
	e := New()
	e.AddMarket(testMarket, market.DefaultParams())

	t0 := decimalx.Timestamp(1_000_000)
	_, err := e.Apply(OracleTick(testMarket, decimalx.PriceFromInt(1_000), t0))
	require.NoError(t, err)

	_, err = e.Apply(Deposit("alice", decimalx.QuoteFromInt(2_000)))
	require.NoError(t, err)
	_, err = e.Apply(Deposit("bob", decimalx.QuoteFromInt(2_000)))
	require.NoError(t, err)

	t1 := t0 + 100
	_, err = e.Apply(PlaceOrder(OrderSpec{
		ID:         "alice-open",
		AccountID:  "alice",
		MarketID:   testMarket,
		Side:       decimalx.Buy,
		Kind:       book.Limit,
		Size:       decimalx.SizeFromInt(10),
		LimitPrice: decimalx.PriceFromInt(1_000),
		Leverage:   decimalx.NewLeverageInt(10),
		CreatedAt:  t1,
	}))
	require.NoError(t, err)

	_, err = e.Apply(PlaceOrder(OrderSpec{
		ID:        "bob-open",
		AccountID: "bob",
		MarketID:  testMarket,
		Side:      decimalx.Sell,
		Kind:      book.Market,
		Size:      decimalx.SizeFromInt(10),
		Leverage:  decimalx.NewLeverageInt(10),
		CreatedAt: t1,
	}))
	require.NoError(t, err)

	alicePos, ok := e.Accounts["alice"].Position(testMarket)
	require.True(t, ok)
	bobPos, ok := e.Accounts["bob"].Position(testMarket)
	require.True(t, ok)
	require.True(t, alicePos.Collateral.Equal(decimalx.QuoteFromInt(1_000)))
	require.True(t, bobPos.Collateral.Equal(decimalx.QuoteFromInt(1_000)))

	// The crash tick reuses t1 rather than advancing the clock: any
	// elapsed time here would settle a (tiny but nonzero, since funding
	// now moves a position's own Collateral rather than FreeBalance)
	// funding accrual into alice/bob's Collateral first, perturbing the
	// otherwise-exact numbers this scenario hand-derives below.
	_, err = e.Apply(OracleTick(testMarket, decimalx.PriceFromInt(900), t1))
	require.NoError(t, err)

	m := e.Markets[testMarket]
	assert.False(t, m.Halted(), "a 10%% move stays under the 15%% circuit-breaker threshold")

	_, aliceStillOpen := e.Accounts["alice"].Position(testMarket)
	assert.False(t, aliceStillOpen, "alice's position should have been liquidated")

	wantBobSize, err := decimalx.SizeFromString("9.1")
	require.NoError(t, err)

	bobPos, ok = e.Accounts["bob"].Position(testMarket)
	require.True(t, ok, "bob's position survives ADL, reduced rather than closed")
	assert.True(t, bobPos.Size.Equal(wantBobSize.Signed(decimalx.Sell)),
		"bob's short should be reduced from 10 to 9.1 by the 90-shortfall ADL pass")

	assert.True(t, e.InsuranceFund.IsZero(), "the bad debt and the ADL realized PnL that covers it must net to exactly zero")

	assert.True(t, m.OpenInterestLong.IsZero())
	assert.Equal(t, 0, m.OpenInterestShort.Cmp(wantBobSize))
}
