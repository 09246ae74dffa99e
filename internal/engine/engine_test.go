package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fenrir/internal/book"
	"fenrir/internal/decimalx"
	"fenrir/internal/eventlog"
	"fenrir/internal/market"
)

const testMarket = decimalx.MarketId("BTC-PERP")

func TestApplyDepositAndWithdraw(t *testing.T) {
	e := New()

	events, err := e.Apply(Deposit("alice", decimalx.QuoteFromInt(10_000)))
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, eventlog.Deposited, events[0].Kind)
	assert.True(t, e.Accounts["alice"].FreeBalance.Equal(decimalx.QuoteFromInt(10_000)))

	events, err = e.Apply(Withdraw("alice", decimalx.QuoteFromInt(4_000)))
	require.NoError(t, err)
	assert.Equal(t, eventlog.Withdrawn, events[0].Kind)
	assert.True(t, e.Accounts["alice"].FreeBalance.Equal(decimalx.QuoteFromInt(6_000)))

	_, err = e.Apply(Withdraw("bob", decimalx.QuoteFromInt(100)))
	require.ErrorIs(t, err, ErrAccountNotFound)
}

// openSymmetricPositions brings up alice long and bob short, one unit each
// at 50,000 with 10x leverage, crossing alice's resting limit order against
// bob's market order — the scenario spec.md §8 describes for matching and
// position bookkeeping. now is the timestamp the opening trade commits at.
func openSymmetricPositions(t *testing.T, e *Engine, now decimalx.Timestamp) {
	t.Helper()

	_, err := e.Apply(Deposit("alice", decimalx.QuoteFromInt(10_000)))
	require.NoError(t, err)
	_, err = e.Apply(Deposit("bob", decimalx.QuoteFromInt(10_000)))
	require.NoError(t, err)

	events, err := e.Apply(PlaceOrder(OrderSpec{
		ID:         "alice-open",
		AccountID:  "alice",
		MarketID:   testMarket,
		Side:       decimalx.Buy,
		Kind:       book.Limit,
		Size:       decimalx.SizeFromInt(1),
		LimitPrice: decimalx.PriceFromInt(50_000),
		Leverage:   decimalx.NewLeverageInt(10),
		CreatedAt:  now,
	}))
	require.NoError(t, err)
	// The resting order itself, then the pipeline's funding settlement for
	// the 100ms elapsed since the oracle tick.
	require.Len(t, events, 2)
	assert.Equal(t, eventlog.OrderPlaced, events[0].Kind)
	assert.Equal(t, eventlog.FundingSettled, events[1].Kind)

	events, err = e.Apply(PlaceOrder(OrderSpec{
		ID:        "bob-open",
		AccountID: "bob",
		MarketID:  testMarket,
		Side:      decimalx.Sell,
		Kind:      book.Market,
		Size:      decimalx.SizeFromInt(1),
		Leverage:  decimalx.NewLeverageInt(10),
		CreatedAt: now,
	}))
	require.NoError(t, err)

	kinds := make([]eventlog.Kind, len(events))
	for i, ev := range events {
		kinds[i] = ev.Kind
	}
	assert.Contains(t, kinds, eventlog.OrderMatched)
	assert.Contains(t, kinds, eventlog.PositionOpened)
}

func TestPlaceOrderMatchingOpensSymmetricPositions(t *testing.T) {
	e := New()
	e.AddMarket(testMarket, market.DefaultParams())

	now := decimalx.Timestamp(1_000)
	_, err := e.Apply(OracleTick(testMarket, decimalx.PriceFromInt(50_000), now))
	require.NoError(t, err)

	openSymmetricPositions(t, e, now+100)

	alice, bob := e.Accounts["alice"], e.Accounts["bob"]
	alicePos, ok := alice.Position(testMarket)
	require.True(t, ok)
	bobPos, ok := bob.Position(testMarket)
	require.True(t, ok)

	assert.True(t, alicePos.Size.IsLong())
	assert.True(t, bobPos.Size.IsShort())
	assert.Equal(t, 0, alicePos.Size.Abs().Cmp(bobPos.Size.Abs()))

	// Both sides reserved exactly their own requested margin (notional
	// 50,000 / 10x = 5,000) — the maker (alice) no less than the taker
	// (bob), per the OrderMargin lookup fix (see DESIGN.md).
	assert.True(t, alicePos.Collateral.Equal(decimalx.QuoteFromInt(5_000)))
	assert.True(t, bobPos.Collateral.Equal(decimalx.QuoteFromInt(5_000)))
	assert.True(t, alice.FreeBalance.Equal(decimalx.QuoteFromInt(5_000)))
	assert.True(t, alice.ReservedCollateral.Equal(decimalx.QuoteFromInt(5_000)))

	m := e.Markets[testMarket]
	assert.Equal(t, 0, m.OpenInterestLong.Cmp(decimalx.SizeFromInt(1)))
	assert.Equal(t, 0, m.OpenInterestShort.Cmp(decimalx.SizeFromInt(1)))
}

func TestReduceOnlyOrderDoesNotReserveMargin(t *testing.T) {
	e := New()
	e.AddMarket(testMarket, market.DefaultParams())

	now := decimalx.Timestamp(1_000)
	_, err := e.Apply(OracleTick(testMarket, decimalx.PriceFromInt(50_000), now))
	require.NoError(t, err)

	// Alice deposits exactly enough to open one fully-leveraged position
	// and nothing more, so any fresh margin reservation on the way out
	// would be rejected for insufficient free balance.
	_, err = e.Apply(Deposit("alice", decimalx.QuoteFromInt(5_000)))
	require.NoError(t, err)
	_, err = e.Apply(Deposit("bob", decimalx.QuoteFromInt(10_000)))
	require.NoError(t, err)

	_, err = e.Apply(PlaceOrder(OrderSpec{
		ID:         "alice-open",
		AccountID:  "alice",
		MarketID:   testMarket,
		Side:       decimalx.Buy,
		Kind:       book.Limit,
		Size:       decimalx.SizeFromInt(1),
		LimitPrice: decimalx.PriceFromInt(50_000),
		Leverage:   decimalx.NewLeverageInt(10),
		CreatedAt:  now + 100,
	}))
	require.NoError(t, err)

	_, err = e.Apply(PlaceOrder(OrderSpec{
		ID:        "bob-open",
		AccountID: "bob",
		MarketID:  testMarket,
		Side:      decimalx.Sell,
		Kind:      book.Market,
		Size:      decimalx.SizeFromInt(1),
		Leverage:  decimalx.NewLeverageInt(10),
		CreatedAt: now + 100,
	}))
	require.NoError(t, err)

	alice := e.Accounts["alice"]
	require.True(t, alice.FreeBalance.IsZero(), "alice should be fully margined after opening")

	// A reduce-only close (opposite side, same size as the open position)
	// must not try to reserve fresh margin it doesn't have.
	_, err = e.Apply(PlaceOrder(OrderSpec{
		ID:         "alice-close",
		AccountID:  "alice",
		MarketID:   testMarket,
		Side:       decimalx.Sell,
		Kind:       book.Limit,
		Size:       decimalx.SizeFromInt(1),
		LimitPrice: decimalx.PriceFromInt(50_000),
		Leverage:   decimalx.NewLeverageInt(10),
		CreatedAt:  now + 200,
	}))
	assert.NoError(t, err, "reduce-only order must not be rejected for insufficient margin")
	assert.True(t, alice.FreeBalance.IsZero(), "reduce-only order reserves nothing up front")
}

func TestFundingSettlementIsZeroSumAcrossOppositePositions(t *testing.T) {
	e := New()
	e.AddMarket(testMarket, market.DefaultParams())

	now := decimalx.Timestamp(1_700_000_000_000)
	_, err := e.Apply(OracleTick(testMarket, decimalx.PriceFromInt(50_000), now))
	require.NoError(t, err)

	openSymmetricPositions(t, e, now+100)

	later := now + 3_600_000
	events, err := e.Apply(Tick(later))
	require.NoError(t, err)

	var found bool
	for _, ev := range events {
		if ev.Kind != eventlog.FundingSettled {
			continue
		}
		found = true
		payload := ev.Payload.(eventlog.FundingSettledPayload)
		assert.True(t, payload.Residual.IsZero(), "a long and a short of equal size must net to zero funding residual")
	}
	assert.True(t, found, "expected at least one FundingSettled event")
	assert.True(t, e.InsuranceFund.IsZero())
}

func TestSortedAccountAndMarketIDsAreDeterministic(t *testing.T) {
	e := New()
	for _, id := range []decimalx.AccountId{"zeta", "alpha", "mike", "echo", "bravo"} {
		e.getOrCreateAccount(id)
	}
	for _, id := range []decimalx.MarketId{"ZETA-PERP", "ALPHA-PERP", "MIKE-PERP"} {
		e.AddMarket(id, market.DefaultParams())
	}

	wantAccounts := []decimalx.AccountId{"alpha", "bravo", "echo", "mike", "zeta"}
	wantMarkets := []decimalx.MarketId{"ALPHA-PERP", "MIKE-PERP", "ZETA-PERP"}

	for i := 0; i < 5; i++ {
		assert.Equal(t, wantAccounts, e.sortedAccountIDs())
		assert.Equal(t, wantMarkets, e.sortedMarketIDs())
	}
}
