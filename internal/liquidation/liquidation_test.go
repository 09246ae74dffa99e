package liquidation

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"fenrir/internal/decimalx"
	"fenrir/internal/position"
)

func TestIsLiquidatableScenario2Boundary(t *testing.T) {
	p := position.Open("alice", "BTC-PERP",
		decimalx.SizeFromInt(1).Signed(decimalx.Sell),
		decimalx.PriceFromInt(50_000),
		decimalx.QuoteFromInt(2_500),
		decimalx.NewLeverageInt(20),
		decimalx.ZeroRatio(),
		decimalx.Timestamp(0),
	)

	// mark 51,250: equity = 2500 + (-1250) = 1250 = MM exactly -> not liquidatable.
	assert.False(t, IsLiquidatable(p, decimalx.PriceFromInt(51_250), decimalx.ZeroQuote()))

	// mark 51,251: equity dips just under MM -> liquidatable.
	mark, err := decimalx.PriceFromString("51251")
	assert.NoError(t, err)
	assert.True(t, IsLiquidatable(p, mark, decimalx.ZeroQuote()))
}

func TestLiquidateScenario2PenaltySplit(t *testing.T) {
	p := position.Open("alice", "BTC-PERP",
		decimalx.SizeFromInt(1).Signed(decimalx.Sell),
		decimalx.PriceFromInt(50_000),
		decimalx.QuoteFromInt(2_500),
		decimalx.NewLeverageInt(20),
		decimalx.ZeroRatio(),
		decimalx.Timestamp(0),
	)

	mark, err := decimalx.PriceFromString("51251")
	assert.NoError(t, err)

	result := Liquidate(p, mark, DefaultParams())

	// notional = 51251, penalty = 1% = 512.51
	assert.True(t, result.Penalty.Equal(mustQuote(t, "512.51")))
	assert.True(t, result.LiquidatorCut.Equal(mustQuote(t, "256.255")))
	assert.True(t, result.InsuranceCut.Equal(mustQuote(t, "256.255")))
	assert.True(t, result.BadDebt.IsZero())
}

func TestLiquidateProducesBadDebtWhenCollateralInsufficient(t *testing.T) {
	p := position.Open("bob", "BTC-PERP",
		decimalx.SizeFromInt(10).Signed(decimalx.Buy),
		decimalx.PriceFromInt(50_000),
		decimalx.QuoteFromInt(10_000),
		decimalx.NewLeverageInt(50),
		decimalx.ZeroRatio(),
		decimalx.Timestamp(0),
	)

	result := Liquidate(p, decimalx.PriceFromInt(48_000), DefaultParams())
	assert.True(t, result.BadDebt.IsPositive())
	assert.True(t, result.ReturnedToAccount.IsZero())
}

func TestRankForADLOrdersByPnLRatioThenSizeThenAccount(t *testing.T) {
	mkCandidate := func(acct string, ratio int64, size int64) ADLCandidate {
		p := position.Open(decimalx.AccountId(acct), "BTC-PERP",
			decimalx.SizeFromInt(size).Signed(decimalx.Sell),
			decimalx.PriceFromInt(50_000), decimalx.QuoteFromInt(1_000),
			decimalx.NewLeverageInt(10), decimalx.ZeroRatio(), decimalx.Timestamp(0))
		return ADLCandidate{
			Position:           p,
			AccountID:          decimalx.AccountId(acct),
			UnrealizedPnLRatio: decimalx.RatioFromFloat(float64(ratio) / 100),
		}
	}

	candidates := []ADLCandidate{
		mkCandidate("carol", 50, 1),
		mkCandidate("alice", 80, 2),
		mkCandidate("bob", 80, 2),
	}

	ranked := RankForADL(candidates)
	assert.Equal(t, decimalx.AccountId("alice"), ranked[0].AccountID)
	assert.Equal(t, decimalx.AccountId("bob"), ranked[1].AccountID)
	assert.Equal(t, decimalx.AccountId("carol"), ranked[2].AccountID)
}

func TestRunADLFullyClosesCandidateWhenShortfallExceedsPnL(t *testing.T) {
	p1 := position.Open(decimalx.AccountId("alice"), "BTC-PERP",
		decimalx.SizeFromInt(4).Signed(decimalx.Sell),
		decimalx.PriceFromInt(50_000), decimalx.QuoteFromInt(4_000),
		decimalx.NewLeverageInt(10), decimalx.ZeroRatio(), decimalx.Timestamp(0))

	ranked := []ADLCandidate{{Position: p1, AccountID: "alice", UnrealizedPnLRatio: decimalx.RatioFromFloat(0.5)}}

	steps := RunADL(ranked, decimalx.QuoteFromInt(100_000), decimalx.PriceFromInt(48_000))
	assert.Len(t, steps, 1)
	assert.Equal(t, 0, steps[0].ReducedBy.Cmp(decimalx.SizeFromInt(4)))
}

func mustQuote(t *testing.T, s string) decimalx.Quote {
	t.Helper()
	q, err := decimalx.QuoteFromString(s)
	assert.NoError(t, err)
	return q
}
