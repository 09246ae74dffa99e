package position

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fenrir/internal/decimalx"
)

func TestUnrealizedPnLAtEntryIsZero(t *testing.T) {
	p := Open("acct", "BTC-PERP", decimalx.SizeFromInt(1).Signed(decimalx.Buy), decimalx.PriceFromInt(50_000), decimalx.QuoteFromInt(5_000), decimalx.NewLeverageInt(10), decimalx.ZeroRatio(), 0)
	assert.True(t, p.UnrealizedPnL(p.EntryPrice).IsZero())
}

func TestScenario1DepositOpenMarkCloseLong(t *testing.T) {
	// Long 1 BTC at 50,000; mark rises to 55,000 -> unrealized +5,000.
	p := Open("acct", "BTC-PERP", decimalx.SizeFromInt(1).Signed(decimalx.Buy), decimalx.PriceFromInt(50_000), decimalx.QuoteFromInt(5_000), decimalx.NewLeverageInt(10), decimalx.ZeroRatio(), 0)

	upnl := p.UnrealizedPnL(decimalx.PriceFromInt(55_000))
	assert.True(t, upnl.Equal(decimalx.QuoteFromInt(5_000)))

	// Close: fill opposite side with equal size.
	result := p.ApplyFill(decimalx.SizeFromInt(1).Signed(decimalx.Sell), decimalx.PriceFromInt(55_000))
	require.True(t, result.Closed)
	assert.True(t, result.RealizedPnL.Equal(decimalx.QuoteFromInt(5_000)))
	assert.True(t, p.Size.IsZero())
}

func TestWeightedEntryOnIncrease(t *testing.T) {
	p := Open("acct", "BTC-PERP", decimalx.SizeFromInt(1).Signed(decimalx.Buy), decimalx.PriceFromInt(100), decimalx.QuoteFromInt(10), decimalx.NewLeverageInt(10), decimalx.ZeroRatio(), 0)

	p.ApplyFill(decimalx.SizeFromInt(1).Signed(decimalx.Buy), decimalx.PriceFromInt(200))

	// entry = (1*100 + 1*200) / 2 = 150
	assert.True(t, p.EntryPrice.Equal(decimalx.PriceFromInt(150)))
	assert.True(t, p.Size.Equal(decimalx.SizeFromInt(2).Signed(decimalx.Buy)))
}

func TestReduceKeepsEntryPrice(t *testing.T) {
	p := Open("acct", "BTC-PERP", decimalx.SizeFromInt(2).Signed(decimalx.Buy), decimalx.PriceFromInt(100), decimalx.QuoteFromInt(20), decimalx.NewLeverageInt(10), decimalx.ZeroRatio(), 0)

	result := p.ApplyFill(decimalx.SizeFromInt(1).Signed(decimalx.Sell), decimalx.PriceFromInt(120))

	assert.False(t, result.Closed)
	assert.True(t, p.EntryPrice.Equal(decimalx.PriceFromInt(100)))
	assert.True(t, result.RealizedPnL.Equal(decimalx.QuoteFromInt(20)))
	assert.True(t, p.Size.Equal(decimalx.SizeFromInt(1).Signed(decimalx.Buy)))
}

func TestFlipProducesRemainderForNewPosition(t *testing.T) {
	p := Open("acct", "BTC-PERP", decimalx.SizeFromInt(1).Signed(decimalx.Buy), decimalx.PriceFromInt(100), decimalx.QuoteFromInt(10), decimalx.NewLeverageInt(10), decimalx.ZeroRatio(), 0)

	result := p.ApplyFill(decimalx.SizeFromInt(3).Signed(decimalx.Sell), decimalx.PriceFromInt(110))

	require.True(t, result.Closed)
	require.NotNil(t, result.FlipRemainder)
	assert.True(t, result.FlipRemainder.Equal(decimalx.SizeFromInt(2).Signed(decimalx.Sell)))
	assert.True(t, result.RealizedPnL.Equal(decimalx.QuoteFromInt(10)))
}
