package mark

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"fenrir/internal/decimalx"
)

func TestOnOracleTickOneSidedBookTreatsMidAsIndex(t *testing.T) {
	params := DefaultParams()
	prev := State{SmoothedPremium: decimalx.ZeroRatio()}

	got := OnOracleTick(prev, nil, decimalx.PriceFromInt(100), decimalx.Timestamp(1000), params)

	assert.True(t, got.SmoothedPremium.IsZero())
	assert.True(t, got.MarkPrice.Equal(decimalx.PriceFromInt(100)))
}

func TestOnOracleTickClampsPremium(t *testing.T) {
	params := DefaultParams()
	prev := State{SmoothedPremium: decimalx.ZeroRatio()}
	mid := decimalx.PriceFromInt(200) // +100% raw premium, clamps to +5%

	got := OnOracleTick(prev, &mid, decimalx.PriceFromInt(100), decimalx.Timestamp(1000), params)

	// smoothed = 0.1 * 0.05 = 0.005
	assert.True(t, got.SmoothedPremium.Equal(decimalx.RatioFromFloat(0.005)))
}

func TestIsStale(t *testing.T) {
	state := State{LastOracleTime: decimalx.Timestamp(1000)}
	assert.False(t, IsStale(state, decimalx.Timestamp(1500), 1000))
	assert.True(t, IsStale(state, decimalx.Timestamp(2001), 1000))
}
