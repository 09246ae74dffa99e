package market

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"fenrir/internal/decimalx"
)

func TestApplyOracleTickUpdatesMarkAndNoTripOnSmallMove(t *testing.T) {
	m := New("BTC-PERP", DefaultParams())

	tripped, _ := m.ApplyOracleTick(decimalx.PriceFromInt(50_000), decimalx.Timestamp(0))
	assert.False(t, tripped)
	assert.True(t, m.Mark.MarkPrice.Equal(decimalx.PriceFromInt(50_000)))
}

func TestApplyOracleTickTripsCircuitOnCrash(t *testing.T) {
	m := New("BTC-PERP", DefaultParams())
	m.ApplyOracleTick(decimalx.PriceFromInt(50_000), decimalx.Timestamp(0))

	tripped, _ := m.ApplyOracleTick(decimalx.PriceFromInt(40_000), decimalx.Timestamp(5_000))
	assert.True(t, tripped)
	assert.True(t, m.Halted())
}

func TestSettleFundingAdvancesIndexAfterElapsedTime(t *testing.T) {
	m := New("BTC-PERP", DefaultParams())
	m.ApplyOracleTick(decimalx.PriceFromInt(50_000), decimalx.Timestamp(0))

	rate := m.SettleFunding(decimalx.Timestamp(28_800_000))
	assert.False(t, rate.IsZero())
}

func TestOpenInterestBookkeeping(t *testing.T) {
	m := New("BTC-PERP", DefaultParams())
	m.IncreaseLongOI(decimalx.SizeFromInt(5))
	m.IncreaseShortOI(decimalx.SizeFromInt(5))
	assert.Equal(t, 0, m.OpenInterestLong.Cmp(m.OpenInterestShort))

	m.DecreaseLongOI(decimalx.SizeFromInt(2))
	assert.Equal(t, 0, m.OpenInterestLong.Cmp(decimalx.SizeFromInt(3)))
}
