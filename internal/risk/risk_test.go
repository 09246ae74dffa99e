package risk

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fenrir/internal/decimalx"
)

func TestAdmitRejectsStaleOracle(t *testing.T) {
	in := AdmissionInput{
		Now:            decimalx.Timestamp(20_000),
		LastOracleTime: decimalx.Timestamp(0),
		Mark:           decimalx.PriceFromInt(50_000),
		OrderPrice:     decimalx.PriceFromInt(50_000),
		AvailableMargin: decimalx.QuoteFromInt(10_000),
	}
	require.ErrorIs(t, Admit(in, DefaultParams()), ErrOraclePriceStale)
}

func TestAdmitRejectsHalted(t *testing.T) {
	in := AdmissionInput{
		Now:            decimalx.Timestamp(1_000),
		LastOracleTime: decimalx.Timestamp(0),
		Halted:         true,
		Mark:           decimalx.PriceFromInt(50_000),
		OrderPrice:     decimalx.PriceFromInt(50_000),
	}
	require.ErrorIs(t, Admit(in, DefaultParams()), ErrMarketHalted)
}

func TestAdmitRejectsPriceDeviation(t *testing.T) {
	in := AdmissionInput{
		Now:            decimalx.Timestamp(1_000),
		LastOracleTime: decimalx.Timestamp(0),
		Mark:           decimalx.PriceFromInt(50_000),
		OrderPrice:     decimalx.PriceFromInt(60_000),
		AvailableMargin: decimalx.QuoteFromInt(10_000),
	}
	require.ErrorIs(t, Admit(in, DefaultParams()), ErrPriceDeviationTooLarge)
}

func TestAdmitRejectsInsufficientMargin(t *testing.T) {
	in := AdmissionInput{
		Now:            decimalx.Timestamp(1_000),
		LastOracleTime: decimalx.Timestamp(0),
		Mark:           decimalx.PriceFromInt(50_000),
		OrderPrice:     decimalx.PriceFromInt(50_000),
		AvailableMargin: decimalx.QuoteFromInt(100),
		RequiredMargin:  decimalx.QuoteFromInt(5_000),
	}
	require.ErrorIs(t, Admit(in, DefaultParams()), ErrInsufficientMargin)
}

func TestAdmitAcceptsHealthyOrder(t *testing.T) {
	in := AdmissionInput{
		Now:            decimalx.Timestamp(1_000),
		LastOracleTime: decimalx.Timestamp(0),
		Mark:           decimalx.PriceFromInt(50_000),
		OrderPrice:     decimalx.PriceFromInt(50_000),
		AvailableMargin: decimalx.QuoteFromInt(10_000),
		RequiredMargin:  decimalx.QuoteFromInt(5_000),
	}
	assert.NoError(t, Admit(in, DefaultParams()))
}

func TestObserveMarkTripsBreakerOnLargeDrop(t *testing.T) {
	params := DefaultParams()
	state := CircuitState{}

	state, tripped, _ := ObserveMark(state, decimalx.PriceFromInt(50_000), decimalx.Timestamp(0), params)
	assert.False(t, tripped)

	state, tripped, _ = ObserveMark(state, decimalx.PriceFromInt(42_000), decimalx.Timestamp(10_000), params)
	assert.True(t, tripped)
	assert.True(t, state.Halted)
}

func TestObserveMarkResetsWindowAfterExpiry(t *testing.T) {
	params := DefaultParams()
	state := CircuitState{}

	state, _, _ = ObserveMark(state, decimalx.PriceFromInt(50_000), decimalx.Timestamp(0), params)
	state, tripped, _ := ObserveMark(state, decimalx.PriceFromInt(42_000), decimalx.Timestamp(70_000), params)
	assert.False(t, tripped, "window should have rolled over, treating 42k as the new baseline")
}
