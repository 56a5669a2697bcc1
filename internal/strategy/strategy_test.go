package strategy

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ksfraser/WealthSystem-sub012/internal/core"
)

func strategyBarsOf(closes ...float64) []core.Bar {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	bars := make([]core.Bar, len(closes))
	for i, c := range closes {
		bars[i] = core.Bar{Date: base.AddDate(0, 0, i), Open: c, High: c, Low: c, Close: c, Volume: 1000}
	}
	return bars
}

func TestDefaultRegistryHasBuiltins(t *testing.T) {
	names := DefaultRegistry.Names()
	assert.Contains(t, names, "ma_crossover")
	assert.Contains(t, names, "rsi_mean_reversion")
}

func TestRegistryGetUnknownName(t *testing.T) {
	r := NewRegistry()
	_, err := r.Get("does_not_exist")
	assert.Error(t, err)
}

func TestMACrossoverHoldsWithInsufficientHistory(t *testing.T) {
	s := NewMACrossover(5, 10)
	bars := strategyBarsOf(100, 101, 102)
	signal := s.Analyze("TEST", bars, 102)
	assert.Equal(t, SignalHold, signal.Action)
}

func TestMACrossoverDetectsUpwardCross(t *testing.T) {
	s := NewMACrossover(2, 3)
	// Engineered so the 2-period SMA sits at/below the 3-period SMA through
	// the second-to-last bar, then crosses above it on the final bar.
	closes := []float64{100, 100, 100, 90, 150}
	bars := strategyBarsOf(closes...)
	signal := s.Analyze("TEST", bars, closes[len(closes)-1])
	assert.Equal(t, SignalBuy, signal.Action)
}

func TestRSIMeanReversionBuysWhenOversold(t *testing.T) {
	s := NewRSIMeanReversion(14, 30, 70)
	// A long, steep decline should push RSI well under 30.
	closes := make([]float64, 20)
	price := 100.0
	for i := range closes {
		price -= 2
		closes[i] = price
	}
	bars := strategyBarsOf(closes...)
	signal := s.Analyze("TEST", bars, closes[len(closes)-1])
	assert.Equal(t, SignalBuy, signal.Action)
}

func TestRegistryRegisterAndGet(t *testing.T) {
	r := NewRegistry()
	s := NewMACrossover(10, 20)
	r.Register(s)
	got, err := r.Get("ma_crossover")
	require.NoError(t, err)
	assert.Equal(t, s, got)
}
