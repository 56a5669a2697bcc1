package risk

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ksfraser/WealthSystem-sub012/internal/core"
)

func newTestPortfolio() *core.Portfolio {
	p := core.NewPortfolio("p1", "u1", "USD", 10000, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	return p
}

func TestValidateApprovesWithinThresholds(t *testing.T) {
	v := NewValidator(DefaultThresholds(), zerolog.Nop())
	p := newTestPortfolio()
	prices := map[string]float64{"AAPL": 100}

	c := Candidate{Symbol: "AAPL", Sector: "tech", Value: 1000, RequiredCash: 1000, IsNewPosition: true}
	err := v.Validate(p, prices, map[string]string{"AAPL": "tech"}, nil, c)
	assert.NoError(t, err)
}

func TestValidateRejectsInsufficientCash(t *testing.T) {
	v := NewValidator(DefaultThresholds(), zerolog.Nop())
	p := newTestPortfolio()
	c := Candidate{Symbol: "AAPL", Value: 1000, RequiredCash: 20000, IsNewPosition: true}

	err := v.Validate(p, map[string]float64{"AAPL": 100}, nil, nil, c)
	require.Error(t, err)
	var rej *core.RiskRejectedError
	require.ErrorAs(t, err, &rej)
	assert.Equal(t, "insufficient_cash", rej.Reason)
}

func TestValidateRejectsInsufficientMarginWhenMarginRequired(t *testing.T) {
	v := NewValidator(DefaultThresholds(), zerolog.Nop())
	p := newTestPortfolio()
	c := Candidate{Symbol: "AAPL", Value: 1000, RequiredCash: 20000, IsNewPosition: true, MarginRequired: true}

	err := v.Validate(p, map[string]float64{"AAPL": 100}, nil, nil, c)
	require.Error(t, err)
	var rej *core.RiskRejectedError
	require.ErrorAs(t, err, &rej)
	assert.Equal(t, "insufficient_margin", rej.Reason)
}

func TestValidateRejectsMaxPositionSize(t *testing.T) {
	v := NewValidator(DefaultThresholds(), zerolog.Nop())
	p := newTestPortfolio()
	// 20% of net worth, above the 15% default max position size
	c := Candidate{Symbol: "AAPL", Value: 2000, RequiredCash: 2000, IsNewPosition: true}

	err := v.Validate(p, map[string]float64{"AAPL": 100}, nil, nil, c)
	require.Error(t, err)
	var rej *core.RiskRejectedError
	require.ErrorAs(t, err, &rej)
	assert.Equal(t, "max_position_size", rej.Reason)
}

func TestValidateRejectsMaxSectorAllocation(t *testing.T) {
	v := NewValidator(DefaultThresholds(), zerolog.Nop())
	p := newTestPortfolio()
	p.LongPositions["MSFT"] = core.LongPosition{Symbol: "MSFT", Shares: 20, AvgCost: 100}
	sectorOf := map[string]string{"MSFT": "tech", "AAPL": "tech"}
	prices := map[string]float64{"MSFT": 100, "AAPL": 100}

	// net worth is 12000 (10000 cash + 2000 MSFT); existing tech exposure
	// is 2000. Adding 1700 projects 3700/12000 = 30.8%, over the 30% cap,
	// while 1700/12000 = 14.2% still clears the 15% position-size check.
	c := Candidate{Symbol: "AAPL", Sector: "tech", Value: 1700, RequiredCash: 1700, IsNewPosition: true}
	err := v.Validate(p, prices, sectorOf, nil, c)
	require.Error(t, err)
	var rej *core.RiskRejectedError
	require.ErrorAs(t, err, &rej)
	assert.Equal(t, "max_sector_allocation", rej.Reason)
}

func TestValidateRejectsMaxCorrelationOnNewPositionsOnly(t *testing.T) {
	v := NewValidator(DefaultThresholds(), zerolog.Nop())
	p := newTestPortfolio()
	p.LongPositions["MSFT"] = core.LongPosition{Symbol: "MSFT", Shares: 5, AvgCost: 100}
	prices := map[string]float64{"MSFT": 100, "GOOG": 100}
	corr := &core.CorrelationMatrix{
		Symbols: []string{"MSFT", "GOOG"},
		Values: [][]float64{
			{1.0, 0.9},
			{0.9, 1.0},
		},
	}

	newEntry := Candidate{Symbol: "GOOG", Value: 100, RequiredCash: 100, IsNewPosition: true}
	err := v.Validate(p, prices, nil, corr, newEntry)
	require.Error(t, err)
	var rej *core.RiskRejectedError
	require.ErrorAs(t, err, &rej)
	assert.Equal(t, "max_correlation", rej.Reason)

	// An add to an existing position is grandfathered and skips the check.
	existing := Candidate{Symbol: "MSFT", Value: 100, RequiredCash: 100, IsNewPosition: false}
	err = v.Validate(p, prices, nil, corr, existing)
	assert.NoError(t, err)
}

func TestValidateRejectsMaxPositions(t *testing.T) {
	thresholds := DefaultThresholds()
	thresholds.MaxPositions = 1
	v := NewValidator(thresholds, zerolog.Nop())
	p := newTestPortfolio()
	p.LongPositions["MSFT"] = core.LongPosition{Symbol: "MSFT", Shares: 1, AvgCost: 100}

	c := Candidate{Symbol: "AAPL", Value: 10, RequiredCash: 10, IsNewPosition: true}
	err := v.Validate(p, map[string]float64{"MSFT": 100, "AAPL": 100}, nil, nil, c)
	require.Error(t, err)
	var rej *core.RiskRejectedError
	require.ErrorAs(t, err, &rej)
	assert.Equal(t, "max_positions", rej.Reason)
}
