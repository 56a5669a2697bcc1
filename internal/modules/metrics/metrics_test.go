package metrics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/ksfraser/WealthSystem-sub012/internal/core"
)

func curveOf(values ...float64) []core.EquityPoint {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	out := make([]core.EquityPoint, len(values))
	for i, v := range values {
		out[i] = core.EquityPoint{Date: base.AddDate(0, 0, i), NetWorth: v}
	}
	return out
}

func TestCalculateEmptyCurveReturnsZeroValue(t *testing.T) {
	m := Calculate(nil, nil, 0, 0)
	assert.Equal(t, Metrics{}, m)
}

func TestCalculateTotalReturn(t *testing.T) {
	curve := curveOf(10000, 10500, 11000)
	m := Calculate(nil, curve, 3, 0)
	assert.InDelta(t, 10.0, m.TotalReturn, 1e-9)
}

func TestCalculateMaxDrawdownZeroOnMonotoneIncreasingCurve(t *testing.T) {
	curve := curveOf(10000, 10500, 11000, 12000)
	m := Calculate(nil, curve, 4, 0)
	assert.Equal(t, 0.0, m.MaxDrawdown)
}

func TestCalculateMaxDrawdownNegativeOnDip(t *testing.T) {
	curve := curveOf(10000, 9000, 9500)
	m := Calculate(nil, curve, 3, 0)
	assert.Less(t, m.MaxDrawdown, 0.0)
}

func TestCalculateWinRateAndProfitFactorOnEmptyTradeLog(t *testing.T) {
	curve := curveOf(10000, 10000)
	m := Calculate(nil, curve, 2, 0)
	assert.Equal(t, 0.0, m.WinRate)
	assert.Equal(t, 0.0, m.ProfitFactor)
}

func TestCalculateWinRateFromTradeLog(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	tradeLog := []core.Trade{
		{Symbol: "AAA", Action: core.TradeBuy, Shares: 10, FillPrice: 100, Date: base},
		{Symbol: "AAA", Action: core.TradeSell, Shares: 10, FillPrice: 110, Date: base.AddDate(0, 0, 1)},
		{Symbol: "AAA", Action: core.TradeBuy, Shares: 10, FillPrice: 100, Date: base.AddDate(0, 0, 2)},
		{Symbol: "AAA", Action: core.TradeSell, Shares: 10, FillPrice: 90, Date: base.AddDate(0, 0, 3)},
	}
	curve := curveOf(10000, 10100, 10200, 10100, 10000)
	m := Calculate(tradeLog, curve, 5, 0)
	assert.InDelta(t, 50.0, m.WinRate, 1e-9)
	assert.Greater(t, m.ProfitFactor, 0.0)
}

func TestCalculateIsPure(t *testing.T) {
	curve := curveOf(10000, 10500, 9000, 11000)
	m1 := Calculate(nil, curve, 4, 0)
	m2 := Calculate(nil, curve, 4, 0)
	assert.Equal(t, m1, m2)
}
