package optimizer

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ksfraser/WealthSystem-sub012/internal/core"
	"github.com/ksfraser/WealthSystem-sub012/internal/modules/backtest"
	"github.com/ksfraser/WealthSystem-sub012/internal/strategy"
)

func TestCartesianProductIsDeterministic(t *testing.T) {
	grid := ParameterGrid{
		"fast": {10, 20},
		"slow": {50, 100},
	}
	a := CartesianProduct(grid)
	b := CartesianProduct(grid)
	require.Len(t, a, 4)
	assert.Equal(t, a, b)
}

func TestCartesianProductEmptyGrid(t *testing.T) {
	assert.Nil(t, CartesianProduct(ParameterGrid{}))
}

func optimizerBarsOf(closes ...float64) []core.Bar {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	bars := make([]core.Bar, len(closes))
	for i, c := range closes {
		bars[i] = core.Bar{Date: base.AddDate(0, 0, i), Open: c, High: c, Low: c, Close: c, Volume: 1000}
	}
	return bars
}

// thresholdStrategy buys once price crosses threshold and holds afterward.
type thresholdStrategy struct {
	threshold float64
	bought    bool
}

func (s *thresholdStrategy) Name() string              { return "threshold" }
func (s *thresholdStrategy) Describe() string          { return "test fixture" }
func (s *thresholdStrategy) SetParams(p map[string]any) {
	if v, ok := p["threshold"]; ok {
		s.threshold = v.(float64)
	}
}
func (s *thresholdStrategy) GetParams() map[string]any {
	return map[string]any{"threshold": s.threshold}
}
func (s *thresholdStrategy) Analyze(symbol string, window []core.Bar, currentPrice float64) strategy.Signal {
	if !s.bought && currentPrice >= s.threshold {
		s.bought = true
		return strategy.Signal{Action: strategy.SignalBuy}
	}
	return strategy.Signal{Action: strategy.SignalHold}
}

func TestOptimizeRejectsEmptyGrid(t *testing.T) {
	factory := func(params map[string]any) strategy.Strategy { return &thresholdStrategy{} }
	_, err := Optimize(context.Background(), factory, ParameterGrid{}, "TEST", optimizerBarsOf(100, 110), backtest.Config{InitialCapital: 10000}, MetricTotalReturn, 0)
	assert.ErrorIs(t, err, core.ErrInvalidParameter)
}

func TestOptimizeFindsBestParameters(t *testing.T) {
	factory := func(params map[string]any) strategy.Strategy {
		return &thresholdStrategy{threshold: params["threshold"].(float64)}
	}
	grid := ParameterGrid{"threshold": {105.0, 115.0}}
	bars := optimizerBarsOf(100, 110, 120, 130)

	result, err := Optimize(context.Background(), factory, grid, "TEST", bars, backtest.Config{InitialCapital: 10000}, MetricTotalReturn, 2)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Iterations)
	assert.NotNil(t, result.BestParameters)
	assert.GreaterOrEqual(t, result.BestScore, result.WorstScore)
}

func TestWalkForwardRejectsInsufficientData(t *testing.T) {
	factory := func(params map[string]any) strategy.Strategy { return &thresholdStrategy{} }
	grid := ParameterGrid{"threshold": {105.0}}
	bars := optimizerBarsOf(100, 110)

	_, err := WalkForward(context.Background(), factory, grid, "TEST", bars, backtest.Config{InitialCapital: 10000}, MetricTotalReturn, 10, 10, 1)
	assert.ErrorIs(t, err, core.ErrInsufficientData)
}

func TestWalkForwardOverfittingRatioIsClamped(t *testing.T) {
	factory := func(params map[string]any) strategy.Strategy {
		return &thresholdStrategy{threshold: params["threshold"].(float64)}
	}
	grid := ParameterGrid{"threshold": {105.0, 115.0}}

	closes := make([]float64, 20)
	for i := range closes {
		closes[i] = 100 + float64(i)
	}
	bars := optimizerBarsOf(closes...)

	result, err := WalkForward(context.Background(), factory, grid, "TEST", bars, backtest.Config{InitialCapital: 10000}, MetricTotalReturn, 8, 4, 2)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, result.OverfittingRatio, 0.0)
	assert.LessOrEqual(t, result.OverfittingRatio, 2.0)
}
