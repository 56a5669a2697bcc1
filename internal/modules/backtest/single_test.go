package backtest

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ksfraser/WealthSystem-sub012/internal/core"
	"github.com/ksfraser/WealthSystem-sub012/internal/strategy"
)

// scriptedStrategy emits a fixed sequence of signals, one per call to
// Analyze, repeating the last entry once the script is exhausted.
type scriptedStrategy struct {
	script []strategy.SignalAction
	calls  int
}

func (s *scriptedStrategy) Name() string        { return "scripted" }
func (s *scriptedStrategy) Describe() string    { return "test fixture" }
func (s *scriptedStrategy) SetParams(map[string]any) {}
func (s *scriptedStrategy) GetParams() map[string]any { return nil }

func (s *scriptedStrategy) Analyze(symbol string, window []core.Bar, currentPrice float64) strategy.Signal {
	idx := s.calls
	if idx >= len(s.script) {
		idx = len(s.script) - 1
	}
	s.calls++
	return strategy.Signal{Action: s.script[idx], Confidence: 1.0}
}

func barsOf(closes ...float64) []core.Bar {
	bars := make([]core.Bar, len(closes))
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, c := range closes {
		bars[i] = core.Bar{Symbol: "TEST", Date: base.AddDate(0, 0, i), Open: c, High: c, Low: c, Close: c, Volume: 1000}
	}
	return bars
}

func TestRunRejectsEmptyInputs(t *testing.T) {
	cfg := Config{InitialCapital: 10000}
	strat := &scriptedStrategy{script: []strategy.SignalAction{strategy.SignalHold}}

	_, err := Run(strat, "", barsOf(100), cfg)
	assert.ErrorIs(t, err, core.ErrInvalidInput)

	_, err = Run(strat, "TEST", nil, cfg)
	assert.ErrorIs(t, err, core.ErrInvalidInput)

	_, err = Run(strat, "TEST", barsOf(100), Config{InitialCapital: 0})
	assert.ErrorIs(t, err, core.ErrInvalidInput)
}

func TestRunBuyAndHoldNoLookAhead(t *testing.T) {
	cfg := Config{InitialCapital: 10000, CommissionRate: 0.001, SlippageRate: 0.0005}
	strat := &scriptedStrategy{script: []strategy.SignalAction{strategy.SignalBuy, strategy.SignalHold, strategy.SignalHold}}
	bars := barsOf(100, 105, 110)

	result, err := Run(strat, "TEST", bars, cfg)
	require.NoError(t, err)
	require.Len(t, result.TradeLog, 1)

	fill := 100 * 1.0005
	wantShares := int((10000 / (fill * 1.001)))
	assert.Equal(t, wantShares, result.TradeLog[0].Shares)
	assert.Equal(t, fill, result.TradeLog[0].FillPrice)
	assert.Len(t, result.EquityCurve, 3)
}

func TestRunSellWithNoPositionIsRejectedAsShort(t *testing.T) {
	cfg := Config{InitialCapital: 10000}
	strat := &scriptedStrategy{script: []strategy.SignalAction{strategy.SignalSell}}
	bars := barsOf(100)

	result, err := Run(strat, "TEST", bars, cfg)
	require.NoError(t, err)
	assert.Empty(t, result.TradeLog)
	assert.Equal(t, 10000.0, result.EquityCurve[0].NetWorth)
}

func TestRunFullRoundTripRealizesGain(t *testing.T) {
	cfg := Config{InitialCapital: 10000, CommissionRate: 0, SlippageRate: 0}
	strat := &scriptedStrategy{script: []strategy.SignalAction{strategy.SignalBuy, strategy.SignalHold, strategy.SignalSell}}
	bars := barsOf(100, 105, 120)

	result, err := Run(strat, "TEST", bars, cfg)
	require.NoError(t, err)
	require.Len(t, result.TradeLog, 2)
	assert.Greater(t, result.FinalValue, cfg.InitialCapital)
	assert.Greater(t, result.ReturnPct, 0.0)
}

func TestMaxDrawdownZeroOnMonotoneIncreasingCurve(t *testing.T) {
	cfg := Config{InitialCapital: 10000}
	strat := &scriptedStrategy{script: []strategy.SignalAction{strategy.SignalBuy, strategy.SignalHold, strategy.SignalHold, strategy.SignalHold}}
	bars := barsOf(100, 110, 120, 130)

	result, err := Run(strat, "TEST", bars, cfg)
	require.NoError(t, err)
	assert.Equal(t, 0.0, result.MaxDrawdown)
}
