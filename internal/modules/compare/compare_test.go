package compare

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ksfraser/WealthSystem-sub012/internal/core"
	"github.com/ksfraser/WealthSystem-sub012/internal/modules/backtest"
	"github.com/ksfraser/WealthSystem-sub012/internal/strategy"
)

func compareBarsOf(closes ...float64) []core.Bar {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	bars := make([]core.Bar, len(closes))
	for i, c := range closes {
		bars[i] = core.Bar{Date: base.AddDate(0, 0, i), Open: c, High: c, Low: c, Close: c, Volume: 1000}
	}
	return bars
}

// alwaysBuyStrategy buys once at the first opportunity and holds.
type alwaysBuyStrategy struct{ bought bool }

func (s *alwaysBuyStrategy) Name() string              { return "always_buy" }
func (s *alwaysBuyStrategy) Describe() string          { return "test fixture" }
func (s *alwaysBuyStrategy) SetParams(map[string]any)  {}
func (s *alwaysBuyStrategy) GetParams() map[string]any { return nil }
func (s *alwaysBuyStrategy) Analyze(symbol string, window []core.Bar, currentPrice float64) strategy.Signal {
	if s.bought {
		return strategy.Signal{Action: strategy.SignalHold}
	}
	s.bought = true
	return strategy.Signal{Action: strategy.SignalBuy}
}

// neverTradeStrategy always holds.
type neverTradeStrategy struct{}

func (s *neverTradeStrategy) Name() string              { return "never_trade" }
func (s *neverTradeStrategy) Describe() string          { return "test fixture" }
func (s *neverTradeStrategy) SetParams(map[string]any)  {}
func (s *neverTradeStrategy) GetParams() map[string]any { return nil }
func (s *neverTradeStrategy) Analyze(symbol string, window []core.Bar, currentPrice float64) strategy.Signal {
	return strategy.Signal{Action: strategy.SignalHold}
}

func TestCompareRejectsEmptyStrategySet(t *testing.T) {
	_, err := Compare(map[string]strategy.Strategy{}, "TEST", compareBarsOf(100, 110), backtest.Config{InitialCapital: 10000}, "total_return")
	assert.ErrorIs(t, err, core.ErrNoStrategies)
}

func TestCompareRanksByTotalReturn(t *testing.T) {
	strategies := map[string]strategy.Strategy{
		"buyer": &alwaysBuyStrategy{},
		"idle":  &neverTradeStrategy{},
	}
	bars := compareBarsOf(100, 110, 120, 130)
	rows, err := Compare(strategies, "TEST", bars, backtest.Config{InitialCapital: 10000}, "total_return")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "buyer", rows[0].StrategyName)
	assert.Equal(t, 1, rows[0].Rank)
	assert.Equal(t, 2, rows[1].Rank)
}

func TestWriteComparisonCSV(t *testing.T) {
	rows := []ComparisonRow{{Rank: 1, StrategyName: "buyer", TotalReturn: 12.5, TotalTrades: 1}}
	var buf bytes.Buffer
	err := WriteComparisonCSV(&buf, rows)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "Strategy Name")
	assert.Contains(t, buf.String(), "buyer")
}

func TestAccuracyTrackerRejectsHoldSignals(t *testing.T) {
	tracker := NewAccuracyTracker()
	err := tracker.Track(SignalRecord{Signal: strategy.SignalHold})
	assert.Error(t, err)
}

func TestAccuracyTrackerReportsOverallAndSplits(t *testing.T) {
	tracker := NewAccuracyTracker()
	require.NoError(t, tracker.Track(SignalRecord{Symbol: "AAA", Signal: strategy.SignalBuy, SignalPrice: 100, RealizedPrice: 110, Confidence: 0.9, Strategy: "s1", Sector: "tech", Index: "SP500", LookaheadDays: 5}))
	require.NoError(t, tracker.Track(SignalRecord{Symbol: "BBB", Signal: strategy.SignalSell, SignalPrice: 100, RealizedPrice: 110, Confidence: 0.5, Strategy: "s1", Sector: "tech", Index: "SP500", LookaheadDays: 5}))

	report := tracker.Report(0.70)
	assert.Equal(t, 50.0, report.Overall)
	assert.Equal(t, 100.0, report.HighConfidence)
	assert.Equal(t, 0.0, report.LowConfidence)
	assert.Equal(t, 0.70, report.ConfidenceThreshold)
}

func TestSignalRecordCorrectness(t *testing.T) {
	buy := SignalRecord{Signal: strategy.SignalBuy, SignalPrice: 100, RealizedPrice: 105}
	assert.True(t, buy.Correct())

	sell := SignalRecord{Signal: strategy.SignalSell, SignalPrice: 100, RealizedPrice: 95}
	assert.True(t, sell.Correct())

	wrongBuy := SignalRecord{Signal: strategy.SignalBuy, SignalPrice: 100, RealizedPrice: 95}
	assert.False(t, wrongBuy.Correct())
}

func TestWriteSignalAccuracyCSV(t *testing.T) {
	records := []SignalRecord{{Symbol: "AAA", Signal: strategy.SignalBuy, SignalPrice: 100, RealizedPrice: 110}}
	var buf bytes.Buffer
	err := WriteSignalAccuracyCSV(&buf, records)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "AAA")
}
