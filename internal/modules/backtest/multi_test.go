package backtest

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ksfraser/WealthSystem-sub012/internal/core"
	"github.com/ksfraser/WealthSystem-sub012/internal/modules/risk"
	"github.com/ksfraser/WealthSystem-sub012/internal/strategy"
)

// buyOnceStrategy buys on its first Analyze call and holds forever after.
type buyOnceStrategy struct{ bought bool }

func (s *buyOnceStrategy) Name() string               { return "buy_once" }
func (s *buyOnceStrategy) Describe() string           { return "test fixture" }
func (s *buyOnceStrategy) SetParams(map[string]any)   {}
func (s *buyOnceStrategy) GetParams() map[string]any  { return nil }
func (s *buyOnceStrategy) Analyze(symbol string, window []core.Bar, currentPrice float64) strategy.Signal {
	if s.bought {
		return strategy.Signal{Action: strategy.SignalHold}
	}
	s.bought = true
	return strategy.Signal{Action: strategy.SignalBuy}
}

func multiBarsOf(closes ...float64) []core.Bar {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	bars := make([]core.Bar, len(closes))
	for i, c := range closes {
		bars[i] = core.Bar{Date: base.AddDate(0, 0, i), Open: c, High: c, Low: c, Close: c, Volume: 1000}
	}
	return bars
}

func TestMultiBacktesterRejectsEmptyMarketData(t *testing.T) {
	bt := NewMultiBacktester(MultiConfig{InitialCapital: 10000}, risk.DefaultThresholds(), zerolog.Nop())
	_, err := bt.Run(map[string]SymbolEntry{"AAA": {Strategy: &buyOnceStrategy{}}}, map[string][]core.Bar{}, nil, time.Now(), time.Now(), "")
	assert.ErrorIs(t, err, core.ErrEmptyMarketData)
}

func TestMultiBacktesterRejectsNoStrategies(t *testing.T) {
	bt := NewMultiBacktester(MultiConfig{InitialCapital: 10000}, risk.DefaultThresholds(), zerolog.Nop())
	bars := map[string][]core.Bar{"AAA": multiBarsOf(10, 11)}
	_, err := bt.Run(map[string]SymbolEntry{}, bars, nil, bars["AAA"][0].Date, bars["AAA"][1].Date, "")
	assert.ErrorIs(t, err, core.ErrNoStrategies)
}

func TestMultiBacktesterRunsAcrossSymbolsDeterministically(t *testing.T) {
	cfg := MultiConfig{InitialCapital: 100000, MaxPositionSize: 0.10, CommissionRate: 0, SlippageRate: 0}
	thresholds := risk.DefaultThresholds()

	barsAAA := multiBarsOf(10, 11, 12, 13, 14)
	barsBBB := multiBarsOf(20, 21, 22, 23, 24)
	bars := map[string][]core.Bar{"AAA": barsAAA, "BBB": barsBBB}
	entries := map[string]SymbolEntry{
		"AAA": {Strategy: &buyOnceStrategy{}, Sector: "tech"},
		"BBB": {Strategy: &buyOnceStrategy{}, Sector: "tech"},
	}

	bt1 := NewMultiBacktester(cfg, thresholds, zerolog.Nop())
	r1, err := bt1.Run(entries, bars, map[string]string{"AAA": "tech", "BBB": "tech"}, barsAAA[0].Date, barsAAA[len(barsAAA)-1].Date, "fixed-id")
	require.NoError(t, err)

	entries2 := map[string]SymbolEntry{
		"AAA": {Strategy: &buyOnceStrategy{}, Sector: "tech"},
		"BBB": {Strategy: &buyOnceStrategy{}, Sector: "tech"},
	}
	bt2 := NewMultiBacktester(cfg, thresholds, zerolog.Nop())
	r2, err := bt2.Run(entries2, bars, map[string]string{"AAA": "tech", "BBB": "tech"}, barsAAA[0].Date, barsAAA[len(barsAAA)-1].Date, "fixed-id")
	require.NoError(t, err)

	assert.Equal(t, r1.FinalValue, r2.FinalValue, "deterministic replay must be bitwise-identical across runs")
	assert.Equal(t, len(r1.Trades), len(r2.Trades))
	assert.Greater(t, r1.SignalsStats.Generated, 0)
}

func TestMultiBacktesterMaxPositionsCap(t *testing.T) {
	// MaxPositions flows from the run config into the risk thresholds.
	cfg := MultiConfig{InitialCapital: 100000, MaxPositionSize: 0.10, MaxPositions: 2, CommissionRate: 0, SlippageRate: 0}
	thresholds := risk.DefaultThresholds()
	thresholds.MaxSectorPercent = 0 // three same-priced buys would trip the sector cap first

	bars := map[string][]core.Bar{
		"AAA": multiBarsOf(10, 11, 12),
		"BBB": multiBarsOf(20, 21, 22),
		"CCC": multiBarsOf(30, 31, 32),
	}
	entries := map[string]SymbolEntry{
		"AAA": {Strategy: &buyOnceStrategy{}, Sector: "tech"},
		"BBB": {Strategy: &buyOnceStrategy{}, Sector: "tech"},
		"CCC": {Strategy: &buyOnceStrategy{}, Sector: "tech"},
	}
	sectors := map[string]string{"AAA": "tech", "BBB": "tech", "CCC": "tech"}

	bt := NewMultiBacktester(cfg, thresholds, zerolog.Nop())
	r, err := bt.Run(entries, bars, sectors, bars["AAA"][0].Date, bars["AAA"][2].Date, "")
	require.NoError(t, err)

	held := map[string]bool{}
	for _, tr := range r.Trades {
		if tr.Action == core.TradeBuy && tr.StrategyName != "rebalance" {
			held[tr.Symbol] = true
		}
	}
	assert.Len(t, held, 2, "only two of three BUY candidates may open positions")
	assert.GreaterOrEqual(t, r.SignalsStats.RejectionReasons["max_positions"], 1)
	assert.NotEmpty(t, r.SectorExposures)
}
