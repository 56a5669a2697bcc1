package backtest

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ksfraser/WealthSystem-sub012/internal/core"
	"github.com/ksfraser/WealthSystem-sub012/internal/modules/portfolio"
)

func day(n int) time.Time {
	return time.Date(2024, 1, n, 0, 0, 0, 0, time.UTC)
}

func newShortTestEngine(cash float64, cfg ShortConfig) *ShortEngine {
	state := core.NewPortfolio("p1", "u1", "USD", cash, day(1))
	handle := portfolio.NewHandle(state, zerolog.Nop())
	return NewShortEngine(handle, cfg, zerolog.Nop())
}

func TestEnterShortPostsMargin(t *testing.T) {
	cfg := DefaultShortConfig()
	e := newShortTestEngine(10000, cfg)

	trade, err := e.EnterShort("TSLA", 10, 100, day(1))
	require.NoError(t, err)
	assert.Equal(t, core.TradeShort, trade.Action)
	assert.Equal(t, 10, trade.Shares)
}

func TestExitShortCoversAndReleasesMargin(t *testing.T) {
	cfg := DefaultShortConfig()
	e := newShortTestEngine(10000, cfg)

	_, err := e.EnterShort("TSLA", 10, 100, day(1))
	require.NoError(t, err)

	_, profit, err := e.ExitShort("TSLA", nil, 80, day(2))
	require.NoError(t, err)
	assert.Greater(t, profit, 0.0, "covering a short below entry price should realize a gain")
}

func TestExitShortRejectsUnknownSymbol(t *testing.T) {
	cfg := DefaultShortConfig()
	e := newShortTestEngine(10000, cfg)

	_, _, err := e.ExitShort("GOOG", nil, 100, day(1))
	assert.ErrorIs(t, err, core.ErrInsufficientShares)
}

func TestAccrueDailyInterestAccumulatesOnOpenShorts(t *testing.T) {
	cfg := DefaultShortConfig()
	e := newShortTestEngine(10000, cfg)
	_, err := e.EnterShort("TSLA", 10, 100, day(1))
	require.NoError(t, err)

	e.AccrueDailyInterest(day(2))
	snap := e.handle.Snapshot()
	assert.Greater(t, snap.ShortPositions["TSLA"].AccruedInterest, 0.0)
}

func TestShortThenCoverDeductsAccruedInterest(t *testing.T) {
	cfg := DefaultShortConfig()
	cfg.CommissionRate = 0
	cfg.SlippageRate = 0
	e := newShortTestEngine(50000, cfg)

	_, err := e.EnterShort("AAPL", 100, 150.0, day(1))
	require.NoError(t, err)

	// 30 daily accruals on a 15,000 notional at 3% annual.
	for d := 2; d <= 31; d++ {
		e.AccrueDailyInterest(day(d))
	}
	wantInterest := 15000.0 * 0.03 / 365 * 30

	_, profit, err := e.ExitShort("AAPL", nil, 140.0, day(31))
	require.NoError(t, err)
	assert.InDelta(t, 100*(150.0-140.0)-wantInterest, profit, 1e-6)

	snap := e.handle.Snapshot()
	assert.Equal(t, 0.0, snap.MarginBalance)
	require.Len(t, snap.TradeLog, 2)
	assert.Equal(t, core.TradeShort, snap.TradeLog[0].Action)
	assert.Equal(t, core.TradeCover, snap.TradeLog[1].Action)
}

func TestCheckMarginCallsEscalatesToForcedLiquidation(t *testing.T) {
	cfg := DefaultShortConfig()
	cfg.MarginRequirement = 1.1
	cfg.MaintenanceMarginBuffer = 0.05
	e := newShortTestEngine(10000, cfg)

	_, err := e.EnterShort("TSLA", 10, 100, day(1))
	require.NoError(t, err)

	// Price jumps hard against the short, breaching the maintenance
	// threshold immediately.
	prices := map[string]float64{"TSLA": 500}

	firstPass := e.CheckMarginCalls(day(2), prices)
	require.Len(t, firstPass, 1)
	assert.Equal(t, "add_margin_or_liquidate", firstPass[0].ActionRequired)

	secondPass := e.CheckMarginCalls(day(3), prices)
	require.Len(t, secondPass, 1)
	assert.Equal(t, "forced_liquidation", secondPass[0].ActionRequired)

	snap := e.handle.Snapshot()
	_, stillOpen := snap.ShortPositions["TSLA"]
	assert.False(t, stillOpen)
}

func TestCheckMarginCallsClearsPendingWhenRecovered(t *testing.T) {
	cfg := DefaultShortConfig()
	cfg.MarginRequirement = 1.1
	cfg.MaintenanceMarginBuffer = 0.05
	e := newShortTestEngine(10000, cfg)
	_, err := e.EnterShort("TSLA", 10, 100, day(1))
	require.NoError(t, err)

	breach := map[string]float64{"TSLA": 500}
	events := e.CheckMarginCalls(day(2), breach)
	require.Len(t, events, 1)

	recovered := map[string]float64{"TSLA": 50}
	events = e.CheckMarginCalls(day(3), recovered)
	assert.Empty(t, events)
}
