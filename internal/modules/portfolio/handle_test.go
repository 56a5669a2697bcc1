package portfolio

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ksfraser/WealthSystem-sub012/internal/core"
)

func newTestHandle(cash float64) *Handle {
	state := core.NewPortfolio("p1", "u1", "USD", cash, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	return NewHandle(state, zerolog.Nop())
}

func day(n int) time.Time {
	return time.Date(2024, 1, n, 0, 0, 0, 0, time.UTC)
}

func TestCommitBuyThenSellConservesNetWorth(t *testing.T) {
	h := newTestHandle(10000)

	_, err := h.CommitBuy("AAPL", 10, 100, 1, day(1), "test", "")
	require.NoError(t, err)

	snap := h.Snapshot()
	assert.Equal(t, 10000-1001.0, snap.Cash)
	assert.Equal(t, 10, snap.LongPositions["AAPL"].Shares)

	_, err = h.CommitSell("AAPL", 10, 110, 1, day(2), "test", "")
	require.NoError(t, err)

	snap = h.Snapshot()
	_, held := snap.LongPositions["AAPL"]
	assert.False(t, held)
	assert.InDelta(t, 99, snap.RealizedPnL, 1e-9) // 10*(110-100) - commission(1)
}

func TestCommitBuyRejectsInsufficientFunds(t *testing.T) {
	h := newTestHandle(100)
	_, err := h.CommitBuy("AAPL", 10, 100, 1, day(1), "test", "")
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrInsufficientFunds)
}

func TestCommitSellRejectsInsufficientShares(t *testing.T) {
	h := newTestHandle(10000)
	_, err := h.CommitSell("AAPL", 5, 100, 1, day(1), "test", "")
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrInsufficientShares)
}

func TestAppendTradeRejectsBackwardsTimestamp(t *testing.T) {
	h := newTestHandle(10000)
	_, err := h.CommitBuy("AAPL", 1, 100, 0, day(5), "test", "")
	require.NoError(t, err)

	_, err = h.CommitBuy("AAPL", 1, 100, 0, day(1), "test", "")
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrInvariantViolation)
}

func TestShortEntryAndCoverReleasesMargin(t *testing.T) {
	h := newTestHandle(10000)

	_, err := h.CommitShort("TSLA", 10, 200, 2, 3000, day(1), "test", "")
	require.NoError(t, err)

	snap := h.Snapshot()
	assert.Equal(t, 10000-3002.0, snap.Cash)
	assert.Equal(t, 3000.0, snap.MarginBalance)

	_, profit, err := h.CommitCover("TSLA", 10, 180, 2, 5, day(2), "test", "")
	require.NoError(t, err)
	assert.InDelta(t, 10*(200-180)-2-5, profit, 1e-9)

	snap = h.Snapshot()
	assert.Equal(t, 0.0, snap.MarginBalance)
	_, stillShort := snap.ShortPositions["TSLA"]
	assert.False(t, stillShort)
}

func TestAccrueShortInterestAccumulatesDaily(t *testing.T) {
	h := newTestHandle(10000)
	_, err := h.CommitShort("TSLA", 10, 100, 0, 1500, day(1), "test", "")
	require.NoError(t, err)

	h.AccrueShortInterest(day(2), 0.03)
	snap := h.Snapshot()
	expected := 10 * 100.0 * 0.03 / 365
	assert.InDelta(t, expected, snap.ShortPositions["TSLA"].AccruedInterest, 1e-9)
}

func TestCommitForcedLiquidationAppliesPenaltyAndClearsPosition(t *testing.T) {
	h := newTestHandle(10000)
	_, err := h.CommitShort("TSLA", 10, 100, 0, 1500, day(1), "test", "")
	require.NoError(t, err)

	_, _, err = h.CommitForcedLiquidation("TSLA", 150, 0.02, 0, day(2))
	require.NoError(t, err)

	snap := h.Snapshot()
	_, stillOpen := snap.ShortPositions["TSLA"]
	assert.False(t, stillOpen)
	assert.Equal(t, core.TradeForcedLiquidation, snap.TradeLog[len(snap.TradeLog)-1].Action)
}
