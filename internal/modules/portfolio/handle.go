package portfolio

import (
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/ksfraser/WealthSystem-sub012/internal/core"
)

// Handle is the state-handle + lock pairing design note §9 calls for: the
// mutable core.Portfolio it owns is never touched directly by callers
// (including the risk validator, which only ever sees a Clone()d snapshot
// passed by value). Every mutator below is a single commit entrypoint that
// updates cash, positions, margin, realized P&L, and the trade log
// atomically relative to other commits on the same portfolio, over a
// long/short + margin model.
type Handle struct {
	mu    sync.Mutex
	state *core.Portfolio
	log   zerolog.Logger
}

// NewHandle wraps state in a Handle. state is taken by reference and from
// then on must only be mutated through the Handle.
func NewHandle(state *core.Portfolio, log zerolog.Logger) *Handle {
	return &Handle{
		state: state,
		log:   log.With().Str("component", "portfolio_handle").Str("portfolio_id", state.ID).Logger(),
	}
}

// Snapshot returns a deep-enough copy of the current state for read-only
// queries (risk validation, reporting) that must not block writers.
func (h *Handle) Snapshot() *core.Portfolio {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.state.Clone()
}

// NetWorth marks the current state to prices under the lock so callers get
// a consistent read.
func (h *Handle) NetWorth(prices map[string]float64) float64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.state.NetWorth(prices)
}

func (h *Handle) appendTrade(t core.Trade) error {
	if n := len(h.state.TradeLog); n > 0 {
		last := h.state.TradeLog[n-1]
		if t.Date.Before(last.Date) {
			return fmt.Errorf("trade log timestamp went backwards for %s: %w", h.state.ID, core.ErrInvariantViolation)
		}
	}
	h.state.TradeLog = append(h.state.TradeLog, t)
	return nil
}

// CommitBuy opens or adds to a long position. The caller (backtester) is
// responsible for sizing and risk validation before calling; CommitBuy only
// enforces the cash invariant.
func (h *Handle) CommitBuy(symbol string, shares int, fillPrice, commission float64, date time.Time, strategyName, reasoning string) (core.Trade, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	cost := float64(shares)*fillPrice + commission
	if cost > h.state.Cash {
		return core.Trade{}, fmt.Errorf("buy %s x%d at %.4f: %w", symbol, shares, fillPrice, core.ErrInsufficientFunds)
	}

	pos, exists := h.state.LongPositions[symbol]
	if !exists {
		pos = core.LongPosition{Symbol: symbol, OpenedAt: date}
	}
	totalCost := pos.AvgCost*float64(pos.Shares) + float64(shares)*fillPrice
	pos.Shares += shares
	pos.AvgCost = totalCost / float64(pos.Shares)
	h.state.LongPositions[symbol] = pos
	h.state.Cash -= cost

	trade := core.Trade{
		PortfolioID:  h.state.ID,
		Symbol:       symbol,
		Action:       core.TradeBuy,
		Shares:       shares,
		FillPrice:    fillPrice,
		Commission:   commission,
		Date:         date,
		StrategyName: strategyName,
		Reasoning:    reasoning,
	}
	if err := h.appendTrade(trade); err != nil {
		return core.Trade{}, err
	}
	h.log.Debug().Str("symbol", symbol).Int("shares", shares).Float64("fill", fillPrice).Msg("committed buy")
	return trade, nil
}

// CommitSell reduces or closes a long position, realizing P&L on the shares
// sold. Fails with ErrInsufficientShares if shares exceeds the held amount.
func (h *Handle) CommitSell(symbol string, shares int, fillPrice, commission float64, date time.Time, strategyName, reasoning string) (core.Trade, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	pos, exists := h.state.LongPositions[symbol]
	if !exists || shares > pos.Shares {
		return core.Trade{}, fmt.Errorf("sell %s x%d: %w", symbol, shares, core.ErrInsufficientShares)
	}

	proceeds := float64(shares)*fillPrice - commission
	h.state.RealizedPnL += float64(shares)*(fillPrice-pos.AvgCost) - commission
	h.state.Cash += proceeds

	pos.Shares -= shares
	if pos.Shares == 0 {
		delete(h.state.LongPositions, symbol)
	} else {
		h.state.LongPositions[symbol] = pos
	}

	trade := core.Trade{
		PortfolioID:  h.state.ID,
		Symbol:       symbol,
		Action:       core.TradeSell,
		Shares:       shares,
		FillPrice:    fillPrice,
		Commission:   commission,
		Date:         date,
		StrategyName: strategyName,
		Reasoning:    reasoning,
	}
	if err := h.appendTrade(trade); err != nil {
		return core.Trade{}, err
	}
	h.log.Debug().Str("symbol", symbol).Int("shares", shares).Float64("fill", fillPrice).Msg("committed sell")
	return trade, nil
}

// CommitShort opens or adds to a short position, posting marginPosted from
// cash into the margin balance. Fails with ErrInsufficientMargin if cash
// cannot cover both the margin post and commission.
func (h *Handle) CommitShort(symbol string, shares int, fillPrice, commission, marginPosted float64, date time.Time, strategyName, reasoning string) (core.Trade, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if marginPosted+commission > h.state.Cash {
		return core.Trade{}, fmt.Errorf("short %s x%d: %w", symbol, shares, core.ErrInsufficientMargin)
	}

	pos, exists := h.state.ShortPositions[symbol]
	if !exists {
		pos = core.ShortPosition{Symbol: symbol, OpenedAt: date, LastAccrualDate: date}
	}
	totalNotional := pos.AvgShortPrice*float64(pos.Shares) + float64(shares)*fillPrice
	pos.Shares += shares
	pos.AvgShortPrice = totalNotional / float64(pos.Shares)
	pos.MarginPosted += marginPosted
	h.state.ShortPositions[symbol] = pos

	h.state.Cash -= marginPosted + commission
	h.state.MarginBalance += marginPosted

	trade := core.Trade{
		PortfolioID:  h.state.ID,
		Symbol:       symbol,
		Action:       core.TradeShort,
		Shares:       shares,
		FillPrice:    fillPrice,
		Commission:   commission,
		Date:         date,
		StrategyName: strategyName,
		Reasoning:    reasoning,
	}
	if err := h.appendTrade(trade); err != nil {
		return core.Trade{}, err
	}
	h.log.Debug().Str("symbol", symbol).Int("shares", shares).Float64("fill", fillPrice).Msg("committed short")
	return trade, nil
}

// CommitCover closes (all or part of) a short position, releasing posted
// margin back to cash and deducting commission and any accrued short
// interest passed in by the caller (computed by the short-selling engine).
func (h *Handle) CommitCover(symbol string, shares int, fillPrice, commission, shortInterest float64, date time.Time, strategyName, reasoning string) (core.Trade, float64, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	pos, exists := h.state.ShortPositions[symbol]
	if !exists || shares > pos.Shares {
		return core.Trade{}, 0, fmt.Errorf("cover %s x%d: %w", symbol, shares, core.ErrInsufficientShares)
	}

	profit := float64(shares)*(pos.AvgShortPrice-fillPrice) - commission - shortInterest
	marginRelease := pos.MarginPosted * (float64(shares) / float64(pos.Shares))

	h.state.RealizedPnL += profit
	h.state.Cash += marginRelease + profit
	h.state.MarginBalance -= marginRelease
	if h.state.MarginBalance < 0 {
		h.state.MarginBalance = 0
	}

	pos.Shares -= shares
	pos.MarginPosted -= marginRelease
	if pos.Shares == 0 {
		delete(h.state.ShortPositions, symbol)
	} else {
		h.state.ShortPositions[symbol] = pos
	}

	trade := core.Trade{
		PortfolioID:  h.state.ID,
		Symbol:       symbol,
		Action:       core.TradeCover,
		Shares:       shares,
		FillPrice:    fillPrice,
		Commission:   commission,
		Date:         date,
		StrategyName: strategyName,
		Reasoning:    reasoning,
	}
	if err := h.appendTrade(trade); err != nil {
		return core.Trade{}, 0, err
	}
	h.log.Debug().Str("symbol", symbol).Int("shares", shares).Float64("profit", profit).Msg("committed cover")
	return trade, profit, nil
}

// CommitForcedLiquidation covers an entire short position at next-bar close
// plus a penalty surcharge, per C9's margin-call escalation. It always
// produces a trade log entry.
func (h *Handle) CommitForcedLiquidation(symbol string, fillPrice, penaltySurcharge, shortInterest float64, date time.Time) (core.Trade, float64, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	pos, exists := h.state.ShortPositions[symbol]
	if !exists {
		return core.Trade{}, 0, fmt.Errorf("forced liquidation %s: %w", symbol, core.ErrInsufficientShares)
	}

	shares := pos.Shares
	liquidationPrice := fillPrice * (1 + penaltySurcharge)
	profit := float64(shares)*(pos.AvgShortPrice-liquidationPrice) - shortInterest

	h.state.RealizedPnL += profit
	h.state.Cash += pos.MarginPosted + profit
	h.state.MarginBalance -= pos.MarginPosted
	if h.state.MarginBalance < 0 {
		h.state.MarginBalance = 0
	}
	delete(h.state.ShortPositions, symbol)

	trade := core.Trade{
		PortfolioID: h.state.ID,
		Symbol:      symbol,
		Action:      core.TradeForcedLiquidation,
		Shares:      shares,
		FillPrice:   liquidationPrice,
		Date:        date,
		Reasoning:   "margin call not resolved: forced liquidation",
	}
	if err := h.appendTrade(trade); err != nil {
		return core.Trade{}, 0, err
	}
	h.log.Warn().Str("symbol", symbol).Int("shares", shares).Float64("profit", profit).Msg("forced liquidation")
	return trade, profit, nil
}

// AccrueShortInterest applies one day of borrow cost to every open short
// position, per C9's daily accrual rule: rate/365 times current short
// notional, accumulated (not realized) until the position is covered.
func (h *Handle) AccrueShortInterest(date time.Time, annualRate float64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for sym, pos := range h.state.ShortPositions {
		notional := float64(pos.Shares) * pos.AvgShortPrice
		pos.AccruedInterest += notional * annualRate / 365
		pos.LastAccrualDate = date
		h.state.ShortPositions[sym] = pos
	}
}
