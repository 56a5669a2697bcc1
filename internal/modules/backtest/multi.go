package backtest

import (
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ksfraser/WealthSystem-sub012/internal/core"
	"github.com/ksfraser/WealthSystem-sub012/internal/modules/portfolio"
	"github.com/ksfraser/WealthSystem-sub012/internal/modules/risk"
	"github.com/ksfraser/WealthSystem-sub012/internal/modules/sizing"
	"github.com/ksfraser/WealthSystem-sub012/internal/strategy"
)

// SymbolEntry registers one symbol's strategy and sector/industry metadata
// for the multi-symbol run.
type SymbolEntry struct {
	Strategy strategy.Strategy
	Sector   string
	Industry string
}

// MultiConfig is C8's portfolio-level run configuration. MaxPositions and
// MaxSectorAllocation, when set, override the corresponding risk.Thresholds
// fields at construction so the run config is a single source of truth.
type MultiConfig struct {
	InitialCapital      float64
	MaxPositionSize     float64 // fixed-percent sizing fraction, default 0.15
	MaxPositions        int     // 0 = use thresholds' value
	MaxSectorAllocation float64 // 0 = use thresholds' value
	RebalanceThreshold  float64 // default 0.05
	CommissionRate      float64
	SlippageRate        float64
	CorrelationMatrix   *core.CorrelationMatrix
}

// SignalsStats tallies how many signals were generated/executed/rejected,
// and why (HOLD is counted in Generated).
type SignalsStats struct {
	Generated        int            `json:"generated"`
	Executed         int            `json:"executed"`
	Rejected         int            `json:"rejected"`
	RejectionReasons map[string]int `json:"rejection_reasons"`
}

// RebalanceEvent records a rebalance decision taken at a week boundary when
// some position's weight deviates from its target by more than
// RebalanceThreshold: the delta shares needed per symbol to return to target
// weight. A deviation arising between week boundaries does not trigger a
// rebalance until the next week boundary.
type RebalanceEvent struct {
	Date    time.Time      `json:"date"`
	Deltas  map[string]int `json:"deltas"` // positive = buy, negative = sell
	Reason  string         `json:"reason"`
}

// SectorExposureSnapshot is one day's sector-exposure reading.
type SectorExposureSnapshot struct {
	Date      time.Time          `json:"date"`
	Exposures map[string]float64 `json:"exposures"`
}

// MultiResult is C8's full output.
type MultiResult struct {
	Period struct {
		Start       time.Time `json:"start"`
		End         time.Time `json:"end"`
		TradingDays int       `json:"trading_days"`
	} `json:"period"`
	InitialCapital   float64                  `json:"initial_capital"`
	FinalValue       float64                  `json:"final_value"`
	Trades           []core.Trade             `json:"trades"`
	SignalsStats     SignalsStats             `json:"signals_stats"`
	PortfolioValues  []core.EquityPoint       `json:"portfolio_values"`
	Returns          []float64                `json:"returns"`
	Rebalances       []RebalanceEvent         `json:"rebalances"`
	SectorExposures  []SectorExposureSnapshot `json:"sector_exposures"`
}

// MultiBacktester drives C8's day-synchronized replay across N symbols,
// enforcing portfolio-wide risk (C6) and committing through the same
// per-portfolio Handle (C5) every symbol shares, applying a
// rebalance-decision loop to bar-by-bar historical replay.
type MultiBacktester struct {
	cfg       MultiConfig
	validator *risk.Validator
	log       zerolog.Logger
}

// NewMultiBacktester constructs a MultiBacktester with the given config and
// risk thresholds. Non-zero MaxPositions/MaxSectorAllocation in cfg take
// precedence over the matching thresholds fields.
func NewMultiBacktester(cfg MultiConfig, thresholds risk.Thresholds, log zerolog.Logger) *MultiBacktester {
	if cfg.MaxPositions > 0 {
		thresholds.MaxPositions = cfg.MaxPositions
	}
	if cfg.MaxSectorAllocation > 0 {
		thresholds.MaxSectorPercent = cfg.MaxSectorAllocation
	}
	return &MultiBacktester{
		cfg:       cfg,
		validator: risk.NewValidator(thresholds, log),
		log:       log.With().Str("component", "multi_backtester").Logger(),
	}
}

// dateIndex maps each bar's date (truncated to day) to its slice index for
// O(1) prefix lookups during the outer day loop.
func dateIndex(bars []core.Bar) map[time.Time]int {
	idx := make(map[time.Time]int, len(bars))
	for i, b := range bars {
		idx[b.Date.Truncate(24*time.Hour)] = i
	}
	return idx
}

func unionDates(bars map[string][]core.Bar, start, end time.Time) []time.Time {
	seen := make(map[time.Time]bool)
	for _, series := range bars {
		for _, b := range series {
			d := b.Date.Truncate(24 * time.Hour)
			if (d.Equal(start) || d.After(start)) && (d.Equal(end) || d.Before(end)) {
				seen[d] = true
			}
		}
	}
	out := make([]time.Time, 0, len(seen))
	for d := range seen {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out
}

func sortedSymbols(entries map[string]SymbolEntry) []string {
	out := make([]string, 0, len(entries))
	for s := range entries {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// Run executes the C8 replay. portfolioID defaults to a fresh UUID when
// empty.
func (m *MultiBacktester) Run(
	entries map[string]SymbolEntry,
	bars map[string][]core.Bar,
	sectorOf map[string]string,
	startDate, endDate time.Time,
	portfolioID string,
) (*MultiResult, error) {
	if len(bars) == 0 {
		return nil, fmt.Errorf("backtest: bars map is empty: %w", core.ErrEmptyMarketData)
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("backtest: no strategies registered: %w", core.ErrNoStrategies)
	}
	dates := unionDates(bars, startDate, endDate)
	if len(dates) == 0 {
		return nil, fmt.Errorf("backtest: no bar dates fall in [%s,%s]: %w", startDate, endDate, core.ErrEmptyDateRange)
	}

	if portfolioID == "" {
		portfolioID = uuid.NewString()
	}
	state := core.NewPortfolio(portfolioID, "", "USD", m.cfg.InitialCapital, dates[0])
	handle := portfolio.NewHandle(state, m.log)

	indices := make(map[string]map[time.Time]int, len(bars))
	for sym, series := range bars {
		indices[sym] = dateIndex(series)
	}

	symbols := sortedSymbols(entries)

	result := &MultiResult{
		InitialCapital: m.cfg.InitialCapital,
		SignalsStats:   SignalsStats{RejectionReasons: make(map[string]int)},
	}
	result.Period.Start = dates[0]
	result.Period.End = dates[len(dates)-1]
	result.Period.TradingDays = len(dates)

	maxPositionSize := m.cfg.MaxPositionSize
	if maxPositionSize <= 0 {
		maxPositionSize = 0.15
	}

	// marks carries the last known close per symbol across dates so
	// positions in symbols without a bar today still contribute to net
	// worth and exposure at their most recent price.
	marks := make(map[string]float64, len(bars))

	var prevNetWorth float64
	for di, date := range dates {
		for _, sym := range symbols {
			idx, ok := indices[sym][date]
			if !ok {
				continue
			}
			series := bars[sym]
			marks[sym] = series[idx].Close
			historical := series[:idx]
			if len(historical) == 0 {
				continue
			}

			entry := entries[sym]
			currentPrice := series[idx].Close
			signal := entry.Strategy.Analyze(sym, historical, currentPrice)
			result.SignalsStats.Generated++

			switch signal.Action {
			case strategy.SignalHold:
				continue
			case strategy.SignalBuy:
				m.handleBuy(handle, sym, entry, currentPrice, date, maxPositionSize, marks, sectorOf, result)
			case strategy.SignalSell:
				m.handleSell(handle, sym, currentPrice, date, result)
			}
		}

		netWorth := handle.NetWorth(marks)
		result.PortfolioValues = append(result.PortfolioValues, core.EquityPoint{Date: date, NetWorth: netWorth})
		if di > 0 && prevNetWorth > 0 {
			result.Returns = append(result.Returns, (netWorth-prevNetWorth)/prevNetWorth)
		}
		prevNetWorth = netWorth

		exposures := handle.Snapshot().SectorExposure(marks, sectorOf)
		result.SectorExposures = append(result.SectorExposures, SectorExposureSnapshot{Date: date, Exposures: exposures})

		if isWeekBoundary(dates, di) {
			if ev := m.rebalanceIfNeeded(handle, marks, date); ev != nil {
				result.Rebalances = append(result.Rebalances, *ev)
			}
		}
	}

	final := handle.Snapshot()
	result.Trades = final.TradeLog
	if n := len(result.PortfolioValues); n > 0 {
		result.FinalValue = result.PortfolioValues[n-1].NetWorth
	}
	return result, nil
}

func (m *MultiBacktester) handleBuy(
	handle *portfolio.Handle,
	symbol string,
	entry SymbolEntry,
	currentPrice float64,
	date time.Time,
	maxPositionSize float64,
	marks map[string]float64,
	sectorOf map[string]string,
	result *MultiResult,
) {
	snapshot := handle.Snapshot()
	netWorth := snapshot.NetWorth(marks)

	sized, err := sizing.FixedPercent(maxPositionSize, currentPrice, netWorth)
	if err != nil || sized.Shares <= 0 {
		return
	}

	_, exists := snapshot.LongPositions[symbol]
	candidate := risk.Candidate{
		Symbol:        symbol,
		Sector:        entry.Sector,
		Value:         sized.Value,
		RequiredCash:  sized.Value,
		IsNewPosition: !exists,
	}
	if err := m.validator.Validate(snapshot, marks, sectorOf, m.cfg.CorrelationMatrix, candidate); err != nil {
		reason := rejectionReason(err)
		result.SignalsStats.Rejected++
		result.SignalsStats.RejectionReasons[reason]++
		return
	}

	fill := buyFill(currentPrice, m.cfg.SlippageRate)
	commission := commissionOn(fill, sized.Shares, m.cfg.CommissionRate)
	if _, err := handle.CommitBuy(symbol, sized.Shares, fill, commission, date, entry.Strategy.Name(), ""); err != nil {
		return
	}
	result.SignalsStats.Executed++
}

func (m *MultiBacktester) handleSell(handle *portfolio.Handle, symbol string, currentPrice float64, date time.Time, result *MultiResult) {
	snapshot := handle.Snapshot()
	pos, ok := snapshot.LongPositions[symbol]
	if !ok || pos.Shares <= 0 {
		return
	}
	fill := sellFill(currentPrice, m.cfg.SlippageRate)
	commission := commissionOn(fill, pos.Shares, m.cfg.CommissionRate)
	if _, err := handle.CommitSell(symbol, pos.Shares, fill, commission, date, "", ""); err != nil {
		return
	}
	result.SignalsStats.Executed++
}

func rejectionReason(err error) string {
	var re *core.RiskRejectedError
	if e, ok := err.(*core.RiskRejectedError); ok {
		re = e
		return re.Reason
	}
	return "unknown"
}

// isWeekBoundary is true when di is the last index of its ISO week within
// dates, or the final date overall.
func isWeekBoundary(dates []time.Time, di int) bool {
	if di == len(dates)-1 {
		return true
	}
	_, curWeek := dates[di].ISOWeek()
	_, nextWeek := dates[di+1].ISOWeek()
	return curWeek != nextWeek
}

// rebalanceIfNeeded generates (and executes, via the same commit path) a
// rebalance toward equal weight across currently-open long positions when
// any position's weight deviates from that target by more than
// RebalanceThreshold.
func (m *MultiBacktester) rebalanceIfNeeded(handle *portfolio.Handle, closes map[string]float64, date time.Time) *RebalanceEvent {
	threshold := m.cfg.RebalanceThreshold
	if threshold <= 0 {
		threshold = 0.05
	}
	snapshot := handle.Snapshot()
	if len(snapshot.LongPositions) == 0 {
		return nil
	}
	netWorth := snapshot.NetWorth(closes)
	if netWorth <= 0 {
		return nil
	}
	targetWeight := 1.0 / float64(len(snapshot.LongPositions))

	deltas := make(map[string]int)
	anyDeviation := false
	for sym, pos := range snapshot.LongPositions {
		price, ok := closes[sym]
		if !ok {
			continue
		}
		currentWeight := pos.MarketValue(price) / netWorth
		deviation := currentWeight - targetWeight
		if deviation > threshold || deviation < -threshold {
			anyDeviation = true
			targetValue := targetWeight * netWorth
			targetShares := int(targetValue / price)
			deltas[sym] = targetShares - pos.Shares
		}
	}
	if !anyDeviation {
		return nil
	}

	// Execute in sorted-symbol order so two identical runs produce
	// identical trade logs.
	deltaSymbols := make([]string, 0, len(deltas))
	for sym := range deltas {
		deltaSymbols = append(deltaSymbols, sym)
	}
	sort.Strings(deltaSymbols)

	for _, sym := range deltaSymbols {
		delta := deltas[sym]
		price, ok := closes[sym]
		if !ok || delta == 0 {
			continue
		}
		if delta > 0 {
			fill := buyFill(price, m.cfg.SlippageRate)
			commission := commissionOn(fill, delta, m.cfg.CommissionRate)
			_, _ = handle.CommitBuy(sym, delta, fill, commission, date, "rebalance", "weekly rebalance to equal weight")
		} else {
			fill := sellFill(price, m.cfg.SlippageRate)
			shares := -delta
			commission := commissionOn(fill, shares, m.cfg.CommissionRate)
			_, _ = handle.CommitSell(sym, shares, fill, commission, date, "rebalance", "weekly rebalance to equal weight")
		}
	}

	return &RebalanceEvent{Date: date, Deltas: deltas, Reason: "weekly rebalance to equal weight"}
}
