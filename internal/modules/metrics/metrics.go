// Package metrics implements C10: pure functions over a trade log and
// equity curve that compute returns, risk-adjusted ratios, and
// trade-outcome statistics. It builds on pkg/formulas (which already has
// Sharpe/Sortino/drawdown/return helpers over gonum) by adding the win
// rate/profit factor/expectancy/reward-risk legs over a (tradeLog,
// equityCurve, days) input shape.
package metrics

import (
	"github.com/ksfraser/WealthSystem-sub012/internal/core"
	"github.com/ksfraser/WealthSystem-sub012/pkg/formulas"
)

// Metrics is C10's full output. All fields are reported at full precision;
// callers apply fixed rounding for display.
type Metrics struct {
	TotalReturn      float64 `json:"total_return"`
	AnnualizedReturn float64 `json:"annualized_return"`
	Sharpe           float64 `json:"sharpe"`
	Sortino          float64 `json:"sortino"`
	MaxDrawdown      float64 `json:"max_drawdown"`
	WinRate          float64 `json:"win_rate"`
	ProfitFactor     float64 `json:"profit_factor"`
	Expectancy       float64 `json:"expectancy"`
	RewardRisk       float64 `json:"reward_risk"`
}

// Calculate is a pure function of its inputs: two calls with equal
// arguments yield equal results.
func Calculate(tradeLog []core.Trade, equityCurve []core.EquityPoint, days int, riskFreeRate float64) Metrics {
	if len(equityCurve) == 0 {
		return Metrics{}
	}

	netWorths := make([]float64, len(equityCurve))
	for i, p := range equityCurve {
		netWorths[i] = p.NetWorth
	}
	initial, final := netWorths[0], netWorths[len(netWorths)-1]

	dailyReturns := formulas.CalculateReturns(netWorths)

	m := Metrics{
		TotalReturn:      formulas.CalculateTotalReturn(initial, final),
		AnnualizedReturn: formulas.CalculateAnnualizedReturn(initial, final, days),
		MaxDrawdown:      maxDrawdownPct(netWorths),
	}

	if sharpe := formulas.CalculateSharpeRatio(dailyReturns, riskFreeRate, 252); sharpe != nil {
		m.Sharpe = *sharpe
	}
	if sortino := formulas.CalculateSortinoRatio(dailyReturns, riskFreeRate, riskFreeRate, 252); sortino != nil {
		m.Sortino = *sortino
	}

	outcomes := tradeOutcomes(tradeLog)
	m.WinRate = formulas.WinRate(outcomes)
	m.ProfitFactor = formulas.ProfitFactor(outcomes)
	m.Expectancy = formulas.Expectancy(outcomes)
	m.RewardRisk = formulas.RewardRisk(outcomes)

	return m
}

// maxDrawdownPct is the min over the curve of (value-peak)/peak*100; zero
// on a monotone non-decreasing curve.
func maxDrawdownPct(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	peak := values[0]
	var worst float64
	for _, v := range values {
		if v > peak {
			peak = v
		}
		if peak <= 0 {
			continue
		}
		dd := (v - peak) / peak * 100
		if dd < worst {
			worst = dd
		}
	}
	return worst
}

// longState tracks a symbol's average cost while replaying BUY/SELL trades;
// shortState does the same for SHORT/COVER/FORCED_LIQUIDATION.
type longState struct {
	shares  int
	avgCost float64
}

type shortState struct {
	shares int
	avgPx  float64
}

// tradeOutcomes replays the trade log to produce one formulas.TradeOutcome
// per closing fill (SELL, COVER, FORCED_LIQUIDATION), the realized P&L unit
// win rate/profit factor/expectancy/reward-risk are computed over.
func tradeOutcomes(tradeLog []core.Trade) []formulas.TradeOutcome {
	longs := make(map[string]*longState)
	shorts := make(map[string]*shortState)
	var outcomes []formulas.TradeOutcome

	for _, t := range tradeLog {
		switch t.Action {
		case core.TradeBuy:
			st, ok := longs[t.Symbol]
			if !ok {
				st = &longState{}
				longs[t.Symbol] = st
			}
			totalCost := st.avgCost*float64(st.shares) + t.FillPrice*float64(t.Shares)
			st.shares += t.Shares
			if st.shares > 0 {
				st.avgCost = totalCost / float64(st.shares)
			}
		case core.TradeSell:
			st, ok := longs[t.Symbol]
			if !ok {
				continue
			}
			pnl := float64(t.Shares)*(t.FillPrice-st.avgCost) - t.Commission
			outcomes = append(outcomes, formulas.TradeOutcome(pnl))
			st.shares -= t.Shares
			if st.shares <= 0 {
				delete(longs, t.Symbol)
			}
		case core.TradeShort:
			st, ok := shorts[t.Symbol]
			if !ok {
				st = &shortState{}
				shorts[t.Symbol] = st
			}
			totalNotional := st.avgPx*float64(st.shares) + t.FillPrice*float64(t.Shares)
			st.shares += t.Shares
			if st.shares > 0 {
				st.avgPx = totalNotional / float64(st.shares)
			}
		case core.TradeCover, core.TradeForcedLiquidation:
			st, ok := shorts[t.Symbol]
			if !ok {
				continue
			}
			pnl := float64(t.Shares)*(st.avgPx-t.FillPrice) - t.Commission
			outcomes = append(outcomes, formulas.TradeOutcome(pnl))
			st.shares -= t.Shares
			if st.shares <= 0 {
				delete(shorts, t.Symbol)
			}
		}
	}

	return outcomes
}
