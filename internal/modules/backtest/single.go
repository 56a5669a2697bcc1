// Package backtest implements the three backtest engines (C7 single-symbol,
// C8 multi-symbol, C9 short-selling), built on a historical-replay / what-if
// sequence evaluation idiom and a portfolio commit-path shape, generalized
// from a rebalancing-sequence domain onto bar-by-bar historical replay.
package backtest

import (
	"fmt"
	"math"

	"github.com/ksfraser/WealthSystem-sub012/internal/core"
	"github.com/ksfraser/WealthSystem-sub012/internal/strategy"
)

// Config holds the single-symbol backtester's run parameters.
type Config struct {
	InitialCapital float64
	CommissionRate float64
	SlippageRate   float64
}

// Result is C7's output: trade log, final value, return, commission drag,
// max drawdown, and the full equity curve.
type Result struct {
	TradeLog        []core.Trade      `json:"trade_log"`
	EquityCurve     []core.EquityPoint `json:"equity_curve"`
	FinalValue      float64           `json:"final_value"`
	ReturnPct       float64           `json:"return_pct"`
	TotalCommission float64           `json:"total_commission"`
	MaxDrawdown     float64           `json:"max_drawdown"`
}

// buyFill and sellFill apply a symmetric slippage convention: buys fill
// above the quoted close, sells fill below it.
func buyFill(close, slippageRate float64) float64  { return close * (1 + slippageRate) }
func sellFill(close, slippageRate float64) float64 { return close * (1 - slippageRate) }

func commissionOn(fillPrice float64, shares int, rate float64) float64 {
	return fillPrice * float64(shares) * rate
}

// affordableShares floors shares such that shares*fillPrice*(1+commissionRate)
// does not exceed cash — the sizing rule C7 applies for BUY signals (no
// separate C4 policy is invoked; a single-symbol backtest has only ever one
// candidate position, so "how much can I afford" is the whole decision).
func affordableShares(cash, fillPrice, commissionRate float64) int {
	if fillPrice <= 0 {
		return 0
	}
	return int(math.Floor(cash / (fillPrice * (1 + commissionRate))))
}

// Run replays strategy over bars bar-by-bar with no look-ahead: at index i
// the strategy sees bars[0..i] (never bars[i+1:]) and any resulting fill
// happens at bars[i].Close, adjusted by slippage. Short selling (a SELL
// signal with no open position) is rejected — C9 is the dedicated
// short-selling extension.
func Run(strat strategy.Strategy, symbol string, bars []core.Bar, cfg Config) (*Result, error) {
	if symbol == "" {
		return nil, fmt.Errorf("backtest: symbol is required: %w", core.ErrInvalidInput)
	}
	if len(bars) == 0 {
		return nil, fmt.Errorf("backtest: bars must not be empty: %w", core.ErrInvalidInput)
	}
	if cfg.InitialCapital <= 0 {
		return nil, fmt.Errorf("backtest: initial capital must be positive: %w", core.ErrInvalidInput)
	}

	cash := cfg.InitialCapital
	shares := 0
	var avgCost float64
	var trades []core.Trade
	var equity []core.EquityPoint
	var totalCommission float64

	for i := range bars {
		window := bars[:i+1]
		bar := bars[i]
		currentPrice := bar.Close

		signal := strat.Analyze(symbol, window, currentPrice)

		switch signal.Action {
		case strategy.SignalBuy:
			fill := buyFill(bar.Close, cfg.SlippageRate)
			addShares := affordableShares(cash, fill, cfg.CommissionRate)
			if addShares > 0 {
				commission := commissionOn(fill, addShares, cfg.CommissionRate)
				cost := fill*float64(addShares) + commission
				totalCost := avgCost*float64(shares) + fill*float64(addShares)
				shares += addShares
				avgCost = totalCost / float64(shares)
				cash -= cost
				totalCommission += commission
				trades = append(trades, core.Trade{
					Symbol:          symbol,
					Action:          core.TradeBuy,
					Shares:          addShares,
					FillPrice:       fill,
					Commission:      commission,
					SlippageApplied: fill - bar.Close,
					Date:            bar.Date,
					Reasoning:       signal.Reasoning,
				})
			}
		case strategy.SignalSell:
			if shares <= 0 {
				// Short selling is rejected by the single-symbol backtester;
				// no position exists to reduce, so the signal produces no trade.
				break
			}
			fill := sellFill(bar.Close, cfg.SlippageRate)
			commission := commissionOn(fill, shares, cfg.CommissionRate)
			proceeds := fill*float64(shares) - commission
			cash += proceeds
			totalCommission += commission
			trades = append(trades, core.Trade{
				Symbol:          symbol,
				Action:          core.TradeSell,
				Shares:          shares,
				FillPrice:       fill,
				Commission:      commission,
				SlippageApplied: bar.Close - fill,
				Date:            bar.Date,
				Reasoning:       signal.Reasoning,
			})
			shares = 0
			avgCost = 0
		case strategy.SignalHold:
			// no trade
		}

		netWorth := cash + float64(shares)*bar.Close
		equity = append(equity, core.EquityPoint{Date: bar.Date, NetWorth: netWorth})
	}

	finalValue := equity[len(equity)-1].NetWorth
	returnPct := (finalValue - cfg.InitialCapital) / cfg.InitialCapital * 100
	maxDD := maxDrawdownOf(equity)

	return &Result{
		TradeLog:        trades,
		EquityCurve:     equity,
		FinalValue:      finalValue,
		ReturnPct:       returnPct,
		TotalCommission: totalCommission,
		MaxDrawdown:     maxDD,
	}, nil
}

// maxDrawdownOf is the min over the equity curve of (value-peak)/peak*100;
// zero on a monotone non-decreasing curve.
func maxDrawdownOf(curve []core.EquityPoint) float64 {
	if len(curve) == 0 {
		return 0
	}
	peak := curve[0].NetWorth
	var worst float64
	for _, p := range curve {
		if p.NetWorth > peak {
			peak = p.NetWorth
		}
		if peak <= 0 {
			continue
		}
		dd := (p.NetWorth - peak) / peak * 100
		if dd < worst {
			worst = dd
		}
	}
	return worst
}
