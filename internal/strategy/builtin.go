package strategy

import (
	"fmt"

	"github.com/ksfraser/WealthSystem-sub012/internal/core"
	"github.com/ksfraser/WealthSystem-sub012/internal/modules/scoring"
	"github.com/ksfraser/WealthSystem-sub012/pkg/formulas"
)

// sma is a plain moving average over the trailing n closes; it returns
// (0, false) when the window is shorter than n.
func sma(closes []float64, n int) (float64, bool) {
	if len(closes) < n {
		return 0, false
	}
	window := closes[len(closes)-n:]
	var sum float64
	for _, c := range window {
		sum += c
	}
	return sum / float64(n), true
}

// MACrossover is a fast/slow simple-moving-average crossover strategy: BUY
// when the fast average crosses above the slow one, SELL on the reverse
// cross, HOLD otherwise.
type MACrossover struct {
	fastPeriod int
	slowPeriod int
}

// NewMACrossover constructs an MACrossover with the given periods.
func NewMACrossover(fastPeriod, slowPeriod int) *MACrossover {
	return &MACrossover{fastPeriod: fastPeriod, slowPeriod: slowPeriod}
}

func (s *MACrossover) Name() string { return "ma_crossover" }

func (s *MACrossover) Describe() string {
	return fmt.Sprintf("fast/slow SMA(%d/%d) crossover", s.fastPeriod, s.slowPeriod)
}

func (s *MACrossover) Analyze(symbol string, window []core.Bar, currentPrice float64) Signal {
	closes := core.Closes(window)
	fastNow, okFast := sma(closes, s.fastPeriod)
	slowNow, okSlow := sma(closes, s.slowPeriod)
	if !okFast || !okSlow || len(closes) <= s.slowPeriod {
		return Signal{Action: SignalHold, Reasoning: "insufficient history for both averages"}
	}
	fastPrev, _ := sma(closes[:len(closes)-1], s.fastPeriod)
	slowPrev, _ := sma(closes[:len(closes)-1], s.slowPeriod)

	crossedUp := fastPrev <= slowPrev && fastNow > slowNow
	crossedDown := fastPrev >= slowPrev && fastNow < slowNow

	switch {
	case crossedUp:
		return Signal{Action: SignalBuy, Confidence: 0.6, Reasoning: "fast SMA crossed above slow SMA"}
	case crossedDown:
		return Signal{Action: SignalSell, Confidence: 0.6, Reasoning: "fast SMA crossed below slow SMA"}
	default:
		return Signal{Action: SignalHold}
	}
}

func (s *MACrossover) SetParams(params map[string]any) {
	if v, ok := params["fast_period"].(int); ok {
		s.fastPeriod = v
	}
	if v, ok := params["slow_period"].(int); ok {
		s.slowPeriod = v
	}
}

func (s *MACrossover) GetParams() map[string]any {
	return map[string]any{"fast_period": s.fastPeriod, "slow_period": s.slowPeriod}
}

// RSIMeanReversion buys when RSI(period) drops below oversold and sells
// when it rises above overbought.
type RSIMeanReversion struct {
	period     int
	oversold   float64
	overbought float64
}

// NewRSIMeanReversion constructs an RSIMeanReversion with the given period
// and thresholds.
func NewRSIMeanReversion(period int, oversold, overbought float64) *RSIMeanReversion {
	return &RSIMeanReversion{period: period, oversold: oversold, overbought: overbought}
}

func (s *RSIMeanReversion) Name() string { return "rsi_mean_reversion" }

func (s *RSIMeanReversion) Describe() string {
	return fmt.Sprintf("RSI(%d) mean reversion: buy <%.0f, sell >%.0f", s.period, s.oversold, s.overbought)
}

func (s *RSIMeanReversion) Analyze(symbol string, window []core.Bar, currentPrice float64) Signal {
	closes := core.Closes(window)
	rsi := formulas.CalculateRSI(closes, s.period)
	if rsi == nil {
		return Signal{Action: SignalHold, Reasoning: "insufficient history for RSI"}
	}
	switch {
	case *rsi < s.oversold:
		return Signal{Action: SignalBuy, Confidence: (s.oversold - *rsi) / s.oversold, Reasoning: fmt.Sprintf("RSI %.1f below oversold floor", *rsi), Metadata: map[string]any{"rsi": *rsi}}
	case *rsi > s.overbought:
		return Signal{Action: SignalSell, Confidence: (*rsi - s.overbought) / (100 - s.overbought), Reasoning: fmt.Sprintf("RSI %.1f above overbought ceiling", *rsi), Metadata: map[string]any{"rsi": *rsi}}
	default:
		return Signal{Action: SignalHold, Metadata: map[string]any{"rsi": *rsi}}
	}
}

func (s *RSIMeanReversion) SetParams(params map[string]any) {
	if v, ok := params["period"].(int); ok {
		s.period = v
	}
	if v, ok := params["oversold"].(float64); ok {
		s.oversold = v
	}
	if v, ok := params["overbought"].(float64); ok {
		s.overbought = v
	}
}

func (s *RSIMeanReversion) GetParams() map[string]any {
	return map[string]any{"period": s.period, "oversold": s.oversold, "overbought": s.overbought}
}

// ScoringDriven calls the C3 scoring engine directly, translating its
// Recommendation action into a Signal. bundleFor lets callers supply the
// fundamentals/indicators/analyst inputs the engine needs for a given
// window (the strategy itself carries no data-access dependency).
type ScoringDriven struct {
	engine   *scoring.Engine
	bundleFor func(symbol string, window []core.Bar) scoring.Bundle
}

// NewScoringDriven constructs a ScoringDriven strategy around an Engine and
// a bundle-building callback.
func NewScoringDriven(engine *scoring.Engine, bundleFor func(symbol string, window []core.Bar) scoring.Bundle) *ScoringDriven {
	return &ScoringDriven{engine: engine, bundleFor: bundleFor}
}

func (s *ScoringDriven) Name() string { return "scoring_driven" }

func (s *ScoringDriven) Describe() string {
	return "delegates to the composite scoring engine's BUY/HOLD/SELL recommendation"
}

func (s *ScoringDriven) Analyze(symbol string, window []core.Bar, currentPrice float64) Signal {
	bundle := s.bundleFor(symbol, window)
	rec, err := s.engine.Score(bundle)
	if err != nil {
		return Signal{Action: SignalHold, Reasoning: err.Error()}
	}
	action := SignalHold
	switch rec.Action {
	case core.ActionBuy:
		action = SignalBuy
	case core.ActionSell:
		action = SignalSell
	}
	return Signal{
		Action:     action,
		Confidence: rec.Confidence / 100,
		Reasoning:  fmt.Sprintf("composite score %.1f", rec.Score),
		Metadata:   map[string]any{"score": rec.Score, "target_price": rec.TargetPrice},
	}
}

func (s *ScoringDriven) SetParams(params map[string]any) {}

func (s *ScoringDriven) GetParams() map[string]any { return map[string]any{} }

func init() {
	DefaultRegistry.Register(NewMACrossover(20, 50))
	DefaultRegistry.Register(NewRSIMeanReversion(14, 30, 70))
}
