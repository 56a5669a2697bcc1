package scoring

import (
	"fmt"

	"github.com/ksfraser/WealthSystem-sub012/internal/core"
	"github.com/ksfraser/WealthSystem-sub012/pkg/formulas"
)

// RiskScorer produces a classification-only risk reading: a [0,100] score
// where higher means riskier, a discretized RiskLevel, and the human-readable
// factors that drove the classification. It is never part of the weighted
// composite blend.
//
// Derived from sell-side risk-flag heuristics (high volatility, negative
// momentum, thin liquidity) generalized into four risk axes.
type RiskScorer struct{}

// NewRiskScorer constructs a RiskScorer.
func NewRiskScorer() *RiskScorer { return &RiskScorer{} }

// Calculate returns the risk score, its classification, and the factor
// strings that explain it (may be empty when nothing stands out).
func (s *RiskScorer) Calculate(bars []core.Bar, f core.Fundamentals) (float64, core.RiskLevel, []string) {
	var factors []string
	var score float64
	var n float64

	closes := core.Closes(bars)
	if vol, ok := volatility30d(closes); ok {
		riskContribution := scoreVolatilityRisk(vol)
		score += riskContribution
		n++
		if vol > 45 {
			factors = append(factors, fmt.Sprintf("high annualized volatility (%.1f%%)", vol))
		}
	}

	if f.DebtToEquity != nil {
		riskContribution := scoreLeverageRisk(*f.DebtToEquity)
		score += riskContribution
		n++
		if *f.DebtToEquity > 2.0 {
			factors = append(factors, fmt.Sprintf("elevated debt-to-equity (%.2f)", *f.DebtToEquity))
		}
	}

	if liq, ok := liquidityRisk(bars); ok {
		score += liq
		n++
		if liq > 70 {
			factors = append(factors, "thin average trading volume")
		}
	}

	if dd, ok := drawdownRisk(closes); ok {
		score += dd
		n++
		if dd > 70 {
			factors = append(factors, "deep drawdown from recent high")
		}
	}

	if n == 0 {
		return 50, core.RiskMedium, factors
	}
	score = core.ClipScore(score / n)
	return score, classifyRiskLevel(score), factors
}

func scoreVolatilityRisk(annualizedPct float64) float64 {
	switch {
	case annualizedPct <= 15:
		return 15
	case annualizedPct <= 30:
		return 15 + (annualizedPct-15)/15*25
	case annualizedPct <= 60:
		return 40 + (annualizedPct-30)/30*35
	default:
		return core.ClipScore(75 + (annualizedPct-60)/10)
	}
}

func scoreLeverageRisk(de float64) float64 {
	if de < 0 {
		de = 0
	}
	switch {
	case de <= 0.5:
		return 10
	case de <= 1.0:
		return 10 + (de-0.5)*40
	case de <= 2.0:
		return 30 + (de-1.0)*30
	default:
		return core.ClipScore(60 + (de-2.0)*10)
	}
}

func liquidityRisk(bars []core.Bar) (float64, bool) {
	if len(bars) < 20 {
		return 0, false
	}
	window := bars[len(bars)-20:]
	var avgVolume float64
	for _, b := range window {
		avgVolume += float64(b.Volume)
	}
	avgVolume /= float64(len(window))
	switch {
	case avgVolume >= 1_000_000:
		return 10, true
	case avgVolume >= 200_000:
		return 30, true
	case avgVolume >= 50_000:
		return 55, true
	default:
		return 80, true
	}
}

func drawdownRisk(closes []float64) (float64, bool) {
	if len(closes) < 20 {
		return 0, false
	}
	maxDD := formulas.CalculateMaxDrawdown(closes)
	if maxDD == nil {
		return 0, false
	}
	ddPct := *maxDD * 100
	switch {
	case ddPct <= 10:
		return 15, true
	case ddPct <= 25:
		return 15 + (ddPct-10)/15*35, true
	case ddPct <= 50:
		return 50 + (ddPct-25)/25*30, true
	default:
		return 80, true
	}
}

func classifyRiskLevel(score float64) core.RiskLevel {
	switch {
	case score < 30:
		return core.RiskLow
	case score < 55:
		return core.RiskMedium
	case score < 75:
		return core.RiskHigh
	default:
		return core.RiskVeryHigh
	}
}
