package scoring

import (
	"math"

	"github.com/ksfraser/WealthSystem-sub012/internal/core"
	"github.com/ksfraser/WealthSystem-sub012/pkg/formulas"
)

// MomentumScorer scores short (1-10d), medium (11-50d), and long (51-252d)
// trailing return buckets, 30-day volatility, relative strength against a
// benchmark series, and short-term reversal.
//
// Builds on return-bucket weighting, extended with a benchmark
// relative-strength leg a single-symbol scorer never needed.
type MomentumScorer struct{}

// NewMomentumScorer constructs a MomentumScorer.
func NewMomentumScorer() *MomentumScorer { return &MomentumScorer{} }

// Calculate computes the momentum sub-score in [0,100].
func (s *MomentumScorer) Calculate(bars []core.Bar, benchmark []core.Bar) (float64, map[string]float64) {
	closes := core.Closes(bars)
	components := map[string]float64{
		"return_1_10":       50,
		"return_11_50":      50,
		"return_51_252":     50,
		"volatility_30d":    50,
		"relative_strength": 50,
		"reversal":          50,
	}

	if r, ok := trailingReturn(closes, 1, 10); ok {
		components["return_1_10"] = scoreReturnBucket(r, 8)
	}
	if r, ok := trailingReturn(closes, 11, 50); ok {
		components["return_11_50"] = scoreReturnBucket(r, 20)
	}
	if r, ok := trailingReturn(closes, 51, 252); ok {
		components["return_51_252"] = scoreReturnBucket(r, 35)
	}
	if vol, ok := volatility30d(closes); ok {
		components["volatility_30d"] = scoreVolatility(vol)
	}
	if rs, ok := relativeStrength(closes, core.Closes(benchmark)); ok {
		components["relative_strength"] = scoreRelativeStrength(rs)
	}
	components["reversal"] = scoreReversal(closes)

	type weighted struct {
		key    string
		weight float64
	}
	weights := []weighted{
		{"return_1_10", 0.15},
		{"return_11_50", 0.25},
		{"return_51_252", 0.25},
		{"volatility_30d", 0.15},
		{"relative_strength", 0.15},
		{"reversal", 0.05},
	}

	var total float64
	for _, w := range weights {
		total += components[w.key] * w.weight
	}
	return core.ClipScore(total), components
}

// trailingReturn computes the percentage return from the close `to` days ago
// to the close `from`-1 days ago (to > from, both counted back from the most
// recent bar, which is 0 days ago). Returns false if there is not enough
// history.
func trailingReturn(closes []float64, from, to int) (float64, bool) {
	n := len(closes)
	if n <= to {
		return 0, false
	}
	start := closes[n-1-to]
	end := closes[n-1-from+1]
	if start == 0 {
		return 0, false
	}
	return (end - start) / start * 100, true
}

func scoreReturnBucket(returnPct, scaleAt100 float64) float64 {
	return core.ClipScore(50 + (returnPct/scaleAt100)*50)
}

func volatility30d(closes []float64) (float64, bool) {
	if len(closes) < 31 {
		return 0, false
	}
	window := closes[len(closes)-31:]
	returns := formulas.CalculateReturns(window)
	if len(returns) == 0 {
		return 0, false
	}
	return formulas.AnnualizedVolatility(returns) * 100, true
}

// scoreVolatility rewards low-to-moderate volatility and penalizes extremes.
func scoreVolatility(annualizedPct float64) float64 {
	switch {
	case annualizedPct <= 15:
		return 80
	case annualizedPct <= 30:
		return 80 - (annualizedPct-15)/15*20
	case annualizedPct <= 60:
		return 60 - (annualizedPct-30)/30*35
	default:
		return math.Max(5, 25-(annualizedPct-60)/10)
	}
}

func relativeStrength(closes, benchmarkCloses []float64) (float64, bool) {
	n := len(closes)
	m := len(benchmarkCloses)
	lookback := 63 // ~ one quarter of trading days
	if n <= lookback || m <= lookback {
		return 0, false
	}
	symReturn := (closes[n-1] - closes[n-1-lookback]) / closes[n-1-lookback]
	benchReturn := (benchmarkCloses[m-1] - benchmarkCloses[m-1-lookback]) / benchmarkCloses[m-1-lookback]
	return (symReturn - benchReturn) * 100, true
}

func scoreRelativeStrength(diffPct float64) float64 {
	return core.ClipScore(50 + clampFloat(diffPct*2, -45, 45))
}

// scoreReversal flags a sharp short-term move against the medium-term trend
// as a possible mean-reversion setup; a neutral market earns a neutral score.
func scoreReversal(closes []float64) float64 {
	n := len(closes)
	if n < 15 {
		return 50
	}
	shortTerm := (closes[n-1] - closes[n-6]) / closes[n-6]
	mediumTerm := (closes[n-1] - closes[n-15]) / closes[n-15]
	if mediumTerm > 0.05 && shortTerm < -0.03 {
		return 70 // pullback within an uptrend: potential buy-the-dip
	}
	if mediumTerm < -0.05 && shortTerm > 0.03 {
		return 30 // bounce within a downtrend: potential dead-cat
	}
	return 50
}
