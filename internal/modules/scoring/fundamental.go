package scoring

import (
	"math"

	"github.com/ksfraser/WealthSystem-sub012/internal/core"
)

// FundamentalScorer scores P/E vs industry average, P/B, margins, ROE, ROA,
// debt/equity, current/quick ratio, and revenue+earnings growth.
//
// Rather than rolling financial-strength and consistency into one bucket,
// this scores each metric independently at its own weight, and a missing
// metric contributes the neutral midpoint (50) rather than being dropped
// from the blend.
type FundamentalScorer struct{}

// NewFundamentalScorer constructs a FundamentalScorer.
func NewFundamentalScorer() *FundamentalScorer { return &FundamentalScorer{} }

// metricWeight is one fundamental metric's contribution to the sub-score.
type metricWeight struct {
	name   string
	weight float64
	score  float64
}

// Calculate computes the fundamental sub-score in [0,100].
func (s *FundamentalScorer) Calculate(f core.Fundamentals, industryAvgPE float64) (float64, map[string]float64) {
	metrics := []metricWeight{
		{"pe_vs_industry", 0.15, scorePE(f.PE, industryAvgPE)},
		{"pb_ratio", 0.10, scorePB(f.PB)},
		{"margins", 0.15, scoreMargins(f.GrossMargin, f.OperatingMargin, f.NetMargin)},
		{"roe", 0.15, scoreROE(f.ROE)},
		{"roa", 0.10, scoreROA(f.ROA)},
		{"debt_to_equity", 0.15, scoreDebtToEquity(f.DebtToEquity)},
		{"liquidity", 0.10, scoreLiquidity(f.CurrentRatio, f.QuickRatio)},
		{"growth", 0.10, scoreGrowth(f.RevenueGrowth, f.EarningsGrowth)},
	}

	var total, weightSum float64
	components := make(map[string]float64, len(metrics))
	for _, m := range metrics {
		total += m.weight * m.score
		weightSum += m.weight
		components[m.name] = core.ClipScore(m.score)
	}
	if weightSum == 0 {
		return 50, components
	}
	return core.ClipScore(total / weightSum), components
}

// scorePE rewards a P/E below the industry average (cheap); missing data is neutral.
func scorePE(pe *float64, industryAvg float64) float64 {
	if pe == nil || *pe <= 0 || industryAvg <= 0 {
		return 50
	}
	ratio := *pe / industryAvg
	switch {
	case ratio <= 0.5:
		return 90
	case ratio < 1.0:
		return 50 + (1.0-ratio)*80
	case ratio < 1.5:
		return 50 - (ratio-1.0)*60
	default:
		return math.Max(10, 50-(ratio-1.0)*40)
	}
}

func scorePB(pb *float64) float64 {
	if pb == nil || *pb <= 0 {
		return 50
	}
	switch {
	case *pb < 1:
		return 85
	case *pb < 3:
		return 85 - (*pb-1)*15
	case *pb < 6:
		return 55 - (*pb-3)*10
	default:
		return math.Max(10, 25-(*pb-6)*2)
	}
}

func scoreMargins(gross, operating, net *float64) float64 {
	var sum, n float64
	add := func(v *float64, good float64) {
		if v == nil {
			return
		}
		n++
		sum += scoreBoundedRatio(*v, 0, good)
	}
	add(gross, 0.40)
	add(operating, 0.20)
	add(net, 0.15)
	if n == 0 {
		return 50
	}
	return sum / n
}

// scoreBoundedRatio maps a ratio above floor linearly from 50 (at floor) to
// 100 (at target or above); a ratio at or below floor scores 50+100·v,
// floored at 10.
func scoreBoundedRatio(v, floor, target float64) float64 {
	if target <= floor {
		return 50
	}
	if v <= floor {
		return math.Max(10, 50+v*100)
	}
	frac := (v - floor) / (target - floor)
	if frac > 1 {
		frac = 1
	}
	return 50 + frac*50
}

func scoreROE(roe *float64) float64 {
	if roe == nil {
		return 50
	}
	return scoreBoundedRatio(*roe, 0, 0.20)
}

func scoreROA(roa *float64) float64 {
	if roa == nil {
		return 50
	}
	return scoreBoundedRatio(*roa, 0, 0.10)
}

// scoreDebtToEquity penalizes high leverage; lower is better.
func scoreDebtToEquity(de *float64) float64 {
	if de == nil {
		return 50
	}
	d := *de
	if d < 0 {
		d = 0
	}
	switch {
	case d <= 0.5:
		return 90
	case d <= 1.0:
		return 90 - (d-0.5)*40
	case d <= 2.0:
		return 70 - (d-1.0)*40
	default:
		return math.Max(5, 30-(d-2.0)*10)
	}
}

func scoreLiquidity(current, quick *float64) float64 {
	var sum, n float64
	if current != nil {
		n++
		c := *current
		switch {
		case c >= 1.5 && c <= 3.0:
			sum += 90
		case c > 3.0:
			sum += math.Max(60, 90-(c-3.0)*10)
		case c >= 1.0:
			sum += 60 + (c-1.0)/0.5*30
		default:
			sum += math.Max(10, c*60)
		}
	}
	if quick != nil {
		n++
		q := *quick
		if q >= 1.0 {
			sum += 85
		} else {
			sum += math.Max(20, q*85)
		}
	}
	if n == 0 {
		return 50
	}
	return sum / n
}

func scoreGrowth(revenue, earnings *float64) float64 {
	var sum, n float64
	add := func(v *float64) {
		if v == nil {
			return
		}
		n++
		sum += scoreBoundedRatio(*v, -0.10, 0.15)
	}
	add(revenue)
	add(earnings)
	if n == 0 {
		return 50
	}
	return sum / n
}
