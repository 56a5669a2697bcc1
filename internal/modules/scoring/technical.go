package scoring

import (
	"math"

	"github.com/ksfraser/WealthSystem-sub012/internal/core"
)

// TechnicalScorer scores moving-average alignment, RSI zone, MACD cross
// direction, Bollinger position, trend/volume direction, golden/death cross,
// and nearest support/resistance.
//
// Built from a momentum+drawdown blend with piecewise scoring curves,
// applied over the full technical indicator set.
type TechnicalScorer struct{}

// NewTechnicalScorer constructs a TechnicalScorer.
func NewTechnicalScorer() *TechnicalScorer { return &TechnicalScorer{} }

// Calculate computes the technical sub-score in [0,100]. ind may be nil, in
// which case every indicator-dependent component falls back to neutral.
func (s *TechnicalScorer) Calculate(bars []core.Bar, ind *core.IndicatorVector) (float64, map[string]float64) {
	components := map[string]float64{
		"ma_alignment":   50,
		"rsi":            50,
		"macd":           50,
		"bollinger":      50,
		"trend":          50,
		"volume":         50,
		"golden_cross":   50,
		"support_resist": 50,
	}

	closes := core.Closes(bars)

	if ind != nil {
		if v, ok := lastValid(ind.SMA20, ind.UnstablePrefix); ok {
			if v2, ok2 := lastValid(ind.SMA50, ind.UnstablePrefix); ok2 {
				if v3, ok3 := lastValid(ind.SMA200, ind.UnstablePrefix); ok3 {
					components["ma_alignment"] = scoreMAAlignment(lastClose(closes), v, v2, v3)
				}
			}
		}
		if v, ok := lastValid(ind.RSI14, ind.UnstablePrefix); ok {
			components["rsi"] = scoreRSI(v)
		}
		if line, ok := lastValid(ind.MACDLine, ind.UnstablePrefix); ok {
			if sig, ok2 := lastValid(ind.MACDSignal, ind.UnstablePrefix); ok2 {
				components["macd"] = scoreMACD(line, sig, ind.MACDHistogram)
			}
		}
		if upper, ok := lastValid(ind.BollingerUpper, ind.UnstablePrefix); ok {
			if lower, ok2 := lastValid(ind.BollingerLower, ind.UnstablePrefix); ok2 {
				components["bollinger"] = scoreBollinger(lastClose(closes), upper, lower)
			}
		}
		if sma20, ok := lastValid(ind.SMA20, ind.UnstablePrefix); ok {
			if sma50, ok2 := lastValid(ind.SMA50, ind.UnstablePrefix); ok2 {
				components["golden_cross"] = scoreGoldenDeathCross(ind.SMA20, ind.SMA50, ind.UnstablePrefix)
				_ = sma20
				_ = sma50
			}
		}
	}

	components["trend"] = scoreTrendDirection(closes)
	components["volume"] = scoreVolumeTrend(bars)
	components["support_resist"] = scoreSupportResistance(bars)

	type weighted struct {
		key    string
		weight float64
	}
	weights := []weighted{
		{"ma_alignment", 0.20},
		{"rsi", 0.15},
		{"macd", 0.15},
		{"bollinger", 0.10},
		{"trend", 0.15},
		{"volume", 0.10},
		{"golden_cross", 0.10},
		{"support_resist", 0.05},
	}

	var total float64
	for _, w := range weights {
		total += components[w.key] * w.weight
	}
	return core.ClipScore(total), components
}

func lastClose(closes []float64) float64 {
	if len(closes) == 0 {
		return 0
	}
	return closes[len(closes)-1]
}

// lastValid returns the last value past the unstable prefix, if present.
func lastValid(series []float64, unstablePrefix int) (float64, bool) {
	if len(series) == 0 || len(series) <= unstablePrefix {
		return 0, false
	}
	return series[len(series)-1], true
}

func scoreMAAlignment(price, sma20, sma50, sma200 float64) float64 {
	if sma20 > sma50 && sma50 > sma200 && price > sma20 {
		return 95 // fully bullish alignment
	}
	if sma20 < sma50 && sma50 < sma200 && price < sma20 {
		return 5 // fully bearish alignment
	}
	above := 0
	if price > sma20 {
		above++
	}
	if price > sma50 {
		above++
	}
	if price > sma200 {
		above++
	}
	return 20 + float64(above)*20
}

// scoreRSI: overbought (>70) is negative, oversold (<30) is positive above a floor.
func scoreRSI(rsi float64) float64 {
	switch {
	case rsi > 80:
		return 10
	case rsi > 70:
		return 20 + (80-rsi)*3
	case rsi >= 30:
		// neutral band, slightly favors the middle
		return 50 + (50-math.Abs(rsi-50))*0.4
	case rsi >= 20:
		return 70 + (30-rsi)*2
	default:
		return math.Min(95, 90+(20-rsi))
	}
}

func scoreMACD(line, signal float64, histogram []float64) float64 {
	diff := line - signal
	base := 50 + clampFloat(diff*200, -40, 40)
	// Rising histogram strengthens a bullish cross; falling weakens it.
	if len(histogram) >= 2 {
		delta := histogram[len(histogram)-1] - histogram[len(histogram)-2]
		base += clampFloat(delta*100, -10, 10)
	}
	return core.ClipScore(base)
}

func scoreBollinger(price, upper, lower float64) float64 {
	width := upper - lower
	if width <= 0 {
		return 50
	}
	position := (price - lower) / width // 0 at lower band, 1 at upper band
	// Near the lower band is a buying opportunity; near the upper band is overbought.
	return core.ClipScore(90 - position*80)
}

func scoreGoldenDeathCross(sma20, sma50 []float64, unstablePrefix int) float64 {
	n := len(sma20)
	if n < 2 || len(sma50) < 2 || n <= unstablePrefix+1 {
		return 50
	}
	prevDiff := sma20[n-2] - sma50[n-2]
	currDiff := sma20[n-1] - sma50[n-1]
	if prevDiff <= 0 && currDiff > 0 {
		return 90 // golden cross just occurred
	}
	if prevDiff >= 0 && currDiff < 0 {
		return 10 // death cross just occurred
	}
	if currDiff > 0 {
		return 65
	}
	return 35
}

func scoreTrendDirection(closes []float64) float64 {
	if len(closes) < 20 {
		return 50
	}
	window := closes[len(closes)-20:]
	up, down := 0, 0
	for i := 1; i < len(window); i++ {
		if window[i] > window[i-1] {
			up++
		} else if window[i] < window[i-1] {
			down++
		}
	}
	total := up + down
	if total == 0 {
		return 50
	}
	return core.ClipScore(float64(up) / float64(total) * 100)
}

func scoreVolumeTrend(bars []core.Bar) float64 {
	if len(bars) < 20 {
		return 50
	}
	recent := bars[len(bars)-10:]
	prior := bars[len(bars)-20 : len(bars)-10]
	var recentAvg, priorAvg float64
	for _, b := range recent {
		recentAvg += float64(b.Volume)
	}
	for _, b := range prior {
		priorAvg += float64(b.Volume)
	}
	recentAvg /= float64(len(recent))
	priorAvg /= float64(len(prior))
	if priorAvg == 0 {
		return 50
	}
	ratio := recentAvg / priorAvg
	return core.ClipScore(50 + clampFloat((ratio-1)*50, -40, 40))
}

func scoreSupportResistance(bars []core.Bar) float64 {
	if len(bars) < 20 {
		return 50
	}
	window := bars[len(bars)-20:]
	high, low := window[0].High, window[0].Low
	for _, b := range window {
		if b.High > high {
			high = b.High
		}
		if b.Low < low {
			low = b.Low
		}
	}
	price := bars[len(bars)-1].Close
	rng := high - low
	if rng <= 0 {
		return 50
	}
	position := (price - low) / rng
	// Closer to support (low) scores higher (room to run); closer to resistance scores lower.
	return core.ClipScore(85 - position*70)
}

func clampFloat(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
