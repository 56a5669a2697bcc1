package indicators

import (
	"math"

	"github.com/ksfraser/WealthSystem-sub012/internal/core"
)

// patternFunc is the shape every candlestick recognizer shares: four
// parallel OHLC series in, one {-100,0,+100} series out (per bar).
// go-talib stops at indicator math and ships no CDL* surface, so the
// recognizers live here, keeping the same series-in/series-out contract the
// rest of the TA wiring uses.
type patternFunc func(open, high, low, close []float64) []float64

// patternTable maps each of the 63 pattern identifiers to its recognizer
// and a static reliability tier. The set mirrors TA-Lib's CDL catalogue,
// with the two directional method/gap patterns split into their rising/
// falling and upside/downside variants.
var patternTable = []struct {
	name        string
	fn          patternFunc
	reliability core.ReliabilityTier
}{
	{"abandoned_baby", cdlAbandonedBaby, core.ReliabilityHigh},
	{"advance_block", cdlAdvanceBlock, core.ReliabilityMedium},
	{"belt_hold", cdlBeltHold, core.ReliabilityLow},
	{"breakaway", cdlBreakaway, core.ReliabilityMedium},
	{"closing_marubozu", cdlClosingMarubozu, core.ReliabilityMedium},
	{"concealing_baby_swallow", cdlConcealingBabySwallow, core.ReliabilityMedium},
	{"counterattack", cdlCounterattack, core.ReliabilityMedium},
	{"dark_cloud_cover", cdlDarkCloudCover, core.ReliabilityMedium},
	{"doji", cdlDoji, core.ReliabilityLow},
	{"doji_star", cdlDojiStar, core.ReliabilityMedium},
	{"downside_gap_three_methods", cdlDownsideGapThreeMethods, core.ReliabilityMedium},
	{"dragonfly_doji", cdlDragonflyDoji, core.ReliabilityMedium},
	{"engulfing", cdlEngulfing, core.ReliabilityHigh},
	{"evening_doji_star", cdlEveningDojiStar, core.ReliabilityHigh},
	{"evening_star", cdlEveningStar, core.ReliabilityHigh},
	{"falling_three_methods", cdlFallingThreeMethods, core.ReliabilityHigh},
	{"gap_side_by_side_white", cdlGapSideBySideWhite, core.ReliabilityLow},
	{"gravestone_doji", cdlGravestoneDoji, core.ReliabilityMedium},
	{"hammer", cdlHammer, core.ReliabilityHigh},
	{"hanging_man", cdlHangingMan, core.ReliabilityMedium},
	{"harami", cdlHarami, core.ReliabilityMedium},
	{"harami_cross", cdlHaramiCross, core.ReliabilityMedium},
	{"high_wave", cdlHighWave, core.ReliabilityLow},
	{"hikkake", cdlHikkake, core.ReliabilityMedium},
	{"hikkake_modified", cdlHikkakeModified, core.ReliabilityMedium},
	{"homing_pigeon", cdlHomingPigeon, core.ReliabilityMedium},
	{"identical_three_crows", cdlIdenticalThreeCrows, core.ReliabilityHigh},
	{"in_neck", cdlInNeck, core.ReliabilityMedium},
	{"inverted_hammer", cdlInvertedHammer, core.ReliabilityMedium},
	{"kicking", cdlKicking, core.ReliabilityHigh},
	{"kicking_by_length", cdlKickingByLength, core.ReliabilityHigh},
	{"ladder_bottom", cdlLadderBottom, core.ReliabilityMedium},
	{"long_legged_doji", cdlLongLeggedDoji, core.ReliabilityLow},
	{"long_line", cdlLongLine, core.ReliabilityLow},
	{"marubozu", cdlMarubozu, core.ReliabilityMedium},
	{"mat_hold", cdlMatHold, core.ReliabilityHigh},
	{"matching_low", cdlMatchingLow, core.ReliabilityMedium},
	{"morning_doji_star", cdlMorningDojiStar, core.ReliabilityHigh},
	{"morning_star", cdlMorningStar, core.ReliabilityHigh},
	{"on_neck", cdlOnNeck, core.ReliabilityMedium},
	{"piercing", cdlPiercing, core.ReliabilityMedium},
	{"rickshaw_man", cdlRickshawMan, core.ReliabilityLow},
	{"rising_three_methods", cdlRisingThreeMethods, core.ReliabilityHigh},
	{"separating_lines", cdlSeparatingLines, core.ReliabilityMedium},
	{"shooting_star", cdlShootingStar, core.ReliabilityMedium},
	{"short_line", cdlShortLine, core.ReliabilityLow},
	{"spinning_top", cdlSpinningTop, core.ReliabilityLow},
	{"stalled_pattern", cdlStalledPattern, core.ReliabilityMedium},
	{"stick_sandwich", cdlStickSandwich, core.ReliabilityMedium},
	{"takuri", cdlTakuri, core.ReliabilityMedium},
	{"tasuki_gap", cdlTasukiGap, core.ReliabilityMedium},
	{"three_black_crows", cdlThreeBlackCrows, core.ReliabilityHigh},
	{"three_inside", cdlThreeInside, core.ReliabilityMedium},
	{"three_line_strike", cdlThreeLineStrike, core.ReliabilityMedium},
	{"three_outside", cdlThreeOutside, core.ReliabilityMedium},
	{"three_stars_in_south", cdlThreeStarsInSouth, core.ReliabilityMedium},
	{"three_white_soldiers", cdlThreeWhiteSoldiers, core.ReliabilityHigh},
	{"thrusting", cdlThrusting, core.ReliabilityMedium},
	{"tristar", cdlTristar, core.ReliabilityMedium},
	{"two_crows", cdlTwoCrows, core.ReliabilityMedium},
	{"unique_three_river", cdlUniqueThreeRiver, core.ReliabilityMedium},
	{"upside_gap_three_methods", cdlUpsideGapThreeMethods, core.ReliabilityMedium},
	{"upside_gap_two_crows", cdlUpsideGapTwoCrows, core.ReliabilityMedium},
}

// Candle-geometry helpers. All thresholds are fractions of the bar's own
// high-low range so the recognizers are scale-free.

func body(o, c float64) float64           { return math.Abs(c - o) }
func barRange(h, l float64) float64       { return h - l }
func upperShadow(o, h, c float64) float64 { return h - math.Max(o, c) }
func lowerShadow(o, l, c float64) float64 { return math.Min(o, c) - l }
func isBull(o, c float64) bool            { return c > o }
func bodyTop(o, c float64) float64        { return math.Max(o, c) }
func bodyBot(o, c float64) float64        { return math.Min(o, c) }

// approxEq compares two prices with a relative tolerance anchored to the
// first operand.
func approxEq(a, b, tol float64) bool {
	ref := math.Abs(a)
	if ref == 0 {
		return math.Abs(b) <= tol
	}
	return math.Abs(a-b) <= ref*tol
}

func isDojiBar(o, h, l, c float64) bool {
	r := barRange(h, l)
	return r > 0 && body(o, c) <= 0.1*r
}

func isLongBody(o, h, l, c float64) bool {
	r := barRange(h, l)
	return r > 0 && body(o, c) >= 0.6*r
}

func isSmallBody(o, h, l, c float64) bool {
	r := barRange(h, l)
	return r > 0 && body(o, c) <= 0.3*r
}

func isMarubozuBar(o, h, l, c float64) bool {
	r := barRange(h, l)
	return r > 0 && body(o, c) >= 0.9*r
}

// avgBodyBefore is the mean body size of the n bars before index i, or 0
// when there is no history.
func avgBodyBefore(o, c []float64, i, n int) float64 {
	from := i - n
	if from < 0 {
		from = 0
	}
	if from >= i {
		return 0
	}
	var sum float64
	for j := from; j < i; j++ {
		sum += body(o[j], c[j])
	}
	return sum / float64(i-from)
}

// trendAt reports the short-term trend into bar i: +1 up, -1 down, 0 flat,
// comparing close[i-1] to the mean of the five closes before it.
func trendAt(close []float64, i int) int {
	if i < 6 {
		return 0
	}
	var sum float64
	for j := i - 6; j < i-1; j++ {
		sum += close[j]
	}
	mean := sum / 5
	switch {
	case close[i-1] > mean*1.005:
		return 1
	case close[i-1] < mean*0.995:
		return -1
	default:
		return 0
	}
}

func perBar(n int, at func(i int) float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = at(i)
	}
	return out
}

// Single-bar shapes.

func cdlDoji(o, h, l, c []float64) []float64 {
	return perBar(len(c), func(i int) float64 {
		if isDojiBar(o[i], h[i], l[i], c[i]) {
			return 100
		}
		return 0
	})
}

func cdlDragonflyDoji(o, h, l, c []float64) []float64 {
	return perBar(len(c), func(i int) float64 {
		r := barRange(h[i], l[i])
		if r <= 0 || !isDojiBar(o[i], h[i], l[i], c[i]) {
			return 0
		}
		if lowerShadow(o[i], l[i], c[i]) >= 0.6*r && upperShadow(o[i], h[i], c[i]) <= 0.1*r {
			return 100
		}
		return 0
	})
}

func cdlGravestoneDoji(o, h, l, c []float64) []float64 {
	return perBar(len(c), func(i int) float64 {
		r := barRange(h[i], l[i])
		if r <= 0 || !isDojiBar(o[i], h[i], l[i], c[i]) {
			return 0
		}
		if upperShadow(o[i], h[i], c[i]) >= 0.6*r && lowerShadow(o[i], l[i], c[i]) <= 0.1*r {
			return -100
		}
		return 0
	})
}

func cdlLongLeggedDoji(o, h, l, c []float64) []float64 {
	return perBar(len(c), func(i int) float64 {
		r := barRange(h[i], l[i])
		if r <= 0 || !isDojiBar(o[i], h[i], l[i], c[i]) {
			return 0
		}
		if upperShadow(o[i], h[i], c[i]) >= 0.3*r && lowerShadow(o[i], l[i], c[i]) >= 0.3*r {
			return 100
		}
		return 0
	})
}

// cdlRickshawMan is a long-legged doji whose body sits near the middle of
// the bar's range.
func cdlRickshawMan(o, h, l, c []float64) []float64 {
	legged := cdlLongLeggedDoji(o, h, l, c)
	return perBar(len(c), func(i int) float64 {
		if legged[i] == 0 {
			return 0
		}
		r := barRange(h[i], l[i])
		bodyMid := (o[i] + c[i]) / 2
		rangeMid := (h[i] + l[i]) / 2
		if math.Abs(bodyMid-rangeMid) <= 0.1*r {
			return 100
		}
		return 0
	})
}

func cdlMarubozu(o, h, l, c []float64) []float64 {
	return perBar(len(c), func(i int) float64 {
		r := barRange(h[i], l[i])
		if r <= 0 || body(o[i], c[i]) < 0.95*r {
			return 0
		}
		if isBull(o[i], c[i]) {
			return 100
		}
		return -100
	})
}

// cdlClosingMarubozu requires no shadow on the close side only.
func cdlClosingMarubozu(o, h, l, c []float64) []float64 {
	return perBar(len(c), func(i int) float64 {
		r := barRange(h[i], l[i])
		if r <= 0 || !isLongBody(o[i], h[i], l[i], c[i]) {
			return 0
		}
		if isBull(o[i], c[i]) && upperShadow(o[i], h[i], c[i]) <= 0.05*r {
			return 100
		}
		if !isBull(o[i], c[i]) && lowerShadow(o[i], l[i], c[i]) <= 0.05*r {
			return -100
		}
		return 0
	})
}

func cdlSpinningTop(o, h, l, c []float64) []float64 {
	return perBar(len(c), func(i int) float64 {
		r := barRange(h[i], l[i])
		b := body(o[i], c[i])
		if r <= 0 || b <= 0 || b > 0.3*r {
			return 0
		}
		if upperShadow(o[i], h[i], c[i]) <= b || lowerShadow(o[i], l[i], c[i]) <= b {
			return 0
		}
		if isBull(o[i], c[i]) {
			return 100
		}
		return -100
	})
}

// cdlHighWave has a tiny body lost between two very long shadows.
func cdlHighWave(o, h, l, c []float64) []float64 {
	return perBar(len(c), func(i int) float64 {
		r := barRange(h[i], l[i])
		if r <= 0 || body(o[i], c[i]) > 0.15*r {
			return 0
		}
		if upperShadow(o[i], h[i], c[i]) < 0.35*r || lowerShadow(o[i], l[i], c[i]) < 0.35*r {
			return 0
		}
		if c[i] >= o[i] {
			return 100
		}
		return -100
	})
}

// cdlLongLine / cdlShortLine compare the body against the recent average.
func cdlLongLine(o, h, l, c []float64) []float64 {
	return perBar(len(c), func(i int) float64 {
		avg := avgBodyBefore(o, c, i, 10)
		if avg <= 0 || body(o[i], c[i]) < 2*avg || !isLongBody(o[i], h[i], l[i], c[i]) {
			return 0
		}
		if isBull(o[i], c[i]) {
			return 100
		}
		return -100
	})
}

func cdlShortLine(o, h, l, c []float64) []float64 {
	return perBar(len(c), func(i int) float64 {
		avg := avgBodyBefore(o, c, i, 10)
		b := body(o[i], c[i])
		if avg <= 0 || b <= 0 || b > 0.5*avg {
			return 0
		}
		if upperShadow(o[i], h[i], c[i]) > b || lowerShadow(o[i], l[i], c[i]) > b {
			return 0
		}
		if isBull(o[i], c[i]) {
			return 100
		}
		return -100
	})
}

func hammerShape(o, h, l, c float64) bool {
	r := barRange(h, l)
	if r <= 0 {
		return false
	}
	b := body(o, c)
	return b > 0 && lowerShadow(o, l, c) >= 2*b && upperShadow(o, h, c) <= 0.1*r
}

func invertedHammerShape(o, h, l, c float64) bool {
	r := barRange(h, l)
	if r <= 0 {
		return false
	}
	b := body(o, c)
	return b > 0 && upperShadow(o, h, c) >= 2*b && lowerShadow(o, l, c) <= 0.1*r
}

func cdlHammer(o, h, l, c []float64) []float64 {
	return perBar(len(c), func(i int) float64 {
		if hammerShape(o[i], h[i], l[i], c[i]) && trendAt(c, i) < 0 {
			return 100
		}
		return 0
	})
}

func cdlHangingMan(o, h, l, c []float64) []float64 {
	return perBar(len(c), func(i int) float64 {
		if hammerShape(o[i], h[i], l[i], c[i]) && trendAt(c, i) > 0 {
			return -100
		}
		return 0
	})
}

func cdlInvertedHammer(o, h, l, c []float64) []float64 {
	return perBar(len(c), func(i int) float64 {
		if invertedHammerShape(o[i], h[i], l[i], c[i]) && trendAt(c, i) < 0 {
			return 100
		}
		return 0
	})
}

func cdlShootingStar(o, h, l, c []float64) []float64 {
	return perBar(len(c), func(i int) float64 {
		if invertedHammerShape(o[i], h[i], l[i], c[i]) && trendAt(c, i) > 0 {
			return -100
		}
		return 0
	})
}

// cdlTakuri is a dragonfly doji with an exceptionally long lower shadow.
func cdlTakuri(o, h, l, c []float64) []float64 {
	return perBar(len(c), func(i int) float64 {
		r := barRange(h[i], l[i])
		if r <= 0 || !isDojiBar(o[i], h[i], l[i], c[i]) {
			return 0
		}
		if lowerShadow(o[i], l[i], c[i]) >= 0.66*r && upperShadow(o[i], h[i], c[i]) <= 0.05*r {
			return 100
		}
		return 0
	})
}

func cdlBeltHold(o, h, l, c []float64) []float64 {
	return perBar(len(c), func(i int) float64 {
		r := barRange(h[i], l[i])
		if r <= 0 || !isLongBody(o[i], h[i], l[i], c[i]) {
			return 0
		}
		if isBull(o[i], c[i]) && lowerShadow(o[i], l[i], c[i]) <= 0.05*r {
			return 100
		}
		if !isBull(o[i], c[i]) && upperShadow(o[i], h[i], c[i]) <= 0.05*r {
			return -100
		}
		return 0
	})
}

// Two-bar shapes.

func cdlEngulfing(o, h, l, c []float64) []float64 {
	return perBar(len(c), func(i int) float64 {
		if i < 1 {
			return 0
		}
		curBull := isBull(o[i], c[i])
		prevBull := isBull(o[i-1], c[i-1])
		if curBull && !prevBull && c[i] > o[i-1] && o[i] < c[i-1] {
			return 100
		}
		if !curBull && prevBull && o[i] > c[i-1] && c[i] < o[i-1] {
			return -100
		}
		return 0
	})
}

func haramiAt(o, h, l, c []float64, i int) (bool, bool) {
	if i < 1 || !isLongBody(o[i-1], h[i-1], l[i-1], c[i-1]) {
		return false, false
	}
	inside := bodyTop(o[i], c[i]) < bodyTop(o[i-1], c[i-1]) && bodyBot(o[i], c[i]) > bodyBot(o[i-1], c[i-1])
	return inside, isBull(o[i], c[i])
}

func cdlHarami(o, h, l, c []float64) []float64 {
	return perBar(len(c), func(i int) float64 {
		inside, curBull := haramiAt(o, h, l, c, i)
		if !inside {
			return 0
		}
		if curBull {
			return 100
		}
		return -100
	})
}

func cdlHaramiCross(o, h, l, c []float64) []float64 {
	return perBar(len(c), func(i int) float64 {
		inside, _ := haramiAt(o, h, l, c, i)
		if !inside || !isDojiBar(o[i], h[i], l[i], c[i]) {
			return 0
		}
		if isBull(o[i-1], c[i-1]) {
			return -100
		}
		return 100
	})
}

// cdlHomingPigeon is a bearish harami where both bars are black.
func cdlHomingPigeon(o, h, l, c []float64) []float64 {
	return perBar(len(c), func(i int) float64 {
		inside, curBull := haramiAt(o, h, l, c, i)
		if !inside || curBull || isBull(o[i-1], c[i-1]) {
			return 0
		}
		return 100
	})
}

// cdlDojiStar fires when a doji gaps away from a long-bodied bar: a gap up
// after a bull bar warns of exhaustion (-100), a gap down after a bear bar
// of a bottom (+100).
func cdlDojiStar(o, h, l, c []float64) []float64 {
	return perBar(len(c), func(i int) float64 {
		if i < 1 || !isDojiBar(o[i], h[i], l[i], c[i]) || !isLongBody(o[i-1], h[i-1], l[i-1], c[i-1]) {
			return 0
		}
		if isBull(o[i-1], c[i-1]) && bodyBot(o[i], c[i]) > bodyTop(o[i-1], c[i-1]) {
			return -100
		}
		if !isBull(o[i-1], c[i-1]) && bodyTop(o[i], c[i]) < bodyBot(o[i-1], c[i-1]) {
			return 100
		}
		return 0
	})
}

func cdlPiercing(o, h, l, c []float64) []float64 {
	return perBar(len(c), func(i int) float64 {
		if i < 1 {
			return 0
		}
		prevBear := !isBull(o[i-1], c[i-1]) && isLongBody(o[i-1], h[i-1], l[i-1], c[i-1])
		midpoint := (o[i-1] + c[i-1]) / 2
		if prevBear && isBull(o[i], c[i]) && o[i] < l[i-1] && c[i] > midpoint && c[i] < o[i-1] {
			return 100
		}
		return 0
	})
}

func cdlDarkCloudCover(o, h, l, c []float64) []float64 {
	return perBar(len(c), func(i int) float64 {
		if i < 1 {
			return 0
		}
		prevBull := isBull(o[i-1], c[i-1]) && isLongBody(o[i-1], h[i-1], l[i-1], c[i-1])
		midpoint := (o[i-1] + c[i-1]) / 2
		if prevBull && !isBull(o[i], c[i]) && o[i] > h[i-1] && c[i] < midpoint && c[i] > o[i-1] {
			return -100
		}
		return 0
	})
}

// cdlOnNeck / cdlInNeck / cdlThrusting grade how far a bull bar recovers
// into a preceding long black bar: to its low, to its close, or into (but
// not past the midpoint of) its body. All three are bearish continuation.
func neckContext(o, h, l, c []float64, i int) bool {
	return i >= 1 &&
		!isBull(o[i-1], c[i-1]) && isLongBody(o[i-1], h[i-1], l[i-1], c[i-1]) &&
		isBull(o[i], c[i]) && o[i] < l[i-1]
}

func cdlOnNeck(o, h, l, c []float64) []float64 {
	return perBar(len(c), func(i int) float64 {
		if neckContext(o, h, l, c, i) && approxEq(c[i], l[i-1], 0.001) {
			return -100
		}
		return 0
	})
}

func cdlInNeck(o, h, l, c []float64) []float64 {
	return perBar(len(c), func(i int) float64 {
		if !neckContext(o, h, l, c, i) {
			return 0
		}
		if c[i] >= c[i-1] && c[i] <= c[i-1]+0.1*body(o[i-1], c[i-1]) {
			return -100
		}
		return 0
	})
}

func cdlThrusting(o, h, l, c []float64) []float64 {
	return perBar(len(c), func(i int) float64 {
		if !neckContext(o, h, l, c, i) {
			return 0
		}
		midpoint := (o[i-1] + c[i-1]) / 2
		if c[i] > c[i-1]+0.1*body(o[i-1], c[i-1]) && c[i] < midpoint {
			return -100
		}
		return 0
	})
}

// cdlCounterattack is two long opposite-color bars closing at the same
// level.
func cdlCounterattack(o, h, l, c []float64) []float64 {
	return perBar(len(c), func(i int) float64 {
		if i < 1 || !isLongBody(o[i-1], h[i-1], l[i-1], c[i-1]) || !isLongBody(o[i], h[i], l[i], c[i]) {
			return 0
		}
		if !approxEq(c[i-1], c[i], 0.001) {
			return 0
		}
		if isBull(o[i], c[i]) && !isBull(o[i-1], c[i-1]) {
			return 100
		}
		if !isBull(o[i], c[i]) && isBull(o[i-1], c[i-1]) {
			return -100
		}
		return 0
	})
}

// cdlSeparatingLines is two opposite-color bars sharing an open, the second
// continuing the prior trend.
func cdlSeparatingLines(o, h, l, c []float64) []float64 {
	return perBar(len(c), func(i int) float64 {
		if i < 1 || !approxEq(o[i-1], o[i], 0.001) || !isLongBody(o[i], h[i], l[i], c[i]) {
			return 0
		}
		if isBull(o[i], c[i]) && !isBull(o[i-1], c[i-1]) {
			return 100
		}
		if !isBull(o[i], c[i]) && isBull(o[i-1], c[i-1]) {
			return -100
		}
		return 0
	})
}

// cdlMatchingLow is two black bars closing at the same level: support.
func cdlMatchingLow(o, h, l, c []float64) []float64 {
	return perBar(len(c), func(i int) float64 {
		if i < 1 || isBull(o[i-1], c[i-1]) || isBull(o[i], c[i]) {
			return 0
		}
		if approxEq(c[i-1], c[i], 0.001) {
			return 100
		}
		return 0
	})
}

// cdlKicking is a marubozu pair with a body gap between them; sign follows
// the second bar's color. cdlKickingByLength signs by the longer marubozu.
func kickingAt(o, h, l, c []float64, i int) (bool, bool) {
	if i < 1 || !isMarubozuBar(o[i-1], h[i-1], l[i-1], c[i-1]) || !isMarubozuBar(o[i], h[i], l[i], c[i]) {
		return false, false
	}
	prevBull := isBull(o[i-1], c[i-1])
	curBull := isBull(o[i], c[i])
	if prevBull == curBull {
		return false, false
	}
	if curBull && bodyBot(o[i], c[i]) > bodyTop(o[i-1], c[i-1]) {
		return true, true
	}
	if !curBull && bodyTop(o[i], c[i]) < bodyBot(o[i-1], c[i-1]) {
		return true, false
	}
	return false, false
}

func cdlKicking(o, h, l, c []float64) []float64 {
	return perBar(len(c), func(i int) float64 {
		fired, curBull := kickingAt(o, h, l, c, i)
		if !fired {
			return 0
		}
		if curBull {
			return 100
		}
		return -100
	})
}

func cdlKickingByLength(o, h, l, c []float64) []float64 {
	return perBar(len(c), func(i int) float64 {
		fired, _ := kickingAt(o, h, l, c, i)
		if !fired {
			return 0
		}
		longerIsBull := isBull(o[i], c[i])
		if body(o[i-1], c[i-1]) > body(o[i], c[i]) {
			longerIsBull = isBull(o[i-1], c[i-1])
		}
		if longerIsBull {
			return 100
		}
		return -100
	})
}

// Three-bar shapes.

func cdlMorningStar(o, h, l, c []float64) []float64 {
	return perBar(len(c), func(i int) float64 {
		if i < 2 {
			return 0
		}
		firstBear := !isBull(o[i-2], c[i-2]) && isLongBody(o[i-2], h[i-2], l[i-2], c[i-2])
		starSmall := isSmallBody(o[i-1], h[i-1], l[i-1], c[i-1])
		thirdBull := isBull(o[i], c[i]) && isLongBody(o[i], h[i], l[i], c[i])
		midpoint := (o[i-2] + c[i-2]) / 2
		if firstBear && starSmall && thirdBull && c[i] > midpoint {
			return 100
		}
		return 0
	})
}

func cdlEveningStar(o, h, l, c []float64) []float64 {
	return perBar(len(c), func(i int) float64 {
		if i < 2 {
			return 0
		}
		firstBull := isBull(o[i-2], c[i-2]) && isLongBody(o[i-2], h[i-2], l[i-2], c[i-2])
		starSmall := isSmallBody(o[i-1], h[i-1], l[i-1], c[i-1])
		thirdBear := !isBull(o[i], c[i]) && isLongBody(o[i], h[i], l[i], c[i])
		midpoint := (o[i-2] + c[i-2]) / 2
		if firstBull && starSmall && thirdBear && c[i] < midpoint {
			return -100
		}
		return 0
	})
}

func cdlMorningDojiStar(o, h, l, c []float64) []float64 {
	stars := cdlMorningStar(o, h, l, c)
	return perBar(len(c), func(i int) float64 {
		if stars[i] != 0 && isDojiBar(o[i-1], h[i-1], l[i-1], c[i-1]) {
			return 100
		}
		return 0
	})
}

func cdlEveningDojiStar(o, h, l, c []float64) []float64 {
	stars := cdlEveningStar(o, h, l, c)
	return perBar(len(c), func(i int) float64 {
		if stars[i] != 0 && isDojiBar(o[i-1], h[i-1], l[i-1], c[i-1]) {
			return -100
		}
		return 0
	})
}

// cdlAbandonedBaby requires the star's full range to gap beyond both
// neighbors.
func cdlAbandonedBaby(o, h, l, c []float64) []float64 {
	return perBar(len(c), func(i int) float64 {
		if i < 2 || !isDojiBar(o[i-1], h[i-1], l[i-1], c[i-1]) {
			return 0
		}
		if !isBull(o[i-2], c[i-2]) && isBull(o[i], c[i]) && h[i-1] < l[i-2] && h[i-1] < l[i] {
			return 100
		}
		if isBull(o[i-2], c[i-2]) && !isBull(o[i], c[i]) && l[i-1] > h[i-2] && l[i-1] > h[i] {
			return -100
		}
		return 0
	})
}

func cdlThreeWhiteSoldiers(o, h, l, c []float64) []float64 {
	return perBar(len(c), func(i int) float64 {
		if i < 2 {
			return 0
		}
		for j := i - 2; j <= i; j++ {
			if !isBull(o[j], c[j]) || !isLongBody(o[j], h[j], l[j], c[j]) {
				return 0
			}
		}
		if c[i-1] > c[i-2] && c[i] > c[i-1] && o[i-1] > o[i-2] && o[i] > o[i-1] {
			return 100
		}
		return 0
	})
}

func cdlThreeBlackCrows(o, h, l, c []float64) []float64 {
	return perBar(len(c), func(i int) float64 {
		if i < 2 {
			return 0
		}
		for j := i - 2; j <= i; j++ {
			if isBull(o[j], c[j]) || !isLongBody(o[j], h[j], l[j], c[j]) {
				return 0
			}
		}
		if c[i-1] < c[i-2] && c[i] < c[i-1] && o[i-1] < o[i-2] && o[i] < o[i-1] {
			return -100
		}
		return 0
	})
}

// cdlIdenticalThreeCrows is three black crows where each bar opens at the
// prior close.
func cdlIdenticalThreeCrows(o, h, l, c []float64) []float64 {
	crows := cdlThreeBlackCrows(o, h, l, c)
	return perBar(len(c), func(i int) float64 {
		if crows[i] == 0 {
			return 0
		}
		if approxEq(o[i-1], c[i-2], 0.005) && approxEq(o[i], c[i-1], 0.005) {
			return -100
		}
		return 0
	})
}

// cdlThreeInside confirms a harami on the following bar.
func cdlThreeInside(o, h, l, c []float64) []float64 {
	return perBar(len(c), func(i int) float64 {
		if i < 2 {
			return 0
		}
		inside, secondBull := haramiAt(o, h, l, c, i-1)
		if !inside {
			return 0
		}
		if secondBull && !isBull(o[i-2], c[i-2]) && c[i] > bodyTop(o[i-2], c[i-2]) {
			return 100
		}
		if !secondBull && isBull(o[i-2], c[i-2]) && c[i] < bodyBot(o[i-2], c[i-2]) {
			return -100
		}
		return 0
	})
}

// cdlThreeOutside confirms an engulfing on the following bar.
func cdlThreeOutside(o, h, l, c []float64) []float64 {
	engulf := cdlEngulfing(o, h, l, c)
	return perBar(len(c), func(i int) float64 {
		if i < 2 {
			return 0
		}
		if engulf[i-1] > 0 && c[i] > c[i-1] {
			return 100
		}
		if engulf[i-1] < 0 && c[i] < c[i-1] {
			return -100
		}
		return 0
	})
}

// cdlThreeStarsInSouth is three black bars with shrinking bodies and rising
// lows: a fading decline.
func cdlThreeStarsInSouth(o, h, l, c []float64) []float64 {
	return perBar(len(c), func(i int) float64 {
		if i < 2 {
			return 0
		}
		for j := i - 2; j <= i; j++ {
			if isBull(o[j], c[j]) {
				return 0
			}
		}
		bodiesShrink := body(o[i-1], c[i-1]) < body(o[i-2], c[i-2]) && body(o[i], c[i]) < body(o[i-1], c[i-1])
		lowsRise := l[i-1] > l[i-2] && l[i] > l[i-1]
		if bodiesShrink && lowsRise {
			return 100
		}
		return 0
	})
}

// cdlAdvanceBlock is three rising white bars with shrinking bodies and
// growing upper shadows: a stalling advance.
func cdlAdvanceBlock(o, h, l, c []float64) []float64 {
	return perBar(len(c), func(i int) float64 {
		if i < 2 {
			return 0
		}
		for j := i - 2; j <= i; j++ {
			if !isBull(o[j], c[j]) {
				return 0
			}
		}
		if !(c[i-1] > c[i-2] && c[i] > c[i-1]) {
			return 0
		}
		bodiesShrink := body(o[i-1], c[i-1]) < body(o[i-2], c[i-2]) && body(o[i], c[i]) < body(o[i-1], c[i-1])
		shadowsGrow := upperShadow(o[i-1], h[i-1], c[i-1]) > upperShadow(o[i-2], h[i-2], c[i-2]) &&
			upperShadow(o[i], h[i], c[i]) > upperShadow(o[i-1], h[i-1], c[i-1])
		if bodiesShrink && shadowsGrow {
			return -100
		}
		return 0
	})
}

// cdlStalledPattern is two long white bars then a small white bar riding
// the second's upper end.
func cdlStalledPattern(o, h, l, c []float64) []float64 {
	return perBar(len(c), func(i int) float64 {
		if i < 2 {
			return 0
		}
		firstLong := isBull(o[i-2], c[i-2]) && isLongBody(o[i-2], h[i-2], l[i-2], c[i-2])
		secondLong := isBull(o[i-1], c[i-1]) && isLongBody(o[i-1], h[i-1], l[i-1], c[i-1]) && c[i-1] > c[i-2]
		thirdSmall := isBull(o[i], c[i]) && isSmallBody(o[i], h[i], l[i], c[i]) && o[i] >= c[i-1]-0.2*body(o[i-1], c[i-1])
		if firstLong && secondLong && thirdSmall {
			return -100
		}
		return 0
	})
}

// cdlStickSandwich is bear/bull/bear with the outer closes matching.
func cdlStickSandwich(o, h, l, c []float64) []float64 {
	return perBar(len(c), func(i int) float64 {
		if i < 2 {
			return 0
		}
		if isBull(o[i-2], c[i-2]) || !isBull(o[i-1], c[i-1]) || isBull(o[i], c[i]) {
			return 0
		}
		if approxEq(c[i-2], c[i], 0.001) {
			return 100
		}
		return 0
	})
}

// cdlTristar is three dojis with the middle one gapping away from its
// neighbors.
func cdlTristar(o, h, l, c []float64) []float64 {
	return perBar(len(c), func(i int) float64 {
		if i < 2 {
			return 0
		}
		for j := i - 2; j <= i; j++ {
			if !isDojiBar(o[j], h[j], l[j], c[j]) {
				return 0
			}
		}
		midTop := bodyTop(o[i-1], c[i-1])
		midBot := bodyBot(o[i-1], c[i-1])
		if midBot > bodyTop(o[i-2], c[i-2]) && midBot > bodyTop(o[i], c[i]) {
			return -100
		}
		if midTop < bodyBot(o[i-2], c[i-2]) && midTop < bodyBot(o[i], c[i]) {
			return 100
		}
		return 0
	})
}

// cdlUniqueThreeRiver: long black bar, a black harami making a lower low,
// then a small white bar holding under the second close.
func cdlUniqueThreeRiver(o, h, l, c []float64) []float64 {
	return perBar(len(c), func(i int) float64 {
		if i < 2 {
			return 0
		}
		firstBear := !isBull(o[i-2], c[i-2]) && isLongBody(o[i-2], h[i-2], l[i-2], c[i-2])
		secondBear := !isBull(o[i-1], c[i-1]) && bodyTop(o[i-1], c[i-1]) < bodyTop(o[i-2], c[i-2]) && l[i-1] < l[i-2]
		thirdSmallBull := isBull(o[i], c[i]) && isSmallBody(o[i], h[i], l[i], c[i]) && c[i] < c[i-1]
		if firstBear && secondBear && thirdSmallBull {
			return 100
		}
		return 0
	})
}

// cdlTwoCrows: a gap-up black bar after a long white one, then a second
// black bar closing into the white body.
func cdlTwoCrows(o, h, l, c []float64) []float64 {
	return perBar(len(c), func(i int) float64 {
		if i < 2 {
			return 0
		}
		firstBull := isBull(o[i-2], c[i-2]) && isLongBody(o[i-2], h[i-2], l[i-2], c[i-2])
		secondBearGapped := !isBull(o[i-1], c[i-1]) && bodyBot(o[i-1], c[i-1]) > c[i-2]
		thirdBear := !isBull(o[i], c[i]) && o[i] > bodyBot(o[i-1], c[i-1]) && c[i] < c[i-2]+body(o[i-2], c[i-2]) && c[i] > o[i-2]
		if firstBull && secondBearGapped && thirdBear {
			return -100
		}
		return 0
	})
}

// cdlUpsideGapTwoCrows: like two crows but the third engulfs the second and
// still closes above the white bar's close.
func cdlUpsideGapTwoCrows(o, h, l, c []float64) []float64 {
	return perBar(len(c), func(i int) float64 {
		if i < 2 {
			return 0
		}
		firstBull := isBull(o[i-2], c[i-2]) && isLongBody(o[i-2], h[i-2], l[i-2], c[i-2])
		secondBearGapped := !isBull(o[i-1], c[i-1]) && bodyBot(o[i-1], c[i-1]) > c[i-2]
		thirdEngulfs := !isBull(o[i], c[i]) && o[i] > bodyTop(o[i-1], c[i-1]) && c[i] < bodyBot(o[i-1], c[i-1]) && c[i] > c[i-2]
		if firstBull && secondBearGapped && thirdEngulfs {
			return -100
		}
		return 0
	})
}

// cdlGapSideBySideWhite: two similar white bars side by side above a body
// gap, continuing the advance.
func cdlGapSideBySideWhite(o, h, l, c []float64) []float64 {
	return perBar(len(c), func(i int) float64 {
		if i < 2 {
			return 0
		}
		if !isBull(o[i-1], c[i-1]) || !isBull(o[i], c[i]) {
			return 0
		}
		gapped := bodyBot(o[i-1], c[i-1]) > bodyTop(o[i-2], c[i-2])
		similar := approxEq(o[i-1], o[i], 0.005) && approxEq(body(o[i-1], c[i-1]), body(o[i], c[i]), 0.5)
		if gapped && similar {
			return 100
		}
		return 0
	})
}

// cdlTasukiGap: a body gap in the trend direction, then an opposite bar
// closing into (but not filling) the gap — continuation in the gap's
// direction.
func cdlTasukiGap(o, h, l, c []float64) []float64 {
	return perBar(len(c), func(i int) float64 {
		if i < 2 {
			return 0
		}
		gapUp := isBull(o[i-1], c[i-1]) && bodyBot(o[i-1], c[i-1]) > bodyTop(o[i-2], c[i-2])
		closesIntoUpGap := !isBull(o[i], c[i]) && o[i] > bodyBot(o[i-1], c[i-1]) && o[i] < bodyTop(o[i-1], c[i-1]) &&
			c[i] < bodyBot(o[i-1], c[i-1]) && c[i] > bodyTop(o[i-2], c[i-2])
		if gapUp && closesIntoUpGap {
			return 100
		}
		gapDown := !isBull(o[i-1], c[i-1]) && bodyTop(o[i-1], c[i-1]) < bodyBot(o[i-2], c[i-2])
		closesIntoDownGap := isBull(o[i], c[i]) && o[i] < bodyTop(o[i-1], c[i-1]) && o[i] > bodyBot(o[i-1], c[i-1]) &&
			c[i] > bodyTop(o[i-1], c[i-1]) && c[i] < bodyBot(o[i-2], c[i-2])
		if gapDown && closesIntoDownGap {
			return -100
		}
		return 0
	})
}

// cdlUpsideGapThreeMethods / cdlDownsideGapThreeMethods: a body gap in the
// trend direction fully closed by the third bar — continuation, not
// reversal.
func cdlUpsideGapThreeMethods(o, h, l, c []float64) []float64 {
	return perBar(len(c), func(i int) float64 {
		if i < 2 {
			return 0
		}
		twoBulls := isBull(o[i-2], c[i-2]) && isBull(o[i-1], c[i-1])
		gapUp := bodyBot(o[i-1], c[i-1]) > bodyTop(o[i-2], c[i-2])
		fills := !isBull(o[i], c[i]) && o[i] > bodyBot(o[i-1], c[i-1]) && c[i] < bodyTop(o[i-2], c[i-2])
		if twoBulls && gapUp && fills {
			return 100
		}
		return 0
	})
}

func cdlDownsideGapThreeMethods(o, h, l, c []float64) []float64 {
	return perBar(len(c), func(i int) float64 {
		if i < 2 {
			return 0
		}
		twoBears := !isBull(o[i-2], c[i-2]) && !isBull(o[i-1], c[i-1])
		gapDown := bodyTop(o[i-1], c[i-1]) < bodyBot(o[i-2], c[i-2])
		fills := isBull(o[i], c[i]) && o[i] < bodyTop(o[i-1], c[i-1]) && c[i] > bodyBot(o[i-2], c[i-2])
		if twoBears && gapDown && fills {
			return -100
		}
		return 0
	})
}

// Four-bar-plus shapes.

// cdlThreeLineStrike: three bars in one direction, then a fourth engulfing
// all three — counted as continuation in the original direction.
func cdlThreeLineStrike(o, h, l, c []float64) []float64 {
	return perBar(len(c), func(i int) float64 {
		if i < 3 {
			return 0
		}
		threeBulls := isBull(o[i-3], c[i-3]) && isBull(o[i-2], c[i-2]) && isBull(o[i-1], c[i-1]) &&
			c[i-2] > c[i-3] && c[i-1] > c[i-2]
		if threeBulls && !isBull(o[i], c[i]) && o[i] > c[i-1] && c[i] < o[i-3] {
			return 100
		}
		threeBears := !isBull(o[i-3], c[i-3]) && !isBull(o[i-2], c[i-2]) && !isBull(o[i-1], c[i-1]) &&
			c[i-2] < c[i-3] && c[i-1] < c[i-2]
		if threeBears && isBull(o[i], c[i]) && o[i] < c[i-1] && c[i] > o[i-3] {
			return -100
		}
		return 0
	})
}

// cdlConcealingBabySwallow: four black bars, the last engulfing the prior
// body entirely — capitulation.
func cdlConcealingBabySwallow(o, h, l, c []float64) []float64 {
	return perBar(len(c), func(i int) float64 {
		if i < 3 {
			return 0
		}
		for j := i - 3; j <= i; j++ {
			if isBull(o[j], c[j]) || !isLongBody(o[j], h[j], l[j], c[j]) {
				return 0
			}
		}
		if o[i] >= bodyTop(o[i-1], c[i-1]) && c[i] <= bodyBot(o[i-1], c[i-1]) {
			return 100
		}
		return 0
	})
}

// cdlLadderBottom: four declining black bars, then a white bar opening
// above the prior open.
func cdlLadderBottom(o, h, l, c []float64) []float64 {
	return perBar(len(c), func(i int) float64 {
		if i < 4 {
			return 0
		}
		for j := i - 4; j <= i-1; j++ {
			if isBull(o[j], c[j]) {
				return 0
			}
		}
		declining := c[i-3] < c[i-4] && c[i-2] < c[i-3] && c[i-1] < c[i-2]
		if declining && isBull(o[i], c[i]) && o[i] > o[i-1] {
			return 100
		}
		return 0
	})
}

// riseFallThreeMethodsAt detects a long bar, three small counter-trend bars
// held inside its range, and a second long bar extending the move. bull
// selects the rising (white) or falling (black) variant.
func riseFallThreeMethodsAt(o, h, l, c []float64, i int, bull bool) bool {
	if i < 4 {
		return false
	}
	first, last := i-4, i
	if isBull(o[first], c[first]) != bull || !isLongBody(o[first], h[first], l[first], c[first]) {
		return false
	}
	if isBull(o[last], c[last]) != bull || !isLongBody(o[last], h[last], l[last], c[last]) {
		return false
	}
	for j := i - 3; j <= i-1; j++ {
		if !isSmallBody(o[j], h[j], l[j], c[j]) || h[j] > h[first] || l[j] < l[first] {
			return false
		}
	}
	if bull {
		return c[last] > c[first]
	}
	return c[last] < c[first]
}

func cdlRisingThreeMethods(o, h, l, c []float64) []float64 {
	return perBar(len(c), func(i int) float64 {
		if riseFallThreeMethodsAt(o, h, l, c, i, true) {
			return 100
		}
		return 0
	})
}

func cdlFallingThreeMethods(o, h, l, c []float64) []float64 {
	return perBar(len(c), func(i int) float64 {
		if riseFallThreeMethodsAt(o, h, l, c, i, false) {
			return -100
		}
		return 0
	})
}

// cdlMatHold: like rising three methods but the pullback bars may dip
// below the first bar's close, as long as they hold above its open.
func cdlMatHold(o, h, l, c []float64) []float64 {
	return perBar(len(c), func(i int) float64 {
		if i < 4 {
			return 0
		}
		first := i - 4
		if !isBull(o[first], c[first]) || !isLongBody(o[first], h[first], l[first], c[first]) {
			return 0
		}
		for j := i - 3; j <= i-1; j++ {
			if !isSmallBody(o[j], h[j], l[j], c[j]) || l[j] < o[first] {
				return 0
			}
		}
		maxHigh := h[i-3]
		for j := i - 2; j <= i-1; j++ {
			if h[j] > maxHigh {
				maxHigh = h[j]
			}
		}
		if isBull(o[i], c[i]) && c[i] > maxHigh {
			return 100
		}
		return 0
	})
}

// cdlBreakaway: a long bar, a same-direction body gap, drift continuing the
// move, then a reversal bar closing back inside the gap.
func cdlBreakaway(o, h, l, c []float64) []float64 {
	return perBar(len(c), func(i int) float64 {
		if i < 4 {
			return 0
		}
		first, gapBar := i-4, i-3
		// Bullish breakaway out of a decline.
		if !isBull(o[first], c[first]) && isLongBody(o[first], h[first], l[first], c[first]) &&
			bodyTop(o[gapBar], c[gapBar]) < bodyBot(o[first], c[first]) &&
			c[i-1] < c[gapBar] &&
			isBull(o[i], c[i]) && c[i] > bodyTop(o[gapBar], c[gapBar]) && c[i] < bodyBot(o[first], c[first]) {
			return 100
		}
		// Bearish breakaway out of an advance.
		if isBull(o[first], c[first]) && isLongBody(o[first], h[first], l[first], c[first]) &&
			bodyBot(o[gapBar], c[gapBar]) > bodyTop(o[first], c[first]) &&
			c[i-1] > c[gapBar] &&
			!isBull(o[i], c[i]) && c[i] < bodyBot(o[gapBar], c[gapBar]) && c[i] > bodyTop(o[first], c[first]) {
			return -100
		}
		return 0
	})
}

// cdlHikkake: an inside bar, then a close breaking beyond the bar it was
// inside of — the false-move trap resolving.
func cdlHikkake(o, h, l, c []float64) []float64 {
	return perBar(len(c), func(i int) float64 {
		if i < 2 {
			return 0
		}
		inside := h[i-1] < h[i-2] && l[i-1] > l[i-2]
		if !inside {
			return 0
		}
		if c[i] > h[i-2] {
			return 100
		}
		if c[i] < l[i-2] {
			return -100
		}
		return 0
	})
}

// cdlHikkakeModified adds the context bar: the inside bar must close
// against the eventual breakout direction.
func cdlHikkakeModified(o, h, l, c []float64) []float64 {
	return perBar(len(c), func(i int) float64 {
		if i < 3 {
			return 0
		}
		inside := h[i-1] < h[i-2] && l[i-1] > l[i-2]
		if !inside {
			return 0
		}
		if c[i] > h[i-2] && !isBull(o[i-1], c[i-1]) && c[i-2] < c[i-3] {
			return 100
		}
		if c[i] < l[i-2] && isBull(o[i-1], c[i-1]) && c[i-2] > c[i-3] {
			return -100
		}
		return 0
	})
}

// detectPatterns runs every registered recognizer over the full window and
// returns one PatternHit per (bar, pattern) where the recognizer fired
// non-zero, carrying the static reliability tier and confirmation/target/
// invalidation prices derived from the firing bar's own range.
func detectPatterns(highs, lows, closes []float64, bars []core.Bar) []core.PatternHit {
	if len(bars) == 0 {
		return nil
	}
	opens := make([]float64, len(bars))
	for i, b := range bars {
		opens[i] = b.Open
	}

	var hits []core.PatternHit
	for _, p := range patternTable {
		values := p.fn(opens, highs, lows, closes)
		for i, v := range values {
			if v == 0 {
				continue
			}
			bar := bars[i]
			hit := core.PatternHit{
				PatternName: p.name,
				Value:       int(v),
				Reliability: p.reliability,
			}
			if v > 0 {
				hit.ConfirmationPrice = bar.High
				hit.TargetPrice = bar.High + (bar.High - bar.Low)
				hit.InvalidationPrice = bar.Low
			} else {
				hit.ConfirmationPrice = bar.Low
				hit.TargetPrice = bar.Low - (bar.High - bar.Low)
				hit.InvalidationPrice = bar.High
			}
			hits = append(hits, hit)
		}
	}
	return hits
}
