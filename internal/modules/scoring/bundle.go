// Package scoring turns a per-symbol bundle of bars, fundamentals, indicator
// values and pattern detections into a deterministic Recommendation, via a
// five-axis [0,100] sub-score model rather than a single fixed-weight
// [0,1] house score.
package scoring

import (
	"github.com/ksfraser/WealthSystem-sub012/internal/core"
)

// Bundle is everything the scoring engine needs for one symbol. Bars must be
// ordered ascending by date; Indicators is optional (nil skips
// indicator-dependent technical components, falling back to neutral
// midpoints).
type Bundle struct {
	Symbol       string
	Bars         []core.Bar
	Fundamentals core.Fundamentals
	Indicators   *core.IndicatorVector
	Patterns     []core.PatternHit
	Analyst      core.AnalystInputs
	BenchmarkBars []core.Bar // market-index series for relative-strength
}
