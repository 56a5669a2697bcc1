package indicators

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ksfraser/WealthSystem-sub012/internal/core"
)

func TestPatternTableCoversFullCatalogue(t *testing.T) {
	assert.Len(t, patternTable, 63)

	seen := make(map[string]bool, len(patternTable))
	for _, p := range patternTable {
		assert.False(t, seen[p.name], "duplicate pattern name %q", p.name)
		seen[p.name] = true
		assert.NotNil(t, p.fn, "pattern %q has no recognizer", p.name)
		assert.Contains(t, []core.ReliabilityTier{core.ReliabilityLow, core.ReliabilityMedium, core.ReliabilityHigh}, p.reliability)
	}
}

func TestBullishEngulfingFires(t *testing.T) {
	// Bear bar then a bull bar whose body engulfs it.
	o := []float64{105, 98}
	h := []float64{106, 109}
	l := []float64{99, 97}
	c := []float64{100, 108}

	values := cdlEngulfing(o, h, l, c)
	require.Len(t, values, 2)
	assert.Equal(t, 100.0, values[1])
}

func TestDojiFiresOnFlatBody(t *testing.T) {
	values := cdlDoji([]float64{100}, []float64{105}, []float64{95}, []float64{100.2})
	assert.Equal(t, 100.0, values[0])
}

func TestThreeWhiteSoldiersFires(t *testing.T) {
	o := []float64{100, 102, 104}
	h := []float64{103, 105, 107}
	l := []float64{99.8, 101.8, 103.8}
	c := []float64{102.8, 104.8, 106.8}

	values := cdlThreeWhiteSoldiers(o, h, l, c)
	assert.Equal(t, 100.0, values[2])
}

func TestDetectPatternsCarriesReliabilityAndPrices(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	bars := []core.Bar{
		{Date: base, Open: 105, High: 106, Low: 99, Close: 100, Volume: 1000},
		{Date: base.AddDate(0, 0, 1), Open: 98, High: 109, Low: 97, Close: 108, Volume: 1000},
	}
	highs := []float64{106, 109}
	lows := []float64{99, 97}
	closes := []float64{100, 108}

	hits := detectPatterns(highs, lows, closes, bars)
	var engulfing *core.PatternHit
	for i := range hits {
		if hits[i].PatternName == "engulfing" {
			engulfing = &hits[i]
		}
	}
	require.NotNil(t, engulfing, "bullish engulfing must be detected")
	assert.Equal(t, 100, engulfing.Value)
	assert.Equal(t, core.ReliabilityHigh, engulfing.Reliability)
	assert.Equal(t, 109.0, engulfing.ConfirmationPrice)
	assert.Equal(t, 97.0, engulfing.InvalidationPrice)
}
