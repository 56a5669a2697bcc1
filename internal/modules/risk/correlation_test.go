package risk

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ksfraser/WealthSystem-sub012/internal/core"
)

func corrBarsOf(closes ...float64) []core.Bar {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	bars := make([]core.Bar, len(closes))
	for i, c := range closes {
		bars[i] = core.Bar{Date: base.AddDate(0, 0, i), Open: c, High: c, Low: c, Close: c, Volume: 1000}
	}
	return bars
}

func TestBuildCorrelationMatrixPerfectlyCorrelatedSeries(t *testing.T) {
	bars := map[string][]core.Bar{
		"AAA": corrBarsOf(100, 102, 101, 104, 103),
		"BBB": corrBarsOf(50, 51, 50.5, 52, 51.5), // same relative moves as AAA
	}
	m := BuildCorrelationMatrix(bars)
	require.Equal(t, []string{"AAA", "BBB"}, m.Symbols)
	assert.InDelta(t, 1.0, m.Get("AAA", "AAA"), 1e-9)
	assert.InDelta(t, 1.0, m.Get("AAA", "BBB"), 1e-6)
}

func TestBuildCorrelationMatrixInverseSeries(t *testing.T) {
	bars := map[string][]core.Bar{
		"UP":   corrBarsOf(100, 102, 101, 104, 103),
		"DOWN": corrBarsOf(100, 98, 99, 96, 97),
	}
	m := BuildCorrelationMatrix(bars)
	assert.Less(t, m.Get("UP", "DOWN"), -0.9)
}

func TestBuildCorrelationMatrixDropsTooShortSeries(t *testing.T) {
	bars := map[string][]core.Bar{
		"AAA":   corrBarsOf(100, 101, 102, 103),
		"STUB":  corrBarsOf(100, 101), // single return, dropped
	}
	m := BuildCorrelationMatrix(bars)
	assert.Equal(t, []string{"AAA"}, m.Symbols)
	assert.Equal(t, 0.0, m.Get("AAA", "STUB"), "dropped symbol reads as uncorrelated")
}
