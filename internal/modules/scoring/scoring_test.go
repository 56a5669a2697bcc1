package scoring

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ksfraser/WealthSystem-sub012/internal/core"
)

func ptr(f float64) *float64 { return &f }

func makeBars(n int, start float64, dailyDrift float64) []core.Bar {
	bars := make([]core.Bar, n)
	price := start
	date := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < n; i++ {
		price *= 1 + dailyDrift
		bars[i] = core.Bar{
			Symbol: "TEST",
			Date:   date.AddDate(0, 0, i),
			Open:   price * 0.995,
			High:   price * 1.01,
			Low:    price * 0.99,
			Close:  price,
			Volume: 500_000,
		}
	}
	return bars
}

func TestEngine_InsufficientData(t *testing.T) {
	e := NewEngine()
	b := Bundle{Symbol: "TEST", Bars: makeBars(10, 100, 0)}
	_, err := e.Score(b)
	require.Error(t, err)
	var insufficient *core.InsufficientData
	assert.True(t, errors.As(err, &insufficient))
}

func TestEngine_UptrendScoresHigherThanDowntrend(t *testing.T) {
	e := NewEngine()
	up := Bundle{
		Symbol: "UP",
		Bars:   makeBars(300, 100, 0.003),
		Fundamentals: core.Fundamentals{
			PE:  ptr(12),
			ROE: ptr(0.22),
		},
		Analyst: core.AnalystInputs{IndustryAvgPE: 20},
	}
	down := Bundle{
		Symbol: "DOWN",
		Bars:   makeBars(300, 100, -0.003),
		Fundamentals: core.Fundamentals{
			PE:  ptr(35),
			ROE: ptr(0.02),
		},
		Analyst: core.AnalystInputs{IndustryAvgPE: 20},
	}

	upRec, err := e.Score(up)
	require.NoError(t, err)
	downRec, err := e.Score(down)
	require.NoError(t, err)

	assert.Greater(t, upRec.Score, downRec.Score)
	// With no indicator vector the technical leg stays near neutral, so
	// neither composite leaves the 40–70 HOLD band.
	assert.Equal(t, core.ActionHold, upRec.Action)
	assert.Equal(t, core.ActionHold, downRec.Action)
}

func TestEngine_ReasoningIsDeterministic(t *testing.T) {
	e := NewEngine()
	b := Bundle{Symbol: "TEST", Bars: makeBars(120, 50, 0.001)}
	r1, err := e.Score(b)
	require.NoError(t, err)
	r2, err := e.Score(b)
	require.NoError(t, err)
	assert.Equal(t, r1.Reasoning, r2.Reasoning)
	assert.Equal(t, r1.Score, r2.Score)
}

func TestFundamentalScorer_MissingDataIsNeutral(t *testing.T) {
	s := NewFundamentalScorer()
	score, components := s.Calculate(core.Fundamentals{}, 20)
	assert.InDelta(t, 50, score, 0.01)
	for _, v := range components {
		assert.InDelta(t, 50, v, 0.01)
	}
}

func TestFundamentalScorer_CheapValuationScoresHigher(t *testing.T) {
	s := NewFundamentalScorer()
	cheap, _ := s.Calculate(core.Fundamentals{PE: ptr(10)}, 20)
	expensive, _ := s.Calculate(core.Fundamentals{PE: ptr(40)}, 20)
	assert.Greater(t, cheap, expensive)
}

func TestTechnicalScorer_NilIndicatorsFallBackToNeutral(t *testing.T) {
	s := NewTechnicalScorer()
	bars := makeBars(30, 100, 0)
	score, components := s.Calculate(bars, nil)
	assert.GreaterOrEqual(t, score, 0.0)
	assert.LessOrEqual(t, score, 100.0)
	assert.Contains(t, components, "ma_alignment")
}

func TestMomentumScorer_PositiveTrendBeatsFlat(t *testing.T) {
	s := NewMomentumScorer()
	trending := makeBars(260, 50, 0.004)
	flat := makeBars(260, 50, 0)
	trendingScore, _ := s.Calculate(trending, nil)
	flatScore, _ := s.Calculate(flat, nil)
	assert.Greater(t, trendingScore, flatScore)
}

func TestRiskScorer_HighVolatilityRaisesLevel(t *testing.T) {
	s := NewRiskScorer()
	calm := makeBars(60, 100, 0.0005)
	score, level, _ := s.Calculate(calm, core.Fundamentals{DebtToEquity: ptr(0.3)})
	assert.LessOrEqual(t, score, 50.0)
	assert.NotEqual(t, core.RiskVeryHigh, level)
}

func TestSentimentScorer_StrongBuyRatingDominates(t *testing.T) {
	s := NewSentimentScorer()
	rating := core.RatingStrongBuy
	analyst := core.AnalystInputs{ConsensusRating: &rating}
	bars := makeBars(30, 100, 0)
	score, _ := s.Calculate(bars, analyst)
	assert.Greater(t, score, 60.0)
}

func TestTargetPrice_BlendsAnalystAndComposite(t *testing.T) {
	target, expectedReturn := targetPrice(100, 80, ptr(120))
	assert.Greater(t, target, 100.0)
	assert.Greater(t, expectedReturn, 0.0)
	assert.LessOrEqual(t, expectedReturn, 100.0)
}

func TestTargetPrice_CapsExpectedReturnAt100Percent(t *testing.T) {
	_, expectedReturn := targetPrice(10, 100, ptr(1000))
	assert.Equal(t, 100.0, expectedReturn)
}
