package scoring

import (
	"fmt"

	"github.com/ksfraser/WealthSystem-sub012/internal/core"
)

// minBarsForScoring is the shortest bar history the engine will score; below
// this the momentum and technical legs are too unreliable to trust.
const minBarsForScoring = 60

// Engine composes the five sub-scorers into a deterministic Recommendation,
// calling each scorer, weighting its output, and classifying the result.
type Engine struct {
	fundamental *FundamentalScorer
	technical   *TechnicalScorer
	momentum    *MomentumScorer
	sentiment   *SentimentScorer
	risk        *RiskScorer
	weights     core.ScoreWeights
	buyThreshold  float64
	sellThreshold float64
}

// NewEngine constructs an Engine with the default weights and thresholds.
func NewEngine() *Engine {
	return &Engine{
		fundamental:   NewFundamentalScorer(),
		technical:     NewTechnicalScorer(),
		momentum:      NewMomentumScorer(),
		sentiment:     NewSentimentScorer(),
		risk:          NewRiskScorer(),
		weights:       core.DefaultScoreWeights(),
		buyThreshold:  core.DefaultBuyThreshold,
		sellThreshold: core.DefaultSellThreshold,
	}
}

// WithWeights overrides the composite blend weights.
func (e *Engine) WithWeights(w core.ScoreWeights) *Engine {
	e.weights = w
	return e
}

// WithThresholds overrides the BUY/SELL classification thresholds.
func (e *Engine) WithThresholds(buy, sell float64) *Engine {
	e.buyThreshold = buy
	e.sellThreshold = sell
	return e
}

// Score produces a Recommendation for the given bundle. Returns
// *core.InsufficientData (wrapped) if the bar history is too short.
func (e *Engine) Score(b Bundle) (*core.Recommendation, error) {
	if len(b.Bars) < minBarsForScoring {
		return nil, fmt.Errorf("scoring %s: %w", b.Symbol, &core.InsufficientData{
			Required: minBarsForScoring,
			Got:      len(b.Bars),
		})
	}

	fundamentalScore, fundamentalComponents := e.fundamental.Calculate(b.Fundamentals, b.Analyst.IndustryAvgPE)
	technicalScore, technicalComponents := e.technical.Calculate(b.Bars, b.Indicators)
	momentumScore, momentumComponents := e.momentum.Calculate(b.Bars, b.BenchmarkBars)
	sentimentScore, sentimentComponents := e.sentiment.Calculate(b.Bars, b.Analyst)
	riskScore, riskLevel, riskFactors := e.risk.Calculate(b.Bars, b.Fundamentals)

	components := mergeComponents(
		prefixComponents("fundamental", fundamentalComponents),
		prefixComponents("technical", technicalComponents),
		prefixComponents("momentum", momentumComponents),
		prefixComponents("sentiment", sentimentComponents),
	)

	sub := core.SubScores{
		Fundamental: fundamentalScore,
		Technical:   technicalScore,
		Momentum:    momentumScore,
		Sentiment:   sentimentScore,
		Risk:        riskScore,
		Components:  components,
	}

	composite := sub.Composite(e.weights)
	action := core.ClassifyAction(composite, e.buyThreshold, e.sellThreshold)

	currentPrice := b.Bars[len(b.Bars)-1].Close
	target, expectedReturn := targetPrice(currentPrice, composite, b.Analyst.TargetPrice)

	confidence := confidenceFromScore(composite, e.buyThreshold, e.sellThreshold)
	reasoning := buildReasoning(action, composite, sub, riskFactors, b.Patterns)

	return &core.Recommendation{
		Symbol:            b.Symbol,
		Action:            action,
		Score:             composite,
		Confidence:        confidence,
		TargetPrice:       target,
		ExpectedReturnPct: expectedReturn,
		RiskLevel:         riskLevel,
		RiskFactors:       riskFactors,
		Reasoning:         reasoning,
		SubScores:         sub,
	}, nil
}

func prefixComponents(prefix string, m map[string]float64) map[string]float64 {
	out := make(map[string]float64, len(m))
	for k, v := range m {
		out[prefix+"."+k] = v
	}
	return out
}

func mergeComponents(maps ...map[string]float64) map[string]float64 {
	out := make(map[string]float64)
	for _, m := range maps {
		for k, v := range m {
			out[k] = v
		}
	}
	return out
}

// confidenceFromScore is higher the further the composite sits from the
// HOLD band's midpoint, in [0,100].
func confidenceFromScore(score, buyThreshold, sellThreshold float64) float64 {
	mid := (buyThreshold + sellThreshold) / 2
	span := buyThreshold - mid
	if span <= 0 {
		return 50
	}
	distance := (score - mid) / span
	if distance < 0 {
		distance = -distance
	}
	confidence := 0.5 + distance*0.5
	if confidence > 1 {
		confidence = 1
	}
	if confidence < 0 {
		confidence = 0
	}
	return confidence * 100
}

// buildReasoning assembles a short, deterministic explanation list: the
// dominant sub-score driving the action, any fired risk factors, and
// notable pattern hits, in that fixed order.
func buildReasoning(action core.Action, composite float64, sub core.SubScores, riskFactors []string, patterns []core.PatternHit) []string {
	var out []string
	switch action {
	case core.ActionBuy:
		out = append(out, fmt.Sprintf("composite score %.1f clears the buy threshold", composite))
	case core.ActionSell:
		out = append(out, fmt.Sprintf("composite score %.1f falls below the sell threshold", composite))
	default:
		out = append(out, "composite score sits within the hold band")
	}
	out = append(out, dominantAxisReason(sub))
	for _, rf := range riskFactors {
		out = append(out, "risk: "+rf)
	}
	for _, p := range patterns {
		if p.Value == 0 {
			continue
		}
		out = append(out, fmt.Sprintf("pattern: %s (%s confidence)", p.PatternName, p.Reliability))
	}
	return out
}

func dominantAxisReason(sub core.SubScores) string {
	type axis struct {
		name  string
		score float64
	}
	axes := []axis{
		{"fundamentals", sub.Fundamental},
		{"technicals", sub.Technical},
		{"momentum", sub.Momentum},
		{"sentiment", sub.Sentiment},
	}
	best := axes[0]
	for _, a := range axes[1:] {
		if distanceFromNeutral(a.score) > distanceFromNeutral(best.score) {
			best = a
		}
	}
	direction := "supportive"
	if best.score < 50 {
		direction = "detracting"
	}
	return fmt.Sprintf("%s are the most %s factor (%.1f)", best.name, direction, best.score)
}

func distanceFromNeutral(score float64) float64 {
	d := score - 50
	if d < 0 {
		return -d
	}
	return d
}
