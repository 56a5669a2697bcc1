package scoring

import (
	"github.com/ksfraser/WealthSystem-sub012/internal/core"
)

// SentimentScorer scores analyst consensus, market-cap tier, volume-driven
// buying/selling pressure, and sector sentiment.
//
// Builds on an analyst-rating + price-target blend by adding market-cap
// and volume-pressure legs.
type SentimentScorer struct{}

// NewSentimentScorer constructs a SentimentScorer.
func NewSentimentScorer() *SentimentScorer { return &SentimentScorer{} }

// Calculate computes the sentiment sub-score in [0,100].
func (s *SentimentScorer) Calculate(bars []core.Bar, analyst core.AnalystInputs) (float64, map[string]float64) {
	components := map[string]float64{
		"analyst_rating":  50,
		"market_cap_tier": 50,
		"volume_pressure": 50,
		"sector_sentiment": 50,
	}

	if analyst.ConsensusRating != nil {
		components["analyst_rating"] = analyst.ConsensusRating.Numeric() * 100
	}
	components["market_cap_tier"] = scoreMarketCapTier(analyst.MarketCapTier)
	components["volume_pressure"] = scoreVolumePressure(bars)
	if analyst.SectorSentiment != nil {
		components["sector_sentiment"] = core.ClipScore(*analyst.SectorSentiment * 100)
	}

	type weighted struct {
		key    string
		weight float64
	}
	weights := []weighted{
		{"analyst_rating", 0.40},
		{"market_cap_tier", 0.15},
		{"volume_pressure", 0.25},
		{"sector_sentiment", 0.20},
	}

	var total float64
	for _, w := range weights {
		total += components[w.key] * w.weight
	}
	return core.ClipScore(total), components
}

// scoreMarketCapTier gives large, stable companies a modest stability premium
// over speculative micro-caps; an unrecognized or empty tier is neutral.
func scoreMarketCapTier(tier string) float64 {
	switch tier {
	case "MEGA":
		return 65
	case "LARGE":
		return 60
	case "MID":
		return 50
	case "SMALL":
		return 42
	case "MICRO":
		return 30
	default:
		return 50
	}
}

// scoreVolumePressure compares up-day volume to down-day volume over the
// trailing 20 bars as a proxy for accumulation/distribution.
func scoreVolumePressure(bars []core.Bar) float64 {
	if len(bars) < 21 {
		return 50
	}
	window := bars[len(bars)-21:]
	var upVolume, downVolume float64
	for i := 1; i < len(window); i++ {
		v := float64(window[i].Volume)
		if window[i].Close > window[i-1].Close {
			upVolume += v
		} else if window[i].Close < window[i-1].Close {
			downVolume += v
		}
	}
	total := upVolume + downVolume
	if total == 0 {
		return 50
	}
	return core.ClipScore(upVolume / total * 100)
}
