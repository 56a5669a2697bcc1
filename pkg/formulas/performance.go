package formulas

import "math"

// CalculateTotalReturn returns the percentage change from initial to final.
func CalculateTotalReturn(initial, final float64) float64 {
	if initial == 0 {
		return 0
	}
	return (final - initial) / initial * 100
}

// CalculateAnnualizedReturn compounds the total return over the given number
// of calendar days to a 365-day annualized percentage.
func CalculateAnnualizedReturn(initial, final float64, days int) float64 {
	if initial <= 0 || final <= 0 || days <= 0 {
		return 0
	}
	years := float64(days) / 365.0
	if years <= 0 {
		return 0
	}
	return (math.Pow(final/initial, 1/years) - 1) * 100
}

// TradeOutcome is the profit (positive) or loss (negative/zero) realized by
// one closed trade, in money terms.
type TradeOutcome float64

// WinRate returns the percentage of positive outcomes, 0 on an empty set.
func WinRate(outcomes []TradeOutcome) float64 {
	if len(outcomes) == 0 {
		return 0
	}
	wins := 0
	for _, o := range outcomes {
		if o > 0 {
			wins++
		}
	}
	return float64(wins) / float64(len(outcomes)) * 100
}

// ProfitFactor is sum(profits)/|sum(losses)|. Zero when there are no losing
// trades, per spec (documented, not infinity).
func ProfitFactor(outcomes []TradeOutcome) float64 {
	var profit, loss float64
	for _, o := range outcomes {
		if o > 0 {
			profit += float64(o)
		} else if o < 0 {
			loss += float64(o)
		}
	}
	if loss == 0 {
		return 0
	}
	return profit / math.Abs(loss)
}

// averageWinLoss returns the mean win amount and mean (negative) loss amount.
func averageWinLoss(outcomes []TradeOutcome) (avgWin, avgLoss float64) {
	var sumWin, sumLoss float64
	var nWin, nLoss int
	for _, o := range outcomes {
		if o > 0 {
			sumWin += float64(o)
			nWin++
		} else if o < 0 {
			sumLoss += float64(o)
			nLoss++
		}
	}
	if nWin > 0 {
		avgWin = sumWin / float64(nWin)
	}
	if nLoss > 0 {
		avgLoss = sumLoss / float64(nLoss)
	}
	return avgWin, avgLoss
}

// Expectancy is winRate*avgWin - lossRate*|avgLoss|, the expected P&L per trade.
func Expectancy(outcomes []TradeOutcome) float64 {
	if len(outcomes) == 0 {
		return 0
	}
	winRate := WinRate(outcomes) / 100
	lossRate := 1 - winRate
	avgWin, avgLoss := averageWinLoss(outcomes)
	return winRate*avgWin - lossRate*math.Abs(avgLoss)
}

// RewardRisk is avgWin / |avgLoss|. Zero if there is no losing trade to
// divide by.
func RewardRisk(outcomes []TradeOutcome) float64 {
	avgWin, avgLoss := averageWinLoss(outcomes)
	if avgLoss == 0 {
		return 0
	}
	return avgWin / math.Abs(avgLoss)
}
