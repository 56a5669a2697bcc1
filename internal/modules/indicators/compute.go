package indicators

import (
	"github.com/markcheno/go-talib"

	"github.com/ksfraser/WealthSystem-sub012/internal/core"
)

// DefaultComputer computes the standard indicator set via markcheno/go-talib,
// the same TA library pkg/formulas/rsi.go wires for RSI, generalized here to
// the full vector plus candlestick patterns.
type DefaultComputer struct{}

// NewDefaultComputer returns the stock DefaultComputer.
func NewDefaultComputer() *DefaultComputer { return &DefaultComputer{} }

// requiredPeriods lists the warm-up period each indicator needs; an
// indicator whose period exceeds len(bars) is left as a nil slice in the
// output vector rather than zero-padded — callers must check for a
// nil/short slice before reading.
var requiredPeriods = struct {
	sma20, sma50, sma200 int
	ema12, ema26         int
	rsi14                int
	macdSlow, macdSignal int
	bb                   int
	atr14, atr20         int
	adx14                int
}{
	sma20: 20, sma50: 50, sma200: 200,
	ema12: 12, ema26: 26,
	rsi14: 14,
	macdSlow: 26, macdSignal: 9,
	bb:    20,
	atr14: 14, atr20: 20,
	adx14: 14,
}

// Compute implements Computer. bars must be ordered ascending by date.
func (DefaultComputer) Compute(symbol string, bars []core.Bar) (*core.IndicatorVector, []core.PatternHit, error) {
	if len(bars) == 0 {
		return nil, nil, core.ErrInsufficientData
	}

	closes := core.Closes(bars)
	highs := make([]float64, len(bars))
	lows := make([]float64, len(bars))
	volumes := make([]float64, len(bars))
	for i, b := range bars {
		highs[i] = b.High
		lows[i] = b.Low
		volumes[i] = float64(b.Volume)
	}

	v := &core.IndicatorVector{}
	n := len(closes)
	maxPeriodUsed := 0

	if n >= requiredPeriods.sma20 {
		v.SMA20 = talib.Sma(closes, requiredPeriods.sma20)
		maxPeriodUsed = max(maxPeriodUsed, requiredPeriods.sma20)
	}
	if n >= requiredPeriods.sma50 {
		v.SMA50 = talib.Sma(closes, requiredPeriods.sma50)
		maxPeriodUsed = max(maxPeriodUsed, requiredPeriods.sma50)
	}
	if n >= requiredPeriods.sma200 {
		v.SMA200 = talib.Sma(closes, requiredPeriods.sma200)
		maxPeriodUsed = max(maxPeriodUsed, requiredPeriods.sma200)
	}
	if n >= requiredPeriods.ema12 {
		v.EMA12 = talib.Ema(closes, requiredPeriods.ema12)
	}
	if n >= requiredPeriods.ema26 {
		v.EMA26 = talib.Ema(closes, requiredPeriods.ema26)
		maxPeriodUsed = max(maxPeriodUsed, requiredPeriods.ema26)
	}
	if n >= requiredPeriods.rsi14+1 {
		v.RSI14 = talib.Rsi(closes, requiredPeriods.rsi14)
	}
	if n >= requiredPeriods.macdSlow+requiredPeriods.macdSignal {
		macdLine, macdSignal, macdHist := talib.Macd(closes, 12, requiredPeriods.macdSlow, requiredPeriods.macdSignal)
		v.MACDLine, v.MACDSignal, v.MACDHistogram = macdLine, macdSignal, macdHist
	}
	if n >= requiredPeriods.bb {
		upper, mid, lower := talib.BBands(closes, requiredPeriods.bb, 2, 2, talib.SMA)
		v.BollingerUpper, v.BollingerMid, v.BollingerLower = upper, mid, lower
	}
	if n >= requiredPeriods.atr14 {
		v.ATR14 = talib.Atr(highs, lows, closes, requiredPeriods.atr14)
	}
	if n >= requiredPeriods.atr20 {
		v.ATR20 = talib.Atr(highs, lows, closes, requiredPeriods.atr20)
	}
	v.OBV = talib.Obv(closes, volumes)
	if n >= requiredPeriods.adx14*2 {
		v.ADX14 = talib.Adx(highs, lows, closes, requiredPeriods.adx14)
		maxPeriodUsed = max(maxPeriodUsed, requiredPeriods.adx14*2)
	}
	v.UnstablePrefix = maxPeriodUsed

	hits := detectPatterns(highs, lows, closes, bars)
	return v, hits, nil
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
