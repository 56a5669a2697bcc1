package core

// IndicatorVector holds parallel-to-bars arrays for the standard indicator
// set. Each computed slice is the same length as the bar window it was
// computed over; an indicator whose warm-up period exceeds the window is
// left nil. Callers must consult UnstablePrefix before reading an index.
type IndicatorVector struct {
	SMA20  []float64 `json:"sma_20"`
	SMA50  []float64 `json:"sma_50"`
	SMA200 []float64 `json:"sma_200"`
	EMA12  []float64 `json:"ema_12"`
	EMA26  []float64 `json:"ema_26"`

	RSI14 []float64 `json:"rsi_14"`

	MACDLine      []float64 `json:"macd_line"`
	MACDSignal    []float64 `json:"macd_signal"`
	MACDHistogram []float64 `json:"macd_histogram"`

	BollingerUpper []float64 `json:"bollinger_upper"`
	BollingerMid   []float64 `json:"bollinger_mid"`
	BollingerLower []float64 `json:"bollinger_lower"`

	ATR14 []float64 `json:"atr_14"`
	ATR20 []float64 `json:"atr_20"`

	OBV  []float64 `json:"obv"`
	ADX14 []float64 `json:"adx_14"`

	// UnstablePrefix is the number of leading indices that are warm-up
	// and must be skipped by consumers (period-dependent, largest period
	// among the requested indicators).
	UnstablePrefix int `json:"unstable_prefix"`
}

// ReliabilityTier classifies how trustworthy a candlestick pattern hit is.
type ReliabilityTier string

const (
	ReliabilityLow    ReliabilityTier = "LOW"
	ReliabilityMedium ReliabilityTier = "MEDIUM"
	ReliabilityHigh   ReliabilityTier = "HIGH"
)

// PatternHit is one candlestick-pattern detection for a single bar.
type PatternHit struct {
	PatternName        string          `json:"pattern_name"`
	Value              int             `json:"value"` // -100, 0, or +100
	Reliability        ReliabilityTier `json:"reliability"`
	ConfirmationPrice  float64         `json:"confirmation_price,omitempty"`
	TargetPrice        float64         `json:"target_price,omitempty"`
	InvalidationPrice  float64         `json:"invalidation_price,omitempty"`
}

// InsufficientData is the explicit "insufficient" marker the indicator
// cache returns instead of silently padding a too-short window.
type InsufficientData struct {
	Required int
	Got      int
}

func (e *InsufficientData) Error() string {
	return "insufficient data for indicator computation"
}
