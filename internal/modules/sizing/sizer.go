// Package sizing implements six position-sizing policies: fixed-dollar,
// fixed-percent, Kelly criterion, volatility/ATR, risk parity, and
// margin-aware sizing. Kelly and margin-aware build on Kelly/leverage
// concentration constants; risk parity builds on an inverse-volatility
// weighting step; every policy follows the same floor-fractional-shares,
// cap-at-25%-of-portfolio shape.
package sizing

import (
	"fmt"
	"math"

	"github.com/ksfraser/WealthSystem-sub012/internal/core"
)

// MaxPositionPercent is the hard cap every policy's resulting position-percent
// respects, unless the method's own math is already stricter.
const MaxPositionPercent = 0.25

// Result is the common shape every sizing policy returns.
type Result struct {
	Shares      int                `json:"shares"`
	Value       float64            `json:"value"`
	Percent     float64            `json:"percent"`
	MethodTag   string             `json:"method_tag"`
	Diagnostics map[string]float64 `json:"diagnostics,omitempty"`
}

func validatePositive(name string, v float64) error {
	if v <= 0 {
		return fmt.Errorf("sizing: %s must be positive, got %v: %w", name, v, core.ErrInvalidParameter)
	}
	return nil
}

func capValue(value, portfolioValue float64) (float64, float64) {
	maxValue := portfolioValue * MaxPositionPercent
	if value > maxValue {
		value = maxValue
	}
	if portfolioValue <= 0 {
		return 0, 0
	}
	return value, value / portfolioValue
}

// FixedDollar sizes shares = floor(amount/price), capped at 25% of
// portfolio value.
func FixedDollar(amount, price, portfolioValue float64) (Result, error) {
	if err := validatePositive("price", price); err != nil {
		return Result{}, err
	}
	if err := validatePositive("portfolio_value", portfolioValue); err != nil {
		return Result{}, err
	}
	if amount <= 0 {
		return Result{}, fmt.Errorf("sizing: amount must be positive: %w", core.ErrInvalidParameter)
	}

	value, percent := capValue(amount, portfolioValue)
	shares := int(math.Floor(value / price))
	return Result{
		Shares:    shares,
		Value:     float64(shares) * price,
		Percent:   percent,
		MethodTag: "fixed_dollar",
	}, nil
}

// FixedPercent sizes shares = floor(portfolio*percent/price), percent in (0,1].
func FixedPercent(percent, price, portfolioValue float64) (Result, error) {
	if err := validatePositive("price", price); err != nil {
		return Result{}, err
	}
	if err := validatePositive("portfolio_value", portfolioValue); err != nil {
		return Result{}, err
	}
	if percent <= 0 || percent > 1 {
		return Result{}, fmt.Errorf("sizing: percent %v out of (0,1]: %w", percent, core.ErrInvalidParameter)
	}

	requested := portfolioValue * percent
	value, cappedPercent := capValue(requested, portfolioValue)
	shares := int(math.Floor(value / price))
	return Result{
		Shares:    shares,
		Value:     float64(shares) * price,
		Percent:   cappedPercent,
		MethodTag: "fixed_percent",
	}, nil
}

// KellyParams are the inputs to the Kelly-criterion sizer.
type KellyParams struct {
	WinProbability float64 // pW, must be in (0,1)
	AvgWin         float64 // average winning-trade size
	AvgLoss        float64 // average losing-trade size (magnitude)
	KellyFraction  float64 // fractional Kelly multiplier, e.g. 0.5 for half-Kelly
}

// Kelly computes f* = (pW*b - pL)/b with b = avgWin/avgLoss, scales by
// KellyFraction, and clips to [0, 0.25]. Returns 0 shares when f* <= 0.
func Kelly(p KellyParams, price, portfolioValue float64) (Result, error) {
	if err := validatePositive("price", price); err != nil {
		return Result{}, err
	}
	if err := validatePositive("portfolio_value", portfolioValue); err != nil {
		return Result{}, err
	}
	if p.WinProbability <= 0 || p.WinProbability >= 1 {
		return Result{}, fmt.Errorf("sizing: kelly winProbability %v not in (0,1): %w", p.WinProbability, core.ErrInvalidParameter)
	}
	if p.AvgLoss <= 0 {
		return Result{}, fmt.Errorf("sizing: kelly avgLoss must be positive: %w", core.ErrInvalidParameter)
	}

	b := p.AvgWin / p.AvgLoss
	fStar := (p.WinProbability*b - (1 - p.WinProbability)) / b

	diagnostics := map[string]float64{"f_star": fStar, "b": b}
	if fStar <= 0 {
		return Result{Shares: 0, MethodTag: "kelly", Diagnostics: diagnostics}, nil
	}

	fraction := p.KellyFraction
	if fraction <= 0 {
		fraction = 1.0
	}
	clipped := fStar * fraction
	if clipped > MaxPositionPercent {
		clipped = MaxPositionPercent
	}
	if clipped < 0 {
		clipped = 0
	}
	diagnostics["fraction_used"] = clipped

	value := portfolioValue * clipped
	shares := int(math.Floor(value / price))
	return Result{
		Shares:      shares,
		Value:       float64(shares) * price,
		Percent:     clipped,
		MethodTag:   "kelly",
		Diagnostics: diagnostics,
	}, nil
}

// VolatilityParams are the inputs to ATR-based position sizing.
type VolatilityParams struct {
	ATR           float64 // Average True Range
	ATRMultiplier float64 // stop distance = ATRMultiplier * ATR
	RiskPercent   float64 // fraction of portfolio risked per trade, (0, 0.10]
}

// Volatility sizes from a stop-distance derived from ATR: riskCapital =
// portfolio*riskPercent, shares = floor(riskCapital/stopDistance). Returns
// StopLossPrice = price - stopDistance in Diagnostics.
func Volatility(p VolatilityParams, price, portfolioValue float64) (Result, error) {
	if err := validatePositive("price", price); err != nil {
		return Result{}, err
	}
	if err := validatePositive("portfolio_value", portfolioValue); err != nil {
		return Result{}, err
	}
	if err := validatePositive("atr", p.ATR); err != nil {
		return Result{}, err
	}
	if p.RiskPercent <= 0 || p.RiskPercent > 0.10 {
		return Result{}, fmt.Errorf("sizing: volatility riskPercent %v not in (0,0.10]: %w", p.RiskPercent, core.ErrInvalidParameter)
	}

	multiplier := p.ATRMultiplier
	if multiplier <= 0 {
		multiplier = 2.0
	}
	stopDistance := multiplier * p.ATR
	riskCapital := portfolioValue * p.RiskPercent
	shares := int(math.Floor(riskCapital / stopDistance))

	value, percent := capValue(float64(shares)*price, portfolioValue)
	shares = int(math.Floor(value / price))

	return Result{
		Shares:    shares,
		Value:     float64(shares) * price,
		Percent:   percent,
		MethodTag: "volatility_atr",
		Diagnostics: map[string]float64{
			"stop_distance":    stopDistance,
			"stop_loss_price":  price - stopDistance,
			"risk_capital":     riskCapital,
		},
	}, nil
}

// Asset is one instrument's inputs to the risk-parity sizer.
type Asset struct {
	Symbol string
	Sigma  float64 // volatility; must be positive
	Price  float64
}

// RiskParity weights each asset proportional to 1/sigma, normalized so
// weights sum to 1, and floors shares = floor(weight*portfolio/price) per
// asset.
func RiskParity(assets []Asset, portfolioValue float64) (map[string]Result, error) {
	if err := validatePositive("portfolio_value", portfolioValue); err != nil {
		return nil, err
	}
	if len(assets) == 0 {
		return nil, fmt.Errorf("sizing: risk parity requires at least one asset: %w", core.ErrInvalidParameter)
	}

	invSigmas := make([]float64, len(assets))
	var sumInv float64
	for i, a := range assets {
		if err := validatePositive("sigma", a.Sigma); err != nil {
			return nil, err
		}
		if err := validatePositive("price", a.Price); err != nil {
			return nil, err
		}
		invSigmas[i] = 1 / a.Sigma
		sumInv += invSigmas[i]
	}

	out := make(map[string]Result, len(assets))
	for i, a := range assets {
		weight := invSigmas[i] / sumInv
		value, percent := capValue(weight*portfolioValue, portfolioValue)
		shares := int(math.Floor(value / a.Price))
		out[a.Symbol] = Result{
			Shares:      shares,
			Value:       float64(shares) * a.Price,
			Percent:     percent,
			MethodTag:   "risk_parity",
			Diagnostics: map[string]float64{"weight": weight},
		}
	}
	return out, nil
}

// MarginAwareParams are the inputs to margin-aware sizing.
type MarginAwareParams struct {
	AvailableCash     float64
	MarginRequirement float64 // e.g. 1.5 for short margin, 1.0 cash accounts
	MaxLeverage       float64
}

// MarginAware sizes maxValue = min(availableCash/marginRequirement,
// portfolio*maxLeverage), shares = floor(maxValue/price).
func MarginAware(p MarginAwareParams, price, portfolioValue float64) (Result, error) {
	if err := validatePositive("price", price); err != nil {
		return Result{}, err
	}
	if err := validatePositive("portfolio_value", portfolioValue); err != nil {
		return Result{}, err
	}
	if err := validatePositive("margin_requirement", p.MarginRequirement); err != nil {
		return Result{}, err
	}
	if p.MaxLeverage <= 0 {
		return Result{}, fmt.Errorf("sizing: maxLeverage must be positive: %w", core.ErrInvalidParameter)
	}

	byCash := p.AvailableCash / p.MarginRequirement
	byLeverage := portfolioValue * p.MaxLeverage
	maxValue := math.Min(byCash, byLeverage)

	value, percent := capValue(maxValue, portfolioValue)
	shares := int(math.Floor(value / price))
	return Result{
		Shares:    shares,
		Value:     float64(shares) * price,
		Percent:   percent,
		MethodTag: "margin_aware",
		Diagnostics: map[string]float64{
			"max_value_by_cash":     byCash,
			"max_value_by_leverage": byLeverage,
		},
	}, nil
}
