// Package risk implements the pre-trade checks of C6: cash and margin
// sufficiency, max position size, max sector allocation, max pairwise
// correlation, max leverage, and max open positions. It adapts
// concentration-limit constants and correlation machinery from portfolio
// optimization to single-trade pre-commit validation. The validator never
// mutates the portfolio it inspects — callers pass a Clone()d snapshot by
// value.
package risk

import (
	"github.com/rs/zerolog"

	"github.com/ksfraser/WealthSystem-sub012/internal/core"
)

// Thresholds are the configurable risk-validator limits, each with its
// documented default.
type Thresholds struct {
	MaxPositionPercent float64 // default 0.15
	MaxSectorPercent   float64 // default 0.30
	MaxCorrelation     float64 // default 0.70
	MaxLeverage        float64 // default 1.0 (unless margin account enabled)
	MaxPositions       int     // default 0 (unbounded)
	MarginEnabled      bool
}

// DefaultThresholds returns the stated defaults.
func DefaultThresholds() Thresholds {
	return Thresholds{
		MaxPositionPercent: 0.15,
		MaxSectorPercent:   0.30,
		MaxCorrelation:     0.70,
		MaxLeverage:        1.0,
		MaxPositions:       0,
	}
}

// Candidate describes the trade under evaluation.
type Candidate struct {
	Symbol           string
	Sector           string
	Value            float64 // notional value of the proposed position add
	RequiredCash     float64 // cash/margin the trade would consume
	IsNewPosition    bool    // true if symbol has no existing long or short position
	MarginRequired   bool    // true for short entries; a cash shortfall is then reported as insufficient_margin
}

// Validator runs the ordered checks and returns the first violation as a
// *core.RiskRejectedError (wrapping core.ErrRiskRejected), or nil if the
// trade is approved.
type Validator struct {
	thresholds Thresholds
	log        zerolog.Logger
}

// NewValidator constructs a Validator with the given thresholds.
func NewValidator(t Thresholds, log zerolog.Logger) *Validator {
	return &Validator{thresholds: t, log: log.With().Str("component", "risk_validator").Logger()}
}

// Validate runs the full check order: cash/margin, max position size, max
// sector allocation, max correlation, max leverage, max open positions.
//
// sectorOf and correlations may be nil, in which case the corresponding
// check is skipped — both require auxiliary data the caller may not always
// have wired.
func (v *Validator) Validate(
	snapshot *core.Portfolio,
	prices map[string]float64,
	sectorOf map[string]string,
	correlations *core.CorrelationMatrix,
	c Candidate,
) error {
	if err := v.checkCashMargin(snapshot, c); err != nil {
		return err
	}
	netWorth := snapshot.NetWorth(prices)
	if err := v.checkMaxPosition(netWorth, c); err != nil {
		return err
	}
	if err := v.checkMaxSector(snapshot, prices, sectorOf, netWorth, c); err != nil {
		return err
	}
	if err := v.checkMaxCorrelation(snapshot, correlations, c); err != nil {
		return err
	}
	if err := v.checkMaxLeverage(snapshot, prices, netWorth, c); err != nil {
		return err
	}
	if err := v.checkMaxPositions(snapshot, c); err != nil {
		return err
	}
	return nil
}

func (v *Validator) checkCashMargin(snapshot *core.Portfolio, c Candidate) error {
	if c.RequiredCash > snapshot.Cash {
		if c.MarginRequired {
			return core.NewRiskRejected("insufficient_margin")
		}
		return core.NewRiskRejected("insufficient_cash")
	}
	return nil
}

func (v *Validator) checkMaxPosition(netWorth float64, c Candidate) error {
	if v.thresholds.MaxPositionPercent <= 0 || netWorth <= 0 {
		return nil
	}
	if c.Value/netWorth > v.thresholds.MaxPositionPercent {
		return core.NewRiskRejected("max_position_size")
	}
	return nil
}

func (v *Validator) checkMaxSector(snapshot *core.Portfolio, prices map[string]float64, sectorOf map[string]string, netWorth float64, c Candidate) error {
	if v.thresholds.MaxSectorPercent <= 0 || sectorOf == nil || netWorth <= 0 {
		return nil
	}
	exposures := snapshot.SectorExposure(prices, sectorOf)
	sector := c.Sector
	if sector == "" {
		sector = sectorOf[c.Symbol]
	}
	projected := exposures[sector] + c.Value
	if projected/netWorth > v.thresholds.MaxSectorPercent {
		return core.NewRiskRejected("max_sector_allocation")
	}
	return nil
}

func (v *Validator) checkMaxCorrelation(snapshot *core.Portfolio, correlations *core.CorrelationMatrix, c Candidate) error {
	if v.thresholds.MaxCorrelation <= 0 || correlations == nil {
		return nil
	}
	// Spec §9's open question: the correlation check applies only to new
	// entries; existing violating positions are grandfathered.
	if !c.IsNewPosition {
		return nil
	}
	for sym := range snapshot.LongPositions {
		if sym == c.Symbol {
			continue
		}
		if abs(correlations.Get(c.Symbol, sym)) > v.thresholds.MaxCorrelation {
			return core.NewRiskRejected("max_correlation")
		}
	}
	return nil
}

func (v *Validator) checkMaxLeverage(snapshot *core.Portfolio, prices map[string]float64, netWorth float64, c Candidate) error {
	if v.thresholds.MaxLeverage <= 0 || netWorth <= 0 {
		return nil
	}
	current := snapshot.LongMarketValue(prices) + snapshot.ShortMarketValue(prices)
	projected := (current + c.Value) / netWorth
	if projected > v.thresholds.MaxLeverage {
		return core.NewRiskRejected("max_leverage")
	}
	return nil
}

func (v *Validator) checkMaxPositions(snapshot *core.Portfolio, c Candidate) error {
	if v.thresholds.MaxPositions <= 0 {
		return nil
	}
	if !c.IsNewPosition {
		return nil
	}
	open := len(snapshot.LongPositions) + len(snapshot.ShortPositions)
	if open >= v.thresholds.MaxPositions {
		return core.NewRiskRejected("max_positions")
	}
	return nil
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
