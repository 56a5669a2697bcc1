package backtest

import (
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/ksfraser/WealthSystem-sub012/internal/core"
	"github.com/ksfraser/WealthSystem-sub012/internal/modules/portfolio"
)

// ShortConfig is C9's configuration.
type ShortConfig struct {
	MarginRequirement       float64 // default 1.5
	ShortInterestRate       float64 // default 0.03 (annual)
	MaintenanceMarginBuffer float64 // default 0.25
	PenaltySurcharge        float64 // applied to the forced-liquidation fill
	CommissionRate          float64
	SlippageRate            float64
}

// DefaultShortConfig holds the documented short-selling defaults plus a
// modest forced-liquidation penalty.
func DefaultShortConfig() ShortConfig {
	return ShortConfig{
		MarginRequirement:       1.5,
		ShortInterestRate:       0.03,
		MaintenanceMarginBuffer: 0.25,
		PenaltySurcharge:        0.02,
	}
}

// MarginCallEvent is emitted by CheckMarginCalls when a short position's net
// margin falls below its maintenance threshold, and again (with
// ActionRequired "forced_liquidation") if the call goes unresolved into the
// following bar.
type MarginCallEvent struct {
	Symbol         string     `json:"symbol"`
	Date           time.Time  `json:"date"`
	ActionRequired string     `json:"action_required"`
	Trade          *core.Trade `json:"trade,omitempty"`
	Profit         float64    `json:"profit,omitempty"`
}

// ShortEngine extends a portfolio.Handle with short entry/exit, daily
// short-interest accrual, and margin-call escalation to forced liquidation
// (C9). It commits through the same Handle as C7/C8, following their idiom.
type ShortEngine struct {
	handle  *portfolio.Handle
	cfg     ShortConfig
	log     zerolog.Logger
	pending map[string]time.Time // symbol -> date its margin call was first raised
}

// NewShortEngine constructs a ShortEngine around an existing portfolio
// Handle.
func NewShortEngine(handle *portfolio.Handle, cfg ShortConfig, log zerolog.Logger) *ShortEngine {
	return &ShortEngine{
		handle:  handle,
		cfg:     cfg,
		log:     log.With().Str("component", "short_engine").Logger(),
		pending: make(map[string]time.Time),
	}
}

// EnterShort posts marginRequirement*shares*price from cash into the margin
// balance and records a SHORT trade. Fails with ErrInsufficientMargin if
// cash cannot cover the margin post plus commission.
func (e *ShortEngine) EnterShort(symbol string, shares int, price float64, date time.Time) (core.Trade, error) {
	if shares <= 0 {
		return core.Trade{}, fmt.Errorf("enterShort %s: shares must be positive: %w", symbol, core.ErrInvalidParameter)
	}
	if price <= 0 {
		return core.Trade{}, fmt.Errorf("enterShort %s: price must be positive: %w", symbol, core.ErrInvalidParameter)
	}
	fill := sellFill(price, e.cfg.SlippageRate) // short entries fill slightly below quoted
	commission := commissionOn(fill, shares, e.cfg.CommissionRate)
	marginPosted := float64(shares) * price * e.cfg.MarginRequirement
	return e.handle.CommitShort(symbol, shares, fill, commission, marginPosted, date, "", "")
}

// ExitShort covers shares (or the entire position, if shares is nil),
// deducting accrued short interest pro-rata and releasing the
// corresponding posted margin back to cash.
func (e *ShortEngine) ExitShort(symbol string, shares *int, price float64, date time.Time) (core.Trade, float64, error) {
	snapshot := e.handle.Snapshot()
	pos, ok := snapshot.ShortPositions[symbol]
	if !ok {
		return core.Trade{}, 0, fmt.Errorf("exitShort %s: %w", symbol, core.ErrInsufficientShares)
	}
	n := pos.Shares
	if shares != nil {
		n = *shares
	}
	fill := buyFill(price, e.cfg.SlippageRate) // covering is a buy; slippage raises the cost
	commission := commissionOn(fill, n, e.cfg.CommissionRate)
	interest := pos.AccruedInterest * (float64(n) / float64(pos.Shares))

	trade, profit, err := e.handle.CommitCover(symbol, n, fill, commission, interest, date, "", "")
	if err != nil {
		return core.Trade{}, 0, err
	}
	if n == pos.Shares {
		delete(e.pending, symbol)
	}
	return trade, profit, nil
}

// AccrueDailyInterest applies one day of borrow cost to every open short
// position. Borrow cost accumulates and is only realized on cover (spec
// §9's open question: interim margin-call checks exclude accrued-but-unpaid
// interest).
func (e *ShortEngine) AccrueDailyInterest(date time.Time) {
	e.handle.AccrueShortInterest(date, e.cfg.ShortInterestRate)
}

// CheckMarginCalls marks every open short to the given prices and compares
// netMargin (postedMargin − unrealizedLoss) against the maintenance
// threshold (positionValue * (marginRequirement − maintenanceMarginBuffer)).
// A position under threshold for the first time emits an
// "add_margin_or_liquidate" event; if still under threshold on the next
// call, it is force-liquidated at date's close with a penalty surcharge.
func (e *ShortEngine) CheckMarginCalls(date time.Time, prices map[string]float64) []MarginCallEvent {
	snapshot := e.handle.Snapshot()
	var events []MarginCallEvent

	// Sorted so escalation order (and any forced-liquidation trades) is
	// identical across runs.
	symbols := make([]string, 0, len(snapshot.ShortPositions))
	for s := range snapshot.ShortPositions {
		symbols = append(symbols, s)
	}
	sort.Strings(symbols)

	for _, symbol := range symbols {
		pos := snapshot.ShortPositions[symbol]
		price, ok := prices[symbol]
		if !ok {
			continue
		}
		var loss float64
		if u := pos.UnrealizedPnL(price); u < 0 {
			loss = -u
		}
		netMargin := pos.MarginPosted - loss
		maintenanceThreshold := pos.MarketValue(price) * (e.cfg.MarginRequirement - e.cfg.MaintenanceMarginBuffer)

		if netMargin >= maintenanceThreshold {
			delete(e.pending, symbol)
			continue
		}

		if _, alreadyPending := e.pending[symbol]; alreadyPending {
			trade, profit, err := e.handle.CommitForcedLiquidation(symbol, price, e.cfg.PenaltySurcharge, pos.AccruedInterest, date)
			if err != nil {
				e.log.Error().Err(err).Str("symbol", symbol).Msg("forced liquidation failed")
				continue
			}
			delete(e.pending, symbol)
			events = append(events, MarginCallEvent{
				Symbol:         symbol,
				Date:           date,
				ActionRequired: "forced_liquidation",
				Trade:          &trade,
				Profit:         profit,
			})
			continue
		}

		e.pending[symbol] = date
		events = append(events, MarginCallEvent{
			Symbol:         symbol,
			Date:           date,
			ActionRequired: "add_margin_or_liquidate",
		})
	}

	return events
}
