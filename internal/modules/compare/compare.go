// Package compare implements C12: cross-strategy ranking and post-hoc
// signal-vs-realized-price accuracy tracking, with CSV export via the same
// encoding/csv idiom used throughout for trade-log/report export. The
// comparator runs each named strategy in the map it is given over the same
// data; the tracker scores the signals it is fed against realized prices.
package compare

import (
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/ksfraser/WealthSystem-sub012/internal/core"
	"github.com/ksfraser/WealthSystem-sub012/internal/modules/backtest"
	"github.com/ksfraser/WealthSystem-sub012/internal/modules/metrics"
	"github.com/ksfraser/WealthSystem-sub012/internal/strategy"
	"github.com/ksfraser/WealthSystem-sub012/pkg/formulas"
)

// ComparisonRow is one strategy's ranked result.
type ComparisonRow struct {
	Rank         int     `json:"rank"`
	StrategyName string  `json:"strategy_name"`
	TotalReturn  float64 `json:"total_return"`
	Sharpe       float64 `json:"sharpe"`
	Sortino      float64 `json:"sortino"`
	MaxDrawdown  float64 `json:"max_drawdown"`
	WinRate      float64 `json:"win_rate"`
	ProfitFactor float64 `json:"profit_factor"`
	TotalTrades  int     `json:"total_trades"`
}

// metricOf extracts the field a comparison ranks by.
func metricOf(row ComparisonRow, name string) float64 {
	switch name {
	case "sharpe":
		return row.Sharpe
	case "sortino":
		return row.Sortino
	case "max_drawdown":
		return row.MaxDrawdown
	case "win_rate":
		return row.WinRate
	case "profit_factor":
		return row.ProfitFactor
	default:
		return row.TotalReturn
	}
}

// Compare runs C7 on each named strategy over the same bars and sorts
// descending by the chosen metric, assigning rank positions 1..N.
func Compare(strategies map[string]strategy.Strategy, symbol string, bars []core.Bar, cfg backtest.Config, rankBy string) ([]ComparisonRow, error) {
	if len(strategies) == 0 {
		return nil, fmt.Errorf("compare: no strategies supplied: %w", core.ErrNoStrategies)
	}

	names := make([]string, 0, len(strategies))
	for name := range strategies {
		names = append(names, name)
	}
	sort.Strings(names)

	rows := make([]ComparisonRow, 0, len(strategies))
	for _, name := range names {
		result, err := backtest.Run(strategies[name], symbol, bars, cfg)
		if err != nil {
			continue
		}
		m := metrics.Calculate(result.TradeLog, result.EquityCurve, len(result.EquityCurve), 0)
		rows = append(rows, ComparisonRow{
			StrategyName: name,
			TotalReturn:  m.TotalReturn,
			Sharpe:       m.Sharpe,
			Sortino:      m.Sortino,
			MaxDrawdown:  m.MaxDrawdown,
			WinRate:      m.WinRate,
			ProfitFactor: m.ProfitFactor,
			TotalTrades:  len(result.TradeLog),
		})
	}

	sort.SliceStable(rows, func(i, j int) bool { return metricOf(rows[i], rankBy) > metricOf(rows[j], rankBy) })
	for i := range rows {
		rows[i].Rank = i + 1
	}
	return rows, nil
}

// WriteComparisonCSV writes the comparison CSV: Strategy Name, Total
// Return, Sharpe Ratio, Sortino Ratio, Max Drawdown, Win Rate, Profit
// Factor, Total Trades.
func WriteComparisonCSV(w io.Writer, rows []ComparisonRow) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	header := []string{"Strategy Name", "Total Return", "Sharpe Ratio", "Sortino Ratio", "Max Drawdown", "Win Rate", "Profit Factor", "Total Trades"}
	if err := cw.Write(header); err != nil {
		return err
	}
	for _, r := range rows {
		record := []string{
			r.StrategyName,
			fmt.Sprintf("%.4f", r.TotalReturn),
			fmt.Sprintf("%.4f", r.Sharpe),
			fmt.Sprintf("%.4f", r.Sortino),
			fmt.Sprintf("%.4f", r.MaxDrawdown),
			fmt.Sprintf("%.4f", r.WinRate),
			fmt.Sprintf("%.4f", r.ProfitFactor),
			fmt.Sprintf("%d", r.TotalTrades),
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	return cw.Error()
}

// SignalRecord is one tracked signal awaiting (or carrying) its realized
// outcome.
type SignalRecord struct {
	Symbol        string                `json:"symbol"`
	Signal        strategy.SignalAction `json:"signal"`
	SignalPrice   float64               `json:"signal_price"`
	SignalDate    time.Time             `json:"signal_date"`
	RealizedPrice float64               `json:"realized_price"`
	LookaheadDays int                   `json:"lookahead_days"`
	Confidence    float64               `json:"confidence"`
	Strategy      string                `json:"strategy"`
	Sector        string                `json:"sector"`
	Index         string                `json:"index"` // benchmark/index grouping, e.g. "SP500"
}

// Correct reports whether the signal's direction matched the realized move:
// BUY is correct iff realizedPrice > signalPrice; SELL iff realizedPrice <
// signalPrice. HOLD signals are never tracked (callers should not add them).
func (r SignalRecord) Correct() bool {
	switch r.Signal {
	case strategy.SignalBuy:
		return r.RealizedPrice > r.SignalPrice
	case strategy.SignalSell:
		return r.RealizedPrice < r.SignalPrice
	default:
		return false
	}
}

// AccuracyTracker accumulates SignalRecords and reports accuracy sliced
// several ways.
type AccuracyTracker struct {
	records []SignalRecord
}

// NewAccuracyTracker constructs an empty AccuracyTracker.
func NewAccuracyTracker() *AccuracyTracker {
	return &AccuracyTracker{}
}

// Track records a non-HOLD signal's outcome. HOLD signals are rejected
// (they are never tracked).
func (t *AccuracyTracker) Track(r SignalRecord) error {
	if r.Signal == strategy.SignalHold {
		return fmt.Errorf("compare: HOLD signals are not tracked: %w", core.ErrInvalidInput)
	}
	t.records = append(t.records, r)
	return nil
}

// Records returns the tracked signals in insertion order, for export.
func (t *AccuracyTracker) Records() []SignalRecord {
	out := make([]SignalRecord, len(t.records))
	copy(out, t.records)
	return out
}

// AccuracyReport is the aggregate accuracy breakdown.
type AccuracyReport struct {
	Overall               float64            `json:"overall"`
	ByStrategy            map[string]float64 `json:"by_strategy"`
	BySymbol              map[string]float64 `json:"by_symbol"`
	BySector              map[string]float64 `json:"by_sector"`
	ByIndex               map[string]float64 `json:"by_index"`
	ByLookahead           map[int]float64    `json:"by_lookahead"`
	HighConfidence        float64            `json:"high_confidence"`
	LowConfidence         float64            `json:"low_confidence"`
	ConfidenceThreshold   float64            `json:"confidence_threshold"`
	ConfidenceCorrelation float64            `json:"confidence_correlation"`
}

func accuracyOf(records []SignalRecord) float64 {
	if len(records) == 0 {
		return 0
	}
	correct := 0
	for _, r := range records {
		if r.Correct() {
			correct++
		}
	}
	return float64(correct) / float64(len(records)) * 100
}

// Report aggregates tracked signals overall, by strategy, symbol, sector,
// index, lookahead timeframe, and a high/low-confidence split at
// confidenceThreshold (default 0.70), plus the correlation coefficient
// between confidence and correctness.
func (t *AccuracyTracker) Report(confidenceThreshold float64) AccuracyReport {
	if confidenceThreshold <= 0 {
		confidenceThreshold = 0.70
	}

	byStrategy := make(map[string][]SignalRecord)
	bySymbol := make(map[string][]SignalRecord)
	bySector := make(map[string][]SignalRecord)
	byIndex := make(map[string][]SignalRecord)
	byLookahead := make(map[int][]SignalRecord)
	var high, low []SignalRecord
	var confidences, correctness []float64

	for _, r := range t.records {
		byStrategy[r.Strategy] = append(byStrategy[r.Strategy], r)
		bySymbol[r.Symbol] = append(bySymbol[r.Symbol], r)
		bySector[r.Sector] = append(bySector[r.Sector], r)
		byIndex[r.Index] = append(byIndex[r.Index], r)
		byLookahead[r.LookaheadDays] = append(byLookahead[r.LookaheadDays], r)

		if r.Confidence >= confidenceThreshold {
			high = append(high, r)
		} else {
			low = append(low, r)
		}

		confidences = append(confidences, r.Confidence)
		if r.Correct() {
			correctness = append(correctness, 1)
		} else {
			correctness = append(correctness, 0)
		}
	}

	report := AccuracyReport{
		Overall:             accuracyOf(t.records),
		ByStrategy:          mapAccuracy(byStrategy),
		BySymbol:            mapAccuracy(bySymbol),
		BySector:            mapAccuracy(bySector),
		ByIndex:             mapAccuracy(byIndex),
		ByLookahead:         mapAccuracyInt(byLookahead),
		HighConfidence:      accuracyOf(high),
		LowConfidence:       accuracyOf(low),
		ConfidenceThreshold: confidenceThreshold,
	}
	if len(confidences) >= 2 {
		report.ConfidenceCorrelation = formulas.Correlation(confidences, correctness)
	}
	return report
}

func mapAccuracy(groups map[string][]SignalRecord) map[string]float64 {
	out := make(map[string]float64, len(groups))
	for k, records := range groups {
		out[k] = accuracyOf(records)
	}
	return out
}

func mapAccuracyInt(groups map[int][]SignalRecord) map[int]float64 {
	out := make(map[int]float64, len(groups))
	for k, records := range groups {
		out[k] = accuracyOf(records)
	}
	return out
}

// WriteSignalAccuracyCSV exports the raw tracked records as CSV, one row
// per signal, for the signal-accuracy export.
func WriteSignalAccuracyCSV(w io.Writer, records []SignalRecord) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	header := []string{"Symbol", "Signal", "Signal Price", "Signal Date", "Realized Price", "Lookahead Days", "Confidence", "Strategy", "Sector", "Index", "Correct"}
	if err := cw.Write(header); err != nil {
		return err
	}
	for _, r := range records {
		record := []string{
			r.Symbol,
			string(r.Signal),
			fmt.Sprintf("%.4f", r.SignalPrice),
			r.SignalDate.Format("2006-01-02"),
			fmt.Sprintf("%.4f", r.RealizedPrice),
			fmt.Sprintf("%d", r.LookaheadDays),
			fmt.Sprintf("%.4f", r.Confidence),
			r.Strategy,
			r.Sector,
			r.Index,
			fmt.Sprintf("%t", r.Correct()),
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	return cw.Error()
}
