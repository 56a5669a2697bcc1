package repositories

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/ksfraser/WealthSystem-sub012/internal/core"
)

const dateLayout = "2006-01-02"

// MarketDataRepository persists bars, fundamentals, indicators, and
// candlestick patterns per spec §6's schema, backing C1/C2's cache layers
// with durable storage across process restarts.
type MarketDataRepository struct {
	*BaseRepository
}

// NewMarketDataRepository wraps db for bar/fundamentals/indicator persistence.
func NewMarketDataRepository(db *sql.DB, log zerolog.Logger) *MarketDataRepository {
	return &MarketDataRepository{BaseRepository: NewBase(db, log.With().Str("repo", "market_data").Logger())}
}

// SaveBars upserts a batch of daily bars for symbol.
func (r *MarketDataRepository) SaveBars(bars []core.Bar) error {
	if len(bars) == 0 {
		return nil
	}
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("begin save bars: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO bars (symbol, date, open, high, low, close, volume)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(symbol, date) DO UPDATE SET
			open=excluded.open, high=excluded.high, low=excluded.low,
			close=excluded.close, volume=excluded.volume
	`)
	if err != nil {
		return fmt.Errorf("prepare save bars: %w", err)
	}
	defer stmt.Close()

	for _, b := range bars {
		if _, err := stmt.Exec(b.Symbol, b.Date.Format(dateLayout), b.Open, b.High, b.Low, b.Close, b.Volume); err != nil {
			return fmt.Errorf("save bar %s %s: %w", b.Symbol, b.Date, err)
		}
	}
	return tx.Commit()
}

// LoadBars returns bars for symbol in [start, end], ascending by date.
func (r *MarketDataRepository) LoadBars(symbol string, start, end time.Time) ([]core.Bar, error) {
	rows, err := r.db.Query(`
		SELECT symbol, date, open, high, low, close, volume FROM bars
		WHERE symbol = ? AND date >= ? AND date <= ?
		ORDER BY date ASC
	`, symbol, start.Format(dateLayout), end.Format(dateLayout))
	if err != nil {
		return nil, fmt.Errorf("load bars for %s: %w", symbol, err)
	}
	defer rows.Close()

	var out []core.Bar
	for rows.Next() {
		var b core.Bar
		var dateStr string
		if err := rows.Scan(&b.Symbol, &dateStr, &b.Open, &b.High, &b.Low, &b.Close, &b.Volume); err != nil {
			return nil, fmt.Errorf("scan bar row: %w", err)
		}
		b.Date, err = time.Parse(dateLayout, dateStr)
		if err != nil {
			return nil, fmt.Errorf("parse bar date %q: %w", dateStr, err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// SaveIndicatorVector writes one symbol/date vector as individual
// technical_indicators rows, one per populated field, per spec §6's
// (symbol, date, indicator_type, period) uniqueness.
func (r *MarketDataRepository) SaveIndicatorVector(symbol string, date time.Time, v *core.IndicatorVector) error {
	if v == nil {
		return nil
	}
	idx := len(v.SMA20) // indicators are stored as the latest value in the window for date
	_ = idx

	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("begin save indicators: %w", err)
	}
	defer tx.Rollback()

	insert := func(indicatorType string, period int, value *float64, signal, histogram *float64) error {
		if value == nil {
			return nil
		}
		_, err := tx.Exec(`
			INSERT INTO technical_indicators (symbol, date, indicator_type, indicator_value, period, signal_line, histogram)
			VALUES (?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(symbol, date, indicator_type, period) DO UPDATE SET
				indicator_value=excluded.indicator_value, signal_line=excluded.signal_line, histogram=excluded.histogram
		`, symbol, date.Format(dateLayout), indicatorType, *value, period, signal, histogram)
		return err
	}

	last := func(s []float64) *float64 {
		if len(s) == 0 {
			return nil
		}
		v := s[len(s)-1]
		return &v
	}

	fields := []struct {
		name   string
		period int
		value  *float64
	}{
		{"sma", 20, last(v.SMA20)}, {"sma", 50, last(v.SMA50)}, {"sma", 200, last(v.SMA200)},
		{"ema", 12, last(v.EMA12)}, {"ema", 26, last(v.EMA26)},
		{"rsi", 14, last(v.RSI14)},
		{"atr", 14, last(v.ATR14)}, {"atr", 20, last(v.ATR20)},
		{"obv", 0, last(v.OBV)},
		{"adx", 14, last(v.ADX14)},
	}
	for _, f := range fields {
		if err := insert(f.name, f.period, f.value, nil, nil); err != nil {
			return fmt.Errorf("save indicator %s(%d): %w", f.name, f.period, err)
		}
	}
	if macd := last(v.MACDLine); macd != nil {
		if err := insert("macd", 0, macd, last(v.MACDSignal), last(v.MACDHistogram)); err != nil {
			return fmt.Errorf("save macd: %w", err)
		}
	}
	if bb := last(v.BollingerMid); bb != nil {
		if err := insert("bollinger_mid", 20, bb, last(v.BollingerUpper), last(v.BollingerLower)); err != nil {
			return fmt.Errorf("save bollinger: %w", err)
		}
	}

	return tx.Commit()
}

// SavePatternHits persists candlestick pattern detections for (symbol, date).
func (r *MarketDataRepository) SavePatternHits(symbol string, date time.Time, hits []core.PatternHit) error {
	if len(hits) == 0 {
		return nil
	}
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("begin save patterns: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO candlestick_patterns
			(symbol, date, pattern_name, pattern_value, reliability, confirmation_price, target_price, invalidation_price)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(symbol, date, pattern_name) DO UPDATE SET
			pattern_value=excluded.pattern_value, reliability=excluded.reliability,
			confirmation_price=excluded.confirmation_price, target_price=excluded.target_price,
			invalidation_price=excluded.invalidation_price
	`)
	if err != nil {
		return fmt.Errorf("prepare save patterns: %w", err)
	}
	defer stmt.Close()

	for _, h := range hits {
		if _, err := stmt.Exec(symbol, date.Format(dateLayout), h.PatternName, h.Value, string(h.Reliability),
			h.ConfirmationPrice, h.TargetPrice, h.InvalidationPrice); err != nil {
			return fmt.Errorf("save pattern %s: %w", h.PatternName, err)
		}
	}
	return tx.Commit()
}

// SaveFundamentals upserts one symbol's fundamentals snapshot as of asOf.
func (r *MarketDataRepository) SaveFundamentals(symbol string, asOf time.Time, f *core.Fundamentals) error {
	if f == nil {
		return nil
	}
	_, err := r.db.Exec(`
		INSERT INTO fundamentals (symbol, as_of, pe, pb, roe, roa, gross_margin, operating_margin, net_margin,
			debt_to_equity, current_ratio, quick_ratio, revenue_growth, earnings_growth, free_cash_flow,
			dividend_yield, payout_ratio, interest_cover)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(symbol, as_of) DO UPDATE SET
			pe=excluded.pe, pb=excluded.pb, roe=excluded.roe, roa=excluded.roa,
			gross_margin=excluded.gross_margin, operating_margin=excluded.operating_margin, net_margin=excluded.net_margin,
			debt_to_equity=excluded.debt_to_equity, current_ratio=excluded.current_ratio, quick_ratio=excluded.quick_ratio,
			revenue_growth=excluded.revenue_growth, earnings_growth=excluded.earnings_growth, free_cash_flow=excluded.free_cash_flow,
			dividend_yield=excluded.dividend_yield, payout_ratio=excluded.payout_ratio, interest_cover=excluded.interest_cover
	`, symbol, asOf.Format(dateLayout), f.PE, f.PB, f.ROE, f.ROA, f.GrossMargin, f.OperatingMargin, f.NetMargin,
		f.DebtToEquity, f.CurrentRatio, f.QuickRatio, f.RevenueGrowth, f.EarningsGrowth, f.FreeCashFlow,
		f.DividendYield, f.PayoutRatio, f.InterestCover)
	if err != nil {
		return fmt.Errorf("save fundamentals %s: %w", symbol, err)
	}
	return nil
}
