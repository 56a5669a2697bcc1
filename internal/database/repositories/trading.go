package repositories

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/ksfraser/WealthSystem-sub012/internal/core"
)

// TradingRepository persists portfolios, positions, the append-only trade
// log, and strategy signals (spec §3/§6), the durable side of the
// portfolio.Handle's in-memory state.
type TradingRepository struct {
	*BaseRepository
}

// NewTradingRepository wraps db for portfolio/trade/signal persistence.
func NewTradingRepository(db *sql.DB, log zerolog.Logger) *TradingRepository {
	return &TradingRepository{BaseRepository: NewBase(db, log.With().Str("repo", "trading").Logger())}
}

// SavePortfolio upserts a portfolio's scalar state (cash, margin, realized
// P&L); positions and the trade log are saved separately since they're
// append/replace collections rather than a single row.
func (r *TradingRepository) SavePortfolio(p *core.Portfolio) error {
	_, err := r.db.Exec(`
		INSERT INTO portfolios (id, user_id, base_currency, cash, margin_balance, realized_pnl, opened_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			cash=excluded.cash, margin_balance=excluded.margin_balance, realized_pnl=excluded.realized_pnl
	`, p.ID, p.UserID, p.BaseCurrency, p.Cash, p.MarginBalance, p.RealizedPnL, p.OpenedAt.Format(dateLayout))
	if err != nil {
		return fmt.Errorf("save portfolio %s: %w", p.ID, err)
	}
	return nil
}

// ReplacePositions overwrites the stored position set for portfolioID with
// the portfolio's current longs and shorts.
func (r *TradingRepository) ReplacePositions(p *core.Portfolio) error {
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("begin replace positions: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM positions WHERE portfolio_id = ?`, p.ID); err != nil {
		return fmt.Errorf("clear positions: %w", err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO positions (portfolio_id, symbol, side, shares, avg_price, opened_at, margin_posted, accrued_interest)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("prepare insert position: %w", err)
	}
	defer stmt.Close()

	for sym, pos := range p.LongPositions {
		if _, err := stmt.Exec(p.ID, sym, "LONG", pos.Shares, pos.AvgCost, pos.OpenedAt.Format(dateLayout), 0, 0); err != nil {
			return fmt.Errorf("insert long position %s: %w", sym, err)
		}
	}
	for sym, pos := range p.ShortPositions {
		if _, err := stmt.Exec(p.ID, sym, "SHORT", pos.Shares, pos.AvgShortPrice, pos.OpenedAt.Format(dateLayout), pos.MarginPosted, pos.AccruedInterest); err != nil {
			return fmt.Errorf("insert short position %s: %w", sym, err)
		}
	}
	return tx.Commit()
}

// AppendTrade inserts a single trade-log row.
func (r *TradingRepository) AppendTrade(t core.Trade) error {
	_, err := r.db.Exec(`
		INSERT INTO trades (portfolio_id, symbol, action, shares, fill_price, commission, slippage_applied, date, strategy_name, reasoning)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, t.PortfolioID, t.Symbol, string(t.Action), t.Shares, t.FillPrice, t.Commission, t.SlippageApplied,
		t.Date.Format(dateLayout), t.StrategyName, t.Reasoning)
	if err != nil {
		return fmt.Errorf("append trade %s %s: %w", t.Symbol, t.Action, err)
	}
	return nil
}

// ListTrades returns a portfolio's trade log ordered by date, the source
// rows for the trade-log CSV export (spec §6).
func (r *TradingRepository) ListTrades(portfolioID string) ([]core.Trade, error) {
	rows, err := r.db.Query(`
		SELECT portfolio_id, symbol, action, shares, fill_price, commission, slippage_applied, date, strategy_name, reasoning
		FROM trades WHERE portfolio_id = ? ORDER BY date ASC, id ASC
	`, portfolioID)
	if err != nil {
		return nil, fmt.Errorf("list trades for %s: %w", portfolioID, err)
	}
	defer rows.Close()

	var out []core.Trade
	for rows.Next() {
		var t core.Trade
		var action, dateStr string
		if err := rows.Scan(&t.PortfolioID, &t.Symbol, &action, &t.Shares, &t.FillPrice, &t.Commission,
			&t.SlippageApplied, &dateStr, &t.StrategyName, &t.Reasoning); err != nil {
			return nil, fmt.Errorf("scan trade row: %w", err)
		}
		t.Action = core.TradeAction(action)
		t.Date, err = time.Parse(dateLayout, dateStr)
		if err != nil {
			return nil, fmt.Errorf("parse trade date %q: %w", dateStr, err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// SaveSignal records a strategy signal for the signal-accuracy tracker
// (C12); RealizedReturnPct is filled in later once the forward return is
// known, hence the separate UpdateSignalOutcome.
func (r *TradingRepository) SaveSignal(symbol string, date time.Time, strategyName, action string, confidence float64, reasoning string) (int64, error) {
	res, err := r.db.Exec(`
		INSERT INTO strategy_signals (symbol, date, strategy_name, action, confidence, reasoning)
		VALUES (?, ?, ?, ?, ?, ?)
	`, symbol, date.Format(dateLayout), strategyName, action, confidence, reasoning)
	if err != nil {
		return 0, fmt.Errorf("save signal %s: %w", symbol, err)
	}
	return res.LastInsertId()
}

// UpdateSignalOutcome fills in the realized forward return for a signal
// once it is known, the join key C12 compares predicted action against.
func (r *TradingRepository) UpdateSignalOutcome(signalID int64, realizedReturnPct float64) error {
	_, err := r.db.Exec(`UPDATE strategy_signals SET realized_return_pct = ? WHERE id = ?`, realizedReturnPct, signalID)
	if err != nil {
		return fmt.Errorf("update signal outcome %d: %w", signalID, err)
	}
	return nil
}
