package repositories

import (
	"database/sql"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/ksfraser/WealthSystem-sub012/internal/core"
)

// SecurityRepository persists the security catalog (symbol, sector,
// industry, exchange) queried by the risk validator (C6) and the
// multi-symbol backtester's sector-exposure checks (C8). Generalizes the
// teacher's universe/security_repository.go CRUD shape onto core.Security.
type SecurityRepository struct {
	*BaseRepository
}

// NewSecurityRepository wraps db for security-catalog persistence.
func NewSecurityRepository(db *sql.DB, log zerolog.Logger) *SecurityRepository {
	return &SecurityRepository{BaseRepository: NewBase(db, log.With().Str("repo", "security").Logger())}
}

// Upsert inserts or replaces a security's catalog entry.
func (r *SecurityRepository) Upsert(s core.Security) error {
	_, err := r.db.Exec(`
		INSERT INTO securities (symbol, name, exchange, currency, isin, sector, industry, active)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(symbol) DO UPDATE SET
			name=excluded.name, exchange=excluded.exchange, currency=excluded.currency,
			isin=excluded.isin, sector=excluded.sector, industry=excluded.industry, active=excluded.active
	`, s.Symbol, s.Name, s.Exchange, s.Currency, s.ISIN, s.Sector, s.Industry, boolToInt(s.Active))
	if err != nil {
		return fmt.Errorf("upsert security %s: %w", s.Symbol, err)
	}
	return nil
}

// GetBySymbol returns the catalog entry for symbol, or nil if absent.
func (r *SecurityRepository) GetBySymbol(symbol string) (*core.Security, error) {
	row := r.db.QueryRow(`SELECT symbol, name, exchange, currency, isin, sector, industry, active FROM securities WHERE symbol = ?`, symbol)
	var s core.Security
	var active int
	if err := row.Scan(&s.Symbol, &s.Name, &s.Exchange, &s.Currency, &s.ISIN, &s.Sector, &s.Industry, &active); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get security %s: %w", symbol, err)
	}
	s.Active = active != 0
	return &s, nil
}

// ListActive returns every security flagged active, the pool C8's
// sector-exposure checks and C11's universe scans draw from.
func (r *SecurityRepository) ListActive() ([]core.Security, error) {
	rows, err := r.db.Query(`SELECT symbol, name, exchange, currency, isin, sector, industry, active FROM securities WHERE active = 1 ORDER BY symbol`)
	if err != nil {
		return nil, fmt.Errorf("list active securities: %w", err)
	}
	defer rows.Close()

	var out []core.Security
	for rows.Next() {
		var s core.Security
		var active int
		if err := rows.Scan(&s.Symbol, &s.Name, &s.Exchange, &s.Currency, &s.ISIN, &s.Sector, &s.Industry, &active); err != nil {
			return nil, fmt.Errorf("scan security row: %w", err)
		}
		s.Active = active != 0
		out = append(out, s)
	}
	return out, rows.Err()
}

// SectorOf returns a symbol->sector map for the given symbols, used by
// Portfolio.SectorExposure (core/portfolio.go) and the risk validator.
func (r *SecurityRepository) SectorOf(symbols []string) (map[string]string, error) {
	out := make(map[string]string, len(symbols))
	if len(symbols) == 0 {
		return out, nil
	}
	placeholders := make([]interface{}, len(symbols))
	query := "SELECT symbol, sector FROM securities WHERE symbol IN ("
	for i, sym := range symbols {
		if i > 0 {
			query += ","
		}
		query += "?"
		placeholders[i] = sym
	}
	query += ")"

	rows, err := r.db.Query(query, placeholders...)
	if err != nil {
		return nil, fmt.Errorf("sector lookup: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var sym, sector string
		if err := rows.Scan(&sym, &sector); err != nil {
			return nil, fmt.Errorf("scan sector row: %w", err)
		}
		out[sym] = sector
	}
	return out, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
