package database

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

// DB wraps the database connection
type DB struct {
	conn *sql.DB
	path string
}

// New creates a new database connection
func New(dbPath string) (*DB, error) {
	// Ensure directory exists
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	// Open database connection
	// Use WAL mode for better concurrency
	conn, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Test connection
	if err := conn.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	// Configure connection pool
	conn.SetMaxOpenConns(25)
	conn.SetMaxIdleConns(5)

	return &DB{
		conn: conn,
		path: dbPath,
	}, nil
}

// Close closes the database connection
func (db *DB) Close() error {
	return db.conn.Close()
}

// Conn returns the underlying sql.DB connection
func (db *DB) Conn() *sql.DB {
	return db.conn
}

// schema is the persistence layout from spec §6: bars, fundamentals,
// technical indicators, candlestick patterns, and the portfolio/trade/
// signal tables of §3, applied with CREATE TABLE IF NOT EXISTS so Migrate
// is safe to call on every startup.
const schema = `
CREATE TABLE IF NOT EXISTS securities (
	symbol TEXT PRIMARY KEY,
	name TEXT NOT NULL DEFAULT '',
	exchange TEXT NOT NULL DEFAULT '',
	currency TEXT NOT NULL DEFAULT '',
	isin TEXT NOT NULL DEFAULT '',
	sector TEXT NOT NULL DEFAULT '',
	industry TEXT NOT NULL DEFAULT '',
	active INTEGER NOT NULL DEFAULT 1
);

CREATE TABLE IF NOT EXISTS bars (
	symbol TEXT NOT NULL,
	date TEXT NOT NULL,
	open REAL NOT NULL,
	high REAL NOT NULL,
	low REAL NOT NULL,
	close REAL NOT NULL,
	volume INTEGER NOT NULL,
	PRIMARY KEY (symbol, date)
);

CREATE TABLE IF NOT EXISTS fundamentals (
	symbol TEXT NOT NULL,
	as_of TEXT NOT NULL,
	pe REAL, pb REAL, roe REAL, roa REAL,
	gross_margin REAL, operating_margin REAL, net_margin REAL,
	debt_to_equity REAL, current_ratio REAL, quick_ratio REAL,
	revenue_growth REAL, earnings_growth REAL, free_cash_flow REAL,
	dividend_yield REAL, payout_ratio REAL, interest_cover REAL,
	PRIMARY KEY (symbol, as_of)
);

CREATE TABLE IF NOT EXISTS technical_indicators (
	symbol TEXT NOT NULL,
	date TEXT NOT NULL,
	indicator_type TEXT NOT NULL,
	indicator_value REAL,
	period INTEGER NOT NULL DEFAULT 0,
	signal_line REAL,
	histogram REAL,
	metadata TEXT,
	PRIMARY KEY (symbol, date, indicator_type, period)
);

CREATE TABLE IF NOT EXISTS candlestick_patterns (
	symbol TEXT NOT NULL,
	date TEXT NOT NULL,
	pattern_name TEXT NOT NULL,
	pattern_value INTEGER NOT NULL,
	reliability TEXT NOT NULL,
	confirmation_price REAL,
	target_price REAL,
	invalidation_price REAL,
	PRIMARY KEY (symbol, date, pattern_name)
);

CREATE TABLE IF NOT EXISTS portfolios (
	id TEXT PRIMARY KEY,
	user_id TEXT NOT NULL,
	base_currency TEXT NOT NULL,
	cash REAL NOT NULL,
	margin_balance REAL NOT NULL DEFAULT 0,
	realized_pnl REAL NOT NULL DEFAULT 0,
	opened_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS positions (
	portfolio_id TEXT NOT NULL,
	symbol TEXT NOT NULL,
	side TEXT NOT NULL, -- LONG or SHORT
	shares INTEGER NOT NULL,
	avg_price REAL NOT NULL,
	opened_at TEXT NOT NULL,
	margin_posted REAL NOT NULL DEFAULT 0,
	accrued_interest REAL NOT NULL DEFAULT 0,
	PRIMARY KEY (portfolio_id, symbol, side)
);

CREATE TABLE IF NOT EXISTS trades (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	portfolio_id TEXT NOT NULL,
	symbol TEXT NOT NULL,
	action TEXT NOT NULL,
	shares INTEGER NOT NULL,
	fill_price REAL NOT NULL,
	commission REAL NOT NULL,
	slippage_applied REAL NOT NULL DEFAULT 0,
	date TEXT NOT NULL,
	strategy_name TEXT NOT NULL DEFAULT '',
	reasoning TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_trades_portfolio_date ON trades(portfolio_id, date);

CREATE TABLE IF NOT EXISTS strategy_signals (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	symbol TEXT NOT NULL,
	date TEXT NOT NULL,
	strategy_name TEXT NOT NULL,
	action TEXT NOT NULL,
	confidence REAL NOT NULL,
	reasoning TEXT NOT NULL DEFAULT '',
	realized_return_pct REAL
);
CREATE INDEX IF NOT EXISTS idx_signals_symbol_date ON strategy_signals(symbol, date);
`

// Migrate applies the schema. It is idempotent: every statement is
// CREATE-IF-NOT-EXISTS, so calling it on every startup is cheap and safe.
func (db *DB) Migrate() error {
	_, err := db.conn.Exec(schema)
	if err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}

// Begin starts a new transaction
func (db *DB) Begin() (*sql.Tx, error) {
	return db.conn.Begin()
}

// Exec executes a query without returning rows
func (db *DB) Exec(query string, args ...interface{}) (sql.Result, error) {
	return db.conn.Exec(query, args...)
}

// Query executes a query that returns rows
func (db *DB) Query(query string, args ...interface{}) (*sql.Rows, error) {
	return db.conn.Query(query, args...)
}

// QueryRow executes a query that returns at most one row
func (db *DB) QueryRow(query string, args ...interface{}) *sql.Row {
	return db.conn.QueryRow(query, args...)
}
