package core

import "time"

// LongPosition is an open long holding. Invariant: a position with
// Shares == 0 must be removed from its owning portfolio's position map, not
// retained with zero shares.
type LongPosition struct {
	Symbol     string     `json:"symbol"`
	Shares     int        `json:"shares"`
	AvgCost    float64    `json:"avg_cost"`
	OpenedAt   time.Time  `json:"opened_at"`
	StopLoss   *float64   `json:"stop_loss,omitempty"`
	TakeProfit *float64   `json:"take_profit,omitempty"`
}

// MarketValue marks the position to the given price.
func (p LongPosition) MarketValue(price float64) float64 {
	return float64(p.Shares) * price
}

// UnrealizedPnL marks the position's P&L at the given price.
func (p LongPosition) UnrealizedPnL(price float64) float64 {
	return float64(p.Shares) * (price - p.AvgCost)
}

// ShortPosition is an open short holding. Shares are tracked as a positive
// magnitude; short positions live in a separate container from longs so the
// two can never be confused.
type ShortPosition struct {
	Symbol             string    `json:"symbol"`
	Shares             int       `json:"shares"`
	AvgShortPrice      float64   `json:"avg_short_price"`
	OpenedAt           time.Time `json:"opened_at"`
	MarginPosted       float64   `json:"margin_posted"`
	AccruedInterest    float64   `json:"accrued_interest"`
	LastAccrualDate    time.Time `json:"last_accrual_date"`
}

// MarketValue marks the short position's notional to the given price.
func (p ShortPosition) MarketValue(price float64) float64 {
	return float64(p.Shares) * price
}

// UnrealizedPnL marks the short position's P&L at the given price (positive
// when the price has fallen below the entry price).
func (p ShortPosition) UnrealizedPnL(price float64) float64 {
	return float64(p.Shares) * (p.AvgShortPrice - price)
}

// TradeAction enumerates the trade kinds recorded in a portfolio's trade log.
type TradeAction string

const (
	TradeBuy               TradeAction = "BUY"
	TradeSell              TradeAction = "SELL"
	TradeShort             TradeAction = "SHORT"
	TradeCover             TradeAction = "COVER"
	TradeForcedLiquidation TradeAction = "FORCED_LIQUIDATION"
)

// Trade is one append-only trade-log entry.
type Trade struct {
	PortfolioID    string      `json:"portfolio_id"`
	Symbol         string      `json:"symbol"`
	Action         TradeAction `json:"action"`
	Shares         int         `json:"shares"`
	FillPrice      float64     `json:"fill_price"`
	Commission     float64     `json:"commission"`
	SlippageApplied float64    `json:"slippage_applied"`
	Date           time.Time   `json:"date"`
	StrategyName   string      `json:"strategy_name,omitempty"`
	Reasoning      string      `json:"reasoning,omitempty"`
}

// EquityPoint is one (date, netWorth) sample of an equity curve.
type EquityPoint struct {
	Date      time.Time `json:"date"`
	NetWorth  float64   `json:"net_worth"`
}

// CorrelationMatrix is a symmetric matrix of pairwise return correlations,
// diagonal always 1, off-diagonal values in [-1,1].
type CorrelationMatrix struct {
	Symbols []string
	Values  [][]float64
}

// Get returns the correlation between a and b, or 0 if either symbol is
// absent from the matrix.
func (m *CorrelationMatrix) Get(a, b string) float64 {
	ia, ib := -1, -1
	for i, s := range m.Symbols {
		if s == a {
			ia = i
		}
		if s == b {
			ib = i
		}
	}
	if ia < 0 || ib < 0 {
		return 0
	}
	return m.Values[ia][ib]
}

// Portfolio is the backtest/paper-trading account state described by spec
// §3: cash, long and short positions, posted margin, realized P&L, and an
// append-only trade log. Mutation is the sole responsibility of the
// per-portfolio commit path in internal/modules/portfolio (a Handle wraps
// one of these behind a mutex per §5); Portfolio itself is a plain value
// type so validators and reporting can take or copy snapshots freely.
type Portfolio struct {
	ID             string                   `json:"id"`
	UserID         string                   `json:"user_id"`
	BaseCurrency   string                   `json:"base_currency"`
	Cash           float64                  `json:"cash"`
	MarginBalance  float64                  `json:"margin_balance"`
	LongPositions  map[string]LongPosition  `json:"long_positions"`
	ShortPositions map[string]ShortPosition `json:"short_positions"`
	RealizedPnL    float64                  `json:"realized_pnl"`
	TradeLog       []Trade                  `json:"trade_log"`
	OpenedAt       time.Time                `json:"opened_at"`
}

// NewPortfolio constructs an empty portfolio funded with initialCash.
func NewPortfolio(id, userID, baseCurrency string, initialCash float64, openedAt time.Time) *Portfolio {
	return &Portfolio{
		ID:             id,
		UserID:         userID,
		BaseCurrency:   baseCurrency,
		Cash:           initialCash,
		LongPositions:  make(map[string]LongPosition),
		ShortPositions: make(map[string]ShortPosition),
		OpenedAt:       openedAt,
	}
}

// Clone returns a deep-enough copy for safe snapshotting: position maps and
// the trade log are copied, individual Trade/Position values are not (they
// are themselves immutable once appended).
func (p *Portfolio) Clone() *Portfolio {
	out := *p
	out.LongPositions = make(map[string]LongPosition, len(p.LongPositions))
	for k, v := range p.LongPositions {
		out.LongPositions[k] = v
	}
	out.ShortPositions = make(map[string]ShortPosition, len(p.ShortPositions))
	for k, v := range p.ShortPositions {
		out.ShortPositions[k] = v
	}
	out.TradeLog = append([]Trade(nil), p.TradeLog...)
	return &out
}

// LongMarketValue marks all open long positions to the given price map.
// Symbols absent from prices are skipped (mark-to-market only covers
// symbols the caller supplies a fresh close for).
func (p *Portfolio) LongMarketValue(prices map[string]float64) float64 {
	var total float64
	for sym, pos := range p.LongPositions {
		if price, ok := prices[sym]; ok {
			total += pos.MarketValue(price)
		}
	}
	return total
}

// ShortMarketValue marks all open short positions to the given price map.
func (p *Portfolio) ShortMarketValue(prices map[string]float64) float64 {
	var total float64
	for sym, pos := range p.ShortPositions {
		if price, ok := prices[sym]; ok {
			total += pos.MarketValue(price)
		}
	}
	return total
}

// NetWorth computes spec §3's invariant: cash + longs − shorts + margin.
func (p *Portfolio) NetWorth(prices map[string]float64) float64 {
	return p.Cash + p.LongMarketValue(prices) - p.ShortMarketValue(prices) + p.MarginBalance
}

// Leverage is (Σ|longValue| + Σ|shortValue|) / netWorth, the interpretation
// spec §9's open question settles on for relating max_leverage to shorts.
func (p *Portfolio) Leverage(prices map[string]float64) float64 {
	netWorth := p.NetWorth(prices)
	if netWorth <= 0 {
		return 0
	}
	return (p.LongMarketValue(prices) + p.ShortMarketValue(prices)) / netWorth
}

// SectorExposure sums long+short market value by sector using the supplied
// symbol->sector map; symbols with no sector entry are grouped under
// "UNKNOWN".
func (p *Portfolio) SectorExposure(prices map[string]float64, sectorOf map[string]string) map[string]float64 {
	out := make(map[string]float64)
	add := func(sym string, value float64) {
		sector := sectorOf[sym]
		if sector == "" {
			sector = "UNKNOWN"
		}
		out[sector] += value
	}
	for sym, pos := range p.LongPositions {
		if price, ok := prices[sym]; ok {
			add(sym, pos.MarketValue(price))
		}
	}
	for sym, pos := range p.ShortPositions {
		if price, ok := prices[sym]; ok {
			add(sym, pos.MarketValue(price))
		}
	}
	return out
}
