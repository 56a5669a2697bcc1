package server

import (
	"encoding/csv"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ksfraser/WealthSystem-sub012/internal/core"
	"github.com/ksfraser/WealthSystem-sub012/internal/modules/backtest"
	"github.com/ksfraser/WealthSystem-sub012/internal/modules/compare"
	"github.com/ksfraser/WealthSystem-sub012/internal/modules/indicators"
	"github.com/ksfraser/WealthSystem-sub012/internal/modules/metrics"
	"github.com/ksfraser/WealthSystem-sub012/internal/modules/scoring"
	"github.com/ksfraser/WealthSystem-sub012/internal/strategy"
)

// setupReportRoutes wires the read-only recommendation/backtest/export
// surface: report endpoints over the scoring engine and backtesters,
// in place of a trading/allocation REST API.
func (s *Server) setupReportRoutes(r chi.Router) {
	r.Route("/recommendations", func(r chi.Router) {
		r.Get("/{symbol}", s.handleRecommendation)
	})

	r.Route("/backtest", func(r chi.Router) {
		r.Get("/single", s.handleSingleBacktest)
		r.Get("/compare", s.handleCompareStrategies)
	})

	r.Route("/trades", func(r chi.Router) {
		r.Get("/{portfolioId}.csv", s.handleTradeLogCSV)
	})

	r.Route("/securities", func(r chi.Router) {
		r.Get("/", s.handleListSecurities)
	})
}

// handleListSecurities returns every active catalog entry (symbol, sector,
// industry, exchange).
func (s *Server) handleListSecurities(w http.ResponseWriter, r *http.Request) {
	if s.catalog == nil {
		s.writeError(w, http.StatusServiceUnavailable, "security catalog not configured")
		return
	}
	securities, err := s.catalog.Active()
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, securities)
}

func parseDate(q, fallback string) (time.Time, error) {
	if q == "" {
		q = fallback
	}
	return time.Parse("2006-01-02", q)
}

func (s *Server) loadBarsForRange(r *http.Request, symbol string) ([]core.Bar, error) {
	start, err := parseDate(r.URL.Query().Get("start"), time.Now().AddDate(-1, 0, 0).Format("2006-01-02"))
	if err != nil {
		return nil, err
	}
	end, err := parseDate(r.URL.Query().Get("end"), time.Now().Format("2006-01-02"))
	if err != nil {
		return nil, err
	}
	return s.marketdata.GetBars(r.Context(), symbol, start, end)
}

// handleRecommendation computes a fresh Recommendation for symbol: bars and
// fundamentals from the data façade (C1), indicator vector from the cache
// (C2), scored via the scoring engine (C3).
func (s *Server) handleRecommendation(w http.ResponseWriter, r *http.Request) {
	symbol := chi.URLParam(r, "symbol")

	bars, err := s.loadBarsForRange(r, symbol)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if len(bars) == 0 {
		s.writeError(w, http.StatusNotFound, "no market data for symbol")
		return
	}

	fund, err := s.marketdata.GetFundamentals(r.Context(), symbol)
	if err != nil {
		s.writeError(w, http.StatusBadGateway, err.Error())
		return
	}

	vector, patterns, err := s.indicatorCache.Get(r.Context(), indicators.Fingerprint{
		Symbol: symbol,
		Params: "default",
		AsOf:   bars[len(bars)-1].Date,
	}, bars)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	bundle := scoring.Bundle{
		Symbol:     symbol,
		Bars:       bars,
		Indicators: vector,
		Patterns:   patterns,
	}
	if fund != nil {
		bundle.Fundamentals = *fund
	}

	// Analyst consensus is best-effort: a symbol with no analyst coverage
	// scores on neutral sentiment rather than failing the request.
	if analyst, err := s.marketdata.GetAnalyst(r.Context(), symbol); err == nil && analyst != nil {
		bundle.Analyst = *analyst
	} else if err != nil {
		s.log.Debug().Err(err).Str("symbol", symbol).Msg("no analyst data")
	}

	rec, err := s.scoringEngine.Score(bundle)
	if err != nil {
		s.writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	s.writeJSON(w, http.StatusOK, rec)
}

// handleSingleBacktest runs the single-symbol backtester (C7) for a named
// strategy over the requested date range and returns the result plus
// derived performance metrics (C10).
func (s *Server) handleSingleBacktest(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	symbol := q.Get("symbol")
	strategyName := q.Get("strategy")
	if symbol == "" || strategyName == "" {
		s.writeError(w, http.StatusBadRequest, "symbol and strategy are required")
		return
	}

	strat, err := strategy.DefaultRegistry.Get(strategyName)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	bars, err := s.loadBarsForRange(r, symbol)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	initialCapital := s.cfg.Portfolio.InitialCapital
	if initialCapital <= 0 {
		initialCapital = 100000
	}

	result, err := backtest.Run(strat, symbol, bars, backtest.Config{
		InitialCapital: initialCapital,
		CommissionRate: s.cfg.Trading.CommissionRate,
		SlippageRate:   s.cfg.Trading.SlippageRate,
	})
	if err != nil {
		s.writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	m := metrics.Calculate(result.TradeLog, result.EquityCurve, len(bars), 0.0)

	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"result":  result,
		"metrics": m,
	})
}

// handleCompareStrategies runs every registered strategy over the same
// symbol/range and ranks them (C12).
func (s *Server) handleCompareStrategies(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	symbol := q.Get("symbol")
	if symbol == "" {
		s.writeError(w, http.StatusBadRequest, "symbol is required")
		return
	}
	rankBy := q.Get("rank_by")
	if rankBy == "" {
		rankBy = "sharpe"
	}

	bars, err := s.loadBarsForRange(r, symbol)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	strategies := make(map[string]strategy.Strategy)
	for _, name := range strategy.DefaultRegistry.Names() {
		strat, err := strategy.DefaultRegistry.Get(name)
		if err != nil {
			continue
		}
		strategies[name] = strat
	}

	initialCapital := s.cfg.Portfolio.InitialCapital
	if initialCapital <= 0 {
		initialCapital = 100000
	}

	rows, err := compare.Compare(strategies, symbol, bars, backtest.Config{
		InitialCapital: initialCapital,
		CommissionRate: s.cfg.Trading.CommissionRate,
		SlippageRate:   s.cfg.Trading.SlippageRate,
	}, rankBy)
	if err != nil {
		s.writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	if q.Get("format") == "csv" {
		w.Header().Set("Content-Type", "text/csv")
		if err := compare.WriteComparisonCSV(w, rows); err != nil {
			s.log.Error().Err(err).Msg("write comparison csv")
		}
		return
	}

	s.writeJSON(w, http.StatusOK, rows)
}

// handleTradeLogCSV exports a portfolio's trade log as CSV using the
// documented trade-log export column set.
func (s *Server) handleTradeLogCSV(w http.ResponseWriter, r *http.Request) {
	portfolioID := chi.URLParam(r, "portfolioId")

	trades, err := s.tradingRepo.ListTrades(portfolioID)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", "attachment; filename=\""+portfolioID+"_trades.csv\"")

	cw := csv.NewWriter(w)
	defer cw.Flush()
	cw.Write([]string{"date", "portfolio_id", "symbol", "action", "shares", "fill_price", "commission", "strategy_name", "reasoning"})
	for _, t := range trades {
		cw.Write([]string{
			t.Date.Format("2006-01-02"),
			t.PortfolioID,
			t.Symbol,
			string(t.Action),
			strconv.Itoa(t.Shares),
			strconv.FormatFloat(t.FillPrice, 'f', 2, 64),
			strconv.FormatFloat(t.Commission, 'f', 2, 64),
			t.StrategyName,
			t.Reasoning,
		})
	}
}
