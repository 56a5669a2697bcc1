package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ksfraser/WealthSystem-sub012/internal/clients/tradernet"
	"github.com/ksfraser/WealthSystem-sub012/internal/clients/yahoo"
	"github.com/ksfraser/WealthSystem-sub012/internal/config"
	"github.com/ksfraser/WealthSystem-sub012/internal/core"
	"github.com/ksfraser/WealthSystem-sub012/internal/database"
	"github.com/ksfraser/WealthSystem-sub012/internal/database/repositories"
	"github.com/ksfraser/WealthSystem-sub012/internal/modules/indicators"
	"github.com/ksfraser/WealthSystem-sub012/internal/modules/marketdata"
	"github.com/ksfraser/WealthSystem-sub012/internal/modules/notify"
	"github.com/ksfraser/WealthSystem-sub012/internal/modules/scoring"
	"github.com/ksfraser/WealthSystem-sub012/internal/modules/universe"
	"github.com/ksfraser/WealthSystem-sub012/internal/scheduler"
	"github.com/ksfraser/WealthSystem-sub012/internal/server"
	"github.com/ksfraser/WealthSystem-sub012/pkg/logger"
	"github.com/rs/zerolog"
)

func main() {
	log := logger.New(logger.Config{
		Level:  "info",
		Pretty: true,
	})

	log.Info().Msg("Starting backtesting engine")

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	db, err := database.New(cfg.DatabasePath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer db.Close()

	if err := db.Migrate(); err != nil {
		log.Fatal().Err(err).Msg("Failed to run migrations")
	}

	securityRepo := repositories.NewSecurityRepository(db.Conn(), log)
	tradingRepo := repositories.NewTradingRepository(db.Conn(), log)

	providers := []marketdata.Provider{marketdata.NewYahooProvider(yahoo.NewClient(log))}
	if cfg.TradernetServiceURL != "" {
		providers = append(providers, marketdata.NewTradernetProvider(tradernet.NewClient(cfg.TradernetServiceURL, log)))
	}
	dataFacade := marketdata.New(providers, marketdata.Config{
		Providers:  cfg.Data.Providers,
		RateLimits: cfg.Data.RateLimits,
	}, log)

	indicatorCache := indicators.New(256, indicators.NewDefaultComputer())

	scoringEngine := scoring.NewEngine().
		WithWeights(toScoreWeights(cfg)).
		WithThresholds(cfg.Scoring.BuyThreshold, cfg.Scoring.SellThreshold)

	hub := notify.NewHub(log)
	go hub.Run()

	catalog := universe.New(securityRepo, log)

	sched := scheduler.New(log)
	sched.Start()
	defer sched.Stop()

	if err := registerJobs(sched, db, indicatorCache, catalog, dataFacade, log); err != nil {
		log.Fatal().Err(err).Msg("Failed to register jobs")
	}

	srv := server.New(server.Config{
		Port:           cfg.Port,
		Log:            log,
		Config:         cfg,
		DevMode:        cfg.DevMode,
		Marketdata:     dataFacade,
		IndicatorCache: indicatorCache,
		ScoringEngine:  scoringEngine,
		TradingRepo:    tradingRepo,
		SecurityRepo:   securityRepo,
		Hub:            hub,
	})

	go func() {
		if err := srv.Start(); err != nil {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	log.Info().Int("port", cfg.Port).Msg("Server started successfully")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server stopped")
}

func toScoreWeights(cfg *config.Config) core.ScoreWeights {
	return core.ScoreWeights{
		Fundamental: cfg.Scoring.Weights.Fundamental,
		Technical:   cfg.Scoring.Weights.Technical,
		Momentum:    cfg.Scoring.Weights.Momentum,
		Sentiment:   cfg.Scoring.Weights.Sentiment,
	}
}

func registerJobs(sched *scheduler.Scheduler, db *database.DB, cache *indicators.Cache, catalog *universe.Catalog, facade *marketdata.Facade, log zerolog.Logger) error {
	healthJob := scheduler.NewHealthCheckJob(scheduler.HealthCheckConfig{
		Log:   log,
		DB:    db,
		Cache: cache,
	})
	if err := sched.AddJob("@every 5m", healthJob); err != nil {
		return err
	}
	return sched.AddJob("@daily", universe.NewRefreshJob(catalog, facade, log))
}
