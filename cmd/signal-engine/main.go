package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/traderboter/Back-to-OLD-method-sub000/config"
	"github.com/traderboter/Back-to-OLD-method-sub000/internal/aggregator"
	"github.com/traderboter/Back-to-OLD-method-sub000/internal/analysis"
	"github.com/traderboter/Back-to-OLD-method-sub000/internal/api"
	"github.com/traderboter/Back-to-OLD-method-sub000/internal/cache"
	"github.com/traderboter/Back-to-OLD-method-sub000/internal/confidence"
	"github.com/traderboter/Back-to-OLD-method-sub000/internal/database"
	"github.com/traderboter/Back-to-OLD-method-sub000/internal/events"
	"github.com/traderboter/Back-to-OLD-method-sub000/internal/logging"
	"github.com/traderboter/Back-to-OLD-method-sub000/internal/market"
	"github.com/traderboter/Back-to-OLD-method-sub000/internal/orchestrator"
	"github.com/traderboter/Back-to-OLD-method-sub000/internal/risk"
	"github.com/traderboter/Back-to-OLD-method-sub000/internal/scoring"
	sig "github.com/traderboter/Back-to-OLD-method-sub000/internal/signal"
	"github.com/traderboter/Back-to-OLD-method-sub000/internal/validation"
)

func main() {
	// .env is optional; real deployments set environment directly
	_ = godotenv.Load()

	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		logging.Default().Fatal("config load failed", "error", err)
	}
	if err := cfg.Validate(); err != nil {
		logging.Default().Fatal("invalid configuration", "error", err)
	}

	logger := logging.New(&cfg.Logging)
	logging.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Persistence is optional; without it the engine runs in-memory only
	var repo *database.Repository
	if cfg.Database.Enabled {
		db, err := database.NewDB(ctx, cfg.Database.Config)
		if err != nil {
			logger.Fatal("database connection failed", "error", err)
		}
		defer db.Close()
		if err := db.RunMigrations(ctx); err != nil {
			logger.Fatal("migrations failed", "error", err)
		}
		repo = database.NewRepository(db)
		logger.Info("database connected", "host", cfg.Database.Host, "db", cfg.Database.Database)
	}

	var scoreCache cache.ScoreCache
	if cfg.Redis.Enabled {
		rc := cache.NewRedisCache(cfg.Redis, cfg.Orchestrator.CacheTTL, logger)
		defer rc.Close()
		scoreCache = rc
	} else {
		scoreCache = cache.NewMemoryCache(cfg.Orchestrator.CacheTTL)
	}

	registry, err := analysis.NewRegistry(logger,
		analysis.NewTrendAnalyzer(5),
		analysis.NewMomentumAnalyzer(),
		analysis.NewVolumeAnalyzer(1.2),
		analysis.NewPatternsAnalyzer(0.5),
		analysis.NewSupportResistanceAnalyzer(),
		analysis.NewVolatilityAnalyzer(),
		analysis.NewHarmonicAnalyzer(),
		analysis.NewChannelAnalyzer(),
		analysis.NewCyclicalAnalyzer(),
		analysis.NewHTFAnalyzer(),
	)
	if err != nil {
		logger.Fatal("analyzer registry failed", "error", err)
	}

	bus := events.NewEventBus()
	scorer := scoring.NewScorer(cfg.Scoring, logger)
	riskCalc := risk.NewCalculator(cfg.Risk, logger)
	confCalc := confidence.NewCalculator(cfg.Confidence)
	agg := aggregator.New(cfg.Aggregator, confCalc, riskCalc, logger)

	validator := validation.NewValidator(cfg.Validation, validation.NewHistory(), logger)
	if repo != nil {
		validator.SetWinRateSource(database.NewWinRateAdapter(repo, logger))
	}

	orch := orchestrator.New(
		cfg.Orchestrator,
		market.NewBinanceFetcher(cfg.Market.BaseURL),
		market.NewIndicatorCalculator(),
		market.NewRegimeDetector(),
		registry, scorer, riskCalc, agg, validator,
		scoreCache, bus, logger,
	)
	orch.SetCallback(func(cbCtx context.Context, s *sig.Info) error {
		if repo == nil {
			return nil
		}
		return repo.SaveSignal(cbCtx, s)
	})

	server := api.NewServer(cfg.Server, orch, repo, bus, logger)
	serverErr := make(chan error, 1)
	go func() { serverErr <- server.Start() }()

	if cfg.Market.ScanInterval > 0 {
		go runScanLoop(ctx, orch, cfg.Market.Symbols, cfg.Market.ScanInterval, logger)
	}

	logger.Info("signal engine started",
		"symbols", len(cfg.Market.Symbols),
		"multi_timeframe", cfg.Orchestrator.MultiTimeframe)

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-serverErr:
		if err != nil {
			logger.Error("http server failed", "error", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown failed", "error", err)
	}
	orch.Shutdown()
}

// runScanLoop scans the configured symbols on a fixed interval until the
// context is cancelled. The first scan runs immediately.
func runScanLoop(ctx context.Context, orch *orchestrator.Orchestrator, symbols []string, interval time.Duration, logger *logging.Logger) {
	logger.Info("scan loop started", "symbols", len(symbols), "interval", interval.String())

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	orch.ScanSymbols(ctx, symbols)
	for {
		select {
		case <-ctx.Done():
			logger.Info("scan loop stopped")
			return
		case <-ticker.C:
			orch.ScanSymbols(ctx, symbols)
		}
	}
}
