package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/glycostack/glyco-engine/internal/api"
	"github.com/glycostack/glyco-engine/internal/config"
	"github.com/glycostack/glyco-engine/internal/engine"
	"github.com/glycostack/glyco-engine/internal/ingest"
	"github.com/glycostack/glyco-engine/internal/metrics"
	"github.com/glycostack/glyco-engine/internal/models"
	"github.com/glycostack/glyco-engine/internal/refdata"
	"github.com/glycostack/glyco-engine/internal/repo"
	"github.com/glycostack/glyco-engine/internal/services"
	"github.com/glycostack/glyco-engine/internal/store"
	"github.com/glycostack/glyco-engine/internal/utils"
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "", "Path to configuration file")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		slog.Error("failed to load config", slog.String("path", configPath), slog.Any("error", err))
		os.Exit(1)
	}

	logger := utils.NewLogger(cfg.Logging.Level, cfg.Logging.JSON)
	logger.Info("starting glyco-engine", slog.String("address", cfg.Server.Address))

	if err := metrics.Register(prometheus.DefaultRegisterer); err != nil {
		logger.Error("failed to register metrics", slog.Any("error", err))
		os.Exit(1)
	}

	var history store.History = store.NewMemoryHistory(cfg.History.MaxEntries)
	if cfg.History.RedisAddr != "" {
		bootCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		redisHistory, err := store.NewRedisHistory(bootCtx, store.RedisConfig{
			Addr:     cfg.History.RedisAddr,
			Password: cfg.History.Password,
			DB:       cfg.History.RedisDB,
			Max:      cfg.History.MaxEntries,
			TTL:      cfg.History.TTL,
		})
		cancel()
		if err != nil {
			logger.Warn("redis history unavailable, using in-memory store", slog.Any("error", err))
		} else {
			history = redisHistory
		}
	}
	defer history.Close()

	var remote *repo.NightscoutClient
	if cfg.Nightscout.BaseURL != "" {
		remote, err = repo.NewNightscoutClient(repo.NightscoutConfig{
			BaseURL:   cfg.Nightscout.BaseURL,
			APISecret: cfg.Nightscout.APISecret,
			APIToken:  cfg.Nightscout.APIToken,
			Timeout:   cfg.Nightscout.Timeout,
			CacheTTL:  cfg.Nightscout.CacheTTL,
		}, logger)
		if err != nil {
			logger.Error("invalid nightscout configuration", slog.Any("error", err))
			os.Exit(1)
		}
	}

	tables := refdata.NewTables()
	normalizer := ingest.NewNormalizer(cfg.Analysis.PhysiologicLow, cfg.Analysis.PhysiologicHigh, logger)
	responses := engine.NewResponseAnalyzer(responseOptions(cfg.Response), tables, tables, tables)

	service := services.NewAnalysisService(
		logger,
		normalizer,
		responses,
		engine.TrendOptions{
			PatternMinDays:   cfg.Trend.PatternMinDays,
			ElevationMgdl:    cfg.Trend.ElevationMgdl,
			DawnRiseMgdl:     cfg.Trend.DawnRiseMgdl,
			HighVariationStd: cfg.Trend.HighVariationStd,
		},
		history,
		remote,
		models.TargetRange{Low: cfg.Analysis.TargetLow, High: cfg.Analysis.TargetHigh},
	)

	server := api.NewServer(cfg.Server.Address, service, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var metricsServer *http.Server
	if cfg.Server.MetricsAddress != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		metricsServer = &http.Server{
			Addr:         cfg.Server.MetricsAddress,
			Handler:      mux,
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 15 * time.Second,
		}
		go func() {
			logger.Info("metrics server listening", slog.String("address", cfg.Server.MetricsAddress))
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics server exited", slog.Any("error", err))
				stop()
			}
		}()
	}

	go func() {
		if serveErr := server.Start(); serveErr != nil {
			logger.Error("http server exited", slog.Any("error", serveErr))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.GracefulTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http server shutdown", slog.Any("error", err))
	}

	if metricsServer != nil {
		metricsCtx, cancelMetrics := context.WithTimeout(context.Background(), 5*time.Second)
		if err := metricsServer.Shutdown(metricsCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Warn("metrics server shutdown", slog.Any("error", err))
		}
		cancelMetrics()
	}

	// Give remaining goroutines time to finish logging
	time.Sleep(100 * time.Millisecond)
	logger.Info("glyco-engine stopped")
}

func responseOptions(cfg config.ResponseConfig) engine.ResponseOptions {
	opts := engine.ResponseOptions{
		RecoveryTolerance:  cfg.RecoveryTolerance,
		MinLookaheadPoints: cfg.MinLookaheadPoints,
	}
	if len(cfg.Lookback) > 0 {
		opts.Lookback = make(map[models.EventKind]time.Duration, len(cfg.Lookback))
		for kind, d := range cfg.Lookback {
			opts.Lookback[models.EventKind(kind)] = d
		}
	}
	if len(cfg.Lookahead) > 0 {
		opts.Lookahead = make(map[models.EventKind]time.Duration, len(cfg.Lookahead))
		for kind, d := range cfg.Lookahead {
			opts.Lookahead[models.EventKind(kind)] = d
		}
	}
	return opts
}
