package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/avelarlabs/solpay-backend/api/routes"
	"github.com/avelarlabs/solpay-backend/internal/cron"
	"github.com/avelarlabs/solpay-backend/internal/matcher"
	"github.com/avelarlabs/solpay-backend/internal/payments"
	"github.com/avelarlabs/solpay-backend/internal/solana"
	"github.com/avelarlabs/solpay-backend/pkg/config"
	"github.com/avelarlabs/solpay-backend/pkg/logger"
	"github.com/avelarlabs/solpay-backend/pkg/metrics"
)

const shutdownGrace = 15 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	metricsRegistry := prometheus.NewRegistry()
	reconcileMetrics := metrics.NewReconcileMetrics(metricsRegistry)
	cronMetrics := metrics.NewCronJobMetrics(metricsRegistry)

	rpcSource, err := solana.NewRPCSource(cfg.Solana, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create rpc source", err)
		os.Exit(1)
	}

	// The indexer answers faster and cheaper than the RPC node, so it goes
	// first when a key is configured; RPC stays as the fallback.
	sources := []matcher.Source{}
	if cfg.Indexer.Enabled() {
		indexerSource, err := solana.NewIndexerSource(cfg.Indexer, logg)
		if err != nil {
			logg.Error(context.Background(), "failed to create indexer source", err)
			os.Exit(1)
		}
		sources = append(sources, indexerSource)
	} else {
		logg.Info(context.Background(), "indexer api key not set; using rpc source only")
	}
	sources = append(sources, rpcSource)

	confirmationMatcher, err := matcher.New(matcher.Params{
		Sources:           sources,
		TreasuryAddress:   cfg.Solana.TreasuryAddress,
		ToleranceLamports: cfg.Payments.ToleranceLamports,
		CandidateLimit:    cfg.Payments.CandidateLimit,
		Logger:            logg,
		Metrics:           reconcileMetrics,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create matcher", err)
		os.Exit(1)
	}

	paymentsService, err := payments.NewService(payments.ServiceParams{
		Store:           payments.NewMemoryStore(),
		Matcher:         confirmationMatcher,
		Logger:          logg,
		Metrics:         reconcileMetrics,
		TreasuryAddress: cfg.Solana.TreasuryAddress,
		IntentTTL:       cfg.Payments.IntentTTL,
		Retention:       cfg.Payments.Retention,
		CheckTimeout:    cfg.Payments.CheckTimeout,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create payments service", err)
		os.Exit(1)
	}

	sweepJob, err := cron.NewIntentSweepJob(cron.IntentSweepJobParams{
		Logger:   logg,
		Payments: paymentsService,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create sweep job", err)
		os.Exit(1)
	}

	// The intent store lives in this process, so the sweep loop runs here
	// instead of a separate worker binary.
	sweeper, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: cron.NewRegistry(sweepJob),
		Lock:     cron.NewLocalLock(),
		Metrics:  cronMetrics,
		Interval: cfg.Payments.SweepInterval,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create sweep service", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := sweeper.Run(ctx); err != nil && err != context.Canceled {
			logg.Error(ctx, "sweep loop stopped unexpectedly", err)
		}
	}()

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	logCtx := logg.WithFields(ctx, map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"treasury": cfg.Solana.TreasuryAddress,
	})
	logg.Info(logCtx, "starting api server")

	server := &http.Server{
		Addr:    addr,
		Handler: routes.NewRouter(cfg, logg, paymentsService, metricsRegistry),
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			logg.Error(logCtx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-ctx.Done():
		logg.Info(logCtx, "shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(logCtx, "graceful shutdown failed", err)
		}
	}
}
