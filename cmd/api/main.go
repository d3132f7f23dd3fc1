package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/ledgerdesk/portal-backend/api/controllers"
	"github.com/ledgerdesk/portal-backend/api/routes"
	"github.com/ledgerdesk/portal-backend/internal/downloads"
	"github.com/ledgerdesk/portal-backend/internal/licenses"
	"github.com/ledgerdesk/portal-backend/internal/pricing"
	"github.com/ledgerdesk/portal-backend/internal/usage"
	"github.com/ledgerdesk/portal-backend/pkg/config"
	"github.com/ledgerdesk/portal-backend/pkg/db"
	"github.com/ledgerdesk/portal-backend/pkg/logger"
	"github.com/ledgerdesk/portal-backend/pkg/metrics"
	"github.com/ledgerdesk/portal-backend/pkg/migrate"
	"github.com/ledgerdesk/portal-backend/pkg/redis"
)

const shutdownTimeout = 15 * time.Second

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

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	prices, fallbacks := pricing.Resolve(cfg.Pricing)
	for _, fb := range fallbacks {
		logg.Warn(logg.WithFields(context.Background(), map[string]any{
			"setting": fb.Name,
			"raw":     fb.Raw,
			"default": fb.Value.String(),
		}), "invalid price override ignored")
	}

	licenseService, err := licenses.NewService(licenses.ServiceParams{
		Repo:   licenses.NewRepository(dbClient.DB()),
		Logger: logg,
	})
	requireService(logg, "license", err)

	usageService, err := usage.NewService(usage.ServiceParams{
		Repo:         usage.NewRepository(dbClient.DB()),
		Logger:       logg,
		Metrics:      metrics.NewQuotaMetrics(registry),
		MonthlyLimit: cfg.Usage.PremiumMonthlyScanLimit,
	})
	requireService(logg, "usage", err)

	downloadService, err := downloads.NewService(downloads.ServiceParams{
		Catalog: downloads.NewCatalog(cfg.Downloads.InstallersDir, cfg.Downloads.FilePrefix),
		Repo:    downloads.NewRepository(dbClient.DB()),
		Logger:  logg,
	})
	requireService(logg, "download", err)

	processors, err := buildWebhookProcessors(context.Background(), cfg, logg, dbClient, redisClient, metrics.NewWebhookMetrics(registry))
	requireService(logg, "webhook", err)

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(routes.Dependencies{
			Config:     cfg,
			Logger:     logg,
			Licenses:   licenseService,
			Tiers:      licenseService,
			Usage:      usageService,
			Downloads:  downloadService,
			Prices:     prices,
			Webhooks:   processors,
			RateLimits: redisClient,
			Readiness: map[string]controllers.Pinger{
				"database": dbClient,
				"redis":    redisClient,
			},
			Prometheus: registry,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logg.Info(ctx, "starting api server")
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-sigCtx.Done():
		logg.Info(ctx, "shutting down api server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(ctx, "graceful shutdown failed", err)
		}
	}
}

func requireService(logg *logger.Logger, name string, err error) {
	if err == nil {
		return
	}
	logg.Error(logg.WithField(context.Background(), "service", name), "failed to create service", err)
	os.Exit(1)
}
