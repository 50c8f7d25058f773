package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/kwesidadzie/bundlehub-backend/internal/orders"
	"github.com/kwesidadzie/bundlehub-backend/internal/providers"
	"github.com/kwesidadzie/bundlehub-backend/internal/recon"
	"github.com/kwesidadzie/bundlehub-backend/pkg/bundles"
	"github.com/kwesidadzie/bundlehub-backend/pkg/config"
	"github.com/kwesidadzie/bundlehub-backend/pkg/db"
	"github.com/kwesidadzie/bundlehub-backend/pkg/logger"
	"github.com/kwesidadzie/bundlehub-backend/pkg/metrics"
	"github.com/kwesidadzie/bundlehub-backend/pkg/redis"
)

func main() {
	ctx := context.Background()
	logg := logger.New(logger.Options{ServiceName: "recon-worker"})

	_ = godotenv.Load()

	cfg, err := config.Load()
	requireResource(ctx, logg, "config", err)

	cfg.Service.Kind = "recon-worker"

	logg = logger.New(logger.Options{
		ServiceName: "recon-worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(ctx, cfg.DB, logg)
	requireResource(ctx, logg, "database", err)
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(ctx, "error closing database", err)
		}
	}()

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	requireResource(ctx, logg, "redis", err)
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(ctx, "error closing redis", err)
		}
	}()

	ordersRepo := orders.NewRepository(dbClient.DB())

	providerRouter, err := providers.NewRouter(providers.NewSettingsRepository(dbClient.DB()), cfg.Providers)
	requireResource(ctx, logg, "provider router", err)

	upstreamHTTP := &http.Client{Timeout: cfg.Providers.Timeout}
	swiftlink, err := bundles.NewSwiftlinkClient(cfg.Providers.SwiftlinkBaseURL, cfg.Providers.SwiftlinkAPIKey, upstreamHTTP)
	requireResource(ctx, logg, "swiftlink client", err)
	datanet, err := bundles.NewDatanetClient(cfg.Providers.DatanetBaseURL, cfg.Providers.DatanetAPIKey, upstreamHTTP)
	requireResource(ctx, logg, "datanet client", err)

	dispatcher, err := providers.NewDispatcher(ordersRepo, providerRouter,
		[]bundles.Provider{swiftlink, datanet}, logg)
	requireResource(ctx, logg, "provider dispatcher", err)

	workerMetrics := metrics.NewReconWorkerMetrics(prometheus.DefaultRegisterer)

	worker, err := recon.NewWorker(ordersRepo, dispatcher, redisClient, cfg.Recon, workerMetrics, logg)
	requireResource(ctx, logg, "recon worker", err)

	runCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	runCtx = logg.WithFields(runCtx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
		"interval":    cfg.Recon.Interval.String(),
	})
	logg.Info(runCtx, "recon worker ready")

	worker.Run(runCtx)
	logg.Info(runCtx, "recon worker stopped")
}

func requireResource(ctx context.Context, logg *logger.Logger, resource string, err error) {
	if err == nil {
		return
	}
	logg.Error(ctx, "resource not working: "+resource, err)
	os.Exit(1)
}
