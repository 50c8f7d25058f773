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

	"github.com/kwesidadzie/bundlehub-backend/api/routes"
	"github.com/kwesidadzie/bundlehub-backend/internal/agents"
	"github.com/kwesidadzie/bundlehub-backend/internal/commissions"
	"github.com/kwesidadzie/bundlehub-backend/internal/orders"
	"github.com/kwesidadzie/bundlehub-backend/internal/payments"
	"github.com/kwesidadzie/bundlehub-backend/internal/pricing"
	"github.com/kwesidadzie/bundlehub-backend/internal/products"
	"github.com/kwesidadzie/bundlehub-backend/internal/providers"
	"github.com/kwesidadzie/bundlehub-backend/internal/referrals"
	"github.com/kwesidadzie/bundlehub-backend/internal/settlement"
	"github.com/kwesidadzie/bundlehub-backend/internal/subscriptions"
	"github.com/kwesidadzie/bundlehub-backend/internal/wallet"
	"github.com/kwesidadzie/bundlehub-backend/internal/withdrawals"
	"github.com/kwesidadzie/bundlehub-backend/pkg/bundles"
	"github.com/kwesidadzie/bundlehub-backend/pkg/config"
	"github.com/kwesidadzie/bundlehub-backend/pkg/db"
	"github.com/kwesidadzie/bundlehub-backend/pkg/logger"
	"github.com/kwesidadzie/bundlehub-backend/pkg/migrate"
	"github.com/kwesidadzie/bundlehub-backend/pkg/paystack"
)

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
	cfg.Service.Kind = "api"

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

	gormDB := dbClient.DB()

	referralsService, err := referrals.NewService(referrals.NewRepository(gormDB))
	fatalOnInit(logg, "referrals service", err)

	walletService, err := wallet.NewService(wallet.NewRepository(gormDB), dbClient)
	fatalOnInit(logg, "wallet service", err)

	productsRepo := products.NewRepository(gormDB)

	subscriptionsService, err := subscriptions.NewService(subscriptions.ServiceParams{
		Repo:     subscriptions.NewRepository(gormDB),
		Products: products.NewStore(productsRepo),
		Tx:       dbClient,
		Config:   cfg.Subscriptions,
		Logger:   logg,
	})
	fatalOnInit(logg, "subscriptions service", err)

	productsService, err := products.NewService(productsRepo, subscriptionsService)
	fatalOnInit(logg, "products service", err)

	pricingService, err := pricing.NewService(referralsService, productsRepo)
	fatalOnInit(logg, "pricing service", err)

	ordersRepo := orders.NewRepository(gormDB)
	ordersService, err := orders.NewService(ordersRepo, subscriptionsService, pricingService, dbClient)
	fatalOnInit(logg, "orders service", err)

	paystackClient, err := paystack.New(cfg.Paystack)
	fatalOnInit(logg, "paystack client", err)

	paymentsService, err := payments.NewService(payments.NewRepository(gormDB), paystackClient, logg)
	fatalOnInit(logg, "payments service", err)

	commissionsService, err := commissions.NewService(referralsService, walletService, cfg.Commissions, logg)
	fatalOnInit(logg, "commissions service", err)

	providerRouter, err := providers.NewRouter(providers.NewSettingsRepository(gormDB), cfg.Providers)
	fatalOnInit(logg, "provider router", err)

	upstreamHTTP := &http.Client{Timeout: cfg.Providers.Timeout}
	swiftlink, err := bundles.NewSwiftlinkClient(cfg.Providers.SwiftlinkBaseURL, cfg.Providers.SwiftlinkAPIKey, upstreamHTTP)
	fatalOnInit(logg, "swiftlink client", err)
	datanet, err := bundles.NewDatanetClient(cfg.Providers.DatanetBaseURL, cfg.Providers.DatanetAPIKey, upstreamHTTP)
	fatalOnInit(logg, "datanet client", err)

	dispatcher, err := providers.NewDispatcher(ordersRepo, providerRouter,
		[]bundles.Provider{swiftlink, datanet}, logg)
	fatalOnInit(logg, "provider dispatcher", err)

	settlementService, err := settlement.NewService(ordersRepo, walletService, commissionsService, dispatcher, logg)
	fatalOnInit(logg, "settlement service", err)

	withdrawalsService, err := withdrawals.NewService(withdrawals.NewRepository(gormDB), walletService, logg)
	fatalOnInit(logg, "withdrawals service", err)

	accountsService, err := agents.NewService(agents.NewRepository(gormDB), referralsService,
		cfg.JWT, cfg.Password, logg)
	fatalOnInit(logg, "agents service", err)

	addr := ":" + cfg.App.Port
	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(
			cfg,
			logg,
			accountsService,
			subscriptionsService,
			productsService,
			ordersService,
			walletService,
			withdrawalsService,
			paymentsService,
			settlementService,
			providerRouter,
		),
	}

	runCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	runCtx = logg.WithFields(runCtx, map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(runCtx, "starting api server")

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(runCtx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-runCtx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(runCtx, "api server shutdown failed", err)
			os.Exit(1)
		}
		logg.Info(runCtx, "api server stopped")
	}
}

func fatalOnInit(logg *logger.Logger, resource string, err error) {
	if err == nil {
		return
	}
	logg.Error(context.Background(), "failed to create "+resource, err)
	os.Exit(1)
}
