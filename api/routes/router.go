package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kwesidadzie/bundlehub-backend/api/controllers"
	webhookcontrollers "github.com/kwesidadzie/bundlehub-backend/api/controllers/webhooks"
	"github.com/kwesidadzie/bundlehub-backend/api/middleware"
	"github.com/kwesidadzie/bundlehub-backend/internal/agents"
	"github.com/kwesidadzie/bundlehub-backend/internal/orders"
	"github.com/kwesidadzie/bundlehub-backend/internal/payments"
	"github.com/kwesidadzie/bundlehub-backend/internal/products"
	"github.com/kwesidadzie/bundlehub-backend/internal/providers"
	"github.com/kwesidadzie/bundlehub-backend/internal/settlement"
	"github.com/kwesidadzie/bundlehub-backend/internal/subscriptions"
	"github.com/kwesidadzie/bundlehub-backend/internal/wallet"
	"github.com/kwesidadzie/bundlehub-backend/internal/withdrawals"
	"github.com/kwesidadzie/bundlehub-backend/pkg/config"
	"github.com/kwesidadzie/bundlehub-backend/pkg/db/models"
	"github.com/kwesidadzie/bundlehub-backend/pkg/logger"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	accountsService agents.Service,
	subscriptionsService subscriptions.Service,
	productsService products.Service,
	ordersService orders.Service,
	walletService wallet.Service,
	withdrawalsService withdrawals.Service,
	paymentsService payments.Service,
	settlementService settlement.Service,
	providerRouter providers.Router,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg))
	})

	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1/webhooks", func(r chi.Router) {
		r.Post("/paystack", webhookcontrollers.Paystack(
			cfg.Paystack, paymentsService, settlementService, subscriptionsService, walletService, logg))
	})

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.Post("/register", controllers.Register(accountsService, logg))
		r.Post("/login", controllers.Login(accountsService, logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))

		r.Get("/me", controllers.Me(accountsService, logg))

		// Out-of-band confirmation for charges whose webhook deliveries all
		// failed.
		r.Post("/payments/{reference}/verify", webhookcontrollers.VerifyPayment(
			paymentsService, settlementService, subscriptionsService, walletService, logg))

		r.Get("/plans", controllers.PlansList(subscriptionsService, logg))
		r.Route("/subscriptions", func(r chi.Router) {
			r.Get("/current", controllers.SubscriptionCurrent(subscriptionsService, logg))
			r.Post("/checkout", controllers.SubscriptionCheckout(
				subscriptionsService, paymentsService, accountsService, logg))
		})

		r.Route("/products", func(r chi.Router) {
			r.Get("/", controllers.CatalogList(productsService, logg))
			r.Get("/mine", controllers.AgentProductsList(productsService, logg))
			r.Post("/configure", controllers.AgentProductConfigure(productsService, logg))
			r.Post("/{productID}/activate", controllers.AgentProductActivate(productsService, logg))
			r.Post("/{productID}/deactivate", controllers.AgentProductDeactivate(productsService, logg))
		})

		r.Route("/orders", func(r chi.Router) {
			r.Post("/", controllers.OrderCreate(ordersService, logg))
			r.Get("/", controllers.OrdersList(ordersService, logg))
			r.Get("/{orderID}", controllers.OrderGet(ordersService, logg))
			r.Post("/{orderID}/pay/wallet", controllers.OrderPayWallet(
				ordersService, walletService, settlementService, logg))
			r.Post("/{orderID}/pay/checkout", controllers.OrderPayCheckout(
				ordersService, paymentsService, accountsService, logg))
		})

		r.Route("/wallet", func(r chi.Router) {
			r.Get("/", controllers.WalletBalance(walletService, logg))
			r.Get("/transactions", controllers.WalletTransactions(walletService, logg))
			r.Post("/topup", controllers.WalletTopup(paymentsService, accountsService, logg))
		})

		r.Route("/withdrawals", func(r chi.Router) {
			r.Post("/", controllers.WithdrawalRequest(withdrawalsService, logg))
			r.Get("/", controllers.WithdrawalsList(withdrawalsService, logg))
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(middleware.RequireRole(models.AgentRoleAdmin, logg))

			r.Get("/providers/override", controllers.ProviderOverrideGet(providerRouter, logg))
			r.Put("/providers/override", controllers.ProviderOverrideSet(providerRouter, logg))

			r.Post("/wallets/balance", controllers.AdminWalletSetBalance(walletService, logg))

			r.Route("/withdrawals", func(r chi.Router) {
				r.Get("/pending", controllers.WithdrawalsPending(withdrawalsService, logg))
				r.Post("/{withdrawalID}/approve", controllers.WithdrawalApprove(withdrawalsService, logg))
				r.Post("/{withdrawalID}/reject", controllers.WithdrawalReject(withdrawalsService, logg))
				r.Post("/{withdrawalID}/paid", controllers.WithdrawalMarkPaid(withdrawalsService, logg))
			})
		})
	})

	return r
}
