package controllers

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/kwesidadzie/bundlehub-backend/api/middleware"
	"github.com/kwesidadzie/bundlehub-backend/api/responses"
	"github.com/kwesidadzie/bundlehub-backend/api/validators"
	"github.com/kwesidadzie/bundlehub-backend/internal/providers"
	"github.com/kwesidadzie/bundlehub-backend/internal/wallet"
	"github.com/kwesidadzie/bundlehub-backend/pkg/enums"
	pkgerrors "github.com/kwesidadzie/bundlehub-backend/pkg/errors"
	"github.com/kwesidadzie/bundlehub-backend/pkg/logger"
)

type providerOverridePayload struct {
	Provider *string `json:"provider"`
}

type setBalancePayload struct {
	AgentID    uuid.UUID       `json:"agent_id" validate:"required"`
	BalanceGhs decimal.Decimal `json:"balance_ghs"`
}

// ProviderOverrideGet reports the persisted routing override, if any.
func ProviderOverrideGet(router providers.Router, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		override, err := router.Setting(ctx)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		provider, reason, err := router.Resolve(ctx)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]any{
			"override": override,
			"active":   provider,
			"reason":   reason,
		})
	}
}

// ProviderOverrideSet pins routing to one provider, or clears the pin when the
// payload provider is null.
func ProviderOverrideSet(router providers.Router, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var payload providerOverridePayload
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		var override *enums.Provider
		if payload.Provider != nil {
			parsed, err := enums.ParseProvider(*payload.Provider)
			if err != nil {
				responses.WriteError(ctx, logg, w,
					pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid provider"))
				return
			}
			override = &parsed
		}

		if err := router.SetOverride(ctx, override, middleware.AgentIDFromContext(ctx)); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		provider, reason, err := router.Resolve(ctx)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]any{
			"override": override,
			"active":   provider,
			"reason":   reason,
		})
	}
}

// AdminWalletSetBalance force-sets an agent's balance through an adjustment
// entry that records the delta and the acting admin.
func AdminWalletSetBalance(wallets wallet.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var payload setBalancePayload
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		entry, err := wallets.SetBalance(ctx, payload.AgentID, payload.BalanceGhs,
			middleware.AgentIDFromContext(ctx))
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, entry)
	}
}
