package controllers

import (
	"net/http"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/kwesidadzie/bundlehub-backend/api/responses"
	"github.com/kwesidadzie/bundlehub-backend/api/validators"
	"github.com/kwesidadzie/bundlehub-backend/internal/agents"
	"github.com/kwesidadzie/bundlehub-backend/internal/payments"
	"github.com/kwesidadzie/bundlehub-backend/internal/wallet"
	"github.com/kwesidadzie/bundlehub-backend/pkg/enums"
	"github.com/kwesidadzie/bundlehub-backend/pkg/logger"
)

const defaultTransactionLimit = 50

type topupPayload struct {
	AmountGhs decimal.Decimal `json:"amount_ghs" validate:"required"`
}

// WalletBalance returns the agent's current balance.
func WalletBalance(svc wallet.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		agentID, err := currentAgentID(ctx)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		balance, err := svc.Balance(ctx, agentID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]any{
			"agent_id":    agentID,
			"balance_ghs": balance.BalanceGhs,
			"updated_at":  balance.UpdatedAt,
		})
	}
}

// WalletTransactions lists the agent's ledger entries, newest first.
func WalletTransactions(svc wallet.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		agentID, err := currentAgentID(ctx)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		limit := queryLimit(r, defaultTransactionLimit)
		entries, err := svc.Transactions(ctx, agentID, limit)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]any{"transactions": entries})
	}
}

// WalletTopup opens a gateway checkout that credits the wallet once the
// payment webhook confirms the charge.
func WalletTopup(pays payments.Service, accounts agents.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		agentID, err := currentAgentID(ctx)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		var payload topupPayload
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		agent, err := accounts.Find(ctx, agentID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		checkout, err := pays.Initiate(ctx, payments.InitiateInput{
			AgentID:   agentID,
			Email:     agent.Email,
			Type:      enums.PaymentTypeWalletTopup,
			AmountGhs: payload.AmountGhs,
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, checkout)
	}
}

func queryLimit(r *http.Request, fallback int) int {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return fallback
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit <= 0 {
		return fallback
	}
	return limit
}
