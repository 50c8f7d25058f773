package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/kwesidadzie/bundlehub-backend/api/responses"
	"github.com/kwesidadzie/bundlehub-backend/api/validators"
	"github.com/kwesidadzie/bundlehub-backend/internal/agents"
	"github.com/kwesidadzie/bundlehub-backend/internal/payments"
	"github.com/kwesidadzie/bundlehub-backend/internal/subscriptions"
	"github.com/kwesidadzie/bundlehub-backend/pkg/enums"
	"github.com/kwesidadzie/bundlehub-backend/pkg/logger"
)

type subscribePayload struct {
	PlanID uuid.UUID `json:"plan_id" validate:"required"`
}

// PlansList returns the purchasable subscription tiers.
func PlansList(svc subscriptions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		plans, err := svc.Plans(ctx)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]any{"plans": plans})
	}
}

// SubscriptionCurrent returns the agent's entitling subscription, or null when
// nothing entitles them.
func SubscriptionCurrent(svc subscriptions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		agentID, err := currentAgentID(ctx)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		sub, err := svc.Current(ctx, agentID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]any{"subscription": sub})
	}
}

// SubscriptionCheckout opens a gateway checkout for a plan. Activation happens
// when the payment webhook confirms the charge.
func SubscriptionCheckout(subs subscriptions.Service, pays payments.Service, accounts agents.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		agentID, err := currentAgentID(ctx)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		var payload subscribePayload
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		plan, err := subs.FindPlan(ctx, payload.PlanID)
		if err != nil {
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
			Type:      enums.PaymentTypeSubscription,
			AmountGhs: plan.PriceGhs,
			PlanID:    &plan.ID,
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, checkout)
	}
}
