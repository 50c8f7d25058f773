package controllers

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/kwesidadzie/bundlehub-backend/api/responses"
	"github.com/kwesidadzie/bundlehub-backend/api/validators"
	"github.com/kwesidadzie/bundlehub-backend/internal/products"
	pkgerrors "github.com/kwesidadzie/bundlehub-backend/pkg/errors"
	"github.com/kwesidadzie/bundlehub-backend/pkg/logger"
)

type configureProductPayload struct {
	ProductID          uuid.UUID       `json:"product_id" validate:"required"`
	MarkupGhs          decimal.Decimal `json:"markup_ghs"`
	AffiliateMarkupGhs decimal.Decimal `json:"affiliate_markup_ghs"`
}

// CatalogList returns the bundle catalog, optionally filtered by category.
func CatalogList(svc products.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var categoryID *uuid.UUID
		if raw := r.URL.Query().Get("category_id"); raw != "" {
			id, err := uuid.Parse(raw)
			if err != nil {
				responses.WriteError(ctx, logg, w,
					pkgerrors.New(pkgerrors.CodeValidation, "invalid category_id"))
				return
			}
			categoryID = &id
		}

		catalog, err := svc.Catalog(ctx, categoryID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]any{"products": catalog})
	}
}

// AgentProductsList returns the agent's resale configuration rows.
func AgentProductsList(svc products.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		agentID, err := currentAgentID(ctx)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		list, err := svc.ListForAgent(ctx, agentID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]any{"agent_products": list})
	}
}

// AgentProductConfigure creates or updates the agent's markups for a product.
func AgentProductConfigure(svc products.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		agentID, err := currentAgentID(ctx)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		var payload configureProductPayload
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		row, err := svc.Configure(ctx, products.ConfigureInput{
			AgentID:            agentID,
			ProductID:          payload.ProductID,
			MarkupGhs:          payload.MarkupGhs,
			AffiliateMarkupGhs: payload.AffiliateMarkupGhs,
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, row)
	}
}

// AgentProductActivate flips a configured product live, subject to the plan's
// product limit.
func AgentProductActivate(svc products.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		agentID, err := currentAgentID(ctx)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		productID, err := pathUUID(r, "productID")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		row, err := svc.Activate(ctx, agentID, productID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, row)
	}
}

// AgentProductDeactivate takes a product off the agent's storefront.
func AgentProductDeactivate(svc products.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		agentID, err := currentAgentID(ctx)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		productID, err := pathUUID(r, "productID")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		if err := svc.Deactivate(ctx, agentID, productID); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]string{"status": "deactivated"})
	}
}
