package controllers

import (
	"net/http"

	"github.com/kwesidadzie/bundlehub-backend/api/responses"
	"github.com/kwesidadzie/bundlehub-backend/api/validators"
	"github.com/kwesidadzie/bundlehub-backend/internal/agents"
	"github.com/kwesidadzie/bundlehub-backend/pkg/logger"
)

type registerPayload struct {
	Name         string `json:"name" validate:"required,min=2"`
	Email        string `json:"email" validate:"required,email"`
	Phone        string `json:"phone" validate:"omitempty,min=9"`
	Password     string `json:"password" validate:"required,min=8"`
	ReferralCode string `json:"referral_code" validate:"omitempty,min=4,max=16"`
}

type loginPayload struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// Register creates an agent account, optionally placing it under the owner of
// the supplied referral code.
func Register(svc agents.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var payload registerPayload
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		agent, err := svc.Register(ctx, agents.RegisterInput{
			Name:         payload.Name,
			Email:        payload.Email,
			Phone:        payload.Phone,
			Password:     payload.Password,
			ReferralCode: payload.ReferralCode,
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, agents.FromModel(agent))
	}
}

// Login exchanges credentials for a bearer token.
func Login(svc agents.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var payload loginPayload
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		session, err := svc.Login(ctx, payload.Email, payload.Password)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]any{
			"token":      session.Token,
			"expires_at": session.ExpiresAt,
			"agent":      agents.FromModel(session.Agent),
		})
	}
}

// Me returns the authenticated agent's profile.
func Me(svc agents.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		agentID, err := currentAgentID(ctx)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		agent, err := svc.Find(ctx, agentID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, agents.FromModel(agent))
	}
}
