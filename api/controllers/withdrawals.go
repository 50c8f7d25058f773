package controllers

import (
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/kwesidadzie/bundlehub-backend/api/responses"
	"github.com/kwesidadzie/bundlehub-backend/api/validators"
	"github.com/kwesidadzie/bundlehub-backend/internal/withdrawals"
	"github.com/kwesidadzie/bundlehub-backend/pkg/logger"
)

type withdrawalRequestPayload struct {
	AmountGhs decimal.Decimal `json:"amount_ghs" validate:"required"`
}

type withdrawalNotePayload struct {
	Note *string `json:"note"`
}

// WithdrawalRequest debits the wallet and opens a pending payout request.
func WithdrawalRequest(svc withdrawals.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		agentID, err := currentAgentID(ctx)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		var payload withdrawalRequestPayload
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		withdrawal, err := svc.Request(ctx, agentID, payload.AmountGhs)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, withdrawal)
	}
}

// WithdrawalsList returns the agent's payout requests.
func WithdrawalsList(svc withdrawals.Service, logg *logger.Logger) http.HandlerFunc {
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

		responses.WriteSuccess(w, map[string]any{"withdrawals": list})
	}
}

// WithdrawalsPending lists payout requests awaiting review.
func WithdrawalsPending(svc withdrawals.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		list, err := svc.ListPending(ctx)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]any{"withdrawals": list})
	}
}

// WithdrawalApprove moves a pending request to approved.
func WithdrawalApprove(svc withdrawals.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		id, err := pathUUID(r, "withdrawalID")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		var payload withdrawalNotePayload
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		withdrawal, err := svc.Approve(ctx, id, payload.Note)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, withdrawal)
	}
}

// WithdrawalReject rejects a pending request and refunds the pre-debit.
func WithdrawalReject(svc withdrawals.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		id, err := pathUUID(r, "withdrawalID")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		var payload withdrawalNotePayload
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		withdrawal, err := svc.Reject(ctx, id, payload.Note)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, withdrawal)
	}
}

// WithdrawalMarkPaid records that an approved payout was sent.
func WithdrawalMarkPaid(svc withdrawals.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		id, err := pathUUID(r, "withdrawalID")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		withdrawal, err := svc.MarkPaid(ctx, id)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, withdrawal)
	}
}
