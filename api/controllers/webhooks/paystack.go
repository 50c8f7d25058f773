package webhooks

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/kwesidadzie/bundlehub-backend/api/responses"
	"github.com/kwesidadzie/bundlehub-backend/internal/wallet"
	"github.com/kwesidadzie/bundlehub-backend/pkg/config"
	"github.com/kwesidadzie/bundlehub-backend/pkg/db/models"
	"github.com/kwesidadzie/bundlehub-backend/pkg/enums"
	pkgerrors "github.com/kwesidadzie/bundlehub-backend/pkg/errors"
	"github.com/kwesidadzie/bundlehub-backend/pkg/logger"
	"github.com/kwesidadzie/bundlehub-backend/pkg/paystack"
)

const signatureHeader = "x-paystack-signature"

// maxEventBody caps webhook payload reads.
const maxEventBody = 1 << 20

type paymentIntake interface {
	RecordEvent(ctx context.Context, eventID, reference, payload string) (bool, error)
	DiscardEvent(ctx context.Context, eventID string) error
	Confirm(ctx context.Context, reference string) (*models.Payment, bool, error)
}

type settler interface {
	Settle(ctx context.Context, orderID uuid.UUID, paymentReference string) error
}

type subscriptionActivator interface {
	Activate(ctx context.Context, agentID, planID uuid.UUID) (*models.Subscription, error)
}

type walletCrediter interface {
	Credit(ctx context.Context, input wallet.EntryInput) (*models.WalletTransaction, error)
}

type paystackEvent struct {
	Event string `json:"event"`
	Data  struct {
		ID        int64  `json:"id"`
		Reference string `json:"reference"`
	} `json:"data"`
}

// Paystack ingests gateway events. Deliveries are deduplicated by event id, so
// replays acknowledge without side effects. When a side effect fails the
// recorded event id is released again before the error status goes back, so
// the gateway's retry of the same delivery is processed instead of being
// acknowledged as a duplicate.
func Paystack(cfg config.PaystackConfig, intake paymentIntake, settle settler, subs subscriptionActivator, wallets walletCrediter, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		payload, err := io.ReadAll(io.LimitReader(r.Body, maxEventBody))
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read request body"))
			return
		}

		header := r.Header.Get(signatureHeader)
		if header == "" || !paystack.ValidSignature(cfg.SecretKey, payload, header) {
			responses.WriteError(ctx, logg, w,
				pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid webhook signature"))
			return
		}

		var event paystackEvent
		if err := json.Unmarshal(payload, &event); err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decode event"))
			return
		}

		eventID := strconv.FormatInt(event.Data.ID, 10)
		if event.Data.ID == 0 {
			eventID = fmt.Sprintf("%s:%s", event.Event, event.Data.Reference)
		}

		ctx = logg.WithFields(ctx, map[string]any{
			"event":     event.Event,
			"event_id":  eventID,
			"reference": event.Data.Reference,
		})

		fresh, err := intake.RecordEvent(ctx, eventID, event.Data.Reference, string(payload))
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		if !fresh {
			responses.WriteSuccess(w, map[string]string{"status": "duplicate"})
			return
		}

		if event.Event != "charge.success" {
			logg.Info(ctx, "ignoring unhandled gateway event")
			responses.WriteSuccess(w, map[string]string{"status": "ignored"})
			return
		}

		payment, transitioned, err := intake.Confirm(ctx, event.Data.Reference)
		if err != nil {
			releaseEvent(ctx, intake, eventID, logg)
			responses.WriteError(ctx, logg, w, err)
			return
		}

		if err := apply(ctx, payment, transitioned, settle, subs, wallets, logg); err != nil {
			releaseEvent(ctx, intake, eventID, logg)
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]string{"status": "processed"})
	}
}

// VerifyPayment confirms a payment against the gateway on demand and runs its
// side effect, so a charge whose webhook deliveries all failed can still be
// settled out-of-band.
func VerifyPayment(intake paymentIntake, settle settler, subs subscriptionActivator, wallets walletCrediter, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		reference := chi.URLParam(r, "reference")
		if reference == "" {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "payment reference required"))
			return
		}
		ctx = logg.WithField(ctx, "reference", reference)

		payment, transitioned, err := intake.Confirm(ctx, reference)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		if err := apply(ctx, payment, transitioned, settle, subs, wallets, logg); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]string{
			"status":    "verified",
			"reference": reference,
		})
	}
}

// releaseEvent drops the dedup claim for a delivery whose side effect failed.
// If the delete itself fails the event stays claimed and the payment needs an
// out-of-band verify, so the failure is loud in the logs.
func releaseEvent(ctx context.Context, intake paymentIntake, eventID string, logg *logger.Logger) {
	if err := intake.DiscardEvent(ctx, eventID); err != nil {
		logg.Error(ctx, "failed to release payment event for retry", err)
	}
}

// apply runs the verified payment's side effect. Settlement is safe to call on
// every delivery; activation and topup credit only run for the delivery that
// performed the created-to-verified transition.
func apply(ctx context.Context, payment *models.Payment, transitioned bool, settle settler, subs subscriptionActivator, wallets walletCrediter, logg *logger.Logger) error {
	switch payment.Type {
	case enums.PaymentTypeOrder:
		if payment.OrderID == nil {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order payment missing order id")
		}
		return settle.Settle(ctx, *payment.OrderID, payment.Reference)

	case enums.PaymentTypeSubscription:
		if !transitioned {
			return nil
		}
		if payment.AgentID == nil || payment.PlanID == nil {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "subscription payment missing agent or plan")
		}
		_, err := subs.Activate(ctx, *payment.AgentID, *payment.PlanID)
		return err

	case enums.PaymentTypeWalletTopup:
		if !transitioned {
			return nil
		}
		if payment.AgentID == nil {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "topup payment missing agent")
		}
		metadata, _ := json.Marshal(map[string]string{"payment_reference": payment.Reference})
		_, err := wallets.Credit(ctx, wallet.EntryInput{
			AgentID:   *payment.AgentID,
			Amount:    payment.AmountGhs,
			Type:      enums.WalletTransactionTypeTopUp,
			Reference: payment.Reference,
			Metadata:  metadata,
		})
		return err

	default:
		logg.Info(ctx, "no side effect for payment type "+payment.Type.String())
		return nil
	}
}
