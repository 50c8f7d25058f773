package controllers

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/google/uuid"

	"github.com/kwesidadzie/bundlehub-backend/api/responses"
	"github.com/kwesidadzie/bundlehub-backend/api/validators"
	"github.com/kwesidadzie/bundlehub-backend/internal/agents"
	"github.com/kwesidadzie/bundlehub-backend/internal/orders"
	"github.com/kwesidadzie/bundlehub-backend/internal/payments"
	"github.com/kwesidadzie/bundlehub-backend/internal/settlement"
	"github.com/kwesidadzie/bundlehub-backend/internal/wallet"
	"github.com/kwesidadzie/bundlehub-backend/pkg/enums"
	pkgerrors "github.com/kwesidadzie/bundlehub-backend/pkg/errors"
	"github.com/kwesidadzie/bundlehub-backend/pkg/logger"
)

const defaultOrderLimit = 50

type orderItemPayload struct {
	ProductID uuid.UUID `json:"product_id" validate:"required"`
	Quantity  int       `json:"quantity" validate:"required,min=1"`
}

type createOrderPayload struct {
	CustomerPhone string             `json:"customer_phone" validate:"required,min=9"`
	Items         []orderItemPayload `json:"items" validate:"required,min=1,dive"`
}

// OrderCreate prices the requested items through the affiliate resolver and
// persists the order in created state.
func OrderCreate(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		agentID, err := currentAgentID(ctx)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		var payload createOrderPayload
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		input := orders.CreateInput{
			AgentID:       agentID,
			CustomerPhone: payload.CustomerPhone,
		}
		for _, item := range payload.Items {
			input.Items = append(input.Items, orders.ItemInput{
				ProductID: item.ProductID,
				Quantity:  item.Quantity,
			})
		}

		order, err := svc.Create(ctx, input)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, order)
	}
}

// OrdersList returns the agent's orders, newest first.
func OrdersList(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		agentID, err := currentAgentID(ctx)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		list, err := svc.ListForAgent(ctx, agentID, queryLimit(r, defaultOrderLimit))
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]any{"orders": list})
	}
}

// OrderGet returns one of the agent's orders with its items.
func OrderGet(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		agentID, err := currentAgentID(ctx)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		orderID, err := pathUUID(r, "orderID")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		order, err := svc.FindForAgent(ctx, agentID, orderID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, order)
	}
}

// OrderPayWallet pays an order from the agent's wallet balance and settles it
// immediately.
func OrderPayWallet(svc orders.Service, wallets wallet.Service, settle settlement.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		agentID, err := currentAgentID(ctx)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		orderID, err := pathUUID(r, "orderID")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		order, err := svc.FindForAgent(ctx, agentID, orderID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		if order.Status != enums.OrderStatusCreated {
			responses.WriteError(ctx, logg, w,
				pkgerrors.New(pkgerrors.CodeStateConflict, "order is not payable"))
			return
		}

		reference := fmt.Sprintf("order-debit-%s", order.ID)
		metadata, _ := json.Marshal(map[string]string{"order_id": order.ID.String()})
		if _, err := wallets.Debit(ctx, wallet.EntryInput{
			AgentID:   agentID,
			Amount:    order.TotalAmountGhs,
			Type:      enums.WalletTransactionTypeOrderDebit,
			Reference: reference,
			Metadata:  metadata,
		}); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		if err := settle.Settle(ctx, order.ID, reference); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		settled, err := svc.FindForAgent(ctx, agentID, orderID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, settled)
	}
}

// OrderPayCheckout opens a gateway checkout for the order total. Settlement
// happens when the payment webhook confirms the charge.
func OrderPayCheckout(svc orders.Service, pays payments.Service, accounts agents.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		agentID, err := currentAgentID(ctx)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		orderID, err := pathUUID(r, "orderID")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		order, err := svc.FindForAgent(ctx, agentID, orderID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		if order.Status != enums.OrderStatusCreated {
			responses.WriteError(ctx, logg, w,
				pkgerrors.New(pkgerrors.CodeStateConflict, "order is not payable"))
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
			Type:      enums.PaymentTypeOrder,
			AmountGhs: order.TotalAmountGhs,
			OrderID:   &order.ID,
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, checkout)
	}
}
