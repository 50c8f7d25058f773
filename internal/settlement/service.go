package settlement

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/kwesidadzie/bundlehub-backend/internal/wallet"
	"github.com/kwesidadzie/bundlehub-backend/pkg/db/models"
	"github.com/kwesidadzie/bundlehub-backend/pkg/enums"
	pkgerrors "github.com/kwesidadzie/bundlehub-backend/pkg/errors"
	"github.com/kwesidadzie/bundlehub-backend/pkg/logger"
)

// orderStore is the slice of the order repository settlement drives.
type orderStore interface {
	FindWithItems(ctx context.Context, id uuid.UUID) (*models.Order, error)
	MarkPaid(ctx context.Context, id uuid.UUID, paymentRef string) (bool, error)
}

// crediter writes the selling agent's profit into the ledger.
type crediter interface {
	Credit(ctx context.Context, input wallet.EntryInput) (*models.WalletTransaction, error)
}

// cascader pays referral commissions on the settled total.
type cascader interface {
	Cascade(ctx context.Context, sourceAgentID, orderID uuid.UUID, orderTotal decimal.Decimal) error
}

// dispatcher pushes the settled order upstream.
type dispatcher interface {
	Dispatch(ctx context.Context, orderID uuid.UUID) error
}

// Service settles verified payments into orders. The created-to-paid guard on
// the order row makes the whole flow idempotent: only the call that wins the
// transition credits profit and cascades commissions; every later call just
// makes sure the order is dispatched.
type Service interface {
	Settle(ctx context.Context, orderID uuid.UUID, paymentReference string) error
}

type service struct {
	orders      orderStore
	wallets     crediter
	commissions cascader
	dispatch    dispatcher
	logg        *logger.Logger
}

// NewService wires the settlement engine.
func NewService(orders orderStore, wallets crediter, commissions cascader, dispatch dispatcher, logg *logger.Logger) (Service, error) {
	if orders == nil {
		return nil, fmt.Errorf("order store required")
	}
	if wallets == nil {
		return nil, fmt.Errorf("wallet crediter required")
	}
	if commissions == nil {
		return nil, fmt.Errorf("commission cascader required")
	}
	if dispatch == nil {
		return nil, fmt.Errorf("dispatcher required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		orders:      orders,
		wallets:     wallets,
		commissions: commissions,
		dispatch:    dispatch,
		logg:        logg,
	}, nil
}

func (s *service) Settle(ctx context.Context, orderID uuid.UUID, paymentReference string) error {
	if orderID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if paymentReference == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "payment reference required")
	}

	lctx := s.logg.WithOrderID(ctx, orderID.String())

	order, err := s.orders.FindWithItems(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	switch order.Status {
	case enums.OrderStatusFulfilled:
		return nil
	case enums.OrderStatusPaid:
		// Replayed settlement: the money side is done, only dispatch may be
		// outstanding.
		s.ensureDispatched(lctx, order)
		return nil
	case enums.OrderStatusCreated:
	default:
		return pkgerrors.New(pkgerrors.CodeConflict,
			fmt.Sprintf("order in status %q cannot settle", order.Status))
	}

	transitioned, err := s.orders.MarkPaid(ctx, orderID, paymentReference)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark order paid")
	}
	if !transitioned {
		// A concurrent settlement won the transition and owns the credits.
		s.ensureDispatched(lctx, order)
		return nil
	}

	profit := orderProfit(order)
	if profit.GreaterThan(decimal.Zero) {
		metadata, _ := json.Marshal(map[string]string{
			"order_id":    orderID.String(),
			"payment_ref": paymentReference,
		})
		_, err := s.wallets.Credit(ctx, wallet.EntryInput{
			AgentID:   order.AgentID,
			Amount:    profit,
			Type:      enums.WalletTransactionTypeProfit,
			Reference: fmt.Sprintf("profit-%s", orderID),
			Metadata:  metadata,
		})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "credit order profit")
		}
	}

	// Commission failures never unwind the settlement; the combined error is
	// logged and the order still dispatches.
	if err := s.commissions.Cascade(ctx, order.AgentID, orderID, order.TotalAmountGhs); err != nil {
		s.logg.Error(lctx, "commission cascade failed", err)
	}

	order.Status = enums.OrderStatusPaid
	s.ensureDispatched(lctx, order)
	return nil
}

// ensureDispatched triggers dispatch without letting its failure reach the
// settlement caller; the reconciliation loop retries anything left behind.
func (s *service) ensureDispatched(ctx context.Context, order *models.Order) {
	if order.ProviderReference != nil {
		return
	}
	if err := s.dispatch.Dispatch(ctx, order.ID); err != nil {
		s.logg.Error(ctx, "order dispatch failed after settlement", err)
	}
}

// orderProfit is the selling agent's margin across all lines.
func orderProfit(order *models.Order) decimal.Decimal {
	profit := decimal.Zero
	for _, item := range order.Items {
		profit = profit.Add(item.MarkupGhs.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	return profit
}
