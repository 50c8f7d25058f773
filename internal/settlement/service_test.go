package settlement

import (
	"context"
	"fmt"
	"io"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/kwesidadzie/bundlehub-backend/internal/wallet"
	"github.com/kwesidadzie/bundlehub-backend/pkg/db/models"
	"github.com/kwesidadzie/bundlehub-backend/pkg/enums"
	pkgerrors "github.com/kwesidadzie/bundlehub-backend/pkg/errors"
	"github.com/kwesidadzie/bundlehub-backend/pkg/logger"
)

type fakeOrderStore struct {
	orders  map[uuid.UUID]*models.Order
	findErr error
}

func (f *fakeOrderStore) FindWithItems(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	if f.findErr != nil {
		return nil, f.findErr
	}
	order, ok := f.orders[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *order
	return &copied, nil
}

func (f *fakeOrderStore) MarkPaid(ctx context.Context, id uuid.UUID, paymentRef string) (bool, error) {
	order := f.orders[id]
	if order.Status != enums.OrderStatusCreated {
		return false, nil
	}
	order.Status = enums.OrderStatusPaid
	order.PaymentRef = &paymentRef
	return true, nil
}

type fakeCrediter struct {
	credits []wallet.EntryInput
	err     error
}

func (f *fakeCrediter) Credit(ctx context.Context, input wallet.EntryInput) (*models.WalletTransaction, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.credits = append(f.credits, input)
	return &models.WalletTransaction{}, nil
}

type fakeCascader struct {
	calls []decimal.Decimal
	err   error
}

func (f *fakeCascader) Cascade(ctx context.Context, sourceAgentID, orderID uuid.UUID, orderTotal decimal.Decimal) error {
	f.calls = append(f.calls, orderTotal)
	return f.err
}

type fakeDispatcher struct {
	calls int
	err   error
}

func (f *fakeDispatcher) Dispatch(ctx context.Context, orderID uuid.UUID) error {
	f.calls++
	return f.err
}

func seedOrder(store *fakeOrderStore, status enums.OrderStatus) *models.Order {
	order := &models.Order{
		ID:             uuid.New(),
		AgentID:        uuid.New(),
		CustomerPhone:  "0241234567",
		TotalAmountGhs: decimal.RequireFromString("51.00"),
		Status:         status,
		Items: []models.OrderItem{
			{MarkupGhs: decimal.RequireFromString("2.00"), Quantity: 2},
			{MarkupGhs: decimal.RequireFromString("0.00"), Quantity: 1},
		},
	}
	store.orders[order.ID] = order
	return order
}

func newTestService(t *testing.T, store *fakeOrderStore, wallets *fakeCrediter, commissions *fakeCascader, dispatch *fakeDispatcher) Service {
	t.Helper()
	svc, err := NewService(store, wallets, commissions, dispatch,
		logger.New(logger.Options{ServiceName: "test", Output: io.Discard}))
	if err != nil {
		t.Fatalf("unexpected service error: %v", err)
	}
	return svc
}

func TestService_SettleCreditsProfitAndCascades(t *testing.T) {
	store := &fakeOrderStore{orders: map[uuid.UUID]*models.Order{}}
	order := seedOrder(store, enums.OrderStatusCreated)
	wallets := &fakeCrediter{}
	commissions := &fakeCascader{}
	dispatch := &fakeDispatcher{}
	svc := newTestService(t, store, wallets, commissions, dispatch)

	if err := svc.Settle(context.Background(), order.ID, "bh-ref-1"); err != nil {
		t.Fatalf("settle: %v", err)
	}

	if order.Status != enums.OrderStatusPaid {
		t.Fatalf("order status = %s, want paid", order.Status)
	}
	if order.PaymentRef == nil || *order.PaymentRef != "bh-ref-1" {
		t.Fatalf("payment ref = %v, want bh-ref-1", order.PaymentRef)
	}

	// profit = 2.00 x 2 + 0.00 x 1
	if len(wallets.credits) != 1 {
		t.Fatalf("expected one profit credit, got %d", len(wallets.credits))
	}
	credit := wallets.credits[0]
	if credit.AgentID != order.AgentID {
		t.Fatalf("profit went to %s, want the selling agent", credit.AgentID)
	}
	if !credit.Amount.Equal(decimal.RequireFromString("4.00")) {
		t.Fatalf("profit = %s, want 4.00", credit.Amount)
	}
	if credit.Type != enums.WalletTransactionTypeProfit {
		t.Fatalf("credit type = %s, want profit", credit.Type)
	}

	// cascade runs on the full order total, not the profit
	if len(commissions.calls) != 1 || !commissions.calls[0].Equal(order.TotalAmountGhs) {
		t.Fatalf("cascade calls = %v, want one call with %s", commissions.calls, order.TotalAmountGhs)
	}
	if dispatch.calls != 1 {
		t.Fatalf("dispatch calls = %d, want 1", dispatch.calls)
	}
}

func TestService_SettleIsIdempotent(t *testing.T) {
	store := &fakeOrderStore{orders: map[uuid.UUID]*models.Order{}}
	order := seedOrder(store, enums.OrderStatusCreated)
	wallets := &fakeCrediter{}
	commissions := &fakeCascader{}
	dispatch := &fakeDispatcher{}
	svc := newTestService(t, store, wallets, commissions, dispatch)

	for i := 0; i < 3; i++ {
		if err := svc.Settle(context.Background(), order.ID, "bh-ref-1"); err != nil {
			t.Fatalf("settle %d: %v", i, err)
		}
	}

	if len(wallets.credits) != 1 {
		t.Fatalf("profit credited %d times, want exactly once", len(wallets.credits))
	}
	if len(commissions.calls) != 1 {
		t.Fatalf("cascade ran %d times, want exactly once", len(commissions.calls))
	}
}

func TestService_SettleReplayEnsuresDispatch(t *testing.T) {
	store := &fakeOrderStore{orders: map[uuid.UUID]*models.Order{}}
	order := seedOrder(store, enums.OrderStatusPaid)
	wallets := &fakeCrediter{}
	commissions := &fakeCascader{}
	dispatch := &fakeDispatcher{}
	svc := newTestService(t, store, wallets, commissions, dispatch)

	if err := svc.Settle(context.Background(), order.ID, "bh-ref-1"); err != nil {
		t.Fatalf("settle: %v", err)
	}
	if len(wallets.credits) != 0 {
		t.Fatal("replay on a paid order must not credit profit again")
	}
	if dispatch.calls != 1 {
		t.Fatalf("dispatch calls = %d, want 1", dispatch.calls)
	}
}

func TestService_SettleSkipsDispatchWhenReferenceClaimed(t *testing.T) {
	store := &fakeOrderStore{orders: map[uuid.UUID]*models.Order{}}
	order := seedOrder(store, enums.OrderStatusPaid)
	ref := "sl-1"
	order.ProviderReference = &ref
	dispatch := &fakeDispatcher{}
	svc := newTestService(t, store, &fakeCrediter{}, &fakeCascader{}, dispatch)

	if err := svc.Settle(context.Background(), order.ID, "bh-ref-1"); err != nil {
		t.Fatalf("settle: %v", err)
	}
	if dispatch.calls != 0 {
		t.Fatal("a claimed provider reference must suppress re-dispatch")
	}
}

func TestService_CascadeFailureDoesNotBlockSettlement(t *testing.T) {
	store := &fakeOrderStore{orders: map[uuid.UUID]*models.Order{}}
	order := seedOrder(store, enums.OrderStatusCreated)
	wallets := &fakeCrediter{}
	commissions := &fakeCascader{err: fmt.Errorf("wallet unavailable")}
	dispatch := &fakeDispatcher{}
	svc := newTestService(t, store, wallets, commissions, dispatch)

	if err := svc.Settle(context.Background(), order.ID, "bh-ref-1"); err != nil {
		t.Fatalf("settle must absorb cascade failures, got %v", err)
	}
	if order.Status != enums.OrderStatusPaid {
		t.Fatalf("order status = %s, want paid", order.Status)
	}
	if dispatch.calls != 1 {
		t.Fatal("order must still dispatch after a cascade failure")
	}
}

func TestService_DispatchFailureDoesNotBlockSettlement(t *testing.T) {
	store := &fakeOrderStore{orders: map[uuid.UUID]*models.Order{}}
	order := seedOrder(store, enums.OrderStatusCreated)
	dispatch := &fakeDispatcher{err: fmt.Errorf("upstream down")}
	svc := newTestService(t, store, &fakeCrediter{}, &fakeCascader{}, dispatch)

	if err := svc.Settle(context.Background(), order.ID, "bh-ref-1"); err != nil {
		t.Fatalf("settle must absorb dispatch failures, got %v", err)
	}
	if order.Status != enums.OrderStatusPaid {
		t.Fatalf("order status = %s, want paid", order.Status)
	}
}

func TestService_UnknownOrderIsNotFound(t *testing.T) {
	store := &fakeOrderStore{orders: map[uuid.UUID]*models.Order{}}
	svc := newTestService(t, store, &fakeCrediter{}, &fakeCascader{}, &fakeDispatcher{})

	err := svc.Settle(context.Background(), uuid.New(), "bh-ref-1")
	if !pkgerrors.Is(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected not-found for unknown order, got %v", err)
	}
}

func TestService_OrderLoadFailureIsDependencyError(t *testing.T) {
	store := &fakeOrderStore{
		orders:  map[uuid.UUID]*models.Order{},
		findErr: fmt.Errorf("connection reset"),
	}
	svc := newTestService(t, store, &fakeCrediter{}, &fakeCascader{}, &fakeDispatcher{})

	err := svc.Settle(context.Background(), uuid.New(), "bh-ref-1")
	if !pkgerrors.Is(err, pkgerrors.CodeDependency) {
		t.Fatalf("expected dependency error for db failure, got %v", err)
	}
}

func TestService_FulfilledOrderIsNoop(t *testing.T) {
	store := &fakeOrderStore{orders: map[uuid.UUID]*models.Order{}}
	order := seedOrder(store, enums.OrderStatusFulfilled)
	wallets := &fakeCrediter{}
	dispatch := &fakeDispatcher{}
	svc := newTestService(t, store, wallets, &fakeCascader{}, dispatch)

	if err := svc.Settle(context.Background(), order.ID, "bh-ref-1"); err != nil {
		t.Fatalf("settle: %v", err)
	}
	if len(wallets.credits) != 0 || dispatch.calls != 0 {
		t.Fatal("fulfilled orders must be left alone")
	}
}
