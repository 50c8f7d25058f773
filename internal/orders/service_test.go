package orders

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/kwesidadzie/bundlehub-backend/internal/pricing"
	"github.com/kwesidadzie/bundlehub-backend/pkg/db/models"
	"github.com/kwesidadzie/bundlehub-backend/pkg/enums"
	pkgerrors "github.com/kwesidadzie/bundlehub-backend/pkg/errors"
)

type gormTxRunner struct {
	db *gorm.DB
}

func (r gormTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.WithContext(ctx).Transaction(fn)
}

type allowAllGate struct{}

func (allowAllGate) EnsureActive(ctx context.Context, agentID uuid.UUID) (*models.Subscription, error) {
	return &models.Subscription{AgentID: agentID}, nil
}

type deniedGate struct{}

func (deniedGate) EnsureActive(ctx context.Context, agentID uuid.UUID) (*models.Subscription, error) {
	return nil, pkgerrors.New(pkgerrors.CodeSubscriptionRequired, "an active subscription is required")
}

type fakeResolver struct {
	quotes map[uuid.UUID]*pricing.Quote
}

func (f *fakeResolver) Resolve(ctx context.Context, agentID, productID uuid.UUID) (*pricing.Quote, error) {
	if quote, ok := f.quotes[productID]; ok {
		return quote, nil
	}
	return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
}

func setupOrdersTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)

	orders := `
CREATE TABLE IF NOT EXISTS orders (
  id TEXT PRIMARY KEY,
  agent_id TEXT NOT NULL,
  customer_phone TEXT NOT NULL,
  total_amount_ghs NUMERIC NOT NULL,
  status TEXT NOT NULL DEFAULT 'created',
  payment_ref TEXT,
  provider_key TEXT,
  provider_reference TEXT UNIQUE,
  provider_status TEXT,
  provider_response TEXT,
  provider_last_checked_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);`
	orderItems := `
CREATE TABLE IF NOT EXISTS order_items (
  id TEXT PRIMARY KEY,
  order_id TEXT NOT NULL,
  product_id TEXT NOT NULL,
  base_price_ghs NUMERIC NOT NULL,
  markup_ghs NUMERIC NOT NULL,
  quantity INTEGER NOT NULL,
  unit_price_ghs NUMERIC NOT NULL,
  total_price_ghs NUMERIC NOT NULL,
  created_at DATETIME
);`
	require.NoError(t, db.Exec(orders).Error)
	require.NoError(t, db.Exec(orderItems).Error)
	return db
}

func quoteFor(productID uuid.UUID, base, markup string) *pricing.Quote {
	b := decimal.RequireFromString(base)
	m := decimal.RequireFromString(markup)
	return &pricing.Quote{
		ProductID:        productID,
		EffectiveBaseGhs: b,
		MarkupGhs:        m,
		UnitPriceGhs:     b.Add(m),
	}
}

func TestService_CreatePricesThroughResolver(t *testing.T) {
	db := setupOrdersTestDB(t)
	productA := uuid.New()
	productB := uuid.New()
	resolver := &fakeResolver{quotes: map[uuid.UUID]*pricing.Quote{
		productA: quoteFor(productA, "11.00", "2.00"), // unit 13.00
		productB: quoteFor(productB, "25.00", "0.00"), // unit 25.00
	}}
	svc, err := NewService(NewRepository(db), allowAllGate{}, resolver, gormTxRunner{db: db})
	require.NoError(t, err)

	order, err := svc.Create(context.Background(), CreateInput{
		AgentID:       uuid.New(),
		CustomerPhone: "0241234567",
		Items: []ItemInput{
			{ProductID: productA, Quantity: 2},
			{ProductID: productB, Quantity: 1},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, enums.OrderStatusCreated, order.Status)
	require.Len(t, order.Items, 2)
	assert.True(t, order.Items[0].UnitPriceGhs.Equal(decimal.RequireFromString("13.00")))
	assert.True(t, order.Items[0].TotalPriceGhs.Equal(decimal.RequireFromString("26.00")))
	// order total = sum of line totals = 26 + 25
	assert.True(t, order.TotalAmountGhs.Equal(decimal.RequireFromString("51.00")))

	for _, item := range order.Items {
		assert.True(t, item.UnitPriceGhs.Equal(item.BasePriceGhs.Add(item.MarkupGhs)))
	}
}

func TestService_CreateRequiresSubscription(t *testing.T) {
	db := setupOrdersTestDB(t)
	productID := uuid.New()
	resolver := &fakeResolver{quotes: map[uuid.UUID]*pricing.Quote{
		productID: quoteFor(productID, "10.00", "0.00"),
	}}
	svc, err := NewService(NewRepository(db), deniedGate{}, resolver, gormTxRunner{db: db})
	require.NoError(t, err)

	_, err = svc.Create(context.Background(), CreateInput{
		AgentID:       uuid.New(),
		CustomerPhone: "0241234567",
		Items:         []ItemInput{{ProductID: productID, Quantity: 1}},
	})
	require.Error(t, err)
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeSubscriptionRequired))

	var count int64
	require.NoError(t, db.Model(&models.Order{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestService_CreateRejectsEmptyAndInvalidItems(t *testing.T) {
	db := setupOrdersTestDB(t)
	svc, err := NewService(NewRepository(db), allowAllGate{}, &fakeResolver{}, gormTxRunner{db: db})
	require.NoError(t, err)

	cases := []CreateInput{
		{AgentID: uuid.New(), CustomerPhone: "024", Items: nil},
		{AgentID: uuid.New(), CustomerPhone: "", Items: []ItemInput{{ProductID: uuid.New(), Quantity: 1}}},
		{AgentID: uuid.New(), CustomerPhone: "024", Items: []ItemInput{{ProductID: uuid.New(), Quantity: 0}}},
	}
	for _, input := range cases {
		_, err := svc.Create(context.Background(), input)
		assert.True(t, pkgerrors.Is(err, pkgerrors.CodeValidation), "input %+v", input)
	}
}

func TestRepository_MarkPaidTransitionsOnce(t *testing.T) {
	db := setupOrdersTestDB(t)
	repo := NewRepository(db)

	order := &models.Order{
		ID:             uuid.New(),
		AgentID:        uuid.New(),
		CustomerPhone:  "0241234567",
		TotalAmountGhs: decimal.RequireFromString("20.00"),
		Status:         enums.OrderStatusCreated,
	}
	require.NoError(t, db.Create(order).Error)

	first, err := repo.MarkPaid(context.Background(), order.ID, "bh-ref-1")
	require.NoError(t, err)
	assert.True(t, first)

	second, err := repo.MarkPaid(context.Background(), order.ID, "bh-ref-2")
	require.NoError(t, err)
	assert.False(t, second, "paid orders must not transition again")

	var stored models.Order
	require.NoError(t, db.First(&stored, "id = ?", order.ID).Error)
	assert.Equal(t, enums.OrderStatusPaid, stored.Status)
	require.NotNil(t, stored.PaymentRef)
	assert.Equal(t, "bh-ref-1", *stored.PaymentRef)
}

func TestRepository_ClaimProviderReferenceFirstWins(t *testing.T) {
	db := setupOrdersTestDB(t)
	repo := NewRepository(db)

	order := &models.Order{
		ID:             uuid.New(),
		AgentID:        uuid.New(),
		CustomerPhone:  "0241234567",
		TotalAmountGhs: decimal.RequireFromString("20.00"),
		Status:         enums.OrderStatusPaid,
	}
	require.NoError(t, db.Create(order).Error)

	claimed, err := repo.ClaimProviderReference(context.Background(), order.ID,
		enums.ProviderSwiftlink, "sl-1", enums.ProviderStatusSubmitted, "{}")
	require.NoError(t, err)
	assert.True(t, claimed)

	again, err := repo.ClaimProviderReference(context.Background(), order.ID,
		enums.ProviderDatanet, "dn-1", enums.ProviderStatusSubmitted, "{}")
	require.NoError(t, err)
	assert.False(t, again, "second claim must lose")

	var stored models.Order
	require.NoError(t, db.First(&stored, "id = ?", order.ID).Error)
	require.NotNil(t, stored.ProviderReference)
	assert.Equal(t, "sl-1", *stored.ProviderReference)
	assert.Equal(t, enums.ProviderSwiftlink, *stored.ProviderKey)
}

func TestRepository_ListDispatchableSkipsFailedAndClaimed(t *testing.T) {
	db := setupOrdersTestDB(t)
	repo := NewRepository(db)

	mk := func(status enums.OrderStatus) *models.Order {
		o := &models.Order{
			ID:             uuid.New(),
			AgentID:        uuid.New(),
			CustomerPhone:  "024",
			TotalAmountGhs: decimal.RequireFromString("5.00"),
			Status:         status,
		}
		require.NoError(t, db.Create(o).Error)
		return o
	}

	eligible := mk(enums.OrderStatusPaid)
	mk(enums.OrderStatusCreated)
	claimed := mk(enums.OrderStatusPaid)
	_, err := repo.ClaimProviderReference(context.Background(), claimed.ID,
		enums.ProviderSwiftlink, "sl-2", enums.ProviderStatusSubmitted, "{}")
	require.NoError(t, err)
	failed := mk(enums.OrderStatusPaid)
	require.NoError(t, repo.MarkDispatchFailed(context.Background(), failed.ID, "bad network"))

	out, err := repo.ListDispatchable(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, eligible.ID, out[0].ID)
}

func TestRepository_RecordDispatchErrorKeepsOrderDispatchable(t *testing.T) {
	db := setupOrdersTestDB(t)
	repo := NewRepository(db)

	order := &models.Order{
		ID:             uuid.New(),
		AgentID:        uuid.New(),
		CustomerPhone:  "0241234567",
		TotalAmountGhs: decimal.RequireFromString("20.00"),
		Status:         enums.OrderStatusPaid,
	}
	require.NoError(t, db.Create(order).Error)

	require.NoError(t, repo.RecordDispatchError(context.Background(), order.ID,
		"gateway timeout", time.Now()))

	var stored models.Order
	require.NoError(t, db.First(&stored, "id = ?", order.ID).Error)
	require.NotNil(t, stored.ProviderStatus)
	assert.Equal(t, enums.ProviderStatusFailed, *stored.ProviderStatus)
	require.NotNil(t, stored.ProviderResponse)
	assert.Equal(t, "gateway timeout", *stored.ProviderResponse)
	assert.Nil(t, stored.ProviderReference)

	// The upstream failure stays visible but the order remains in the
	// dispatch pool for retry.
	out, err := repo.ListDispatchable(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, order.ID, out[0].ID)
}
