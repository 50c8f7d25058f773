package payments

import (
	"context"
	"io"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/kwesidadzie/bundlehub-backend/pkg/db/models"
	"github.com/kwesidadzie/bundlehub-backend/pkg/enums"
	pkgerrors "github.com/kwesidadzie/bundlehub-backend/pkg/errors"
	"github.com/kwesidadzie/bundlehub-backend/pkg/logger"
	"github.com/kwesidadzie/bundlehub-backend/pkg/paystack"
)

type fakeGateway struct {
	initCalls   int
	verifyCalls int
	verify      *paystack.VerifyResult
	verifyErr   error
}

func (f *fakeGateway) Initialize(ctx context.Context, input paystack.InitializeInput) (*paystack.InitializeResult, error) {
	f.initCalls++
	return &paystack.InitializeResult{
		AuthorizationURL: "https://checkout.paystack.com/abc123",
		AccessCode:       "abc123",
		Reference:        input.Reference,
	}, nil
}

func (f *fakeGateway) Verify(ctx context.Context, reference string) (*paystack.VerifyResult, error) {
	f.verifyCalls++
	if f.verifyErr != nil {
		return nil, f.verifyErr
	}
	return f.verify, nil
}

func setupPaymentsTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)

	payments := `
CREATE TABLE IF NOT EXISTS payments (
  id TEXT PRIMARY KEY,
  reference TEXT NOT NULL UNIQUE,
  type TEXT NOT NULL,
  amount_ghs NUMERIC NOT NULL,
  status TEXT NOT NULL DEFAULT 'created',
  order_id TEXT,
  plan_id TEXT,
  agent_id TEXT,
  verified_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);`
	paymentEvents := `
CREATE TABLE IF NOT EXISTS payment_events (
  id TEXT PRIMARY KEY,
  event_id TEXT NOT NULL,
  reference TEXT NOT NULL,
  payload TEXT NOT NULL,
  created_at DATETIME,
  CONSTRAINT uq_payment_events_event_id UNIQUE (event_id)
);`
	require.NoError(t, db.Exec(payments).Error)
	require.NoError(t, db.Exec(paymentEvents).Error)
	return db
}

func newPaymentsService(t *testing.T, db *gorm.DB, gw *fakeGateway) Service {
	t.Helper()
	svc, err := NewService(NewRepository(db), gw,
		logger.New(logger.Options{ServiceName: "test", Output: io.Discard}))
	require.NoError(t, err)
	return svc
}

func TestService_InitiateCreatesPaymentAndChecksOut(t *testing.T) {
	db := setupPaymentsTestDB(t)
	gw := &fakeGateway{}
	svc := newPaymentsService(t, db, gw)

	agentID := uuid.New()
	checkout, err := svc.Initiate(context.Background(), InitiateInput{
		AgentID:   agentID,
		Email:     "agent@example.com",
		Type:      enums.PaymentTypeWalletTopup,
		AmountGhs: decimal.RequireFromString("50.00"),
	})
	require.NoError(t, err)
	assert.NotEmpty(t, checkout.Reference)
	assert.Equal(t, "https://checkout.paystack.com/abc123", checkout.AuthorizationURL)
	assert.Equal(t, 1, gw.initCalls)

	var payment models.Payment
	require.NoError(t, db.Where("reference = ?", checkout.Reference).First(&payment).Error)
	assert.Equal(t, enums.PaymentStatusCreated, payment.Status)
	assert.True(t, payment.AmountGhs.Equal(decimal.RequireFromString("50.00")))
}

func TestService_RecordEventDeduplicatesByEventID(t *testing.T) {
	db := setupPaymentsTestDB(t)
	svc := newPaymentsService(t, db, &fakeGateway{})

	fresh, err := svc.RecordEvent(context.Background(), "evt_123", "bh-ref", `{"event":"charge.success"}`)
	require.NoError(t, err)
	assert.True(t, fresh)

	replay, err := svc.RecordEvent(context.Background(), "evt_123", "bh-ref", `{"event":"charge.success"}`)
	require.NoError(t, err)
	assert.False(t, replay, "replayed event id must be reported as a duplicate")

	var count int64
	require.NoError(t, db.Model(&models.PaymentEvent{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestService_DiscardEventMakesRetryFresh(t *testing.T) {
	db := setupPaymentsTestDB(t)
	svc := newPaymentsService(t, db, &fakeGateway{})

	fresh, err := svc.RecordEvent(context.Background(), "evt_retry", "bh-ref", "{}")
	require.NoError(t, err)
	require.True(t, fresh)

	require.NoError(t, svc.DiscardEvent(context.Background(), "evt_retry"))

	// The delivery whose side effect failed was released, so its retry is
	// processed rather than acknowledged as a duplicate.
	fresh, err = svc.RecordEvent(context.Background(), "evt_retry", "bh-ref", "{}")
	require.NoError(t, err)
	assert.True(t, fresh)
}

func TestService_RecordEventAllowsDistinctEventIDs(t *testing.T) {
	db := setupPaymentsTestDB(t)
	svc := newPaymentsService(t, db, &fakeGateway{})

	for _, eventID := range []string{"evt_1", "evt_2"} {
		fresh, err := svc.RecordEvent(context.Background(), eventID, "bh-ref", "{}")
		require.NoError(t, err)
		assert.True(t, fresh)
	}
}

func TestService_ConfirmVerifiesExactlyOnce(t *testing.T) {
	db := setupPaymentsTestDB(t)
	gw := &fakeGateway{verify: &paystack.VerifyResult{
		Status:    "success",
		Reference: "bh-order-1",
		Amount:    2500,
	}}
	svc := newPaymentsService(t, db, gw)

	agentID := uuid.New()
	require.NoError(t, db.Create(&models.Payment{
		ID:        uuid.New(),
		Reference: "bh-order-1",
		Type:      enums.PaymentTypeOrder,
		AmountGhs: decimal.RequireFromString("25.00"),
		Status:    enums.PaymentStatusCreated,
		AgentID:   &agentID,
	}).Error)

	payment, transitioned, err := svc.Confirm(context.Background(), "bh-order-1")
	require.NoError(t, err)
	assert.True(t, transitioned)
	assert.Equal(t, enums.PaymentStatusVerified, payment.Status)

	// Second confirmation short-circuits without another gateway call.
	_, again, err := svc.Confirm(context.Background(), "bh-order-1")
	require.NoError(t, err)
	assert.False(t, again)
	assert.Equal(t, 1, gw.verifyCalls)
}

func TestService_ConfirmRejectsAmountMismatch(t *testing.T) {
	db := setupPaymentsTestDB(t)
	gw := &fakeGateway{verify: &paystack.VerifyResult{
		Status: "success",
		Amount: 100, // gateway settled 1.00, payment expects 25.00
	}}
	svc := newPaymentsService(t, db, gw)

	require.NoError(t, db.Create(&models.Payment{
		ID:        uuid.New(),
		Reference: "bh-order-2",
		Type:      enums.PaymentTypeOrder,
		AmountGhs: decimal.RequireFromString("25.00"),
		Status:    enums.PaymentStatusCreated,
	}).Error)

	_, _, err := svc.Confirm(context.Background(), "bh-order-2")
	require.Error(t, err)
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeValidation))

	var payment models.Payment
	require.NoError(t, db.Where("reference = ?", "bh-order-2").First(&payment).Error)
	assert.Equal(t, enums.PaymentStatusCreated, payment.Status)
}

func TestService_ConfirmRejectsFailedCharge(t *testing.T) {
	db := setupPaymentsTestDB(t)
	gw := &fakeGateway{verify: &paystack.VerifyResult{Status: "failed"}}
	svc := newPaymentsService(t, db, gw)

	require.NoError(t, db.Create(&models.Payment{
		ID:        uuid.New(),
		Reference: "bh-order-3",
		Type:      enums.PaymentTypeOrder,
		AmountGhs: decimal.RequireFromString("10.00"),
		Status:    enums.PaymentStatusCreated,
	}).Error)

	_, _, err := svc.Confirm(context.Background(), "bh-order-3")
	require.Error(t, err)
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeValidation))
}

func TestService_ConfirmUnknownReference(t *testing.T) {
	db := setupPaymentsTestDB(t)
	svc := newPaymentsService(t, db, &fakeGateway{})

	_, _, err := svc.Confirm(context.Background(), "bh-missing")
	require.Error(t, err)
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeNotFound))
}
