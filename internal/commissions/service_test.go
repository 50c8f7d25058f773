package commissions

import (
	"context"
	"fmt"
	"io"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/kwesidadzie/bundlehub-backend/internal/wallet"
	"github.com/kwesidadzie/bundlehub-backend/pkg/config"
	"github.com/kwesidadzie/bundlehub-backend/pkg/db/models"
	"github.com/kwesidadzie/bundlehub-backend/pkg/logger"
)

type fakeAncestors struct {
	edges []models.Referral
}

func (f *fakeAncestors) Ancestors(ctx context.Context, childID uuid.UUID) ([]models.Referral, error) {
	return f.edges, nil
}

type fakeCrediter struct {
	credits []wallet.EntryInput
	failFor map[uuid.UUID]bool
}

func (f *fakeCrediter) Credit(ctx context.Context, input wallet.EntryInput) (*models.WalletTransaction, error) {
	if f.failFor[input.AgentID] {
		return nil, fmt.Errorf("wallet unavailable")
	}
	f.credits = append(f.credits, input)
	return &models.WalletTransaction{AgentID: input.AgentID, AmountGhs: input.Amount}, nil
}

func testRates() config.CommissionsConfig {
	return config.CommissionsConfig{
		Level1Rate: decimal.RequireFromString("0.03"),
		Level2Rate: decimal.RequireFromString("0.02"),
		Level3Rate: decimal.RequireFromString("0.01"),
	}
}

func newTestService(t *testing.T, ancestors *fakeAncestors, wallets *fakeCrediter) Service {
	t.Helper()
	svc, err := NewService(ancestors, wallets, testRates(),
		logger.New(logger.Options{ServiceName: "test", Output: io.Discard}))
	if err != nil {
		t.Fatalf("unexpected service error: %v", err)
	}
	return svc
}

func TestService_CascadePaysEachLevelItsRate(t *testing.T) {
	l1 := uuid.New()
	l2 := uuid.New()
	l3 := uuid.New()
	source := uuid.New()
	ancestors := &fakeAncestors{edges: []models.Referral{
		{ParentID: l1, ChildID: source, Level: 1},
		{ParentID: l2, ChildID: source, Level: 2},
		{ParentID: l3, ChildID: source, Level: 3},
	}}
	wallets := &fakeCrediter{}
	svc := newTestService(t, ancestors, wallets)

	orderID := uuid.New()
	total := decimal.RequireFromString("100.00")
	if err := svc.Cascade(context.Background(), source, orderID, total); err != nil {
		t.Fatalf("cascade: %v", err)
	}

	if len(wallets.credits) != 3 {
		t.Fatalf("expected 3 payouts, got %d", len(wallets.credits))
	}
	wantAmounts := map[uuid.UUID]string{l1: "3", l2: "2", l3: "1"}
	for _, credit := range wallets.credits {
		want := decimal.RequireFromString(wantAmounts[credit.AgentID])
		if !credit.Amount.Equal(want) {
			t.Fatalf("payout for %s = %s, want %s", credit.AgentID, credit.Amount, want)
		}
	}
}

func TestService_CascadeContinuesPastFailedPayout(t *testing.T) {
	l1 := uuid.New()
	l2 := uuid.New()
	source := uuid.New()
	ancestors := &fakeAncestors{edges: []models.Referral{
		{ParentID: l1, ChildID: source, Level: 1},
		{ParentID: l2, ChildID: source, Level: 2},
	}}
	wallets := &fakeCrediter{failFor: map[uuid.UUID]bool{l1: true}}
	svc := newTestService(t, ancestors, wallets)

	err := svc.Cascade(context.Background(), source, uuid.New(), decimal.RequireFromString("50.00"))
	if err == nil {
		t.Fatal("expected combined error for the failed payout")
	}
	if len(wallets.credits) != 1 || wallets.credits[0].AgentID != l2 {
		t.Fatalf("the level-2 payout must land despite the level-1 failure, got %+v", wallets.credits)
	}
}

func TestService_CascadeWithoutAncestorsIsNoop(t *testing.T) {
	wallets := &fakeCrediter{}
	svc := newTestService(t, &fakeAncestors{}, wallets)

	if err := svc.Cascade(context.Background(), uuid.New(), uuid.New(), decimal.RequireFromString("40.00")); err != nil {
		t.Fatalf("cascade: %v", err)
	}
	if len(wallets.credits) != 0 {
		t.Fatalf("expected no payouts, got %d", len(wallets.credits))
	}
}

func TestService_CascadeSkipsZeroAmounts(t *testing.T) {
	l1 := uuid.New()
	source := uuid.New()
	ancestors := &fakeAncestors{edges: []models.Referral{
		{ParentID: l1, ChildID: source, Level: 1},
	}}
	wallets := &fakeCrediter{}
	svc := newTestService(t, ancestors, wallets)

	// 0.10 * 0.03 rounds to 0.00
	if err := svc.Cascade(context.Background(), source, uuid.New(), decimal.RequireFromString("0.10")); err != nil {
		t.Fatalf("cascade: %v", err)
	}
	if len(wallets.credits) != 0 {
		t.Fatalf("expected rounding to suppress the payout, got %d", len(wallets.credits))
	}
}
