package products

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/kwesidadzie/bundlehub-backend/pkg/db/models"
	pkgerrors "github.com/kwesidadzie/bundlehub-backend/pkg/errors"
)

type fakeRepository struct {
	products map[uuid.UUID]*models.Product
	aps      []*models.AgentProduct
}

func newFakeRepository() *fakeRepository {
	return &fakeRepository{products: map[uuid.UUID]*models.Product{}}
}

func (f *fakeRepository) WithTx(tx *gorm.DB) Repository { return f }

func (f *fakeRepository) FindProduct(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	if p, ok := f.products[id]; ok {
		return p, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeRepository) ListProducts(ctx context.Context, categoryID *uuid.UUID) ([]models.Product, error) {
	var out []models.Product
	for _, p := range f.products {
		if categoryID == nil || p.CategoryID == *categoryID {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (f *fakeRepository) FindAgentProduct(ctx context.Context, agentID, productID uuid.UUID) (*models.AgentProduct, error) {
	for _, ap := range f.aps {
		if ap.AgentID == agentID && ap.ProductID == productID {
			return ap, nil
		}
	}
	return nil, nil
}

func (f *fakeRepository) CreateAgentProduct(ctx context.Context, ap *models.AgentProduct) error {
	if ap.ID == uuid.Nil {
		ap.ID = uuid.New()
	}
	f.aps = append(f.aps, ap)
	return nil
}

func (f *fakeRepository) SaveAgentProduct(ctx context.Context, ap *models.AgentProduct) error {
	return nil
}

func (f *fakeRepository) ListByAgent(ctx context.Context, agentID uuid.UUID) ([]models.AgentProduct, error) {
	var out []models.AgentProduct
	for _, ap := range f.aps {
		if ap.AgentID == agentID {
			out = append(out, *ap)
		}
	}
	return out, nil
}

func (f *fakeRepository) ListActiveByAgent(ctx context.Context, agentID uuid.UUID) ([]models.AgentProduct, error) {
	var out []models.AgentProduct
	for _, ap := range f.aps {
		if ap.AgentID == agentID && ap.IsActive {
			out = append(out, *ap)
		}
	}
	return out, nil
}

func (f *fakeRepository) CountActiveByAgent(ctx context.Context, agentID uuid.UUID) (int64, error) {
	var count int64
	for _, ap := range f.aps {
		if ap.AgentID == agentID && ap.IsActive {
			count++
		}
	}
	return count, nil
}

func (f *fakeRepository) DeactivateByIDs(ctx context.Context, ids []uuid.UUID) error {
	for _, id := range ids {
		for _, ap := range f.aps {
			if ap.ID == id {
				ap.IsActive = false
			}
		}
	}
	return nil
}

type fakeGate struct {
	sub *models.Subscription
	err error
}

func (f *fakeGate) EnsureActive(ctx context.Context, agentID uuid.UUID) (*models.Subscription, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.sub, nil
}

func seedProduct(repo *fakeRepository) *models.Product {
	p := &models.Product{ID: uuid.New(), Name: "MTN 5GB", Size: "5GB", BasePriceGhs: decimal.NewFromInt(25)}
	repo.products[p.ID] = p
	return p
}

func TestService_ConfigureCreatesThenUpdates(t *testing.T) {
	repo := newFakeRepository()
	product := seedProduct(repo)
	agentID := uuid.New()
	svc, err := NewService(repo, &fakeGate{})
	if err != nil {
		t.Fatalf("unexpected service error: %v", err)
	}

	ap, err := svc.Configure(context.Background(), ConfigureInput{
		AgentID:            agentID,
		ProductID:          product.ID,
		MarkupGhs:          decimal.NewFromInt(2),
		AffiliateMarkupGhs: decimal.NewFromInt(1),
	})
	if err != nil {
		t.Fatalf("configure: %v", err)
	}
	if ap.IsActive {
		t.Fatal("configure must not activate the product")
	}

	updated, err := svc.Configure(context.Background(), ConfigureInput{
		AgentID:   agentID,
		ProductID: product.ID,
		MarkupGhs: decimal.NewFromInt(3),
	})
	if err != nil {
		t.Fatalf("reconfigure: %v", err)
	}
	if !updated.MarkupGhs.Equal(decimal.NewFromInt(3)) {
		t.Fatalf("markup = %s, want 3", updated.MarkupGhs)
	}
	if len(repo.aps) != 1 {
		t.Fatalf("expected a single agent product row, got %d", len(repo.aps))
	}
}

func TestService_ConfigureRejectsNegativeMarkup(t *testing.T) {
	repo := newFakeRepository()
	product := seedProduct(repo)
	svc, _ := NewService(repo, &fakeGate{})

	_, err := svc.Configure(context.Background(), ConfigureInput{
		AgentID:   uuid.New(),
		ProductID: product.ID,
		MarkupGhs: decimal.NewFromInt(-1),
	})
	if !pkgerrors.Is(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestService_ActivateRequiresSubscription(t *testing.T) {
	repo := newFakeRepository()
	product := seedProduct(repo)
	gate := &fakeGate{err: pkgerrors.New(pkgerrors.CodeSubscriptionRequired, "an active subscription is required")}
	svc, _ := NewService(repo, gate)

	_, err := svc.Activate(context.Background(), uuid.New(), product.ID)
	if !pkgerrors.Is(err, pkgerrors.CodeSubscriptionRequired) {
		t.Fatalf("expected subscription-required error, got %v", err)
	}
}

func TestService_ActivateEnforcesPlanLimit(t *testing.T) {
	repo := newFakeRepository()
	agentID := uuid.New()
	gate := &fakeGate{sub: &models.Subscription{
		AgentID: agentID,
		Plan:    &models.Plan{ProductLimit: 1},
	}}
	svc, _ := NewService(repo, gate)

	first := seedProduct(repo)
	second := seedProduct(repo)
	for _, p := range []*models.Product{first, second} {
		if _, err := svc.Configure(context.Background(), ConfigureInput{AgentID: agentID, ProductID: p.ID}); err != nil {
			t.Fatalf("configure: %v", err)
		}
	}

	if _, err := svc.Activate(context.Background(), agentID, first.ID); err != nil {
		t.Fatalf("first activation: %v", err)
	}
	_, err := svc.Activate(context.Background(), agentID, second.ID)
	if !pkgerrors.Is(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected limit validation error, got %v", err)
	}
}

func TestService_ActivateIsIdempotent(t *testing.T) {
	repo := newFakeRepository()
	agentID := uuid.New()
	gate := &fakeGate{sub: &models.Subscription{
		AgentID: agentID,
		Plan:    &models.Plan{ProductLimit: 1},
	}}
	svc, _ := NewService(repo, gate)

	product := seedProduct(repo)
	if _, err := svc.Configure(context.Background(), ConfigureInput{AgentID: agentID, ProductID: product.ID}); err != nil {
		t.Fatalf("configure: %v", err)
	}

	ap, err := svc.Activate(context.Background(), agentID, product.ID)
	if err != nil {
		t.Fatalf("first activation: %v", err)
	}
	firstActivatedAt := *ap.ActivatedAt
	time.Sleep(time.Millisecond)

	again, err := svc.Activate(context.Background(), agentID, product.ID)
	if err != nil {
		t.Fatalf("second activation: %v", err)
	}
	if !again.ActivatedAt.Equal(firstActivatedAt) {
		t.Fatal("re-activating an active product must not reset its activation time")
	}
}
