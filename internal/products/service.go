package products

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/kwesidadzie/bundlehub-backend/pkg/db/models"
	pkgerrors "github.com/kwesidadzie/bundlehub-backend/pkg/errors"
)

// subscriptionGate is the slice of the subscription service needed to guard
// activations.
type subscriptionGate interface {
	EnsureActive(ctx context.Context, agentID uuid.UUID) (*models.Subscription, error)
}

// ConfigureInput sets an agent's margins for one product. Either markup may be
// zero; negatives are rejected.
type ConfigureInput struct {
	AgentID            uuid.UUID
	ProductID          uuid.UUID
	MarkupGhs          decimal.Decimal
	AffiliateMarkupGhs decimal.Decimal
}

// Service manages the catalog and each agent's resale configuration.
type Service interface {
	Catalog(ctx context.Context, categoryID *uuid.UUID) ([]models.Product, error)
	FindProduct(ctx context.Context, id uuid.UUID) (*models.Product, error)
	ListForAgent(ctx context.Context, agentID uuid.UUID) ([]models.AgentProduct, error)
	// Configure creates or updates the agent's markups for a product without
	// touching its active flag.
	Configure(ctx context.Context, input ConfigureInput) (*models.AgentProduct, error)
	// Activate flips a configured product live. It requires an entitling
	// subscription and room under the plan's product limit.
	Activate(ctx context.Context, agentID, productID uuid.UUID) (*models.AgentProduct, error)
	Deactivate(ctx context.Context, agentID, productID uuid.UUID) error
}

type service struct {
	repo Repository
	gate subscriptionGate
	now  func() time.Time
}

// NewService wires the product catalog service.
func NewService(repo Repository, gate subscriptionGate) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("products repository required")
	}
	if gate == nil {
		return nil, fmt.Errorf("subscription gate required")
	}
	return &service{repo: repo, gate: gate, now: time.Now}, nil
}

func (s *service) Catalog(ctx context.Context, categoryID *uuid.UUID) ([]models.Product, error) {
	return s.repo.ListProducts(ctx, categoryID)
}

func (s *service) FindProduct(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id required")
	}
	product, err := s.repo.FindProduct(ctx, id)
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}
	return product, nil
}

func (s *service) ListForAgent(ctx context.Context, agentID uuid.UUID) ([]models.AgentProduct, error) {
	if agentID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "agent id required")
	}
	return s.repo.ListByAgent(ctx, agentID)
}

func (s *service) Configure(ctx context.Context, input ConfigureInput) (*models.AgentProduct, error) {
	if input.AgentID == uuid.Nil || input.ProductID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "agent and product ids required")
	}
	if input.MarkupGhs.IsNegative() || input.AffiliateMarkupGhs.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "markups cannot be negative")
	}
	if _, err := s.repo.FindProduct(ctx, input.ProductID); err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}

	ap, err := s.repo.FindAgentProduct(ctx, input.AgentID, input.ProductID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load agent product")
	}
	if ap == nil {
		ap = &models.AgentProduct{
			AgentID:            input.AgentID,
			ProductID:          input.ProductID,
			MarkupGhs:          input.MarkupGhs,
			AffiliateMarkupGhs: input.AffiliateMarkupGhs,
		}
		if err := s.repo.CreateAgentProduct(ctx, ap); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create agent product")
		}
		return ap, nil
	}

	ap.MarkupGhs = input.MarkupGhs
	ap.AffiliateMarkupGhs = input.AffiliateMarkupGhs
	if err := s.repo.SaveAgentProduct(ctx, ap); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update agent product")
	}
	return ap, nil
}

func (s *service) Activate(ctx context.Context, agentID, productID uuid.UUID) (*models.AgentProduct, error) {
	if agentID == uuid.Nil || productID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "agent and product ids required")
	}

	sub, err := s.gate.EnsureActive(ctx, agentID)
	if err != nil {
		return nil, err
	}

	ap, err := s.repo.FindAgentProduct(ctx, agentID, productID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load agent product")
	}
	if ap == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "configure the product before activating it")
	}
	if ap.IsActive {
		return ap, nil
	}

	count, err := s.repo.CountActiveByAgent(ctx, agentID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count active products")
	}
	if sub.Plan != nil && count >= int64(sub.Plan.ProductLimit) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation,
			fmt.Sprintf("plan allows at most %d active products", sub.Plan.ProductLimit))
	}

	now := s.now()
	ap.IsActive = true
	ap.ActivatedAt = &now
	if err := s.repo.SaveAgentProduct(ctx, ap); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "activate agent product")
	}
	return ap, nil
}

func (s *service) Deactivate(ctx context.Context, agentID, productID uuid.UUID) error {
	if agentID == uuid.Nil || productID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "agent and product ids required")
	}
	ap, err := s.repo.FindAgentProduct(ctx, agentID, productID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load agent product")
	}
	if ap == nil || !ap.IsActive {
		return nil
	}
	ap.IsActive = false
	if err := s.repo.SaveAgentProduct(ctx, ap); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "deactivate agent product")
	}
	return nil
}
