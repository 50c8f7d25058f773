package pricing

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/kwesidadzie/bundlehub-backend/pkg/db/models"
	pkgerrors "github.com/kwesidadzie/bundlehub-backend/pkg/errors"
)

// ancestorWalker yields the full recruiter chain for an agent, nearest first.
type ancestorWalker interface {
	AncestorChain(ctx context.Context, agentID uuid.UUID) ([]uuid.UUID, error)
}

// catalogSource is the slice of the product repository pricing reads from.
type catalogSource interface {
	FindProduct(ctx context.Context, id uuid.UUID) (*models.Product, error)
	FindAgentProduct(ctx context.Context, agentID, productID uuid.UUID) (*models.AgentProduct, error)
}

// Quote is the resolved price breakdown for one agent and product.
type Quote struct {
	ProductID        uuid.UUID
	EffectiveBaseGhs decimal.Decimal
	MarkupGhs        decimal.Decimal
	UnitPriceGhs     decimal.Decimal
}

// Service resolves effective prices through the referral chain. Each ancestor
// layers its affiliate markup for the product onto the platform base price; an
// ancestor with no configuration for the product contributes zero.
type Service interface {
	EffectiveBasePrice(ctx context.Context, agentID, productID uuid.UUID) (decimal.Decimal, error)
	Resolve(ctx context.Context, agentID, productID uuid.UUID) (*Quote, error)
}

type service struct {
	referrals ancestorWalker
	catalog   catalogSource
}

// NewService wires the pricing resolver.
func NewService(referrals ancestorWalker, catalog catalogSource) (Service, error) {
	if referrals == nil {
		return nil, fmt.Errorf("referral walker required")
	}
	if catalog == nil {
		return nil, fmt.Errorf("catalog source required")
	}
	return &service{referrals: referrals, catalog: catalog}, nil
}

func (s *service) EffectiveBasePrice(ctx context.Context, agentID, productID uuid.UUID) (decimal.Decimal, error) {
	if agentID == uuid.Nil || productID == uuid.Nil {
		return decimal.Zero, pkgerrors.New(pkgerrors.CodeValidation, "agent and product ids required")
	}

	product, err := s.catalog.FindProduct(ctx, productID)
	if err != nil {
		return decimal.Zero, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}

	chain, err := s.referrals.AncestorChain(ctx, agentID)
	if err != nil {
		return decimal.Zero, err
	}

	price := product.BasePriceGhs
	for _, ancestorID := range chain {
		ap, err := s.catalog.FindAgentProduct(ctx, ancestorID, productID)
		if err != nil {
			return decimal.Zero, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load ancestor markup")
		}
		if ap == nil {
			continue
		}
		price = price.Add(ap.AffiliateMarkupGhs)
	}
	return price, nil
}

// Resolve returns the full breakdown: the chain-adjusted base, the agent's own
// storefront markup, and the resulting unit price.
func (s *service) Resolve(ctx context.Context, agentID, productID uuid.UUID) (*Quote, error) {
	base, err := s.EffectiveBasePrice(ctx, agentID, productID)
	if err != nil {
		return nil, err
	}

	markup := decimal.Zero
	ap, err := s.catalog.FindAgentProduct(ctx, agentID, productID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load agent markup")
	}
	if ap != nil {
		markup = ap.MarkupGhs
	}

	return &Quote{
		ProductID:        productID,
		EffectiveBaseGhs: base,
		MarkupGhs:        markup,
		UnitPriceGhs:     base.Add(markup),
	}, nil
}
