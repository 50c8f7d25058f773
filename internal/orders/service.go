package orders

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/kwesidadzie/bundlehub-backend/internal/pricing"
	"github.com/kwesidadzie/bundlehub-backend/pkg/db/models"
	"github.com/kwesidadzie/bundlehub-backend/pkg/enums"
	pkgerrors "github.com/kwesidadzie/bundlehub-backend/pkg/errors"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// subscriptionGate guards order placement behind an entitling subscription.
type subscriptionGate interface {
	EnsureActive(ctx context.Context, agentID uuid.UUID) (*models.Subscription, error)
}

// priceResolver resolves the chain-adjusted price for one agent and product.
type priceResolver interface {
	Resolve(ctx context.Context, agentID, productID uuid.UUID) (*pricing.Quote, error)
}

// ItemInput is one requested order line.
type ItemInput struct {
	ProductID uuid.UUID
	Quantity  int
}

// CreateInput describes a new order.
type CreateInput struct {
	AgentID       uuid.UUID
	CustomerPhone string
	Items         []ItemInput
}

// Service creates and reads orders. Pricing always goes through the affiliate
// resolver, so every line satisfies unit = base + markup and the order total
// is the sum of its line totals.
type Service interface {
	Create(ctx context.Context, input CreateInput) (*models.Order, error)
	Find(ctx context.Context, id uuid.UUID) (*models.Order, error)
	FindForAgent(ctx context.Context, agentID, id uuid.UUID) (*models.Order, error)
	ListForAgent(ctx context.Context, agentID uuid.UUID, limit int) ([]models.Order, error)
}

type service struct {
	repo    Repository
	gate    subscriptionGate
	pricing priceResolver
	tx      txRunner
}

// NewService wires the order service.
func NewService(repo Repository, gate subscriptionGate, resolver priceResolver, tx txRunner) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if gate == nil {
		return nil, fmt.Errorf("subscription gate required")
	}
	if resolver == nil {
		return nil, fmt.Errorf("price resolver required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	return &service{repo: repo, gate: gate, pricing: resolver, tx: tx}, nil
}

func (s *service) Create(ctx context.Context, input CreateInput) (*models.Order, error) {
	if input.AgentID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "agent id required")
	}
	if input.CustomerPhone == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "customer phone required")
	}
	if len(input.Items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order needs at least one item")
	}
	for _, item := range input.Items {
		if item.ProductID == uuid.Nil || item.Quantity <= 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "each item needs a product and a positive quantity")
		}
	}

	if _, err := s.gate.EnsureActive(ctx, input.AgentID); err != nil {
		return nil, err
	}

	order := &models.Order{
		AgentID:       input.AgentID,
		CustomerPhone: input.CustomerPhone,
		Status:        enums.OrderStatusCreated,
	}
	total := decimal.Zero
	for _, item := range input.Items {
		quote, err := s.pricing.Resolve(ctx, input.AgentID, item.ProductID)
		if err != nil {
			return nil, err
		}
		lineTotal := quote.UnitPriceGhs.Mul(decimal.NewFromInt(int64(item.Quantity)))
		order.Items = append(order.Items, models.OrderItem{
			ProductID:     item.ProductID,
			BasePriceGhs:  quote.EffectiveBaseGhs,
			MarkupGhs:     quote.MarkupGhs,
			Quantity:      item.Quantity,
			UnitPriceGhs:  quote.UnitPriceGhs,
			TotalPriceGhs: lineTotal,
		})
		total = total.Add(lineTotal)
	}
	order.TotalAmountGhs = total

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).Create(ctx, order); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

func (s *service) Find(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	order, err := s.repo.FindWithItems(ctx, id)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	return order, nil
}

func (s *service) FindForAgent(ctx context.Context, agentID, id uuid.UUID) (*models.Order, error) {
	order, err := s.Find(ctx, id)
	if err != nil {
		return nil, err
	}
	if order.AgentID != agentID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	return order, nil
}

func (s *service) ListForAgent(ctx context.Context, agentID uuid.UUID, limit int) ([]models.Order, error) {
	if agentID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "agent id required")
	}
	return s.repo.ListByAgent(ctx, agentID, limit)
}
