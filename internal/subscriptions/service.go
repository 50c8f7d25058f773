package subscriptions

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/kwesidadzie/bundlehub-backend/pkg/config"
	"github.com/kwesidadzie/bundlehub-backend/pkg/db/models"
	"github.com/kwesidadzie/bundlehub-backend/pkg/enums"
	pkgerrors "github.com/kwesidadzie/bundlehub-backend/pkg/errors"
	"github.com/kwesidadzie/bundlehub-backend/pkg/logger"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// ProductStore is the slice of the agent-product catalog the gate needs for
// limit enforcement. Rows are ordered by activation time so enforcement is
// deterministic: the oldest activations survive, the newest are dropped.
type ProductStore interface {
	ListActiveByAgent(ctx context.Context, tx *gorm.DB, agentID uuid.UUID) ([]models.AgentProduct, error)
	DeactivateByIDs(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) error
}

// Service derives subscription state lazily from timestamps. No background job
// flips statuses; every read re-derives and syncs stale stored values.
type Service interface {
	// Current returns the agent's entitling subscription with its freshly
	// derived status, or nil when no subscription entitles the agent.
	Current(ctx context.Context, agentID uuid.UUID) (*models.Subscription, error)
	// EnsureActive fails with a payment-required error unless the agent holds
	// an ACTIVE or GRACE subscription right now.
	EnsureActive(ctx context.Context, agentID uuid.UUID) (*models.Subscription, error)
	// Activate grants the plan to the agent, superseding any entitling
	// subscription, then re-applies the new plan's product limit.
	Activate(ctx context.Context, agentID, planID uuid.UUID) (*models.Subscription, error)
	// EnforceProductLimit deactivates agent products beyond the current plan's
	// limit, or all of them when nothing entitles the agent.
	EnforceProductLimit(ctx context.Context, agentID uuid.UUID) error
	Plans(ctx context.Context) ([]models.Plan, error)
	FindPlan(ctx context.Context, planID uuid.UUID) (*models.Plan, error)
}

type service struct {
	repo     Repository
	products ProductStore
	tx       txRunner
	cfg      config.SubscriptionsConfig
	logg     *logger.Logger
	now      func() time.Time
}

// ServiceParams bundles the gate's dependencies.
type ServiceParams struct {
	Repo     Repository
	Products ProductStore
	Tx       txRunner
	Config   config.SubscriptionsConfig
	Logger   *logger.Logger
	Now      func() time.Time
}

// NewService wires the subscription gate.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("subscriptions repository required")
	}
	if params.Products == nil {
		return nil, fmt.Errorf("product store required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &service{
		repo:     params.Repo,
		products: params.Products,
		tx:       params.Tx,
		cfg:      params.Config,
		logg:     params.Logger,
		now:      now,
	}, nil
}

func (s *service) Current(ctx context.Context, agentID uuid.UUID) (*models.Subscription, error) {
	if agentID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "agent id required")
	}

	sub, err := s.repo.FindCurrent(ctx, agentID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load subscription")
	}
	if sub == nil {
		return nil, nil
	}

	derived := deriveStatus(sub, s.now())
	if derived != sub.Status {
		// Opportunistic sync; a failed write never blocks the read path.
		if err := s.repo.UpdateStatus(ctx, sub.ID, derived); err != nil {
			lctx := s.logg.WithField(ctx, "subscription_id", sub.ID.String())
			s.logg.Warn(lctx, "failed to sync derived subscription status")
		}
		sub.Status = derived
	}
	if !sub.Status.Entitles() {
		return nil, nil
	}
	return sub, nil
}

func (s *service) EnsureActive(ctx context.Context, agentID uuid.UUID) (*models.Subscription, error) {
	sub, err := s.Current(ctx, agentID)
	if err != nil {
		return nil, err
	}
	if sub == nil {
		return nil, pkgerrors.New(pkgerrors.CodeSubscriptionRequired, "an active subscription is required")
	}
	return sub, nil
}

func (s *service) Activate(ctx context.Context, agentID, planID uuid.UUID) (*models.Subscription, error) {
	if agentID == uuid.Nil || planID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "agent and plan ids required")
	}

	plan, err := s.repo.FindPlan(ctx, planID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "plan not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load plan")
	}
	if plan.Status != enums.PlanStatusActive {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "plan is not available")
	}

	now := s.now()
	expiresAt := now.AddDate(0, 0, s.cfg.DurationDays)
	sub := &models.Subscription{
		AgentID:     agentID,
		PlanID:      planID,
		Status:      enums.SubscriptionStatusActive,
		StartsAt:    now,
		ExpiresAt:   expiresAt,
		GraceEndsAt: expiresAt.AddDate(0, 0, s.cfg.GraceDays),
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		existing, err := repo.ListEntitled(ctx, agentID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list entitled subscriptions")
		}
		for _, prev := range existing {
			if err := repo.UpdateStatus(ctx, prev.ID, enums.SubscriptionStatusCanceled); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "cancel superseded subscription")
			}
		}

		if err := repo.Create(ctx, sub); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create subscription")
		}
		return s.enforceLimit(ctx, tx, agentID, plan)
	})
	if err != nil {
		return nil, err
	}
	sub.Plan = plan
	return sub, nil
}

func (s *service) Plans(ctx context.Context) ([]models.Plan, error) {
	plans, err := s.repo.ListPlans(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list plans")
	}
	return plans, nil
}

func (s *service) FindPlan(ctx context.Context, planID uuid.UUID) (*models.Plan, error) {
	if planID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "plan id required")
	}
	plan, err := s.repo.FindPlan(ctx, planID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "plan not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load plan")
	}
	return plan, nil
}

func (s *service) EnforceProductLimit(ctx context.Context, agentID uuid.UUID) error {
	if agentID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "agent id required")
	}

	sub, err := s.Current(ctx, agentID)
	if err != nil {
		return err
	}
	var plan *models.Plan
	if sub != nil {
		plan = sub.Plan
	}
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		return s.enforceLimit(ctx, tx, agentID, plan)
	})
}

// enforceLimit trims active products down to the plan limit. With no entitling
// plan everything is deactivated. Rows arrive ordered oldest activation first,
// so the trim always removes the most recently activated rows.
func (s *service) enforceLimit(ctx context.Context, tx *gorm.DB, agentID uuid.UUID, plan *models.Plan) error {
	active, err := s.products.ListActiveByAgent(ctx, tx, agentID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list active products")
	}

	limit := 0
	if plan != nil {
		limit = plan.ProductLimit
	}
	if len(active) <= limit {
		return nil
	}

	excess := make([]uuid.UUID, 0, len(active)-limit)
	for _, ap := range active[limit:] {
		excess = append(excess, ap.ID)
	}
	if err := s.products.DeactivateByIDs(ctx, tx, excess); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "deactivate excess products")
	}
	lctx := s.logg.WithFields(ctx, map[string]any{
		"agent_id":    agentID.String(),
		"deactivated": len(excess),
		"limit":       limit,
	})
	s.logg.Info(lctx, "enforced product limit")
	return nil
}

// deriveStatus maps the timestamps onto the lifecycle. Canceled is sticky and
// never re-derived.
func deriveStatus(sub *models.Subscription, now time.Time) enums.SubscriptionStatus {
	if sub.Status == enums.SubscriptionStatusCanceled {
		return enums.SubscriptionStatusCanceled
	}
	switch {
	case now.Before(sub.ExpiresAt):
		return enums.SubscriptionStatusActive
	case now.Before(sub.GraceEndsAt):
		return enums.SubscriptionStatusGrace
	default:
		return enums.SubscriptionStatusExpired
	}
}
