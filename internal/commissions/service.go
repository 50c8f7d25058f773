package commissions

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/multierr"

	"github.com/kwesidadzie/bundlehub-backend/internal/wallet"
	"github.com/kwesidadzie/bundlehub-backend/pkg/config"
	"github.com/kwesidadzie/bundlehub-backend/pkg/db/models"
	pkgerrors "github.com/kwesidadzie/bundlehub-backend/pkg/errors"
	"github.com/kwesidadzie/bundlehub-backend/pkg/enums"
	"github.com/kwesidadzie/bundlehub-backend/pkg/logger"
)

// ancestorSource yields the commission-eligible referral edges for an agent,
// level ascending.
type ancestorSource interface {
	Ancestors(ctx context.Context, childID uuid.UUID) ([]models.Referral, error)
}

// crediter is the slice of the wallet ledger the cascade writes through.
type crediter interface {
	Credit(ctx context.Context, input wallet.EntryInput) (*models.WalletTransaction, error)
}

// Service pays referral commissions up the materialized ancestor edges.
type Service interface {
	// Cascade credits each ancestor its level rate of the order total. Each
	// credit is independent: one failed payout never blocks the others, and
	// the combined error carries every failure.
	Cascade(ctx context.Context, sourceAgentID, orderID uuid.UUID, orderTotal decimal.Decimal) error
}

type service struct {
	referrals ancestorSource
	wallets   crediter
	rates     config.CommissionsConfig
	logg      *logger.Logger
}

// NewService wires the commission cascade.
func NewService(referrals ancestorSource, wallets crediter, rates config.CommissionsConfig, logg *logger.Logger) (Service, error) {
	if referrals == nil {
		return nil, fmt.Errorf("ancestor source required")
	}
	if wallets == nil {
		return nil, fmt.Errorf("wallet crediter required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{referrals: referrals, wallets: wallets, rates: rates, logg: logg}, nil
}

func (s *service) Cascade(ctx context.Context, sourceAgentID, orderID uuid.UUID, orderTotal decimal.Decimal) error {
	if sourceAgentID == uuid.Nil || orderID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "source agent and order ids required")
	}
	if orderTotal.LessThanOrEqual(decimal.Zero) {
		return nil
	}

	edges, err := s.referrals.Ancestors(ctx, sourceAgentID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load commission ancestors")
	}

	var combined error
	for _, edge := range edges {
		rate := s.rates.RateForLevel(edge.Level)
		amount := orderTotal.Mul(rate).Round(2)
		if amount.LessThanOrEqual(decimal.Zero) {
			continue
		}

		metadata, _ := json.Marshal(map[string]any{
			"order_id":        orderID.String(),
			"source_agent_id": sourceAgentID.String(),
			"level":           edge.Level,
			"rate":            rate.String(),
		})
		_, err := s.wallets.Credit(ctx, wallet.EntryInput{
			AgentID:   edge.ParentID,
			Amount:    amount,
			Type:      enums.WalletTransactionTypeCommission,
			Reference: fmt.Sprintf("commission-%s-l%d", orderID, edge.Level),
			Metadata:  metadata,
		})
		if err != nil {
			lctx := s.logg.WithFields(ctx, map[string]any{
				"order_id":  orderID.String(),
				"parent_id": edge.ParentID.String(),
				"level":     edge.Level,
			})
			s.logg.Error(lctx, "commission payout failed", err)
			combined = multierr.Append(combined, err)
		}
	}
	return combined
}
