package withdrawals

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/kwesidadzie/bundlehub-backend/internal/wallet"
	"github.com/kwesidadzie/bundlehub-backend/pkg/db/models"
	"github.com/kwesidadzie/bundlehub-backend/pkg/enums"
	pkgerrors "github.com/kwesidadzie/bundlehub-backend/pkg/errors"
	"github.com/kwesidadzie/bundlehub-backend/pkg/logger"
)

// ledger is the slice of the wallet service withdrawals move money through.
type ledger interface {
	Debit(ctx context.Context, input wallet.EntryInput) (*models.WalletTransaction, error)
	Credit(ctx context.Context, input wallet.EntryInput) (*models.WalletTransaction, error)
}

// Service handles payout requests. The amount leaves the wallet when the
// request is created; rejection puts it back through a reversal entry.
type Service interface {
	Request(ctx context.Context, agentID uuid.UUID, amount decimal.Decimal) (*models.Withdrawal, error)
	Approve(ctx context.Context, id uuid.UUID, note *string) (*models.Withdrawal, error)
	Reject(ctx context.Context, id uuid.UUID, note *string) (*models.Withdrawal, error)
	MarkPaid(ctx context.Context, id uuid.UUID) (*models.Withdrawal, error)
	ListForAgent(ctx context.Context, agentID uuid.UUID) ([]models.Withdrawal, error)
	ListPending(ctx context.Context) ([]models.Withdrawal, error)
}

type service struct {
	repo    Repository
	wallets ledger
	logg    *logger.Logger
	now     func() time.Time
}

// NewService wires the withdrawal service.
func NewService(repo Repository, wallets ledger, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("withdrawals repository required")
	}
	if wallets == nil {
		return nil, fmt.Errorf("wallet ledger required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{repo: repo, wallets: wallets, logg: logg, now: time.Now}, nil
}

func (s *service) Request(ctx context.Context, agentID uuid.UUID, amount decimal.Decimal) (*models.Withdrawal, error) {
	if agentID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "agent id required")
	}
	if amount.LessThanOrEqual(decimal.Zero) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "amount must be positive")
	}

	withdrawal := &models.Withdrawal{
		ID:        uuid.New(),
		AgentID:   agentID,
		AmountGhs: amount,
		Status:    enums.WithdrawalStatusPending,
	}

	// Pre-debit: an insufficient balance rejects the request before any row
	// is written.
	metadata, _ := json.Marshal(map[string]string{"withdrawal_id": withdrawal.ID.String()})
	if _, err := s.wallets.Debit(ctx, wallet.EntryInput{
		AgentID:   agentID,
		Amount:    amount,
		Type:      enums.WalletTransactionTypeWithdrawal,
		Reference: fmt.Sprintf("withdrawal-%s", withdrawal.ID),
		Metadata:  metadata,
	}); err != nil {
		return nil, err
	}

	if err := s.repo.Create(ctx, withdrawal); err != nil {
		// The debit landed but the request row did not; put the money back.
		if _, refundErr := s.wallets.Credit(ctx, wallet.EntryInput{
			AgentID:   agentID,
			Amount:    amount,
			Type:      enums.WalletTransactionTypeReversal,
			Reference: fmt.Sprintf("reversal-%s", withdrawal.ID),
			Metadata:  metadata,
		}); refundErr != nil {
			lctx := s.logg.WithAgentID(ctx, agentID.String())
			s.logg.Error(lctx, "failed to reverse orphaned withdrawal debit", refundErr)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create withdrawal")
	}
	return withdrawal, nil
}

func (s *service) Approve(ctx context.Context, id uuid.UUID, note *string) (*models.Withdrawal, error) {
	return s.transition(ctx, id, enums.WithdrawalStatusPending, enums.WithdrawalStatusApproved, note, nil)
}

func (s *service) Reject(ctx context.Context, id uuid.UUID, note *string) (*models.Withdrawal, error) {
	refund := func(ctx context.Context, withdrawal *models.Withdrawal) error {
		metadata, _ := json.Marshal(map[string]string{"withdrawal_id": withdrawal.ID.String()})
		_, err := s.wallets.Credit(ctx, wallet.EntryInput{
			AgentID:   withdrawal.AgentID,
			Amount:    withdrawal.AmountGhs,
			Type:      enums.WalletTransactionTypeReversal,
			Reference: fmt.Sprintf("reversal-%s", withdrawal.ID),
			Metadata:  metadata,
		})
		return err
	}
	return s.transition(ctx, id, enums.WithdrawalStatusPending, enums.WithdrawalStatusRejected, note, refund)
}

func (s *service) MarkPaid(ctx context.Context, id uuid.UUID) (*models.Withdrawal, error) {
	return s.transition(ctx, id, enums.WithdrawalStatusApproved, enums.WithdrawalStatusPaid, nil, nil)
}

func (s *service) transition(ctx context.Context, id uuid.UUID, from, to enums.WithdrawalStatus, note *string, after func(context.Context, *models.Withdrawal) error) (*models.Withdrawal, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "withdrawal id required")
	}
	withdrawal, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "withdrawal not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load withdrawal")
	}

	moved, err := s.repo.Transition(ctx, id, from, to, note, s.now())
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "transition withdrawal")
	}
	if !moved {
		return nil, pkgerrors.New(pkgerrors.CodeConflict,
			fmt.Sprintf("withdrawal is not %s", from))
	}

	withdrawal.Status = to
	if note != nil {
		withdrawal.Note = note
	}
	if after != nil {
		if err := after(ctx, withdrawal); err != nil {
			return nil, err
		}
	}
	return withdrawal, nil
}

func (s *service) ListForAgent(ctx context.Context, agentID uuid.UUID) ([]models.Withdrawal, error) {
	if agentID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "agent id required")
	}
	return s.repo.ListByAgent(ctx, agentID)
}

func (s *service) ListPending(ctx context.Context) ([]models.Withdrawal, error) {
	return s.repo.ListByStatus(ctx, enums.WithdrawalStatusPending)
}
