package wallet

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/kwesidadzie/bundlehub-backend/pkg/db/models"
	"github.com/kwesidadzie/bundlehub-backend/pkg/enums"
	pkgerrors "github.com/kwesidadzie/bundlehub-backend/pkg/errors"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// EntryInput captures one ledger mutation. Amount is always positive; Debit
// negates it when writing the transaction row.
type EntryInput struct {
	AgentID   uuid.UUID
	Amount    decimal.Decimal
	Type      enums.WalletTransactionType
	Reference string
	Metadata  json.RawMessage
}

// Service is the append-only wallet ledger. Every balance mutation happens in
// one transaction with its ledger row, through the store's atomic
// increment/decrement, never via read-modify-write in memory.
type Service interface {
	Credit(ctx context.Context, input EntryInput) (*models.WalletTransaction, error)
	Debit(ctx context.Context, input EntryInput) (*models.WalletTransaction, error)
	SetBalance(ctx context.Context, agentID uuid.UUID, balance decimal.Decimal, actor string) (*models.WalletTransaction, error)
	Balance(ctx context.Context, agentID uuid.UUID) (*models.Wallet, error)
	Transactions(ctx context.Context, agentID uuid.UUID, limit int) ([]models.WalletTransaction, error)
}

type service struct {
	repo Repository
	tx   txRunner
}

// NewService wires the wallet ledger with its repository and tx runner.
func NewService(repo Repository, tx txRunner) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("wallet repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	return &service{repo: repo, tx: tx}, nil
}

func (s *service) Credit(ctx context.Context, input EntryInput) (*models.WalletTransaction, error) {
	if input.Amount.LessThanOrEqual(decimal.Zero) {
		return nil, nil
	}
	if err := validateEntry(input); err != nil {
		return nil, err
	}

	var created *models.WalletTransaction
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		wallet, err := repo.EnsureWallet(ctx, input.AgentID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "ensure wallet")
		}
		if err := repo.AddToBalance(ctx, wallet.ID, input.Amount); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "increment balance")
		}
		txn := &models.WalletTransaction{
			WalletID:  wallet.ID,
			AgentID:   input.AgentID,
			Type:      input.Type,
			AmountGhs: input.Amount,
			Reference: input.Reference,
			Metadata:  input.Metadata,
		}
		if err := repo.CreateTransaction(ctx, txn); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "write ledger entry")
		}
		created = txn
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

func (s *service) Debit(ctx context.Context, input EntryInput) (*models.WalletTransaction, error) {
	if input.Amount.LessThanOrEqual(decimal.Zero) {
		return nil, nil
	}
	if err := validateEntry(input); err != nil {
		return nil, err
	}

	var created *models.WalletTransaction
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		wallet, err := repo.EnsureWallet(ctx, input.AgentID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "ensure wallet")
		}
		deducted, err := repo.DeductIfSufficient(ctx, wallet.ID, input.Amount)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decrement balance")
		}
		if !deducted {
			return pkgerrors.New(pkgerrors.CodeInsufficientFunds, "wallet balance too low")
		}
		txn := &models.WalletTransaction{
			WalletID:  wallet.ID,
			AgentID:   input.AgentID,
			Type:      input.Type,
			AmountGhs: input.Amount.Neg(),
			Reference: input.Reference,
			Metadata:  input.Metadata,
		}
		if err := repo.CreateTransaction(ctx, txn); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "write ledger entry")
		}
		created = txn
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// SetBalance is the administrative override: it computes the delta against the
// locked current balance and records it as a reconciling adjustment entry, so
// the ledger-sum invariant survives manual intervention. A zero delta skips
// the ledger write.
func (s *service) SetBalance(ctx context.Context, agentID uuid.UUID, balance decimal.Decimal, actor string) (*models.WalletTransaction, error) {
	if agentID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "agent id required")
	}
	if balance.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "balance cannot be negative")
	}

	var created *models.WalletTransaction
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if _, err := repo.EnsureWallet(ctx, agentID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "ensure wallet")
		}
		wallet, err := repo.FindByAgentIDForUpdate(ctx, agentID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock wallet")
		}
		delta := balance.Sub(wallet.BalanceGhs)
		if delta.IsZero() {
			return nil
		}
		if err := repo.SetBalance(ctx, wallet.ID, balance); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "set balance")
		}
		metadata, _ := json.Marshal(map[string]string{"set_by": actor})
		txn := &models.WalletTransaction{
			WalletID:  wallet.ID,
			AgentID:   agentID,
			Type:      enums.WalletTransactionTypeAdjustment,
			AmountGhs: delta,
			Reference: fmt.Sprintf("adjustment-%s", uuid.NewString()),
			Metadata:  metadata,
		}
		if err := repo.CreateTransaction(ctx, txn); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "write adjustment entry")
		}
		created = txn
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

func (s *service) Balance(ctx context.Context, agentID uuid.UUID) (*models.Wallet, error) {
	if agentID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "agent id required")
	}
	wallet, err := s.repo.FindByAgentID(ctx, agentID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return &models.Wallet{AgentID: agentID, BalanceGhs: decimal.Zero}, nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load wallet")
	}
	return wallet, nil
}

func (s *service) Transactions(ctx context.Context, agentID uuid.UUID, limit int) ([]models.WalletTransaction, error) {
	if agentID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "agent id required")
	}
	return s.repo.ListTransactionsByAgent(ctx, agentID, limit)
}

func validateEntry(input EntryInput) error {
	if input.AgentID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "agent id required")
	}
	if !input.Type.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid wallet transaction type %q", input.Type))
	}
	if input.Reference == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "reference required")
	}
	return nil
}
