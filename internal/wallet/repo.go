package wallet

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/kwesidadzie/bundlehub-backend/pkg/db/models"
)

// Repository manages persistence for wallets and their ledger entries.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	EnsureWallet(ctx context.Context, agentID uuid.UUID) (*models.Wallet, error)
	FindByAgentID(ctx context.Context, agentID uuid.UUID) (*models.Wallet, error)
	FindByAgentIDForUpdate(ctx context.Context, agentID uuid.UUID) (*models.Wallet, error)
	AddToBalance(ctx context.Context, walletID uuid.UUID, amount decimal.Decimal) error
	DeductIfSufficient(ctx context.Context, walletID uuid.UUID, amount decimal.Decimal) (bool, error)
	SetBalance(ctx context.Context, walletID uuid.UUID, balance decimal.Decimal) error
	CreateTransaction(ctx context.Context, txn *models.WalletTransaction) error
	ListTransactionsByAgent(ctx context.Context, agentID uuid.UUID, limit int) ([]models.WalletTransaction, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a wallet repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) EnsureWallet(ctx context.Context, agentID uuid.UUID) (*models.Wallet, error) {
	wallet := &models.Wallet{AgentID: agentID, BalanceGhs: decimal.Zero}
	if err := r.db.WithContext(ctx).
		Where("agent_id = ?", agentID).
		FirstOrCreate(wallet).Error; err != nil {
		return nil, err
	}
	return wallet, nil
}

func (r *repository) FindByAgentID(ctx context.Context, agentID uuid.UUID) (*models.Wallet, error) {
	var wallet models.Wallet
	if err := r.db.WithContext(ctx).
		Where("agent_id = ?", agentID).
		First(&wallet).Error; err != nil {
		return nil, err
	}
	return &wallet, nil
}

// FindByAgentIDForUpdate takes a row lock on dialects that support it; sqlite
// serializes writers anyway, so the lock clause is skipped there.
func (r *repository) FindByAgentIDForUpdate(ctx context.Context, agentID uuid.UUID) (*models.Wallet, error) {
	query := r.db.WithContext(ctx)
	if r.db.Dialector.Name() == "postgres" {
		query = query.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var wallet models.Wallet
	if err := query.Where("agent_id = ?", agentID).First(&wallet).Error; err != nil {
		return nil, err
	}
	return &wallet, nil
}

// AddToBalance increments the cached balance in the database, never in
// application memory, so concurrent credits serialize at the row.
func (r *repository) AddToBalance(ctx context.Context, walletID uuid.UUID, amount decimal.Decimal) error {
	return r.db.WithContext(ctx).
		Model(&models.Wallet{}).
		Where("id = ?", walletID).
		UpdateColumn("balance_ghs", gorm.Expr("balance_ghs + ?", amount)).Error
}

// DeductIfSufficient decrements the balance only when the result stays
// non-negative; the balance guard lives in the WHERE clause.
func (r *repository) DeductIfSufficient(ctx context.Context, walletID uuid.UUID, amount decimal.Decimal) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Wallet{}).
		Where("id = ? AND balance_ghs >= ?", walletID, amount).
		UpdateColumn("balance_ghs", gorm.Expr("balance_ghs - ?", amount))
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repository) SetBalance(ctx context.Context, walletID uuid.UUID, balance decimal.Decimal) error {
	return r.db.WithContext(ctx).
		Model(&models.Wallet{}).
		Where("id = ?", walletID).
		UpdateColumn("balance_ghs", balance).Error
}

func (r *repository) CreateTransaction(ctx context.Context, txn *models.WalletTransaction) error {
	return r.db.WithContext(ctx).Create(txn).Error
}

func (r *repository) ListTransactionsByAgent(ctx context.Context, agentID uuid.UUID, limit int) ([]models.WalletTransaction, error) {
	var txns []models.WalletTransaction
	query := r.db.WithContext(ctx).
		Where("agent_id = ?", agentID).
		Order("created_at DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&txns).Error; err != nil {
		return nil, err
	}
	return txns, nil
}
