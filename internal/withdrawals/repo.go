package withdrawals

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/kwesidadzie/bundlehub-backend/pkg/db/models"
	"github.com/kwesidadzie/bundlehub-backend/pkg/enums"
)

// Repository manages withdrawal persistence.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, withdrawal *models.Withdrawal) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Withdrawal, error)
	ListByAgent(ctx context.Context, agentID uuid.UUID) ([]models.Withdrawal, error)
	ListByStatus(ctx context.Context, status enums.WithdrawalStatus) ([]models.Withdrawal, error)
	// Transition moves the withdrawal between statuses with a guard on the
	// current status, reporting whether the row actually moved.
	Transition(ctx context.Context, id uuid.UUID, from, to enums.WithdrawalStatus, note *string, at time.Time) (bool, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a withdrawal repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, withdrawal *models.Withdrawal) error {
	return r.db.WithContext(ctx).Create(withdrawal).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Withdrawal, error) {
	var withdrawal models.Withdrawal
	if err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&withdrawal).Error; err != nil {
		return nil, err
	}
	return &withdrawal, nil
}

func (r *repository) ListByAgent(ctx context.Context, agentID uuid.UUID) ([]models.Withdrawal, error) {
	var out []models.Withdrawal
	if err := r.db.WithContext(ctx).
		Where("agent_id = ?", agentID).
		Order("created_at DESC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *repository) ListByStatus(ctx context.Context, status enums.WithdrawalStatus) ([]models.Withdrawal, error) {
	var out []models.Withdrawal
	if err := r.db.WithContext(ctx).
		Where("status = ?", status).
		Order("created_at ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *repository) Transition(ctx context.Context, id uuid.UUID, from, to enums.WithdrawalStatus, note *string, at time.Time) (bool, error) {
	updates := map[string]any{
		"status":      to,
		"resolved_at": at,
	}
	if note != nil {
		updates["note"] = *note
	}
	result := r.db.WithContext(ctx).
		Model(&models.Withdrawal{}).
		Where("id = ? AND status = ?", id, from).
		Updates(updates)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}
