package referrals

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/kwesidadzie/bundlehub-backend/pkg/db/models"
)

// Repository manages persistence for referral edges.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreateEdges(ctx context.Context, edges []models.Referral) error
	ListByChildID(ctx context.Context, childID uuid.UUID) ([]models.Referral, error)
	FindDirectParent(ctx context.Context, childID uuid.UUID) (*models.Referral, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a referral repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) CreateEdges(ctx context.Context, edges []models.Referral) error {
	if len(edges) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&edges).Error
}

func (r *repository) ListByChildID(ctx context.Context, childID uuid.UUID) ([]models.Referral, error) {
	var edges []models.Referral
	if err := r.db.WithContext(ctx).
		Where("child_id = ?", childID).
		Order("level ASC").
		Find(&edges).Error; err != nil {
		return nil, err
	}
	return edges, nil
}

func (r *repository) FindDirectParent(ctx context.Context, childID uuid.UUID) (*models.Referral, error) {
	var edge models.Referral
	err := r.db.WithContext(ctx).
		Where("child_id = ? AND level = 1", childID).
		First(&edge).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &edge, nil
}
