package products

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/kwesidadzie/bundlehub-backend/pkg/db/models"
)

// Repository manages the bundle catalog and per-agent resale configuration.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindProduct(ctx context.Context, id uuid.UUID) (*models.Product, error)
	ListProducts(ctx context.Context, categoryID *uuid.UUID) ([]models.Product, error)
	FindAgentProduct(ctx context.Context, agentID, productID uuid.UUID) (*models.AgentProduct, error)
	CreateAgentProduct(ctx context.Context, ap *models.AgentProduct) error
	SaveAgentProduct(ctx context.Context, ap *models.AgentProduct) error
	ListByAgent(ctx context.Context, agentID uuid.UUID) ([]models.AgentProduct, error)
	ListActiveByAgent(ctx context.Context, agentID uuid.UUID) ([]models.AgentProduct, error)
	CountActiveByAgent(ctx context.Context, agentID uuid.UUID) (int64, error)
	DeactivateByIDs(ctx context.Context, ids []uuid.UUID) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a product repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindProduct(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	if err := r.db.WithContext(ctx).
		Preload("Category").
		Where("id = ?", id).
		First(&product).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *repository) ListProducts(ctx context.Context, categoryID *uuid.UUID) ([]models.Product, error) {
	query := r.db.WithContext(ctx).Preload("Category").Order("created_at ASC")
	if categoryID != nil {
		query = query.Where("category_id = ?", *categoryID)
	}
	var products []models.Product
	if err := query.Find(&products).Error; err != nil {
		return nil, err
	}
	return products, nil
}

func (r *repository) FindAgentProduct(ctx context.Context, agentID, productID uuid.UUID) (*models.AgentProduct, error) {
	var ap models.AgentProduct
	err := r.db.WithContext(ctx).
		Where("agent_id = ? AND product_id = ?", agentID, productID).
		First(&ap).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &ap, nil
}

func (r *repository) CreateAgentProduct(ctx context.Context, ap *models.AgentProduct) error {
	return r.db.WithContext(ctx).Create(ap).Error
}

func (r *repository) SaveAgentProduct(ctx context.Context, ap *models.AgentProduct) error {
	return r.db.WithContext(ctx).Save(ap).Error
}

func (r *repository) ListByAgent(ctx context.Context, agentID uuid.UUID) ([]models.AgentProduct, error) {
	var aps []models.AgentProduct
	if err := r.db.WithContext(ctx).
		Preload("Product").
		Where("agent_id = ?", agentID).
		Order("created_at ASC").
		Find(&aps).Error; err != nil {
		return nil, err
	}
	return aps, nil
}

// ListActiveByAgent orders rows oldest activation first so limit enforcement
// trims deterministically from the newest end.
func (r *repository) ListActiveByAgent(ctx context.Context, agentID uuid.UUID) ([]models.AgentProduct, error) {
	var aps []models.AgentProduct
	if err := r.db.WithContext(ctx).
		Where("agent_id = ? AND is_active = ?", agentID, true).
		Order("activated_at ASC, created_at ASC").
		Find(&aps).Error; err != nil {
		return nil, err
	}
	return aps, nil
}

func (r *repository) CountActiveByAgent(ctx context.Context, agentID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.AgentProduct{}).
		Where("agent_id = ? AND is_active = ?", agentID, true).
		Count(&count).Error
	return count, err
}

func (r *repository) DeactivateByIDs(ctx context.Context, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Model(&models.AgentProduct{}).
		Where("id IN ?", ids).
		Updates(map[string]any{"is_active": false, "updated_at": time.Now()}).Error
}
