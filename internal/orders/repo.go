package orders

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/kwesidadzie/bundlehub-backend/pkg/db/models"
	"github.com/kwesidadzie/bundlehub-backend/pkg/enums"
)

// Repository manages order persistence, including the dispatch bookkeeping
// used by the dispatcher and the reconciliation worker.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, order *models.Order) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	FindWithItems(ctx context.Context, id uuid.UUID) (*models.Order, error)
	ListByAgent(ctx context.Context, agentID uuid.UUID, limit int) ([]models.Order, error)
	// MarkPaid transitions created to paid exactly once and stamps the payment
	// reference; the status guard makes the transition race-safe.
	MarkPaid(ctx context.Context, id uuid.UUID, paymentRef string) (bool, error)
	// ClaimProviderReference writes the upstream reference only when none is
	// set yet; a false return means another dispatch already claimed it.
	ClaimProviderReference(ctx context.Context, orderID uuid.UUID, provider enums.Provider, reference string, status enums.ProviderStatus, response string) (bool, error)
	UpdateProviderStatus(ctx context.Context, orderID uuid.UUID, status enums.ProviderStatus, response *string, checkedAt time.Time) error
	// RecordDispatchError stamps a failed upstream submission on the order.
	// The reference stays unset, so the order remains dispatchable and the
	// reconciliation loop retries it.
	RecordDispatchError(ctx context.Context, orderID uuid.UUID, response string, checkedAt time.Time) error
	// MarkDispatchFailed permanently removes the order from the dispatch pool;
	// used when the order can never be submitted as-is.
	MarkDispatchFailed(ctx context.Context, orderID uuid.UUID, reason string) error
	AdvanceToFulfilled(ctx context.Context, orderID uuid.UUID) error
	// ListDispatchable returns paid orders with no upstream reference and no
	// permanent dispatch failure, oldest first. Orders whose last submission
	// failed upstream stay in the pool for retry.
	ListDispatchable(ctx context.Context, limit int) ([]models.Order, error)
	// ListForStatusRefresh returns dispatched, non-terminal orders whose last
	// poll is older than the throttle window, least recently checked first.
	ListForStatusRefresh(ctx context.Context, olderThan time.Time, limit int) ([]models.Order, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns an order repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, order *models.Order) error {
	return r.db.WithContext(ctx).Create(order).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	if err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&order).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) FindWithItems(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	if err := r.db.WithContext(ctx).
		Preload("Items").
		Preload("Items.Product").
		Preload("Items.Product.Category").
		Where("id = ?", id).
		First(&order).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) ListByAgent(ctx context.Context, agentID uuid.UUID, limit int) ([]models.Order, error) {
	query := r.db.WithContext(ctx).
		Preload("Items").
		Where("agent_id = ?", agentID).
		Order("created_at DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	var out []models.Order
	if err := query.Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *repository) MarkPaid(ctx context.Context, id uuid.UUID, paymentRef string) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ? AND status = ?", id, enums.OrderStatusCreated).
		Updates(map[string]any{
			"status":      enums.OrderStatusPaid,
			"payment_ref": paymentRef,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repository) ClaimProviderReference(ctx context.Context, orderID uuid.UUID, provider enums.Provider, reference string, status enums.ProviderStatus, response string) (bool, error) {
	now := time.Now()
	result := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ? AND provider_reference IS NULL", orderID).
		Updates(map[string]any{
			"provider_key":             provider,
			"provider_reference":       reference,
			"provider_status":          status,
			"provider_response":        response,
			"provider_last_checked_at": now,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repository) UpdateProviderStatus(ctx context.Context, orderID uuid.UUID, status enums.ProviderStatus, response *string, checkedAt time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ?", orderID).
		Updates(map[string]any{
			"provider_status":          status,
			"provider_response":        response,
			"provider_last_checked_at": checkedAt,
		}).Error
}

func (r *repository) RecordDispatchError(ctx context.Context, orderID uuid.UUID, response string, checkedAt time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ? AND provider_reference IS NULL", orderID).
		Updates(map[string]any{
			"provider_status":          enums.ProviderStatusFailed,
			"provider_response":        response,
			"provider_last_checked_at": checkedAt,
		}).Error
}

func (r *repository) MarkDispatchFailed(ctx context.Context, orderID uuid.UUID, reason string) error {
	return r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ?", orderID).
		Updates(map[string]any{
			"provider_status":   enums.ProviderStatusCanceled,
			"provider_response": reason,
		}).Error
}

func (r *repository) AdvanceToFulfilled(ctx context.Context, orderID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ? AND status = ?", orderID, enums.OrderStatusPaid).
		Update("status", enums.OrderStatusFulfilled).Error
}

func (r *repository) ListDispatchable(ctx context.Context, limit int) ([]models.Order, error) {
	var out []models.Order
	query := r.db.WithContext(ctx).
		Where("status = ? AND provider_reference IS NULL", enums.OrderStatusPaid).
		Where("provider_status IS NULL OR provider_status <> ?", enums.ProviderStatusCanceled).
		Order("created_at ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *repository) ListForStatusRefresh(ctx context.Context, olderThan time.Time, limit int) ([]models.Order, error) {
	var out []models.Order
	query := r.db.WithContext(ctx).
		Where("provider_reference IS NOT NULL").
		Where("provider_status NOT IN ?", []enums.ProviderStatus{
			enums.ProviderStatusDelivered,
			enums.ProviderStatusFailed,
			enums.ProviderStatusCanceled,
		}).
		Where("provider_last_checked_at IS NULL OR provider_last_checked_at < ?", olderThan).
		Order("provider_last_checked_at ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
