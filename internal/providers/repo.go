package providers

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/kwesidadzie/bundlehub-backend/pkg/db/models"
	"github.com/kwesidadzie/bundlehub-backend/pkg/enums"
)

// SettingsRepository persists the singleton routing override row.
type SettingsRepository interface {
	Find(ctx context.Context) (*models.ProviderSetting, error)
	SaveOverride(ctx context.Context, override *enums.Provider, updatedBy string) error
}

type settingsRepository struct {
	db *gorm.DB
}

// NewSettingsRepository returns a settings repository bound to the database.
func NewSettingsRepository(db *gorm.DB) SettingsRepository {
	return &settingsRepository{db: db}
}

func (r *settingsRepository) Find(ctx context.Context) (*models.ProviderSetting, error) {
	var setting models.ProviderSetting
	err := r.db.WithContext(ctx).
		Where("id = ?", models.ProviderSettingID).
		First(&setting).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return &models.ProviderSetting{ID: models.ProviderSettingID}, nil
		}
		return nil, err
	}
	return &setting, nil
}

func (r *settingsRepository) SaveOverride(ctx context.Context, override *enums.Provider, updatedBy string) error {
	setting := models.ProviderSetting{
		ID:        models.ProviderSettingID,
		Override:  override,
		UpdatedBy: &updatedBy,
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"override", "updated_by", "updated_at"}),
		}).
		Create(&setting).Error
}
