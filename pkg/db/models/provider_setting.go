package models

import (
	"time"

	"github.com/kwesidadzie/bundlehub-backend/pkg/enums"
)

// ProviderSetting persists the admin routing override. A single row keyed by
// a fixed id; a nil override means the time schedule decides.
type ProviderSetting struct {
	ID        int             `gorm:"column:id;primaryKey"`
	Override  *enums.Provider `gorm:"column:override;type:text"`
	UpdatedBy *string         `gorm:"column:updated_by"`
	UpdatedAt time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

// ProviderSettingID is the id of the singleton provider settings row.
const ProviderSettingID = 1
