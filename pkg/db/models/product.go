package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Product is a sellable data bundle. Size is the human-readable capacity
// ("5GB"); the dispatcher derives the numeric capacity from it.
type Product struct {
	ID           uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	CategoryID   uuid.UUID       `gorm:"column:category_id;type:uuid;not null;index"`
	Name         string          `gorm:"column:name;not null"`
	Size         string          `gorm:"column:size;not null"`
	BasePriceGhs decimal.Decimal `gorm:"column:base_price_ghs;type:numeric(12,2);not null"`
	IsActive     bool            `gorm:"column:is_active;not null;default:true"`
	Category     *Category       `gorm:"foreignKey:CategoryID"`
	CreatedAt    time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}
