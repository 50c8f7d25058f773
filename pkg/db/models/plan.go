package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/kwesidadzie/bundlehub-backend/pkg/enums"
)

// Plan is a subscription tier. ProductLimit bounds the number of concurrently
// active AgentProduct rows an agent on the plan may hold.
type Plan struct {
	ID           uuid.UUID        `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name         string           `gorm:"column:name;not null;uniqueIndex"`
	PriceGhs     decimal.Decimal  `gorm:"column:price_ghs;type:numeric(12,2);not null"`
	ProductLimit int              `gorm:"column:product_limit;not null"`
	Status       enums.PlanStatus `gorm:"column:status;type:text;not null;default:'active'"`
	Features     pq.StringArray   `gorm:"column:features;type:text[];default:ARRAY[]::text[]"`
	CreatedAt    time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}
