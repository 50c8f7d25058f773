package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AgentProduct is an agent's resale configuration for one product. MarkupGhs
// is the agent's own storefront margin; AffiliateMarkupGhs is layered onto the
// base price seen by the agent's direct recruits. ActivatedAt orders rows for
// deterministic limit enforcement.
type AgentProduct struct {
	ID                 uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	AgentID            uuid.UUID       `gorm:"column:agent_id;type:uuid;not null;index;uniqueIndex:uq_agent_products,priority:1"`
	ProductID          uuid.UUID       `gorm:"column:product_id;type:uuid;not null;uniqueIndex:uq_agent_products,priority:2"`
	MarkupGhs          decimal.Decimal `gorm:"column:markup_ghs;type:numeric(12,2);not null;default:0"`
	AffiliateMarkupGhs decimal.Decimal `gorm:"column:affiliate_markup_ghs;type:numeric(12,2);not null;default:0"`
	IsActive           bool            `gorm:"column:is_active;not null;default:false"`
	ActivatedAt        *time.Time      `gorm:"column:activated_at"`
	Product            *Product        `gorm:"foreignKey:ProductID"`
	CreatedAt          time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt          time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}
