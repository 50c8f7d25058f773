package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/kwesidadzie/bundlehub-backend/pkg/enums"
)

// Subscription grants an agent a plan for a bounded period. The stored status
// is a cache of the timestamp-derived state: it is re-derived on read and
// synced back when stale. At most one active/grace row exists per agent.
type Subscription struct {
	ID          uuid.UUID                `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	AgentID     uuid.UUID                `gorm:"column:agent_id;type:uuid;not null;index"`
	PlanID      uuid.UUID                `gorm:"column:plan_id;type:uuid;not null"`
	Status      enums.SubscriptionStatus `gorm:"column:status;type:text;not null"`
	StartsAt    time.Time                `gorm:"column:starts_at;not null"`
	ExpiresAt   time.Time                `gorm:"column:expires_at;not null"`
	GraceEndsAt time.Time                `gorm:"column:grace_ends_at;not null"`
	Plan        *Plan                    `gorm:"foreignKey:PlanID"`
	CreatedAt   time.Time                `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time                `gorm:"column:updated_at;autoUpdateTime"`
}
